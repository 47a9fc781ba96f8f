package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/owtf/exporter/internal/dataset"
	"github.com/owtf/exporter/internal/log"
	"github.com/owtf/exporter/internal/model"
	"github.com/owtf/exporter/internal/store"

	"github.com/spf13/cobra"
)

func doImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	attrs := slog.Group("exporter",
		slog.String("cmd", "import"),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening dataset: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	d, err := dataset.Load(f)
	if err != nil {
		return fmt.Errorf("loading %s: %w", args[0], err)
	}

	a, err := openApp(ctx, config)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	var stats dataset.Stats
	err = a.store.Update(ctx, func(tx *store.Tx) error {
		var err error
		stats, err = d.Import(ctx, tx)
		return err
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "dataset imported",
		slog.String("path", args[0]),
		slog.Int("targets", stats.Targets),
		slog.Int("test_groups", stats.TestGroups),
		slog.Int("mappings", stats.Mappings),
		slog.Int("plugin_outputs", stats.PluginOutputs),
	)

	if a.cache != nil {
		if err := a.cache.Invalidate(ctx); err != nil {
			slog.WarnContext(ctx, "invalidating cache failed", "error", err)
		}
		a.warm(ctx)
	}
	return nil
}

func doDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	attrs := slog.Group("exporter",
		slog.String("cmd", "delete"),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: target_id %q", model.ErrInvalidParameterType, args[0])
	}

	a, err := openApp(ctx, config)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	if err := a.store.DeleteTarget(ctx, id); err != nil {
		return fmt.Errorf("deleting target %d: %w", id, err)
	}
	slog.InfoContext(ctx, "target deleted", slog.Int64("target_id", id))
	return nil
}
