package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/owtf/exporter/internal/api"
	"github.com/owtf/exporter/internal/bom"
	"github.com/owtf/exporter/internal/log"
	"github.com/owtf/exporter/internal/model"

	"github.com/spf13/cobra"
)

var (
	flagMapping string
	flagFormat  string
	flagFilter  []string
	flagServer  string
)

func doExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	attrs := slog.Group("exporter",
		slog.String("cmd", "export"),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", model.ErrInvalidTargetReference, args[0])
	}
	if flagFormat != api.FormatJSON && flagFormat != api.FormatCycloneDX {
		return fmt.Errorf("%w: format %q", model.ErrInvalidParameterType, flagFormat)
	}
	filter, err := parseFilter(flagFilter)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if flagServer != "" {
		client, err := api.NewClient(flagServer, nil)
		if err != nil {
			return err
		}
		body, _, err := client.Export(ctx, targetID, filter, flagMapping, flagFormat)
		if err != nil {
			return err
		}
		_, err = out.Write(body)
		return err
	}

	a, err := openApp(ctx, config)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	rep, err := a.reporter.Build(ctx, targetID, filter, flagMapping)
	if err != nil {
		return err
	}
	return writeReport(out, rep, flagFormat)
}

func writeReport(w io.Writer, rep model.Report, format string) error {
	if format == api.FormatCycloneDX {
		return bom.FromReport(rep).AsJSON(w)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// parseFilter turns repeated key=value flags into a filter.
func parseFilter(raw []string) (model.Filter, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	filter := make(model.Filter, len(raw))
	for _, kv := range raw {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: expected key=value, got %q", model.ErrInvalidParameterType, kv)
		}
		filter[k] = append(filter[k], v)
	}
	return filter, nil
}
