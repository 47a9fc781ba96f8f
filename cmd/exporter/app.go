package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/owtf/exporter/internal/cache"
	"github.com/owtf/exporter/internal/model"
	"github.com/owtf/exporter/internal/report"
	"github.com/owtf/exporter/internal/store"
)

// app wires the store, the optional cache and the aggregator together.
type app struct {
	store    *store.Store
	cache    *cache.Cache
	reporter *report.Aggregator
}

func openApp(ctx context.Context, cfg model.Config) (*app, error) {
	ranks, err := cfg.RankTable()
	if err != nil {
		return nil, err
	}

	s, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.Database.Path, err)
	}

	src := report.Sources{
		Outputs:    s,
		Mappings:   s,
		TestGroups: s,
		Targets:    s,
	}

	c := dialCache(ctx, cfg)
	if c != nil {
		src.TestGroups = c.TestGroups(s)
		src.Mappings = c.Mappings(s)
	}

	return &app{
		store:    s,
		cache:    c,
		reporter: report.New(src, ranks),
	}, nil
}

// dialCache returns nil if the cache is not configured or not reachable.
func dialCache(ctx context.Context, cfg model.Config) *cache.Cache {
	if cfg.Cache == nil || cfg.Cache.Redis.IsZero() {
		return nil
	}
	c, err := cache.Dial(ctx, cfg.Cache.Redis.String(), cfg.CacheTTL())
	if err != nil {
		slog.WarnContext(ctx, "redis is not available, running without a cache", "error", err)
		return nil
	}
	return c
}

const warmLimit = 4

// warm preloads the cache, failures only cost cache misses.
func (a *app) warm(ctx context.Context) {
	if a.cache == nil {
		return
	}
	start := time.Now()
	stored, err := a.cache.Warm(ctx, a.store, warmLimit)
	if err != nil {
		slog.WarnContext(ctx, "warming cache failed", "error", err)
	}
	slog.DebugContext(ctx, "cache warmed", "entries", stored, "took", time.Since(start))
}

func (a *app) Close() error {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}
