package cache

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/owtf/exporter/internal/parallel"
	"github.com/owtf/exporter/internal/report"
)

// Source is what Warm preloads the cache from, *store.Store implements it.
type Source interface {
	report.TestGroups
	report.Mappings
	MappingNames(ctx context.Context) ([]string, error)
}

// Warm overwrites cached test groups and every mapping of src, loading at
// most limit mappings at once. It returns the number of entries stored.
func (c *Cache) Warm(ctx context.Context, src Source, limit int) (int, error) {
	tgs, err := src.TestGroups(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading test groups: %w", err)
	}
	if err := c.store(ctx, testGroupsKey, tgs); err != nil {
		return 0, fmt.Errorf("storing test groups: %w", err)
	}
	stored := 1

	names, err := src.MappingNames(ctx)
	if err != nil {
		return stored, fmt.Errorf("listing mappings: %w", err)
	}

	load := func(ctx context.Context, name string) (string, error) {
		m, err := src.Mapping(ctx, name)
		if err != nil {
			return name, fmt.Errorf("loading mapping %s: %w", name, err)
		}
		if err := c.store(ctx, mappingPrefix+name, m); err != nil {
			return name, fmt.Errorf("storing mapping %s: %w", name, err)
		}
		return name, nil
	}

	var errs []error
	for _, err := range parallel.Map(ctx, limit, slices.Values(names), load) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		stored++
	}
	return stored, errors.Join(errs...)
}
