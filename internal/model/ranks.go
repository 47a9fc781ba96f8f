package model

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// Ranks translates numeric severity to its display name.
type Ranks map[int]string

// DefaultRanks returns the rank table used unless configured otherwise.
func DefaultRanks() Ranks {
	return Ranks{
		-1: "Unranked",
		0:  "Passing",
		1:  "Info",
		2:  "Low",
		3:  "Medium",
		4:  "High",
		5:  "Critical",
	}
}

// Name returns the display name of rank or ErrUnknownRank listing the
// known ones.
func (r Ranks) Name(rank int) (string, error) {
	name, ok := r[rank]
	if !ok {
		return "", fmt.Errorf("%w: %d, known ranks are %v", ErrUnknownRank, rank, r.Keys())
	}
	return name, nil
}

// Keys returns the ranks in ascending order.
func (r Ranks) Keys() []int {
	return slices.Sorted(maps.Keys(r))
}

// ParseRanks converts a rank table with string keys, as it appears in
// the configuration file.
func ParseRanks(raw map[string]string) (Ranks, error) {
	ret := make(Ranks, len(raw))
	for k, v := range raw {
		i, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("rank %q is not an integer: %w", k, err)
		}
		if v == "" {
			return nil, fmt.Errorf("rank %d has an empty name", i)
		}
		ret[i] = v
	}
	return ret, nil
}
