package store

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/owtf/exporter/internal/model"
)

// filterable plugin_outputs columns, true for integer ones
var filterColumns = map[string]bool{
	"plugin_key":   false,
	"plugin_type":  false,
	"plugin_group": false,
	"plugin_code":  false,
	"status":       false,
	"user_rank":    true,
	"owtf_rank":    true,
}

// FilterKeys returns the supported filter keys.
func FilterKeys() []string {
	return slices.Sorted(maps.Keys(filterColumns))
}

// filterClause translates filter to " AND col IN (?, ...)" conditions.
// Values of the same key are OR-ed, keys are AND-ed.
func filterClause(filter model.Filter) (string, []any, error) {
	var sb strings.Builder
	var args []any
	for _, key := range slices.Sorted(maps.Keys(filter)) {
		numeric, ok := filterColumns[key]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown key %q, supported keys are %s",
				model.ErrInvalidParameterType, key, strings.Join(FilterKeys(), ", "))
		}
		values := filter[key]
		if len(values) == 0 {
			continue
		}

		sb.WriteString(" AND ")
		sb.WriteString(key)
		sb.WriteString(" IN (")
		for i, v := range values {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("?")
			if !numeric {
				args = append(args, v)
				continue
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return "", nil, fmt.Errorf("%w: %s=%q is not an integer", model.ErrInvalidParameterType, key, v)
			}
			args = append(args, n)
		}
		sb.WriteString(")")
	}
	return sb.String(), args, nil
}
