package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/owtf/exporter/internal/model"
	"github.com/stretchr/testify/require"
)

func TestPluginOutput_JSON(t *testing.T) {
	t.Parallel()

	var testCases = []struct {
		scenario string
		given    model.PluginOutput
		then     map[string]any
	}{
		{
			scenario: "times not set",
			given:    model.PluginOutput{ID: 1, PluginCode: "OWTF-IG-001"},
			then:     map[string]any{},
		},
		{
			scenario: "times set",
			given: model.PluginOutput{
				ID:         1,
				PluginCode: "OWTF-IG-001",
				StartTime:  time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC),
				EndTime:    time.Date(2020, 1, 1, 10, 0, 5, 0, time.UTC),
			},
			then: map[string]any{
				"start_time": "2020-01-01T10:00:00Z",
				"end_time":   "2020-01-01T10:00:05Z",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			b, err := json.Marshal(tc.given)
			require.NoError(t, err)
			var doc map[string]any
			require.NoError(t, json.Unmarshal(b, &doc))

			for _, key := range []string{"start_time", "end_time"} {
				want, ok := tc.then[key]
				if !ok {
					require.NotContains(t, doc, key)
					continue
				}
				require.Equal(t, want, doc[key])
			}
		})
	}
}
