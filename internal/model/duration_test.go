package model_test

import (
	"testing"
	"time"

	"github.com/owtf/exporter/internal/model"
	"github.com/stretchr/testify/require"
)

func TestParseISODuration(t *testing.T) {
	t.Parallel()
	var testCases = []struct {
		given string
		then  time.Duration
	}{
		{"P1D", 24 * time.Hour},
		{"PT5M", 5 * time.Minute},
		{"PT1H30M", 90 * time.Minute},
		{"PT1.5S", 1500 * time.Millisecond},
		{"PT0,25S", 250 * time.Millisecond},
		{"P1DT2H", 26 * time.Hour},
		{"PT-0.5S", -500 * time.Millisecond},
		{"PT-1.5S", -1500 * time.Millisecond},
		{"PT+0.5S", 500 * time.Millisecond},
	}
	for _, tt := range testCases {
		t.Run(tt.given, func(t *testing.T) {
			got, err := model.ParseISODuration(tt.given)
			require.NoError(t, err)
			require.Equal(t, tt.then, got)
		})
	}
}

func TestParseISODuration_Fail(t *testing.T) {
	t.Parallel()
	for _, given := range []string{"", "P", "PT", "P2M", "P1DT", "1h", "PT1.1234567891S"} {
		t.Run(given, func(t *testing.T) {
			_, err := model.ParseISODuration(given)
			require.Error(t, err)
		})
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()
	var d model.Duration
	require.NoError(t, d.UnmarshalText([]byte("PT30S")))
	require.Equal(t, 30*time.Second, d.Duration)
	require.NoError(t, d.UnmarshalText([]byte("2m")))
	require.Equal(t, 2*time.Minute, d.Duration)
	require.Error(t, d.UnmarshalText([]byte("tomorrow")))

	b, err := d.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "2m0s", string(b))
}
