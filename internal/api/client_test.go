package api_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/owtf/exporter/internal/api"
	"github.com/owtf/exporter/internal/model"
	"github.com/owtf/exporter/internal/report"
	"github.com/owtf/exporter/internal/store"

	"github.com/stretchr/testify/require"
)

func newStoreServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := t.Context()
	s, err := store.Open(ctx, filepath.Join(t.TempDir(), "exporter.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.PutTarget(ctx, model.TargetConfig{ID: 1, TargetURL: "http://example.com", Scope: true}))
	require.NoError(t, s.PutTestGroup(ctx, model.TestGroup{Code: "OWTF-IG-001", Descrip: "Spiders"}))
	require.NoError(t, s.PutTestGroup(ctx, model.TestGroup{Code: "OWTF-WVS-001", Descrip: "Arachni"}))
	require.NoError(t, s.PutMapping(ctx, "OWASP_V4", model.Mapping{
		"OWTF-IG-001": {Code: "WSTG-INFO-01", Descrip: "Search Engine Discovery"},
	}))
	for _, o := range []model.PluginOutput{
		{TargetID: 1, PluginCode: "OWTF-WVS-001", PluginType: "active", UserRank: 4, OWTFRank: 2},
		{TargetID: 1, PluginCode: "OWTF-IG-001", PluginType: "passive", UserRank: -1, OWTFRank: 1},
	} {
		_, err := s.PutPluginOutput(ctx, o)
		require.NoError(t, err)
	}

	agg := report.New(report.Sources{
		Outputs:    s,
		Mappings:   s,
		TestGroups: s,
		Targets:    s,
	}, model.DefaultRanks())
	handler, err := api.New(agg, s)
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Report(t *testing.T) {
	t.Parallel()
	srv := newStoreServer(t)
	c, err := api.NewClient(srv.URL, srv.Client())
	require.NoError(t, err)

	rep, err := c.Report(t.Context(), 1, nil, "OWASP_V4")
	require.NoError(t, err)
	require.Equal(t, int64(1), rep.ID)
	require.Len(t, rep.Vulnerabilities, 2)

	require.Equal(t, "OWTF-IG-001", rep.Vulnerabilities[0].Code)
	require.Equal(t, "WSTG-INFO-01", rep.Vulnerabilities[0].MappedCode)
	require.Equal(t, "Info", rep.Vulnerabilities[0].Data[0].Rank)

	require.Equal(t, "OWTF-WVS-001", rep.Vulnerabilities[1].Code)
	require.Equal(t, "OWTF-WVS-001", rep.Vulnerabilities[1].MappedCode)
	require.Equal(t, "High", rep.Vulnerabilities[1].Data[0].Rank)

	filtered, err := c.Report(t.Context(), 1, model.Filter{"plugin_type": {"active"}}, "")
	require.NoError(t, err)
	require.Len(t, filtered.Vulnerabilities, 1)
	require.Equal(t, "OWTF-WVS-001", filtered.Vulnerabilities[0].Code)
}

func TestClient_Export_CycloneDX(t *testing.T) {
	t.Parallel()
	srv := newStoreServer(t)
	c, err := api.NewClient(srv.URL, srv.Client())
	require.NoError(t, err)

	body, contentType, err := c.Export(t.Context(), 1, nil, "", api.FormatCycloneDX)
	require.NoError(t, err)
	require.Equal(t, "application/vnd.cyclonedx+json", contentType)
	require.Contains(t, string(body), `"bomFormat": "CycloneDX"`)
}

func TestClient_Problem(t *testing.T) {
	t.Parallel()
	srv := newStoreServer(t)
	c, err := api.NewClient(srv.URL, srv.Client())
	require.NoError(t, err)

	var testCases = []struct {
		scenario string
		targetID int64
		filter   model.Filter
		then     string
	}{
		{
			scenario: "missing target",
			targetID: 0,
			then:     "target id is missing",
		},
		{
			scenario: "unknown target",
			targetID: 42,
			then:     "invalid target reference",
		},
		{
			scenario: "unknown filter key",
			targetID: 1,
			filter:   model.Filter{"colour": {"red"}},
			then:     "invalid filter parameter",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			_, err := c.Report(t.Context(), tc.targetID, tc.filter, "")
			require.Error(t, err)
			var problem api.ProblemError
			require.True(t, errors.As(err, &problem))
			require.Equal(t, http.StatusBadRequest, problem.Status)
			require.Contains(t, problem.Detail, tc.then)
		})
	}
}

func TestNewClient(t *testing.T) {
	t.Parallel()
	for _, given := range []string{"localhost:8009", "http://", "http://localhost:8009/api", "://bad"} {
		_, err := api.NewClient(given, nil)
		require.Error(t, err, given)
	}
	_, err := api.NewClient("http://localhost:8009/", nil)
	require.NoError(t, err)
}
