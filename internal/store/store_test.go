package store_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/owtf/exporter/internal/model"
	"github.com/owtf/exporter/internal/store"

	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(t.Context(), filepath.Join(t.TempDir(), "exporter.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func seed(t *testing.T, s *store.Store) {
	t.Helper()
	ctx := t.Context()
	require.NoError(t, s.PutTarget(ctx, model.TargetConfig{
		ID:             1,
		TargetURL:      "http://example.com",
		HostIP:         "192.0.2.10",
		PortNumber:     "80",
		URLScheme:      "http",
		AlternativeIPs: []string{"192.0.2.11"},
		HostName:       "example.com",
		TopDomain:      "com",
		Scope:          true,
		MaxUserRank:    -1,
		MaxOWTFRank:    4,
	}))
	require.NoError(t, s.PutTarget(ctx, model.TargetConfig{ID: 2, TargetURL: "http://empty.example.com"}))

	for _, tg := range []model.TestGroup{
		{Code: "OWTF-WVS-001", Group: "web", Descrip: "Arachni Unauthenticated"},
		{Code: "OWTF-IG-001", Group: "web", Descrip: "Spiders, Robots and Crawlers", Priority: 1},
	} {
		require.NoError(t, s.PutTestGroup(ctx, tg))
	}

	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, o := range []model.PluginOutput{
		{TargetID: 1, PluginKey: "web@OWTF-IG-001@passive", PluginCode: "OWTF-IG-001", PluginGroup: "web", PluginType: "passive", Status: "Successful", Output: "<html/>", UserRank: -1, OWTFRank: 1, StartTime: start, EndTime: start.Add(time.Second), RunTime: "1s"},
		{TargetID: 1, PluginKey: "web@OWTF-WVS-001@active", PluginCode: "OWTF-WVS-001", PluginGroup: "web", PluginType: "active", Status: "Successful", UserRank: 3, OWTFRank: 4},
		{TargetID: 1, PluginKey: "web@OWTF-IG-001@semi_passive", PluginCode: "OWTF-IG-001", PluginGroup: "web", PluginType: "semi_passive", Status: "Crashed", UserRank: -1, OWTFRank: -1},
	} {
		_, err := s.PutPluginOutput(ctx, o)
		require.NoError(t, err)
	}
}

func TestOpen_URI(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	path := "file:" + filepath.Join(t.TempDir(), "exporter.db") + "?mode=rwc"

	s, err := store.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.PutTarget(ctx, model.TargetConfig{ID: 1, TargetURL: "http://example.com"}))
	_, err = s.PutPluginOutput(ctx, model.PluginOutput{TargetID: 1, PluginCode: "OWTF-IG-001"})
	require.NoError(t, err)
	require.NoError(t, s.DeleteTarget(ctx, 1))
	require.NoError(t, s.Close())

	s, err = store.Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.PutTarget(ctx, model.TargetConfig{ID: 1, TargetURL: "http://example.com"}))

	// foreign_keys(1) cascaded the delete, so nothing reappears with the target
	outputs, err := s.PluginOutputs(ctx, 1, nil, false)
	require.NoError(t, err)
	require.Empty(t, outputs)
}

func TestTargetConfig(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	seed(t, s)

	tc, err := s.TargetConfig(t.Context(), 1)
	require.NoError(t, err)
	require.Equal(t, "http://example.com", tc.TargetURL)
	require.Equal(t, []string{"192.0.2.11"}, tc.AlternativeIPs)
	require.True(t, tc.Scope)
	require.Equal(t, 4, tc.MaxOWTFRank)

	tc, err = s.TargetConfig(t.Context(), 2)
	require.NoError(t, err)
	require.Equal(t, []string{}, tc.AlternativeIPs)

	_, err = s.TargetConfig(t.Context(), 42)
	require.ErrorIs(t, err, model.ErrTargetNotFound)
}

func TestTestGroups(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	seed(t, s)

	groups, err := s.TestGroups(t.Context())
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, "OWTF-IG-001", groups[0].Code)
	require.Equal(t, 1, groups[0].Priority)
	require.Equal(t, "OWTF-WVS-001", groups[1].Code)

	// upsert
	require.NoError(t, s.PutTestGroup(t.Context(), model.TestGroup{Code: "OWTF-IG-001", Descrip: "Crawlers"}))
	groups, err = s.TestGroups(t.Context())
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, "Crawlers", groups[0].Descrip)
}

func TestMapping(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := t.Context()

	m := model.Mapping{
		"OWTF-IG-001":  {Code: "WSTG-INFO-01", Descrip: "Search Engine Discovery"},
		"OWTF-WVS-001": {Code: "WSTG-VULN", Descrip: "Vulnerability scanning"},
	}
	require.NoError(t, s.PutMapping(ctx, "OWASP_V4", m))

	got, err := s.Mapping(ctx, "OWASP_V4")
	require.NoError(t, err)
	require.Equal(t, m, got)

	// replace drops codes not present anymore
	require.NoError(t, s.PutMapping(ctx, "OWASP_V4", model.Mapping{"OWTF-IG-001": m["OWTF-IG-001"]}))
	got, err = s.Mapping(ctx, "OWASP_V4")
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = s.Mapping(ctx, "unknown")
	require.NoError(t, err)
	require.Empty(t, got)

	names, err := s.MappingNames(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"OWASP_V4"}, names)
}

func TestPluginOutputs(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	seed(t, s)

	var testCases = []struct {
		scenario string
		filter   model.Filter
		then     []string // plugin keys
	}{
		{"no filter", nil, []string{"web@OWTF-IG-001@passive", "web@OWTF-WVS-001@active", "web@OWTF-IG-001@semi_passive"}},
		{"plugin_type", model.Filter{"plugin_type": {"active"}}, []string{"web@OWTF-WVS-001@active"}},
		{"multi value", model.Filter{"plugin_type": {"passive", "active"}}, []string{"web@OWTF-IG-001@passive", "web@OWTF-WVS-001@active"}},
		{"and", model.Filter{"plugin_code": {"OWTF-IG-001"}, "status": {"Crashed"}}, []string{"web@OWTF-IG-001@semi_passive"}},
		{"rank", model.Filter{"owtf_rank": {"4", "1"}}, []string{"web@OWTF-IG-001@passive", "web@OWTF-WVS-001@active"}},
		{"empty values", model.Filter{"status": {}}, []string{"web@OWTF-IG-001@passive", "web@OWTF-WVS-001@active", "web@OWTF-IG-001@semi_passive"}},
		{"no match", model.Filter{"plugin_group": {"net"}}, nil},
	}

	for _, tt := range testCases {
		t.Run(tt.scenario, func(t *testing.T) {
			outputs, err := s.PluginOutputs(t.Context(), 1, tt.filter, false)
			require.NoError(t, err)
			var keys []string
			for _, o := range outputs {
				keys = append(keys, o.PluginKey)
				require.Empty(t, o.Output)
			}
			require.Equal(t, tt.then, keys)
		})
	}

	t.Run("with output", func(t *testing.T) {
		outputs, err := s.PluginOutputs(t.Context(), 1, model.Filter{"plugin_type": {"passive"}}, true)
		require.NoError(t, err)
		require.Len(t, outputs, 1)
		o := outputs[0]
		require.Equal(t, "<html/>", o.Output)
		require.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), o.StartTime)
		require.Equal(t, time.Second, o.EndTime.Sub(o.StartTime))
		require.Equal(t, model.UnsetRank, o.UserRank)
		require.Equal(t, 1, o.OWTFRank)
	})

	t.Run("target without outputs", func(t *testing.T) {
		outputs, err := s.PluginOutputs(t.Context(), 2, nil, true)
		require.NoError(t, err)
		require.Empty(t, outputs)
	})
}

func TestPluginOutputs_Errors(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	seed(t, s)

	_, err := s.PluginOutputs(t.Context(), 42, nil, true)
	require.ErrorIs(t, err, model.ErrInvalidTargetReference)

	_, err = s.PluginOutputs(t.Context(), 1, model.Filter{"target_url": {"x"}}, true)
	require.ErrorIs(t, err, model.ErrInvalidParameterType)
	require.ErrorContains(t, err, `unknown key "target_url", supported keys are owtf_rank, plugin_code, plugin_group, plugin_key, plugin_type, status, user_rank`)

	_, err = s.PluginOutputs(t.Context(), 1, model.Filter{"user_rank": {"high"}}, true)
	require.ErrorIs(t, err, model.ErrInvalidParameterType)
}

func TestPutPluginOutput(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	seed(t, s)
	ctx := t.Context()

	_, err := s.PutPluginOutput(ctx, model.PluginOutput{TargetID: 42, PluginCode: "OWTF-IG-001"})
	require.ErrorIs(t, err, model.ErrInvalidTargetReference)

	id, err := s.PutPluginOutput(ctx, model.PluginOutput{TargetID: 2, PluginCode: "OWTF-IG-001", OWTFRank: 2})
	require.NoError(t, err)
	require.Positive(t, id)

	_, err = s.PutPluginOutput(ctx, model.PluginOutput{ID: id, TargetID: 2, PluginCode: "OWTF-IG-001", OWTFRank: 5})
	require.NoError(t, err)

	outputs, err := s.PluginOutputs(ctx, 2, nil, true)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	require.Equal(t, id, outputs[0].ID)
	require.Equal(t, 5, outputs[0].OWTFRank)
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := t.Context()

	err := s.Update(ctx, func(tx *store.Tx) error {
		require.NoError(t, tx.PutTarget(ctx, model.TargetConfig{ID: 3, TargetURL: "http://c.example.com"}))
		require.NoError(t, tx.PutTestGroup(ctx, model.TestGroup{Code: "OWTF-IG-001"}))
		_, err := tx.PutPluginOutput(ctx, model.PluginOutput{ID: 9, TargetID: 42, PluginCode: "OWTF-IG-001"})
		return err
	})
	require.ErrorIs(t, err, model.ErrInvalidTargetReference)

	_, err = s.TargetConfig(ctx, 3)
	require.ErrorIs(t, err, model.ErrTargetNotFound)
	groups, err := s.TestGroups(ctx)
	require.NoError(t, err)
	require.Empty(t, groups)

	err = s.Update(ctx, func(tx *store.Tx) error {
		require.NoError(t, tx.PutTarget(ctx, model.TargetConfig{ID: 3, TargetURL: "http://c.example.com"}))
		require.NoError(t, tx.PutMapping(ctx, "OWASP_V4", model.Mapping{"OWTF-IG-001": {Code: "WSTG-INFO-01"}}))
		_, err := tx.PutPluginOutput(ctx, model.PluginOutput{ID: 9, TargetID: 3, PluginCode: "OWTF-IG-001"})
		return err
	})
	require.NoError(t, err)

	outputs, err := s.PluginOutputs(ctx, 3, nil, false)
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	require.Equal(t, int64(9), outputs[0].ID)
}

func TestDeleteTarget(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	seed(t, s)
	ctx := t.Context()

	require.NoError(t, s.DeleteTarget(ctx, 1))
	require.ErrorIs(t, s.DeleteTarget(ctx, 1), model.ErrTargetNotFound)

	_, err := s.PluginOutputs(ctx, 1, nil, true)
	require.ErrorIs(t, err, model.ErrInvalidTargetReference)
}

func TestFilterKeys(t *testing.T) {
	require.Equal(t, []string{"owtf_rank", "plugin_code", "plugin_group", "plugin_key", "plugin_type", "status", "user_rank"}, store.FilterKeys())
}
