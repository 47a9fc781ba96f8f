package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/owtf/exporter/internal/model"

	_ "modernc.org/sqlite"
)

// Store keeps targets, test groups, mappings and plugin outputs in SQLite.
// It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// dsn appends the connection pragmas to path, which may be a file: URI
// carrying its own query.
func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + pragmas
	}
	return path + "?" + pragmas
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// TargetConfig returns the target identified by id or
// model.ErrTargetNotFound.
func (s *Store) TargetConfig(ctx context.Context, id int64) (model.TargetConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, target_url, host_ip, port_number, url_scheme, alternative_ips,
			host_name, host_path, ip_url, top_domain, top_url, scope,
			max_user_rank, max_owtf_rank
		FROM targets WHERE id=?`, id,
	)

	var t model.TargetConfig
	var altIPs string
	err := row.Scan(
		&t.ID, &t.TargetURL, &t.HostIP, &t.PortNumber, &t.URLScheme, &altIPs,
		&t.HostName, &t.HostPath, &t.IPURL, &t.TopDomain, &t.TopURL, &t.Scope,
		&t.MaxUserRank, &t.MaxOWTFRank,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return model.TargetConfig{}, model.ErrTargetNotFound
	case err != nil:
		return model.TargetConfig{}, fmt.Errorf("executing sql query failed: %w", err)
	}

	if err := json.Unmarshal([]byte(altIPs), &t.AlternativeIPs); err != nil {
		return model.TargetConfig{}, fmt.Errorf("decoding alternative_ips of target %d: %w", id, err)
	}
	return t, nil
}

// TestGroups returns all test groups ordered by code.
func (s *Store) TestGroups(ctx context.Context) ([]model.TestGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, grp, descrip, hint, url, priority FROM test_groups ORDER BY code`,
	)
	if err != nil {
		return nil, fmt.Errorf("executing sql query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ret []model.TestGroup
	for rows.Next() {
		var tg model.TestGroup
		if err := rows.Scan(&tg.Code, &tg.Group, &tg.Descrip, &tg.Hint, &tg.URL, &tg.Priority); err != nil {
			return nil, fmt.Errorf("scanning test group: %w", err)
		}
		ret = append(ret, tg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating test groups: %w", err)
	}
	return ret, nil
}

// Mapping returns the mapping table called name. Unknown names result in
// an empty mapping.
func (s *Store) Mapping(ctx context.Context, name string) (model.Mapping, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, mapped_code, mapped_descrip FROM mappings WHERE name=?`, name,
	)
	if err != nil {
		return nil, fmt.Errorf("executing sql query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	ret := make(model.Mapping)
	for rows.Next() {
		var code string
		var mapped model.MappedName
		if err := rows.Scan(&code, &mapped.Code, &mapped.Descrip); err != nil {
			return nil, fmt.Errorf("scanning mapping: %w", err)
		}
		ret[code] = mapped
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mapping: %w", err)
	}
	return ret, nil
}

// MappingNames lists names of all stored mappings.
func (s *Store) MappingNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT name FROM mappings ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("executing sql query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ret []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning mapping name: %w", err)
		}
		ret = append(ret, name)
	}
	return ret, rows.Err()
}

// PluginOutputs returns outputs of target matching filter ordered by id.
// It returns model.ErrInvalidTargetReference if the target does not exist
// and model.ErrInvalidParameterType for an unsupported filter.
func (s *Store) PluginOutputs(ctx context.Context, targetID int64, filter model.Filter, withOutput bool) ([]model.PluginOutput, error) {
	where, args, err := filterClause(filter)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer rollback(ctx, tx, targetID)

	var exists bool
	err = tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM targets WHERE id=?)`, targetID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("executing sql query failed: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: target %d does not exist", model.ErrInvalidTargetReference, targetID)
	}

	outputColumn := "output"
	if !withOutput {
		outputColumn = "''"
	}
	query := `SELECT id, target_id, plugin_key, plugin_code, plugin_group, plugin_type,
			plugin_name, status, ` + outputColumn + `, error, user_notes, user_rank,
			owtf_rank, start_time, end_time, run_time
		FROM plugin_outputs WHERE target_id=?` + where + ` ORDER BY id`

	rows, err := tx.QueryContext(ctx, query, append([]any{targetID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("executing sql query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ret []model.PluginOutput
	for rows.Next() {
		var o model.PluginOutput
		var start, end string
		err := rows.Scan(
			&o.ID, &o.TargetID, &o.PluginKey, &o.PluginCode, &o.PluginGroup, &o.PluginType,
			&o.PluginName, &o.Status, &o.Output, &o.Error, &o.UserNotes, &o.UserRank,
			&o.OWTFRank, &start, &end, &o.RunTime,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning plugin output: %w", err)
		}
		if o.StartTime, err = parseTime(start); err != nil {
			return nil, fmt.Errorf("plugin output %d start_time: %w", o.ID, err)
		}
		if o.EndTime, err = parseTime(end); err != nil {
			return nil, fmt.Errorf("plugin output %d end_time: %w", o.ID, err)
		}
		ret = append(ret, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plugin outputs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction failed: %w", err)
	}
	return ret, nil
}

func rollback(ctx context.Context, tx *sql.Tx, key any) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.ErrorContext(ctx, "Calling `tx.Rollback()` failed.", slog.Any("key", key), slog.Any("error", err))
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
