package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/owtf/exporter/internal/model"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx writes within a single transaction opened by Store.Update.
type Tx struct {
	tx *sql.Tx
}

// Update runs fn in a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise, so either every write made through
// tx is stored or none is.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer rollback(ctx, tx, "update")

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction failed: %w", err)
	}
	return nil
}

// PutTarget inserts or replaces a target.
func (s *Store) PutTarget(ctx context.Context, t model.TargetConfig) error {
	return putTarget(ctx, s.db, t)
}

func (t *Tx) PutTarget(ctx context.Context, tc model.TargetConfig) error {
	return putTarget(ctx, t.tx, tc)
}

// PutTestGroup inserts or replaces a test group identified by its code.
func (s *Store) PutTestGroup(ctx context.Context, tg model.TestGroup) error {
	return putTestGroup(ctx, s.db, tg)
}

func (t *Tx) PutTestGroup(ctx context.Context, tg model.TestGroup) error {
	return putTestGroup(ctx, t.tx, tg)
}

// PutMapping replaces the whole mapping table called name.
func (s *Store) PutMapping(ctx context.Context, name string, m model.Mapping) error {
	return s.Update(ctx, func(tx *Tx) error {
		return tx.PutMapping(ctx, name, m)
	})
}

func (t *Tx) PutMapping(ctx context.Context, name string, m model.Mapping) error {
	return putMapping(ctx, t.tx, name, m)
}

// PutPluginOutput stores o and returns its id. Zero o.ID allocates a new one,
// otherwise the output with the same id is replaced.
func (s *Store) PutPluginOutput(ctx context.Context, o model.PluginOutput) (int64, error) {
	var id int64
	err := s.Update(ctx, func(tx *Tx) error {
		var err error
		id, err = tx.PutPluginOutput(ctx, o)
		return err
	})
	return id, err
}

func (t *Tx) PutPluginOutput(ctx context.Context, o model.PluginOutput) (int64, error) {
	return putPluginOutput(ctx, t.tx, o)
}

func putTarget(ctx context.Context, q querier, t model.TargetConfig) error {
	if t.ID <= 0 {
		return fmt.Errorf("%w: target id must be positive", model.ErrInvalidTargetReference)
	}
	altIPs := t.AlternativeIPs
	if altIPs == nil {
		altIPs = []string{}
	}
	rawIPs, err := json.Marshal(altIPs)
	if err != nil {
		return err
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO targets (id, target_url, host_ip, port_number, url_scheme, alternative_ips,
			host_name, host_path, ip_url, top_domain, top_url, scope, max_user_rank, max_owtf_rank)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			target_url=excluded.target_url,
			host_ip=excluded.host_ip,
			port_number=excluded.port_number,
			url_scheme=excluded.url_scheme,
			alternative_ips=excluded.alternative_ips,
			host_name=excluded.host_name,
			host_path=excluded.host_path,
			ip_url=excluded.ip_url,
			top_domain=excluded.top_domain,
			top_url=excluded.top_url,
			scope=excluded.scope,
			max_user_rank=excluded.max_user_rank,
			max_owtf_rank=excluded.max_owtf_rank;`,
		t.ID, t.TargetURL, t.HostIP, t.PortNumber, t.URLScheme, string(rawIPs),
		t.HostName, t.HostPath, t.IPURL, t.TopDomain, t.TopURL, t.Scope, t.MaxUserRank, t.MaxOWTFRank,
	)
	if err != nil {
		return fmt.Errorf("executing sql insert failed: %w", err)
	}
	return nil
}

func putTestGroup(ctx context.Context, q querier, tg model.TestGroup) error {
	if tg.Code == "" {
		return fmt.Errorf("test group code is empty")
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO test_groups (code, grp, descrip, hint, url, priority)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(code) DO UPDATE SET
			grp=excluded.grp,
			descrip=excluded.descrip,
			hint=excluded.hint,
			url=excluded.url,
			priority=excluded.priority;`,
		tg.Code, tg.Group, tg.Descrip, tg.Hint, tg.URL, tg.Priority,
	)
	if err != nil {
		return fmt.Errorf("executing sql insert failed: %w", err)
	}
	return nil
}

func putMapping(ctx context.Context, q querier, name string, m model.Mapping) error {
	if name == "" {
		return fmt.Errorf("mapping name is empty")
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM mappings WHERE name=?`, name); err != nil {
		return fmt.Errorf("executing sql delete failed: %w", err)
	}
	for code, mapped := range m {
		_, err := q.ExecContext(ctx,
			`INSERT INTO mappings (name, code, mapped_code, mapped_descrip) VALUES (?,?,?,?);`,
			name, code, mapped.Code, mapped.Descrip,
		)
		if err != nil {
			return fmt.Errorf("executing sql insert failed: %w", err)
		}
	}
	return nil
}

func putPluginOutput(ctx context.Context, q querier, o model.PluginOutput) (int64, error) {
	if o.PluginCode == "" {
		return 0, fmt.Errorf("plugin output has no plugin_code")
	}

	var exists bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM targets WHERE id=?)`, o.TargetID).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("executing sql query failed: %w", err)
	}
	if !exists {
		return 0, fmt.Errorf("%w: target %d does not exist", model.ErrInvalidTargetReference, o.TargetID)
	}

	var id any
	if o.ID > 0 {
		id = o.ID
	}
	var newID int64
	err = q.QueryRowContext(ctx,
		`INSERT INTO plugin_outputs (id, target_id, plugin_key, plugin_code, plugin_group,
			plugin_type, plugin_name, status, output, error, user_notes, user_rank, owtf_rank,
			start_time, end_time, run_time)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			target_id=excluded.target_id,
			plugin_key=excluded.plugin_key,
			plugin_code=excluded.plugin_code,
			plugin_group=excluded.plugin_group,
			plugin_type=excluded.plugin_type,
			plugin_name=excluded.plugin_name,
			status=excluded.status,
			output=excluded.output,
			error=excluded.error,
			user_notes=excluded.user_notes,
			user_rank=excluded.user_rank,
			owtf_rank=excluded.owtf_rank,
			start_time=excluded.start_time,
			end_time=excluded.end_time,
			run_time=excluded.run_time
		RETURNING id;`,
		id, o.TargetID, o.PluginKey, o.PluginCode, o.PluginGroup,
		o.PluginType, o.PluginName, o.Status, o.Output, o.Error, o.UserNotes, o.UserRank, o.OWTFRank,
		formatTime(o.StartTime), formatTime(o.EndTime), o.RunTime,
	).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("executing sql insert failed: %w", err)
	}
	return newID, nil
}

// DeleteTarget removes a target together with its plugin outputs.
func (s *Store) DeleteTarget(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM targets WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("executing sql delete failed: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("fetching affected rows failed: %w", err)
	}
	if ra != 1 {
		return model.ErrTargetNotFound
	}
	return nil
}
