// Package journal keeps a SQLite history of reconcile passes and user mode
// changes, for inspection through the control surfaces.
//
// Writes never fail the caller: an error is logged and the event dropped,
// so a broken journal cannot block reconciliation.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/xdswitch/modewriter"
	"github.com/hazyhaar/xdswitch/reconcile"
)

// Schema contains the DDL for the journal tables.
const Schema = `
CREATE TABLE IF NOT EXISTS reconcile_events (
	event_id   TEXT PRIMARY KEY,
	site_key   TEXT NOT NULL,
	stored     TEXT NOT NULL,
	observed   TEXT NOT NULL,
	result     TEXT NOT NULL,
	corrected  INTEGER NOT NULL DEFAULT 0,
	error      TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reconcile_events_created ON reconcile_events(created_at);

CREATE TABLE IF NOT EXISTS mode_changes (
	event_id   TEXT PRIMARY KEY,
	site_key   TEXT NOT NULL,
	tab_id     TEXT NOT NULL,
	mode       TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_mode_changes_created ON mode_changes(created_at);
`

// Entry is one journal row, from either table.
type Entry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"` // "reconcile" | "apply"
	Site      string    `json:"site"`
	TabID     string    `json:"tab_id,omitempty"`
	Mode      string    `json:"mode"`
	Stored    string    `json:"stored,omitempty"`
	Observed  string    `json:"observed,omitempty"`
	Corrected bool      `json:"corrected,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Journal writes events to the journal tables.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// New returns a Journal on db. The schema must already be applied.
func New(db *sql.DB, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{db: db, logger: logger, now: time.Now}
}

func newID(prefix string) string {
	return prefix + uuid.Must(uuid.NewV7()).String()
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// RecordReconcile implements reconcile.Recorder.
func (j *Journal) RecordReconcile(ctx context.Context, r reconcile.Result, err error) {
	_, dbErr := j.db.ExecContext(ctx, `
		INSERT INTO reconcile_events (event_id, site_key, stored, observed, result, corrected, error, created_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		newID("rec_"), r.Site, r.Stored.String(), r.Observed.String(), r.Mode.String(),
		r.Corrected, errText(err), j.now().UnixMilli())
	if dbErr != nil {
		j.logger.Error("journal: record reconcile failed", "site", r.Site, "error", dbErr)
	}
}

// RecordApply implements modewriter.Recorder.
func (j *Journal) RecordApply(ctx context.Context, c modewriter.Change, err error) {
	_, dbErr := j.db.ExecContext(ctx, `
		INSERT INTO mode_changes (event_id, site_key, tab_id, mode, error, created_at)
		VALUES (?,?,?,?,?,?)`,
		newID("chg_"), c.Site, c.TabID, c.Mode.String(), errText(err), j.now().UnixMilli())
	if dbErr != nil {
		j.logger.Error("journal: record apply failed", "site", c.Site, "error", dbErr)
	}
}

// Recent returns the latest entries of both kinds, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT event_id, 'reconcile', site_key, '', result, stored, observed, corrected, error, created_at
		FROM reconcile_events
		UNION ALL
		SELECT event_id, 'apply', site_key, tab_id, mode, '', '', 0, error, created_at
		FROM mode_changes
		ORDER BY 10 DESC, 1 DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ms int64
		if err := rows.Scan(&e.ID, &e.Kind, &e.Site, &e.TabID, &e.Mode,
			&e.Stored, &e.Observed, &e.Corrected, &e.Error, &ms); err != nil {
			return nil, fmt.Errorf("journal: recent: %w", err)
		}
		e.At = time.UnixMilli(ms).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// Cleanup deletes entries older than days. Zero keeps everything.
func (j *Journal) Cleanup(ctx context.Context, days int) error {
	if days <= 0 {
		return nil
	}
	cutoff := j.now().Add(-time.Duration(days) * 24 * time.Hour).UnixMilli()
	for _, table := range []string{"reconcile_events", "mode_changes"} {
		if _, err := j.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE created_at < ?", cutoff); err != nil {
			return fmt.Errorf("journal: cleanup %s: %w", table, err)
		}
	}
	return nil
}
