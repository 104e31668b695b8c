// CLAUDE:SUMMARY SQLite-backed preference store (site_modes table) with upsert and BUSY retry.
package prefstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/xdswitch/dbopen"
	"github.com/hazyhaar/xdswitch/mode"
)

// Schema creates the site_modes table.
const Schema = `
CREATE TABLE IF NOT EXISTS site_modes (
	site_key   TEXT PRIMARY KEY,
	mode       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// SQLite stores preferences in a site_modes table. It survives restarts.
type SQLite struct {
	DB  *sql.DB
	now func() time.Time
}

// NewSQLite wraps db. The schema must already be applied (dbopen.WithSchema).
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{DB: db, now: time.Now}
}

// Get implements Store.
func (s *SQLite) Get(ctx context.Context, key string) (mode.Mode, error) {
	var raw string
	err := s.DB.QueryRowContext(ctx,
		`SELECT mode FROM site_modes WHERE site_key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultMode, nil
	}
	if err != nil {
		return DefaultMode, fmt.Errorf("prefstore: get %s: %w", key, err)
	}
	m, err := mode.Parse(raw)
	if err != nil {
		return DefaultMode, fmt.Errorf("prefstore: get %s: %w", key, err)
	}
	return m, nil
}

// Set implements Store.
func (s *SQLite) Set(ctx context.Context, key string, m mode.Mode) error {
	if !m.Valid() {
		return fmt.Errorf("prefstore: set %s: %w", key, mode.ErrUnknown)
	}
	_, err := dbopen.Exec(ctx, s.DB, `
		INSERT INTO site_modes (site_key, mode, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(site_key) DO UPDATE SET mode = excluded.mode, updated_at = excluded.updated_at`,
		key, m.String(), s.now().Unix())
	if err != nil {
		return fmt.Errorf("prefstore: set %s: %w", key, err)
	}
	return nil
}

// List returns every stored record ordered by site key.
func (s *SQLite) List(ctx context.Context) ([]Record, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT site_key, mode, updated_at FROM site_modes ORDER BY site_key`)
	if err != nil {
		return nil, fmt.Errorf("prefstore: list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var raw string
		if err := rows.Scan(&r.Site, &raw, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("prefstore: list: %w", err)
		}
		if r.Mode, err = mode.Parse(raw); err != nil {
			r.Mode = DefaultMode
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
