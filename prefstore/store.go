// CLAUDE:SUMMARY PreferenceStore capability: site key -> mode, with Off as the named default for absent keys.
// Package prefstore persists the mode the user chose for each site.
//
// The store is the only owner of preference records. Reconciler and
// ModeWriter read and write through Store and never keep a copy beyond a
// single operation.
package prefstore

import (
	"context"

	"github.com/hazyhaar/xdswitch/mode"
)

// DefaultMode is returned by Get for sites that have no stored preference.
const DefaultMode = mode.Off

// Store maps site keys to modes.
type Store interface {
	// Get returns the stored mode for key, or DefaultMode when absent.
	Get(ctx context.Context, key string) (mode.Mode, error)
	// Set stores m for key, replacing any previous value.
	Set(ctx context.Context, key string, m mode.Mode) error
}

// Record is one stored preference.
type Record struct {
	Site      string    `json:"site"`
	Mode      mode.Mode `json:"mode"`
	UpdatedAt int64     `json:"updated_at"`
}
