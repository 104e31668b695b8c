// Package indicator paints a mode onto a per-tab visual indicator.
//
// Sinks only deliver; they never decide which mode to show. The icon set
// for a mode comes from Icons, the one mode-to-asset table in the repo.
package indicator

import (
	"context"
	"time"

	"github.com/hazyhaar/xdswitch/mode"
)

// Sink is an indicator backend.
type Sink interface {
	Paint(ctx context.Context, tabID string, m mode.Mode) error
	Close() error
}

// Paint is the payload emitted by serialising sinks.
type Paint struct {
	TabID string    `json:"tab_id"`
	Mode  mode.Mode `json:"mode"`
	Icons IconSet   `json:"icons"`
	At    time.Time `json:"at"`
}

func newPaint(tabID string, m mode.Mode) Paint {
	return Paint{TabID: tabID, Mode: m, Icons: Icons(m), At: time.Now().UTC()}
}
