package indicator

import (
	"context"

	"github.com/hazyhaar/xdswitch/mode"
)

// PaintFunc receives paints in-process.
type PaintFunc func(ctx context.Context, tabID string, m mode.Mode) error

// Callback delivers paints as plain function calls. A nil func drops them.
type Callback struct {
	fn PaintFunc
}

// NewCallback creates a Callback sink.
func NewCallback(fn PaintFunc) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Paint(ctx context.Context, tabID string, m mode.Mode) error {
	if c.fn == nil {
		return nil
	}
	return c.fn(ctx, tabID, m)
}

func (c *Callback) Close() error { return nil }
