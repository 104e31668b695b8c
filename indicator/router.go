package indicator

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/xdswitch/mode"
)

// Router fans a paint out to every sink. One failing sink does not stop
// the others; the first error is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

func (r *Router) Paint(ctx context.Context, tabID string, m mode.Mode) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Paint(ctx, tabID, m); err != nil {
			r.logger.Warn("indicator: paint failed", "tab", tabID, "mode", m, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
