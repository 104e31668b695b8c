// CLAUDE:SUMMARY ModeWriter: user-initiated mode switch. Clear markers, set marker, paint, persist, reload, in that order.
// Package modewriter applies a mode chosen by the user to a tab's site.
//
// Apply is an ordered, best-effort transaction. The browser offers no
// atomic multi-cookie write, so a failed step is logged and the remaining
// steps still run; every failure is returned joined at the end.
package modewriter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/xdswitch/cookies"
	"github.com/hazyhaar/xdswitch/indicator"
	"github.com/hazyhaar/xdswitch/mode"
	"github.com/hazyhaar/xdswitch/prefstore"
	"github.com/hazyhaar/xdswitch/sitekey"
)

// Reloader reloads the page shown in a tab.
type Reloader interface {
	Reload(ctx context.Context, tabID string) error
}

// Bumper marks a site as changed so in-flight reconcile passes back off.
type Bumper interface {
	Bump(site string)
}

// Recorder receives every applied change. Implementations must not block.
type Recorder interface {
	RecordApply(ctx context.Context, c Change, err error)
}

// Change describes one Apply call that passed the scheme guard.
type Change struct {
	TabID string    `json:"tab_id"`
	Site  string    `json:"site"`
	Mode  mode.Mode `json:"mode"`
}

// Writer performs mode changes.
type Writer struct {
	jar      cookies.Jar
	store    prefstore.Store
	sink     indicator.Sink
	tabs     Reloader
	epochs   Bumper
	recorder Recorder
	logger   *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithEpochs shares the supersession counter with the reconciler.
func WithEpochs(b Bumper) Option { return func(w *Writer) { w.epochs = b } }

// WithRecorder sets a hook called after every applied change.
func WithRecorder(r Recorder) Option { return func(w *Writer) { w.recorder = r } }

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option { return func(w *Writer) { w.logger = l } }

// New creates a Writer.
func New(jar cookies.Jar, store prefstore.Store, sink indicator.Sink, tabs Reloader, opts ...Option) *Writer {
	w := &Writer{jar: jar, store: store, sink: sink, tabs: tabs, logger: slog.Default()}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Apply switches the site of pageURL to m and reloads tabID.
//
// A non-http(s) pageURL returns sitekey.ErrIneligible before any side
// effect. Cookie changes always complete before the reload is requested.
func (w *Writer) Apply(ctx context.Context, tabID, pageURL string, m mode.Mode) error {
	if !m.Valid() {
		return fmt.Errorf("modewriter: %w", mode.ErrUnknown)
	}
	site, err := sitekey.Key(pageURL)
	if err != nil {
		return err
	}
	if w.epochs != nil {
		w.epochs.Bump(site)
	}

	u := sitekey.CookieURL(site)
	var errs []error
	fail := func(step string, err error) {
		w.logger.Warn("modewriter: step failed", "step", step, "site", site, "tab", tabID, "error", err)
		errs = append(errs, fmt.Errorf("modewriter: %s: %w", step, err))
	}

	for _, name := range []string{mode.DebugCookie, mode.ProfileCookie} {
		if err := w.jar.Remove(ctx, u, name); err != nil {
			fail("remove "+name, err)
		}
	}
	if name, ok := mode.Marker(m); ok {
		if err := w.jar.Set(ctx, u, name, mode.MarkerValue); err != nil {
			fail("set "+name, err)
		}
	}

	if err := w.sink.Paint(ctx, tabID, m); err != nil {
		w.logger.Debug("modewriter: paint failed", "tab", tabID, "error", err)
	}

	if err := w.store.Set(ctx, site, m); err != nil {
		fail("persist", err)
	}
	// Second bump: a pass that read the cleared markers and checks its
	// epoch after this point backs off instead of overwriting m.
	if w.epochs != nil {
		w.epochs.Bump(site)
	}

	if err := w.tabs.Reload(ctx, tabID); err != nil {
		fail("reload", err)
	}

	err = errors.Join(errs...)
	if w.recorder != nil {
		w.recorder.RecordApply(ctx, Change{TabID: tabID, Site: site, Mode: m}, err)
	}
	w.logger.Info("modewriter: applied", "site", site, "tab", tabID, "mode", m, "failures", len(errs))
	return err
}
