// CLAUDE:SUMMARY EventRouter: maps tab activated/loading/complete events to stale-then-corrected indicator paints.
// Package tabrouter decides, for each tab lifecycle event, what to paint
// and when to reconcile.
//
// The router keeps no per-tab state: every event is handled on its own
// from the URL it carries (or a fresh lookup). Events for the same tab may
// race; the last paint wins.
package tabrouter

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hazyhaar/xdswitch/cookies"
	"github.com/hazyhaar/xdswitch/indicator"
	"github.com/hazyhaar/xdswitch/mode"
	"github.com/hazyhaar/xdswitch/prefstore"
	"github.com/hazyhaar/xdswitch/reconcile"
	"github.com/hazyhaar/xdswitch/sitekey"
)

// Phase is where a tab stands after an event.
type Phase int

const (
	Idle Phase = iota
	Loading
	Settled
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Settled:
		return "settled"
	default:
		return "idle"
	}
}

// Navigation statuses carried by Updated events.
const (
	StatusLoading  = "loading"
	StatusComplete = "complete"
)

// Event is a tab lifecycle event.
type Event interface {
	Tab() string
}

// Activated is sent when a tab becomes the active one.
type Activated struct {
	TabID string
}

// Updated is sent when a tab's navigation status changes.
type Updated struct {
	TabID  string
	Status string
	URL    string
}

func (e Activated) Tab() string { return e.TabID }
func (e Updated) Tab() string   { return e.TabID }

// Tabs looks up the page currently loaded in a tab.
type Tabs interface {
	URL(ctx context.Context, tabID string) (string, error)
}

// Reconciler is the part of reconcile.Reconciler the router needs.
type Reconciler interface {
	Reconcile(ctx context.Context, siteKey string) (reconcile.Result, error)
}

// Router handles tab events.
type Router struct {
	tabs   Tabs
	store  prefstore.Store
	rec    Reconciler
	sink   indicator.Sink
	logger *slog.Logger
}

// New creates a Router.
func New(tabs Tabs, store prefstore.Store, rec Reconciler, sink indicator.Sink, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{tabs: tabs, store: store, rec: rec, sink: sink, logger: logger}
}

// Handle processes one event and returns the phase it leaves the tab in.
func (r *Router) Handle(ctx context.Context, ev Event) Phase {
	switch e := ev.(type) {
	case Activated:
		u, err := r.tabs.URL(ctx, e.TabID)
		if err != nil || u == "" {
			r.logger.Debug("tabrouter: no url for activated tab", "tab", e.TabID, "error", err)
			return Idle
		}
		r.Refresh(ctx, e.TabID, u)
		return Settled

	case Updated:
		if e.URL == "" {
			return Idle
		}
		switch e.Status {
		case StatusLoading:
			r.paintStored(ctx, e.TabID, e.URL)
			return Loading
		case StatusComplete:
			r.Refresh(ctx, e.TabID, e.URL)
			return Settled
		}
	}
	return Idle
}

// Refresh paints the stored mode right away, then reconciles and repaints
// if the pass corrected drift. Non-http(s) pages are painted Off and never
// reconciled.
func (r *Router) Refresh(ctx context.Context, tabID, pageURL string) {
	site, err := sitekey.Key(pageURL)
	if err != nil {
		r.paint(ctx, tabID, mode.Off)
		return
	}

	r.paint(ctx, tabID, r.stored(ctx, site))

	res, err := r.rec.Reconcile(ctx, site)
	switch {
	case errors.Is(err, reconcile.ErrSuperseded):
		r.logger.Debug("tabrouter: reconcile superseded", "tab", tabID, "site", site)
	case errors.Is(err, cookies.ErrLookup):
		r.logger.Debug("tabrouter: cookie lookup failed", "tab", tabID, "site", site, "error", err)
		r.paint(ctx, tabID, mode.Off)
	case err != nil:
		r.logger.Warn("tabrouter: reconcile failed", "tab", tabID, "site", site, "error", err)
		if res.Corrected {
			r.paint(ctx, tabID, res.Mode)
		}
	case res.Corrected:
		r.paint(ctx, tabID, res.Mode)
	}
}

func (r *Router) paintStored(ctx context.Context, tabID, pageURL string) {
	site, err := sitekey.Key(pageURL)
	if err != nil {
		r.paint(ctx, tabID, mode.Off)
		return
	}
	r.paint(ctx, tabID, r.stored(ctx, site))
}

func (r *Router) stored(ctx context.Context, site string) mode.Mode {
	m, err := r.store.Get(ctx, site)
	if err != nil {
		r.logger.Debug("tabrouter: read stored mode failed", "site", site, "error", err)
		return prefstore.DefaultMode
	}
	return m
}

func (r *Router) paint(ctx context.Context, tabID string, m mode.Mode) {
	if err := r.sink.Paint(ctx, tabID, m); err != nil {
		r.logger.Debug("tabrouter: paint failed", "tab", tabID, "mode", m, "error", err)
	}
}
