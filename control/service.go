// CLAUDE:SUMMARY Control service behind the HTTP API and MCP tools: apply a mode to a tab, report site status, force a reconcile, list, open and activate tabs.
// Package control exposes the user-triggered operations of xdswitch. The
// service is transport-neutral; http.go and mcp.go adapt it.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/xdswitch/cookies"
	"github.com/hazyhaar/xdswitch/indicator"
	"github.com/hazyhaar/xdswitch/internal/browser"
	"github.com/hazyhaar/xdswitch/journal"
	"github.com/hazyhaar/xdswitch/mode"
	"github.com/hazyhaar/xdswitch/prefstore"
	"github.com/hazyhaar/xdswitch/reconcile"
	"github.com/hazyhaar/xdswitch/sitekey"
)

var (
	// ErrTab is returned when a tab cannot be resolved to a URL.
	ErrTab = errors.New("control: tab not found")

	// ErrInvalid is returned for malformed requests.
	ErrInvalid = errors.New("control: invalid request")
)

// Tabs is what the service needs from the browser.
type Tabs interface {
	URL(ctx context.Context, tabID string) (string, error)
	List(ctx context.Context) ([]browser.TabInfo, error)
	Open(ctx context.Context, pageURL string) (string, error)
}

// Activator brings a tab to the front and reports it as activated, so the
// indicator is refreshed for it.
type Activator interface {
	Activate(ctx context.Context, tabID string) error
}

// Writer applies a mode change.
type Writer interface {
	Apply(ctx context.Context, tabID, pageURL string, m mode.Mode) error
}

// Reconciler runs one reconcile pass.
type Reconciler interface {
	Reconcile(ctx context.Context, siteKey string) (reconcile.Result, error)
}

// Detector reads the mode from the marker cookies without touching them.
type Detector interface {
	Detect(ctx context.Context, siteKey string) (mode.Mode, error)
}

// History lists recent journal entries.
type History interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Service wires the control operations. Journal, Sink and Activator may
// be nil.
type Service struct {
	Tabs       Tabs
	Activator  Activator
	Writer     Writer
	Reconciler Reconciler
	Detector   Detector
	Store      prefstore.Store
	Journal    History
	Sink       indicator.Sink
	Logger     *slog.Logger
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// ApplyResult reports what Apply did.
type ApplyResult struct {
	TabID   string    `json:"tab_id"`
	URL     string    `json:"url"`
	Site    string    `json:"site,omitempty"`
	Mode    mode.Mode `json:"mode"`
	Applied bool      `json:"applied"`
	Reason  string    `json:"reason,omitempty"`

	// Warnings lists best-effort steps that failed. The change is still
	// applied: whatever succeeded stays, and the next reconcile pass
	// repairs the rest.
	Warnings []string `json:"warnings,omitempty"`
}

// ReconcileResult is the outcome of a forced reconcile pass.
type ReconcileResult struct {
	reconcile.Result
	Superseded bool     `json:"superseded,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// StatusResult is the state of one site.
type StatusResult struct {
	URL      string    `json:"url"`
	Site     string    `json:"site,omitempty"`
	Eligible bool      `json:"eligible"`
	Stored   mode.Mode `json:"stored"`
	Observed mode.Mode `json:"observed"`
	InSync   bool      `json:"in_sync"`
	Error    string    `json:"error,omitempty"`
}

// TabView is a tab with the stored mode of its site.
type TabView struct {
	browser.TabInfo
	Site string    `json:"site,omitempty"`
	Mode mode.Mode `json:"mode"`
}

func (s *Service) tabURL(ctx context.Context, tabID string) (string, error) {
	if tabID == "" {
		return "", fmt.Errorf("%w: tab_id is required", ErrInvalid)
	}
	u, err := s.Tabs.URL(ctx, tabID)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTab, tabID, err)
	}
	return u, nil
}

// Apply switches the site shown in tabID to the named mode. Pages that are
// not http(s) are left alone and reported as not applied.
func (s *Service) Apply(ctx context.Context, tabID, modeName string) (*ApplyResult, error) {
	m, err := mode.Parse(modeName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	u, err := s.tabURL(ctx, tabID)
	if err != nil {
		return nil, err
	}

	res := &ApplyResult{TabID: tabID, URL: u, Mode: m}
	site, err := sitekey.Key(u)
	if err != nil {
		res.Reason = "page is not http(s)"
		return res, nil
	}
	res.Site = site

	res.Applied = true
	if err := s.Writer.Apply(ctx, tabID, u, m); err != nil {
		s.logger().Warn("control: apply degraded", "site", site, "tab", tabID, "mode", m, "error", err)
		res.Warnings = warnings(err)
	}
	return res, nil
}

// warnings flattens a joined error into one message per failed step.
func warnings(err error) []string {
	var out []string
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range j.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

// Status reports the stored and observed mode for the site of pageURL.
// Nothing is written.
func (s *Service) Status(ctx context.Context, pageURL string) (*StatusResult, error) {
	if pageURL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalid)
	}
	res := &StatusResult{URL: pageURL}
	site, err := sitekey.Key(pageURL)
	if err != nil {
		res.InSync = true
		return res, nil
	}
	res.Site = site
	res.Eligible = true

	res.Stored, err = s.Store.Get(ctx, site)
	if err != nil {
		s.logger().Warn("control: read stored mode failed", "site", site, "error", err)
		res.Stored = prefstore.DefaultMode
	}

	res.Observed, err = s.Detector.Detect(ctx, site)
	if err != nil {
		res.Error = err.Error()
		res.Observed = mode.Off
	}
	res.InSync = err == nil && res.Stored == res.Observed
	return res, nil
}

// Reconcile forces a reconcile pass for the site shown in tabID and
// repaints the indicator with the outcome. A pass overtaken by a mode change
// and a failed corrective write are reported in the result, not as errors.
func (s *Service) Reconcile(ctx context.Context, tabID string) (*ReconcileResult, error) {
	u, err := s.tabURL(ctx, tabID)
	if err != nil {
		return nil, err
	}
	site, err := sitekey.Key(u)
	if err != nil {
		s.paint(ctx, tabID, mode.Off)
		return &ReconcileResult{}, nil
	}

	res, err := s.Reconciler.Reconcile(ctx, site)
	out := &ReconcileResult{Result: res}
	switch {
	case errors.Is(err, reconcile.ErrSuperseded):
		out.Superseded = true
		return out, nil
	case errors.Is(err, cookies.ErrLookup):
		s.paint(ctx, tabID, mode.Off)
		return nil, err
	case errors.Is(err, reconcile.ErrPersist):
		out.Warnings = []string{err.Error()}
	case err != nil:
		return nil, err
	}
	s.paint(ctx, tabID, res.Mode)
	return out, nil
}

// Activate brings tabID to the front. The activation is routed like a
// browser tab switch, so the indicator is refreshed for the tab's site.
func (s *Service) Activate(ctx context.Context, tabID string) (*TabView, error) {
	u, err := s.tabURL(ctx, tabID)
	if err != nil {
		return nil, err
	}
	if s.Activator == nil {
		return nil, errors.New("control: tab activation is not available")
	}
	if err := s.Activator.Activate(ctx, tabID); err != nil {
		return nil, fmt.Errorf("control: activate %s: %w", tabID, err)
	}
	return s.view(ctx, browser.TabInfo{ID: tabID, URL: u}), nil
}

// Open opens pageURL in a new tab. The browser reports the new tab as
// created, which paints its indicator.
func (s *Service) Open(ctx context.Context, pageURL string) (*TabView, error) {
	if pageURL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalid)
	}
	if !sitekey.Eligible(pageURL) {
		return nil, fmt.Errorf("%w: %s is not an http(s) url", ErrInvalid, pageURL)
	}
	id, err := s.Tabs.Open(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("control: open %s: %w", pageURL, err)
	}
	return s.view(ctx, browser.TabInfo{ID: id, URL: pageURL}), nil
}

func (s *Service) view(ctx context.Context, t browser.TabInfo) *TabView {
	v := &TabView{TabInfo: t, Mode: mode.Off}
	if site, err := sitekey.Key(t.URL); err == nil {
		v.Site = site
		if m, err := s.Store.Get(ctx, site); err == nil {
			v.Mode = m
		}
	}
	return v
}

// List returns the open tabs with the stored mode of their site.
func (s *Service) List(ctx context.Context) ([]TabView, error) {
	tabs, err := s.Tabs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("control: list tabs: %w", err)
	}
	out := make([]TabView, 0, len(tabs))
	for _, t := range tabs {
		out = append(out, *s.view(ctx, t))
	}
	return out, nil
}

// History returns the most recent journal entries.
func (s *Service) History(ctx context.Context, limit int) ([]journal.Entry, error) {
	if s.Journal == nil {
		return []journal.Entry{}, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.Journal.Recent(ctx, limit)
}

func (s *Service) paint(ctx context.Context, tabID string, m mode.Mode) {
	if s.Sink == nil {
		return
	}
	if err := s.Sink.Paint(ctx, tabID, m); err != nil {
		s.logger().Debug("control: paint failed", "tab", tabID, "error", err)
	}
}
