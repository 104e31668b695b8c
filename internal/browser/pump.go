// CLAUDE:SUMMARY Turns CDP target/page events into tab lifecycle events (activated, loading, complete).
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/xdswitch/tabrouter"
)

// Handler receives tab events. The pump calls it on a fresh goroutine per
// event: events are independent and may overlap.
type Handler func(ctx context.Context, ev tabrouter.Event)

// Pump translates CDP events into tabrouter events:
//
//	Target.targetCreated (page)      -> Activated
//	Page.frameStartedLoading (main)  -> Updated{loading}
//	Page.loadEventFired              -> Updated{complete}
type Pump struct {
	mgr     *Manager
	tabs    *Tabs
	handler Handler
	logger  *slog.Logger

	mu       sync.Mutex
	attached map[proto.TargetTargetID]context.CancelFunc
	wg       sync.WaitGroup
}

// NewPump creates a Pump delivering to h.
func NewPump(mgr *Manager, h Handler, logger *slog.Logger) *Pump {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pump{
		mgr:      mgr,
		tabs:     NewTabs(mgr),
		handler:  h,
		logger:   logger,
		attached: make(map[proto.TargetTargetID]context.CancelFunc),
	}
}

// Run watches targets until ctx is done. Pages already open are attached
// and reported as activated once.
func (p *Pump) Run(ctx context.Context) error {
	b := p.mgr.Browser()
	if b == nil {
		return fmt.Errorf("browser: no active browser")
	}
	b = b.Context(ctx)

	wait := b.EachEvent(
		func(e *proto.TargetTargetCreated) {
			if p.isTab(e.TargetInfo) {
				p.attach(ctx, e.TargetInfo.TargetID)
				p.emit(ctx, tabrouter.Activated{TabID: string(e.TargetInfo.TargetID)})
			}
		},
		func(e *proto.TargetTargetDestroyed) {
			p.detach(e.TargetID)
		},
	)

	if err := (proto.TargetSetDiscoverTargets{Discover: true}).Call(b); err != nil {
		return fmt.Errorf("browser: discover targets: %w", err)
	}

	existing, err := p.tabs.List(ctx)
	if err != nil {
		p.logger.Warn("browser: list existing tabs failed", "error", err)
	}
	for _, t := range existing {
		p.attach(ctx, proto.TargetTargetID(t.ID))
		p.emit(ctx, tabrouter.Activated{TabID: t.ID})
	}

	p.logger.Info("browser: event pump started", "tabs", len(existing))
	wait()

	p.mu.Lock()
	for id, cancel := range p.attached {
		cancel()
		delete(p.attached, id)
	}
	p.mu.Unlock()
	p.wg.Wait()
	p.logger.Info("browser: event pump stopped")
	return ctx.Err()
}

// Activate brings a tab to the front and reports it as activated. CDP has
// no tab-switch event, so activation through xdswitch is the reliable path.
func (p *Pump) Activate(ctx context.Context, tabID string) error {
	if err := p.tabs.Activate(ctx, tabID); err != nil {
		return err
	}
	p.emit(ctx, tabrouter.Activated{TabID: tabID})
	return nil
}

func (p *Pump) isTab(info *proto.TargetTargetInfo) bool {
	return info != nil && string(info.Type) == "page" && info.TargetID != p.mgr.ControlTarget()
}

func (p *Pump) emit(ctx context.Context, ev tabrouter.Event) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.handler(ctx, ev)
	}()
}

func (p *Pump) attach(ctx context.Context, id proto.TargetTargetID) {
	p.mu.Lock()
	if _, ok := p.attached[id]; ok {
		p.mu.Unlock()
		return
	}
	pageCtx, cancel := context.WithCancel(ctx)
	p.attached[id] = cancel
	p.mu.Unlock()

	b := p.mgr.Browser()
	if b == nil {
		cancel()
		return
	}
	page, err := b.PageFromTarget(id)
	if err != nil {
		p.logger.Debug("browser: attach failed", "tab", id, "error", err)
		p.detach(id)
		return
	}
	page = page.Context(pageCtx)
	tabID := string(id)

	wait := page.EachEvent(
		func(e *proto.PageFrameStartedLoading) {
			if string(e.FrameID) != tabID {
				return
			}
			u, err := p.tabs.URL(pageCtx, tabID)
			if err != nil {
				return
			}
			p.emit(ctx, tabrouter.Updated{TabID: tabID, Status: tabrouter.StatusLoading, URL: u})
		},
		func(e *proto.PageLoadEventFired) {
			u, err := p.tabs.URL(pageCtx, tabID)
			if err != nil {
				return
			}
			p.emit(ctx, tabrouter.Updated{TabID: tabID, Status: tabrouter.StatusComplete, URL: u})
		},
	)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		wait()
	}()
}

func (p *Pump) detach(id proto.TargetTargetID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cancel, ok := p.attached[id]; ok {
		cancel()
		delete(p.attached, id)
	}
}
