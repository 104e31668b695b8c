package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// TabInfo describes an open page target.
type TabInfo struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Tabs exposes Chrome page targets as tabs addressed by target ID.
type Tabs struct {
	mgr *Manager
}

// NewTabs returns the tab capability for mgr.
func NewTabs(mgr *Manager) *Tabs {
	return &Tabs{mgr: mgr}
}

func (t *Tabs) page(ctx context.Context, tabID string) (*rod.Page, error) {
	b := t.mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}
	p, err := b.PageFromTarget(proto.TargetTargetID(tabID))
	if err != nil {
		return nil, fmt.Errorf("browser: tab %s: %w", tabID, err)
	}
	return p.Context(ctx), nil
}

// URL returns the URL currently loaded in tabID.
func (t *Tabs) URL(ctx context.Context, tabID string) (string, error) {
	p, err := t.page(ctx, tabID)
	if err != nil {
		return "", err
	}
	info, err := p.Info()
	if err != nil {
		return "", fmt.Errorf("browser: tab %s info: %w", tabID, err)
	}
	return info.URL, nil
}

// Reload reloads the page in tabID.
func (t *Tabs) Reload(ctx context.Context, tabID string) error {
	p, err := t.page(ctx, tabID)
	if err != nil {
		return err
	}
	if err := p.Reload(); err != nil {
		return fmt.Errorf("browser: reload %s: %w", tabID, err)
	}
	return nil
}

// Activate brings tabID to the front.
func (t *Tabs) Activate(ctx context.Context, tabID string) error {
	p, err := t.page(ctx, tabID)
	if err != nil {
		return err
	}
	if _, err := p.Activate(); err != nil {
		return fmt.Errorf("browser: activate %s: %w", tabID, err)
	}
	return nil
}

// Open creates a new stealth tab and navigates it to pageURL.
func (t *Tabs) Open(ctx context.Context, pageURL string) (string, error) {
	b := t.mgr.Browser()
	if b == nil {
		return "", fmt.Errorf("browser: no active browser")
	}
	p, err := stealth.Page(b)
	if err != nil {
		return "", fmt.Errorf("browser: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := p.Context(navCtx).Navigate(pageURL); err != nil {
		p.Close()
		return "", fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	return string(p.TargetID), nil
}

// List returns every page target except the control page.
func (t *Tabs) List(ctx context.Context) ([]TabInfo, error) {
	b := t.mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}
	res, err := proto.TargetGetTargets{}.Call(b.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("browser: list targets: %w", err)
	}
	ctl := t.mgr.ControlTarget()
	var out []TabInfo
	for _, info := range res.TargetInfos {
		if string(info.Type) != "page" || info.TargetID == ctl {
			continue
		}
		out = append(out, TabInfo{ID: string(info.TargetID), URL: info.URL, Title: info.Title})
	}
	return out, nil
}
