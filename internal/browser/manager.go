// CLAUDE:SUMMARY Chrome lifecycle for xdswitch: launch locally or attach to a remote DevTools URL, own the cookie control page.
// Package browser backs the xdswitch capabilities with a Chrome instance
// driven over the DevTools protocol through Rod: tab lookup and reload,
// cookie jar, and the tab lifecycle event pump.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the WebSocket DevTools URL of a running Chrome.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Headless launches the local Chrome without a window. The mode
	// switch is mostly used on a visible browser, so default is false.
	Headless bool

	// Bin overrides the Chrome binary path for local launches.
	Bin string

	// UserDataDir keeps the local profile (and its cookies) between runs.
	UserDataDir string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns the connection to Chrome.
type Manager struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	control *rod.Page
	closed  bool
}

// NewManager creates a Manager. Call Start to connect.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches or connects to Chrome and opens the hidden control page
// used for cookie calls.
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}

	b, err := m.launch(ctx)
	if err != nil {
		return nil, err
	}

	ctl, err := b.Page(proto.TargetCreateTarget{URL: "about:blank", Background: true})
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("browser: control page: %w", err)
	}

	m.browser = b
	m.control = ctl
	return b, nil
}

// Browser returns the current Rod browser handle.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// ControlPage returns the page used for cookie calls.
func (m *Manager) ControlPage() *rod.Page {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.control
}

// ControlTarget is the target ID of the control page, so event consumers
// can skip it.
func (m *Manager) ControlTarget() proto.TargetTargetID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.control == nil {
		return ""
	}
	return m.control.TargetID
}

// Close closes the control page and, for a local launch, Chrome itself.
// A remote Chrome is left running.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true

	if m.control != nil {
		m.control.Close()
		m.control = nil
	}
	if m.lnch != nil {
		if m.browser != nil {
			m.browser.Close()
		}
		m.lnch.Cleanup()
		m.lnch = nil
	}
	m.browser = nil
	return nil
}

func (m *Manager) launch(ctx context.Context) (*rod.Browser, error) {
	log := m.cfg.Logger

	var wsURL string
	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Headless(m.cfg.Headless).Leakless(true)
		if m.cfg.Bin != "" {
			l = l.Bin(m.cfg.Bin)
		}
		if m.cfg.UserDataDir != "" {
			l = l.UserDataDir(m.cfg.UserDataDir)
		}
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "headless", m.cfg.Headless)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	return b, nil
}
