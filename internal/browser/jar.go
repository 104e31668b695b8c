package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/xdswitch/cookies"
)

// Jar implements cookies.Jar through the Network domain of the control
// page. Cookies live in the browser context, so any page sees the same jar.
type Jar struct {
	mgr *Manager
}

// NewJar returns the cookie capability for mgr.
func NewJar(mgr *Manager) *Jar {
	return &Jar{mgr: mgr}
}

// Get returns the named cookie sent to siteURL, or nil.
func (j *Jar) Get(ctx context.Context, siteURL, name string) (*cookies.Cookie, error) {
	p := j.mgr.ControlPage()
	if p == nil {
		return nil, fmt.Errorf("browser: no control page")
	}
	res, err := proto.NetworkGetCookies{Urls: []string{siteURL}}.Call(p.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("browser: get cookies %s: %w", siteURL, err)
	}
	for _, c := range res.Cookies {
		if c.Name == name {
			return &cookies.Cookie{Name: c.Name, Value: c.Value}, nil
		}
	}
	return nil, nil
}

// Set writes a session cookie for siteURL.
func (j *Jar) Set(ctx context.Context, siteURL, name, value string) error {
	p := j.mgr.ControlPage()
	if p == nil {
		return fmt.Errorf("browser: no control page")
	}
	_, err := proto.NetworkSetCookie{Name: name, Value: value, URL: siteURL}.Call(p.Context(ctx))
	if err != nil {
		return fmt.Errorf("browser: set cookie %s on %s: %w", name, siteURL, err)
	}
	return nil
}

// Remove deletes the named cookie for siteURL.
func (j *Jar) Remove(ctx context.Context, siteURL, name string) error {
	p := j.mgr.ControlPage()
	if p == nil {
		return fmt.Errorf("browser: no control page")
	}
	if err := (proto.NetworkDeleteCookies{Name: name, URL: siteURL}).Call(p.Context(ctx)); err != nil {
		return fmt.Errorf("browser: remove cookie %s on %s: %w", name, siteURL, err)
	}
	return nil
}
