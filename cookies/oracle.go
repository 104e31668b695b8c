// CLAUDE:SUMMARY CookieOracle: derives the mode in effect from the XDEBUG marker cookies (profile first, then debug).
// Package cookies reads the live marker cookies of a site and derives the
// mode actually in effect.
package cookies

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/xdswitch/mode"
	"github.com/hazyhaar/xdswitch/sitekey"
)

// ErrLookup wraps any failure to read a marker cookie.
var ErrLookup = errors.New("cookies: lookup failed")

// Cookie is a name/value pair as seen by the browser.
type Cookie struct {
	Name  string
	Value string
}

// Reader is the read half of a cookie jar.
type Reader interface {
	// Get returns the named cookie visible to siteURL, or nil when absent.
	Get(ctx context.Context, siteURL, name string) (*Cookie, error)
}

// Jar is the full cookie capability. Only the mode writer holds one.
type Jar interface {
	Reader
	Set(ctx context.Context, siteURL, name, value string) error
	Remove(ctx context.Context, siteURL, name string) error
}

// Oracle derives the observed mode of a site. It only ever reads.
type Oracle struct {
	r Reader
}

// NewOracle returns an Oracle reading through r.
func NewOracle(r Reader) *Oracle {
	return &Oracle{r: r}
}

// Detect checks the profile marker, then the debug marker. Off when
// neither is active. On a lookup failure it returns Off and an error
// wrapping ErrLookup.
func (o *Oracle) Detect(ctx context.Context, siteKey string) (mode.Mode, error) {
	u := sitekey.CookieURL(siteKey)

	prof, err := o.r.Get(ctx, u, mode.ProfileCookie)
	if err != nil {
		return mode.Off, fmt.Errorf("%w: %s %s: %v", ErrLookup, siteKey, mode.ProfileCookie, err)
	}
	if prof != nil && mode.IsActive(prof.Value) {
		return mode.Profile, nil
	}

	dbg, err := o.r.Get(ctx, u, mode.DebugCookie)
	if err != nil {
		return mode.Off, fmt.Errorf("%w: %s %s: %v", ErrLookup, siteKey, mode.DebugCookie, err)
	}
	return mode.FromMarkers(dbg != nil && mode.IsActive(dbg.Value), false), nil
}
