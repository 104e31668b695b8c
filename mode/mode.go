// CLAUDE:SUMMARY Xdebug mode tag (off/debug/profile), marker cookie names and the fixed profile>debug>off precedence.
// Package mode defines the per-site Xdebug mode and the marker cookies that
// signal it to the remote site.
package mode

import (
	"errors"
	"fmt"
	"strings"
)

// Mode is the Xdebug activation state of a site. The zero value is Off.
type Mode int

const (
	Off Mode = iota
	Debug
	Profile
)

// Marker cookies and the value that makes them active.
const (
	DebugCookie   = "XDEBUG_SESSION"
	ProfileCookie = "XDEBUG_PROFILE"
	MarkerValue   = "1"
)

// ErrUnknown is returned by Parse for anything but off, debug or profile.
var ErrUnknown = errors.New("mode: unknown mode")

// All lists every mode in display order.
var All = []Mode{Off, Debug, Profile}

func (m Mode) String() string {
	switch m {
	case Debug:
		return "debug"
	case Profile:
		return "profile"
	default:
		return "off"
	}
}

// Valid reports whether m is one of the three known modes.
func (m Mode) Valid() bool {
	return m >= Off && m <= Profile
}

// Parse converts the string form back into a Mode.
func Parse(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return Off, nil
	case "debug":
		return Debug, nil
	case "profile":
		return Profile, nil
	}
	return Off, fmt.Errorf("%w: %q", ErrUnknown, s)
}

// MarshalText encodes the mode as its string form.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes the string form.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// FromMarkers resolves the two marker presences into a mode. Profile beats
// debug, debug beats absence. The order is fixed.
func FromMarkers(debug, profile bool) Mode {
	switch {
	case profile:
		return Profile
	case debug:
		return Debug
	default:
		return Off
	}
}

// Marker returns the cookie that activates m. Off has none.
func Marker(m Mode) (string, bool) {
	switch m {
	case Debug:
		return DebugCookie, true
	case Profile:
		return ProfileCookie, true
	}
	return "", false
}

// IsActive reports whether a marker cookie value counts as set.
func IsActive(value string) bool {
	return value == MarkerValue
}
