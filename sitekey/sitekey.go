// Package sitekey derives the canonical per-site identity used to scope
// stored preferences and marker cookies.
//
// A key is scheme + "//" + host, e.g. "https://example.com". Port, path,
// query and fragment do not take part: every page of a host shares state.
package sitekey

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// ErrIneligible is returned for URLs that are not http(s) pages.
var ErrIneligible = errors.New("sitekey: not an http(s) url")

// Eligible reports whether pageURL is an http or https URL with a host.
func Eligible(pageURL string) bool {
	_, err := Key(pageURL)
	return err == nil
}

// Key returns the site key for pageURL.
func Key(pageURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIneligible, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", ErrIneligible, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("%w: missing host", ErrIneligible)
	}
	return scheme + "://" + canonicalHost(host), nil
}

// CookieURL is the URL handed to cookie capabilities for a site key.
func CookieURL(key string) string {
	return key + "/"
}

// canonicalHost lowercases the host and maps internationalised names to
// their ASCII form, the way browsers report URL.host.
func canonicalHost(host string) string {
	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() == nil {
			return "[" + ip.String() + "]"
		}
		return ip.String()
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return strings.ToLower(host)
	}
	return ascii
}
