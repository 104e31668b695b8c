package sitekey

import (
	"errors"
	"testing"
)

func TestKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/path?q=1#frag", "https://example.com"},
		{"http://example.com", "http://example.com"},
		{"HTTPS://Example.COM/", "https://example.com"},
		{"https://example.com:8443/admin", "https://example.com"},
		{"https://user:pw@shop.example.com/", "https://shop.example.com"},
		{"https://bücher.example/", "https://xn--bcher-kva.example"},
		{"http://127.0.0.1:8080/", "http://127.0.0.1"},
		{"http://[::1]:8080/", "http://[::1]"},
	}
	for _, tt := range tests {
		got, err := Key(tt.in)
		if err != nil {
			t.Fatalf("Key(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKey_SameHostSharesKey(t *testing.T) {
	a, _ := Key("https://example.com/a")
	b, _ := Key("https://example.com:444/b?x=y")
	if a != b {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}
}

func TestKey_Ineligible(t *testing.T) {
	for _, in := range []string{
		"ftp://x",
		"chrome://settings",
		"about:blank",
		"file:///etc/hosts",
		"",
		"https://",
		"://bad",
	} {
		if _, err := Key(in); !errors.Is(err, ErrIneligible) {
			t.Errorf("Key(%q): got %v, want ErrIneligible", in, err)
		}
		if Eligible(in) {
			t.Errorf("Eligible(%q) = true", in)
		}
	}
}

func TestCookieURL(t *testing.T) {
	if got := CookieURL("https://example.com"); got != "https://example.com/" {
		t.Fatalf("CookieURL: got %q", got)
	}
}
