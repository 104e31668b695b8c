package cookies

import (
	"context"
	"fmt"
	"sync"
)

// Call is one recorded jar operation.
type Call struct {
	Op    string // "get", "set", "remove"
	URL   string
	Name  string
	Value string
}

// MemJar is an in-memory Jar that records every call in order. Cookies are
// keyed by URL and name exactly; no domain matching is attempted.
type MemJar struct {
	mu      sync.Mutex
	cookies map[string]string
	calls   []Call

	// Fail, when set, makes every call for the named cookie return an error.
	Fail map[string]error
}

// NewMemJar returns an empty jar.
func NewMemJar() *MemJar {
	return &MemJar{cookies: make(map[string]string)}
}

func jarKey(siteURL, name string) string { return siteURL + "\x00" + name }

// Get implements Reader.
func (j *MemJar) Get(_ context.Context, siteURL, name string) (*Cookie, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, Call{Op: "get", URL: siteURL, Name: name})
	if err := j.Fail[name]; err != nil {
		return nil, err
	}
	v, ok := j.cookies[jarKey(siteURL, name)]
	if !ok {
		return nil, nil
	}
	return &Cookie{Name: name, Value: v}, nil
}

// Set implements Jar.
func (j *MemJar) Set(_ context.Context, siteURL, name, value string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, Call{Op: "set", URL: siteURL, Name: name, Value: value})
	if err := j.Fail[name]; err != nil {
		return fmt.Errorf("memjar: set %s: %w", name, err)
	}
	j.cookies[jarKey(siteURL, name)] = value
	return nil
}

// Remove implements Jar.
func (j *MemJar) Remove(_ context.Context, siteURL, name string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, Call{Op: "remove", URL: siteURL, Name: name})
	if err := j.Fail[name]; err != nil {
		return fmt.Errorf("memjar: remove %s: %w", name, err)
	}
	delete(j.cookies, jarKey(siteURL, name))
	return nil
}

// Put seeds a cookie without recording a call.
func (j *MemJar) Put(siteURL, name, value string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cookies[jarKey(siteURL, name)] = value
}

// Value returns the stored value and whether the cookie exists.
func (j *MemJar) Value(siteURL, name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	v, ok := j.cookies[jarKey(siteURL, name)]
	return v, ok
}

// Calls returns a copy of the recorded calls.
func (j *MemJar) Calls() []Call {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Call(nil), j.calls...)
}

// Mutations counts recorded set and remove calls.
func (j *MemJar) Mutations() int {
	n := 0
	for _, c := range j.Calls() {
		if c.Op != "get" {
			n++
		}
	}
	return n
}
