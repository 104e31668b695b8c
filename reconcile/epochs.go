package reconcile

import "sync"

// Epochs counts mode changes per site. The mode writer bumps a site before
// touching its cookies; a reconcile pass that sees the count move skips its
// corrective write. A nil *Epochs disables the guard.
type Epochs struct {
	mu sync.Mutex
	n  map[string]uint64
}

// NewEpochs returns an empty counter set.
func NewEpochs() *Epochs {
	return &Epochs{n: make(map[string]uint64)}
}

// Bump advances the epoch of site.
func (e *Epochs) Bump(site string) {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.n[site]++
	e.mu.Unlock()
}

// Current returns the epoch of site.
func (e *Epochs) Current(site string) uint64 {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.n[site]
}
