package indicator

import (
	"context"
	"sync"

	"github.com/hazyhaar/xdswitch/mode"
)

// Recorder keeps every paint in order. Err, when set, is returned by Paint
// after recording.
type Recorder struct {
	mu     sync.Mutex
	paints []Paint
	Err    error
}

func (r *Recorder) Paint(_ context.Context, tabID string, m mode.Mode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paints = append(r.paints, newPaint(tabID, m))
	return r.Err
}

func (r *Recorder) Close() error { return nil }

// Paints returns a copy of the recorded paints.
func (r *Recorder) Paints() []Paint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Paint(nil), r.paints...)
}

// Modes returns the painted modes in order.
func (r *Recorder) Modes() []mode.Mode {
	var out []mode.Mode
	for _, p := range r.Paints() {
		out = append(out, p.Mode)
	}
	return out
}

// Last returns the most recent paint for tabID.
func (r *Recorder) Last(tabID string) (mode.Mode, bool) {
	paints := r.Paints()
	for i := len(paints) - 1; i >= 0; i-- {
		if paints[i].TabID == tabID {
			return paints[i].Mode, true
		}
	}
	return mode.Off, false
}
