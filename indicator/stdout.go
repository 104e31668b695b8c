package indicator

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/hazyhaar/xdswitch/mode"
)

// Stdout writes one JSON line per paint to an io.Writer.
type Stdout struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdout creates a Stdout sink. If w is nil, os.Stdout is used.
func NewStdout(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{enc: json.NewEncoder(w)}
}

func (s *Stdout) Paint(_ context.Context, tabID string, m mode.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(newPaint(tabID, m))
}

func (s *Stdout) Close() error { return nil }
