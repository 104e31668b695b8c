// CLAUDE:SUMMARY Terminal indicator: one lipgloss-coloured badge line per paint (gray/green/purple).
package indicator

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/hazyhaar/xdswitch/mode"
)

var badgeColours = map[string]lipgloss.Color{
	"gray":   lipgloss.Color("245"),
	"green":  lipgloss.Color("42"),
	"purple": lipgloss.Color("135"),
}

// Term prints a coloured badge per paint, for running the daemon in a
// terminal next to the browser.
type Term struct {
	mu    sync.Mutex
	w     io.Writer
	badge lipgloss.Style
	tab   lipgloss.Style
}

// NewTerm creates a Term sink. If w is nil, os.Stdout is used.
func NewTerm(w io.Writer) *Term {
	if w == nil {
		w = os.Stdout
	}
	return &Term{
		w:     w,
		badge: lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("231")),
		tab:   lipgloss.NewStyle().Faint(true),
	}
}

// Render returns the badge line for a paint without writing it.
func (t *Term) Render(tabID string, m mode.Mode) string {
	style := t.badge.Background(badgeColours[Colour(m)])
	return style.Render(strings.ToUpper(m.String())) + " " + t.tab.Render(tabID)
}

func (t *Term) Paint(_ context.Context, tabID string, m mode.Mode) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintln(t.w, t.Render(tabID, m))
	return err
}

func (t *Term) Close() error { return nil }
