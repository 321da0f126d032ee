package render

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/glamour"
)

const (
	minWrap = 20
	maxWrap = 120
)

// Terminal renders markdown to ANSI text with glamour. The renderer is
// rebuilt only when the wrap width changes noticeably.
type Terminal struct {
	mu       sync.Mutex
	style    string
	wrap     int
	renderer *glamour.TermRenderer
	built    int
}

// NewTerminal uses a glamour standard style name, or "auto" to follow the
// terminal background.
func NewTerminal(style string, wrap int) *Terminal {
	if style == "" {
		style = "auto"
	}
	return &Terminal{style: style, wrap: clampWrap(wrap)}
}

func clampWrap(w int) int {
	if w < minWrap {
		return minWrap
	}
	if w > maxWrap {
		return maxWrap
	}
	return w
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// SetWidth adapts the wrap width to a viewport width.
func (t *Terminal) SetWidth(width int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.wrap = clampWrap(width - 4)
}

func (t *Terminal) get() (*glamour.TermRenderer, error) {
	if t.renderer != nil && abs(t.built-t.wrap) <= 10 {
		return t.renderer, nil
	}

	styleOpt := glamour.WithStandardStyle(t.style)
	if t.style == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(
		styleOpt,
		glamour.WithWordWrap(t.wrap),
	)
	if err != nil {
		return nil, fmt.Errorf("creating markdown renderer: %w", err)
	}
	t.renderer = r
	t.built = t.wrap
	return r, nil
}

func (t *Terminal) Render(markdown string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, err := t.get()
	if err != nil {
		return "", err
	}
	return r.Render(markdown)
}
