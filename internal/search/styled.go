package search

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// span is a run of either escape sequences or visible text inside styled
// output. at is the offset of a visible run in the stripped text.
type span struct {
	from, to int
	esc      bool
	at       int
}

func isEscape(seq string) bool {
	c := seq[0]
	return c == ansi.ESC || (c >= 0x80 && c <= 0x9f)
}

// splitStyled cuts text into escape and visible runs and returns the
// visible text on its own.
func splitStyled(text string) ([]span, string) {
	var spans []span
	var visible strings.Builder
	var state byte
	for i := 0; i < len(text); {
		seq, _, n, newState := ansi.DecodeSequence(text[i:], state, nil)
		state = newState
		if n <= 0 {
			n = 1
			seq = text[i : i+1]
		}
		esc := isEscape(seq)
		if k := len(spans); k > 0 && spans[k-1].esc == esc {
			spans[k-1].to = i + n
		} else {
			spans = append(spans, span{from: i, to: i + n, esc: esc, at: visible.Len()})
		}
		if !esc {
			visible.WriteString(seq)
		}
		i += n
	}
	return spans, visible.String()
}

// HighlightStyled is Highlight for terminal output carrying ANSI escape
// sequences. Matching runs on the visible text, escape sequences are
// copied through intact, and a match crossing them is marked piece by
// piece. After a mark the preceding styling is reapplied. The returned
// ranges index the visible text.
func HighlightStyled(text, query string, m Marker) (string, []Range) {
	spans, visible := splitStyled(text)
	ranges := FindAll(visible, query)
	if len(ranges) == 0 {
		return text, nil
	}

	var b strings.Builder
	b.Grow(len(text) + len(ranges)*32)
	style := ""
	next := 0
	for _, s := range spans {
		chunk := text[s.from:s.to]
		if s.esc {
			b.WriteString(chunk)
			style = chunk
			continue
		}

		pos := 0
		for pos < len(chunk) {
			for next < len(ranges) && ranges[next].End <= s.at+pos {
				next++
			}
			if next == len(ranges) || ranges[next].Start >= s.at+len(chunk) {
				b.WriteString(chunk[pos:])
				break
			}
			r := ranges[next]
			if start := r.Start - s.at; start > pos {
				b.WriteString(chunk[pos:start])
				pos = start
			}
			end := min(r.End-s.at, len(chunk))
			b.WriteString(m.Mark(chunk[pos:end]))
			if end < len(chunk) {
				b.WriteString(style)
			}
			pos = end
		}
	}
	return b.String(), ranges
}

// VisibleText strips ANSI escape sequences from styled output.
func VisibleText(text string) string {
	_, visible := splitStyled(text)
	return visible
}
