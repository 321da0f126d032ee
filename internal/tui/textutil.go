package tui

import (
	"strings"
	"unicode/utf8"

	"github.com/pders01/typx/internal/search"
)

// truncateEnd shortens s to at most limit characters, appending an ellipsis
// if truncation occurs.
func truncateEnd(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 1 {
		return "…"
	}
	return string(r[:limit-1]) + "…"
}

// truncateMiddle keeps both ends of s around a single ellipsis. Paths
// carry meaning at both ends.
func truncateMiddle(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	n := len(r)
	if n <= limit {
		return s
	}
	if limit <= 1 {
		return "…"
	}
	keep := limit - 1
	left := keep / 2
	right := keep - left
	if left <= 0 {
		return "…" + string(r[n-right:])
	}
	return string(r[:left]) + "…" + string(r[n-right:])
}

// cursorPosition converts a byte offset into a zero-based row and rune
// column.
func cursorPosition(text string, offset int) (row, col int) {
	offset = min(max(offset, 0), len(text))
	prefix := text[:offset]
	row = strings.Count(prefix, "\n")
	lineStart := strings.LastIndex(prefix, "\n") + 1
	return row, utf8.RuneCountInString(prefix[lineStart:])
}

// sanitizeSearchInput caps the query length and flattens control
// whitespace. Surrounding spaces are kept; the controller trims.
func sanitizeSearchInput(input string) string {
	if utf8.RuneCountInString(input) > maxQueryLength {
		input = string([]rune(input)[:maxQueryLength])
	}
	return strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(input)
}

// renderHighlighted marks ranges in text and returns height lines starting
// at row top. Ranges are sorted and do not overlap.
func renderHighlighted(text string, ranges []search.Range, m search.Marker, top, height int) string {
	var b strings.Builder
	last := 0
	for _, r := range ranges {
		if r.Start < last || r.End > len(text) || r.Start >= r.End {
			continue
		}
		b.WriteString(text[last:r.Start])
		b.WriteString(m.Mark(text[r.Start:r.End]))
		last = r.End
	}
	b.WriteString(text[last:])

	lines := strings.Split(b.String(), "\n")
	top = min(max(top, 0), len(lines))
	end := min(top+max(height, 0), len(lines))
	return strings.Join(lines[top:end], "\n")
}
