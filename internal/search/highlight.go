package search

import (
	"regexp"
	"strings"
)

// Marker wraps a matched substring in a visual highlight.
type Marker interface {
	Mark(s string) string
}

// MarkerFunc adapts a function to Marker.
type MarkerFunc func(string) string

func (f MarkerFunc) Mark(s string) string { return f(s) }

// HTMLMarker wraps matches in <mark> elements.
var HTMLMarker = MarkerFunc(func(s string) string { return "<mark>" + s + "</mark>" })

// Range is a half-open byte range [Start, End).
type Range struct {
	Start int
	End   int
}

// Pattern compiles query into a case-insensitive matcher for the literal
// text. It returns nil for an empty query.
func Pattern(query string) *regexp.Regexp {
	if query == "" {
		return nil
	}
	return regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
}

// FindAll returns the byte ranges of every case-insensitive occurrence of
// query in text.
func FindAll(text, query string) []Range {
	re := Pattern(query)
	if re == nil {
		return nil
	}
	locs := re.FindAllStringIndex(text, -1)
	out := make([]Range, len(locs))
	for i, l := range locs {
		out[i] = Range{Start: l[0], End: l[1]}
	}
	return out
}

// Highlight wraps every occurrence of query in text with m. It also
// returns the ranges of the matches in the original text.
func Highlight(text, query string, m Marker) (string, []Range) {
	ranges := FindAll(text, query)
	if len(ranges) == 0 {
		return text, nil
	}
	var b strings.Builder
	b.Grow(len(text) + len(ranges)*16)
	prev := 0
	for _, r := range ranges {
		b.WriteString(text[prev:r.Start])
		b.WriteString(m.Mark(text[r.Start:r.End]))
		prev = r.End
	}
	b.WriteString(text[prev:])
	return b.String(), ranges
}

// HighlightSnippet marks the query inside a result snippet. A missing
// snippet renders as MsgNoSnippet.
func HighlightSnippet(snippet, query string, m Marker) string {
	if snippet == "" {
		return MsgNoSnippet
	}
	out, _ := Highlight(snippet, query, m)
	return out
}
