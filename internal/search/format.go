package search

import "fmt"

// Canonical panel and display messages.
const (
	MsgSearching   = "Searching..."
	MsgNoResults   = "No results found"
	MsgSearchError = "Error occurred while searching"
	MsgNoSnippet   = "No snippet available"
	MsgNoFile      = "No file selected"
)

// Annotation returns everything a result entry shows after the filename:
// the optional "(in <path>)" and either the filename-match tag or the line
// and highlighted snippet.
func Annotation(r Result, query string, m Marker) string {
	var path string
	switch v := r.(type) {
	case FilenameMatch:
		path = v.Path
	case ContentMatch:
		path = v.Path
	}

	prefix := ""
	if path != "" {
		prefix = fmt.Sprintf("(in %s) ", path)
	}

	switch v := r.(type) {
	case FilenameMatch:
		return prefix + "(Filename Match)"
	case ContentMatch:
		snippet := HighlightSnippet(v.Snippet, query, m)
		if v.Line > 0 {
			return fmt.Sprintf("%s(Line %d): %s", prefix, v.Line, snippet)
		}
		return prefix + snippet
	default:
		return ""
	}
}

// Format renders a whole result entry on one line.
func Format(r Result, query string, m Marker) string {
	return r.Ref().Filename + " " + Annotation(r, query, m)
}

// DisplayName is the visible label for the current file.
func DisplayName(filename string) string {
	if filename == "" {
		return MsgNoFile
	}
	return filename
}
