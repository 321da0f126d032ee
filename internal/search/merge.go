package search

import "strings"

// MatchFilenames returns a FilenameMatch, tagged with folder, for every
// cached filename containing query case-insensitively. Order follows files.
func MatchFilenames(files []string, query, folder string) []Result {
	if query == "" {
		return nil
	}
	q := strings.ToLower(query)
	var out []Result
	for _, name := range files {
		if strings.Contains(strings.ToLower(name), q) {
			out = append(out, FilenameMatch{Filename: name, Folder: folder})
		}
	}
	return out
}

// Merge concatenates filename matches with the content hits that do not
// refer to a file already matched by name in the active folder. Content
// hits keep the backend's order; hits without a filename are dropped.
func Merge(filenameMatches []Result, hits []Hit, activeFolder string) []Result {
	seen := make(map[string]bool, len(filenameMatches))
	for _, r := range filenameMatches {
		seen[r.Ref().Filename] = true
	}

	out := make([]Result, 0, len(filenameMatches)+len(hits))
	out = append(out, filenameMatches...)
	for _, h := range hits {
		if h.Filename == "" {
			continue
		}
		if h.Folder == activeFolder && seen[h.Filename] {
			continue
		}
		line := h.Line
		if line < 0 {
			line = 0
		}
		out = append(out, ContentMatch{
			Filename: h.Filename,
			Folder:   h.Folder,
			Path:     h.Path,
			Line:     line,
			Snippet:  h.Snippet,
		})
	}
	return out
}
