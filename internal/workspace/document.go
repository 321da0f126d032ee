package workspace

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/pders01/typx/internal/search"
)

// Document is the indexed prefix of one workspace file. ID is the slash
// separated path relative to the root.
type Document struct {
	ID       string
	Filename string
	Folder   string
	Content  string
	Sum      uint64
}

func newDocument(rel, content string) Document {
	folder := path.Dir(rel)
	if folder == "." {
		folder = ""
	}
	return Document{
		ID:       rel,
		Filename: path.Base(rel),
		Folder:   folder,
		Content:  content,
		Sum:      xxhash.Sum64String(content),
	}
}

// loadDocument reads at most limit bytes of the file at rel.
func loadDocument(root, rel string, limit int) (Document, error) {
	f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return Document{}, err
	}
	defer f.Close()

	var r io.Reader = f
	if limit > 0 {
		r = io.LimitReader(f, int64(limit))
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", rel, err)
	}
	return newDocument(rel, string(data)), nil
}

// hit finds the first case-insensitive occurrence of query and builds a
// content hit around it: window bytes of context starting window/2 bytes
// before the match, newlines flattened to spaces.
func (d Document) hit(query string, window int) (search.Hit, bool) {
	ranges := search.FindAll(d.Content, query)
	if len(ranges) == 0 {
		return search.Hit{}, false
	}
	idx := ranges[0].Start

	start := idx - window/2
	if start < 0 {
		start = 0
	}
	end := start + window
	if end > len(d.Content) {
		end = len(d.Content)
	}
	for start > 0 && !utf8.RuneStart(d.Content[start]) {
		start--
	}
	for end < len(d.Content) && !utf8.RuneStart(d.Content[end]) {
		end++
	}

	return search.Hit{
		Filename: d.Filename,
		Folder:   d.Folder,
		Path:     d.ID,
		Line:     strings.Count(d.Content[:idx], "\n") + 1,
		Snippet:  strings.ReplaceAll(d.Content[start:end], "\n", " "),
	}, true
}
