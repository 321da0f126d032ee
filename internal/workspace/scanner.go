package workspace

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Scanner walks a workspace root and applies include/exclude globs to
// slash separated paths relative to the root.
type Scanner struct {
	root    string
	include []string
	exclude []string
}

func NewScanner(root string, include, exclude []string) (*Scanner, error) {
	for _, p := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return &Scanner{root: root, include: include, exclude: exclude}, nil
}

func (s *Scanner) excluded(rel string) bool {
	for _, pattern := range s.exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

// Included reports whether a file is part of the workspace.
func (s *Scanner) Included(rel string) bool {
	if s.excluded(rel) {
		return false
	}
	if len(s.include) == 0 {
		return true
	}
	for _, pattern := range s.include {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

// SkipDir reports whether a directory is pruned from the walk. Exclude
// patterns ending in /** also match the directory itself.
func (s *Scanner) SkipDir(rel string) bool {
	if rel == "." || rel == "" {
		return false
	}
	base := path.Base(rel)
	for _, pattern := range s.exclude {
		dirPattern := strings.TrimSuffix(pattern, "/**")
		if matched, _ := doublestar.Match(dirPattern, rel); matched {
			return true
		}
		if matched, _ := doublestar.Match(dirPattern, base); matched {
			return true
		}
	}
	return false
}

// Walk calls fn for every included file and every kept directory below
// the root, with the slash separated relative path.
func (s *Scanner) Walk(fn func(rel string, d fs.DirEntry) error) error {
	return filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == s.root {
				return err
			}
			return nil
		}
		rel, relErr := filepath.Rel(s.root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if s.SkipDir(rel) {
				return filepath.SkipDir
			}
			return fn(rel, d)
		}
		if !d.Type().IsRegular() || !s.Included(rel) {
			return nil
		}
		return fn(rel, d)
	})
}

// Files returns every included file, sorted.
func (s *Scanner) Files() ([]string, error) {
	var files []string
	err := s.Walk(func(rel string, d fs.DirEntry) error {
		if !d.IsDir() {
			files = append(files, rel)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// Folders returns every kept directory below the root, sorted.
func (s *Scanner) Folders() ([]string, error) {
	var folders []string
	err := s.Walk(func(rel string, d fs.DirEntry) error {
		if d.IsDir() {
			folders = append(folders, rel)
		}
		return nil
	})
	sort.Strings(folders)
	return folders, err
}
