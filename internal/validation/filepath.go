package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a document path would escape its root.
var ErrOutsideRoot = errors.New("path escapes workspace root")

const maxNameLength = 1024

// ValidateName checks a document or folder name received from a caller.
// Names are slash separated and relative to a workspace root.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("name too long (max %d characters)", maxNameLength)
	}
	if strings.Contains(name, "\x00") {
		return fmt.Errorf("name contains null bytes")
	}
	for _, char := range name {
		if char < 32 && char != '\t' {
			return fmt.Errorf("name contains control characters")
		}
	}
	if strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) || filepath.IsAbs(name) {
		return fmt.Errorf("%w: absolute name %q", ErrOutsideRoot, name)
	}
	for _, component := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if component == ".." {
			return fmt.Errorf("%w: %q", ErrOutsideRoot, name)
		}
	}
	return nil
}

// Within joins the slash separated parts onto root and verifies the
// result stays inside root. Empty parts are skipped.
func Within(root string, parts ...string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}

	elems := []string{absRoot}
	for _, p := range parts {
		if p == "" {
			continue
		}
		if err := ValidateName(p); err != nil {
			return "", err
		}
		elems = append(elems, filepath.FromSlash(p))
	}
	joined := filepath.Clean(filepath.Join(elems...))

	rel, err := filepath.Rel(absRoot, joined)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOutsideRoot, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, joined)
	}
	return joined, nil
}
