package search

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidLine = errors.New("invalid line number")
	ErrEmptyBuffer = errors.New("editor content is empty")
	ErrNoBackend   = errors.New("no backend configured")
)

// LineOffset converts a 1-based line number into the byte offset of the
// start of that line: the lengths of all preceding lines plus one newline
// each.
func LineOffset(content string, line int) (int, error) {
	if content == "" {
		return 0, ErrEmptyBuffer
	}
	lines := strings.Split(content, "\n")
	if line < 1 || line > len(lines) {
		return 0, fmt.Errorf("%w: %d, total lines: %d", ErrInvalidLine, line, len(lines))
	}
	pos := 0
	for _, l := range lines[:line-1] {
		pos += len(l) + 1
	}
	return pos, nil
}

// ScrollEstimate approximates the scroll position of a line as
// (line-1) * (scrollHeight / lineCount). It assumes every line occupies
// the same height, which does not hold for wrapped lines.
func ScrollEstimate(line, lineCount int, scrollHeight float64) float64 {
	if lineCount <= 0 || line < 1 {
		return 0
	}
	return float64(line-1) * (scrollHeight / float64(lineCount))
}

// LineCount returns the number of lines in content as the editor sees it.
func LineCount(content string) int {
	return strings.Count(content, "\n") + 1
}
