package tui

import (
	"errors"
	"fmt"

	"github.com/pders01/typx/internal/editorapi"
	"github.com/pders01/typx/internal/search"
)

// wrapErr formats an error with a contextual prefix.
func wrapErr(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// describeErr shortens well-known failures for the status bar.
func describeErr(err error) string {
	var httpErr *editorapi.HTTPError
	switch {
	case errors.Is(err, search.ErrInvalidLine):
		return "line not found in file"
	case errors.Is(err, search.ErrEmptyBuffer):
		return "file is empty"
	case errors.Is(err, search.ErrNoBackend):
		return "no backend configured"
	case errors.Is(err, editorapi.ErrNotFound):
		return "file not found"
	case errors.As(err, &httpErr):
		return fmt.Sprintf("server returned %d", httpErr.StatusCode)
	default:
		return err.Error()
	}
}

// isJumpErr reports failures of the line jump that leave the file open.
func isJumpErr(err error) bool {
	return errors.Is(err, search.ErrInvalidLine) || errors.Is(err, search.ErrEmptyBuffer)
}
