package tui

import (
	"fmt"
	"strings"
)

// Canonical short status messages used across the app.
const (
	MsgLoadingFolders = "Loading folders…"
	MsgOpening        = "Opening…"
	MsgNoFolders      = "No folders"
	MsgPreviewOn      = "Preview on"
	MsgPreviewOff     = "Preview off"
	MsgRootFolder     = "(root)"
)

func MsgOpened(filename string) string {
	return fmt.Sprintf("Opened %s", strings.TrimSpace(filename))
}

func MsgFolderLoaded(folder string, count int) string {
	if folder == "" {
		folder = MsgRootFolder
	}
	if count == 1 {
		return fmt.Sprintf("%s • 1 file", folder)
	}
	return fmt.Sprintf("%s • %d files", folder, count)
}

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}
