package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/typx/internal/events"
	"github.com/pders01/typx/internal/search"
	"github.com/pders01/typx/internal/storage"
)

type controllerChangedMsg struct{}

type sessionLoadedMsg struct {
	session storage.Session
}

type historyLoadedMsg struct {
	queries []string
}

type foldersLoadedMsg struct {
	folders []string
}

type folderSelectedMsg struct {
	folder string
	opened string
	err    error
}

type fileOpenedMsg struct {
	filename string
	err      error
}

type errorMsg struct {
	err error
}

// waitForChange delivers the next controller change notification. It is
// re-armed after every delivery.
func (a *App) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-a.changes:
			return controllerChangedMsg{}
		case <-a.ctx.Done():
			return nil
		}
	}
}

func (a *App) fail(op string, err error) tea.Msg {
	a.bus.Publish(events.Error{Op: op, Err: err})
	return errorMsg{err: wrapErr(op, err)}
}

func (a *App) restoreSession() tea.Cmd {
	return func() tea.Msg {
		if a.store == nil {
			return sessionLoadedMsg{}
		}
		session, err := a.store.LoadSession()
		if err != nil {
			a.log.Warnf("loading session: %v", err)
			return sessionLoadedMsg{}
		}
		return sessionLoadedMsg{session: session}
	}
}

func (a *App) loadHistory() tea.Cmd {
	return func() tea.Msg {
		if a.store == nil {
			return nil
		}
		entries, err := a.store.RecentQueries(historySuggestions)
		if err != nil {
			a.log.Warnf("loading query history: %v", err)
			return nil
		}
		queries := make([]string, len(entries))
		for i, e := range entries {
			queries[i] = e.Query
		}
		return historyLoadedMsg{queries: queries}
	}
}

func (a *App) persistSession() tea.Cmd {
	snap := a.snap
	return func() tea.Msg {
		a.saveSession(snap.Current.Folder, snap.Current.Filename, snap.PreviewMode)
		return nil
	}
}

func (a *App) loadFolders() tea.Cmd {
	return func() tea.Msg {
		lister, ok := a.backend.(search.FolderLister)
		if !ok {
			return foldersLoadedMsg{}
		}
		folders, err := lister.ListFolders(a.ctx)
		if err != nil {
			return a.fail("listing folders", err)
		}
		return foldersLoadedMsg{folders: folders}
	}
}

// selectFolder announces folder on the bus, which rebuilds the file index,
// then opens filename in it when given.
func (a *App) selectFolder(folder, filename string) tea.Cmd {
	return func() tea.Msg {
		a.bus.Publish(events.FolderSelected{Folder: folder})
		msg := folderSelectedMsg{folder: folder}
		if filename != "" {
			msg.opened = filename
			msg.err = a.controller.OpenListed(a.ctx, filename)
		}
		return msg
	}
}

func (a *App) openListed(filename string) tea.Cmd {
	return func() tea.Msg {
		return fileOpenedMsg{filename: filename, err: a.controller.OpenListed(a.ctx, filename)}
	}
}

func (a *App) openResult(r search.Result) tea.Cmd {
	return func() tea.Msg {
		return fileOpenedMsg{filename: r.Ref().Filename, err: a.controller.SelectResult(a.ctx, r)}
	}
}
