package tui

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/typx/internal/config"
	"github.com/pders01/typx/internal/search"
	"github.com/pders01/typx/internal/storage"
)

var errUnavailable = errors.New("backend unavailable")

type stubBackend struct {
	mu         sync.Mutex
	files      map[string][]string
	content    map[string]string
	hits       map[string][]search.Hit
	foldersErr error
}

func newStubBackend() *stubBackend {
	return &stubBackend{
		files: map[string][]string{
			"":      {"cat.md", "readme.md"},
			"notes": {"todo.md"},
		},
		content: map[string]string{
			"/cat.md":       "# Cats\nthe cat sat\non the mat",
			"/readme.md":    "read me",
			"notes/todo.md": "- feed the cat",
		},
		hits: map[string][]search.Hit{
			"cat": {{Filename: "todo.md", Folder: "notes", Path: "notes/todo.md", Line: 1, Snippet: "- feed the cat"}},
		},
	}
}

func (b *stubBackend) ListFiles(_ context.Context, folder string) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.files[folder]...), nil
}

func (b *stubBackend) ListFolders(context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.foldersErr != nil {
		return nil, b.foldersErr
	}
	var folders []string
	for f := range b.files {
		folders = append(folders, f)
	}
	sort.Strings(folders)
	return folders, nil
}

func (b *stubBackend) SearchContent(_ context.Context, q string) ([]search.Hit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[q], nil
}

func (b *stubBackend) Open(_ context.Context, filename, folder string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.content[folder+"/"+filename]
	if !ok {
		return "", errUnavailable
	}
	return c, nil
}

func newTestApp(t *testing.T, store *storage.Store, tweaks ...func(*config.Config)) (*App, *stubBackend) {
	t.Helper()
	cfg := config.TestConfig()
	for _, tweak := range tweaks {
		tweak(cfg)
	}
	backend := newStubBackend()
	app := NewApp(cfg, backend, store)
	t.Cleanup(app.Close)
	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return app, backend
}

func send(app *App, msg tea.Msg) tea.Cmd {
	_, cmd := app.Update(msg)
	return cmd
}

func press(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

// loadRoot runs the folder selection the app issues on startup.
func loadRoot(t *testing.T, app *App) {
	t.Helper()
	msg := app.selectFolder("", "")()
	send(app, msg)
	require.Len(t, app.fileList.Items(), 2)
}

func TestNewApp(t *testing.T) {
	app, _ := newTestApp(t, nil)

	assert.Equal(t, ViewMain, app.view)
	assert.Equal(t, FocusSidebar, app.focus)
	assert.Equal(t, search.TabFiles, app.snap.Tab)
	assert.Contains(t, app.View(), "Files")
}

func TestSelectFolderLoadsFiles(t *testing.T) {
	app, _ := newTestApp(t, nil)
	loadRoot(t, app)

	assert.Equal(t, "› "+MsgRootFolder, app.fileList.Title)
	assert.Equal(t, MsgFolderLoaded("", 2), app.status)
	assert.Contains(t, app.View(), "cat.md")
}

func TestOpenFileFromList(t *testing.T) {
	app, _ := newTestApp(t, nil)
	loadRoot(t, app)

	cmd := send(app, press(tea.KeyEnter))
	require.NotNil(t, cmd)
	assert.Equal(t, MsgOpening, app.status)

	send(app, cmd())

	assert.NoError(t, app.err)
	assert.Equal(t, MsgOpened("cat.md"), app.status)
	assert.Equal(t, "cat.md", app.snap.Current.Filename)
	assert.Equal(t, "# Cats\nthe cat sat\non the mat", app.editor.Value())
	assert.True(t, app.fileList.Items()[0].(fileItem).current)
}

func TestOpenFailureShowsError(t *testing.T) {
	app, backend := newTestApp(t, nil)
	loadRoot(t, app)
	backend.mu.Lock()
	delete(backend.content, "/cat.md")
	backend.mu.Unlock()

	cmd := send(app, press(tea.KeyEnter))
	send(app, cmd())

	require.ErrorIs(t, app.err, errUnavailable)
	assert.Contains(t, app.View(), "✗")
}

func TestSearchFlow(t *testing.T) {
	app, _ := newTestApp(t, nil)
	loadRoot(t, app)

	send(app, press(tea.KeyCtrlS))
	assert.Equal(t, FocusSearch, app.focus)
	assert.Equal(t, search.TabSearch, app.snap.Tab)
	assert.True(t, app.searchInput.Focused())

	send(app, runes("cat"))
	assert.Equal(t, "cat", app.controller.Snapshot().Input)

	require.Eventually(t, func() bool {
		return app.controller.Snapshot().Panel.Kind == search.PanelResults
	}, time.Second, 5*time.Millisecond)

	send(app, controllerChangedMsg{})
	require.Len(t, app.resultList.Items(), 2)
	assert.Equal(t, MsgResultsCount(2), app.status)

	first := app.resultList.Items()[0].(resultItem)
	assert.Equal(t, "cat.md", first.Title())
	assert.Contains(t, first.Description(), "(Filename Match)")

	send(app, press(tea.KeyDown))
	assert.Equal(t, FocusSidebar, app.focus)

	send(app, press(tea.KeyDown))
	cmd := send(app, press(tea.KeyEnter))
	require.NotNil(t, cmd)
	send(app, cmd())

	assert.Equal(t, search.FileRef{Filename: "todo.md", Folder: "notes"}, app.snap.Current)
	assert.Equal(t, "- feed the cat", app.editor.Value())
}

func TestHighlightViewShowsMatches(t *testing.T) {
	app, _ := newTestApp(t, nil, func(cfg *config.Config) {
		cfg.Search.HighlightDwell = time.Minute
	})
	loadRoot(t, app)
	send(app, send(app, press(tea.KeyEnter))())

	require.NoError(t, app.controller.ScrollToLine(2, "sat"))
	send(app, controllerChangedMsg{})

	require.Len(t, app.snap.Editor.Highlights, 1)
	row, _ := cursorPosition(app.editor.Value(), app.snap.Editor.Cursor)
	assert.Equal(t, 1, row)
	assert.Equal(t, 1, app.editor.Line())

	view := app.View()
	assert.Contains(t, view, "sat")
}

func TestTogglePreview(t *testing.T) {
	app, _ := newTestApp(t, nil)
	loadRoot(t, app)
	send(app, send(app, press(tea.KeyEnter))())

	send(app, press(tea.KeyCtrlP))
	assert.True(t, app.snap.PreviewMode)
	assert.Equal(t, MsgPreviewOn, app.status)
	assert.NotEmpty(t, app.previewText)

	send(app, press(tea.KeyCtrlP))
	assert.False(t, app.snap.PreviewMode)
	assert.Equal(t, MsgPreviewOff, app.status)
}

func TestFolderPicker(t *testing.T) {
	app, _ := newTestApp(t, nil)
	loadRoot(t, app)

	cmd := send(app, press(tea.KeyCtrlG))
	assert.Equal(t, ViewFolders, app.view)
	require.NotNil(t, cmd)

	send(app, cmd())
	items := app.folderList.Items()
	require.Len(t, items, 2)
	assert.Equal(t, MsgRootFolder, items[0].(folderItem).Title())
	assert.Equal(t, "notes", items[1].(folderItem).Title())

	send(app, press(tea.KeyDown))
	cmd = send(app, press(tea.KeyEnter))
	require.NotNil(t, cmd)
	send(app, cmd())

	assert.Equal(t, ViewMain, app.view)
	assert.Equal(t, "notes", app.snap.Folder)
	assert.Equal(t, []string{"todo.md"}, app.snap.Files)
	assert.Equal(t, MsgFolderLoaded("notes", 1), app.status)
}

func TestFolderPickerError(t *testing.T) {
	app, backend := newTestApp(t, nil)
	backend.foldersErr = errUnavailable

	cmd := send(app, press(tea.KeyCtrlG))
	send(app, cmd())

	require.ErrorIs(t, app.err, errUnavailable)
	assert.True(t, strings.HasPrefix(app.err.Error(), "listing folders"))
}

func TestSessionRoundTrip(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "session.db"), storage.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	app, _ := newTestApp(t, store)
	send(app, app.selectFolder("notes", "")())
	send(app, send(app, press(tea.KeyEnter))())

	session, err := store.LoadSession()
	require.NoError(t, err)
	assert.Equal(t, "notes", session.Folder)
	assert.Equal(t, "todo.md", session.Filename)

	restored, _ := newTestApp(t, store)
	msg := restored.restoreSession()()
	require.IsType(t, sessionLoadedMsg{}, msg)

	cmd := send(restored, msg)
	require.NotNil(t, cmd)
	send(restored, cmd())

	assert.Equal(t, search.FileRef{Filename: "todo.md", Folder: "notes"}, restored.snap.Current)
	assert.Equal(t, "- feed the cat", restored.editor.Value())
}

func TestHistorySuggestions(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "session.db"), storage.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.RecordQuery("cat"))

	app, _ := newTestApp(t, store)
	msg := app.loadHistory()()
	require.Equal(t, historyLoadedMsg{queries: []string{"cat"}}, msg)
}

func TestRefreshReloadsActiveFolder(t *testing.T) {
	app, backend := newTestApp(t, nil)
	loadRoot(t, app)

	backend.mu.Lock()
	backend.files[""] = append(backend.files[""], "new.md")
	backend.mu.Unlock()

	app.Refresh([]string{"new.md"})
	send(app, controllerChangedMsg{})

	assert.Len(t, app.fileList.Items(), 3)
}
