package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/typx/internal/config"
	"github.com/pders01/typx/internal/editorapi"
	"github.com/pders01/typx/internal/events"
	"github.com/pders01/typx/internal/search"
	"github.com/pders01/typx/internal/workspace"
)

// notes is the document tree served by the test editor server and written
// to disk for the workspace backend.
var notes = map[string]map[string]string{
	"": {
		"notes.md": "# Notes\nnothing here yet\n",
		"todo.md":  "# Todo\n- buy milk\n- do not forget\n",
	},
	"work": {
		"plan.md": "# Plan\nship it\n",
	},
}

var server *httptest.Server

func TestMain(m *testing.M) {
	server = httptest.NewServer(editorHandler())
	code := m.Run()
	server.Close()
	os.Exit(code)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// editorHandler answers the editor endpoints from notes. The query "boom"
// fails with a server error.
func editorHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/editor/files", func(w http.ResponseWriter, r *http.Request) {
		var files []string
		for name := range notes[r.URL.Query().Get("folder")] {
			files = append(files, name)
		}
		sort.Strings(files)
		writeJSON(w, files)
	})
	mux.HandleFunc("/editor/folders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []string{"", "work"})
	})
	mux.HandleFunc("/editor/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "boom" {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		hits := []search.Hit{}
		for _, folder := range []string{"", "work"} {
			names := make([]string, 0, len(notes[folder]))
			for name := range notes[folder] {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				for i, line := range strings.Split(notes[folder][name], "\n") {
					if strings.Contains(strings.ToLower(line), strings.ToLower(q)) {
						hits = append(hits, search.Hit{Filename: name, Folder: folder, Line: i + 1, Snippet: line})
						break
					}
				}
			}
		}
		writeJSON(w, hits)
	})
	mux.HandleFunc("/editor/open", func(w http.ResponseWriter, r *http.Request) {
		content, ok := notes[r.URL.Query().Get("folder")][r.URL.Query().Get("filename")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, content)
	})
	return mux
}

// writeNotes lays notes out on disk and returns the root.
func writeNotes(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for folder, files := range notes {
		dir := filepath.Join(root, folder)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		for name, content := range files {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
		}
	}
	return root
}

func remoteBackend(t *testing.T) search.Backend {
	t.Helper()
	cfg := config.TestConfig()
	cfg.Server.BaseURL = server.URL
	client, err := editorapi.NewClient(cfg)
	require.NoError(t, err)
	return client
}

func localBackend(t *testing.T) search.Backend {
	t.Helper()
	cfg := config.TestConfig()
	cfg.Workspace.Root = writeNotes(t)
	ws, err := workspace.Open(cfg.Workspace, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	_, err = ws.Rebuild(context.Background())
	require.NoError(t, err)
	return ws
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) add(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) selected() []events.FileSelected {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.FileSelected
	for _, e := range r.events {
		if fs, ok := e.(events.FileSelected); ok {
			out = append(out, fs)
		}
	}
	return out
}

func newController(t *testing.T, backend search.Backend) (*search.Controller, *events.Bus, *recorder) {
	t.Helper()
	bus := events.NewBus()
	rec := &recorder{}
	bus.Subscribe(events.TypeFileSelected, rec.add)

	c := search.NewController(backend, bus, search.Options{
		Debounce:     20 * time.Millisecond,
		Dwell:        100 * time.Millisecond,
		DiscardStale: true,
	})
	t.Cleanup(c.Close)
	return c, bus, rec
}

func waitForPanel(t *testing.T, c *search.Controller) search.Panel {
	t.Helper()
	require.Eventually(t, func() bool {
		k := c.Snapshot().Panel.Kind
		return k == search.PanelResults || k == search.PanelMessage
	}, 5*time.Second, 10*time.Millisecond)
	return c.Snapshot().Panel
}

func backends() map[string]func(*testing.T) search.Backend {
	return map[string]func(*testing.T) search.Backend{
		"editor server":   remoteBackend,
		"local workspace": localBackend,
	}
}

func TestSearchSelectAndHighlight(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			c, bus, rec := newController(t, open(t))

			bus.Publish(events.FolderSelected{Folder: ""})
			require.Equal(t, []string{"notes.md", "todo.md"}, c.Snapshot().Files)

			c.Input("not")
			panel := waitForPanel(t, c)
			require.Equal(t, search.PanelResults, panel.Kind)
			require.Len(t, panel.Results, 2)

			assert.Equal(t, search.FilenameMatch{Filename: "notes.md"}, panel.Results[0])
			cm, ok := panel.Results[1].(search.ContentMatch)
			require.True(t, ok, "content match follows filename matches")
			assert.Equal(t, "todo.md", cm.Filename)
			assert.Equal(t, 3, cm.Line)

			require.NoError(t, c.SelectResult(context.Background(), cm))

			snap := c.Snapshot()
			assert.Equal(t, search.FileRef{Filename: "todo.md"}, snap.Current)
			assert.Equal(t, 1, snap.SelectedIndex)
			assert.Equal(t, notes[""]["todo.md"], snap.Editor.Text)
			assert.NotEmpty(t, snap.Editor.Highlights)
			assert.Equal(t, []events.FileSelected{{Filename: "todo.md"}}, rec.selected())

			require.Eventually(t, func() bool {
				return len(c.Snapshot().Editor.Highlights) == 0
			}, 5*time.Second, 10*time.Millisecond, "highlight reverts after the dwell")
			assert.Equal(t, notes[""]["todo.md"], c.Snapshot().Editor.Text)
		})
	}
}

func TestSearchOtherFolder(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			c, bus, _ := newController(t, open(t))
			bus.Publish(events.FolderSelected{Folder: ""})

			c.Input("ship")
			panel := waitForPanel(t, c)
			require.Equal(t, search.PanelResults, panel.Kind)
			require.Len(t, panel.Results, 1)
			assert.Equal(t, search.FileRef{Filename: "plan.md", Folder: "work"}, panel.Results[0].Ref())

			require.NoError(t, c.SelectResult(context.Background(), panel.Results[0]))
			snap := c.Snapshot()
			assert.Equal(t, notes["work"]["plan.md"], snap.Editor.Text)
			assert.Equal(t, -1, snap.SelectedIndex, "plan.md is not in the active folder")
		})
	}
}

func TestNoResults(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			c, bus, _ := newController(t, open(t))
			bus.Publish(events.FolderSelected{Folder: ""})

			c.Input("zebra")
			panel := waitForPanel(t, c)
			assert.Equal(t, search.PanelMessage, panel.Kind)
			assert.Equal(t, search.MsgNoResults, panel.Message)
		})
	}
}

func TestServerErrorShowsMessage(t *testing.T) {
	c, bus, _ := newController(t, remoteBackend(t))
	bus.Publish(events.FolderSelected{Folder: ""})

	c.Input("boom")
	panel := waitForPanel(t, c)
	assert.Equal(t, search.PanelMessage, panel.Kind)
	assert.Equal(t, search.MsgSearchError, panel.Message)
}
