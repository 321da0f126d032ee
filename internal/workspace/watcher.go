package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pders01/typx/internal/search"
)

const defaultSettle = 200 * time.Millisecond

// Watcher keeps the index current while files change on disk. Bursts of
// events are coalesced and applied together after a settle period.
type Watcher struct {
	ws       *Workspace
	fsw      *fsnotify.Watcher
	debounce *search.Debouncer
	onChange func(paths []string)

	mu      sync.Mutex
	pending map[string]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher watches every kept directory of ws. onChange, if set,
// receives the relative paths applied in each batch.
func NewWatcher(ws *Workspace, settle time.Duration, onChange func(paths []string)) (*Watcher, error) {
	if settle <= 0 {
		settle = defaultSettle
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		ws:       ws,
		fsw:      fsw,
		debounce: search.NewDebouncer(settle, nil),
		onChange: onChange,
		pending:  make(map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
	}

	if err := w.fsw.Add(ws.root); err != nil {
		_ = fsw.Close()
		cancel()
		return nil, fmt.Errorf("watching %s: %w", ws.root, err)
	}
	err = ws.scanner.Walk(func(rel string, d fs.DirEntry) error {
		if d.IsDir() {
			if addErr := w.fsw.Add(filepath.Join(ws.root, filepath.FromSlash(rel))); addErr != nil {
				ws.log.Warnf("failed to watch %s: %v", rel, addErr)
			}
		}
		return nil
	})
	if err != nil {
		_ = fsw.Close()
		cancel()
		return nil, err
	}
	return w, nil
}

// Start processes events until Stop.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.processEvents()
}

func (w *Watcher) Stop() error {
	w.cancel()
	err := w.fsw.Close()
	w.wg.Wait()
	w.debounce.Cancel()
	return err
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.ws.log.Errorf("watch error: %v", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.ws.root, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	if ev.Has(fsnotify.Create) {
		if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
			if !w.ws.scanner.SkipDir(rel) {
				if addErr := w.fsw.Add(ev.Name); addErr != nil {
					w.ws.log.Warnf("failed to watch %s: %v", rel, addErr)
				}
			}
			return
		}
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	w.pending[rel] = true
	w.mu.Unlock()
	w.debounce.Trigger(w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	if len(paths) == 0 || w.ctx.Err() != nil {
		return
	}
	sort.Strings(paths)

	for _, rel := range paths {
		if err := w.ws.Refresh(rel); err != nil {
			w.ws.log.Errorf("reindexing %s: %v", rel, err)
		}
	}
	w.ws.log.Debugf("applied %d file changes", len(paths))
	if w.onChange != nil {
		w.onChange(paths)
	}
}
