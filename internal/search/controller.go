package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pders01/typx/internal/debuglog"
	"github.com/pders01/typx/internal/events"
)

const (
	DefaultDebounce = 300 * time.Millisecond
	DefaultDwell    = 2000 * time.Millisecond
)

// Renderer turns markdown into the preview representation.
type Renderer interface {
	Render(markdown string) (string, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(string) (string, error)

func (f RendererFunc) Render(md string) (string, error) { return f(md) }

// Options configures a Controller. Zero durations fall back to the
// defaults.
type Options struct {
	Debounce time.Duration
	Dwell    time.Duration
	// DiscardStale drops a search response when a newer search has been
	// issued since. When false, responses apply in arrival order.
	DiscardStale bool

	Scheduler     Scheduler
	Renderer      Renderer
	PreviewMarker Marker
	Recorder      QueryRecorder

	// OnChange is called after every state change, without locks held.
	OnChange func()
}

// Controller owns the search input, the file index of the active folder,
// the result panel and the editor and preview buffers.
type Controller struct {
	backend  Backend
	bus      *events.Bus
	opts     Options
	debounce *Debouncer
	log      *debuglog.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
	unsub  func()

	mu          sync.Mutex
	rev         uint64
	gen         uint64
	folderGen   uint64
	state       State
	tab         Tab
	input       string
	panel       Panel
	folder      string
	files       []string
	selected    int
	current     FileRef
	editor      Editor
	preview     Preview
	previewMode bool

	editorBase  *string
	previewBase *string
	reverts     map[uint64]Timer
	revertSeq   uint64
	closed      bool
}

// NewController wires a controller to backend and, when bus is non-nil,
// subscribes it to folder selection events.
func NewController(backend Backend, bus *events.Bus, opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Dwell <= 0 {
		opts.Dwell = DefaultDwell
	}
	if opts.Scheduler == nil {
		opts.Scheduler = SystemScheduler
	}
	if opts.PreviewMarker == nil {
		opts.PreviewMarker = HTMLMarker
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		backend:  backend,
		bus:      bus,
		opts:     opts,
		debounce: NewDebouncer(opts.Debounce, opts.Scheduler),
		log:      debuglog.Component("search"),
		ctx:      ctx,
		cancel:   cancel,
		selected: -1,
		preview:  Preview{FocusLine: -1},
		reverts:  make(map[uint64]Timer),
	}

	if bus != nil {
		c.unsub = bus.Subscribe(events.TypeFolderSelected, func(e events.Event) {
			ev, ok := e.(events.FolderSelected)
			if !ok {
				return
			}
			if err := c.LoadFolder(c.ctx, ev.Folder); err != nil {
				c.log.Errorf("loading folder %q: %v", ev.Folder, err)
			}
		})
	}
	return c
}

// Close cancels the pending search and every revert timer and detaches
// from the bus. In-flight requests are cancelled through the context.
func (c *Controller) Close() {
	c.debounce.Cancel()
	c.cancel()

	c.mu.Lock()
	c.closed = true
	for id, t := range c.reverts {
		t.Stop()
		delete(c.reverts, id)
	}
	c.mu.Unlock()

	if c.unsub != nil {
		c.unsub()
	}
}

func (c *Controller) changed() {
	c.rev++
}

func (c *Controller) notify() {
	if c.opts.OnChange != nil {
		c.opts.OnChange()
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Rev:           c.rev,
		State:         c.state,
		Tab:           c.tab,
		Input:         c.input,
		Panel:         c.panel,
		Folder:        c.folder,
		Files:         append([]string(nil), c.files...),
		SelectedIndex: c.selected,
		Current:       c.current,
		Editor:        c.editor,
		Preview:       c.preview,
		PreviewMode:   c.previewMode,
	}
	s.Panel.Results = append([]Result(nil), c.panel.Results...)
	s.Editor.Highlights = append([]Range(nil), c.editor.Highlights...)
	return s
}

// LoadFolder makes folder the active folder and replaces the file index
// with its listing. On failure the previous index is kept. A listing that
// arrives after a newer LoadFolder call is dropped.
func (c *Controller) LoadFolder(ctx context.Context, folder string) error {
	c.mu.Lock()
	c.folder = folder
	c.folderGen++
	gen := c.folderGen
	c.changed()
	c.mu.Unlock()
	c.notify()

	if c.backend == nil {
		c.log.Errorf("listing files: %v", ErrNoBackend)
		return ErrNoBackend
	}
	files, err := c.backend.ListFiles(ctx, folder)
	if err != nil {
		return fmt.Errorf("listing files in %q: %w", folder, err)
	}

	c.mu.Lock()
	if c.closed || gen != c.folderGen {
		c.mu.Unlock()
		c.log.Debugf("discarding stale listing for %q", folder)
		return nil
	}
	c.files = append([]string(nil), files...)
	c.selected = indexOf(c.files, c.current.Filename)
	c.changed()
	c.mu.Unlock()
	c.notify()

	c.log.Debugf("file index rebuilt for %q: %d files", folder, len(files))
	return nil
}

// Input records the new search field value and restarts the debounce.
func (c *Controller) Input(value string) {
	c.mu.Lock()
	c.input = value
	c.state = StateDebouncing
	c.changed()
	c.mu.Unlock()
	c.notify()

	c.debounce.Trigger(c.fire)
}

// fire runs when the quiet period elapses.
func (c *Controller) fire() {
	c.mu.Lock()
	query := strings.TrimSpace(c.input)
	if query == "" {
		c.panel = Panel{}
		c.state = StateIdle
		c.changed()
		c.mu.Unlock()
		c.notify()
		return
	}

	c.gen++
	gen := c.gen
	folder := c.folder
	fileMatches := MatchFilenames(c.files, query, folder)
	c.state = StateSearching
	c.panel = Panel{Kind: PanelSearching, Query: query, Message: MsgSearching}
	c.changed()
	c.mu.Unlock()
	c.notify()

	c.search(gen, query, folder, fileMatches)
}

func (c *Controller) search(gen uint64, query, folder string, fileMatches []Result) {
	if c.backend == nil {
		c.log.Errorf("searching %q: %v", query, ErrNoBackend)
		c.applyFailure(gen, query)
		return
	}

	hits, err := c.backend.SearchContent(c.ctx, query)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.log.Errorf("searching %q: %v", query, err)
		c.applyFailure(gen, query)
		return
	}

	results := Merge(fileMatches, hits, folder)

	c.mu.Lock()
	if c.stale(gen) {
		c.mu.Unlock()
		c.log.Debugf("discarding stale results for %q", query)
		return
	}
	c.panel = Panel{Kind: PanelResults, Query: query, Results: results}
	if len(results) == 0 {
		c.panel = Panel{Kind: PanelMessage, Query: query, Message: MsgNoResults}
	}
	c.state = StateRendered
	if c.previewMode {
		c.highlightPreviewLocked(query)
	} else {
		c.highlightEditorLocked(query)
	}
	c.changed()
	c.mu.Unlock()
	c.notify()

	debuglog.WithFields(debuglog.Fields{
		"component": "search",
		"query":     query,
		"count":     len(results),
	}).Infof("results rendered")

	if c.opts.Recorder != nil {
		if err := c.opts.Recorder.RecordQuery(query); err != nil {
			c.log.Warnf("recording query: %v", err)
		}
	}
}

func (c *Controller) applyFailure(gen uint64, query string) {
	c.mu.Lock()
	if c.stale(gen) {
		c.mu.Unlock()
		return
	}
	c.panel = Panel{Kind: PanelMessage, Query: query, Message: MsgSearchError}
	c.state = StateRendered
	c.changed()
	c.mu.Unlock()
	c.notify()
}

// stale reports whether a response for gen must be dropped. Callers hold mu.
func (c *Controller) stale(gen uint64) bool {
	if c.closed {
		return true
	}
	return c.opts.DiscardStale && gen != c.gen
}

// SetTab switches the visible side panel. No data is reloaded.
func (c *Controller) SetTab(t Tab) {
	c.mu.Lock()
	if c.tab == t {
		c.mu.Unlock()
		return
	}
	c.tab = t
	c.changed()
	c.mu.Unlock()
	c.notify()
}

// SelectFile marks filename as the current file and announces it on the
// bus. The file-list selection moves to its entry when it is listed.
func (c *Controller) SelectFile(filename, folder string) {
	c.mu.Lock()
	c.current = FileRef{Filename: filename, Folder: folder}
	c.selected = indexOf(c.files, filename)
	c.changed()
	c.mu.Unlock()
	c.notify()

	c.publish(events.FileSelected{Filename: filename, Folder: folder})
}

// OpenFile loads the file content into the editor and refreshes the
// preview. The outcome is published as FileOpened.
func (c *Controller) OpenFile(ctx context.Context, filename, folder string) error {
	if c.backend == nil {
		c.log.Errorf("opening %s: %v", filename, ErrNoBackend)
		return ErrNoBackend
	}

	content, err := c.backend.Open(ctx, filename, folder)
	if err != nil {
		err = fmt.Errorf("opening %s: %w", filename, err)
		c.log.Errorf("%v", err)
		c.publish(events.FileOpened{Filename: filename, Folder: folder, Err: err})
		return err
	}

	c.mu.Lock()
	c.editor = Editor{Text: content, ScrollHeight: c.editor.ScrollHeight}
	c.editorBase = nil
	c.renderPreviewLocked()
	c.changed()
	c.mu.Unlock()
	c.notify()

	c.publish(events.FileOpened{Filename: filename, Folder: folder})
	return nil
}

// OpenListed selects and opens an entry of the file list in the active
// folder.
func (c *Controller) OpenListed(ctx context.Context, filename string) error {
	c.mu.Lock()
	folder := c.folder
	c.mu.Unlock()

	c.SelectFile(filename, folder)
	return c.OpenFile(ctx, filename, folder)
}

// SelectResult opens the file behind a result and, for content matches
// carrying a line, jumps to that line and highlights the current query.
func (c *Controller) SelectResult(ctx context.Context, r Result) error {
	ref := r.Ref()
	c.SelectFile(ref.Filename, ref.Folder)
	if err := c.OpenFile(ctx, ref.Filename, ref.Folder); err != nil {
		return err
	}

	cm, ok := r.(ContentMatch)
	if !ok || cm.Line <= 0 {
		return nil
	}

	c.mu.Lock()
	text := strings.TrimSpace(c.input)
	c.mu.Unlock()

	if err := c.ScrollToLine(cm.Line, text); err != nil {
		c.log.Errorf("scrolling to line %d of %s: %v", cm.Line, ref.Filename, err)
		return err
	}
	return nil
}

// ScrollToLine moves the editor to the start of line and highlights text
// in whichever view is active. Invalid lines leave every view untouched.
func (c *Controller) ScrollToLine(line int, text string) error {
	c.mu.Lock()
	content := c.editor.Text
	offset, err := LineOffset(content, line)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	c.editor.Cursor = offset
	c.editor.Selection = Range{Start: offset, End: offset}
	if c.previewMode {
		c.highlightPreviewLocked(text)
	} else {
		count := LineCount(content)
		height := c.editor.ScrollHeight
		if height <= 0 {
			height = float64(count)
		}
		c.editor.ScrollTop = ScrollEstimate(line, count, height)
		c.highlightEditorLocked(text)
	}
	c.changed()
	c.mu.Unlock()
	c.notify()
	return nil
}

// SetEditorText replaces the editor buffer with user edits. An active
// highlight still reverts to its snapshot, discarding these edits.
func (c *Controller) SetEditorText(text string) {
	c.mu.Lock()
	if c.editor.Text == text {
		c.mu.Unlock()
		return
	}
	c.editor.Text = text
	c.editor.Highlights = nil
	c.changed()
	c.mu.Unlock()
	c.notify()
}

// SetScrollHeight records the total height of the editor content in view
// rows, used for the scroll estimate.
func (c *Controller) SetScrollHeight(h float64) {
	c.mu.Lock()
	c.editor.ScrollHeight = h
	c.mu.Unlock()
}

// SetPreviewMode switches between the raw editor and the rendered preview.
func (c *Controller) SetPreviewMode(on bool) {
	c.mu.Lock()
	if c.previewMode == on {
		c.mu.Unlock()
		return
	}
	c.previewMode = on
	if on {
		c.renderPreviewLocked()
	}
	c.changed()
	c.mu.Unlock()
	c.notify()
}

// TogglePreview flips preview mode and reports the new mode.
func (c *Controller) TogglePreview() bool {
	c.mu.Lock()
	on := !c.previewMode
	c.mu.Unlock()
	c.SetPreviewMode(on)
	return on
}

func (c *Controller) renderPreviewLocked() {
	c.previewBase = nil
	c.preview = Preview{FocusLine: -1}
	if c.opts.Renderer == nil {
		c.preview.Text = c.editor.Text
		return
	}
	out, err := c.opts.Renderer.Render(c.editor.Text)
	if err != nil {
		c.log.Errorf("rendering preview: %v", err)
		c.preview.Text = c.editor.Text
		return
	}
	c.preview.Text = out
}

// highlightEditorLocked selects the first match of text and overlays every
// match until the dwell elapses, then restores the pre-highlight buffer.
func (c *Controller) highlightEditorLocked(text string) {
	ranges := FindAll(c.editor.Text, text)
	if len(ranges) == 0 {
		return
	}

	snapshot := c.editor.Text
	if c.editorBase != nil {
		snapshot = *c.editorBase
	}
	c.editorBase = &snapshot
	c.editor.Selection = ranges[0]
	c.editor.Cursor = ranges[0].Start
	c.editor.Highlights = ranges

	c.scheduleRevert(func() {
		c.editor.Text = snapshot
		c.editor.Highlights = nil
		c.editorBase = nil
	})
}

// highlightPreviewLocked marks every visible match in the rendered view
// and scrolls to the first one until the dwell elapses. Terminal styling
// in the rendered text is left intact.
func (c *Controller) highlightPreviewLocked(text string) {
	if text == "" || c.preview.Text == "" {
		return
	}

	snapshot := c.preview.Text
	if c.previewBase != nil {
		snapshot = *c.previewBase
	}
	marked, ranges := HighlightStyled(snapshot, text, c.opts.PreviewMarker)
	if len(ranges) == 0 {
		return
	}
	c.previewBase = &snapshot
	c.preview = Preview{
		Text:        marked,
		FocusLine:   strings.Count(VisibleText(snapshot)[:ranges[0].Start], "\n"),
		Highlighted: true,
	}

	c.scheduleRevert(func() {
		c.preview = Preview{Text: snapshot, FocusLine: -1}
		c.previewBase = nil
	})
}

// scheduleRevert runs restore under the lock once the dwell elapses.
// Callers hold mu.
func (c *Controller) scheduleRevert(restore func()) {
	if c.closed {
		return
	}
	c.revertSeq++
	id := c.revertSeq
	c.reverts[id] = c.opts.Scheduler.AfterFunc(c.opts.Dwell, func() {
		c.mu.Lock()
		if _, ok := c.reverts[id]; !ok {
			c.mu.Unlock()
			return
		}
		delete(c.reverts, id)
		restore()
		c.changed()
		c.mu.Unlock()
		c.notify()
	})
}

func (c *Controller) publish(e events.Event) {
	if c.bus != nil {
		c.bus.Publish(e)
	}
}

func indexOf(files []string, name string) int {
	if name == "" {
		return -1
	}
	for i, f := range files {
		if f == name {
			return i
		}
	}
	return -1
}
