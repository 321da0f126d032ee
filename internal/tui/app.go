package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/typx/internal/config"
	"github.com/pders01/typx/internal/debuglog"
	"github.com/pders01/typx/internal/events"
	"github.com/pders01/typx/internal/render"
	"github.com/pders01/typx/internal/search"
	"github.com/pders01/typx/internal/storage"
)

const (
	maxQueryLength     = 256
	historySuggestions = 20
)

// termMarker highlights matches in terminal output.
var termMarker = search.MarkerFunc(func(s string) string {
	return HighlightStyle.Render(s)
})

type App struct {
	config     *config.Config
	store      *storage.Store
	backend    search.Backend
	bus        *events.Bus
	controller *search.Controller
	renderer   *render.Terminal
	keyHandler *KeyHandler
	log        *debuglog.FieldLogger

	fileList    list.Model
	resultList  list.Model
	folderList  list.Model
	searchInput textinput.Model
	editor      textarea.Model
	preview     viewport.Model
	spinner     spinner.Model
	help        help.Model

	ctx     context.Context
	cancel  context.CancelFunc
	changes chan struct{}
	unsubs  []func()

	snap         search.Snapshot
	editorSource string
	editorCursor int
	previewText  string
	spinning     bool

	view       View
	focus      Focus
	width      int
	height     int
	err        error
	status     string
	statusKind StatusKind
}

// NewApp builds the TUI around a search controller talking to backend.
// store may be nil, in which case no session or history is kept.
func NewApp(cfg *config.Config, backend search.Backend, store *storage.Store) *App {
	ApplyColors(cfg.UI.Colors)

	fileDelegate := list.NewDefaultDelegate()
	fileDelegate.ShowDescription = false

	fileList := list.New([]list.Item{}, fileDelegate, 0, 0)
	fileList.Title = "› " + MsgRootFolder
	fileList.SetShowStatusBar(false)
	fileList.SetFilteringEnabled(true)
	fileList.SetShowHelp(false)

	resultList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	resultList.Title = "› results"
	resultList.SetShowStatusBar(false)
	resultList.SetFilteringEnabled(false)
	resultList.SetShowHelp(false)

	folderList := list.New([]list.Item{}, fileDelegate, 0, 0)
	folderList.Title = "› folders"
	folderList.SetShowStatusBar(false)
	folderList.SetFilteringEnabled(true)
	folderList.SetShowHelp(false)

	si := textinput.New()
	si.Placeholder = "Search file names and content..."
	si.CharLimit = maxQueryLength
	si.ShowSuggestions = true

	ed := textarea.New()
	ed.Placeholder = search.MsgNoFile
	ed.ShowLineNumbers = true
	ed.CharLimit = 0
	ed.MaxHeight = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		config:       cfg,
		store:        store,
		backend:      backend,
		bus:          events.NewBus(),
		renderer:     render.NewTerminal(cfg.UI.PreviewStyle, cfg.UI.WordWrap),
		log:          debuglog.Component("tui"),
		fileList:     fileList,
		resultList:   resultList,
		folderList:   folderList,
		searchInput:  si,
		editor:       ed,
		preview:      viewport.New(0, 0),
		spinner:      sp,
		help:         help.New(),
		ctx:          ctx,
		cancel:       cancel,
		changes:      make(chan struct{}, 1),
		editorCursor: -1,
		view:         ViewMain,
		focus:        FocusSidebar,
	}

	opts := search.Options{
		Debounce:      cfg.Search.Debounce,
		Dwell:         cfg.Search.HighlightDwell,
		DiscardStale:  cfg.Search.DiscardStale,
		Renderer:      app.renderer,
		PreviewMarker: termMarker,
		OnChange:      app.notifyChange,
	}
	if store != nil {
		opts.Recorder = store
	}
	app.controller = search.NewController(backend, app.bus, opts)

	app.unsubs = append(app.unsubs,
		app.bus.Subscribe(events.TypeFileOpened, app.onFileOpened),
		app.bus.Subscribe(events.TypeError, app.onError),
	)

	app.keyHandler = NewKeyHandler(app, cfg)
	app.snap = app.controller.Snapshot()

	return app
}

// Close stops the controller timers and any command still waiting on it.
func (a *App) Close() {
	a.cancel()
	for _, unsub := range a.unsubs {
		unsub()
	}
	a.controller.Close()
}

// Refresh reloads the listing of the active folder. It is safe to call
// from any goroutine, e.g. a workspace watcher.
func (a *App) Refresh(paths []string) {
	a.log.Debugf("workspace changed: %d paths", len(paths))
	a.bus.Publish(events.FolderSelected{Folder: a.controller.Snapshot().Folder})
}

func (a *App) notifyChange() {
	select {
	case a.changes <- struct{}{}:
	default:
	}
}

func (a *App) onFileOpened(e events.Event) {
	ev, ok := e.(events.FileOpened)
	if !ok || ev.Err != nil {
		return
	}
	a.saveSession(ev.Folder, ev.Filename, a.controller.Snapshot().PreviewMode)
}

func (a *App) onError(e events.Event) {
	if ev, ok := e.(events.Error); ok {
		a.log.Errorf("%s: %v", ev.Op, ev.Err)
	}
}

func (a *App) saveSession(folder, filename string, preview bool) {
	if a.store == nil {
		return
	}
	err := a.store.SaveSession(storage.Session{Folder: folder, Filename: filename, Preview: preview})
	if err != nil {
		a.log.Warnf("saving session: %v", err)
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.waitForChange(),
		a.restoreSession(),
		a.loadHistory(),
		tea.EnterAltScreen,
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case controllerChangedMsg:
		return a, tea.Batch(a.sync(), a.waitForChange())

	case spinner.TickMsg:
		if !a.spinning || a.snap.State != search.StateSearching {
			a.spinning = false
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case sessionLoadedMsg:
		if msg.session.Preview {
			a.controller.SetPreviewMode(true)
		}
		return a, a.selectFolder(msg.session.Folder, msg.session.Filename)

	case historyLoadedMsg:
		a.searchInput.SetSuggestions(msg.queries)
		return a, nil

	case foldersLoadedMsg:
		items := make([]list.Item, 0, len(msg.folders)+1)
		items = append(items, folderItem{})
		for _, f := range msg.folders {
			if f == "" {
				continue
			}
			items = append(items, folderItem{folder: f})
		}
		a.folderList.SetItems(items)
		a.setStatus("", StatusInfo)
		if len(items) == 1 {
			a.setStatus(MsgNoFolders, StatusWarn)
		}
		return a, nil

	case folderSelectedMsg:
		a.view = ViewMain
		a.setFocus(FocusSidebar)
		syncCmd := a.sync()
		a.err = nil
		a.setStatus(MsgFolderLoaded(msg.folder, len(a.snap.Files)), StatusInfo)
		if msg.opened != "" {
			_, cmd := a.Update(fileOpenedMsg{filename: msg.opened, err: msg.err})
			return a, tea.Batch(syncCmd, cmd)
		}
		return a, syncCmd

	case fileOpenedMsg:
		cmd := a.sync()
		switch {
		case msg.err == nil:
			a.err = nil
			a.setStatus(MsgOpened(msg.filename), StatusSuccess)
		case isJumpErr(msg.err):
			a.setStatus(describeErr(msg.err), StatusWarn)
		default:
			a.err = msg.err
		}
		return a, cmd

	case errorMsg:
		a.err = msg.err
		return a, nil
	}

	return a, a.updateFocused(msg)
}

// updateFocused forwards non-key messages such as cursor blinks.
func (a *App) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch {
	case a.focus == FocusSearch:
		a.searchInput, cmd = a.searchInput.Update(msg)
	case a.focus == FocusEditor && !a.snap.PreviewMode:
		a.editor, cmd = a.editor.Update(msg)
	}
	return cmd
}

func (a *App) setFocus(f Focus) tea.Cmd {
	a.focus = f
	a.searchInput.Blur()
	a.editor.Blur()
	switch f {
	case FocusSearch:
		return a.searchInput.Focus()
	case FocusEditor:
		return a.editor.Focus()
	}
	return nil
}

func (a *App) setStatus(msg string, kind StatusKind) {
	a.status = msg
	a.statusKind = kind
}

// sync pulls a snapshot from the controller into the widgets.
func (a *App) sync() tea.Cmd {
	prev := a.snap
	snap := a.controller.Snapshot()
	a.snap = snap

	var cmds []tea.Cmd

	if prev.Folder != snap.Folder || prev.Current != snap.Current || !equalStrings(prev.Files, snap.Files) {
		items := make([]list.Item, len(snap.Files))
		for i, f := range snap.Files {
			items[i] = fileItem{name: f, current: f == snap.Current.Filename && snap.Current.Folder == snap.Folder}
		}
		a.fileList.SetItems(items)
		a.fileList.Title = "› " + folderLabel(snap.Folder)
	}
	if snap.SelectedIndex >= 0 && snap.SelectedIndex != prev.SelectedIndex {
		a.fileList.Select(snap.SelectedIndex)
	}

	if panelChanged(prev.Panel, snap.Panel) {
		items := make([]list.Item, len(snap.Panel.Results))
		for i, r := range snap.Panel.Results {
			items[i] = resultItem{result: r, query: snap.Panel.Query}
		}
		a.resultList.SetItems(items)
		a.resultList.Select(0)
		if snap.Panel.Kind == search.PanelResults {
			a.setStatus(MsgResultsCount(len(items)), StatusInfo)
			cmds = append(cmds, a.loadHistory())
		}
	}

	a.syncEditor(snap)
	a.syncPreview(snap)

	if snap.State == search.StateSearching && !a.spinning {
		a.spinning = true
		cmds = append(cmds, a.spinner.Tick)
	}
	return tea.Batch(cmds...)
}

func (a *App) syncEditor(snap search.Snapshot) {
	text := snap.Editor.Text
	if text != a.editorSource {
		a.editorSource = text
		a.editor.SetValue(text)
		a.controller.SetScrollHeight(float64(search.LineCount(text)))
		a.editorCursor = -1
	}
	if snap.Editor.Cursor != a.editorCursor {
		a.editorCursor = snap.Editor.Cursor
		a.moveEditorCursor(text, snap.Editor.Cursor)
	}
}

func (a *App) moveEditorCursor(text string, offset int) {
	row, col := cursorPosition(text, offset)
	steps := len(text) + 1
	for i := 0; a.editor.Line() > row && i < steps; i++ {
		a.editor.CursorUp()
	}
	for i := 0; a.editor.Line() < row && i < steps; i++ {
		a.editor.CursorDown()
	}
	a.editor.SetCursor(col)
}

func (a *App) syncPreview(snap search.Snapshot) {
	if snap.Preview.Text == a.previewText {
		return
	}
	a.previewText = snap.Preview.Text
	a.preview.SetContent(snap.Preview.Text)
	if snap.Preview.FocusLine >= 0 {
		a.preview.SetYOffset(max(snap.Preview.FocusLine-2, 0))
	}
}

func (a *App) sidebarWidth() int {
	if a.width < 48 {
		return a.width / 2
	}
	return min(max(a.width/3, 24), 48)
}

func (a *App) bodyHeight() int {
	return max(a.height-2, 1)
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height

	body := a.bodyHeight()
	side := a.sidebarWidth()
	pane := max(width-side-1, 1)

	a.searchInput.Width = max(side-6, 1)
	a.fileList.SetSize(side, max(body-2, 1))
	a.resultList.SetSize(side, max(body-5, 1))
	a.folderList.SetSize(width, body)

	a.editor.SetWidth(pane)
	a.editor.SetHeight(max(body-2, 1))
	a.preview.Width = pane
	a.preview.Height = max(body-2, 1)
	a.renderer.SetWidth(pane)

	a.help.Width = width
}

func (a *App) View() string {
	body := a.bodyHeight()

	var content string
	switch a.view {
	case ViewFolders:
		content = ContentWrapper(a.width, body).Render(a.folderList.View())
	default:
		side := a.sidebarWidth()
		pane := max(a.width-side-1, 1)
		divider := SeparatorStyle.Render(strings.TrimSuffix(strings.Repeat("│\n", body), "\n"))
		content = lipgloss.JoinHorizontal(
			lipgloss.Top,
			ContentWrapper(side, body).Render(a.sidebarView()),
			divider,
			ContentWrapper(pane, body).Render(a.paneView(pane, body)),
		)
	}

	separator := SeparatorStyle.Render(strings.Repeat("─", max(a.width, 0)))
	return lipgloss.JoinVertical(lipgloss.Left, content, separator, a.statusBar())
}

func (a *App) tabsView() string {
	var tabs []string
	for _, t := range []search.Tab{search.TabFiles, search.TabSearch} {
		style := TabStyle
		if t == a.snap.Tab {
			style = ActiveTabStyle
		}
		tabs = append(tabs, style.Render(t.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (a *App) sidebarView() string {
	tabs := a.tabsView()
	if a.snap.Tab == search.TabSearch {
		input := renderInputFrame(a.searchInput.View(), a.focus == FocusSearch, a.searchInput.Width)
		return lipgloss.JoinVertical(lipgloss.Left, tabs, "", input, a.panelView())
	}
	if len(a.snap.Files) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, tabs, "", renderMuted("No files in "+folderLabel(a.snap.Folder)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, tabs, "", a.fileList.View())
}

func (a *App) panelView() string {
	p := a.snap.Panel
	switch p.Kind {
	case search.PanelSearching:
		return a.spinner.View() + " " + renderMuted(p.Message)
	case search.PanelMessage:
		if p.Message == search.MsgSearchError {
			return ErrorMessageStyle.Render(p.Message)
		}
		return renderMuted(p.Message)
	case search.PanelResults:
		return a.resultList.View()
	default:
		return renderHelp("Type to search file names and content")
	}
}

func (a *App) paneView(width, height int) string {
	if a.snap.Current.Filename == "" && a.snap.Editor.Text == "" {
		return renderCentered(width, height, GetWelcomeMessage())
	}

	subtitle := folderLabel(a.snap.Current.Folder)
	if a.snap.PreviewMode {
		subtitle += " • preview"
	}
	header := renderHeader(a.snap.DisplayName(), truncateMiddle(subtitle, width-2), width)

	var body string
	switch {
	case a.snap.PreviewMode:
		body = a.preview.View()
	case len(a.snap.Editor.Highlights) > 0:
		body = a.highlightView(width, max(height-2, 1))
	default:
		body = a.editor.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

// highlightView shows the editor buffer with every match marked while a
// highlight is active.
func (a *App) highlightView(width, height int) string {
	ed := a.snap.Editor
	top := int(ed.ScrollTop)
	if first, _ := cursorPosition(ed.Text, ed.Highlights[0].Start); first < top || first >= top+height {
		top = first - height/3
	}
	return ContentWrapper(width, height).Render(renderHighlighted(ed.Text, ed.Highlights, termMarker, max(top, 0), height))
}

func (a *App) statusBar() string {
	if a.err != nil {
		return StatusBarStyle.Width(a.width).Render(
			ErrorMessageStyle.Render(fmt.Sprintf("✗ %s", describeErr(a.err))),
		)
	}

	var parts []string
	if a.status != "" {
		parts = append(parts, a.statusKind.style().Render(a.status))
	}
	parts = append(parts, a.help.ShortHelpView(a.keyHandler.HelpBindings()))
	return StatusBarStyle.Width(a.width).Render(strings.Join(parts, " • "))
}

func folderLabel(folder string) string {
	if folder == "" {
		return MsgRootFolder
	}
	return folder
}

func panelChanged(a, b search.Panel) bool {
	return a.Kind != b.Kind || a.Query != b.Query || a.Message != b.Message || len(a.Results) != len(b.Results)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type fileItem struct {
	name    string
	current bool
}

func (i fileItem) Title() string {
	if i.current {
		return CurrentItemStyle.Render("● " + i.name)
	}
	return i.name
}

func (i fileItem) Description() string { return "" }
func (i fileItem) FilterValue() string { return i.name }

type folderItem struct {
	folder string
}

func (i folderItem) Title() string       { return folderLabel(i.folder) }
func (i folderItem) Description() string { return "" }
func (i folderItem) FilterValue() string { return i.folder }

type resultItem struct {
	result search.Result
	query  string
}

func (i resultItem) Title() string {
	return i.result.Ref().Filename
}

func (i resultItem) Description() string {
	return search.Annotation(i.result, i.query, termMarker)
}

func (i resultItem) FilterValue() string { return i.result.Ref().Filename }
