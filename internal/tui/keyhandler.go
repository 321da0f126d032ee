package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/typx/internal/config"
	"github.com/pders01/typx/internal/search"
)

type KeyHandler struct {
	app         *App
	config      *config.Config
	modifierKey string
	keys        KeyMap
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	return &KeyHandler{
		app:         app,
		config:      cfg,
		modifierKey: cfg.Keys.Modifier + "+",
		keys:        newKeyMap(cfg),
	}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, kh.keys.ForceQuit) {
		return kh.app, tea.Quit
	}

	if model, cmd, handled := kh.handleGlobalKeys(msg); handled {
		return model, cmd
	}

	if kh.app.view == ViewFolders {
		return kh.handleFoldersKeys(msg)
	}

	switch kh.app.focus {
	case FocusSearch:
		return kh.handleSearchKeys(msg)
	case FocusEditor:
		return kh.handleEditorKeys(msg)
	default:
		return kh.handleSidebarKeys(msg)
	}
}

// isInTextInputMode reports whether plain keys are text rather than
// commands.
func (kh *KeyHandler) isInTextInputMode() bool {
	switch {
	case kh.app.view == ViewFolders:
		return kh.app.folderList.FilterState() == list.Filtering
	case kh.app.focus == FocusSearch:
		return true
	case kh.app.focus == FocusEditor:
		return !kh.app.snap.PreviewMode
	default:
		return kh.app.snap.Tab == search.TabFiles && kh.app.fileList.FilterState() == list.Filtering
	}
}

func (kh *KeyHandler) handleGlobalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, kh.keys.Search):
		model, cmd := kh.enterSearchMode()
		return model, cmd, true
	case key.Matches(msg, kh.keys.Files):
		model, cmd := kh.enterFilesMode()
		return model, cmd, true
	case key.Matches(msg, kh.keys.Folders):
		kh.app.view = ViewFolders
		kh.app.setStatus(MsgLoadingFolders, StatusInfo)
		return kh.app, kh.app.loadFolders(), true
	case key.Matches(msg, kh.keys.TogglePreview):
		on := kh.app.controller.TogglePreview()
		if on {
			kh.app.setStatus(MsgPreviewOn, StatusInfo)
		} else {
			kh.app.setStatus(MsgPreviewOff, StatusInfo)
		}
		return kh.app, tea.Batch(kh.app.sync(), kh.app.persistSession()), true
	case key.Matches(msg, kh.keys.Quit) && !kh.isInTextInputMode():
		return kh.app, tea.Quit, true
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) handleFoldersKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if kh.app.folderList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, kh.keys.Back):
			return kh.navigateBack()
		case key.Matches(msg, kh.keys.Open):
			if i, ok := kh.app.folderList.SelectedItem().(folderItem); ok {
				return kh.app, kh.app.selectFolder(i.folder, "")
			}
			return kh.app, nil
		}
	}

	var cmd tea.Cmd
	kh.app.folderList, cmd = kh.app.folderList.Update(msg)
	return kh.app, cmd
}

func (kh *KeyHandler) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, kh.keys.Back):
		return kh.navigateBack()
	case key.Matches(msg, kh.keys.Open), msg.String() == "down":
		if len(kh.app.resultList.Items()) > 0 {
			kh.app.setFocus(FocusSidebar)
			kh.app.resultList.Select(0)
		}
		return kh.app, nil
	}

	prev := kh.app.searchInput.Value()
	var cmd tea.Cmd
	kh.app.searchInput, cmd = kh.app.searchInput.Update(msg)
	if value := kh.app.searchInput.Value(); value != prev {
		kh.app.controller.Input(sanitizeSearchInput(value))
	}
	return kh.app, cmd
}

func (kh *KeyHandler) handleEditorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, kh.keys.Back):
		return kh.navigateBack()
	case key.Matches(msg, kh.keys.SwitchFocus):
		return kh.app, kh.app.setFocus(FocusSidebar)
	}

	var cmd tea.Cmd
	if kh.app.snap.PreviewMode {
		kh.app.preview, cmd = kh.app.preview.Update(msg)
		return kh.app, cmd
	}

	prev := kh.app.editor.Value()
	kh.app.editor, cmd = kh.app.editor.Update(msg)
	if value := kh.app.editor.Value(); value != prev {
		kh.app.editorSource = value
		kh.app.controller.SetEditorText(value)
	}
	return kh.app, cmd
}

func (kh *KeyHandler) handleSidebarKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if kh.app.snap.Tab == search.TabSearch {
		return kh.handleResultKeys(msg)
	}

	if kh.app.fileList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, kh.keys.Back):
			return kh.navigateBack()
		case key.Matches(msg, kh.keys.SwitchFocus):
			return kh.app, kh.app.setFocus(FocusEditor)
		case key.Matches(msg, kh.keys.Open):
			if i, ok := kh.app.fileList.SelectedItem().(fileItem); ok {
				kh.app.setStatus(MsgOpening, StatusInfo)
				return kh.app, kh.app.openListed(i.name)
			}
			return kh.app, nil
		}
	}

	var cmd tea.Cmd
	kh.app.fileList, cmd = kh.app.fileList.Update(msg)
	return kh.app, cmd
}

func (kh *KeyHandler) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, kh.keys.Back):
		return kh.navigateBack()
	case key.Matches(msg, kh.keys.SwitchFocus):
		return kh.app, kh.app.setFocus(FocusEditor)
	case key.Matches(msg, kh.keys.FocusSearch):
		return kh.app, kh.app.setFocus(FocusSearch)
	case msg.String() == "up" && kh.app.resultList.Index() == 0:
		return kh.app, kh.app.setFocus(FocusSearch)
	case key.Matches(msg, kh.keys.Open):
		if i, ok := kh.app.resultList.SelectedItem().(resultItem); ok {
			kh.app.setStatus(MsgOpening, StatusInfo)
			return kh.app, kh.app.openResult(i.result)
		}
		return kh.app, nil
	}

	var cmd tea.Cmd
	kh.app.resultList, cmd = kh.app.resultList.Update(msg)
	return kh.app, cmd
}

// navigateBack unwinds one level: picker, then focus, then tab. From the
// file list it quits.
func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	kh.app.err = nil
	switch {
	case kh.app.view == ViewFolders:
		kh.app.view = ViewMain
		return kh.app, nil
	case kh.app.focus == FocusSearch, kh.app.focus == FocusEditor:
		return kh.app, kh.app.setFocus(FocusSidebar)
	case kh.app.snap.Tab == search.TabSearch:
		return kh.enterFilesMode()
	default:
		return kh.app, tea.Quit
	}
}

func (kh *KeyHandler) enterSearchMode() (tea.Model, tea.Cmd) {
	kh.app.view = ViewMain
	kh.app.controller.SetTab(search.TabSearch)
	return kh.app, tea.Batch(kh.app.sync(), kh.app.setFocus(FocusSearch))
}

func (kh *KeyHandler) enterFilesMode() (tea.Model, tea.Cmd) {
	kh.app.view = ViewMain
	kh.app.controller.SetTab(search.TabFiles)
	kh.app.setFocus(FocusSidebar)
	return kh.app, kh.app.sync()
}

// HelpBindings lists the bindings shown in the status bar for the
// current view and focus.
func (kh *KeyHandler) HelpBindings() []key.Binding {
	k := kh.keys
	switch {
	case kh.app.view == ViewFolders:
		return []key.Binding{k.Open, k.Back, k.Quit}
	case kh.app.focus == FocusSearch:
		return []key.Binding{k.Open, k.Back, k.Files, k.TogglePreview}
	case kh.app.focus == FocusEditor:
		return []key.Binding{k.SwitchFocus, k.Back, k.Search, k.TogglePreview}
	default:
		return []key.Binding{k.Open, k.SwitchFocus, k.Search, k.Files, k.Folders, k.TogglePreview, k.Quit}
	}
}
