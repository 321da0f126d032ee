package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/pders01/typx/internal/config"
)

// KeyMap holds the bindings the app intercepts before delegating to the
// focused widget.
type KeyMap struct {
	Quit          key.Binding
	ForceQuit     key.Binding
	Search        key.Binding
	Files         key.Binding
	Folders       key.Binding
	TogglePreview key.Binding
	Back          key.Binding
	SwitchFocus   key.Binding
	Open          key.Binding
	FocusSearch   key.Binding
}

func newKeyMap(cfg *config.Config) KeyMap {
	mod := cfg.Keys.Modifier + "+"
	b := cfg.Keys.Bindings
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys(b.Quit),
			key.WithHelp(b.Quit, "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
		),
		Search: key.NewBinding(
			key.WithKeys(mod+b.Search),
			key.WithHelp(mod+b.Search, "search"),
		),
		Files: key.NewBinding(
			key.WithKeys(mod+b.Files),
			key.WithHelp(mod+b.Files, "files"),
		),
		Folders: key.NewBinding(
			key.WithKeys(mod+b.Folders),
			key.WithHelp(mod+b.Folders, "folders"),
		),
		TogglePreview: key.NewBinding(
			key.WithKeys(mod+b.TogglePreview),
			key.WithHelp(mod+b.TogglePreview, "preview"),
		),
		Back: key.NewBinding(
			key.WithKeys(b.Back),
			key.WithHelp(b.Back, "back"),
		),
		SwitchFocus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		FocusSearch: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
	}
}
