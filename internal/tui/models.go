package tui

type View int

const (
	ViewMain View = iota
	ViewFolders
)

// Focus is the pane that receives keys in ViewMain.
type Focus int

const (
	FocusSidebar Focus = iota
	FocusSearch
	FocusEditor
)

func (f Focus) String() string {
	switch f {
	case FocusSearch:
		return "search"
	case FocusEditor:
		return "editor"
	default:
		return "sidebar"
	}
}
