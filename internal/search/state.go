package search

// State is the phase of the current query lifecycle.
type State int

const (
	StateIdle State = iota
	StateDebouncing
	StateSearching
	StateRendered
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StateSearching:
		return "searching"
	case StateRendered:
		return "rendered"
	default:
		return "unknown"
	}
}

// Tab selects which side panel is visible.
type Tab int

const (
	TabFiles Tab = iota
	TabSearch
)

func (t Tab) String() string {
	if t == TabSearch {
		return "Search"
	}
	return "Files"
}

// PanelKind describes what the results panel currently shows.
type PanelKind int

const (
	PanelEmpty PanelKind = iota
	PanelSearching
	PanelResults
	PanelMessage
)

// Panel is the content of the search results panel.
type Panel struct {
	Kind    PanelKind
	Query   string
	Results []Result
	Message string
}

// Editor is the raw markdown buffer and its transient view state. Offsets
// are byte offsets into Text.
type Editor struct {
	Text         string
	Cursor       int
	Selection    Range
	Highlights   []Range
	ScrollTop    float64
	ScrollHeight float64
}

// Preview is the rendered buffer. FocusLine is the rendered line holding
// the first highlight, or -1.
type Preview struct {
	Text        string
	FocusLine   int
	Highlighted bool
}

// Snapshot is a consistent copy of controller state for rendering.
type Snapshot struct {
	Rev           uint64
	State         State
	Tab           Tab
	Input         string
	Panel         Panel
	Folder        string
	Files         []string
	SelectedIndex int
	Current       FileRef
	Editor        Editor
	Preview       Preview
	PreviewMode   bool
}

// DisplayName is the visible label for the current file.
func (s Snapshot) DisplayName() string {
	return DisplayName(s.Current.Filename)
}
