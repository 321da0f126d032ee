// Package events carries the cross-module notifications of the editor
// (folder and file selection) on a typed in-process bus.
package events

// Type identifies an event kind.
type Type string

const (
	TypeFolderSelected Type = "FolderSelected"
	TypeFileSelected   Type = "FileSelected"
	TypeFileOpened     Type = "FileOpened"
	TypeError          Type = "Error"
)

// Event is implemented by every payload published on the bus.
type Event interface {
	Type() Type
}

// FolderSelected is published when the user picks a folder. The search
// controller rebuilds its filename index in response.
type FolderSelected struct {
	Folder string
}

func (FolderSelected) Type() Type { return TypeFolderSelected }

// FileSelected is published when a file becomes the current document.
type FileSelected struct {
	Filename string
	Folder   string
}

func (FileSelected) Type() Type { return TypeFileSelected }

// FileOpened reports the outcome of loading a file's content.
type FileOpened struct {
	Filename string
	Folder   string
	Err      error
}

func (FileOpened) Type() Type { return TypeFileOpened }

// Error surfaces a recovered failure to whoever displays status.
type Error struct {
	Op  string
	Err error
}

func (Error) Type() Type { return TypeError }
