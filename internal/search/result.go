package search

import "context"

// FileRef identifies a document by name and folder. The empty folder is
// the root folder.
type FileRef struct {
	Filename string
	Folder   string
}

// Result is either a FilenameMatch or a ContentMatch.
type Result interface {
	Ref() FileRef
	isResult()
}

// FilenameMatch is produced locally by filtering the cached file list.
type FilenameMatch struct {
	Filename string
	Folder   string
	Path     string
}

func (m FilenameMatch) Ref() FileRef { return FileRef{Filename: m.Filename, Folder: m.Folder} }
func (FilenameMatch) isResult()      {}

// ContentMatch is produced by the content search backend. Line is 1-based;
// zero means the backend did not report one.
type ContentMatch struct {
	Filename string
	Folder   string
	Path     string
	Line     int
	Snippet  string
}

func (m ContentMatch) Ref() FileRef { return FileRef{Filename: m.Filename, Folder: m.Folder} }
func (ContentMatch) isResult()      {}

// Hit is one entry of a content search response.
type Hit struct {
	Filename string `json:"filename"`
	Folder   string `json:"folder,omitempty"`
	Path     string `json:"path,omitempty"`
	Line     int    `json:"line,omitempty"`
	Snippet  string `json:"snippet,omitempty"`
}

// Backend is the document service the controller talks to: the remote
// editor API or a local workspace.
type Backend interface {
	ListFiles(ctx context.Context, folder string) ([]string, error)
	SearchContent(ctx context.Context, query string) ([]Hit, error)
	Open(ctx context.Context, filename, folder string) (string, error)
}

// FolderLister can be implemented by backends that enumerate folders.
type FolderLister interface {
	ListFolders(ctx context.Context) ([]string, error)
}

// QueryRecorder receives every query whose results were rendered.
type QueryRecorder interface {
	RecordQuery(query string) error
}
