package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"runtime"
	"sort"
	"sync"

	"github.com/pders01/typx/internal/config"
	"github.com/pders01/typx/internal/debuglog"
	"github.com/pders01/typx/internal/search"
	"github.com/pders01/typx/internal/validation"
	"golang.org/x/sync/errgroup"
)

var ErrOutsideRoot = validation.ErrOutsideRoot

// ChecksumStore persists content hashes so unchanged files are not
// reindexed across runs.
type ChecksumStore interface {
	Checksum(id string) (uint64, bool, error)
	PutChecksum(id string, sum uint64) error
	DeleteChecksum(id string) error
}

// Workspace serves the editor operations from a local directory of
// markdown files.
type Workspace struct {
	root      string
	scanner   *Scanner
	index     *Index
	sums      ChecksumStore
	readLimit int
	window    int
	log       *debuglog.FieldLogger

	mu sync.Mutex
}

var _ search.Backend = (*Workspace)(nil)
var _ search.FolderLister = (*Workspace)(nil)

// Stats summarizes a Rebuild.
type Stats struct {
	Indexed   int
	Unchanged int
	Removed   int
}

// Open prepares a workspace for cfg.Root. A nil sums keeps hashes in
// memory only.
func Open(cfg config.WorkspaceConfig, sums ChecksumStore) (*Workspace, error) {
	info, err := os.Stat(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root %s is not a directory", cfg.Root)
	}

	scanner, err := NewScanner(cfg.Root, cfg.Include, cfg.Exclude)
	if err != nil {
		return nil, err
	}
	index, err := OpenIndex(cfg.Index)
	if err != nil {
		return nil, err
	}
	if sums == nil {
		sums = newMemChecksums()
	}

	window := cfg.SnippetWindow
	if window <= 0 {
		window = 100
	}
	return &Workspace{
		root:      cfg.Root,
		scanner:   scanner,
		index:     index,
		sums:      sums,
		readLimit: cfg.ReadLimit,
		window:    window,
		log:       debuglog.Component("workspace"),
	}, nil
}

func (w *Workspace) Root() string { return w.root }

func (w *Workspace) Close() error {
	return w.index.Close()
}

// Rebuild brings the index in line with the directory: new and changed
// files are (re)indexed in parallel, vanished ones removed.
func (w *Workspace) Rebuild(ctx context.Context) (Stats, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	files, err := w.scanner.Files()
	if err != nil {
		return Stats{}, fmt.Errorf("scanning workspace: %w", err)
	}

	docs := make([]Document, len(files))
	changed := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := loadDocument(w.root, rel, w.readLimit)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			docs[i] = doc
			prev, ok, err := w.sums.Checksum(rel)
			if err != nil {
				return err
			}
			changed[i] = !ok || prev != doc.Sum || !w.index.Has(rel)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	var stats Stats
	var batch []Document
	present := make(map[string]bool, len(files))
	for i, doc := range docs {
		if doc.ID == "" {
			continue
		}
		present[doc.ID] = true
		if !changed[i] {
			stats.Unchanged++
			continue
		}
		batch = append(batch, doc)
	}
	if err := w.index.Put(batch...); err != nil {
		return stats, err
	}
	for _, doc := range batch {
		if err := w.sums.PutChecksum(doc.ID, doc.Sum); err != nil {
			return stats, err
		}
	}
	stats.Indexed = len(batch)

	ids, err := w.index.IDs()
	if err != nil {
		return stats, err
	}
	var gone []string
	for _, id := range ids {
		if !present[id] {
			gone = append(gone, id)
		}
	}
	if err := w.remove(gone...); err != nil {
		return stats, err
	}
	stats.Removed = len(gone)

	w.log.Infof("index rebuilt: %d indexed, %d unchanged, %d removed", stats.Indexed, stats.Unchanged, stats.Removed)
	return stats, nil
}

func (w *Workspace) remove(ids ...string) error {
	if err := w.index.Delete(ids...); err != nil {
		return err
	}
	for _, id := range ids {
		if err := w.sums.DeleteChecksum(id); err != nil {
			return err
		}
	}
	return nil
}

// Refresh reindexes a single file, or drops it when it no longer exists
// or is no longer included.
func (w *Workspace) Refresh(rel string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.scanner.Included(rel) {
		if w.index.Has(rel) {
			return w.remove(rel)
		}
		return nil
	}

	doc, err := loadDocument(w.root, rel, w.readLimit)
	if errors.Is(err, fs.ErrNotExist) {
		return w.remove(rel)
	}
	if err != nil {
		return err
	}

	if prev, ok, err := w.sums.Checksum(rel); err == nil && ok && prev == doc.Sum && w.index.Has(rel) {
		return nil
	}
	if err := w.index.Put(doc); err != nil {
		return err
	}
	return w.sums.PutChecksum(rel, doc.Sum)
}

// ListFiles returns the included files directly inside folder.
func (w *Workspace) ListFiles(_ context.Context, folder string) ([]string, error) {
	dir, err := validation.Within(w.root, folder)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading folder %q: %w", folder, err)
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if w.scanner.Included(path.Join(folder, e.Name())) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func (w *Workspace) ListFolders(_ context.Context) ([]string, error) {
	return w.scanner.Folders()
}

// SearchContent returns one hit per document whose indexed prefix
// contains query, ordered by path.
func (w *Workspace) SearchContent(ctx context.Context, query string) ([]search.Hit, error) {
	if query == "" {
		return nil, nil
	}
	docs, err := w.index.Candidates(query)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	hits := make([]search.Hit, 0, len(docs))
	for _, d := range docs {
		if h, ok := d.hit(query, w.window); ok {
			hits = append(hits, h)
		}
	}
	return hits, nil
}

// Open returns the full content of filename in folder.
func (w *Workspace) Open(_ context.Context, filename, folder string) (string, error) {
	if err := validation.ValidateName(filename); err != nil {
		return "", err
	}
	p, err := validation.Within(w.root, folder, filename)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", filename, err)
	}
	return string(data), nil
}

type memChecksums struct {
	mu   sync.Mutex
	sums map[string]uint64
}

func newMemChecksums() *memChecksums {
	return &memChecksums{sums: make(map[string]uint64)}
}

func (m *memChecksums) Checksum(id string) (uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum, ok := m.sums[id]
	return sum, ok, nil
}

func (m *memChecksums) PutChecksum(id string, sum uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sums[id] = sum
	return nil
}

func (m *memChecksums) DeleteChecksum(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sums, id)
	return nil
}
