package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pders01/typx/internal/config"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func testWorkspaceConfig(root string) config.WorkspaceConfig {
	cfg := config.TestConfig().Workspace
	cfg.Root = root
	cfg.Index = ""
	return cfg
}

// seed lays out a small workspace with a root folder, a subfolder and
// hidden content that must be ignored.
func seed(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "notes.md", "# Notes\nnothing here")
	writeFile(t, root, "todo.md", "first\nsecond\ndo not forget\nfourth\nfifth")
	writeFile(t, root, "image.png", "not markdown")
	writeFile(t, root, "work/plan.md", "Plan\nthe CAT sat")
	writeFile(t, root, "work/deep/log.md", "cat log")
	writeFile(t, root, ".git/HEAD.md", "cat")
	writeFile(t, root, ".hidden.md", "cat")
	return root
}

func openSeeded(t *testing.T) (*Workspace, string) {
	t.Helper()
	root := seed(t)
	ws, err := Open(testWorkspaceConfig(root), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws, root
}

func removeFile(root, rel string) error {
	return os.Remove(filepath.Join(root, filepath.FromSlash(rel)))
}
