package workspace

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentHit(t *testing.T) {
	doc := newDocument("work/todo.md", "first\nsecond\ndo not forget")

	h, ok := doc.hit("NOT", 100)
	require.True(t, ok)
	assert.Equal(t, "todo.md", h.Filename)
	assert.Equal(t, "work", h.Folder)
	assert.Equal(t, "work/todo.md", h.Path)
	assert.Equal(t, 3, h.Line)
	assert.Equal(t, "first second do not forget", h.Snippet)

	_, ok = doc.hit("absent", 100)
	assert.False(t, ok)
}

func TestDocumentHitWindow(t *testing.T) {
	content := strings.Repeat("a", 80) + "needle" + strings.Repeat("b", 80)
	h, ok := newDocument("x.md", content).hit("needle", 100)
	require.True(t, ok)

	assert.Len(t, h.Snippet, 100)
	assert.True(t, strings.HasPrefix(h.Snippet, strings.Repeat("a", 50)+"needle"))
	assert.Equal(t, "", newDocument("x.md", content).Folder)
}

func TestDocumentHitKeepsRunes(t *testing.T) {
	content := strings.Repeat("é", 40) + "cat"
	h, ok := newDocument("x.md", content).hit("cat", 10)
	require.True(t, ok)
	assert.True(t, utf8.ValidString(h.Snippet))
	assert.Equal(t, "ééécat", h.Snippet)
}

func TestDocumentChecksum(t *testing.T) {
	a := newDocument("a.md", "same")
	b := newDocument("b.md", "same")
	c := newDocument("a.md", "different")
	assert.Equal(t, a.Sum, b.Sum)
	assert.NotEqual(t, a.Sum, c.Sum)
}

func TestLoadDocumentReadLimit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "big.md", strings.Repeat("x", 64)+"tail")

	doc, err := loadDocument(root, "big.md", 64)
	require.NoError(t, err)
	assert.Len(t, doc.Content, 64)
	_, ok := doc.hit("tail", 100)
	assert.False(t, ok)
}
