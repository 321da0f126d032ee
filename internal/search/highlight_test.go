package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHighlightSnippet(t *testing.T) {
	tests := []struct {
		name    string
		snippet string
		query   string
		want    string
	}{
		{"single", "The cat sat", "cat", "The <mark>cat</mark> sat"},
		{"case insensitive", "Cat and CAT", "cat", "<mark>Cat</mark> and <mark>CAT</mark>"},
		{"literal dot", "a.b axb", "a.b", "<mark>a.b</mark> axb"},
		{"no wildcard", "axb", "a.b", "axb"},
		{"brackets", "see [x] and (y)", "[x]", "see <mark>[x]</mark> and (y)"},
		{"empty query", "The cat sat", "", "The cat sat"},
		{"missing snippet", "", "cat", MsgNoSnippet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HighlightSnippet(tt.snippet, tt.query, HTMLMarker))
		})
	}
}

func TestHighlightSingleOccurrence(t *testing.T) {
	out, ranges := Highlight("The cat sat", "cat", HTMLMarker)
	assert.Equal(t, 1, strings.Count(out, "<mark>cat</mark>"))
	assert.Equal(t, []Range{{Start: 4, End: 7}}, ranges)
	assert.Equal(t, "The cat sat", strings.NewReplacer("<mark>", "", "</mark>", "").Replace(out))
}

func TestFindAll(t *testing.T) {
	assert.Equal(t, []Range{{0, 2}, {3, 5}}, FindAll("ab ab", "AB"))
	assert.Nil(t, FindAll("ab", ""))
	assert.Empty(t, FindAll("ab", "c"))
}

func TestPattern(t *testing.T) {
	assert.Nil(t, Pattern(""))
	re := Pattern("1+1")
	assert.True(t, re.MatchString("is 1+1 two"))
	assert.False(t, re.MatchString("11"))
}

func TestMarkerFunc(t *testing.T) {
	m := MarkerFunc(func(s string) string { return "*" + s + "*" })
	assert.Equal(t, "a *b* c", HighlightSnippet("a b c", "b", m))
}
