package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	unicodetok "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"
)

// contentAnalyzer keeps every token, stop words included, so that a
// literal substring query never loses its candidates.
const contentAnalyzer = "typx_content"

// Index holds the searchable prefix of every workspace document.
type Index struct {
	idx bleve.Index
}

// OpenIndex opens or creates a bleve index at indexPath. An empty path
// keeps the index in memory.
func OpenIndex(indexPath string) (*Index, error) {
	if indexPath == "" {
		im, err := buildIndexMapping()
		if err != nil {
			return nil, err
		}
		idx, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("creating in-memory index: %w", err)
		}
		return &Index{idx: idx}, nil
	}

	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	idx, err := bleve.Open(indexPath)
	if err != nil {
		im, mapErr := buildIndexMapping()
		if mapErr != nil {
			return nil, mapErr
		}
		idx, err = bleve.New(indexPath, im)
		if err != nil {
			return nil, fmt.Errorf("creating index at %s: %w", indexPath, err)
		}
	}
	return &Index{idx: idx}, nil
}

func buildIndexMapping() (mapping.IndexMapping, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(contentAnalyzer, map[string]any{
		"type":          custom.Name,
		"tokenizer":     unicodetok.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("registering analyzer: %w", err)
	}
	im.DefaultAnalyzer = contentAnalyzer

	dm := bleve.NewDocumentMapping()

	content := bleve.NewTextFieldMapping()
	content.Analyzer = contentAnalyzer
	content.Store = true
	content.IncludeTermVectors = false

	filename := bleve.NewTextFieldMapping()
	filename.Analyzer = contentAnalyzer
	filename.Store = true

	folder := bleve.NewTextFieldMapping()
	folder.Analyzer = keyword.Name
	folder.Store = true

	dm.AddFieldMappingsAt("content", content)
	dm.AddFieldMappingsAt("filename", filename)
	dm.AddFieldMappingsAt("folder", folder)

	im.DefaultMapping = dm
	return im, nil
}

func (ix *Index) Put(docs ...Document) error {
	if len(docs) == 0 {
		return nil
	}
	batch := ix.idx.NewBatch()
	for _, d := range docs {
		err := batch.Index(d.ID, map[string]any{
			"filename": d.Filename,
			"folder":   d.Folder,
			"content":  d.Content,
		})
		if err != nil {
			return fmt.Errorf("indexing %s: %w", d.ID, err)
		}
	}
	return ix.idx.Batch(batch)
}

func (ix *Index) Delete(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	batch := ix.idx.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return ix.idx.Batch(batch)
}

// Has reports whether a document with id is indexed.
func (ix *Index) Has(id string) bool {
	doc, err := ix.idx.Document(id)
	return err == nil && doc != nil
}

// DocCount reports total documents in the index.
func (ix *Index) DocCount() (int, error) {
	n, err := ix.idx.DocCount()
	return int(n), err
}

// IDs lists every indexed document id.
func (ix *Index) IDs() ([]string, error) {
	total, err := ix.DocCount()
	if err != nil || total == 0 {
		return nil, err
	}
	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), total, 0, false)
	req.Fields = []string{}
	res, err := ix.idx.Search(req)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

// queryTerms runs query through the content analyzer, so a query is cut
// into terms exactly where indexed text is. Ideographs become one term
// each.
func (ix *Index) queryTerms(query string) []string {
	a := ix.idx.Mapping().AnalyzerNamed(contentAnalyzer)
	if a == nil {
		return strings.Fields(strings.ToLower(query))
	}
	tokens := a.Analyze([]byte(query))
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		terms = append(terms, string(tok.Term))
	}
	return terms
}

// Candidates returns the documents that may contain query: every query
// term must occur inside some indexed term. Callers verify the literal
// match.
func (ix *Index) Candidates(query string) ([]Document, error) {
	total, err := ix.DocCount()
	if err != nil || total == 0 {
		return nil, err
	}

	var q bleveQuery.Query
	terms := ix.queryTerms(query)
	if len(terms) == 0 {
		q = bleve.NewMatchAllQuery()
	} else {
		qs := make([]bleveQuery.Query, 0, len(terms))
		for _, term := range terms {
			wq := bleve.NewWildcardQuery("*" + term + "*")
			wq.SetField("content")
			qs = append(qs, wq)
		}
		q = bleve.NewConjunctionQuery(qs...)
	}

	req := bleve.NewSearchRequestOptions(q, total, 0, false)
	req.Fields = []string{"filename", "folder", "content"}
	res, err := ix.idx.Search(req)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(res.Hits))
	for _, h := range res.Hits {
		content, _ := h.Fields["content"].(string)
		docs = append(docs, newDocument(h.ID, content))
	}
	return docs, nil
}

func (ix *Index) Close() error {
	return ix.idx.Close()
}
