package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search/query"
)

const (
	// WordTokenizerName is the bleve registry name of TokenizeWords.
	WordTokenizerName = "docrank_words"
	// WordAnalyzerName is the analyzer used for title and content.
	WordAnalyzerName = "docrank_text"

	headlineFallbackLen = 160
)

func init() {
	_ = registry.RegisterTokenizer(WordTokenizerName, func(map[string]interface{}, *registry.Cache) (analysis.Tokenizer, error) {
		return wordTokenizer{}, nil
	})
}

// BleveIndex is an in-memory bleve index over a fixed document set. It
// gives the memory backend a ranked full-text capability.
type BleveIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	docs   map[string]*Document
	closed bool
}

var _ FullTextSearcher = (*BleveIndex)(nil)

type bleveDocument struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	Technology string `json:"technology"`
	Type       string `json:"type"`
}

// NewBleveIndex builds an in-memory index over docs.
func NewBleveIndex(docs []*Document) (*BleveIndex, error) {
	m, err := newIndexMapping()
	if err != nil {
		return nil, err
	}

	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	b := &BleveIndex{index: idx, docs: make(map[string]*Document, len(docs))}
	batch := idx.NewBatch()
	for _, d := range docs {
		if err := batch.Index(d.ID, bleveDocument{
			Title:      d.Title,
			Content:    d.Content,
			Technology: d.Technology,
			Type:       d.Type,
		}); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("failed to index document %s: %w", d.ID, err)
		}
		b.docs[d.ID] = d
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to execute batch: %w", err)
	}
	return b, nil
}

func newIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(WordAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": WordTokenizerName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}
	im.DefaultAnalyzer = WordAnalyzerName

	text := bleve.NewTextFieldMapping()
	text.Analyzer = WordAnalyzerName
	keyword := bleve.NewKeywordFieldMapping()

	dm := bleve.NewDocumentMapping()
	dm.AddFieldMappingsAt("title", text)
	dm.AddFieldMappingsAt("content", text)
	dm.AddFieldMappingsAt("technology", keyword)
	dm.AddFieldMappingsAt("type", keyword)
	im.DefaultMapping = dm

	return im, nil
}

// RankedFullText requires every query term to prefix-match a title or
// content word. Rank is the bleve relevance score.
func (b *BleveIndex) RankedFullText(ctx context.Context, pq PrefixQuery, f Filters, limit int) ([]RankedHit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}

	conj := bleve.NewConjunctionQuery()
	terms := 0
	for _, t := range pq {
		// query terms go through the same tokenizer as the indexed text
		for _, tok := range TokenizeWords(t) {
			title := bleve.NewPrefixQuery(tok)
			title.SetField("title")
			content := bleve.NewPrefixQuery(tok)
			content.SetField("content")
			conj.AddQuery(bleve.NewDisjunctionQuery(title, content))
			terms++
		}
	}
	if terms == 0 {
		return []RankedHit{}, nil
	}
	if f.Technology != "" {
		tq := bleve.NewTermQuery(f.Technology)
		tq.SetField("technology")
		conj.AddQuery(tq)
	}
	if f.Type != "" {
		tq := bleve.NewTermQuery(f.Type)
		tq.SetField("type")
		conj.AddQuery(tq)
	}

	var q query.Query = conj
	if len(f.ExcludeIDs) > 0 {
		bq := bleve.NewBooleanQuery()
		bq.AddMust(conj)
		bq.AddMustNot(bleve.NewDocIDQuery(f.ExcludeIDs))
		q = bq
	}

	size := limit
	if size <= 0 {
		size = len(b.docs)
	}
	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Highlight.AddField("content")
	req.SortBy([]string{"-_score", "_id"})

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]RankedHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		d, ok := b.docs[h.ID]
		if !ok {
			continue
		}
		headline := strings.Join(h.Fragments["content"], " ... ")
		if headline == "" {
			headline = leadingText(d.Content, headlineFallbackLen)
		}
		hits = append(hits, RankedHit{Document: d, Rank: h.Score, Headline: headline})
	}
	return hits, nil
}

// Close releases the index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

func leadingText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

type wordTokenizer struct{}

// Tokenize mirrors TokenizeWords while tracking byte offsets for highlighting.
func (wordTokenizer) Tokenize(input []byte) analysis.TokenStream {
	stream := make(analysis.TokenStream, 0)
	pos := 1
	emit := func(term string, start, end int) {
		stream = append(stream, &analysis.Token{
			Term:     []byte(strings.ToLower(term)),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
	}

	text := string(input)
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		word := text[start:end]
		emit(word, start, end)
		if parts := SplitCamelCase(word); len(parts) > 1 {
			off := start
			for _, p := range parts {
				if len([]rune(p)) >= 2 {
					emit(p, off, off+len(p))
				}
				off += len(p)
			}
		}
		start = -1
	}

	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(text))
	return stream
}
