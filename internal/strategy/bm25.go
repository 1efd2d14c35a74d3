package strategy

import (
	"context"
	"math"
	"strings"

	"github.com/Aman-CERP/docrank/internal/store"
)

// BM25 parameters. Corpus statistics are fixed constants rather than
// measured, so scores do not depend on corpus size.
const (
	bm25K1           = 1.5
	bm25B            = 0.75
	bm25AvgDocLength = 500.0
	bm25CorpusSize   = 1000.0
)

// BM25Strategy applies a BM25-style formula to every filtered document.
type BM25Strategy struct {
	store store.DocumentStore
}

func NewBM25(ds store.DocumentStore) *BM25Strategy {
	return &BM25Strategy{store: ds}
}

func (s *BM25Strategy) Name() string { return BM25 }
func (s *BM25Strategy) Description() string { return "BM25 probabilistic term scoring" }

func (s *BM25Strategy) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	terms := keywords(query)
	if len(terms) == 0 {
		return []Result{}, nil
	}

	docs, err := s.store.FindByFilter(ctx, opts.filters(), 0)
	if err != nil {
		return nil, storeError("find_by_filter", err)
	}

	results := make([]Result, 0)
	for _, d := range docs {
		text := documentText(d.Title, d.Content)
		docLen := len(strings.Fields(text))
		freqs := make(map[string]int, len(terms))
		score := 0.0
		for _, t := range terms {
			tf := occurrences(text, t)
			freqs[t] = tf
			score += bm25TermScore(tf, docLen)
		}
		if score <= 0 {
			continue
		}
		results = append(results, Result{
			Document:  d,
			Score:     score,
			MatchType: BM25,
			Details: map[string]any{
				"termFreqs": freqs,
				"docLength": docLen,
				"terms":     terms,
			},
		})
	}
	return rank(results, opts.limit()), nil
}

// bm25TermScore is the contribution of one term. A term that does not occur
// contributes nothing.
func bm25TermScore(tf, docLen int) float64 {
	if tf <= 0 {
		return 0
	}
	f := float64(tf)
	idf := math.Log(bm25CorpusSize / (f + 1))
	norm := f + bm25K1*(1-bm25B+bm25B*float64(docLen)/bm25AvgDocLength)
	return idf * f * (bm25K1 + 1) / norm
}
