package strategy

import (
	"context"
	"strings"

	"github.com/Aman-CERP/docrank/internal/store"
)

const ngramSize = 3

// NGramStrategy scores the share of query trigrams present in a document.
type NGramStrategy struct {
	store store.DocumentStore
}

func NewNGram(ds store.DocumentStore) *NGramStrategy {
	return &NGramStrategy{store: ds}
}

func (s *NGramStrategy) Name() string { return NGram }
func (s *NGramStrategy) Description() string { return "Character trigram overlap for partial matches" }

func (s *NGramStrategy) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	qgrams := trigrams(strings.ToLower(query))
	if len(qgrams) == 0 {
		return []Result{}, nil
	}

	docs, err := s.store.FindByFilter(ctx, opts.filters(), 0)
	if err != nil {
		return nil, storeError("find_by_filter", err)
	}

	results := make([]Result, 0)
	for _, d := range docs {
		dgrams := make(map[string]struct{})
		for _, g := range trigrams(documentText(d.Title, d.Content)) {
			dgrams[g] = struct{}{}
		}

		common := 0
		for _, g := range qgrams {
			if _, ok := dgrams[g]; ok {
				common++
			}
		}
		if common == 0 {
			continue
		}
		results = append(results, Result{
			Document:  d,
			Score:     float64(common) / float64(len(qgrams)),
			MatchType: NGram,
			Details: map[string]any{
				"commonNgrams":     common,
				"totalQueryNgrams": len(qgrams),
				"ngramSize":        ngramSize,
			},
		})
	}
	return rank(results, opts.limit()), nil
}
