package strategy

import (
	"context"
	"strings"

	"github.com/Aman-CERP/docrank/internal/store"
)

const similarityCacheSize = 8192

// FuzzyMatch records the best document word for one query word.
type FuzzyMatch struct {
	Query string  `json:"query"`
	Match string  `json:"match"`
	Score float64 `json:"score"`
}

// FuzzyStrategy tolerates typos by matching each query word to its most
// similar document word by normalised edit distance.
type FuzzyStrategy struct {
	store store.DocumentStore
	sim   *similarityCache
}

func NewFuzzy(ds store.DocumentStore) *FuzzyStrategy {
	return &FuzzyStrategy{store: ds, sim: newSimilarityCache(similarityCacheSize)}
}

func (f *FuzzyStrategy) Name() string { return Fuzzy }
func (f *FuzzyStrategy) Description() string { return "Edit-distance matching tolerant of typos" }

// Similarity exposes the word similarity used for scoring.
func (f *FuzzyStrategy) Similarity(a, b string) float64 {
	return f.sim.similarity(a, b)
}

func (f *FuzzyStrategy) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	qwords := words(query)
	if len(qwords) == 0 {
		return []Result{}, nil
	}

	docs, err := f.store.FindByFilter(ctx, opts.filters(), 0)
	if err != nil {
		return nil, storeError("find_by_filter", err)
	}

	threshold := opts.threshold()
	results := make([]Result, 0)
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dwords := strings.Fields(documentText(d.Title, d.Content))

		total := 0.0
		matches := make([]FuzzyMatch, 0, len(qwords))
		for _, qw := range qwords {
			best := FuzzyMatch{Query: qw}
			for _, dw := range dwords {
				s := f.sim.similarity(qw, dw)
				if s > best.Score && s >= threshold {
					best.Match, best.Score = dw, s
				}
			}
			if best.Score > 0 {
				total += best.Score
				matches = append(matches, best)
			}
		}
		if total <= 0 {
			continue
		}
		results = append(results, Result{
			Document:  d,
			Score:     total / float64(len(qwords)),
			MatchType: Fuzzy,
			Details: map[string]any{
				"matches":   matches,
				"threshold": threshold,
			},
		})
	}
	return rank(results, opts.limit()), nil
}
