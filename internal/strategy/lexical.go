package strategy

import (
	"context"
	"strings"

	"github.com/Aman-CERP/docrank/internal/store"
)

var titleAndContent = []store.Field{store.FieldTitle, store.FieldContent}

// LexicalStrategy scores keyword occurrences, weighting title hits three times
// content hits.
type LexicalStrategy struct {
	store store.DocumentStore
}

func NewLexical(ds store.DocumentStore) *LexicalStrategy {
	return &LexicalStrategy{store: ds}
}

func (l *LexicalStrategy) Name() string { return Lexical }
func (l *LexicalStrategy) Description() string { return "Keyword substring matching with title boost" }

func (l *LexicalStrategy) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	kws := keywords(query)
	if len(kws) == 0 {
		return []Result{}, nil
	}

	docs, err := l.store.FindBySubstring(ctx, titleAndContent, kws, opts.filters(), opts.limit())
	if err != nil {
		return nil, storeError("find_by_substring", err)
	}

	results := make([]Result, 0, len(docs))
	for _, d := range docs {
		title := strings.ToLower(d.Title)
		content := strings.ToLower(d.Content)
		var tm, cm int
		for _, kw := range kws {
			tm += occurrences(title, kw)
			cm += occurrences(content, kw)
		}
		results = append(results, Result{
			Document:  d,
			Score:     float64(tm*3 + cm),
			MatchType: Lexical,
			Details: map[string]any{
				"titleMatches":   tm,
				"contentMatches": cm,
				"keywords":       kws,
			},
		})
	}
	return rank(results, 0), nil
}
