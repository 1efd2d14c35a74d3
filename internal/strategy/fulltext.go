package strategy

import (
	"context"
	"log/slog"

	"github.com/Aman-CERP/docrank/internal/store"
)

// FullTextStrategy delegates to the store's ranked full-text capability and
// falls back to lexical matching when the store has none or it fails.
type FullTextStrategy struct {
	store    store.DocumentStore
	fallback Strategy
}

// NewFullText creates the strategy. A nil fallback uses a lexical strategy
// over the same store.
func NewFullText(ds store.DocumentStore, fallback Strategy) *FullTextStrategy {
	if fallback == nil {
		fallback = NewLexical(ds)
	}
	return &FullTextStrategy{store: ds, fallback: fallback}
}

func (f *FullTextStrategy) Name() string { return FullText }
func (f *FullTextStrategy) Description() string { return "Ranked prefix full-text search" }

func (f *FullTextStrategy) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	kws := keywords(query)
	if len(kws) == 0 {
		return []Result{}, nil
	}

	fts, ok := f.store.(store.FullTextSearcher)
	if !ok {
		slog.Debug("fulltext_fallback", slog.String("reason", "unsupported"))
		return f.fallback.Search(ctx, query, opts)
	}

	pq := store.PrefixQuery(kws)
	hits, err := fts.RankedFullText(ctx, pq, opts.filters(), opts.limit())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("fulltext_fallback",
			slog.String("reason", "error"),
			slog.String("error", err.Error()))
		return f.fallback.Search(ctx, query, opts)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, Result{
			Document:  h.Document,
			Score:     h.Rank,
			MatchType: FullText,
			Details: map[string]any{
				"headline": h.Headline,
				"rank":     h.Rank,
				"query":    pq.String(),
			},
		})
	}
	return results, nil
}
