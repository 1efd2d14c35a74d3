// Package strategy implements the independent retrieval strategies that the
// hybrid search service fans out to. Each strategy queries the document store
// and scores candidates on its own scale.
package strategy

import (
	"cmp"
	"context"
	"errors"
	"slices"

	docerrors "github.com/Aman-CERP/docrank/internal/errors"
	"github.com/Aman-CERP/docrank/internal/store"
)

// Strategy names.
const (
	Lexical    = "lexical"
	FullText   = "fulltext"
	BM25       = "bm25"
	Fuzzy      = "fuzzy"
	NGram      = "ngram"
	RuleBased  = "rule_based"
	Graph      = "graph"
	Topic      = "topic"
	Contextual = "contextual"
)

const (
	// DefaultLimit is used when Options.Limit is zero.
	DefaultLimit = 10
	// DefaultFuzzyThreshold is used when Options.FuzzyThreshold is nil.
	DefaultFuzzyThreshold = 0.6
)

// Options narrows and bounds a strategy search.
type Options struct {
	Limit          int
	Technology     string
	Type           string
	// FuzzyThreshold is the minimum word similarity for fuzzy matches. Nil
	// means DefaultFuzzyThreshold; zero is a valid threshold.
	FuzzyThreshold *float64
}

// Threshold returns a FuzzyThreshold value.
func Threshold(v float64) *float64 {
	return &v
}

func (o Options) limit() int {
	if o.Limit <= 0 {
		return DefaultLimit
	}
	return o.Limit
}

func (o Options) threshold() float64 {
	if o.FuzzyThreshold == nil {
		return DefaultFuzzyThreshold
	}
	return *o.FuzzyThreshold
}

func (o Options) filters() store.Filters {
	return store.Filters{Technology: o.Technology, Type: o.Type}
}

// Result is one document scored by one strategy. Score is only comparable
// with other results of the same strategy.
type Result struct {
	Document  *store.Document `json:"document"`
	Score     float64         `json:"score"`
	MatchType string          `json:"matchType"`
	Details   map[string]any  `json:"details,omitempty"`
}

// Strategy is a named retrieval method. Search returns an empty slice, not
// an error, when nothing matches.
type Strategy interface {
	Name() string
	Description() string
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
}

// Registry maps names to strategies and keeps registration order.
type Registry struct {
	order  []string
	byName map[string]Strategy
}

// NewRegistry registers ss in order. Later duplicates replace earlier ones.
func NewRegistry(ss ...Strategy) *Registry {
	r := &Registry{byName: make(map[string]Strategy, len(ss))}
	for _, s := range ss {
		if _, ok := r.byName[s.Name()]; !ok {
			r.order = append(r.order, s.Name())
		}
		r.byName[s.Name()] = s
	}
	return r
}

// NewDefaultRegistry registers all nine strategies over ds.
func NewDefaultRegistry(ds store.DocumentStore) *Registry {
	lex := NewLexical(ds)
	return NewRegistry(
		lex,
		NewFullText(ds, lex),
		NewBM25(ds),
		NewFuzzy(ds),
		NewNGram(ds),
		NewRuleBased(ds),
		NewGraph(ds),
		NewTopic(ds),
		NewContextual(ds),
	)
}

// Get looks up a strategy by name.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.order)
}

// All returns the strategies in registration order.
func (r *Registry) All() []Strategy {
	out := make([]Strategy, len(r.order))
	for i, n := range r.order {
		out[i] = r.byName[n]
	}
	return out
}

// storeError types a store failure, leaving context errors alone.
func storeError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, docerrors.ErrStoreUnavailable) {
		return err
	}
	return docerrors.StoreUnavailable(op, err)
}

// rank sorts by score descending, then document ID, and truncates.
func rank(rs []Result, limit int) []Result {
	slices.SortStableFunc(rs, func(a, b Result) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Document.ID, b.Document.ID)
	})
	if limit > 0 && len(rs) > limit {
		rs = rs[:limit]
	}
	return rs
}
