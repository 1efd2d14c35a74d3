// Package search fuses the results of several retrieval strategies into one
// ranked list. The Service fans a query out to the requested strategies in
// parallel and combines their results with one of four fusion methods.
package search

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/docrank/internal/store"
	"github.com/Aman-CERP/docrank/internal/strategy"
)

// Method selects how strategy results are combined.
type Method string

const (
	// WeightedSum sums score x strategy weight per document.
	WeightedSum Method = "weighted_sum"

	// RankFusion sums reciprocal ranks and ignores raw scores.
	RankFusion Method = "rank_fusion"

	// Cascade returns the first non-empty strategy list unchanged.
	Cascade Method = "cascade"

	// Vote keeps documents returned by at least two strategies.
	Vote Method = "vote"
)

// DefaultMethod is used when a request names no method.
const DefaultMethod = WeightedSum

// DefaultStrategies run when a request names none and does not ask for a
// recommendation.
func DefaultStrategies() []string {
	return []string{strategy.Lexical, strategy.FullText}
}

// Methods lists the fusion methods in documentation order.
func Methods() []Method {
	return []Method{WeightedSum, RankFusion, Cascade, Vote}
}

// ParseMethod converts a method name. The empty string selects DefaultMethod.
func ParseMethod(s string) (Method, error) {
	if s == "" {
		return DefaultMethod, nil
	}
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Methods() {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown fusion method %q", s)
}

// Request configures one hybrid search.
type Request struct {
	// Options are passed to every strategy. Limit also bounds the fused list.
	strategy.Options

	// Strategies names the strategies to run, in order. Order matters for
	// cascade. Empty means the service defaults, or the recommender's pick
	// when Recommend is set.
	Strategies []string

	// Recommend lets the recommender choose strategies for an empty
	// Strategies list.
	Recommend bool

	// Weights overrides default strategy weights for weighted_sum.
	Weights map[string]float64

	// Method is the fusion method (default: weighted_sum).
	Method Method
}

// StrategyResults is one strategy's ranked output, the unit of fusion input.
type StrategyResults struct {
	Strategy string
	Results  []strategy.Result
}

// Contribution records what one strategy contributed to a fused result.
type Contribution struct {
	Strategy  string         `json:"strategy"`
	Score     float64        `json:"score"`
	Rank      int            `json:"rank"` // 1-indexed position in the strategy's list
	MatchType string         `json:"matchType"`
	Details   map[string]any `json:"details,omitempty"`
}

// FusedResult is one document after fusion.
type FusedResult struct {
	Document *store.Document `json:"document"`

	// Score is on the scale of the fusion method that produced it.
	Score float64 `json:"score"`

	MatchType string `json:"matchType"`

	// Strategies lists contributing strategies in encounter order.
	Strategies []string `json:"strategies"`

	Contributions []Contribution `json:"contributions"`

	// Votes is the number of strategies that returned the document.
	Votes int `json:"votes"`

	// Details carries method-specific explain data.
	Details map[string]any `json:"details,omitempty"`
}

// StrategyInfo describes a registered strategy.
type StrategyInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
