package search

import (
	"maps"

	"github.com/Aman-CERP/docrank/internal/strategy"
)

// defaultStrategyWeight applies to strategies without a configured weight.
const defaultStrategyWeight = 1.0

// DefaultWeights returns the weighted_sum weights. Strategies not listed
// weigh 1.0.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		strategy.Lexical:   1.0,
		strategy.FullText:  1.2,
		strategy.BM25:      1.1,
		strategy.Fuzzy:     0.8,
		strategy.NGram:     0.7,
		strategy.RuleBased: 1.3,
	}
}

// mergeWeights layers overrides on top of base. Neither input is modified.
func mergeWeights(base, overrides map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(base)+len(overrides))
	maps.Copy(out, base)
	maps.Copy(out, overrides)
	return out
}

func weightFor(weights map[string]float64, name string) float64 {
	if w, ok := weights[name]; ok {
		return w
	}
	return defaultStrategyWeight
}
