package search

import (
	"maps"
	"sort"

	"github.com/Aman-CERP/docrank/internal/strategy"
)

// Fusion match types.
const (
	MatchTypeWeighted   = "hybrid_weighted"
	MatchTypeRankFusion = "hybrid_rank_fusion"
	MatchTypeVote       = "hybrid_vote"
	cascadePrefix       = "cascade_"
)

// minVotes is the consensus floor for vote fusion.
const minVotes = 2

// Fuse combines per-strategy results with the given method. weights is only
// read by weighted_sum; nil means DefaultWeights. Unknown methods fall back
// to weighted_sum.
//
// Every method except cascade sorts by its own key and then by document ID,
// so identical inputs always produce identical output.
func Fuse(method Method, inputs []StrategyResults, weights map[string]float64) []FusedResult {
	switch method {
	case RankFusion:
		return fuseRanks(inputs)
	case Cascade:
		return fuseCascade(inputs)
	case Vote:
		return fuseVotes(inputs)
	default:
		if weights == nil {
			weights = DefaultWeights()
		}
		return fuseWeighted(inputs, weights)
	}
}

// accumulator collects per-document state in first-seen order.
type accumulator struct {
	byID  map[string]*FusedResult
	order []*FusedResult
}

func newAccumulator(inputs []StrategyResults) *accumulator {
	n := 0
	for _, in := range inputs {
		n += len(in.Results)
	}
	return &accumulator{byID: make(map[string]*FusedResult, n), order: make([]*FusedResult, 0, n)}
}

// add records one strategy hit and returns the document's fused entry.
func (a *accumulator) add(strategyName string, rank int, r strategy.Result) *FusedResult {
	fr, ok := a.byID[r.Document.ID]
	if !ok {
		fr = &FusedResult{Document: r.Document}
		a.byID[r.Document.ID] = fr
		a.order = append(a.order, fr)
	}
	fr.Votes++
	fr.Strategies = append(fr.Strategies, strategyName)
	fr.Contributions = append(fr.Contributions, Contribution{
		Strategy:  strategyName,
		Score:     r.Score,
		Rank:      rank,
		MatchType: r.MatchType,
		Details:   r.Details,
	})
	return fr
}

// sorted returns the entries ordered by score descending, then document ID.
func (a *accumulator) sorted() []FusedResult {
	out := make([]FusedResult, len(a.order))
	for i, fr := range a.order {
		out[i] = *fr
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Document.ID < out[j].Document.ID
	})
	return out
}

// fuseWeighted sums score x weight over the strategies returning a document.
func fuseWeighted(inputs []StrategyResults, weights map[string]float64) []FusedResult {
	acc := newAccumulator(inputs)
	for _, in := range inputs {
		w := weightFor(weights, in.Strategy)
		for i, r := range in.Results {
			fr := acc.add(in.Strategy, i+1, r)
			fr.Score += r.Score * w
		}
	}
	for _, fr := range acc.order {
		fr.MatchType = MatchTypeWeighted
		fr.Details = map[string]any{"combinedStrategies": len(fr.Strategies)}
	}
	return acc.sorted()
}

// fuseRanks sums 1/(position+1) with 0-based positions.
func fuseRanks(inputs []StrategyResults) []FusedResult {
	acc := newAccumulator(inputs)
	for _, in := range inputs {
		for i, r := range in.Results {
			fr := acc.add(in.Strategy, i+1, r)
			fr.Score += 1 / float64(i+1)
		}
	}
	for _, fr := range acc.order {
		fr.MatchType = MatchTypeRankFusion
		fr.Details = map[string]any{"rankScore": fr.Score}
	}
	return acc.sorted()
}

// fuseCascade returns the first non-empty list in its original order.
func fuseCascade(inputs []StrategyResults) []FusedResult {
	for _, in := range inputs {
		if len(in.Results) == 0 {
			continue
		}
		out := make([]FusedResult, len(in.Results))
		for i, r := range in.Results {
			details := make(map[string]any, len(r.Details)+1)
			maps.Copy(details, r.Details)
			details["cascadeStrategy"] = in.Strategy

			out[i] = FusedResult{
				Document:   r.Document,
				Score:      r.Score,
				MatchType:  cascadePrefix + r.MatchType,
				Strategies: []string{in.Strategy},
				Contributions: []Contribution{{
					Strategy:  in.Strategy,
					Score:     r.Score,
					Rank:      i + 1,
					MatchType: r.MatchType,
					Details:   r.Details,
				}},
				Votes:   1,
				Details: details,
			}
		}
		return out
	}
	return []FusedResult{}
}

// fuseVotes keeps documents with at least two backers, ordered by votes and
// then by a running average that halves toward each new score.
func fuseVotes(inputs []StrategyResults) []FusedResult {
	acc := newAccumulator(inputs)
	for _, in := range inputs {
		for i, r := range in.Results {
			fr := acc.add(in.Strategy, i+1, r)
			if fr.Votes == 1 {
				fr.Score = r.Score
			} else {
				fr.Score = (fr.Score + r.Score) / 2
			}
		}
	}

	kept := make([]FusedResult, 0, len(acc.order))
	for _, fr := range acc.order {
		if fr.Votes < minVotes {
			continue
		}
		fr.MatchType = MatchTypeVote
		fr.Details = map[string]any{"votes": fr.Votes, "avgScore": fr.Score}
		kept = append(kept, *fr)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Votes != kept[j].Votes {
			return kept[i].Votes > kept[j].Votes
		}
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].Document.ID < kept[j].Document.ID
	})
	return kept
}
