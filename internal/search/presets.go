package search

import (
	"strings"

	"github.com/Aman-CERP/docrank/internal/strategy"
)

// SemanticRequest ranks by BM25 and trigram overlap with rank fusion,
// optionally adding graph expansion.
func SemanticRequest(opts strategy.Options, useGraph bool) Request {
	names := []string{strategy.BM25, strategy.NGram}
	if useGraph {
		names = append(names, strategy.Graph)
	}
	return Request{Options: opts, Strategies: names, Method: RankFusion}
}

// TroubleshootRequest looks for issues that at least two of the rule-based,
// contextual and topic strategies agree on.
func TroubleshootRequest(opts strategy.Options) Request {
	opts.Type = "issue"
	return Request{
		Options:    opts,
		Strategies: []string{strategy.RuleBased, strategy.Contextual, strategy.Topic},
		Method:     Vote,
	}
}

// LearningRequest searches documentation with contextual, topic and
// full-text strategies.
func LearningRequest(opts strategy.Options) Request {
	opts.Type = "documentation"
	return Request{
		Options:    opts,
		Strategies: []string{strategy.Contextual, strategy.Topic, strategy.FullText},
		Method:     WeightedSum,
	}
}

// Preset names accepted by PresetRequest.
const (
	PresetSemantic     = "semantic"
	PresetTroubleshoot = "troubleshoot"
	PresetLearning     = "learning"
)

// PresetRequest builds a named preset. ok is false for unknown names.
func PresetRequest(name string, opts strategy.Options, useGraph bool) (Request, bool) {
	switch strings.ToLower(name) {
	case PresetSemantic:
		return SemanticRequest(opts, useGraph), true
	case PresetTroubleshoot:
		return TroubleshootRequest(opts), true
	case PresetLearning:
		return LearningRequest(opts), true
	default:
		return Request{}, false
	}
}

var strategyTips = map[string]string{
	strategy.Lexical:    "Good for exact keyword matches",
	strategy.FullText:   "Effective for natural-language queries",
	strategy.Fuzzy:      "Useful when the query may contain typos",
	strategy.BM25:       "Strong general-purpose relevance ranking",
	strategy.NGram:      "Effective for partial word matches",
	strategy.RuleBased:  "Applies contextual rules for title, type and technology hits",
	strategy.Graph:      "Finds documents related to the direct matches",
	strategy.Topic:      "Groups results by detected topic",
	strategy.Contextual: "Expands the query from its intent and entities",
}

// StrategyTip returns a one-line usage tip for a strategy.
func StrategyTip(name string) string {
	if tip, ok := strategyTips[name]; ok {
		return tip
	}
	return "Specialised search strategy"
}

// Advice suggests how to improve a query given how many results it found.
func Advice(query string, resultCount int) string {
	var tips []string
	switch {
	case resultCount == 0:
		tips = []string{"Try less specific terms", "Use fuzzy search for inexact matches"}
	case resultCount < 3:
		tips = []string{"Try expanding the query with synonyms", "Use graph search to find related documents"}
	default:
		tips = []string{"Results look relevant"}
		if len([]rune(query)) > longQueryChars {
			tips = append(tips, "For long queries BM25 or full-text search is recommended")
		}
	}
	return strings.Join(tips, "; ")
}
