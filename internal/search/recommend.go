package search

import (
	"regexp"
	"slices"
	"unicode/utf8"

	"github.com/Aman-CERP/docrank/internal/strategy"
)

var troubleWordsRe = regexp.MustCompile(`(?i)error|bug|issue|problem`)

// Query length thresholds, in characters.
const (
	shortQueryChars = 10
	longQueryChars  = 20
)

// RecommendStrategies suggests strategies for a query. It is a pure
// heuristic: short queries get typo-tolerant strategies, long ones ranked
// full-text, trouble words get rule-based and lexical. The union is
// de-duplicated in trigger order.
func RecommendStrategies(query string) []string {
	n := utf8.RuneCountInString(query)
	out := make([]string, 0, 4)
	add := func(names ...string) {
		for _, name := range names {
			if !slices.Contains(out, name) {
				out = append(out, name)
			}
		}
	}

	if n < shortQueryChars {
		add(strategy.Fuzzy, strategy.NGram)
	}
	if n > longQueryChars {
		add(strategy.FullText, strategy.BM25)
	}
	if troubleWordsRe.MatchString(query) {
		add(strategy.RuleBased, strategy.Lexical)
	}
	if len(out) == 0 {
		add(strategy.Lexical, strategy.FullText)
	}
	return out
}
