package strategy

import (
	"context"
	"strings"

	"github.com/Aman-CERP/docrank/internal/store"
)

// Rule names reported in result details.
const (
	RuleExactTitle   = "exact_title_match"
	RuleEarlyContent = "early_content_match"
	RuleMentions     = "mention_count"
	RuleErrorType    = "error_type_match"
	RuleGuideType    = "guide_type_match"
	RuleTechnology   = "technology_match"
)

const (
	earlyContentChars = 100
	maxMentionPoints  = 10
)

// RuleBasedStrategy scores documents with a fixed set of additive rules.
type RuleBasedStrategy struct {
	store store.DocumentStore
}

func NewRuleBased(ds store.DocumentStore) *RuleBasedStrategy {
	return &RuleBasedStrategy{store: ds}
}

func (s *RuleBasedStrategy) Name() string { return RuleBased }
func (s *RuleBasedStrategy) Description() string { return "Additive heuristic rules over title, content and type" }

func (s *RuleBasedStrategy) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []Result{}, nil
	}

	docs, err := s.store.FindByFilter(ctx, opts.filters(), 0)
	if err != nil {
		return nil, storeError("find_by_filter", err)
	}

	results := make([]Result, 0)
	for _, d := range docs {
		score, applied := applyRules(q, d)
		if score <= 0 {
			continue
		}
		results = append(results, Result{
			Document:  d,
			Score:     score,
			MatchType: RuleBased,
			Details:   map[string]any{"appliedRules": applied},
		})
	}
	return rank(results, opts.limit()), nil
}

// applyRules scores d against the lowercase query q.
func applyRules(q string, d *store.Document) (float64, []string) {
	title := strings.ToLower(d.Title)
	content := strings.ToLower(d.Content)
	applied := make([]string, 0, 6)
	score := 0

	if strings.Contains(title, q) {
		score += 10
		applied = append(applied, RuleExactTitle)
	}
	if strings.Contains(leadingRunes(content, earlyContentChars), q) {
		score += 8
		applied = append(applied, RuleEarlyContent)
	}
	if m := occurrences(content, q); m > 0 {
		score += min(m*2, maxMentionPoints)
		applied = append(applied, RuleMentions)
	}
	if strings.Contains(q, "error") && d.Type == "issue" {
		score += 5
		applied = append(applied, RuleErrorType)
	}
	if strings.Contains(q, "guide") && d.Type == "documentation" {
		score += 5
		applied = append(applied, RuleGuideType)
	}
	if d.Technology != "" && strings.Contains(q, strings.ToLower(d.Technology)) {
		score += 3
		applied = append(applied, RuleTechnology)
	}
	return float64(score), applied
}

func leadingRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i]
		}
		n--
	}
	return s
}
