package strategy

import (
	"context"
	"regexp"
	"strings"

	"github.com/Aman-CERP/docrank/internal/store"
)

// Query intents.
const (
	IntentQuestion     = "question"
	IntentTroubleshoot = "troubleshoot"
	IntentLearn        = "learn"
	IntentSearch       = "search"
)

var (
	questionRe     = regexp.MustCompile(`\b(how|what|why|when|where)\b`)
	troubleshootRe = regexp.MustCompile(`\b(fix|solve|error|problem)\b`)
	learnRe        = regexp.MustCompile(`\b(example|demo|tutorial)\b`)
	positiveRe     = regexp.MustCompile(`\b(great|good|excellent|perfect)\b`)
	negativeRe     = regexp.MustCompile(`\b(bad|wrong|broken|issue|problem)\b`)

	entityTerms = []string{"component", "api", "function", "method", "class", "interface", "module"}

	entitySynonyms = map[string][]string{
		"component": {"widget", "element", "part"},
		"api":       {"interface", "endpoint", "service"},
		"function":  {"method", "procedure", "routine"},
	}
)

const contextualCandidates = 15

// QueryContext is the analysed shape of a query.
type QueryContext struct {
	Intent     string   `json:"intent"`
	Entities   []string `json:"entities"`
	Complexity string   `json:"complexity"`
	Sentiment  string   `json:"sentiment"`
}

// AnalyzeQuery derives intent, entities, complexity and sentiment.
func AnalyzeQuery(query string) QueryContext {
	q := strings.ToLower(query)

	qc := QueryContext{Intent: IntentSearch, Entities: make([]string, 0), Sentiment: "neutral", Complexity: "simple"}
	switch {
	case questionRe.MatchString(q):
		qc.Intent = IntentQuestion
	case troubleshootRe.MatchString(q):
		qc.Intent = IntentTroubleshoot
	case learnRe.MatchString(q):
		qc.Intent = IntentLearn
	}

	for _, term := range entityTerms {
		if strings.Contains(q, term) {
			qc.Entities = append(qc.Entities, term)
		}
	}

	n := len([]rune(query))
	switch {
	case n > 50 && len(qc.Entities) > 2:
		qc.Complexity = "complex"
	case n > 20 || len(qc.Entities) > 0:
		qc.Complexity = "medium"
	}

	switch {
	case positiveRe.MatchString(q):
		qc.Sentiment = "positive"
	case negativeRe.MatchString(q):
		qc.Sentiment = "negative"
	}
	return qc
}

// ExpandQuery appends intent terms and entity synonyms to query.
func ExpandQuery(query string, qc QueryContext) string {
	var sb strings.Builder
	sb.WriteString(query)
	switch qc.Intent {
	case IntentTroubleshoot:
		sb.WriteString(" error solution fix")
	case IntentLearn:
		sb.WriteString(" tutorial example guide")
	}
	for _, e := range qc.Entities {
		if syn, ok := entitySynonyms[e]; ok {
			sb.WriteString(" " + strings.Join(syn, " "))
		}
	}
	return sb.String()
}

// ContextualStrategy expands the query from its intent and entities, then
// scores keyword hits with intent-specific boosts.
type ContextualStrategy struct {
	store store.DocumentStore
}

func NewContextual(ds store.DocumentStore) *ContextualStrategy {
	return &ContextualStrategy{store: ds}
}

func (s *ContextualStrategy) Name() string { return Contextual }
func (s *ContextualStrategy) Description() string { return "Intent-aware query expansion" }

func (s *ContextualStrategy) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	qc := AnalyzeQuery(query)
	expanded := ExpandQuery(query, qc)
	kws := keywords(expanded)
	if len(kws) == 0 {
		return []Result{}, nil
	}

	docs, err := s.store.FindBySubstring(ctx, titleAndContent, kws, opts.filters(), 0)
	if err != nil {
		return nil, storeError("find_by_substring", err)
	}

	results := make([]Result, 0)
	for _, d := range docs {
		if !intentAllows(qc.Intent, d) {
			continue
		}
		if len(results) == contextualCandidates {
			break
		}
		results = append(results, Result{
			Document:  d,
			Score:     contextualScore(d, kws, qc),
			MatchType: Contextual,
			Details: map[string]any{
				"intent":        qc.Intent,
				"entities":      qc.Entities,
				"expandedQuery": expanded,
				"contextScore":  contextBoost(d, qc),
				"complexity":    qc.Complexity,
				"sentiment":     qc.Sentiment,
			},
		})
	}
	return rank(results, opts.limit()), nil
}

func intentAllows(intent string, d *store.Document) bool {
	switch intent {
	case IntentTroubleshoot:
		return d.Type == "issue" || strings.Contains(strings.ToLower(d.Content), "error")
	case IntentLearn:
		title := strings.ToLower(d.Title)
		return d.Type == "documentation" || strings.Contains(title, "guide") || strings.Contains(title, "tutorial")
	default:
		return true
	}
}

func contextualScore(d *store.Document, kws []string, qc QueryContext) float64 {
	text := documentText(d.Title, d.Content)
	score := 0.0
	for _, kw := range kws {
		score += float64(occurrences(text, kw))
	}
	if qc.Intent == IntentTroubleshoot && d.Type == "issue" {
		score *= 1.5
	}
	if qc.Intent == IntentLearn && d.Type == "documentation" {
		score *= 1.3
	}
	for _, e := range qc.Entities {
		if strings.Contains(text, e) {
			score *= 1.2
		}
	}
	return min(score/10, 10.0)
}

func contextBoost(d *store.Document, qc QueryContext) float64 {
	boost := 1.0
	if qc.Intent == IntentTroubleshoot && d.Type == "issue" {
		boost += 0.5
	}
	if qc.Intent == IntentLearn && d.Type == "documentation" {
		boost += 0.3
	}
	return boost
}
