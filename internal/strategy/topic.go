package strategy

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/Aman-CERP/docrank/internal/store"
)

// TopicDefinition is a named topic and the keywords that signal it.
type TopicDefinition struct {
	Name     string
	Keywords []string
}

// Topics is the fixed topic table, in detection tie-break order.
var Topics = []TopicDefinition{
	{"installation", []string{"install", "setup", "download", "npm", "yarn", "getting started"}},
	{"configuration", []string{"config", "settings", "options", "configure", "env"}},
	{"api", []string{"api", "method", "function", "endpoint", "interface"}},
	{"errors", []string{"error", "bug", "issue", "problem", "fix", "troubleshoot"}},
	{"components", []string{"component", "widget", "element", "ui", "view"}},
	{"styling", []string{"css", "style", "theme", "design", "layout"}},
	{"data", []string{"data", "model", "store", "state", "variable"}},
	{"routing", []string{"route", "navigation", "link", "redirect", "path"}},
}

const topicCandidates = 5

// DetectedTopic is a topic found in a query with its confidence in [0, 1].
type DetectedTopic struct {
	Topic      string  `json:"topic"`
	Confidence float64 `json:"confidence"`
}

// DetectTopics returns the topics whose keywords occur in query, most
// confident first. Longer keywords weigh more.
func DetectTopics(query string) []DetectedTopic {
	q := strings.ToLower(query)
	out := make([]DetectedTopic, 0)
	for _, t := range Topics {
		matches, weight := 0, 0
		for _, kw := range t.Keywords {
			if strings.Contains(q, kw) {
				matches++
				weight += len(kw)
			}
		}
		if matches == 0 {
			continue
		}
		conf := float64(matches) / float64(len(t.Keywords)) * (float64(weight) / float64(matches*10))
		out = append(out, DetectedTopic{Topic: t.Name, Confidence: min(conf, 1.0)})
	}
	slices.SortStableFunc(out, func(a, b DetectedTopic) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})
	return out
}

// TopicMatch is the per-topic contribution to a document's score.
type TopicMatch struct {
	Topic           string   `json:"topic"`
	Confidence      float64  `json:"confidence"`
	MatchedKeywords []string `json:"matchedKeywords"`
}

// TopicStrategy classifies the query into topics and retrieves documents
// mentioning each topic's keywords.
type TopicStrategy struct {
	store store.DocumentStore
}

func NewTopic(ds store.DocumentStore) *TopicStrategy {
	return &TopicStrategy{store: ds}
}

func (s *TopicStrategy) Name() string { return Topic }
func (s *TopicStrategy) Description() string { return "Topic classification with keyword retrieval" }

type topicAccumulator struct {
	doc     *store.Document
	score   float64
	topics  []string
	details []TopicMatch
}

func (s *TopicStrategy) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	detected := DetectTopics(query)
	if len(detected) == 0 {
		return []Result{}, nil
	}

	byDoc := make(map[string]*topicAccumulator)
	order := make([]string, 0)
	for _, dt := range detected {
		kws := topicKeywords(dt.Topic)
		docs, err := s.store.FindBySubstring(ctx, titleAndContent, kws, opts.filters(), topicCandidates)
		if err != nil {
			return nil, storeError("find_by_substring", err)
		}

		for _, d := range docs {
			text := documentText(d.Title, d.Content)
			weighted, matched := 0, make([]string, 0, len(kws))
			for _, kw := range kws {
				if n := occurrences(text, kw); n > 0 {
					weighted += n * len(kw)
					matched = append(matched, kw)
				}
			}
			score := min(float64(weighted)/100, 1.0) * dt.Confidence

			acc, ok := byDoc[d.ID]
			if !ok {
				acc = &topicAccumulator{doc: d}
				byDoc[d.ID] = acc
				order = append(order, d.ID)
			}
			acc.score += score
			acc.topics = append(acc.topics, dt.Topic)
			acc.details = append(acc.details, TopicMatch{Topic: dt.Topic, Confidence: dt.Confidence, MatchedKeywords: matched})
		}
	}

	results := make([]Result, 0, len(order))
	for _, id := range order {
		acc := byDoc[id]
		results = append(results, Result{
			Document:  acc.doc,
			Score:     acc.score,
			MatchType: "topic_combined",
			Details: map[string]any{
				"topics":     acc.topics,
				"topicCount": len(acc.topics),
				"details":    acc.details,
			},
		})
	}
	return rank(results, opts.limit()), nil
}

func topicKeywords(name string) []string {
	for _, t := range Topics {
		if t.Name == name {
			return t.Keywords
		}
	}
	return nil
}
