package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/docrank/internal/store"
)

func TestLexical_ScoresTitleThreeTimesContent(t *testing.T) {
	// Given: a document with the phrase twice in the title and six times in content
	s := NewLexical(fixtureStore())

	// When: searching for both tokens
	rs, err := s.Search(context.Background(), "composition api", Options{})

	// Then: score = 3*2 + 6
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "1", rs[0].Document.ID)
	assert.Equal(t, 12.0, rs[0].Score)
	assert.Equal(t, Lexical, rs[0].MatchType)
	assert.Equal(t, 2, rs[0].Details["titleMatches"])
	assert.Equal(t, 6, rs[0].Details["contentMatches"])
	assert.Equal(t, []string{"composition", "api"}, rs[0].Details["keywords"])
}

func TestLexical_TiesBreakByID(t *testing.T) {
	rs, err := NewLexical(fixtureStore()).Search(context.Background(), "vue", Options{})

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "4"}, resultIDs(rs))
	assert.Equal(t, rs[0].Score, rs[1].Score)
}

func TestLexical_ShortTokensOnly(t *testing.T) {
	rs, err := NewLexical(fixtureStore()).Search(context.Background(), "to be", Options{})
	require.NoError(t, err)
	assert.Empty(t, rs)
}

// brokenFullText has a full-text capability that always fails.
type brokenFullText struct {
	*store.MemoryStore
}

func (brokenFullText) RankedFullText(context.Context, store.PrefixQuery, store.Filters, int) ([]store.RankedHit, error) {
	return nil, errors.New("fts unavailable")
}

func TestFullText(t *testing.T) {
	ms := fixtureStore()
	idx, err := store.NewBleveIndex(ms.All())
	require.NoError(t, err)
	defer idx.Close()

	t.Run("uses ranked capability", func(t *testing.T) {
		s := NewFullText(store.WithFullText(ms, idx), nil)

		rs, err := s.Search(context.Background(), "composition api", Options{})

		require.NoError(t, err)
		require.Len(t, rs, 1)
		assert.Equal(t, FullText, rs[0].MatchType)
		assert.Equal(t, "composition:* & api:*", rs[0].Details["query"])
		assert.Equal(t, rs[0].Score, rs[0].Details["rank"])
		assert.NotEmpty(t, rs[0].Details["headline"])
	})

	t.Run("falls back without capability", func(t *testing.T) {
		s := NewFullText(ms, nil)

		rs, err := s.Search(context.Background(), "composition api", Options{})

		require.NoError(t, err)
		require.Len(t, rs, 1)
		assert.Equal(t, Lexical, rs[0].MatchType)
		assert.Equal(t, 12.0, rs[0].Score)
	})

	t.Run("falls back on error", func(t *testing.T) {
		s := NewFullText(brokenFullText{ms}, nil)

		rs, err := s.Search(context.Background(), "generics", Options{})

		require.NoError(t, err)
		assert.Equal(t, []string{"3"}, resultIDs(rs))
		assert.Equal(t, Lexical, rs[0].MatchType)
	})
}

func TestBM25_TermScoreProperties(t *testing.T) {
	assert.Equal(t, 0.0, bm25TermScore(0, 100))

	// score rises with tf at fixed length across the practical range
	prev := 0.0
	for tf := 1; tf <= 6; tf++ {
		s := bm25TermScore(tf, 500)
		assert.Greater(t, s, prev, "tf=%d", tf)
		prev = s
	}

	// longer documents score lower for the same tf
	assert.Greater(t, bm25TermScore(2, 50), bm25TermScore(2, 1000))
}

func TestBM25_Search(t *testing.T) {
	s := NewBM25(fixtureStore())

	rs, err := s.Search(context.Background(), "composition api", Options{})

	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "1", rs[0].Document.ID)
	assert.Greater(t, rs[0].Score, 0.0)
	assert.Equal(t, map[string]int{"composition": 4, "api": 4}, rs[0].Details["termFreqs"])
	assert.Equal(t, []string{"composition", "api"}, rs[0].Details["terms"])
}

func TestBM25_ZeroFrequencyTermAddsNothing(t *testing.T) {
	s := NewBM25(fixtureStore())

	with, err := s.Search(context.Background(), "generics", Options{})
	require.NoError(t, err)
	withMissing, err := s.Search(context.Background(), "generics kubernetes", Options{})
	require.NoError(t, err)

	require.Len(t, with, 1)
	require.Len(t, withMissing, 1)
	assert.Equal(t, with[0].Score, withMissing[0].Score)
}

func TestFuzzy_Search(t *testing.T) {
	s := NewFuzzy(fixtureStore())

	t.Run("typo matches", func(t *testing.T) {
		rs, err := s.Search(context.Background(), "generix", Options{})
		require.NoError(t, err)
		require.NotEmpty(t, rs)

		assert.Equal(t, "3", rs[0].Document.ID)
		assert.InDelta(t, 0.75, rs[0].Score, 1e-9)
		matches := rs[0].Details["matches"].([]FuzzyMatch)
		require.Len(t, matches, 1)
		assert.Equal(t, "generics", matches[0].Match)
		assert.Equal(t, DefaultFuzzyThreshold, rs[0].Details["threshold"])
	})

	t.Run("threshold excludes weak matches", func(t *testing.T) {
		rs, err := s.Search(context.Background(), "generix", Options{FuzzyThreshold: Threshold(0.9)})
		require.NoError(t, err)
		assert.Empty(t, rs)
	})

	t.Run("zero threshold is honoured", func(t *testing.T) {
		def, err := s.Search(context.Background(), "generix", Options{})
		require.NoError(t, err)
		all, err := s.Search(context.Background(), "generix", Options{FuzzyThreshold: Threshold(0)})
		require.NoError(t, err)

		require.NotEmpty(t, all)
		assert.Greater(t, len(all), len(def))
		assert.Equal(t, 0.0, all[0].Details["threshold"])
	})

	t.Run("normalised by query words", func(t *testing.T) {
		rs, err := s.Search(context.Background(), "generics zzzzzz", Options{})
		require.NoError(t, err)
		require.NotEmpty(t, rs)
		assert.Equal(t, "3", rs[0].Document.ID)
		assert.InDelta(t, 0.5, rs[0].Score, 1e-9)
	})

	t.Run("self similarity", func(t *testing.T) {
		assert.Equal(t, 1.0, s.Similarity("loop", "loop"))
	})
}

func TestNGram_Search(t *testing.T) {
	s := NewNGram(fixtureStore())

	rs, err := s.Search(context.Background(), "vue", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "4"}, resultIDs(rs))
	assert.Equal(t, 1.0, rs[0].Score)
	assert.Equal(t, 1, rs[0].Details["commonNgrams"])
	assert.Equal(t, 1, rs[0].Details["totalQueryNgrams"])
	assert.Equal(t, ngramSize, rs[0].Details["ngramSize"])

	rs, err = s.Search(context.Background(), "ab", Options{})
	require.NoError(t, err)
	assert.Empty(t, rs)
}

func TestNGram_PartialOverlap(t *testing.T) {
	// "loopz" has trigrams loo, oop, opz; only the first two occur in doc 2
	rs, err := NewNGram(fixtureStore()).Search(context.Background(), "loopz", Options{})
	require.NoError(t, err)
	require.NotEmpty(t, rs)
	assert.Equal(t, "2", rs[0].Document.ID)
	assert.InDelta(t, 2.0/3.0, rs[0].Score, 1e-9)
}

func TestRuleBased_Search(t *testing.T) {
	s := NewRuleBased(fixtureStore())

	t.Run("title and technology rules", func(t *testing.T) {
		rs, err := s.Search(context.Background(), "Vue Composition API", Options{})
		require.NoError(t, err)
		require.Len(t, rs, 2)

		assert.Equal(t, "1", rs[0].Document.ID)
		assert.Equal(t, 13.0, rs[0].Score)
		assert.Equal(t, []string{RuleExactTitle, RuleTechnology}, rs[0].Details["appliedRules"])
		assert.Equal(t, "4", rs[1].Document.ID)
		assert.Equal(t, 3.0, rs[1].Score)
	})

	t.Run("error query on issue", func(t *testing.T) {
		rs, err := s.Search(context.Background(), "error", Options{})
		require.NoError(t, err)
		require.Len(t, rs, 1)

		// 10 title + 8 early content + 2 mentions * 2 + 5 issue
		assert.Equal(t, "4", rs[0].Document.ID)
		assert.Equal(t, 27.0, rs[0].Score)
		assert.Equal(t, []string{RuleExactTitle, RuleEarlyContent, RuleMentions, RuleErrorType}, rs[0].Details["appliedRules"])
	})

	t.Run("empty technology never matches", func(t *testing.T) {
		score, rules := applyRules("misc", &store.Document{ID: "x", Title: "t", Content: "c"})
		assert.Equal(t, 0.0, score)
		assert.Empty(t, rules)
	})

	t.Run("guide on documentation", func(t *testing.T) {
		score, rules := applyRules("setup guide", &store.Document{ID: "x", Title: "t", Content: "c", Type: "documentation"})
		assert.Equal(t, 5.0, score)
		assert.Equal(t, []string{RuleGuideType}, rules)
	})

	t.Run("mentions cap at ten", func(t *testing.T) {
		score, _ := applyRules("go", &store.Document{ID: "x", Title: "t", Content: "go go go go go go go go", Type: "example"})
		// +8 early content +10 capped mentions
		assert.Equal(t, 18.0, score)
	})
}

func TestGraph_Search(t *testing.T) {
	s := NewGraph(fixtureStore())

	t.Run("no direct match means no results", func(t *testing.T) {
		rs, err := s.Search(context.Background(), "kubernetes", Options{})
		require.NoError(t, err)
		assert.Empty(t, rs)
	})

	t.Run("title expansion", func(t *testing.T) {
		rs, err := s.Search(context.Background(), "event loop", Options{})
		require.NoError(t, err)
		require.Len(t, rs, 2)

		assert.Equal(t, "2", rs[0].Document.ID)
		assert.Equal(t, 1.0, rs[0].Score)
		assert.Equal(t, RelationDirect, rs[0].Details["relation"])
		assert.Equal(t, 0, rs[0].Details["graphDepth"])

		assert.Equal(t, "6", rs[1].Document.ID)
		assert.InDelta(t, 0.42, rs[1].Score, 1e-9)
		assert.Equal(t, RelationSimilarTitle, rs[1].Details["relation"])
		assert.Equal(t, 1, rs[1].Details["graphDepth"])
	})

	t.Run("dedup keeps highest score", func(t *testing.T) {
		rs, err := s.Search(context.Background(), "event loop", Options{Technology: "node"})
		require.NoError(t, err)
		require.Len(t, rs, 2)

		assert.Equal(t, "6", rs[1].Document.ID)
		assert.InDelta(t, 0.48, rs[1].Score, 1e-9)
		assert.Equal(t, RelationSameTechnology, rs[1].Details["relation"])
	})

	t.Run("direct beats expansion", func(t *testing.T) {
		rs, err := s.Search(context.Background(), "vue", Options{Technology: "vue"})
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "4"}, resultIDs(rs))
		for _, r := range rs {
			assert.Equal(t, RelationDirect, r.Details["relation"])
		}
	})
}

func TestDetectTopics(t *testing.T) {
	t.Run("single topic", func(t *testing.T) {
		got := DetectTopics("npm install")
		require.Len(t, got, 1)
		assert.Equal(t, "installation", got[0].Topic)
		assert.InDelta(t, 2.0/6.0*10.0/20.0, got[0].Confidence, 1e-9)
	})

	t.Run("ordered by confidence", func(t *testing.T) {
		got := DetectTopics("fix the API error")
		require.Len(t, got, 2)
		assert.Equal(t, "errors", got[0].Topic)
		assert.Equal(t, "api", got[1].Topic)
		assert.Greater(t, got[0].Confidence, got[1].Confidence)
	})

	t.Run("none", func(t *testing.T) {
		assert.Empty(t, DetectTopics("generics"))
	})
}

func TestTopic_Search(t *testing.T) {
	s := NewTopic(fixtureStore())

	rs, err := s.Search(context.Background(), "how to configure env settings", Options{})
	require.NoError(t, err)
	require.Len(t, rs, 1)

	// configuration confidence = 4/5 * 26/40; doc 4 mentions "config" once
	r := rs[0]
	assert.Equal(t, "4", r.Document.ID)
	assert.InDelta(t, 0.06*0.52, r.Score, 1e-9)
	assert.Equal(t, "topic_combined", r.MatchType)
	assert.Equal(t, []string{"configuration"}, r.Details["topics"])
	assert.Equal(t, 1, r.Details["topicCount"])
}

func TestTopic_SumsAcrossTopics(t *testing.T) {
	rs, err := NewTopic(fixtureStore()).Search(context.Background(), "router error", Options{})
	require.NoError(t, err)
	require.NotEmpty(t, rs)

	assert.Equal(t, "4", rs[0].Document.ID)
	assert.ElementsMatch(t, []string{"errors", "routing"}, rs[0].Details["topics"])
	assert.Equal(t, 2, rs[0].Details["topicCount"])
}

func TestAnalyzeQuery(t *testing.T) {
	tests := []struct {
		query      string
		intent     string
		entities   []string
		complexity string
		sentiment  string
	}{
		{"how do I fix this", IntentQuestion, []string{}, "simple", "neutral"},
		{"fix router error", IntentTroubleshoot, []string{}, "simple", "neutral"},
		{"component api example tutorial", IntentLearn, []string{"component", "api"}, "medium", "neutral"},
		{"this is broken", IntentSearch, []string{}, "simple", "negative"},
		{"great api", IntentSearch, []string{"api"}, "medium", "positive"},
		{"need a component with api function method and class in a module", IntentSearch,
			[]string{"component", "api", "function", "method", "class", "module"}, "complex", "neutral"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			qc := AnalyzeQuery(tt.query)
			assert.Equal(t, tt.intent, qc.Intent)
			assert.Equal(t, tt.entities, qc.Entities)
			assert.Equal(t, tt.complexity, qc.Complexity)
			assert.Equal(t, tt.sentiment, qc.Sentiment)
		})
	}
}

func TestExpandQuery(t *testing.T) {
	assert.Equal(t, "fix router error error solution fix",
		ExpandQuery("fix router error", QueryContext{Intent: IntentTroubleshoot}))
	assert.Equal(t, "api docs interface endpoint service",
		ExpandQuery("api docs", QueryContext{Intent: IntentSearch, Entities: []string{"api"}}))
	assert.Equal(t, "demo tutorial example guide",
		ExpandQuery("demo", QueryContext{Intent: IntentLearn}))
}

func TestContextual_Troubleshoot(t *testing.T) {
	s := NewContextual(fixtureStore())

	rs, err := s.Search(context.Background(), "fix router error", Options{})
	require.NoError(t, err)
	require.Len(t, rs, 1)

	// keyword hits 10, x1.5 for issue, /10
	r := rs[0]
	assert.Equal(t, "4", r.Document.ID)
	assert.InDelta(t, 1.5, r.Score, 1e-9)
	assert.Equal(t, IntentTroubleshoot, r.Details["intent"])
	assert.Equal(t, 1.5, r.Details["contextScore"])
	assert.Equal(t, "fix router error error solution fix", r.Details["expandedQuery"])
}

func TestContextual_LearnKeepsDocumentation(t *testing.T) {
	rs, err := NewContextual(fixtureStore()).Search(context.Background(), "event example", Options{})
	require.NoError(t, err)
	require.NotEmpty(t, rs)

	for _, r := range rs {
		assert.Equal(t, "documentation", r.Document.Type)
		assert.Equal(t, 1.3, r.Details["contextScore"])
	}
}
