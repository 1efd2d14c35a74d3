package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"composition", "api"}, keywords("Composition  API"))
	assert.Equal(t, []string{"how", "use"}, keywords("how to use it"))
	assert.Equal(t, []string{}, keywords("a an"))
}

func TestOccurrences_NonOverlapping(t *testing.T) {
	assert.Equal(t, 2, occurrences("aaaa", "aa"))
	assert.Equal(t, 3, occurrences("api api api", "api"))
	assert.Equal(t, 0, occurrences("anything", ""))
}

func TestTrigrams(t *testing.T) {
	tests := []struct {
		input  string
		expect []string
	}{
		{"vue", []string{"vue"}},
		{"ab-c  d", []string{"abc", "bc ", "c d"}},
		{"aaaa", []string{"aaa"}},
		{"xy", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expect, trigrams(tt.input))
		})
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"generix", "generics", 2},
		{"héllo", "hello", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b), "%s/%s", tt.a, tt.b)
	}
}

func TestSimilarity_Identity(t *testing.T) {
	sc := newSimilarityCache(16)

	assert.Equal(t, 1.0, sc.similarity("generics", "generics"))
	assert.Equal(t, 1.0, sc.similarity("a", "a"))
	assert.Equal(t, 0.0, sc.similarity("a", "ab"))
}

func TestSimilarity_OneEditShrinksWithLength(t *testing.T) {
	// Given: pairs differing by one substitution at decreasing lengths
	sc := newSimilarityCache(16)
	pairs := [][2]string{
		{"abcdefgh", "abcdefgx"},
		{"abcdef", "abcdex"},
		{"abcd", "abcx"},
		{"abc", "abx"},
	}

	// Then: similarity strictly decreases as length shrinks
	prev := 1.0
	for _, p := range pairs {
		s := sc.similarity(p[0], p[1])
		assert.Less(t, s, prev, "%v", p)
		prev = s
	}
}

func TestSimilarity_CachedValueIsStable(t *testing.T) {
	sc := newSimilarityCache(16)
	first := sc.similarity("loop", "lop")
	second := sc.similarity("loop", "lop")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, sc.cache.Len())
	assert.InDelta(t, 0.75, first, 1e-9)

	var nilCache *similarityCache
	assert.InDelta(t, 0.75, nilCache.similarity("loop", "lop"), 1e-9)
}
