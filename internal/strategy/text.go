package strategy

import (
	"regexp"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	nonWordRe    = regexp.MustCompile(`[^\w\s]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// words lowercases s and splits it on whitespace.
func words(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// keywords returns the lowercase words of s longer than two characters.
func keywords(s string) []string {
	out := make([]string, 0)
	for _, w := range words(s) {
		if utf8.RuneCountInString(w) > 2 {
			out = append(out, w)
		}
	}
	return out
}

// occurrences counts non-overlapping literal occurrences of sub in s.
func occurrences(s, sub string) int {
	if sub == "" {
		return 0
	}
	return strings.Count(s, sub)
}

func documentText(title, content string) string {
	return strings.ToLower(title + " " + content)
}

// trigrams returns the distinct 3-grams of s after dropping punctuation and
// collapsing whitespace, in first-seen order.
func trigrams(s string) []string {
	clean := whitespaceRe.ReplaceAllString(nonWordRe.ReplaceAllString(s, ""), " ")
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for i := 0; i+3 <= len(clean); i++ {
		g := clean[i : i+3]
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

// levenshtein is the edit distance between a and b in runes.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// similarityCache memoises edit-distance similarity for word pairs.
type similarityCache struct {
	cache *lru.Cache[string, float64]
}

func newSimilarityCache(size int) *similarityCache {
	c, _ := lru.New[string, float64](size) // only errors on size <= 0
	return &similarityCache{cache: c}
}

// similarity is 1 for identical words, 0 when either is shorter than two
// characters, otherwise 1 - distance/maxLen.
func (s *similarityCache) similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la < 2 || lb < 2 {
		return 0
	}

	key := a + "\x00" + b
	if s != nil && s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v
		}
	}
	v := 1 - float64(levenshtein(a, b))/float64(max(la, lb))
	if s != nil && s.cache != nil {
		s.cache.Add(key, v)
	}
	return v
}
