package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBleve(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(sampleDocs())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestBleveIndex_RankedFullText(t *testing.T) {
	idx := newTestBleve(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		query   PrefixQuery
		filters Filters
		want    []string
	}{
		{"prefix match on title", PrefixQuery{"generic"}, Filters{}, []string{"3"}},
		{"all terms required", PrefixQuery{"composition", "api"}, Filters{}, []string{"1"}},
		{"camel case part", PrefixQuery{"script"}, Filters{}, []string{"3"}},
		{"technology filter", PrefixQuery{"component"}, Filters{Technology: "vue"}, []string{"1", "4"}},
		{"type filter", PrefixQuery{"component"}, Filters{Type: "issue"}, []string{"4"}},
		{"exclude ids", PrefixQuery{"vue"}, Filters{ExcludeIDs: []string{"4"}}, []string{"1"}},
		{"no match", PrefixQuery{"kubernetes"}, Filters{}, []string{}},
		{"punctuation only", PrefixQuery{"--"}, Filters{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := idx.RankedFullText(ctx, tt.query, tt.filters, 10)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, hitIDs(hits))
		})
	}
}

func TestBleveIndex_HitsCarryRankAndHeadline(t *testing.T) {
	idx := newTestBleve(t)

	hits, err := idx.RankedFullText(context.Background(), PrefixQuery{"event"}, Filters{}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	assert.Greater(t, hits[0].Rank, 0.0)
	assert.NotEmpty(t, hits[0].Headline)
	assert.Equal(t, "Node.js Event Loop", hits[0].Document.Title)
}

func TestBleveIndex_ClosedReturnsError(t *testing.T) {
	idx, err := NewBleveIndex(sampleDocs())
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	_, err = idx.RankedFullText(context.Background(), PrefixQuery{"vue"}, Filters{}, 10)
	assert.Error(t, err)
}

func TestWordTokenizer_Offsets(t *testing.T) {
	stream := wordTokenizer{}.Tokenize([]byte("Use TypeScript"))

	terms := make([]string, len(stream))
	for i, tok := range stream {
		terms[i] = string(tok.Term)
	}
	assert.Equal(t, []string{"use", "typescript", "type", "script"}, terms)
	assert.Equal(t, 4, stream[1].Start)
	assert.Equal(t, 14, stream[1].End)
	assert.Equal(t, 8, stream[3].Start)
}
