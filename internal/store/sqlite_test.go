package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Put(context.Background(), sampleDocs()))
	return s
}

func TestSQLiteStore_FindBySubstring_MatchesMemoryStore(t *testing.T) {
	// Given: the same corpus in both adapters
	s := newTestSQLite(t)
	ms := NewMemoryStore(sampleDocs()...)
	ctx := context.Background()
	both := []Field{FieldTitle, FieldContent}

	cases := []struct {
		tokens  []string
		filters Filters
		limit   int
	}{
		{[]string{"generics", "event"}, Filters{}, 0},
		{[]string{"vue"}, Filters{}, 0},
		{[]string{"component"}, Filters{Technology: "vue"}, 0},
		{[]string{"component"}, Filters{ExcludeIDs: []string{"1", "3"}}, 0},
		{[]string{"component"}, Filters{}, 2},
	}

	for _, c := range cases {
		// When: running the same query against both
		want, err := ms.FindBySubstring(ctx, both, c.tokens, c.filters, c.limit)
		require.NoError(t, err)
		got, err := s.FindBySubstring(ctx, both, c.tokens, c.filters, c.limit)
		require.NoError(t, err)

		// Then: they agree on membership and order
		assert.Equal(t, ids(want), ids(got), "tokens=%v filters=%+v", c.tokens, c.filters)
	}
}

func TestSQLiteStore_FindBySubstring_FoldsNonASCII(t *testing.T) {
	// Given: uppercase Cyrillic and German text in both adapters
	docs := []*Document{
		{ID: "1", Title: "ПОШУК Документів", Content: "Über Straße", Source: "uk"},
		{ID: "2", Title: "Plain ASCII", Content: "nothing special", Source: "en"},
	}
	s, err := OpenSQLite("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, docs))
	ms := NewMemoryStore(docs...)
	both := []Field{FieldTitle, FieldContent}

	for _, tok := range []string{"пошук", "документів", "über", "straße", "ПОШУК"} {
		// When: searching with the token
		want, err := ms.FindBySubstring(ctx, both, []string{tok}, Filters{}, 0)
		require.NoError(t, err)
		got, err := s.FindBySubstring(ctx, both, []string{tok}, Filters{}, 0)
		require.NoError(t, err)

		// Then: both adapters fold case the same way
		assert.Equal(t, []string{"1"}, ids(got), "token=%q", tok)
		assert.Equal(t, ids(want), ids(got), "token=%q", tok)
	}
}

func TestSQLiteStore_FindByFilter(t *testing.T) {
	s := newTestSQLite(t)

	docs, err := s.FindByFilter(context.Background(), Filters{Type: "issue"}, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Build error in Vue", docs[0].Title)
	assert.Equal(t, "vue", docs[0].Technology)
}

func TestSQLiteStore_RankedFullText(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	t.Run("prefix terms are ANDed", func(t *testing.T) {
		hits, err := s.RankedFullText(ctx, PrefixQuery{"compos", "api"}, Filters{}, 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "1", hits[0].Document.ID)
		assert.Greater(t, hits[0].Rank, 0.0)
		assert.Contains(t, hits[0].Headline, "<b>")
	})

	t.Run("filters apply", func(t *testing.T) {
		hits, err := s.RankedFullText(ctx, PrefixQuery{"component"}, Filters{Type: "issue"}, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"4"}, hitIDs(hits))
	})

	t.Run("no match", func(t *testing.T) {
		hits, err := s.RankedFullText(ctx, PrefixQuery{"kubernetes"}, Filters{}, 10)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("empty query", func(t *testing.T) {
		hits, err := s.RankedFullText(ctx, PrefixQuery{}, Filters{}, 10)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("quotes are escaped", func(t *testing.T) {
		_, err := s.RankedFullText(ctx, PrefixQuery{`say"hi`}, Filters{}, 10)
		assert.NoError(t, err)
	})
}

func TestSQLiteStore_PutUpsertsAndPersists(t *testing.T) {
	// Given: a file-backed store
	path := filepath.Join(t.TempDir(), "docs.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, sampleDocs()))

	// When: a document is updated and the store reopened
	require.NoError(t, s.Put(ctx, []*Document{{ID: "2", Title: "Event Loop Phases", Content: "timers poll check", Source: "node"}}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	// Then: the update is visible to both query paths
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	hits, err := s.RankedFullText(ctx, PrefixQuery{"phases"}, Filters{}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, hitIDs(hits))

	hits, err = s.RankedFullText(ctx, PrefixQuery{"non", "blocking"}, Filters{}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSQLiteStore_ClosedReturnsError(t *testing.T) {
	s, err := OpenSQLite("")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.FindByFilter(context.Background(), Filters{}, 0)
	assert.Error(t, err)
	assert.NoError(t, s.Close())
}

func hitIDs(hits []RankedHit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Document.ID
	}
	return out
}
