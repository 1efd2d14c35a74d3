package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docerrors "github.com/Aman-CERP/docrank/internal/errors"
)

// flakyStore fails the first failures calls.
type flakyStore struct {
	*MemoryStore
	failures int
	calls    int
}

func (f *flakyStore) FindByFilter(ctx context.Context, fl Filters, limit int) ([]*Document, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection reset")
	}
	return f.MemoryStore.FindByFilter(ctx, fl, limit)
}

func quickRetry(n int) docerrors.RetryConfig {
	return docerrors.RetryConfig{MaxRetries: n, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func TestGuard_RetriesTransientFailures(t *testing.T) {
	// Given: a store that fails once
	inner := &flakyStore{MemoryStore: NewMemoryStore(sampleDocs()...), failures: 1}
	g := Guard(inner, nil, quickRetry(2))

	// When: querying through the guard
	docs, err := g.FindByFilter(context.Background(), Filters{}, 0)

	// Then: the retry succeeds
	require.NoError(t, err)
	assert.Len(t, docs, 4)
	assert.Equal(t, 2, inner.calls)
}

func TestGuard_MapsFailuresToStoreUnavailable(t *testing.T) {
	inner := &flakyStore{MemoryStore: NewMemoryStore(), failures: 100}
	g := Guard(inner, nil, quickRetry(1))

	_, err := g.FindByFilter(context.Background(), Filters{}, 0)

	require.Error(t, err)
	assert.True(t, errors.Is(err, docerrors.ErrStoreUnavailable))
	assert.Equal(t, 2, inner.calls)
}

func TestGuard_OpenBreakerFailsFast(t *testing.T) {
	// Given: a breaker that opens after two failures
	inner := &flakyStore{MemoryStore: NewMemoryStore(), failures: 100}
	breaker := docerrors.NewCircuitBreaker("test", docerrors.WithMaxFailures(2), docerrors.WithResetTimeout(time.Hour))
	g := Guard(inner, breaker, quickRetry(0))

	_, _ = g.FindByFilter(context.Background(), Filters{}, 0)
	_, _ = g.FindByFilter(context.Background(), Filters{}, 0)
	require.Equal(t, docerrors.StateOpen, breaker.State())

	// When: calling again
	_, err := g.FindByFilter(context.Background(), Filters{}, 0)

	// Then: the inner store is not touched and the error is typed
	assert.Equal(t, 2, inner.calls)
	assert.True(t, errors.Is(err, docerrors.ErrStoreUnavailable))
	assert.True(t, errors.Is(err, docerrors.ErrCircuitOpen))
}

func TestGuard_PreservesFullTextCapability(t *testing.T) {
	ms := NewMemoryStore(sampleDocs()...)

	_, ok := Guard(ms, nil, quickRetry(0)).(FullTextSearcher)
	assert.False(t, ok)

	s := newTestSQLite(t)
	fts, ok := Guard(s, nil, quickRetry(0)).(FullTextSearcher)
	require.True(t, ok)

	hits, err := fts.RankedFullText(context.Background(), PrefixQuery{"generics"}, Filters{}, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, hitIDs(hits))
}

func TestGuard_ContextErrorsPassThrough(t *testing.T) {
	g := Guard(NewMemoryStore(sampleDocs()...), nil, quickRetry(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.FindByFilter(ctx, Filters{}, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, docerrors.ErrStoreUnavailable))
}
