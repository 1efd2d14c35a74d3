package store

import (
	"context"
	"errors"
	"log/slog"

	docerrors "github.com/Aman-CERP/docrank/internal/errors"
)

// GuardedStore protects a DocumentStore with a circuit breaker and retries.
// Every failure it returns is a StoreUnavailable error.
type GuardedStore struct {
	inner   DocumentStore
	breaker *docerrors.CircuitBreaker
	retry   docerrors.RetryConfig
}

type guardedFullTextStore struct {
	*GuardedStore
	fts FullTextSearcher
}

// Guard wraps ds. The result implements FullTextSearcher exactly when ds does.
func Guard(ds DocumentStore, breaker *docerrors.CircuitBreaker, retry docerrors.RetryConfig) DocumentStore {
	if breaker == nil {
		breaker = docerrors.NewCircuitBreaker("document_store")
	}
	g := &GuardedStore{inner: ds, breaker: breaker, retry: retry}
	if fts, ok := ds.(FullTextSearcher); ok {
		return &guardedFullTextStore{GuardedStore: g, fts: fts}
	}
	return g
}

// Breaker exposes the breaker for status reporting.
func (g *GuardedStore) Breaker() *docerrors.CircuitBreaker {
	return g.breaker
}

func (g *GuardedStore) FindBySubstring(ctx context.Context, fields []Field, tokens []string, f Filters, limit int) ([]*Document, error) {
	return guardedCall(ctx, g, "find_by_substring", func() ([]*Document, error) {
		return g.inner.FindBySubstring(ctx, fields, tokens, f, limit)
	})
}

func (g *GuardedStore) FindByFilter(ctx context.Context, f Filters, limit int) ([]*Document, error) {
	return guardedCall(ctx, g, "find_by_filter", func() ([]*Document, error) {
		return g.inner.FindByFilter(ctx, f, limit)
	})
}

func (g *guardedFullTextStore) RankedFullText(ctx context.Context, q PrefixQuery, f Filters, limit int) ([]RankedHit, error) {
	return guardedCall(ctx, g.GuardedStore, "ranked_full_text", func() ([]RankedHit, error) {
		return g.fts.RankedFullText(ctx, q, f, limit)
	})
}

func guardedCall[T any](ctx context.Context, g *GuardedStore, op string, fn func() (T, error)) (T, error) {
	result, err := docerrors.RetryWithResult(ctx, g.retry, func() (T, error) {
		return docerrors.CircuitExecute(g.breaker, func() (T, error) {
			v, err := fn()
			if err != nil && ctx.Err() == nil {
				return v, docerrors.StoreUnavailable(op, err)
			}
			return v, err
		})
	})
	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, ctxErr
	}
	slog.Warn("store_call_failed",
		slog.String("operation", op),
		slog.String("breaker", g.breaker.State().String()),
		slog.String("error", err.Error()))

	if errors.Is(err, docerrors.ErrStoreUnavailable) {
		return result, err
	}
	return result, docerrors.StoreUnavailable(op, err)
}
