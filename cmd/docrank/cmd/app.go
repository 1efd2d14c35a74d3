package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Aman-CERP/docrank/internal/config"
	docerrors "github.com/Aman-CERP/docrank/internal/errors"
	"github.com/Aman-CERP/docrank/internal/search"
	"github.com/Aman-CERP/docrank/internal/store"
	"github.com/Aman-CERP/docrank/internal/strategy"
	"github.com/Aman-CERP/docrank/internal/telemetry"
)

// app is the wired search stack for one command run.
type app struct {
	cfg       *config.Config
	service   *search.Service
	recorder  *telemetry.Recorder
	analytics *telemetry.SQLiteSnapshotStore
	breaker   *docerrors.CircuitBreaker

	closers []func() error
}

// plainStore hides a FullTextSearcher so the fulltext strategy falls back
// to lexical matching.
type plainStore struct {
	store.DocumentStore
}

// openApp builds the document store, registry, recorder and service from cfg.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	ds, err := a.openDocumentStore(ctx)
	if err != nil {
		_ = a.close()
		return nil, err
	}

	retry := docerrors.DefaultRetryConfig()
	retry.MaxRetries = cfg.Store.Retries
	a.breaker = docerrors.NewCircuitBreaker("document_store",
		docerrors.WithMaxFailures(cfg.Store.MaxFailures),
		docerrors.WithResetTimeout(cfg.ResetTimeoutDuration()))
	guarded := store.Guard(ds, a.breaker, retry)

	a.recorder = telemetry.NewRecorder(telemetry.RecorderConfig{TopQueries: cfg.Analytics.TopQueries})

	method, err := search.ParseMethod(cfg.Search.Method)
	if err != nil {
		_ = a.close()
		return nil, docerrors.ConfigError("invalid search method", err)
	}

	svc, err := search.NewService(strategy.NewDefaultRegistry(guarded),
		search.WithRecorder(a.recorder),
		search.WithTimeout(cfg.TimeoutDuration()),
		search.WithMaxLimit(cfg.Search.MaxLimit),
		search.WithWeights(cfg.Search.Weights),
		search.WithDefaultMethod(method),
		search.WithDefaultStrategies(cfg.Search.Strategies),
		search.WithCompareWorkers(cfg.Search.CompareWorkers),
	)
	if err != nil {
		_ = a.close()
		return nil, err
	}
	a.service = svc

	if cfg.Analytics.Path != "" {
		analytics, err := telemetry.OpenSnapshotStore(cfg.Analytics.Path)
		if err != nil {
			// Searching still works without persisted analytics.
			slog.Warn("analytics_store_unavailable",
				slog.String("path", cfg.Analytics.Path),
				slog.String("error", err.Error()))
		} else {
			a.analytics = analytics
			a.closers = append(a.closers, analytics.Close)
		}
	}

	slog.Debug("app_ready",
		slog.String("backend", cfg.Store.Backend),
		slog.String("fulltext", cfg.Store.FullText),
		slog.Int("strategies", len(svc.AvailableStrategies())))
	return a, nil
}

func (a *app) openDocumentStore(ctx context.Context) (store.DocumentStore, error) {
	switch strings.ToLower(a.cfg.Store.Backend) {
	case config.BackendSQLite:
		db, err := store.OpenSQLite(a.cfg.Store.Path)
		if err != nil {
			return nil, docerrors.StoreUnavailable("open", err).
				WithDetail("path", a.cfg.Store.Path)
		}
		a.closers = append(a.closers, db.Close)

		switch strings.ToLower(a.cfg.Store.FullText) {
		case config.FullTextSQLite:
			return db, nil
		case config.FullTextBleve:
			docs, err := db.FindByFilter(ctx, store.Filters{}, 0)
			if err != nil {
				return nil, docerrors.StoreUnavailable("load", err)
			}
			return a.withBleve(plainStore{db}, docs)
		default:
			return plainStore{db}, nil
		}

	default:
		docs, err := loadDocuments(a.cfg.Store.Corpus)
		if err != nil {
			return nil, err
		}
		mem := store.NewMemoryStore(docs...)
		if strings.EqualFold(a.cfg.Store.FullText, config.FullTextBleve) {
			return a.withBleve(mem, docs)
		}
		return mem, nil
	}
}

func (a *app) withBleve(ds store.DocumentStore, docs []*store.Document) (store.DocumentStore, error) {
	idx, err := store.NewBleveIndex(docs)
	if err != nil {
		return nil, docerrors.StoreUnavailable("index", err)
	}
	a.closers = append(a.closers, idx.Close)
	return store.WithFullText(ds, idx), nil
}

// loadDocuments reads the corpus file, or the built-in corpus when path is
// empty.
func loadDocuments(path string) ([]*store.Document, error) {
	if path == "" {
		return store.DefaultCorpus(), nil
	}
	return store.LoadCorpus(path)
}

// close flushes analytics to disk and releases every resource.
func (a *app) close() error {
	if a.recorder != nil && a.analytics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.TimeoutDuration())
		if err := a.recorder.Flush(ctx, a.analytics); err != nil {
			slog.Warn("analytics_flush_failed", slog.String("error", err.Error()))
		}
		cancel()
	}

	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	if firstErr != nil {
		return fmt.Errorf("failed to close resources: %w", firstErr)
	}
	return nil
}

// withApp opens the app for the current configuration, runs fn and closes.
func withApp(ctx context.Context, opts *rootOptions, fn func(*app) error) error {
	cfg, err := opts.config()
	if err != nil {
		return err
	}
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); cerr != nil {
			slog.Warn("app_close_failed", slog.String("error", cerr.Error()))
		}
	}()
	return fn(a)
}
