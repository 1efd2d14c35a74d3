package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrank/internal/config"
	"github.com/Aman-CERP/docrank/internal/store"
)

const (
	seedBatchSize   = 100
	seedLockTimeout = 10 * time.Second
)

func newSeedCmd(root *rootOptions) *cobra.Command {
	var (
		corpus string
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a corpus into the SQLite document database",
		Long: `Upsert documents from a YAML or JSON corpus file into the SQLite
database used by the sqlite backend. Without --corpus the configured corpus,
or the built-in sample documents, are loaded.

Concurrent seeds of the same database are serialised with a lock file.

Examples:
  docrank seed
  docrank seed --corpus docs.yaml --db ./docs.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd.Context(), cmd, root, corpus, dbPath)
		},
	}

	cmd.Flags().StringVar(&corpus, "corpus", "", "Corpus file (default from config, else built-in)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default from config)")
	return cmd
}

func runSeed(ctx context.Context, cmd *cobra.Command, root *rootOptions, corpus, dbPath string) error {
	cfg, err := root.config()
	if err != nil {
		return err
	}
	if corpus == "" {
		corpus = cfg.Store.Corpus
	}
	if dbPath == "" {
		dbPath = cfg.Store.Path
	}

	docs, err := loadDocuments(corpus)
	if err != nil {
		return err
	}

	lock := store.NewWriteLock(dbPath)
	lockCtx, cancel := context.WithTimeout(ctx, seedLockTimeout)
	defer cancel()
	if err := lock.Acquire(lockCtx); err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	db, err := store.OpenSQLite(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open document database: %w", err)
	}
	defer func() { _ = db.Close() }()

	out := newWriter(cmd.OutOrStdout(), root)
	quiet := root.jsonOutput()
	for start := 0; start < len(docs); start += seedBatchSize {
		end := min(start+seedBatchSize, len(docs))
		if err := db.Put(ctx, docs[start:end]); err != nil {
			return err
		}
		if !quiet {
			out.Progress(end, len(docs), "Seeding documents")
		}
	}

	count, err := db.Count(ctx)
	if err != nil {
		return err
	}
	slog.Info("seed_complete",
		slog.String("path", dbPath),
		slog.Int("documents", len(docs)),
		slog.Int("total", count))

	if quiet {
		return out.JSON(map[string]any{"path": dbPath, "seeded": len(docs), "total": count})
	}
	out.Successf("Seeded %d documents into %s (%d total)", len(docs), dbPath, count)
	if !strings.EqualFold(cfg.Store.Backend, config.BackendSQLite) {
		out.Status("", "Set store.backend: sqlite in .docrank.yaml to search this database")
	}
	return nil
}
