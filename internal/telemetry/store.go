package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// maxStoredZeroResults caps the persisted zero-result ring.
const maxStoredZeroResults = 100

// SnapshotStore persists analytics across processes.
type SnapshotStore interface {
	// Merge adds a delta to the stored totals.
	Merge(ctx context.Context, d *Delta) error

	// Load returns the stored totals with up to topN popular queries.
	Load(ctx context.Context, topN int) (*Snapshot, error)

	Close() error
}

// SQLiteSnapshotStore implements SnapshotStore using SQLite.
type SQLiteSnapshotStore struct {
	db     *sql.DB
	ownsDB bool
}

var _ SnapshotStore = (*SQLiteSnapshotStore)(nil)

// NewSQLiteSnapshotStore wraps an existing connection and creates the
// analytics tables if needed. Close does not close db.
func NewSQLiteSnapshotStore(db *sql.DB) (*SQLiteSnapshotStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := InitSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteSnapshotStore{db: db}, nil
}

// OpenSnapshotStore opens (or creates) an analytics database at path. An
// empty path opens a private in-memory database.
func OpenSnapshotStore(path string) (*SQLiteSnapshotStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s, err := NewSQLiteSnapshotStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// InitSchema creates the analytics tables if they don't exist.
func InitSchema(db *sql.DB) error {
	schema := `
	-- Single-row search total
	CREATE TABLE IF NOT EXISTS search_totals (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		total INTEGER NOT NULL DEFAULT 0,
		zero_results INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS popular_queries (
		query TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 0,
		last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_popular_queries_count ON popular_queries(count DESC);

	CREATE TABLE IF NOT EXISTS strategy_stats (
		strategy TEXT PRIMARY KEY,
		usage INTEGER NOT NULL DEFAULT 0,
		avg_score REAL NOT NULL DEFAULT 0
	);

	-- Zero-result queries (circular buffer - max 100)
	CREATE TABLE IF NOT EXISTS zero_result_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Latency histogram (buckets: <10ms, 10-50ms, 50-100ms, 100-500ms, >500ms)
	CREATE TABLE IF NOT EXISTS latency_stats (
		bucket TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 0
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create analytics schema: %w", err)
	}
	return nil
}

// Merge applies d in one transaction.
func (s *SQLiteSnapshotStore) Merge(ctx context.Context, d *Delta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if d.Searches > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO search_totals (id, total, zero_results) VALUES (1, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				total = total + excluded.total,
				zero_results = zero_results + excluded.zero_results
		`, d.Searches, len(d.ZeroResults)); err != nil {
			return fmt.Errorf("update search total: %w", err)
		}
	}

	for q, c := range d.Queries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO popular_queries (query, count, last_seen) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(query) DO UPDATE SET count = count + excluded.count, last_seen = CURRENT_TIMESTAMP
		`, q, c); err != nil {
			return fmt.Errorf("upsert query count: %w", err)
		}
	}

	// the stored average halves toward the delta's average, like the recorder
	for _, st := range d.Strategies {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO strategy_stats (strategy, usage, avg_score) VALUES (?, ?, ?)
			ON CONFLICT(strategy) DO UPDATE SET
				usage = usage + excluded.usage,
				avg_score = CASE WHEN usage = 0 THEN excluded.avg_score
				                 ELSE (avg_score + excluded.avg_score) / 2 END
		`, st.Strategy, st.Usage, st.AvgScore); err != nil {
			return fmt.Errorf("upsert strategy stats: %w", err)
		}
	}

	now := time.Now().UTC()
	for _, q := range d.ZeroResults {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO zero_result_queries (query, timestamp) VALUES (?, ?)`, q, now); err != nil {
			return fmt.Errorf("insert zero-result query: %w", err)
		}
	}
	if len(d.ZeroResults) > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM zero_result_queries
			WHERE id NOT IN (SELECT id FROM zero_result_queries ORDER BY id DESC LIMIT ?)
		`, maxStoredZeroResults); err != nil {
			return fmt.Errorf("trim zero-result queries: %w", err)
		}
	}

	for b, c := range d.Latencies {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO latency_stats (bucket, count) VALUES (?, ?)
			ON CONFLICT(bucket) DO UPDATE SET count = count + excluded.count
		`, string(b), c); err != nil {
			return fmt.Errorf("upsert latency count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Load reads the stored totals. Zero-result queries come back oldest first.
func (s *SQLiteSnapshotStore) Load(ctx context.Context, topN int) (*Snapshot, error) {
	snap := &Snapshot{
		PopularQueries:      []QueryCount{},
		StrategyPerformance: []StrategyStats{},
		ZeroResultQueries:   []string{},
		LatencyDistribution: make(map[LatencyBucket]int64),
	}

	err := s.db.QueryRowContext(ctx, `SELECT total, zero_results FROM search_totals WHERE id = 1`).
		Scan(&snap.TotalSearches, &snap.ZeroResultCount)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query search total: %w", err)
	}

	if topN <= 0 {
		topN = DefaultRecorderConfig().TopQueries
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT query, count FROM popular_queries
		ORDER BY count DESC, query ASC
		LIMIT ?
	`, topN)
	if err != nil {
		return nil, fmt.Errorf("query popular queries: %w", err)
	}
	for rows.Next() {
		var qc QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan row: %w", err)
		}
		snap.PopularQueries = append(snap.PopularQueries, qc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT strategy, usage, avg_score FROM strategy_stats ORDER BY strategy`)
	if err != nil {
		return nil, fmt.Errorf("query strategy stats: %w", err)
	}
	for rows.Next() {
		var st StrategyStats
		if err := rows.Scan(&st.Strategy, &st.Usage, &st.AvgScore); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan row: %w", err)
		}
		snap.StrategyPerformance = append(snap.StrategyPerformance, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT query FROM zero_result_queries ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query zero-result queries: %w", err)
	}
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan row: %w", err)
		}
		snap.ZeroResultQueries = append(snap.ZeroResultQueries, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT bucket, count FROM latency_stats`)
	if err != nil {
		return nil, fmt.Errorf("query latency stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b string
		var c int64
		if err := rows.Scan(&b, &c); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		snap.LatencyDistribution[LatencyBucket(b)] = c
	}
	return snap, rows.Err()
}

// Close releases the connection when the store opened it.
func (s *SQLiteSnapshotStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}
