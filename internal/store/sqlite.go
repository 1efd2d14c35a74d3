package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// foldFunc is a Unicode-aware lower(). SQLite's built-in lower() only folds
// ASCII, which would make substring matching disagree with MemoryStore.
const foldFunc = "docrank_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1, foldText)
}

func foldText(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// SQLiteStore keeps documents in SQLite with an FTS5 index over title and
// content. It implements both DocumentStore and FullTextSearcher.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

var (
	_ DocumentStore    = (*SQLiteStore)(nil)
	_ FullTextSearcher = (*SQLiteStore)(nil)
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL,
	source     TEXT NOT NULL UNIQUE,
	type       TEXT NOT NULL DEFAULT '',
	technology TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL DEFAULT 0
);

CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
	doc_id UNINDEXED,
	title,
	content,
	tokenize='unicode61'
);
`

// OpenSQLite opens (or creates) a document database at path. An empty path
// opens a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
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

	// Single connection: an in-memory database is private to its connection
	// and SQLite serialises writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	if path != "" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Put upserts documents by ID and refreshes their full-text entries.
func (s *SQLiteStore) Put(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, title, content, source, type, technology, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			source = excluded.source,
			type = excluded.type,
			technology = excluded.technology,
			created_at = excluded.created_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer upsert.Close()

	// FTS5 tables have no REPLACE, so delete then insert.
	del, err := tx.PrepareContext(ctx, `DELETE FROM documents_fts WHERE doc_id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare fts delete: %w", err)
	}
	defer del.Close()

	ins, err := tx.PrepareContext(ctx, `INSERT INTO documents_fts (doc_id, title, content) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare fts insert: %w", err)
	}
	defer ins.Close()

	for _, d := range docs {
		if _, err := upsert.ExecContext(ctx, d.ID, d.Title, d.Content, d.Source, d.Type, d.Technology, d.CreatedAt.UnixMilli()); err != nil {
			return fmt.Errorf("failed to store document %s: %w", d.ID, err)
		}
		if _, err := del.ExecContext(ctx, d.ID); err != nil {
			return fmt.Errorf("failed to clear fts entry %s: %w", d.ID, err)
		}
		if _, err := ins.ExecContext(ctx, d.ID, d.Title, d.Content); err != nil {
			return fmt.Errorf("failed to index document %s: %w", d.ID, err)
		}
	}

	return tx.Commit()
}

// Count returns the number of stored documents.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

const documentColumns = `d.id, d.title, d.content, d.source, d.type, d.technology, d.created_at`

func (s *SQLiteStore) FindBySubstring(ctx context.Context, fields []Field, tokens []string, f Filters, limit int) ([]*Document, error) {
	var (
		ors  []string
		args []any
	)
	for _, field := range fields {
		col, ok := fieldColumn(field)
		if !ok {
			continue
		}
		for _, tok := range tokens {
			if tok == "" {
				continue
			}
			ors = append(ors, fmt.Sprintf("instr(%s(d.%s), ?) > 0", foldFunc, col))
			args = append(args, strings.ToLower(tok))
		}
	}
	if len(ors) == 0 {
		return []*Document{}, nil
	}

	where, fargs := filterClause(f)
	where = append(where, "("+strings.Join(ors, " OR ")+")")
	args = append(fargs, args...)

	return s.queryDocuments(ctx, where, args, limit)
}

func (s *SQLiteStore) FindByFilter(ctx context.Context, f Filters, limit int) ([]*Document, error) {
	where, args := filterClause(f)
	return s.queryDocuments(ctx, where, args, limit)
}

func (s *SQLiteStore) queryDocuments(ctx context.Context, where []string, args []any, limit int) ([]*Document, error) {
	q := "SELECT " + documentColumns + " FROM documents d"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY d.rowid"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("document query failed: %w", err)
	}
	defer rows.Close()

	out := make([]*Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// RankedFullText runs an FTS5 prefix query. Rank is the negated bm25() so
// that higher is better; Headline is an FTS5 snippet of the content.
func (s *SQLiteStore) RankedFullText(ctx context.Context, pq PrefixQuery, f Filters, limit int) ([]RankedHit, error) {
	match := fts5Match(pq)
	if match == "" {
		return []RankedHit{}, nil
	}

	where, args := filterClause(f)
	where = append([]string{"documents_fts MATCH ?"}, where...)
	args = append([]any{match}, args...)

	q := `SELECT ` + documentColumns + `,
			bm25(documents_fts) AS score,
			snippet(documents_fts, 2, '<b>', '</b>', '...', 16) AS headline
		FROM documents_fts
		JOIN documents d ON d.id = documents_fts.doc_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY score, d.id`
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		// malformed MATCH expressions mean no hits, not a broken store
		if strings.Contains(err.Error(), "fts5:") || strings.Contains(err.Error(), "syntax error") {
			return []RankedHit{}, nil
		}
		return nil, fmt.Errorf("full-text query failed: %w", err)
	}
	defer rows.Close()

	hits := make([]RankedHit, 0)
	for rows.Next() {
		var (
			d        Document
			created  int64
			score    float64
			headline string
		)
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.Source, &d.Type, &d.Technology, &created, &score, &headline); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		d.CreatedAt = time.UnixMilli(created).UTC()
		hits = append(hits, RankedHit{Document: &d, Rank: -score, Headline: headline})
	}
	return hits, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func fieldColumn(f Field) (string, bool) {
	switch f {
	case FieldTitle:
		return "title", true
	case FieldContent:
		return "content", true
	default:
		return "", false
	}
}

func filterClause(f Filters) ([]string, []any) {
	var (
		where []string
		args  []any
	)
	if f.Technology != "" {
		where = append(where, "d.technology = ?")
		args = append(args, f.Technology)
	}
	if f.Type != "" {
		where = append(where, "d.type = ?")
		args = append(args, f.Type)
	}
	if len(f.ExcludeIDs) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?,", len(f.ExcludeIDs)), ",")
		where = append(where, "d.id NOT IN ("+marks+")")
		for _, id := range f.ExcludeIDs {
			args = append(args, id)
		}
	}
	return where, args
}

// fts5Match renders terms as quoted FTS5 prefix tokens joined with AND.
func fts5Match(pq PrefixQuery) string {
	parts := make([]string, 0, len(pq))
	for _, t := range pq {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		parts = append(parts, `"`+strings.ReplaceAll(t, `"`, `""`)+`"*`)
	}
	return strings.Join(parts, " AND ")
}

func scanDocument(rows *sql.Rows) (*Document, error) {
	var (
		d       Document
		created int64
	)
	if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.Source, &d.Type, &d.Technology, &created); err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	d.CreatedAt = time.UnixMilli(created).UTC()
	return &d, nil
}
