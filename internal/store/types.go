// Package store provides the read-only document store adapters the ranking
// strategies query: an in-memory store, a SQLite store with an FTS5 index,
// and a bleve full-text index.
package store

import (
	"context"
	"slices"
	"strings"
	"time"
)

// Field names a searchable document field.
type Field string

const (
	FieldTitle   Field = "title"
	FieldContent Field = "content"
)

// Document is a unit of searchable text. ID is the deduplication key across
// strategies.
type Document struct {
	ID         string    `json:"id" yaml:"id"`
	Title      string    `json:"title" yaml:"title"`
	Content    string    `json:"content" yaml:"content"`
	Source     string    `json:"source" yaml:"source"`
	Type       string    `json:"type,omitempty" yaml:"type,omitempty"`
	Technology string    `json:"technology,omitempty" yaml:"technology,omitempty"`
	CreatedAt  time.Time `json:"createdAt" yaml:"created_at,omitempty"`
}

// Text returns the field value.
func (d *Document) Text(f Field) string {
	switch f {
	case FieldTitle:
		return d.Title
	case FieldContent:
		return d.Content
	default:
		return ""
	}
}

// Filters narrows candidate documents. Empty values do not filter.
type Filters struct {
	Technology string
	Type       string
	ExcludeIDs []string
}

// Matches reports whether d passes the filters.
func (f Filters) Matches(d *Document) bool {
	if f.Technology != "" && d.Technology != f.Technology {
		return false
	}
	if f.Type != "" && d.Type != f.Type {
		return false
	}
	return !slices.Contains(f.ExcludeIDs, d.ID)
}

// ContainsAny reports whether any token occurs, case-insensitively, in any
// of the given fields.
func ContainsAny(d *Document, fields []Field, tokens []string) bool {
	for _, f := range fields {
		text := strings.ToLower(d.Text(f))
		for _, tok := range tokens {
			if tok != "" && strings.Contains(text, strings.ToLower(tok)) {
				return true
			}
		}
	}
	return false
}

// RankedHit is one result of a ranked full-text query.
type RankedHit struct {
	Document *Document
	Rank     float64
	// Headline is a snippet of the content with matched terms highlighted.
	Headline string
}

// PrefixQuery is a conjunction of prefix terms: every term must prefix-match
// some word of the document.
type PrefixQuery []string

// String renders the query in tsquery notation ("vue:* & api:*").
func (q PrefixQuery) String() string {
	parts := make([]string, len(q))
	for i, t := range q {
		parts[i] = t + ":*"
	}
	return strings.Join(parts, " & ")
}

// DocumentStore is the narrow read interface the strategies depend on.
// A limit <= 0 means no limit. Results come back in a stable order.
type DocumentStore interface {
	// FindBySubstring returns documents where any token occurs as a
	// case-insensitive substring of any of the fields.
	FindBySubstring(ctx context.Context, fields []Field, tokens []string, f Filters, limit int) ([]*Document, error)

	// FindByFilter returns documents matching the filters alone.
	FindByFilter(ctx context.Context, f Filters, limit int) ([]*Document, error)
}

// FullTextSearcher is the optional ranked full-text capability of a store.
type FullTextSearcher interface {
	RankedFullText(ctx context.Context, q PrefixQuery, f Filters, limit int) ([]RankedHit, error)
}

type fullTextStore struct {
	DocumentStore
	FullTextSearcher
}

// WithFullText attaches a full-text searcher to a store that lacks one.
func WithFullText(ds DocumentStore, fts FullTextSearcher) DocumentStore {
	if fts == nil {
		return ds
	}
	return fullTextStore{DocumentStore: ds, FullTextSearcher: fts}
}
