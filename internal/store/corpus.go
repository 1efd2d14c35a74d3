package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	docerrors "github.com/Aman-CERP/docrank/internal/errors"
)

// corpusFile is the mapping form of a corpus file. A bare sequence of
// documents is accepted too. JSON files parse as YAML.
type corpusFile struct {
	Documents []*Document `yaml:"documents"`
}

// UnmarshalYAML reads the creation time from created_at or from createdAt,
// the key documents carry in JSON output, so exported results load back with
// their timestamps. Quoted JSON strings are accepted for both.
func (d *Document) UnmarshalYAML(node *yaml.Node) error {
	var aux struct {
		ID            string    `yaml:"id"`
		Title         string    `yaml:"title"`
		Content       string    `yaml:"content"`
		Source        string    `yaml:"source"`
		Type          string    `yaml:"type"`
		Technology    string    `yaml:"technology"`
		CreatedAt     timestamp `yaml:"created_at"`
		CreatedAtJSON timestamp `yaml:"createdAt"`
	}
	if err := node.Decode(&aux); err != nil {
		return err
	}
	*d = Document{
		ID:         aux.ID,
		Title:      aux.Title,
		Content:    aux.Content,
		Source:     aux.Source,
		Type:       aux.Type,
		Technology: aux.Technology,
		CreatedAt:  aux.CreatedAt.Time,
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = aux.CreatedAtJSON.Time
	}
	return nil
}

// timestamp decodes RFC 3339 times and plain dates, quoted or not.
type timestamp struct{ time.Time }

func (t *timestamp) UnmarshalYAML(node *yaml.Node) error {
	v := strings.TrimSpace(node.Value)
	if v == "" || v == "null" || v == "~" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if parsed, err := time.Parse(layout, v); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", v)
}

// LoadCorpus reads documents from a YAML or JSON file.
func LoadCorpus(path string) ([]*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, docerrors.New(docerrors.ErrCodeCorpusInvalid, fmt.Sprintf("cannot read corpus %s", path), err)
	}
	docs, err := ParseCorpus(data)
	if err != nil {
		var de *docerrors.DocError
		if errors.As(err, &de) {
			de.WithDetail("path", path)
		}
		return nil, err
	}
	return docs, nil
}

// ParseCorpus decodes and validates corpus bytes. Missing IDs default to the
// document source; IDs and sources must be unique.
func ParseCorpus(data []byte) ([]*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, docerrors.New(docerrors.ErrCodeCorpusInvalid, "corpus is not valid YAML or JSON", err)
	}

	var docs []*Document
	if len(root.Content) > 0 {
		node := root.Content[0]
		var err error
		switch node.Kind {
		case yaml.SequenceNode:
			err = node.Decode(&docs)
		case yaml.MappingNode:
			var cf corpusFile
			err = node.Decode(&cf)
			docs = cf.Documents
		default:
			err = fmt.Errorf("unexpected top-level node")
		}
		if err != nil {
			return nil, docerrors.New(docerrors.ErrCodeCorpusInvalid, "corpus has an unexpected shape", err).
				WithSuggestion("Use a list of documents or a 'documents:' key")
		}
	}

	ids := make(map[string]struct{}, len(docs))
	sources := make(map[string]struct{}, len(docs))
	for i, d := range docs {
		if d == nil {
			return nil, docerrors.New(docerrors.ErrCodeCorpusInvalid, fmt.Sprintf("document %d is empty", i), nil)
		}
		d.Source = strings.TrimSpace(d.Source)
		if d.Source == "" {
			return nil, docerrors.New(docerrors.ErrCodeCorpusInvalid, fmt.Sprintf("document %d has no source", i), nil)
		}
		if d.ID == "" {
			d.ID = d.Source
		}
		if strings.TrimSpace(d.Title) == "" {
			return nil, docerrors.New(docerrors.ErrCodeCorpusInvalid, fmt.Sprintf("document %s has no title", d.ID), nil)
		}
		if _, dup := ids[d.ID]; dup {
			return nil, docerrors.New(docerrors.ErrCodeCorpusInvalid, fmt.Sprintf("duplicate document id %s", d.ID), nil)
		}
		if _, dup := sources[d.Source]; dup {
			return nil, docerrors.New(docerrors.ErrCodeCorpusInvalid, fmt.Sprintf("duplicate document source %s", d.Source), nil)
		}
		ids[d.ID] = struct{}{}
		sources[d.Source] = struct{}{}
	}
	return docs, nil
}

// DefaultCorpus returns the built-in seed documents used when no corpus is
// configured.
func DefaultCorpus() []*Document {
	created := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	return []*Document{
		{
			ID:         "1",
			Title:      "Vue Composition API",
			Content:    "The Composition API lets you organise component logic by feature instead of by option.",
			Source:     "vue",
			Type:       "documentation",
			Technology: "vue",
			CreatedAt:  created,
		},
		{
			ID:         "2",
			Title:      "Node.js Event Loop",
			Content:    "The Event Loop is the mechanism that lets Node.js perform non-blocking operations.",
			Source:     "node",
			Type:       "documentation",
			Technology: "node",
			CreatedAt:  created,
		},
		{
			ID:         "3",
			Title:      "TypeScript Generics",
			Content:    "Generics let you create components that work with many data types.",
			Source:     "typescript",
			Type:       "documentation",
			Technology: "typescript",
			CreatedAt:  created,
		},
	}
}
