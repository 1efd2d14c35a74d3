package strategy

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/Aman-CERP/docrank/internal/store"
)

// Graph relations.
const (
	RelationDirect         = "direct"
	RelationSameTechnology = "same_technology"
	RelationSimilarTitle   = "similar_title"
)

const (
	graphSeedLimit          = 5
	graphTechNeighbours     = 3
	graphTitleNeighbours    = 2
	graphSameTechWeight     = 0.8
	graphSimilarTitleWeight = 0.7
	graphExpansionDecay     = 0.6
)

// GraphStrategy expands direct matches one hop to documents sharing their
// technology or title words.
type GraphStrategy struct {
	store store.DocumentStore
}

func NewGraph(ds store.DocumentStore) *GraphStrategy {
	return &GraphStrategy{store: ds}
}

func (g *GraphStrategy) Name() string { return Graph }
func (g *GraphStrategy) Description() string { return "One-hop expansion from direct matches" }

type graphNode struct {
	doc      *store.Document
	score    float64
	relation string
}

func (g *GraphStrategy) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []Result{}, nil
	}

	seeds, err := g.store.FindBySubstring(ctx, titleAndContent, []string{q}, opts.filters(), graphSeedLimit)
	if err != nil {
		return nil, storeError("find_by_substring", err)
	}
	if len(seeds) == 0 {
		return []Result{}, nil
	}

	nodes := make([]graphNode, 0, len(seeds)*(1+graphTechNeighbours+graphTitleNeighbours))
	for _, d := range seeds {
		nodes = append(nodes, graphNode{doc: d, score: 1.0, relation: RelationDirect})
	}

	for _, seed := range seeds {
		// neighbours stay inside the request filters
		neighbour := opts.filters()
		neighbour.ExcludeIDs = []string{seed.ID}

		if opts.Technology != "" {
			related, err := g.store.FindByFilter(ctx, neighbour, graphTechNeighbours)
			if err != nil {
				return nil, storeError("find_by_filter", err)
			}
			for _, d := range related {
				nodes = append(nodes, graphNode{doc: d, score: graphSameTechWeight * graphExpansionDecay, relation: RelationSameTechnology})
			}
		}

		if tw := titleWords(seed.Title); len(tw) > 0 {
			related, err := g.store.FindBySubstring(ctx, []store.Field{store.FieldTitle}, tw, neighbour, graphTitleNeighbours)
			if err != nil {
				return nil, storeError("find_by_substring", err)
			}
			for _, d := range related {
				nodes = append(nodes, graphNode{doc: d, score: graphSimilarTitleWeight * graphExpansionDecay, relation: RelationSimilarTitle})
			}
		}
	}

	// keep the strongest relation per document
	best := make(map[string]int, len(nodes))
	unique := make([]graphNode, 0, len(nodes))
	for _, n := range nodes {
		if i, ok := best[n.doc.ID]; ok {
			if n.score > unique[i].score {
				unique[i] = n
			}
			continue
		}
		best[n.doc.ID] = len(unique)
		unique = append(unique, n)
	}

	results := make([]Result, 0, len(unique))
	for _, n := range unique {
		depth := 1
		if n.relation == RelationDirect {
			depth = 0
		}
		results = append(results, Result{
			Document:  n.doc,
			Score:     n.score,
			MatchType: Graph,
			Details: map[string]any{
				"relation":   n.relation,
				"graphDepth": depth,
			},
		})
	}
	return rank(results, opts.limit()), nil
}

// titleWords returns the lowercase title words longer than three characters.
func titleWords(title string) []string {
	out := make([]string, 0)
	for _, w := range words(title) {
		if utf8.RuneCountInString(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}
