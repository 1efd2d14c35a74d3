package search

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	docerrors "github.com/Aman-CERP/docrank/internal/errors"
	"github.com/Aman-CERP/docrank/internal/strategy"
)

// Code technologies searched by SearchCode.
const (
	TechVue        = "vue"
	TechNode       = "node"
	TechTypeScript = "typescript"
	TechGrapesJS   = "grapesjs"
)

// Technology weighting applied to multi-technology results.
const (
	techMentionBoost = 0.5
	techKeywordBoost = 0.2

	// extraPerTechnology widens each technology's share of the limit so the
	// merged list has room to choose.
	extraPerTechnology = 2
)

// CodeTechnology describes a supported technology.
type CodeTechnology struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// CodeTechnologies lists the supported technologies.
func CodeTechnologies() []CodeTechnology {
	return []CodeTechnology{
		{Value: TechVue, Label: "Vue.js", Description: "Progressive JavaScript framework"},
		{Value: TechNode, Label: "Node.js", Description: "JavaScript runtime environment"},
		{Value: TechTypeScript, Label: "TypeScript", Description: "Typed superset of JavaScript"},
		{Value: TechGrapesJS, Label: "GrapesJS", Description: "Web Builder Framework"},
	}
}

func codeTechnologyNames() []string {
	techs := CodeTechnologies()
	out := make([]string, len(techs))
	for i, t := range techs {
		out[i] = t.Value
	}
	return out
}

var technologyKeywords = map[string][]string{
	TechVue:        {"component", "directive", "computed", "watch", "reactive", "composition"},
	TechNode:       {"server", "express", "npm", "module", "require", "async"},
	TechTypeScript: {"interface", "type", "generic", "enum", "decorator", "strict"},
	TechGrapesJS:   {"editor", "block", "component", "canvas", "panel", "trait"},
}

// CodeRequest configures a code search.
type CodeRequest struct {
	// Options are passed to every strategy. Technology is replaced per
	// searched technology; Type selects the code type (documentation,
	// issue, example).
	strategy.Options

	// Technologies to search. Empty means all of CodeTechnologies.
	Technologies []string

	// Strategies to run. Empty means CodeStrategies(query).
	Strategies []string

	// Method is the fusion method (default: weighted_sum).
	Method Method

	// Weights overrides default strategy weights for weighted_sum.
	Weights map[string]float64
}

// CodeResponse is the result of a code search.
type CodeResponse struct {
	Query        string        `json:"query"`
	Technologies []string      `json:"technologies"`
	Strategies   []string      `json:"strategies"`
	Method       Method        `json:"method"`
	Results      []FusedResult `json:"results"`
	Warning      string        `json:"warning,omitempty"`
}

var (
	codeTroubleRe = regexp.MustCompile(`(?i)\b(error|bug|issue|exception)\b`)
	codeAPIRe     = regexp.MustCompile(`(?i)\b(api|method|function|class)\b`)
)

// CodeStrategies picks strategies suited to code queries: short queries get
// lexical and fuzzy, long ones fulltext and bm25, error words rule_based and
// ngram, API words bm25 and lexical. Anything else gets bm25 and rule_based.
func CodeStrategies(query string) []string {
	n := utf8.RuneCountInString(query)
	out := make([]string, 0, 4)
	add := func(names ...string) {
		for _, name := range names {
			if !slices.Contains(out, name) {
				out = append(out, name)
			}
		}
	}

	if n < shortQueryChars {
		add(strategy.Lexical, strategy.Fuzzy)
	}
	if n > longQueryChars {
		add(strategy.FullText, strategy.BM25)
	}
	if codeTroubleRe.MatchString(query) {
		add(strategy.RuleBased, strategy.NGram)
	}
	if codeAPIRe.MatchString(query) {
		add(strategy.BM25, strategy.Lexical)
	}
	if len(out) == 0 {
		add(strategy.BM25, strategy.RuleBased)
	}
	return out
}

// TechnologyWeight scales a technology's scores for query: 1, plus 0.5 when
// the query names the technology, plus 0.2 per technology keyword it
// contains.
func TechnologyWeight(tech, query string) float64 {
	q := strings.ToLower(query)
	weight := 1.0
	if strings.Contains(q, tech) {
		weight += techMentionBoost
	}
	for _, kw := range technologyKeywords[tech] {
		if strings.Contains(q, kw) {
			weight += techKeywordBoost
		}
	}
	return weight
}

// CodeSearchRecommendations suggests how to refine a code query.
func CodeSearchRecommendations(query string) []string {
	q := strings.ToLower(query)
	var out []string
	if strings.Contains(q, "error") || strings.Contains(q, "bug") {
		out = append(out, "Try the troubleshooting search over issues")
	}
	if utf8.RuneCountInString(q) < 5 {
		out = append(out, "Add more detail for more precise results")
	}
	if !slices.ContainsFunc(codeTechnologyNames(), func(t string) bool { return strings.Contains(q, t) }) {
		out = append(out, "Name a technology for better results")
	}
	return out
}

// SearchCode runs a hybrid search per technology. A single technology is a
// plain filtered search. Several are searched concurrently with a share of
// ceil(limit/n)+2 each; their scores are scaled by TechnologyWeight, then
// merged, de-duplicated by document and truncated to the limit.
func (s *Service) SearchCode(ctx context.Context, query string, req CodeRequest) (*CodeResponse, error) {
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}
	if err := validateRequest(Request{Options: req.Options}, s.maxLimit); err != nil {
		return nil, err
	}
	techs, err := codeTechnologies(req.Technologies)
	if err != nil {
		return nil, err
	}

	names := req.Strategies
	if len(names) == 0 {
		names = CodeStrategies(query)
	}
	method := req.Method
	if method == "" {
		method = WeightedSum
	}
	limit := limitOf(req.Options)

	resp := &CodeResponse{
		Query:        query,
		Technologies: techs,
		Strategies:   slices.Clone(names),
		Method:       method,
	}
	slog.Debug("code_search_started",
		slog.String("query", query),
		slog.Any("technologies", techs),
		slog.Any("strategies", names))

	base := Request{Options: req.Options, Strategies: names, Method: method, Weights: req.Weights}
	base.Limit = limit

	if len(techs) == 1 {
		base.Technology = techs[0]
		results, err := s.Search(ctx, query, base)
		if err != nil {
			return nil, err
		}
		resp.Results = results
	} else {
		share := (limit+len(techs)-1)/len(techs) + extraPerTechnology
		if s.maxLimit > 0 && share > s.maxLimit {
			share = s.maxLimit
		}

		perTech := make([][]FusedResult, len(techs))
		g, gctx := errgroup.WithContext(ctx)
		for i, tech := range techs {
			g.Go(func() error {
				r := base
				r.Technology = tech
				r.Limit = share
				results, err := s.Search(gctx, query, r)
				if err != nil {
					return err
				}
				perTech[i] = weighTechnology(results, tech, TechnologyWeight(tech, query))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		merged := dedupeByDocument(slices.Concat(perTech...))
		slices.SortStableFunc(merged, func(a, b FusedResult) int {
			return cmp.Compare(b.Score, a.Score)
		})
		if len(merged) > limit {
			merged = merged[:limit]
		}
		resp.Results = merged
	}

	if len(resp.Results) == 0 {
		resp.Warning = "No results found for the query"
	}
	slog.Info("code_search_complete",
		slog.String("query", query),
		slog.Int("technologies", len(techs)),
		slog.Int("results", len(resp.Results)))
	return resp, nil
}

// SearchCodeDocumentation searches documentation with fulltext, bm25 and
// rule_based unless strategies are given.
func (s *Service) SearchCodeDocumentation(ctx context.Context, query string, req CodeRequest) (*CodeResponse, error) {
	req.Type = "documentation"
	req.Strategies = orDefault(req.Strategies, strategy.FullText, strategy.BM25, strategy.RuleBased)
	resp, err := s.SearchCode(ctx, query, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		resp.Warning = "No documentation found for the query"
	}
	return resp, nil
}

// SearchCodeIssues searches issues with rule_based, fuzzy and ngram unless
// strategies are given.
func (s *Service) SearchCodeIssues(ctx context.Context, query string, req CodeRequest) (*CodeResponse, error) {
	req.Type = "issue"
	req.Strategies = orDefault(req.Strategies, strategy.RuleBased, strategy.Fuzzy, strategy.NGram)
	resp, err := s.SearchCode(ctx, query, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		resp.Warning = "No issues found for the query"
	}
	return resp, nil
}

// apiTerms are appended to API queries.
var apiTerms = []string{"api", "method", "function", "property", "interface"}

// SearchAPI searches documentation for API references. The query is
// expanded with API terms and ranked by bm25, rule_based and lexical unless
// strategies are given.
func (s *Service) SearchAPI(ctx context.Context, query string, req CodeRequest) (*CodeResponse, error) {
	req.Type = "documentation"
	req.Strategies = orDefault(req.Strategies, strategy.BM25, strategy.RuleBased, strategy.Lexical)
	return s.SearchCode(ctx, query+" "+strings.Join(apiTerms, " "), req)
}

// SearchByTechnology searches a single technology.
func (s *Service) SearchByTechnology(ctx context.Context, tech, query string, req CodeRequest) (*CodeResponse, error) {
	req.Technologies = []string{tech}
	return s.SearchCode(ctx, query, req)
}

// SearchTroubleshooting searches issues for fixes. Queries without "error"
// or "bug" get both words appended; results need at least two of
// rule_based, fuzzy and bm25 to agree unless strategies or a method are
// given.
func (s *Service) SearchTroubleshooting(ctx context.Context, query string, req CodeRequest) (*CodeResponse, error) {
	lower := strings.ToLower(query)
	if !strings.Contains(lower, "error") && !strings.Contains(lower, "bug") {
		query += " error bug"
	}
	req.Type = "issue"
	req.Strategies = orDefault(req.Strategies, strategy.RuleBased, strategy.Fuzzy, strategy.BM25)
	if req.Method == "" {
		req.Method = Vote
	}
	return s.SearchCode(ctx, query, req)
}

// codeTechnologies normalises and checks the requested technologies.
func codeTechnologies(requested []string) ([]string, error) {
	known := codeTechnologyNames()
	if len(requested) == 0 {
		return known, nil
	}
	out := make([]string, 0, len(requested))
	for _, t := range requested {
		t = strings.ToLower(strings.TrimSpace(t))
		if !slices.Contains(known, t) {
			return nil, docerrors.InvalidOptions(fmt.Sprintf("unsupported technology %q", t)).
				WithSuggestion("Use one of: " + strings.Join(known, ", "))
		}
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out, nil
}

// weighTechnology scales scores by weight and tags each result with the
// technology that found it.
func weighTechnology(results []FusedResult, tech string, weight float64) []FusedResult {
	out := make([]FusedResult, len(results))
	for i, r := range results {
		details := make(map[string]any, len(r.Details)+1)
		for k, v := range r.Details {
			details[k] = v
		}
		details["searchTechnology"] = tech
		r.Score *= weight
		r.Details = details
		out[i] = r
	}
	return out
}

// dedupeByDocument keeps the first result per document with the highest
// score seen for it. combinedFrom records every technology that found it.
func dedupeByDocument(results []FusedResult) []FusedResult {
	index := make(map[string]int, len(results))
	out := make([]FusedResult, 0, len(results))
	for _, r := range results {
		i, seen := index[r.Document.ID]
		if !seen {
			index[r.Document.ID] = len(out)
			out = append(out, r)
			continue
		}
		existing := &out[i]
		existing.Score = max(existing.Score, r.Score)
		if existing.Details == nil {
			existing.Details = map[string]any{}
		}

		from, ok := existing.Details["combinedFrom"].([]string)
		if !ok {
			from = technologyOf(*existing)
		}
		existing.Details["combinedFrom"] = append(slices.Clone(from), technologyOf(r)...)
	}
	return out
}

func technologyOf(r FusedResult) []string {
	if tech, ok := r.Details["searchTechnology"].(string); ok && tech != "" {
		return []string{tech}
	}
	return nil
}

func orDefault(names []string, fallback ...string) []string {
	if len(names) > 0 {
		return names
	}
	return fallback
}
