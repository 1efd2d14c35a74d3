package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	docerrors "github.com/Aman-CERP/docrank/internal/errors"
	"github.com/Aman-CERP/docrank/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	queryFlags
	strategies []string
	method     string
	weights    map[string]string
	preset     string
	graph      bool
	recommend  bool
}

// searchOutput is the JSON output of search.
type searchOutput struct {
	Query   string               `json:"query"`
	Method  string               `json:"method"`
	Count   int                  `json:"count"`
	Results []search.FusedResult `json:"results"`
	Advice  string               `json:"advice"`
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a hybrid search across several strategies",
		Long: `Run several retrieval strategies concurrently and fuse their results.

Without --strategies the strategies are taken from the config (default
lexical + fulltext), or picked per query by the recommender with
--recommend. Presets bundle strategies, method and type:
  semantic      bm25 + ngram (+ graph with --graph), rank_fusion
  troubleshoot  rule_based + contextual + topic over issues, vote
  learning      contextual + topic + fulltext over documentation, weighted_sum

Examples:
  docrank search "vue composition api"
  docrank search "event loop" --strategies bm25,fulltext --method rank_fusion
  docrank search "generics" --weight bm25=2 --weight lexical=0.5
  docrank search "build error" --preset troubleshoot --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, root, strings.Join(args, " "), opts)
		},
	}

	opts.bind(cmd)
	cmd.Flags().StringSliceVarP(&opts.strategies, "strategies", "s", nil, "Strategies to run, in order (comma separated)")
	cmd.Flags().StringVarP(&opts.method, "method", "m", "", "Fusion method: weighted_sum, rank_fusion, cascade, vote")
	cmd.Flags().StringToStringVarP(&opts.weights, "weight", "w", nil, "Strategy weight override, e.g. bm25=2 (repeatable)")
	cmd.Flags().StringVar(&opts.preset, "preset", "", "Preset: semantic, troubleshoot, learning")
	cmd.Flags().BoolVar(&opts.graph, "graph", false, "Add graph expansion to the semantic preset")
	cmd.Flags().BoolVar(&opts.recommend, "recommend", false, "Let the recommender pick strategies when none are given")

	return cmd
}

// buildRequest turns flags into a search request. A preset fixes strategies
// and method; explicit flags still override them.
func (o searchOptions) buildRequest(root *rootOptions) (search.Request, error) {
	cfg, err := root.config()
	if err != nil {
		return search.Request{}, err
	}
	strategyOpts := o.options(cfg)

	req := search.Request{Options: strategyOpts}
	if o.preset != "" {
		preset, ok := search.PresetRequest(o.preset, strategyOpts, o.graph)
		if !ok {
			return search.Request{}, docerrors.InvalidOptions(fmt.Sprintf("unknown preset %q", o.preset)).
				WithSuggestion("Use one of: semantic, troubleshoot, learning")
		}
		req = preset
	}

	if len(o.strategies) > 0 {
		req.Strategies = o.strategies
	}
	req.Recommend = o.recommend && len(req.Strategies) == 0
	if o.method != "" {
		method, err := search.ParseMethod(o.method)
		if err != nil {
			return search.Request{}, docerrors.InvalidOptions(err.Error()).
				WithSuggestion("Use one of: weighted_sum, rank_fusion, cascade, vote")
		}
		req.Method = method
	}

	weights, err := parseWeights(o.weights)
	if err != nil {
		return search.Request{}, docerrors.InvalidOptions(err.Error())
	}
	req.Weights = weights
	return req, nil
}

func runSearch(ctx context.Context, cmd *cobra.Command, root *rootOptions, query string, opts searchOptions) error {
	if err := checkFormat(root.format, formatText, formatJSON); err != nil {
		return err
	}
	req, err := opts.buildRequest(root)
	if err != nil {
		return err
	}

	return withApp(ctx, root, func(a *app) error {
		slog.Debug("search_started",
			slog.String("query", query),
			slog.Int("limit", req.Limit),
			slog.String("strategies", strings.Join(req.Strategies, ",")))

		results, err := a.service.Search(ctx, query, req)
		if err != nil {
			return err
		}

		method := string(req.Method)
		if method == "" {
			method = a.cfg.Search.Method
		}
		advice := search.Advice(query, len(results))

		out := newWriter(cmd.OutOrStdout(), root)
		if root.jsonOutput() {
			return out.JSON(searchOutput{
				Query:   query,
				Method:  method,
				Count:   len(results),
				Results: results,
				Advice:  advice,
			})
		}

		renderFused(out, query, results)
		out.KeyValue("Method", method)
		out.KeyValue("Advice", advice)
		return nil
	})
}
