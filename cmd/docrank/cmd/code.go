package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	docerrors "github.com/Aman-CERP/docrank/internal/errors"
	"github.com/Aman-CERP/docrank/internal/search"
)

// Code search modes.
const (
	codeModeDocs         = "docs"
	codeModeIssues       = "issues"
	codeModeAPI          = "api"
	codeModeTroubleshoot = "troubleshoot"
)

// codeOptions holds CLI flags for code.
type codeOptions struct {
	queryFlags
	technologies []string
	mode         string
	strategies   []string
	method       string
	list         bool
}

// codeOutput is the JSON output of code.
type codeOutput struct {
	*search.CodeResponse
	Mode            string   `json:"mode,omitempty"`
	Count           int      `json:"count"`
	Recommendations []string `json:"recommendations"`
}

func newCodeCmd(root *rootOptions) *cobra.Command {
	var opts codeOptions

	cmd := &cobra.Command{
		Use:   "code <query>",
		Short: "Search programming documentation across technologies",
		Long: `Search Vue.js, Node.js, TypeScript and GrapesJS documents. Each
technology is searched concurrently; scores are boosted for technologies the
query names or hints at, then merged and de-duplicated.

Without --strategies, strategies are picked for code queries. Modes:
  docs          documentation, fulltext + bm25 + rule_based
  issues        issues, rule_based + fuzzy + ngram
  api           documentation, query expanded with API terms
  troubleshoot  issues, rule_based + fuzzy + bm25, vote

Examples:
  docrank code "vue component props"
  docrank code "event loop" --tech node
  docrank code "build fails" --mode troubleshoot --format json
  docrank code --list`,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.list {
				return nil
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.list {
				return runCodeTechnologies(cmd, root)
			}
			return runCode(cmd.Context(), cmd, root, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringSliceVar(&opts.technologies, "tech", nil, "Technologies to search (default all): vue, node, typescript, grapesjs")
	cmd.Flags().StringVarP(&opts.docType, "type", "t", "", "Filter by document type (e.g., documentation, issue, example)")
	cmd.Flags().Var(&opts.threshold, "threshold", "Fuzzy similarity threshold in [0, 1] (default from config)")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "Mode: docs, issues, api, troubleshoot")
	cmd.Flags().StringSliceVarP(&opts.strategies, "strategies", "s", nil, "Strategies to run (comma separated)")
	cmd.Flags().StringVarP(&opts.method, "method", "m", "", "Fusion method: weighted_sum, rank_fusion, cascade, vote")
	cmd.Flags().BoolVar(&opts.list, "list", false, "List supported technologies")

	return cmd
}

// buildRequest turns flags into a code search request.
func (o codeOptions) buildRequest(root *rootOptions) (search.CodeRequest, error) {
	cfg, err := root.config()
	if err != nil {
		return search.CodeRequest{}, err
	}
	req := search.CodeRequest{
		Options:      o.options(cfg),
		Technologies: o.technologies,
		Strategies:   o.strategies,
	}
	if o.method != "" {
		method, err := search.ParseMethod(o.method)
		if err != nil {
			return search.CodeRequest{}, docerrors.InvalidOptions(err.Error()).
				WithSuggestion("Use one of: weighted_sum, rank_fusion, cascade, vote")
		}
		req.Method = method
	}
	return req, nil
}

// codeSearch returns the service call for a mode.
func codeSearch(svc *search.Service, mode string) (func(context.Context, string, search.CodeRequest) (*search.CodeResponse, error), error) {
	switch strings.ToLower(mode) {
	case "":
		return svc.SearchCode, nil
	case codeModeDocs:
		return svc.SearchCodeDocumentation, nil
	case codeModeIssues:
		return svc.SearchCodeIssues, nil
	case codeModeAPI:
		return svc.SearchAPI, nil
	case codeModeTroubleshoot:
		return svc.SearchTroubleshooting, nil
	default:
		return nil, docerrors.InvalidOptions(fmt.Sprintf("unknown mode %q", mode)).
			WithSuggestion("Use one of: docs, issues, api, troubleshoot")
	}
}

func runCode(ctx context.Context, cmd *cobra.Command, root *rootOptions, query string, opts codeOptions) error {
	if err := checkFormat(root.format, formatText, formatJSON); err != nil {
		return err
	}
	req, err := opts.buildRequest(root)
	if err != nil {
		return err
	}

	return withApp(ctx, root, func(a *app) error {
		run, err := codeSearch(a.service, opts.mode)
		if err != nil {
			return err
		}
		resp, err := run(ctx, query, req)
		if err != nil {
			return err
		}
		recs := search.CodeSearchRecommendations(query)

		out := newWriter(cmd.OutOrStdout(), root)
		if root.jsonOutput() {
			if recs == nil {
				recs = []string{}
			}
			return out.JSON(codeOutput{
				CodeResponse:    resp,
				Mode:            strings.ToLower(opts.mode),
				Count:           len(resp.Results),
				Recommendations: recs,
			})
		}

		renderFused(out, query, resp.Results)
		out.KeyValue("Technologies", strings.Join(resp.Technologies, ", "))
		out.KeyValue("Strategies", strings.Join(resp.Strategies, ", "))
		out.KeyValue("Method", string(resp.Method))
		if resp.Warning != "" {
			out.Warning(resp.Warning)
		}
		for _, r := range recs {
			out.Status("💡", r)
		}
		return nil
	})
}

func runCodeTechnologies(cmd *cobra.Command, root *rootOptions) error {
	if err := checkFormat(root.format, formatText, formatJSON); err != nil {
		return err
	}
	techs := search.CodeTechnologies()

	out := newWriter(cmd.OutOrStdout(), root)
	if root.jsonOutput() {
		return out.JSON(techs)
	}
	out.Header("Supported technologies")
	rows := make([][]string, 0, len(techs))
	for _, t := range techs {
		rows = append(rows, []string{t.Value, t.Label, t.Description})
	}
	out.Table([]string{"VALUE", "NAME", "DESCRIPTION"}, rows)
	return nil
}
