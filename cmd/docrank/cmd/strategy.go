package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrank/internal/search"
	"github.com/Aman-CERP/docrank/internal/strategy"
)

// strategyOutput is the JSON output of strategy.
type strategyOutput struct {
	Strategy string            `json:"strategy"`
	Query    string            `json:"query"`
	Count    int               `json:"count"`
	Results  []strategy.Result `json:"results"`
	Tip      string            `json:"tip"`
}

func newStrategyCmd(root *rootOptions) *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "strategy <name> <query>",
		Short: "Run a single retrieval strategy",
		Long: `Run one strategy by name without fusion. Unlike search, a store
failure is reported instead of yielding an empty list.

Examples:
  docrank strategy bm25 "event loop"
  docrank strategy fuzzy "typscript generics" --threshold 0.5`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrategy(cmd.Context(), cmd, root, args[0], strings.Join(args[1:], " "), flags)
		},
	}

	flags.bind(cmd)
	return cmd
}

func runStrategy(ctx context.Context, cmd *cobra.Command, root *rootOptions, name, query string, flags queryFlags) error {
	if err := checkFormat(root.format, formatText, formatJSON); err != nil {
		return err
	}
	cfg, err := root.config()
	if err != nil {
		return err
	}
	opts := flags.options(cfg)

	return withApp(ctx, root, func(a *app) error {
		results, err := a.service.SearchWithStrategy(ctx, name, query, opts)
		if err != nil {
			return err
		}

		out := newWriter(cmd.OutOrStdout(), root)
		if root.jsonOutput() {
			return out.JSON(strategyOutput{
				Strategy: name,
				Query:    query,
				Count:    len(results),
				Results:  results,
				Tip:      search.StrategyTip(name),
			})
		}

		renderStrategyResults(out, name, query, results)
		out.KeyValue("Tip", search.StrategyTip(name))
		return nil
	})
}
