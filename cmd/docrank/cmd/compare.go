package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrank/internal/output"
	"github.com/Aman-CERP/docrank/internal/search"
)

func newCompareCmd(root *rootOptions) *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "compare <query>",
		Short: "Compare every strategy on the same query",
		Long: `Run each registered strategy on its own and report result counts,
average scores and timings, the best strategy and a recommended approach.

Examples:
  docrank compare "vue composition api"
  docrank compare "event loop" --tech nodejs --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd.Context(), cmd, root, strings.Join(args, " "), flags)
		},
	}

	flags.bind(cmd)
	return cmd
}

func runCompare(ctx context.Context, cmd *cobra.Command, root *rootOptions, query string, flags queryFlags) error {
	if err := checkFormat(root.format, formatText, formatJSON); err != nil {
		return err
	}
	cfg, err := root.config()
	if err != nil {
		return err
	}
	opts := flags.options(cfg)

	return withApp(ctx, root, func(a *app) error {
		cmp, err := a.service.CompareStrategies(ctx, query, opts)
		if err != nil {
			return err
		}

		out := newWriter(cmd.OutOrStdout(), root)
		if root.jsonOutput() {
			return out.JSON(cmp)
		}
		renderComparison(out, cmp)
		return nil
	})
}

func renderComparison(out *output.Writer, cmp *search.Comparison) {
	out.Header(fmt.Sprintf("Strategy comparison for %q", cmp.Query))

	rows := make([][]string, 0, len(cmp.Strategies))
	for _, s := range cmp.Strategies {
		status := out.Styles().Success.Render("ok")
		if s.Error != "" {
			status = out.Styles().Error.Render(s.Error)
		}
		rows = append(rows, []string{
			s.Name,
			fmt.Sprintf("%d", s.Count),
			out.Score(s.AvgScore),
			s.Elapsed.Round(time.Microsecond).String(),
			status,
		})
	}
	out.Table([]string{"STRATEGY", "RESULTS", "AVG SCORE", "TIME", "STATUS"}, rows)
	out.Newline()

	best := cmp.BestStrategy
	if best == "" {
		best = "none (no strategy scored above zero)"
	}
	out.KeyValue("Best strategy", best)
	out.KeyValue("Recommended approach", cmp.RecommendedApproach)
	out.KeyValue("Total time", cmp.Elapsed.Round(time.Microsecond))
}
