package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrank/internal/search"
)

// recommendation pairs a strategy with its usage tip.
type recommendation struct {
	Strategy string `json:"strategy"`
	Tip      string `json:"tip"`
}

type recommendOutput struct {
	Query           string           `json:"query"`
	Recommendations []recommendation `json:"recommendations"`
}

func newRecommendCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend <query>",
		Short: "Show which strategies suit a query",
		Long: `Classify a query and list the strategies search would pick for it
when none are requested.

Examples:
  docrank recommend "how to install vue"
  docrank recommend "ts" --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(root.format, formatText, formatJSON); err != nil {
				return err
			}
			query := strings.Join(args, " ")

			recs := make([]recommendation, 0)
			for _, name := range search.RecommendStrategies(query) {
				recs = append(recs, recommendation{Strategy: name, Tip: search.StrategyTip(name)})
			}

			out := newWriter(cmd.OutOrStdout(), root)
			if root.jsonOutput() {
				return out.JSON(recommendOutput{Query: query, Recommendations: recs})
			}

			out.Header("Recommended strategies for " + `"` + query + `"`)
			rows := make([][]string, 0, len(recs))
			for _, r := range recs {
				rows = append(rows, []string{r.Strategy, r.Tip})
			}
			out.Table([]string{"STRATEGY", "TIP"}, rows)
			return nil
		},
	}
}
