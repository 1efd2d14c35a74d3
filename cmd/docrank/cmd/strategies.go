package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrank/internal/search"
	"github.com/Aman-CERP/docrank/internal/store"
	"github.com/Aman-CERP/docrank/internal/strategy"
)

type strategyListing struct {
	search.StrategyInfo
	Tip string `json:"tip"`
}

func newStrategiesCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the available strategies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(root.format, formatText, formatJSON); err != nil {
				return err
			}

			// Listing needs no documents; an empty store suffices.
			svc, err := search.NewService(strategy.NewDefaultRegistry(store.NewMemoryStore()))
			if err != nil {
				return err
			}

			infos := svc.AvailableStrategies()
			listing := make([]strategyListing, 0, len(infos))
			for _, info := range infos {
				listing = append(listing, strategyListing{StrategyInfo: info, Tip: search.StrategyTip(info.Name)})
			}

			out := newWriter(cmd.OutOrStdout(), root)
			if root.jsonOutput() {
				return out.JSON(listing)
			}

			out.Header("Available strategies")
			rows := make([][]string, 0, len(listing))
			for _, l := range listing {
				rows = append(rows, []string{l.Name, l.Description, out.Styles().Dim.Render(l.Tip)})
			}
			out.Table([]string{"NAME", "DESCRIPTION", "TIP"}, rows)
			return nil
		},
	}
}
