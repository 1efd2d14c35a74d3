package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrank/internal/output"
	"github.com/Aman-CERP/docrank/internal/telemetry"
)

func newStatsCmd(root *rootOptions) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show persisted search analytics",
		Long: `Display analytics accumulated by previous commands: total searches,
popular queries, per-strategy usage and average score, zero-result queries
and the latency distribution.

--format prometheus prints the same data in the Prometheus text exposition
format.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd, root, top)
		},
	}

	cmd.Flags().IntVar(&top, "top", 0, "Number of popular queries to show (default from config)")
	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, root *rootOptions, top int) error {
	if err := checkFormat(root.format, formatText, formatJSON, formatPrometheus); err != nil {
		return err
	}
	cfg, err := root.config()
	if err != nil {
		return err
	}
	if top <= 0 {
		top = cfg.Analytics.TopQueries
	}

	snap, err := loadSnapshot(ctx, cfg.Analytics.Path, top)
	if err != nil {
		return err
	}

	out := newWriter(cmd.OutOrStdout(), root)
	switch root.format {
	case formatJSON:
		return out.JSON(snap)
	case formatPrometheus:
		return telemetry.WriteText(cmd.OutOrStdout(), telemetry.FromSnapshot(snap), top)
	default:
		renderSnapshot(out, snap, cfg.Analytics.Path)
		return nil
	}
}

// loadSnapshot reads persisted analytics. Without a path analytics live only
// in memory, so there is nothing to report.
func loadSnapshot(ctx context.Context, path string, top int) (*telemetry.Snapshot, error) {
	if path == "" {
		return telemetry.NewRecorder(telemetry.DefaultRecorderConfig()).Snapshot(top), nil
	}
	st, err := telemetry.OpenSnapshotStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open analytics store: %w", err)
	}
	defer func() { _ = st.Close() }()

	snap, err := st.Load(ctx, top)
	if err != nil {
		return nil, fmt.Errorf("failed to load analytics: %w", err)
	}
	return snap, nil
}

func renderSnapshot(out *output.Writer, snap *telemetry.Snapshot, path string) {
	out.Header("Search analytics")
	if path == "" {
		out.Warning("Analytics persistence is disabled (analytics.path is empty)")
	}
	out.KeyValue("Total searches", snap.TotalSearches)
	out.KeyValue("Zero-result searches", fmt.Sprintf("%d (%.1f%%)", snap.ZeroResultCount, snap.ZeroResultPercentage()))
	if !snap.Since.IsZero() {
		out.KeyValue("Since", snap.Since.Format("2006-01-02 15:04"))
	}
	out.Newline()

	if len(snap.PopularQueries) > 0 {
		out.Header("Popular queries")
		rows := make([][]string, 0, len(snap.PopularQueries))
		for _, q := range snap.PopularQueries {
			rows = append(rows, []string{q.Query, fmt.Sprintf("%d", q.Count)})
		}
		out.Table([]string{"QUERY", "COUNT"}, rows)
		out.Newline()
	}

	if len(snap.StrategyPerformance) > 0 {
		out.Header("Strategy performance")
		rows := make([][]string, 0, len(snap.StrategyPerformance))
		for _, s := range snap.StrategyPerformance {
			rows = append(rows, []string{s.Strategy, fmt.Sprintf("%d", s.Usage), out.Score(s.AvgScore)})
		}
		out.Table([]string{"STRATEGY", "USAGE", "AVG SCORE"}, rows)
		out.Newline()
	}

	if snap.TotalSearches > 0 {
		out.Header("Latency")
		rows := make([][]string, 0, len(telemetry.LatencyBuckets()))
		for _, b := range telemetry.LatencyBuckets() {
			rows = append(rows, []string{string(b), fmt.Sprintf("%d", snap.LatencyDistribution[b])})
		}
		out.Table([]string{"BUCKET", "SEARCHES"}, rows)
		out.Newline()
	}

	if len(snap.ZeroResultQueries) > 0 {
		out.Header("Recent zero-result queries")
		out.Status("", strings.Join(snap.ZeroResultQueries, ", "))
	}
}
