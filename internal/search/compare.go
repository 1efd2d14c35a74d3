package search

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"

	"github.com/Aman-CERP/docrank/internal/strategy"
	"github.com/Aman-CERP/docrank/internal/telemetry"
)

// Query length thresholds for the recommended approach, in characters.
const (
	approachShortChars = 10
	approachLongChars  = 30
)

// StrategyComparison is one strategy's showing in a comparison. A failed
// strategy has Count 0 and a non-empty Error.
type StrategyComparison struct {
	Name     string            `json:"name"`
	Results  []strategy.Result `json:"results"`
	Count    int               `json:"count"`
	AvgScore float64           `json:"avgScore"`
	Elapsed  time.Duration     `json:"executionTime"`
	Error    string            `json:"error,omitempty"`
}

// Comparison runs every registered strategy against the same query.
type Comparison struct {
	Query               string               `json:"query"`
	Strategies          []StrategyComparison `json:"strategies"`
	BestStrategy        string               `json:"bestStrategy"`
	RecommendedApproach string               `json:"recommendedApproach"`
	Elapsed             time.Duration        `json:"elapsed"`
}

// CompareStrategies runs each registered strategy on its own and reports
// counts, average scores and timings. Strategies run on a bounded worker
// pool; the whole comparison shares the service timeout.
func (s *Service) CompareStrategies(ctx context.Context, query string, opts strategy.Options) (*Comparison, error) {
	start := time.Now()
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}
	if err := validateRequest(Request{Options: opts}, s.maxLimit); err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(s.compareWorkers)
	if err != nil {
		return nil, fmt.Errorf("create compare pool: %w", err)
	}
	defer pool.Release()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	all := s.registry.All()
	rows := make([]StrategyComparison, len(all))
	var wg sync.WaitGroup
	for i, st := range all {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			rows[i] = compareOne(ctx, st, query, opts)
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			rows[i] = StrategyComparison{Name: st.Name(), Results: []strategy.Result{}, Error: err.Error()}
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	if err := ctx.Err(); err != nil {
		return nil, deadlineError(err, s.timeout)
	}

	for _, row := range rows {
		if row.Error != "" {
			slog.Warn("compare_strategy_failed",
				slog.String("strategy", row.Name),
				slog.String("error", row.Error))
			continue
		}
		s.recorder.RecordStrategy(telemetry.StrategyOutcome{Name: row.Name, Count: row.Count, AvgScore: row.AvgScore})
	}

	cmpResult := &Comparison{
		Query:               query,
		Strategies:          rows,
		BestStrategy:        bestStrategy(rows),
		RecommendedApproach: recommendedApproach(query, rows),
		Elapsed:             time.Since(start),
	}
	slog.Info("compare_complete",
		slog.String("query", query),
		slog.String("best", cmpResult.BestStrategy),
		slog.Duration("latency", cmpResult.Elapsed))
	return cmpResult, nil
}

func compareOne(ctx context.Context, st strategy.Strategy, query string, opts strategy.Options) StrategyComparison {
	began := time.Now()
	results, err := runStrategy(ctx, st, query, opts)
	row := StrategyComparison{Name: st.Name(), Elapsed: time.Since(began)}
	if err != nil {
		row.Results = []strategy.Result{}
		row.Error = err.Error()
		return row
	}
	if results == nil {
		results = []strategy.Result{}
	}
	o := telemetry.NewStrategyOutcome(st.Name(), scores(results))
	row.Results = results
	row.Count = o.Count
	row.AvgScore = o.AvgScore
	return row
}

// bestStrategy returns the strategy with the strictly highest positive
// average score. Earlier strategies win ties.
func bestStrategy(rows []StrategyComparison) string {
	best, bestAvg := "", 0.0
	for _, row := range rows {
		if row.AvgScore > bestAvg {
			best, bestAvg = row.Name, row.AvgScore
		}
	}
	return best
}

// recommendedApproach combines the two best-scoring strategies, adding fuzzy
// for short queries. Long queries always get full-text plus BM25.
func recommendedApproach(query string, rows []StrategyComparison) string {
	n := utf8.RuneCountInString(query)
	if n > approachLongChars {
		return strategy.FullText + " + " + strategy.BM25
	}

	ranked := slices.Clone(rows)
	slices.SortStableFunc(ranked, func(a, b StrategyComparison) int {
		return cmp.Compare(b.AvgScore, a.AvgScore)
	})
	top := make([]string, 0, 3)
	for _, row := range ranked[:min(2, len(ranked))] {
		top = append(top, row.Name)
	}
	if n < approachShortChars {
		top = append(top, strategy.Fuzzy)
	}
	return strings.Join(top, " + ")
}
