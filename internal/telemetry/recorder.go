package telemetry

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// StrategyOutcome is what one strategy produced for one search.
type StrategyOutcome struct {
	Name     string
	Count    int
	AvgScore float64
}

// NewStrategyOutcome summarises a strategy's scores. An empty list averages 0.
func NewStrategyOutcome(name string, scores []float64) StrategyOutcome {
	o := StrategyOutcome{Name: name, Count: len(scores)}
	if len(scores) == 0 {
		return o
	}
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	o.AvgScore = sum / float64(len(scores))
	return o
}

// SearchEvent is one completed hybrid search.
type SearchEvent struct {
	Query string

	// Strategies holds only the strategies that executed successfully.
	Strategies []StrategyOutcome

	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// QueryCount is a query and how often it was searched.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// StrategyStats is the usage of one strategy.
type StrategyStats struct {
	Strategy string  `json:"strategy"`
	Usage    int64   `json:"usage"`
	AvgScore float64 `json:"avgScore"`
}

// Snapshot is an immutable copy of the analytics state.
type Snapshot struct {
	TotalSearches       int64                   `json:"totalSearches"`
	PopularQueries      []QueryCount            `json:"popularQueries"`
	StrategyPerformance []StrategyStats         `json:"strategyPerformance"`
	ZeroResultQueries   []string                `json:"zeroResultQueries"`
	ZeroResultCount     int64                   `json:"zeroResultCount"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latencyDistribution"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the share of searches that found nothing.
func (s *Snapshot) ZeroResultPercentage() float64 {
	if s.TotalSearches == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalSearches) * 100
}

// Snapshotter produces analytics snapshots.
type Snapshotter interface {
	Snapshot(topN int) *Snapshot
}

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	TopQueries          int // default popular queries in a snapshot (default: 10)
	ZeroResultsCapacity int // zero-result queries kept (default: 100)
}

// DefaultRecorderConfig returns the defaults.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{TopQueries: 10, ZeroResultsCapacity: 100}
}

// Recorder accumulates search analytics. Safe for concurrent use; every
// update is applied under one lock so no increment or average merge is lost.
type Recorder struct {
	mu sync.Mutex

	total       int64
	queries     map[string]int64
	strategies  map[string]*StrategyStats
	zeroResults *CircularBuffer[string]
	zeroCount   int64
	latencies   map[LatencyBucket]int64
	startTime   time.Time

	// changes since the last successful Flush
	pending *Delta

	config RecorderConfig
}

// NewRecorder creates an empty in-memory recorder.
func NewRecorder(cfg RecorderConfig) *Recorder {
	if cfg.TopQueries <= 0 {
		cfg.TopQueries = 10
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = 100
	}
	return &Recorder{
		queries:     make(map[string]int64),
		strategies:  make(map[string]*StrategyStats),
		zeroResults: NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		latencies:   make(map[LatencyBucket]int64),
		startTime:   time.Now(),
		pending:     newDelta(),
		config:      cfg,
	}
}

// RecordSearch applies one search: total, query count, latency, zero-result
// tracking and the outcome of every strategy that ran.
func (r *Recorder) RecordSearch(ev SearchEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total++
	r.queries[ev.Query]++
	bucket := LatencyToBucket(ev.Latency)
	r.latencies[bucket]++

	r.pending.Searches++
	r.pending.Queries[ev.Query]++
	r.pending.Latencies[bucket]++

	if ev.ResultCount == 0 {
		r.zeroResults.Add(ev.Query)
		r.zeroCount++
		r.pending.ZeroResults = append(r.pending.ZeroResults, ev.Query)
	}

	for _, o := range ev.Strategies {
		r.recordStrategyLocked(o)
	}
}

// RecordStrategy applies a single-strategy search. It updates strategy usage
// only; total and query counts belong to hybrid searches.
func (r *Recorder) RecordStrategy(o StrategyOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recordStrategyLocked(o)
}

func (r *Recorder) recordStrategyLocked(o StrategyOutcome) {
	st, ok := r.strategies[o.Name]
	if !ok {
		st = &StrategyStats{Strategy: o.Name}
		r.strategies[o.Name] = st
	}
	st.AvgScore = runningAverage(st.AvgScore, st.Usage, o.AvgScore)
	st.Usage++

	p, ok := r.pending.Strategies[o.Name]
	if !ok {
		p = &StrategyStats{Strategy: o.Name}
		r.pending.Strategies[o.Name] = p
	}
	p.AvgScore = runningAverage(p.AvgScore, p.Usage, o.AvgScore)
	p.Usage++
}

// runningAverage halves toward each new value. The first value is taken
// as-is.
func runningAverage(avg float64, usage int64, v float64) float64 {
	if usage == 0 {
		return v
	}
	return (avg + v) / 2
}

// Snapshot copies the current state. topN <= 0 uses the configured default.
// Popular queries are ordered by count descending, then query.
func (r *Recorder) Snapshot(topN int) *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	if topN <= 0 {
		topN = r.config.TopQueries
	}

	strategies := make([]StrategyStats, 0, len(r.strategies))
	for _, st := range r.strategies {
		strategies = append(strategies, *st)
	}
	slices.SortFunc(strategies, func(a, b StrategyStats) int {
		return cmp.Compare(a.Strategy, b.Strategy)
	})

	return &Snapshot{
		TotalSearches:       r.total,
		PopularQueries:      topQueries(r.queries, topN),
		StrategyPerformance: strategies,
		ZeroResultQueries:   r.zeroResults.Items(),
		ZeroResultCount:     r.zeroCount,
		LatencyDistribution: maps.Clone(r.latencies),
		Since:               r.startTime,
	}
}

func topQueries(counts map[string]int64, n int) []QueryCount {
	out := make([]QueryCount, 0, len(counts))
	for q, c := range counts {
		out = append(out, QueryCount{Query: q, Count: c})
	}
	slices.SortFunc(out, func(a, b QueryCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Query, b.Query)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Flush merges changes since the last flush into the store. On failure the
// changes are kept for the next attempt. A nil store is a no-op.
func (r *Recorder) Flush(ctx context.Context, store SnapshotStore) error {
	if store == nil {
		return nil
	}

	r.mu.Lock()
	d := r.pending
	r.pending = newDelta()
	r.mu.Unlock()

	if d.empty() {
		return nil
	}
	if err := store.Merge(ctx, d); err != nil {
		r.mu.Lock()
		r.pending = d.merge(r.pending)
		r.mu.Unlock()
		return err
	}
	return nil
}

// Delta is the analytics change between two flushes.
type Delta struct {
	Searches    int64
	Queries     map[string]int64
	Strategies  map[string]*StrategyStats
	ZeroResults []string
	Latencies   map[LatencyBucket]int64
}

func newDelta() *Delta {
	return &Delta{
		Queries:    make(map[string]int64),
		Strategies: make(map[string]*StrategyStats),
		Latencies:  make(map[LatencyBucket]int64),
	}
}

func (d *Delta) empty() bool {
	return d.Searches == 0 && len(d.Strategies) == 0
}

// merge folds later into d and returns d.
func (d *Delta) merge(later *Delta) *Delta {
	d.Searches += later.Searches
	for q, c := range later.Queries {
		d.Queries[q] += c
	}
	for name, st := range later.Strategies {
		cur, ok := d.Strategies[name]
		if !ok {
			d.Strategies[name] = st
			continue
		}
		cur.AvgScore = runningAverage(cur.AvgScore, cur.Usage, st.AvgScore)
		cur.Usage += st.Usage
	}
	d.ZeroResults = append(d.ZeroResults, later.ZeroResults...)
	for b, c := range later.Latencies {
		d.Latencies[b] += c
	}
	return d
}

type staticSnapshot struct {
	s *Snapshot
}

func (st staticSnapshot) Snapshot(topN int) *Snapshot {
	if topN <= 0 || len(st.s.PopularQueries) <= topN {
		return st.s
	}
	cp := *st.s
	cp.PopularQueries = cp.PopularQueries[:topN]
	return &cp
}

// FromSnapshot wraps a fixed snapshot, such as one loaded from a store.
func FromSnapshot(s *Snapshot) Snapshotter {
	return staticSnapshot{s: s}
}
