package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CircularBuffer Tests
// =============================================================================

func TestCircularBuffer_MaintainsCapacity(t *testing.T) {
	buf := NewCircularBuffer[string](3)

	for i := 1; i <= 5; i++ {
		buf.Add(fmt.Sprintf("query%d", i))
	}

	// oldest two evicted, FIFO order kept
	assert.Equal(t, 3, buf.Size())
	assert.Equal(t, []string{"query3", "query4", "query5"}, buf.Items())
}

func TestCircularBuffer_EmptyIsNotNil(t *testing.T) {
	buf := NewCircularBuffer[string](0)
	assert.NotNil(t, buf.Items())
	assert.Empty(t, buf.Items())
}

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want LatencyBucket
	}{
		{5 * time.Millisecond, BucketP10},
		{10 * time.Millisecond, BucketP50},
		{75 * time.Millisecond, BucketP100},
		{499 * time.Millisecond, BucketP500},
		{2 * time.Second, BucketP1000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LatencyToBucket(tt.d), tt.d.String())
	}
}

// =============================================================================
// Recorder Tests
// =============================================================================

func TestNewStrategyOutcome(t *testing.T) {
	o := NewStrategyOutcome("bm25", []float64{1, 2, 3})
	assert.Equal(t, StrategyOutcome{Name: "bm25", Count: 3, AvgScore: 2}, o)

	empty := NewStrategyOutcome("fuzzy", nil)
	assert.Equal(t, 0, empty.Count)
	assert.Equal(t, 0.0, empty.AvgScore)
}

func TestRecorder_RecordSearch(t *testing.T) {
	// Given: a fresh recorder
	r := NewRecorder(DefaultRecorderConfig())

	// When: two searches are recorded
	r.RecordSearch(SearchEvent{
		Query:       "vue api",
		Strategies:  []StrategyOutcome{{Name: "lexical", Count: 2, AvgScore: 4}},
		ResultCount: 2,
		Latency:     5 * time.Millisecond,
	})
	r.RecordSearch(SearchEvent{
		Query:       "vue api",
		Strategies:  []StrategyOutcome{{Name: "lexical", Count: 1, AvgScore: 2}, {Name: "bm25", Count: 0}},
		ResultCount: 0,
		Latency:     20 * time.Millisecond,
	})

	// Then: counters and the halving average reflect both
	snap := r.Snapshot(0)
	assert.Equal(t, int64(2), snap.TotalSearches)
	assert.Equal(t, []QueryCount{{Query: "vue api", Count: 2}}, snap.PopularQueries)
	assert.Equal(t, []StrategyStats{
		{Strategy: "bm25", Usage: 1, AvgScore: 0},
		{Strategy: "lexical", Usage: 2, AvgScore: 3},
	}, snap.StrategyPerformance)
	assert.Equal(t, []string{"vue api"}, snap.ZeroResultQueries)
	assert.Equal(t, int64(1), snap.ZeroResultCount)
	assert.InDelta(t, 50.0, snap.ZeroResultPercentage(), 1e-9)
	assert.Equal(t, int64(1), snap.LatencyDistribution[BucketP10])
	assert.Equal(t, int64(1), snap.LatencyDistribution[BucketP50])
}

func TestRecorder_RecordStrategyLeavesTotals(t *testing.T) {
	r := NewRecorder(DefaultRecorderConfig())

	r.RecordStrategy(StrategyOutcome{Name: "fuzzy", Count: 1, AvgScore: 0.8})

	snap := r.Snapshot(0)
	assert.Equal(t, int64(0), snap.TotalSearches)
	assert.Empty(t, snap.PopularQueries)
	require.Len(t, snap.StrategyPerformance, 1)
	assert.Equal(t, int64(1), snap.StrategyPerformance[0].Usage)
}

func TestRecorder_PopularQueriesOrder(t *testing.T) {
	r := NewRecorder(RecorderConfig{TopQueries: 2})
	for _, q := range []string{"b", "a", "c", "c", "b"} {
		r.RecordSearch(SearchEvent{Query: q, ResultCount: 1})
	}

	// count desc, then query asc, truncated to the configured default
	assert.Equal(t, []QueryCount{{"b", 2}, {"c", 2}}, r.Snapshot(0).PopularQueries)
	assert.Equal(t, []QueryCount{{"b", 2}, {"c", 2}, {"a", 1}}, r.Snapshot(5).PopularQueries)
}

func TestRecorder_ConcurrentUpdatesLoseNothing(t *testing.T) {
	// Given: many goroutines recording at once
	r := NewRecorder(DefaultRecorderConfig())
	const workers, perWorker = 16, 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				r.RecordSearch(SearchEvent{
					Query:       fmt.Sprintf("q%d", w%4),
					Strategies:  []StrategyOutcome{{Name: "lexical", Count: 1, AvgScore: 2}},
					ResultCount: 1,
				})
			}
		}(w)
	}
	wg.Wait()

	// Then: every increment is present and the average is not torn
	snap := r.Snapshot(10)
	assert.Equal(t, int64(workers*perWorker), snap.TotalSearches)

	var sum int64
	for _, q := range snap.PopularQueries {
		sum += q.Count
	}
	assert.Equal(t, int64(workers*perWorker), sum)
	require.Len(t, snap.StrategyPerformance, 1)
	assert.Equal(t, int64(workers*perWorker), snap.StrategyPerformance[0].Usage)
	assert.Equal(t, 2.0, snap.StrategyPerformance[0].AvgScore)
}

// fakeSnapshotStore records merged deltas in memory.
type fakeSnapshotStore struct {
	merged []*Delta
	err    error
}

func (f *fakeSnapshotStore) Merge(_ context.Context, d *Delta) error {
	if f.err != nil {
		return f.err
	}
	f.merged = append(f.merged, d)
	return nil
}

func (f *fakeSnapshotStore) Load(context.Context, int) (*Snapshot, error) { return nil, nil }
func (f *fakeSnapshotStore) Close() error { return nil }

func TestRecorder_FlushSendsOnlyChanges(t *testing.T) {
	r := NewRecorder(DefaultRecorderConfig())
	store := &fakeSnapshotStore{}

	r.RecordSearch(SearchEvent{Query: "a", ResultCount: 1})
	require.NoError(t, r.Flush(context.Background(), store))

	// nothing new: no merge
	require.NoError(t, r.Flush(context.Background(), store))
	require.Len(t, store.merged, 1)

	r.RecordSearch(SearchEvent{Query: "b", ResultCount: 0})
	require.NoError(t, r.Flush(context.Background(), store))

	require.Len(t, store.merged, 2)
	assert.Equal(t, int64(1), store.merged[1].Searches)
	assert.Equal(t, map[string]int64{"b": 1}, store.merged[1].Queries)
	assert.Equal(t, []string{"b"}, store.merged[1].ZeroResults)
}

func TestRecorder_FlushFailureKeepsChanges(t *testing.T) {
	r := NewRecorder(DefaultRecorderConfig())
	store := &fakeSnapshotStore{err: errors.New("disk full")}

	r.RecordSearch(SearchEvent{Query: "a", ResultCount: 1})
	require.Error(t, r.Flush(context.Background(), store))

	r.RecordSearch(SearchEvent{Query: "a", ResultCount: 1})
	store.err = nil
	require.NoError(t, r.Flush(context.Background(), store))

	require.Len(t, store.merged, 1)
	assert.Equal(t, int64(2), store.merged[0].Searches)
	assert.Equal(t, int64(2), store.merged[0].Queries["a"])
}

func TestRecorder_FlushNilStore(t *testing.T) {
	r := NewRecorder(DefaultRecorderConfig())
	r.RecordSearch(SearchEvent{Query: "a"})
	assert.NoError(t, r.Flush(context.Background(), nil))
}

func TestFromSnapshot_TruncatesQueries(t *testing.T) {
	s := &Snapshot{PopularQueries: []QueryCount{{"a", 3}, {"b", 2}, {"c", 1}}}

	assert.Len(t, FromSnapshot(s).Snapshot(2).PopularQueries, 2)
	assert.Len(t, FromSnapshot(s).Snapshot(0).PopularQueries, 3)
	assert.Len(t, s.PopularQueries, 3)
}
