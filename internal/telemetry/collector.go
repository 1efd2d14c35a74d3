package telemetry

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "docrank"

// Collector exports analytics snapshots as Prometheus metrics. Values are
// read from the source on every scrape.
type Collector struct {
	src  Snapshotter
	topN int

	searches       *prometheus.Desc
	querySearches  *prometheus.Desc
	strategyUsage  *prometheus.Desc
	strategyAvg    *prometheus.Desc
	zeroResults    *prometheus.Desc
	latencyBuckets *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector creates a collector over src exporting up to topN popular
// queries (topN <= 0 uses the source default).
func NewCollector(src Snapshotter, topN int) *Collector {
	return &Collector{
		src:  src,
		topN: topN,
		searches: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "searches_total"),
			"Total number of hybrid searches",
			nil, nil),
		querySearches: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "query_searches_total"),
			"Searches per popular query",
			[]string{"query"}, nil),
		strategyUsage: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "strategy", "usage_total"),
			"Successful executions per strategy",
			[]string{"strategy"}, nil),
		strategyAvg: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "strategy", "avg_score"),
			"Running average result score per strategy",
			[]string{"strategy"}, nil),
		zeroResults: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "zero_result_searches_total"),
			"Searches that returned no results",
			nil, nil),
		latencyBuckets: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "search", "latency_bucket_total"),
			"Searches per latency bucket",
			[]string{"bucket"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.searches
	ch <- c.querySearches
	ch <- c.strategyUsage
	ch <- c.strategyAvg
	ch <- c.zeroResults
	ch <- c.latencyBuckets
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.src.Snapshot(c.topN)

	ch <- prometheus.MustNewConstMetric(c.searches, prometheus.CounterValue, float64(snap.TotalSearches))
	ch <- prometheus.MustNewConstMetric(c.zeroResults, prometheus.CounterValue, float64(snap.ZeroResultCount))

	for _, q := range snap.PopularQueries {
		ch <- prometheus.MustNewConstMetric(c.querySearches, prometheus.CounterValue, float64(q.Count), q.Query)
	}
	for _, st := range snap.StrategyPerformance {
		ch <- prometheus.MustNewConstMetric(c.strategyUsage, prometheus.CounterValue, float64(st.Usage), st.Strategy)
		ch <- prometheus.MustNewConstMetric(c.strategyAvg, prometheus.GaugeValue, st.AvgScore, st.Strategy)
	}
	for _, b := range LatencyBuckets() {
		ch <- prometheus.MustNewConstMetric(c.latencyBuckets, prometheus.CounterValue,
			float64(snap.LatencyDistribution[b]), string(b))
	}
}

// WriteText gathers src through a private registry and writes it in the
// Prometheus text exposition format.
func WriteText(w io.Writer, src Snapshotter, topN int) error {
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(NewCollector(src, topN)); err != nil {
		return err
	}
	mfs, err := reg.Gather()
	if err != nil {
		return err
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
