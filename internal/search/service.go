package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	docerrors "github.com/Aman-CERP/docrank/internal/errors"
	"github.com/Aman-CERP/docrank/internal/strategy"
	"github.com/Aman-CERP/docrank/internal/telemetry"
)

// Service defaults.
const (
	DefaultTimeout        = 5 * time.Second
	DefaultCompareWorkers = 4
	recommendCacheSize    = 256
)

// ErrNilRegistry is returned by NewService without a strategy registry.
var ErrNilRegistry = errors.New("search: strategy registry is required")

// Service runs hybrid searches over a strategy registry.
type Service struct {
	registry *strategy.Registry
	recorder *telemetry.Recorder

	timeout           time.Duration
	maxLimit          int
	weights           map[string]float64
	method            Method
	defaultStrategies []string
	compareWorkers    int

	recommendations *lru.Cache[string, []string]
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRecorder sets the analytics recorder. Without one the service keeps a
// private in-memory recorder.
func WithRecorder(r *telemetry.Recorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithTimeout bounds every search. Values <= 0 keep the default.
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxLimit rejects requests whose limit exceeds n. 0 disables the check.
func WithMaxLimit(n int) ServiceOption {
	return func(s *Service) {
		s.maxLimit = n
	}
}

// WithWeights layers configured weights over DefaultWeights.
func WithWeights(w map[string]float64) ServiceOption {
	return func(s *Service) {
		s.weights = mergeWeights(s.weights, w)
	}
}

// WithDefaultMethod sets the fusion method used when a request names none.
func WithDefaultMethod(m Method) ServiceOption {
	return func(s *Service) {
		if m != "" {
			s.method = m
		}
	}
}

// WithDefaultStrategies sets the strategies used when a request names none.
// An empty list keeps DefaultStrategies.
func WithDefaultStrategies(names []string) ServiceOption {
	return func(s *Service) {
		if len(names) > 0 {
			s.defaultStrategies = slices.Clone(names)
		}
	}
}

// WithCompareWorkers sizes the CompareStrategies worker pool.
func WithCompareWorkers(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.compareWorkers = n
		}
	}
}

// NewService creates a hybrid search service.
func NewService(registry *strategy.Registry, opts ...ServiceOption) (*Service, error) {
	if registry == nil {
		return nil, ErrNilRegistry
	}
	cache, _ := lru.New[string, []string](recommendCacheSize)
	s := &Service{
		registry:          registry,
		timeout:           DefaultTimeout,
		weights:           DefaultWeights(),
		method:            DefaultMethod,
		defaultStrategies: DefaultStrategies(),
		compareWorkers:    DefaultCompareWorkers,
		recommendations:   cache,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.recorder == nil {
		s.recorder = telemetry.NewRecorder(telemetry.DefaultRecorderConfig())
	}
	return s, nil
}

// outcome is the result of one strategy execution.
type outcome struct {
	name    string
	results []strategy.Result
	err     error
	elapsed time.Duration
}

// Search runs the requested strategies concurrently, fuses their results and
// truncates to the request limit. Strategy failures degrade to empty lists;
// invalid options and timeouts fail the whole call.
func (s *Service) Search(ctx context.Context, query string, req Request) ([]FusedResult, error) {
	start := time.Now()

	if err := ValidateQuery(query); err != nil {
		return nil, err
	}
	if err := validateRequest(req, s.maxLimit); err != nil {
		return nil, err
	}
	method := s.method
	if req.Method != "" {
		method, _ = ParseMethod(string(req.Method))
	}

	names := s.resolve(query, req)
	slog.Debug("search_started",
		slog.String("query", query),
		slog.Any("strategies", names),
		slog.String("method", string(method)))

	outcomes, err := s.execute(ctx, query, req.Options, names)
	if err != nil {
		return nil, err
	}

	inputs := make([]StrategyResults, 0, len(outcomes))
	executed := make([]telemetry.StrategyOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.err != nil {
			slog.Warn("strategy_failed",
				append([]any{slog.String("strategy", o.name)}, docerrors.LogAttrs(o.err)...)...)
			inputs = append(inputs, StrategyResults{Strategy: o.name, Results: []strategy.Result{}})
			continue
		}
		inputs = append(inputs, StrategyResults{Strategy: o.name, Results: o.results})
		executed = append(executed, telemetry.NewStrategyOutcome(o.name, scores(o.results)))
	}

	fused := Fuse(method, inputs, mergeWeights(s.weights, req.Weights))
	if limit := limitOf(req.Options); len(fused) > limit {
		fused = fused[:limit]
	}

	latency := time.Since(start)
	s.recorder.RecordSearch(telemetry.SearchEvent{
		Query:       query,
		Strategies:  executed,
		ResultCount: len(fused),
		Latency:     latency,
		Timestamp:   start,
	})

	slog.Info("search_complete",
		slog.String("query", query),
		slog.Int("strategies", len(names)),
		slog.Int("results", len(fused)),
		slog.Duration("latency", latency))
	return fused, nil
}

// SearchWithStrategy runs a single strategy without fusion.
func (s *Service) SearchWithStrategy(ctx context.Context, name, query string, opts strategy.Options) ([]strategy.Result, error) {
	st, ok := s.registry.Get(name)
	if !ok {
		return nil, docerrors.UnknownStrategy(name)
	}
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}
	if err := validateRequest(Request{Options: opts}, s.maxLimit); err != nil {
		return nil, err
	}

	outcomes, err := s.execute(ctx, query, opts, []string{st.Name()})
	if err != nil {
		return nil, err
	}
	o := outcomes[0]
	if o.err != nil {
		return nil, o.err
	}

	s.recorder.RecordStrategy(telemetry.NewStrategyOutcome(o.name, scores(o.results)))
	slog.Debug("strategy_search_complete",
		slog.String("strategy", o.name),
		slog.Int("results", len(o.results)),
		slog.Duration("latency", o.elapsed))
	return o.results, nil
}

// RecommendStrategies returns the recommender's suggestion for query.
func (s *Service) RecommendStrategies(query string) []string {
	if cached, ok := s.recommendations.Get(query); ok {
		return slices.Clone(cached)
	}
	rec := RecommendStrategies(query)
	s.recommendations.Add(query, rec)
	return slices.Clone(rec)
}

// AvailableStrategies describes the registered strategies in order.
func (s *Service) AvailableStrategies() []StrategyInfo {
	all := s.registry.All()
	out := make([]StrategyInfo, len(all))
	for i, st := range all {
		out[i] = StrategyInfo{Name: st.Name(), Description: st.Description()}
	}
	return out
}

// Analytics returns a snapshot with up to topN popular queries.
func (s *Service) Analytics(topN int) *telemetry.Snapshot {
	return s.recorder.Snapshot(topN)
}

// resolve picks the strategies to run. Unknown names are logged and skipped.
func (s *Service) resolve(query string, req Request) []string {
	requested := req.Strategies
	if len(requested) == 0 {
		if req.Recommend {
			requested = s.RecommendStrategies(query)
		} else {
			requested = s.defaultStrategies
		}
	}

	names := make([]string, 0, len(requested))
	for _, name := range requested {
		if _, ok := s.registry.Get(name); !ok {
			slog.Warn("unknown_strategy_skipped", docerrors.LogAttrs(docerrors.UnknownStrategy(name))...)
			continue
		}
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return names
}

// execute runs one goroutine per strategy under the service timeout. Each
// goroutine records its own error and returns nil, so a failure never
// cancels its siblings. Exceeding the deadline fails the whole call with no
// partial results.
func (s *Service) execute(ctx context.Context, query string, opts strategy.Options, names []string) ([]outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	outcomes := make([]outcome, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		st, _ := s.registry.Get(name)
		g.Go(func() error {
			began := time.Now()
			results, err := runStrategy(gctx, st, query, opts)
			if results == nil && err == nil {
				results = []strategy.Result{}
			}
			outcomes[i] = outcome{name: name, results: results, err: err, elapsed: time.Since(began)}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
	if err := ctx.Err(); err != nil {
		return nil, deadlineError(err, s.timeout)
	}
	return outcomes, nil
}

// runStrategy calls st.Search, turning a panic into an internal error so
// one broken strategy degrades like any other failure.
func runStrategy(ctx context.Context, st strategy.Strategy, query string, opts strategy.Options) (results []strategy.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("strategy_panicked",
				slog.String("strategy", st.Name()),
				slog.Any("panic", r))
			results = nil
			err = docerrors.InternalError(
				fmt.Sprintf("strategy %s panicked", st.Name()),
				fmt.Errorf("%v", r),
			).WithDetail("strategy", st.Name())
		}
	}()
	return st.Search(ctx, query, opts)
}

// deadlineError maps a context error to the typed timeout, leaving caller
// cancellation as is.
func deadlineError(err error, limit time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		slog.Warn("search_timeout", slog.Duration("limit", limit))
		return docerrors.Timeout(limit, err)
	}
	return fmt.Errorf("search cancelled: %w", err)
}

func scores(rs []strategy.Result) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = r.Score
	}
	return out
}

func limitOf(opts strategy.Options) int {
	if opts.Limit <= 0 {
		return strategy.DefaultLimit
	}
	return opts.Limit
}
