// Package search implements the federated search core: fan-out to the
// requested source adapters, per-source status tracking, merge ordering and
// response caching.
package search

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-search-service/internal/domain"
	"github.com/helixir/paper-search-service/internal/events"
	"github.com/helixir/paper-search-service/internal/observability"
	"github.com/helixir/paper-search-service/internal/papersources"
)

// DefaultPMCTimeout bounds the PMC call; on expiry PMC contributes no papers.
const DefaultPMCTimeout = 8 * time.Second

// SourceLookup resolves a source type to its adapter.
type SourceLookup interface {
	Lookup(sourceType domain.SourceType) (papersources.PaperSource, error)
}

// ResponseCache stores combined responses by request fingerprint.
type ResponseCache interface {
	Get(key string) (domain.SearchResponse, bool)
	Set(key string, response domain.SearchResponse)
	Len() int
}

// Config configures the Aggregator.
type Config struct {
	// SourceTimeouts bounds individual sources. A source that exceeds its
	// timeout is reported as a success with zero papers and its late result
	// is discarded. Sources without an entry run until the request context
	// ends.
	SourceTimeouts map[domain.SourceType]time.Duration
}

// DefaultConfig returns the standard per-source timeouts.
func DefaultConfig() Config {
	return Config{
		SourceTimeouts: map[domain.SourceType]time.Duration{
			domain.SourceTypePMC: DefaultPMCTimeout,
		},
	}
}

// Aggregator runs federated searches. It is safe for concurrent use.
type Aggregator struct {
	sources   SourceLookup
	cache     ResponseCache
	cfg       Config
	metrics   *observability.Metrics
	publisher events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithMetrics records search and source metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithPublisher emits a search.completed event after every search.
func WithPublisher(p events.Publisher) Option {
	return func(a *Aggregator) { a.publisher = p }
}

// NewAggregator creates an Aggregator.
func NewAggregator(sources SourceLookup, cache ResponseCache, cfg Config, logger zerolog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		sources:   sources,
		cache:     cache,
		cfg:       cfg,
		publisher: events.NoopPublisher{},
		logger:    logger.With().Str("component", "aggregator").Logger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// outcome is the settled result of one adapter call.
type outcome struct {
	source   domain.SourceType
	papers   []domain.Paper
	err      error
	timedOut bool
	elapsed  time.Duration
}

// Search answers a validated request, from cache when possible. Individual
// source failures are reported in the response; an error is returned only
// when the request itself cannot be processed.
func (a *Aggregator) Search(ctx context.Context, req domain.SearchRequest) (domain.SearchResponse, error) {
	start := a.now()

	key, err := req.Fingerprint()
	if err != nil {
		return domain.SearchResponse{}, fmt.Errorf("%w: %v", domain.ErrInternalError, err)
	}

	logger := observability.WithSearchContext(a.logger, req.Query, sourceNames(req.Sources))
	if id := observability.RequestIDFromContext(ctx); id != "" {
		logger = logger.With().Str("request_id", id).Logger()
	}

	if cached, ok := a.cache.Get(key); ok {
		a.metrics.RecordSearch(true)
		logger.Debug().Int("total", cached.Total).Msg("search served from cache")
		a.publish(ctx, req, cached, true, a.now().Sub(start), logger)
		return cached, nil
	}
	a.metrics.RecordSearch(false)

	ctx = logger.WithContext(ctx)
	params := papersources.ParamsFromRequest(req)

	status := make(map[domain.SourceType]domain.SourceStatus, len(req.Sources))
	for _, s := range req.Sources {
		status[s] = domain.PendingStatus()
	}

	outcomes := a.fanOut(ctx, req.Sources, params)

	var (
		merged []domain.Paper
		errs   []string
	)
	for _, o := range outcomes {
		name := string(o.source)
		if o.err != nil {
			msg := o.err.Error()
			status[o.source] = domain.ErrorStatus(msg)
			errs = append(errs, name+": "+msg)
			a.metrics.RecordSourceFailure(name, errors.Is(o.err, domain.ErrRateLimited), o.elapsed.Seconds())
			srcLogger := observability.WithSourceContext(logger, name)
			srcLogger.Warn().Err(o.err).Dur("elapsed", o.elapsed).Msg("source search failed")
			continue
		}

		status[o.source] = domain.SuccessStatus(len(o.papers))
		merged = append(merged, o.papers...)
		if o.timedOut {
			a.metrics.RecordSourceTimeout(name, o.elapsed.Seconds())
			srcLogger := observability.WithSourceContext(logger, name)
			srcLogger.Warn().Dur("elapsed", o.elapsed).Msg("source timed out, continuing without it")
		} else {
			a.metrics.RecordSourceSuccess(name, len(o.papers), o.elapsed.Seconds())
		}
	}

	SortPapers(merged, req.SortBy)
	if merged == nil {
		merged = []domain.Paper{}
	}

	resp := domain.SearchResponse{
		Papers:       merged,
		Total:        len(merged),
		Page:         req.Page,
		Limit:        req.Limit,
		HasMore:      len(merged) >= req.Limit,
		SourceStatus: status,
		Errors:       errs,
	}

	// A cancelled request holds errors that belong to its caller, not to the query.
	if ctx.Err() == nil {
		a.cache.Set(key, resp)
		a.metrics.SetCacheSize(a.cache.Len())
	} else {
		logger.Debug().Err(ctx.Err()).Msg("request ended before aggregation finished, result not cached")
	}

	elapsed := a.now().Sub(start)
	a.metrics.RecordAggregation(resp.Total, elapsed.Seconds())
	logger.Info().
		Int("total", resp.Total).
		Int("failed_sources", len(errs)).
		Dur("elapsed", elapsed).
		Msg("search completed")

	a.publish(ctx, req, resp, false, elapsed, logger)
	return resp, nil
}

// fanOut runs one adapter call per source concurrently and waits for all of
// them. Outcomes are returned in the order of sources.
func (a *Aggregator) fanOut(ctx context.Context, sources []domain.SourceType, params papersources.SearchParams) []outcome {
	type indexed struct {
		i int
		o outcome
	}

	results := make(chan indexed, len(sources))
	for i, s := range sources {
		go func(i int, s domain.SourceType) {
			results <- indexed{i: i, o: a.runSource(ctx, s, params)}
		}(i, s)
	}

	outcomes := make([]outcome, len(sources))
	for range sources {
		r := <-results
		outcomes[r.i] = r.o
	}
	return outcomes
}

// runSource calls one adapter, converting panics into errors and applying the
// source's timeout if one is configured.
func (a *Aggregator) runSource(ctx context.Context, sourceType domain.SourceType, params papersources.SearchParams) outcome {
	start := a.now()
	out := outcome{source: sourceType}

	source, err := a.sources.Lookup(sourceType)
	if err != nil {
		out.err = err
		return out
	}

	var cancel context.CancelFunc
	timeout, bounded := a.cfg.SourceTimeouts[sourceType]
	if bounded && timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	// Cancelling on return abandons a call that lost the race.
	defer cancel()

	type result struct {
		papers []domain.Paper
		err    error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		papers, err := source.Search(ctx, params)
		done <- result{papers: papers, err: err}
	}()

	select {
	case r := <-done:
		out.papers, out.err = r.papers, r.err
		if out.err != nil && bounded && errors.Is(out.err, context.DeadlineExceeded) && ctx.Err() != nil {
			out.papers, out.err, out.timedOut = nil, nil, true
		}
	case <-ctx.Done():
		if bounded && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			out.timedOut = true
		} else {
			out.err = ctx.Err()
		}
	}

	if out.err == nil && out.papers == nil {
		out.papers = []domain.Paper{}
	}
	out.elapsed = a.now().Sub(start)
	return out
}

func (a *Aggregator) publish(ctx context.Context, req domain.SearchRequest, resp domain.SearchResponse, cacheHit bool, elapsed time.Duration, logger zerolog.Logger) {
	err := a.publisher.PublishSearchCompleted(context.WithoutCancel(ctx), events.SearchCompleted{
		RequestID:    observability.RequestIDFromContext(ctx),
		Query:        req.Query,
		Sources:      req.Sources,
		DateFilter:   req.DateFilter,
		SortBy:       req.SortBy,
		Page:         req.Page,
		Limit:        req.Limit,
		Total:        resp.Total,
		CacheHit:     cacheHit,
		DurationMs:   elapsed.Milliseconds(),
		SourceStatus: resp.SourceStatus,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("failed to publish search event")
	}
}

// SortPapers orders papers in place by source priority, then within each
// source by sortBy. Relevance and citations keep upstream order.
func SortPapers(papers []domain.Paper, sortBy domain.SortBy) {
	slices.SortStableFunc(papers, func(x, y domain.Paper) int {
		if c := cmp.Compare(x.Source.Priority(), y.Source.Priority()); c != 0 {
			return c
		}
		switch sortBy {
		case domain.SortByDateNewest:
			return y.PublishedTime().Compare(x.PublishedTime())
		case domain.SortByDateOldest:
			return x.PublishedTime().Compare(y.PublishedTime())
		default:
			return 0
		}
	})
}

func sourceNames(sources []domain.SourceType) []string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = string(s)
	}
	return names
}
