package papersources

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"
)

// ErrLaneClosed is returned for requests submitted to a closed Lane.
var ErrLaneClosed = errors.New("request lane closed")

// Doer executes a single HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// LaneObserver receives lane activity, typically for metrics.
type LaneObserver interface {
	RecordLaneDispatch()
	RecordLaneRetry()
}

// LaneConfig configures a Lane.
type LaneConfig struct {
	// Interval is the minimum spacing between two dispatches.
	Interval time.Duration

	// MaxRetries is how many times a request is re-queued after a 429 or a
	// transport failure.
	MaxRetries int

	// RetryDelay is the base backoff; attempt n waits RetryDelay*(n+1).
	RetryDelay time.Duration

	// QueueSize bounds the number of requests waiting for dispatch.
	QueueSize int

	// Observer is notified of dispatches and retries. Optional.
	Observer LaneObserver
}

// DefaultLaneConfig returns the pacing used for the PMC E-utilities.
func DefaultLaneConfig() LaneConfig {
	return LaneConfig{
		Interval:   100 * time.Millisecond,
		MaxRetries: 1,
		RetryDelay: 200 * time.Millisecond,
		QueueSize:  256,
	}
}

// Lane serializes dispatch of outbound requests through a FIFO queue.
// Consecutive dispatches are at least Interval apart; the requests themselves
// run concurrently and may complete in any order. One Lane is shared by every
// caller of the upstream it protects.
type Lane struct {
	doer    Doer
	cfg     LaneConfig
	limiter *RateLimiter
	queue   chan *laneJob

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type laneJob struct {
	req     *http.Request
	attempt int
	result  chan laneResult

	mu        sync.Mutex
	abandoned bool
}

// deliver hands the outcome to the waiting caller. Once the caller has given
// up, a late response is drained and closed instead.
func (j *laneJob) deliver(res laneResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.abandoned {
		if res.resp != nil {
			drain(res.resp)
		}
		return
	}
	j.result <- res
}

// abandon marks the job as no longer awaited and releases any response
// already delivered.
func (j *laneJob) abandon() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.abandoned = true
	select {
	case res := <-j.result:
		if res.resp != nil {
			drain(res.resp)
		}
	default:
	}
}

type laneResult struct {
	resp *http.Response
	err  error
}

// NewLane creates a Lane and starts its dispatcher. Call Close to stop it.
func NewLane(doer Doer, cfg LaneConfig) *Lane {
	defaults := DefaultLaneConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaults.RetryDelay
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Lane{
		doer:    doer,
		cfg:     cfg,
		limiter: NewIntervalLimiter(cfg.Interval),
		queue:   make(chan *laneJob, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	l.wg.Add(1)
	go l.dispatch()
	return l
}

// Do enqueues req and waits for its outcome. A 429 that survives every retry
// is returned as a response, not an error, so callers can report the status.
func (l *Lane) Do(req *http.Request) (*http.Response, error) {
	job := &laneJob{req: req, result: make(chan laneResult, 1)}
	if err := l.enqueue(job); err != nil {
		return nil, err
	}

	select {
	case res := <-job.result:
		return res.resp, res.err
	case <-req.Context().Done():
		job.abandon()
		return nil, req.Context().Err()
	case <-l.ctx.Done():
		job.abandon()
		return nil, ErrLaneClosed
	}
}

// Pending returns the number of requests waiting for dispatch.
func (l *Lane) Pending() int {
	return len(l.queue)
}

// Close stops the dispatcher. Queued requests fail with ErrLaneClosed.
func (l *Lane) Close() {
	l.closeOnce.Do(func() {
		l.cancel()
		l.wg.Wait()
	})
}

func (l *Lane) enqueue(job *laneJob) error {
	select {
	case <-l.ctx.Done():
		return ErrLaneClosed
	default:
	}

	select {
	case l.queue <- job:
		return nil
	case <-job.req.Context().Done():
		return job.req.Context().Err()
	case <-l.ctx.Done():
		return ErrLaneClosed
	}
}

func (l *Lane) dispatch() {
	defer l.wg.Done()

	for {
		select {
		case <-l.ctx.Done():
			return
		case job := <-l.queue:
			if err := job.req.Context().Err(); err != nil {
				job.deliver(laneResult{err: err})
				continue
			}
			if err := l.limiter.Wait(l.ctx); err != nil {
				job.deliver(laneResult{err: ErrLaneClosed})
				return
			}
			if l.cfg.Observer != nil {
				l.cfg.Observer.RecordLaneDispatch()
			}
			go l.execute(job)
		}
	}
}

func (l *Lane) execute(job *laneJob) {
	resp, err := l.doer.Do(job.req)

	ctx := job.req.Context()
	retryable := (err != nil && ctx.Err() == nil) ||
		(err == nil && resp.StatusCode == http.StatusTooManyRequests)

	if !retryable || job.attempt >= l.cfg.MaxRetries {
		job.deliver(laneResult{resp: resp, err: err})
		return
	}

	if resp != nil {
		drain(resp)
	}

	backoff := l.cfg.RetryDelay * time.Duration(job.attempt+1)
	if werr := waitForRetry(ctx, backoff); werr != nil {
		job.deliver(laneResult{err: werr})
		return
	}

	job.attempt++
	if l.cfg.Observer != nil {
		l.cfg.Observer.RecordLaneRetry()
	}
	if qerr := l.enqueue(job); qerr != nil {
		job.deliver(laneResult{err: qerr})
	}
}
