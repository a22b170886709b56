package crawler

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"marketinsight/internal/model"
	"marketinsight/internal/observability"
)

// ParseFunc turns a fetched page into records and follow-up requests.
type ParseFunc func(ctx context.Context, resp *Response) (Result, error)

// Request is one unit of crawl work.
type Request struct {
	URL   string
	Parse ParseFunc
	// Once gates the request through the VisitCache.
	Once bool
	// Done runs after the request finished, whether it was fetched,
	// skipped or failed. An error from Done aborts the crawl.
	Done func() error
}

// Result is what a parse step produces.
type Result struct {
	Items  []model.RawItem
	Follow []Request
}

// Sink receives parsed records. Any error it returns is fatal to the crawl.
type Sink func(ctx context.Context, item model.RawItem) error

type SchedulerOptions struct {
	Concurrency int
	// RetryFailed evicts a request's URL from the VisitCache when its fetch
	// fails, so a later link to it is fetched again.
	RetryFailed bool
}

// Stats counts request outcomes of one Run.
type Stats struct {
	Fetched int64
	Failed  int64
	Skipped int64
	Items   int64
}

// Scheduler dispatches requests concurrently until no work is left.
type Scheduler struct {
	fetcher     Doer
	visits      VisitCache
	sink        Sink
	sem         *semaphore.Weighted
	retryFailed bool

	g   *errgroup.Group
	ctx context.Context

	fetched atomic.Int64
	failed  atomic.Int64
	skipped atomic.Int64
	items   atomic.Int64
}

func NewScheduler(fetcher Doer, visits VisitCache, sink Sink, opts SchedulerOptions) *Scheduler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Scheduler{
		fetcher:     fetcher,
		visits:      visits,
		sink:        sink,
		sem:         semaphore.NewWeighted(int64(opts.Concurrency)),
		retryFailed: opts.RetryFailed,
	}
}

// Run schedules seeds and blocks until every request they lead to has
// finished, or the first fatal error.
func (s *Scheduler) Run(ctx context.Context, seeds ...Request) error {
	g, gctx := errgroup.WithContext(ctx)
	s.g, s.ctx = g, gctx

	for _, req := range seeds {
		s.Enqueue(req)
	}
	return g.Wait()
}

// Enqueue schedules req. It may only be called while Run is active, from a
// parse step or a Done hook.
func (s *Scheduler) Enqueue(req Request) {
	s.g.Go(func() error {
		err := s.process(s.ctx, req)
		if req.Done != nil {
			if derr := req.Done(); derr != nil {
				return derr
			}
		}
		return err
	})
}

func (s *Scheduler) Stats() Stats {
	return Stats{
		Fetched: s.fetched.Load(),
		Failed:  s.failed.Load(),
		Skipped: s.skipped.Load(),
		Items:   s.items.Load(),
	}
}

func (s *Scheduler) process(ctx context.Context, req Request) error {
	if req.Once {
		ok, err := s.visits.ShouldVisit(ctx, req.URL)
		if err != nil {
			return err
		}
		if !ok {
			s.skipped.Add(1)
			observability.VisitsSkipped.Inc()
			return nil
		}
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	resp, err := s.fetcher.Fetch(ctx, req.URL)
	s.sem.Release(1)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.failed.Add(1)
		observability.Fetches.WithLabelValues("failed").Inc()
		zap.L().Warn("crawler: fetch failed", zap.String("url", req.URL), zap.Error(err))
		if s.retryFailed && req.Once {
			if ferr := s.visits.Forget(ctx, req.URL); ferr != nil {
				return ferr
			}
		}
		return nil
	}
	s.fetched.Add(1)
	observability.Fetches.WithLabelValues("ok").Inc()

	if req.Parse == nil {
		return nil
	}
	res, err := req.Parse(ctx, resp)
	if err != nil {
		observability.Fetches.WithLabelValues("unparsed").Inc()
		zap.L().Warn("crawler: parse failed", zap.String("url", req.URL), zap.Error(err))
		return nil
	}

	for _, item := range res.Items {
		s.items.Add(1)
		if err := s.sink(ctx, item); err != nil {
			zap.L().Error("crawler: sink rejected item", zap.String("url", req.URL), zap.Error(err))
			return err
		}
	}
	for _, next := range res.Follow {
		abs, err := resp.Resolve(next.URL)
		if err != nil {
			zap.L().Debug("crawler: bad link", zap.String("href", next.URL), zap.Error(err))
			if next.Done != nil {
				if derr := next.Done(); derr != nil {
					return derr
				}
			}
			continue
		}
		next.URL = abs
		s.Enqueue(next)
	}
	return nil
}
