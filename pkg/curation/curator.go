// Package curation selects a bounded number of publishable articles from a
// candidate list, validating each candidate's image over the network with a
// fixed-size worker pool.
package curation

import (
	"context"
	"sync"

	"github.com/samvad-hq/samvad-news-curator/internal/domain"
	"github.com/samvad-hq/samvad-news-curator/internal/logger"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultLimit       = 7
	DefaultConcurrency = 10
)

// ImageProber validates a candidate's image URL. Implementations must treat
// every failure (including timeouts) as false.
type ImageProber interface {
	Probe(ctx context.Context, url string) bool
}

// EnrichFunc fills gaps in a candidate before it is validated. It runs on
// the worker that dequeued the candidate, so it shares the worker bound and
// the early stop.
type EnrichFunc func(ctx context.Context, a domain.Article) domain.Article

// Options tunes a Curator.
type Options struct {
	Concurrency int
}

// Curator runs the validating collector.
type Curator struct {
	prober      ImageProber
	concurrency int
	log         logger.Logger
}

// New builds a Curator. Concurrency defaults to DefaultConcurrency.
func New(prober ImageProber, opts Options, log logger.Logger) *Curator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Curator{
		prober:      prober,
		concurrency: opts.Concurrency,
		log:         logger.Ensure(log),
	}
}

// Curate is a convenience wrapper around New(...).Curate.
func Curate(ctx context.Context, prober ImageProber, candidates []domain.Article, limit, concurrency int) []domain.Article {
	return New(prober, Options{Concurrency: concurrency}, nil).Curate(ctx, candidates, limit)
}

// Curate returns up to limit candidates that pass FieldsValid and whose image
// probe succeeds. At most Concurrency probes are in flight, each candidate is
// considered at most once, and no new candidate is dequeued once limit
// results are held or ctx is done. Results are in completion order.
func (c *Curator) Curate(ctx context.Context, candidates []domain.Article, limit int) []domain.Article {
	return c.CurateEnriched(ctx, candidates, limit, nil)
}

// CurateEnriched is Curate with enrich applied to each considered candidate
// before validation. Accepted results carry the enriched fields; candidates
// never dequeued are never enriched.
func (c *Curator) CurateEnriched(ctx context.Context, candidates []domain.Article, limit int, enrich EnrichFunc) []domain.Article {
	if limit <= 0 || len(candidates) == 0 {
		return []domain.Article{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	st := &collector{queue: candidates, limit: limit}

	workers := min(c.concurrency, len(candidates))
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			c.drain(ctx, st, enrich)
			return nil
		})
	}
	_ = g.Wait()

	out := st.take()
	c.log.DebugObj("curation finished", "curation_result", map[string]any{
		"candidates": len(candidates),
		"considered": st.next,
		"accepted":   len(out),
		"limit":      limit,
		"workers":    workers,
	})
	return out
}

// drain is one worker: it pulls candidates until the collector says stop.
func (c *Curator) drain(ctx context.Context, st *collector, enrich EnrichFunc) {
	for {
		cand, ok := st.dequeue(ctx)
		if !ok {
			return
		}
		if enrich != nil {
			cand = enrich(ctx, cand)
		}
		if c.accept(ctx, cand) {
			st.push(cand)
		}
	}
}

func (c *Curator) accept(ctx context.Context, a domain.Article) bool {
	if !FieldsValid(a) {
		return false
	}
	if c.prober == nil {
		return false
	}
	return c.prober.Probe(ctx, a.ImageURLValue())
}

// collector holds the shared queue cursor and results. Every access goes
// through mu; no lock is held while a probe runs.
type collector struct {
	mu      sync.Mutex
	queue   []domain.Article
	next    int
	results []domain.Article
	limit   int
}

func (s *collector) dequeue(ctx context.Context) (domain.Article, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.results) >= s.limit || s.next >= len(s.queue) || ctx.Err() != nil {
		return domain.Article{}, false
	}
	a := s.queue[s.next]
	s.next++
	return a, true
}

func (s *collector) push(a domain.Article) {
	s.mu.Lock()
	s.results = append(s.results, a)
	s.mu.Unlock()
}

// take returns the results trimmed to limit; probes that finish after the
// target was reached may overshoot it.
func (s *collector) take() []domain.Article {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.results
	if len(out) > s.limit {
		out = out[:s.limit]
	}
	return append([]domain.Article{}, out...)
}
