package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-news-curator/internal/domain"
	"github.com/samvad-hq/samvad-news-curator/internal/logger"
	"github.com/sony/gobreaker"
)

// BreakerConfig tunes the per-feed circuit breaker.
type BreakerConfig struct {
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval clears the closed-state counts.
	Interval time.Duration
	// Timeout is how long the breaker stays open.
	Timeout time.Duration
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
}

// DefaultBreakerConfig opens after three consecutive failed fetches of a feed
// and retries after five minutes.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            10 * time.Minute,
		Timeout:             5 * time.Minute,
		ConsecutiveFailures: 3,
	}
}

// guardedFetcher wraps a Fetcher with one circuit breaker per provider id.
type guardedFetcher struct {
	next Fetcher
	cfg  BreakerConfig

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// WithBreaker wraps f so that a feed failing repeatedly is skipped until its
// breaker half-opens again.
func WithBreaker(f Fetcher, cfg BreakerConfig) Fetcher {
	if f == nil {
		return nil
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = DefaultBreakerConfig().ConsecutiveFailures
	}
	return &guardedFetcher{
		next:     f,
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (g *guardedFetcher) ID() string { return g.next.ID() }

func (g *guardedFetcher) Fetch(ctx context.Context, cfg Provider) ([]domain.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cb := g.breakerFor(cfg.ID)
	res, err := cb.Execute(func() (interface{}, error) {
		return g.next.Fetch(ctx, cfg)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("provider %q skipped: %w", cfg.ID, err)
		}
		return nil, err
	}

	articles, _ := res.([]domain.Article)
	return articles, nil
}

func (g *guardedFetcher) breakerFor(id string) *gobreaker.CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cb, ok := g.breakers[id]; ok {
		return cb
	}

	threshold := g.cfg.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "feed:" + id,
		MaxRequests: g.cfg.MaxRequests,
		Interval:    g.cfg.Interval,
		Timeout:     g.cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WarnObj("feed circuit breaker state changed", "breaker", map[string]string{
				"name": name,
				"from": from.String(),
				"to":   to.String(),
			})
		},
	})
	g.breakers[id] = cb
	return cb
}
