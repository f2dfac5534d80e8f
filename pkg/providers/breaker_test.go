package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-news-curator/internal/domain"
	"github.com/sony/gobreaker"
)

type flakyFetcher struct {
	calls int
	err   error
}

func (f *flakyFetcher) ID() string { return "flaky" }

func (f *flakyFetcher) Fetch(context.Context, Provider) ([]domain.Article, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Article{{ID: "a"}}, nil
}

func TestWithBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyFetcher{err: errors.New("boom")}
	f := WithBreaker(inner, BreakerConfig{MaxRequests: 1, Timeout: time.Hour, ConsecutiveFailures: 2})
	cfg := Provider{ID: "feed-a"}

	for i := 0; i < 2; i++ {
		if _, err := f.Fetch(context.Background(), cfg); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}

	_, err := f.Fetch(context.Background(), cfg)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected inner fetcher to be skipped while open, got %d calls", inner.calls)
	}

	// other feeds keep their own breaker
	inner.err = nil
	articles, err := f.Fetch(context.Background(), Provider{ID: "feed-b"})
	if err != nil || len(articles) != 1 {
		t.Fatalf("expected feed-b to pass, got %v / %d", err, len(articles))
	}
}

func TestWithBreakerSkipsCancelledContext(t *testing.T) {
	inner := &flakyFetcher{}
	f := WithBreaker(inner, DefaultBreakerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Fetch(ctx, Provider{ID: "feed"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if inner.calls != 0 {
		t.Fatalf("expected no inner call, got %d", inner.calls)
	}
}
