// Package imageprobe checks that a URL points at a reachable image without
// downloading it.
package imageprobe

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-news-curator/internal/metrics"
	"github.com/samvad-hq/samvad-news-curator/pkg/httpclient"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 5 * time.Second

// Options tunes a Prober.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	HostRPS   float64
	HostBurst int
}

// Prober issues HEAD requests against image URLs.
type Prober struct {
	client  httpclient.Client
	timeout time.Duration
	headers map[string]string
	limiter *hostLimiter
}

// New builds a Prober. A nil client falls back to a resty client whose own
// timeout matches the probe timeout.
func New(client httpclient.Client, opts Options) *Prober {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if client == nil {
		client = httpclient.NewRestyClient(opts.Timeout)
	}

	var headers map[string]string
	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		headers = map[string]string{"User-Agent": ua}
	}

	return &Prober{
		client:  client,
		timeout: opts.Timeout,
		headers: headers,
		limiter: newHostLimiter(opts.HostRPS, opts.HostBurst),
	}
}

// Probe reports whether url answers a HEAD request with a 2xx status and an
// image/* content type within the probe timeout. Every failure is reported as
// false.
func (p *Prober) Probe(ctx context.Context, url string) bool {
	url = strings.TrimSpace(url)
	if url == "" {
		metrics.ObserveProbe(metrics.ProbeSkipped, 0)
		return false
	}

	start := time.Now()
	result := p.probe(ctx, url)
	metrics.ObserveProbe(result, time.Since(start))
	return result == metrics.ProbeValid
}

// probe waits for the host's rate-limit token on the caller's ctx, so
// throttling delays the HEAD request instead of eating into its timeout.
func (p *Prober) probe(ctx context.Context, url string) string {
	if err := p.limiter.wait(ctx, url); err != nil {
		return classifyErr(ctx, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Head(ctx, url, p.headers)
	if err != nil {
		return classifyErr(ctx, err)
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return metrics.ProbeInvalidStatus
	}
	if !IsImageContentType(resp.Header("Content-Type")) {
		return metrics.ProbeInvalidContentType
	}
	return metrics.ProbeValid
}

// IsImageContentType reports whether a Content-Type header value declares an image.
func IsImageContentType(value string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(value)), "image/")
}

func classifyErr(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return metrics.ProbeTimeout
	}
	return metrics.ProbeError
}
