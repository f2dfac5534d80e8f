// Package metrics exposes Prometheus collectors for the curator service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Probe outcomes recorded by ObserveProbe.
const (
	ProbeValid              = "valid"
	ProbeInvalidStatus      = "invalid_status"
	ProbeInvalidContentType = "invalid_content_type"
	ProbeError              = "error"
	ProbeTimeout            = "timeout"
	ProbeSkipped            = "skipped"
)

var (
	imageProbesTotal     *prometheus.CounterVec
	imageProbeDuration   prometheus.Histogram
	curationsTotal       *prometheus.CounterVec
	curatedArticles      *prometheus.GaugeVec
	candidatesTotal      *prometheus.CounterVec
	publishedEventsTotal *prometheus.CounterVec
	probeRateLimitDelay  prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		imageProbesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curator_image_probes_total",
				Help: "Total number of image HEAD probes, labeled by result.",
			},
			[]string{"result"},
		)

		imageProbeDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "curator_image_probe_duration_seconds",
				Help:    "Histogram of image probe latencies.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		)

		curationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curator_curations_total",
				Help: "Total number of curation runs, labeled by feed.",
			},
			[]string{"feed"},
		)

		curatedArticles = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "curator_curated_articles",
				Help: "Number of articles accepted by the latest curation of a feed.",
			},
			[]string{"feed"},
		)

		candidatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curator_candidates_total",
				Help: "Total number of candidates fetched, labeled by feed.",
			},
			[]string{"feed"},
		)

		publishedEventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "curator_published_events_total",
				Help: "Total number of events handed to publishers, labeled by publisher and status.",
			},
			[]string{"publisher", "status"},
		)

		probeRateLimitDelay = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "curator_probe_rate_limit_delay_seconds",
				Help:    "Histogram of per-host probe rate limit waits.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveProbe records a single image probe outcome.
func ObserveProbe(result string, duration time.Duration) {
	Init()
	imageProbesTotal.WithLabelValues(result).Inc()
	if result != ProbeSkipped {
		imageProbeDuration.Observe(duration.Seconds())
	}
}

// ObserveCuration records a finished curation for feed.
func ObserveCuration(feed string, candidates, accepted int) {
	Init()
	curationsTotal.WithLabelValues(feed).Inc()
	candidatesTotal.WithLabelValues(feed).Add(float64(candidates))
	curatedArticles.WithLabelValues(feed).Set(float64(accepted))
}

// ObservePublish records one delivery attempt by a publisher.
func ObservePublish(publisher string, err error) {
	Init()
	status := "ok"
	if err != nil {
		status = "error"
	}
	publishedEventsTotal.WithLabelValues(publisher, status).Inc()
}

// ObserveRateLimitDelay records the duration of a probe rate limit wait.
func ObserveRateLimitDelay(duration time.Duration) {
	Init()
	probeRateLimitDelay.Observe(duration.Seconds())
}
