package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveProbeCountsByResult(t *testing.T) {
	Init()
	before := testutil.ToFloat64(imageProbesTotal.WithLabelValues(ProbeTimeout))

	ObserveProbe(ProbeTimeout, 10*time.Millisecond)
	ObserveProbe(ProbeTimeout, 20*time.Millisecond)

	after := testutil.ToFloat64(imageProbesTotal.WithLabelValues(ProbeTimeout))
	assert.Equal(t, before+2, after)
}

func TestObserveCurationSetsGauge(t *testing.T) {
	ObserveCuration("feed-a", 10, 3)
	assert.Equal(t, float64(3), testutil.ToFloat64(curatedArticles.WithLabelValues("feed-a")))

	ObserveCuration("feed-a", 4, 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(curatedArticles.WithLabelValues("feed-a")))
	assert.Equal(t, float64(14), testutil.ToFloat64(candidatesTotal.WithLabelValues("feed-a")))
}

func TestObservePublishSplitsByStatus(t *testing.T) {
	ObservePublish("hook", nil)
	ObservePublish("hook", errors.New("boom"))
	ObservePublish("hook", nil)

	assert.Equal(t, float64(2), testutil.ToFloat64(publishedEventsTotal.WithLabelValues("hook", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(publishedEventsTotal.WithLabelValues("hook", "error")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	ObservePublish("queue", nil)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "curator_published_events_total"))
}
