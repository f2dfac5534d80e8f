package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-news-curator/internal/domain"
	"github.com/samvad-hq/samvad-news-curator/internal/metrics"
	"github.com/samvad-hq/samvad-news-curator/internal/storage"
	"github.com/samvad-hq/samvad-news-curator/pkg/providers"
)

type failingSnapshots struct{}

func (failingSnapshots) SaveSnapshot(storage.Snapshot) error { return errors.New("disk full") }
func (failingSnapshots) LoadSnapshot(string) (storage.Snapshot, bool, error) {
	return storage.Snapshot{}, false, errors.New("disk full")
}
func (failingSnapshots) ListSnapshots() ([]storage.Snapshot, error) {
	return nil, errors.New("disk full")
}

func newTestServer(t *testing.T) (*Server, storage.SnapshotStore) {
	t.Helper()
	snaps, err := storage.NewStore(storage.TypeNone, "", storage.Options{})
	require.NoError(t, err)
	feeds := []providers.Provider{
		{ID: "world", Name: "World", Type: "rss"},
		{ID: "india", Name: "India", Type: "newsapi"},
	}
	return New(feeds, snaps, nil), snaps
}

func do(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := do(t, srv.Handler(), "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpointExposesCurationCollectors(t *testing.T) {
	t.Parallel()

	metrics.ObserveCuration("world", 3, 1)
	srv, _ := newTestServer(t)
	rec := do(t, srv.Handler(), "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "curator_curations_total")
}

func TestListFeedsReportsCuratedCounts(t *testing.T) {
	t.Parallel()

	srv, snaps := newTestServer(t)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, snaps.SaveSnapshot(storage.Snapshot{
		FeedID:    "world",
		CuratedAt: at,
		Articles:  []domain.Article{{ID: "a"}, {ID: "b"}},
	}))

	rec := do(t, srv.Handler(), "/v1/feeds")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Feeds []FeedSummary `json:"feeds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Feeds, 2)

	assert.Equal(t, "india", body.Feeds[0].ID)
	assert.Zero(t, body.Feeds[0].Curated)
	assert.Nil(t, body.Feeds[0].CuratedAt)

	assert.Equal(t, "world", body.Feeds[1].ID)
	assert.Equal(t, 2, body.Feeds[1].Curated)
	require.NotNil(t, body.Feeds[1].CuratedAt)
	assert.True(t, body.Feeds[1].CuratedAt.Equal(at))
}

func TestGetCuratedReturnsSnapshot(t *testing.T) {
	t.Parallel()

	srv, snaps := newTestServer(t)
	require.NoError(t, snaps.SaveSnapshot(storage.Snapshot{
		FeedID:     "world",
		FeedName:   "World",
		Candidates: 12,
		Limit:      7,
		Articles:   []domain.Article{{ID: "a", Title: "Headline"}},
	}))

	rec := do(t, srv.Handler(), "/v1/feeds/world/curated")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap storage.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "world", snap.FeedID)
	assert.Equal(t, 12, snap.Candidates)
	require.Len(t, snap.Articles, 1)
	assert.Equal(t, "Headline", snap.Articles[0].Title)
}

func TestGetCuratedUnknownFeedIsNotFound(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	rec := do(t, srv.Handler(), "/v1/feeds/missing/curated")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStoreFailuresSurfaceAsServerErrors(t *testing.T) {
	t.Parallel()

	srv := New([]providers.Provider{{ID: "world"}}, failingSnapshots{}, nil)

	assert.Equal(t, http.StatusInternalServerError, do(t, srv.Handler(), "/v1/feeds").Code)
	assert.Equal(t, http.StatusInternalServerError, do(t, srv.Handler(), "/v1/feeds/world/curated").Code)
}
