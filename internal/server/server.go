// Package server exposes the curator's status surface over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/samvad-hq/samvad-news-curator/internal/logger"
	"github.com/samvad-hq/samvad-news-curator/internal/metrics"
	"github.com/samvad-hq/samvad-news-curator/internal/storage"
	"github.com/samvad-hq/samvad-news-curator/pkg/providers"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Server serves health, metrics and the latest curated snapshot per feed.
type Server struct {
	router    chi.Router
	feeds     []providers.Provider
	snapshots storage.SnapshotStore
	log       logger.Logger
}

// FeedSummary is one row of GET /v1/feeds.
type FeedSummary struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Curated   int        `json:"curated"`
	CuratedAt *time.Time `json:"curated_at,omitempty"`
}

// New constructs a Server with middleware and routes.
func New(feeds []providers.Provider, snapshots storage.SnapshotStore, log logger.Logger) *Server {
	s := &Server{
		feeds:     append([]providers.Provider(nil), feeds...),
		snapshots: snapshots,
		log:       logger.Ensure(log),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(s.logRequests)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1/feeds", func(r chi.Router) {
		r.Get("/", s.listFeeds)
		r.Get("/{feedID}/curated", s.getCurated)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoObj("http server listening", "http_server", map[string]any{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listFeeds(w http.ResponseWriter, _ *http.Request) {
	latest := map[string]storage.Snapshot{}
	if s.snapshots != nil {
		snaps, err := s.snapshots.ListSnapshots()
		if err != nil {
			s.log.ErrorObj("list snapshots failed", "http_error", map[string]any{"error": err.Error()})
			writeError(w, http.StatusInternalServerError, "snapshots unavailable")
			return
		}
		for _, snap := range snaps {
			latest[snap.FeedID] = snap
		}
	}

	out := make([]FeedSummary, 0, len(s.feeds))
	for _, feed := range s.feeds {
		row := FeedSummary{ID: feed.ID, Name: feed.Name, Type: feed.Type}
		if snap, ok := latest[feed.ID]; ok {
			at := snap.CuratedAt
			row.Curated = len(snap.Articles)
			row.CuratedAt = &at
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	writeJSON(w, http.StatusOK, map[string]any{"feeds": out})
}

func (s *Server) getCurated(w http.ResponseWriter, r *http.Request) {
	feedID := chi.URLParam(r, "feedID")
	if s.snapshots == nil {
		writeError(w, http.StatusNotFound, "feed not curated yet")
		return
	}

	snap, ok, err := s.snapshots.LoadSnapshot(feedID)
	if err != nil {
		s.log.ErrorObj("load snapshot failed", "http_error", map[string]any{
			"feed_id": feedID,
			"error":   err.Error(),
		})
		writeError(w, http.StatusInternalServerError, "snapshot unavailable")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "feed not curated yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.DebugObj("http request", "http_request", map[string]any{
			"request_id":  middleware.GetReqID(r.Context()),
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.ErrorObj("write JSON failed", "http_error", map[string]any{"error": err.Error()})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
