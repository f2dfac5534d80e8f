package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-news-curator/internal/config"
	"github.com/samvad-hq/samvad-news-curator/internal/storage"
	"github.com/samvad-hq/samvad-news-curator/pkg/publishers"
)

const feedTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>World Desk</title>
    <link>{{BASE}}</link>
    <description>test feed</description>
    <item>
      <title>Valid headline</title>
      <link>{{BASE}}/news/1</link>
      <guid>n1</guid>
      <description>Something happened.</description>
      <pubDate>Fri, 01 Mar 2024 10:00:00 GMT</pubDate>
      <enclosure url="{{BASE}}/img/ok.jpg" type="image/jpeg" length="10"/>
    </item>
    <item>
      <title>Broken image</title>
      <link>{{BASE}}/news/2</link>
      <guid>n2</guid>
      <description>Image is gone.</description>
      <pubDate>Fri, 01 Mar 2024 11:00:00 GMT</pubDate>
      <enclosure url="{{BASE}}/img/missing.jpg" type="image/jpeg" length="10"/>
    </item>
    <item>
      <title>[Removed]</title>
      <link>{{BASE}}/news/3</link>
      <guid>n3</guid>
      <description>Taken down.</description>
      <pubDate>Fri, 01 Mar 2024 12:00:00 GMT</pubDate>
      <enclosure url="{{BASE}}/img/ok.jpg" type="image/jpeg" length="10"/>
    </item>
  </channel>
</rss>`

type upstream struct {
	srv    *httptest.Server
	mu     sync.Mutex
	events []publishers.Event
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{}
	mux := http.NewServeMux()
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(strings.ReplaceAll(feedTemplate, "{{BASE}}", u.srv.URL)))
	})
	mux.HandleFunc("/img/ok.jpg", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/hook", func(w http.ResponseWriter, r *http.Request) {
		var evt publishers.Event
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		u.mu.Lock()
		u.events = append(u.events, evt)
		u.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	})
	u.srv = httptest.NewServer(mux)
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) published() []publishers.Event {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]publishers.Event(nil), u.events...)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testConfig(t *testing.T, base string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	providersFile := writeFile(t, dir, "providers.yaml", `
providers:
  - id: world
    name: World Desk
    type: rss
    source_url: `+base+`/feed.xml
`)
	publishersFile := writeFile(t, dir, "publishers.yaml", `
publishers:
  - id: webhook
    type: http
    http:
      url: `+base+`/hook
`)
	return &config.Config{
		ProvidersFile:          providersFile,
		PublishersFile:         publishersFile,
		CrawlInterval:          time.Hour,
		StorageType:            storage.TypeMemory,
		StorageTTL:             time.Hour,
		StorageCleanupInterval: time.Hour,
		CurationLimit:          7,
		CurationConcurrency:    2,
		ProbeTimeout:           2 * time.Second,
		ProbeHostBurst:         1,
	}
}

func TestCuratorRunOncePublishesOnlyValidArticles(t *testing.T) {
	up := newUpstream(t)
	cur, err := NewCurator(context.Background(), testConfig(t, up.srv.URL), nil)
	if err != nil {
		t.Fatalf("NewCurator: %v", err)
	}
	defer cur.close()

	if err := cur.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	events := up.published()
	if len(events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(events))
	}
	if events[0].Article.ID != "n1" || events[0].ProviderID != "world" {
		t.Fatalf("unexpected event %+v", events[0])
	}
	if events[0].DisplayDate != "March 1, 2024" {
		t.Fatalf("unexpected display date %q", events[0].DisplayDate)
	}

	snap, ok, err := cur.store.LoadSnapshot("world")
	if err != nil || !ok {
		t.Fatalf("LoadSnapshot: ok=%v err=%v", ok, err)
	}
	if snap.Candidates != 3 || len(snap.Articles) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	// Second pass curates again but does not republish.
	if err := cur.RunOnce(context.Background()); err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	if got := len(up.published()); got != 1 {
		t.Fatalf("expected dedupe to suppress republish, got %d events", got)
	}
}

func TestCuratorRunStopsOnCancel(t *testing.T) {
	up := newUpstream(t)
	cur, err := NewCurator(context.Background(), testConfig(t, up.srv.URL), nil)
	if err != nil {
		t.Fatalf("NewCurator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cur.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for len(up.published()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
	if len(up.published()) != 1 {
		t.Fatalf("expected initial pass to publish once, got %d", len(up.published()))
	}
}

func TestNewCuratorRejectsNilConfig(t *testing.T) {
	if _, err := NewCurator(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestNewCuratorFailsOnMissingProvidersFile(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.ProvidersFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := NewCurator(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for missing providers file")
	}
}

func TestNewCuratorAllowsDisabledPublishers(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.PublishersFile = writeFile(t, t.TempDir(), "publishers.yaml", `
publishers:
  - id: webhook
    type: http
    enabled: false
    http:
      url: http://127.0.0.1:1/hook
`)
	cur, err := NewCurator(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewCurator: %v", err)
	}
	defer cur.close()
	if cur.fanout.Size() != 0 {
		t.Fatalf("expected no active publishers, got %d", cur.fanout.Size())
	}
}
