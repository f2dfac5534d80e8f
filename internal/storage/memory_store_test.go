package storage

import (
	"testing"
	"time"

	"github.com/samvad-hq/samvad-news-curator/internal/domain"
)

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore(TypeNone, "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.MarkArticle("x"); err != nil {
		t.Fatalf("noop store MarkArticle: %v", err)
	}
	if seen, _ := store.SeenArticle("x"); seen {
		t.Fatal("none store must never report an article as seen")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatal("expected error for unsupported type")
	}
	if _, err := NewStore(TypeBBolt, " ", Options{}); err == nil {
		t.Fatal("expected error for bbolt without path")
	}
}

func TestMemoryStoreDedupeExpires(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := newMemoryStore(Options{ArticleTTL: time.Minute}, true)
	store.now = func() time.Time { return now }

	if err := store.MarkArticle("k"); err != nil {
		t.Fatalf("MarkArticle: %v", err)
	}
	if seen, _ := store.SeenArticle("k"); !seen {
		t.Fatal("expected key to be seen")
	}

	now = now.Add(2 * time.Minute)
	if seen, _ := store.SeenArticle("k"); seen {
		t.Fatal("expected key to expire")
	}
}

func TestMemorySnapshotsAreCopies(t *testing.T) {
	store := newMemoryStore(Options{}, false)
	articles := []domain.Article{{ID: "a"}, {ID: "b"}}

	if err := store.SaveSnapshot(Snapshot{FeedID: "f", Articles: articles}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	articles[0].ID = "mutated"

	got, ok, err := store.LoadSnapshot("f")
	if err != nil || !ok {
		t.Fatalf("LoadSnapshot ok=%v err=%v", ok, err)
	}
	if got.Articles[0].ID != "a" {
		t.Fatalf("snapshot shares caller's slice: %+v", got.Articles)
	}

	got.Articles[1].ID = "mutated"
	again, _, _ := store.LoadSnapshot("f")
	if again.Articles[1].ID != "b" {
		t.Fatalf("snapshot shares returned slice: %+v", again.Articles)
	}

	if err := store.SaveSnapshot(Snapshot{FeedID: " "}); err == nil {
		t.Fatal("expected error for blank feed id")
	}
	list, _ := store.ListSnapshots()
	if len(list) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(list))
	}
}
