package storage

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-news-curator/internal/domain"
	bolt "go.etcd.io/bbolt"
)

func TestBoltStoreMarksAndExpiresArticles(t *testing.T) {
	opts := Options{
		ArticleTTL:      1 * time.Second,
		CleanupInterval: 1 * time.Second,
	}

	store, err := openBolt(filepath.Join(t.TempDir(), "cache.db"), opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer store.Close()

	key := ArticleKey("feed", "id1")
	seen, err := store.SeenArticle(key)
	if err != nil || seen {
		t.Fatalf("expected unseen article, seen=%v err=%v", seen, err)
	}

	if err := store.MarkArticle(key); err != nil {
		t.Fatalf("MarkArticle: %v", err)
	}

	seen, err = store.SeenArticle(key)
	if err != nil || !seen {
		t.Fatalf("expected article marked as seen, got seen=%v err=%v", seen, err)
	}

	// Fast-forward cleanup cadence and trigger expiry.
	store.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	seen, err = store.SeenArticle(key)
	if err != nil {
		t.Fatalf("SeenArticle after expiry: %v", err)
	}
	if seen {
		t.Fatalf("expected entry to expire and be removed")
	}
}

func TestBoltStoreCleanupRemovesConsecutiveExpiredKeys(t *testing.T) {
	store, err := openBolt(filepath.Join(t.TempDir(), "cache.db"), Options{
		ArticleTTL:      time.Minute,
		CleanupInterval: time.Minute,
	})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer store.Close()

	for i := 0; i < 6; i++ {
		if err := store.MarkArticle(ArticleKey("feed", fmt.Sprintf("old-%d", i))); err != nil {
			t.Fatalf("MarkArticle: %v", err)
		}
	}
	later := time.Now().Add(2 * time.Minute)
	err = store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(articleBucket)).Put([]byte(ArticleKey("feed", "zz-fresh")), encodeExpiry(later.Add(time.Hour)))
	})
	if err != nil {
		t.Fatalf("seed fresh key: %v", err)
	}

	store.lastCleanup.Store(0)
	if err := store.maybeCleanupExpired(later); err != nil {
		t.Fatalf("maybeCleanupExpired: %v", err)
	}

	var left []string
	_ = store.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(articleBucket)).ForEach(func(k, _ []byte) error {
			left = append(left, string(k))
			return nil
		})
	})
	if len(left) != 1 || left[0] != ArticleKey("feed", "zz-fresh") {
		t.Fatalf("expected only the fresh key to remain, got %v", left)
	}
}

func TestBoltStoreSnapshotsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.db")

	store, err := NewStore(TypeBBolt, path, Options{})
	if err != nil {
		t.Fatalf("NewStore bbolt: %v", err)
	}

	snap := Snapshot{
		FeedID:     "trending",
		FeedName:   "Trending",
		CuratedAt:  time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Candidates: 12,
		Limit:      7,
		Articles: []domain.Article{
			{ID: "a1", Title: "One", Description: domain.StringPtr("d")},
		},
	}
	if err := store.SaveSnapshot(snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := store.SaveSnapshot(Snapshot{FeedID: "business"}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewStore(TypeBBolt, path, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.LoadSnapshot("trending")
	if err != nil || !ok {
		t.Fatalf("LoadSnapshot: ok=%v err=%v", ok, err)
	}
	if got.Candidates != 12 || len(got.Articles) != 1 || *got.Articles[0].Description != "d" {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	if !got.CuratedAt.Equal(snap.CuratedAt) {
		t.Fatalf("CuratedAt = %v", got.CuratedAt)
	}

	if _, ok, err := reopened.LoadSnapshot("missing"); ok || err != nil {
		t.Fatalf("expected missing snapshot, ok=%v err=%v", ok, err)
	}

	all, err := reopened.ListSnapshots()
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(all) != 2 || all[0].FeedID != "business" || all[1].FeedID != "trending" {
		t.Fatalf("unexpected snapshot list %+v", all)
	}
}

func TestBoltStoreRejectsEmptyFeedID(t *testing.T) {
	store, err := openBolt(filepath.Join(t.TempDir(), "cache.db"), normalizeOptions(Options{}))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	defer store.Close()

	if err := store.SaveSnapshot(Snapshot{}); err == nil {
		t.Fatal("expected error for empty feed id")
	}
}
