package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	articleBucket    = "published_articles"
	snapshotBucket   = "feed_snapshots"
	expiryValueBytes = 8
)

// boltStore persists publish-dedupe keys with a TTL and the latest snapshot
// per feed in a single BoltDB file.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	articleTTL      time.Duration
	cleanupInterval time.Duration
}

func openBolt(path string, opts Options) (*boltStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{articleBucket, snapshotBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	store := &boltStore{
		db:              db,
		articleTTL:      opts.ArticleTTL,
		cleanupInterval: opts.CleanupInterval,
	}
	store.lastCleanup.Store(time.Now().Unix())
	return store, nil
}

func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// SeenArticle reports whether key was marked and has not expired. Expired
// keys are deleted on read.
func (b *boltStore) SeenArticle(key string) (bool, error) {
	now := time.Now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return false, err
	}

	var seen bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx, articleBucket)
		if err != nil {
			return err
		}

		k := []byte(key)
		value := bucket.Get(k)
		if value == nil {
			return nil
		}
		expiry, ok := decodeExpiry(value)
		if !ok || !expiry.After(now) {
			return bucket.Delete(k)
		}
		seen = true
		return nil
	})
	return seen, err
}

func (b *boltStore) MarkArticle(key string) error {
	now := time.Now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx, articleBucket)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), encodeExpiry(now.Add(b.articleTTL)))
	})
}

func (b *boltStore) SaveSnapshot(s Snapshot) error {
	id := strings.TrimSpace(s.FeedID)
	if id == "" {
		return fmt.Errorf("snapshot feed id is empty")
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", id, err)
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx, snapshotBucket)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(id), raw)
	})
}

func (b *boltStore) LoadSnapshot(feedID string) (Snapshot, bool, error) {
	var (
		snap  Snapshot
		found bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx, snapshotBucket)
		if err != nil {
			return err
		}
		raw := bucket.Get([]byte(feedID))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &snap)
	})
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("load snapshot %s: %w", feedID, err)
	}
	return snap, found, nil
}

// ListSnapshots returns every stored snapshot ordered by feed id.
func (b *boltStore) ListSnapshots() ([]Snapshot, error) {
	var out []Snapshot
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx, snapshotBucket)
		if err != nil {
			return err
		}
		return bucket.ForEach(func(k, v []byte) error {
			var s Snapshot
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("decode snapshot %s: %w", k, err)
			}
			out = append(out, s)
			return nil
		})
	})
	return out, err
}

// maybeCleanupExpired removes expired keys on a fixed cadence to avoid unbounded growth.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx, articleBucket)
		if err != nil {
			return err
		}

		// Deleting under a live cursor skips the following key.
		var expired [][]byte
		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			expiry, ok := decodeExpiry(v)
			if !ok || !expiry.After(now) {
				expired = append(expired, append([]byte(nil), k...))
			}
		}
		for _, k := range expired {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

func bucketOf(tx *bolt.Tx, name string) (*bolt.Bucket, error) {
	bucket := tx.Bucket([]byte(name))
	if bucket == nil {
		return nil, fmt.Errorf("%s bucket missing", name)
	}
	return bucket, nil
}

func encodeExpiry(t time.Time) []byte {
	buf := make([]byte, expiryValueBytes)
	binary.BigEndian.PutUint64(buf, uint64(t.Unix()))
	return buf
}

func decodeExpiry(value []byte) (time.Time, bool) {
	if len(value) != expiryValueBytes {
		return time.Time{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value))
	if unix <= 0 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
