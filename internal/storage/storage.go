package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-news-curator/internal/domain"
)

// Package storage keeps publish-dedupe state and the latest curated snapshot
// of every feed.

// Store tracks published article keys and curated snapshots.
type Store interface {
	Close() error
	SeenArticle(key string) (bool, error)
	MarkArticle(key string) error
	SnapshotStore
}

// SnapshotStore holds the most recent curation result per feed.
type SnapshotStore interface {
	SaveSnapshot(s Snapshot) error
	LoadSnapshot(feedID string) (Snapshot, bool, error)
	ListSnapshots() ([]Snapshot, error)
}

// Snapshot is the outcome of one curation of a feed.
type Snapshot struct {
	FeedID     string           `json:"feed_id"`
	FeedName   string           `json:"feed_name"`
	CuratedAt  time.Time        `json:"curated_at"`
	Candidates int              `json:"candidates"`
	Limit      int              `json:"limit"`
	Articles   []domain.Article `json:"articles"`
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	ArticleTTL      time.Duration
	CleanupInterval time.Duration
}

// Storage backends accepted by NewStore.
const (
	TypeNone   = "none"
	TypeMemory = "memory"
	TypeBBolt  = "bbolt"
)

const (
	defaultArticleTTL      = 5 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend. "none" keeps snapshots in
// memory but never reports an article as seen.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", TypeNone, "disabled":
		return newMemoryStore(opts, false), nil
	case TypeMemory:
		return newMemoryStore(opts, true), nil
	case TypeBBolt:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		store, err := openBolt(path, opts)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

// ArticleKey scopes an article id to its feed.
func ArticleKey(feedID, articleID string) string {
	return feedID + "/" + articleID
}

func normalizeOptions(opts Options) Options {
	if opts.ArticleTTL <= 0 {
		opts.ArticleTTL = defaultArticleTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

func cloneSnapshot(s Snapshot) Snapshot {
	s.Articles = append([]domain.Article(nil), s.Articles...)
	return s
}
