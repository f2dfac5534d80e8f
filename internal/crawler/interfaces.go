package crawler

import (
	"context"

	"github.com/samvad-hq/samvad-news-curator/internal/domain"
	"github.com/samvad-hq/samvad-news-curator/pkg/curation"
	"github.com/samvad-hq/samvad-news-curator/pkg/providers"
	"github.com/samvad-hq/samvad-news-curator/pkg/publishers"
)

// ArticleScraper fills in metadata (e.g., OG tags) that a feed left out.
type ArticleScraper interface {
	EnrichArticle(ctx context.Context, cfg providers.Provider, art domain.Article) domain.Article
}

// Curator selects the publishable subset of a feed's candidates, enriching
// only the candidates it considers.
type Curator interface {
	CurateEnriched(ctx context.Context, candidates []domain.Article, limit int, enrich curation.EnrichFunc) []domain.Article
}

// EventPublisher publishes curated articles downstream. It returns how many
// sinks accepted the event.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Deduper remembers which articles were already published.
type Deduper interface {
	SeenArticle(key string) (bool, error)
	MarkArticle(key string) error
}
