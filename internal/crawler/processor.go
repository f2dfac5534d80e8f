package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-news-curator/internal/domain"
	"github.com/samvad-hq/samvad-news-curator/internal/logger"
	"github.com/samvad-hq/samvad-news-curator/internal/metrics"
	"github.com/samvad-hq/samvad-news-curator/internal/storage"
	"github.com/samvad-hq/samvad-news-curator/pkg/curation"
	"github.com/samvad-hq/samvad-news-curator/pkg/providers"
	"github.com/samvad-hq/samvad-news-curator/pkg/publishers"
)

// Deps are the collaborators of a curation pass. Scraper, Publisher, Deduper
// and Snapshots are optional.
type Deps struct {
	Registry  providers.FetcherRegistry
	Scraper   ArticleScraper
	Curator   Curator
	Publisher EventPublisher
	Deduper   Deduper
	Snapshots storage.SnapshotStore
	Log       logger.Logger
	// Limit applies to feeds without their own limit.
	Limit int
}

// ProviderProcessor runs the fetch, enrich, curate, snapshot and publish steps for one feed.
type ProviderProcessor struct {
	registry  providers.FetcherRegistry
	scraper   ArticleScraper
	curator   Curator
	publisher EventPublisher
	deduper   Deduper
	snapshots storage.SnapshotStore
	log       logger.Logger
	limit     int
	now       func() time.Time
}

// NewProviderProcessor wires a processor from deps.
func NewProviderProcessor(deps Deps) *ProviderProcessor {
	limit := deps.Limit
	if limit < 0 {
		limit = 0
	}
	return &ProviderProcessor{
		registry:  deps.Registry,
		scraper:   deps.Scraper,
		curator:   deps.Curator,
		publisher: deps.Publisher,
		deduper:   deps.Deduper,
		snapshots: deps.Snapshots,
		log:       logger.Ensure(deps.Log),
		limit:     limit,
		now:       time.Now,
	}
}

// Process curates a single feed. index is the feed's position in the pass
// and only appears in logs.
func (p *ProviderProcessor) Process(ctx context.Context, cfg providers.Provider, index int) error {
	if p.registry == nil || p.curator == nil {
		return fmt.Errorf("processor for provider %s is not initialized", cfg.ID)
	}

	fetcher, err := p.registry.FetcherFor(cfg)
	if err != nil {
		return fmt.Errorf("resolve fetcher for provider %s: %w", cfg.ID, err)
	}

	candidates, err := fetcher.Fetch(ctx, cfg)
	if err != nil {
		return fmt.Errorf("fetch provider %s: %w", cfg.ID, err)
	}

	var enrich curation.EnrichFunc
	if p.scraper != nil {
		enrich = func(ctx context.Context, a domain.Article) domain.Article {
			return p.scraper.EnrichArticle(ctx, cfg, a)
		}
	}

	limit := cfg.CurationLimit(p.limit)
	curated := p.curator.CurateEnriched(ctx, candidates, limit, enrich)
	metrics.ObserveCuration(cfg.ID, len(candidates), len(curated))
	curatedAt := p.now()

	var errs []error
	if err := p.saveSnapshot(cfg, curatedAt, len(candidates), limit, curated); err != nil {
		errs = append(errs, err)
	}

	fresh := p.filterNewArticles(cfg, curated)
	published, err := p.publish(ctx, cfg, fresh, curatedAt)
	if err != nil {
		errs = append(errs, err)
	}

	p.log.InfoObj("provider curation completed", "provider_result", map[string]any{
		"provider_id":    cfg.ID,
		"provider_index": index,
		"candidates":     len(candidates),
		"curated":        len(curated),
		"limit":          limit,
		"fresh":          len(fresh),
		"published":      published,
	})
	return errors.Join(errs...)
}

func (p *ProviderProcessor) saveSnapshot(cfg providers.Provider, at time.Time, candidates, limit int, curated []domain.Article) error {
	if p.snapshots == nil {
		return nil
	}
	err := p.snapshots.SaveSnapshot(storage.Snapshot{
		FeedID:     cfg.ID,
		FeedName:   cfg.Name,
		CuratedAt:  at.UTC(),
		Candidates: candidates,
		Limit:      limit,
		Articles:   curated,
	})
	if err != nil {
		return fmt.Errorf("save snapshot for provider %s: %w", cfg.ID, err)
	}
	return nil
}

// filterNewArticles drops articles that were already published. Lookup
// failures keep the article so a flaky store never hides news.
func (p *ProviderProcessor) filterNewArticles(cfg providers.Provider, articles []domain.Article) []domain.Article {
	if p.deduper == nil {
		return articles
	}

	out := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		seen, err := p.deduper.SeenArticle(storage.ArticleKey(cfg.ID, a.ID))
		if err != nil {
			p.log.WarnObj("dedupe lookup failed", "dedupe_error", map[string]any{
				"provider_id": cfg.ID,
				"article_id":  a.ID,
				"error":       err.Error(),
			})
			out = append(out, a)
			continue
		}
		if !seen {
			out = append(out, a)
		}
	}
	return out
}

// publish emits one event per article. An article is marked as published
// once at least one sink accepted it.
func (p *ProviderProcessor) publish(ctx context.Context, cfg providers.Provider, articles []domain.Article, curatedAt time.Time) (int, error) {
	if p.publisher == nil || len(articles) == 0 {
		return 0, nil
	}

	var errs []error
	published := 0
	for _, a := range articles {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		evt := publishers.NewEvent(cfg.ID, cfg.Name, a, curatedAt)
		delivered, err := p.publisher.Publish(ctx, evt)
		if err != nil {
			errs = append(errs, fmt.Errorf("publish article %s: %w", a.ID, err))
		}
		if delivered == 0 {
			continue
		}
		published++

		if p.deduper != nil {
			if err := p.deduper.MarkArticle(storage.ArticleKey(cfg.ID, a.ID)); err != nil {
				errs = append(errs, fmt.Errorf("mark article %s: %w", a.ID, err))
			}
		}
	}
	return published, errors.Join(errs...)
}

