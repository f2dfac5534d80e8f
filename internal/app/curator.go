package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samvad-hq/samvad-news-curator/internal/config"
	"github.com/samvad-hq/samvad-news-curator/internal/crawler"
	"github.com/samvad-hq/samvad-news-curator/internal/logger"
	"github.com/samvad-hq/samvad-news-curator/internal/server"
	"github.com/samvad-hq/samvad-news-curator/internal/storage"
	"github.com/samvad-hq/samvad-news-curator/pkg/curation"
	"github.com/samvad-hq/samvad-news-curator/pkg/imageprobe"
	"github.com/samvad-hq/samvad-news-curator/pkg/providers"
	"github.com/samvad-hq/samvad-news-curator/pkg/publishers"
)

// Curator represents the curation runtime. It runs one curation pass per
// crawl interval across all feeds and serves the latest results over HTTP.
type Curator struct {
	cfg           *config.Config
	providerReg   *providers.Registry
	fanout        *publishers.Fanout
	crawlService  *crawler.Service
	server        *server.Server
	crawlInterval time.Duration
	log           logger.Logger
	store         storage.Store
}

// NewCurator builds a curator runtime from config files.
func NewCurator(ctx context.Context, cfg *config.Config, log logger.Logger) (*Curator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	providerReg, err := providers.LoadRegistry(cfg.ProvidersFile)
	if err != nil {
		return nil, fmt.Errorf("load providers registry: %w", err)
	}
	providerList := providerReg.All()
	providerIDs := make([]string, 0, len(providerList))
	for _, p := range providerList {
		providerIDs = append(providerIDs, p.ID)
	}
	log.InfoObj("providers registry loaded", "providers_meta", map[string]any{
		"count": len(providerIDs),
		"ids":   providerIDs,
	})

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	storeOpts := storage.Options{
		ArticleTTL:      cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"article_ttl_seconds":      int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	prober := imageprobe.New(nil, imageprobe.Options{
		Timeout:   cfg.ProbeTimeout,
		UserAgent: cfg.ProbeUserAgent,
		HostRPS:   cfg.ProbeHostRPS,
		HostBurst: cfg.ProbeHostBurst,
	})
	log.InfoObj("curation configured", "curation_config", map[string]any{
		"limit":            cfg.CurationLimit,
		"concurrency":      cfg.CurationConcurrency,
		"probe_timeout_ms": cfg.ProbeTimeout.Milliseconds(),
		"enrich_missing":   cfg.EnrichMissingMetadata,
	})

	deps := crawler.Deps{
		Registry:  providers.DefaultFetcherRegistry(nil),
		Curator:   curation.New(prober, curation.Options{Concurrency: cfg.CurationConcurrency}, log),
		Deduper:   store,
		Snapshots: store,
		Log:       log,
		Limit:     cfg.CurationLimit,
	}
	if cfg.EnrichMissingMetadata {
		deps.Scraper = crawler.NewScraper(nil, log)
	}
	if fanout.Size() > 0 {
		deps.Publisher = fanout
	}

	return &Curator{
		cfg:           cfg,
		providerReg:   providerReg,
		fanout:        fanout,
		crawlService:  crawler.NewService(deps),
		server:        server.New(providerList, store, log),
		crawlInterval: cfg.CrawlInterval,
		log:           log,
		store:         store,
	}, nil
}

// buildFanout builds the enabled publishers. Having none is allowed: curated
// snapshots are still served over HTTP.
func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		log.WarnObj("no publishers enabled; curated articles are only served over http", "publishers_file", cfg.PublishersFile)
		return publishers.NewFanout(nil), nil
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Run serves HTTP and runs the curation loop until the context is cancelled.
func (c *Curator) Run(ctx context.Context) error {
	if c == nil || c.crawlService == nil {
		return fmt.Errorf("curator is not initialized")
	}
	defer c.close()

	g, gctx := errgroup.WithContext(ctx)
	if c.cfg.HTTPAddr != "" {
		g.Go(func() error {
			return c.server.ListenAndServe(gctx, c.cfg.HTTPAddr)
		})
	}
	g.Go(func() error {
		return c.loop(gctx)
	})
	return g.Wait()
}

func (c *Curator) loop(ctx context.Context) error {
	providers := c.providerReg.All()

	c.log.InfoObj("curation loop starting", "curator_state", map[string]any{
		"providers_count":  len(providers),
		"publishers_count": c.fanout.Size(),
		"crawl_interval":   c.crawlInterval.String(),
	})

	if err := c.RunOnce(ctx); err != nil {
		c.log.ErrorObj("initial curation failed", "error", err.Error())
	}

	ticker := time.NewTicker(c.crawlInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.InfoObj("curation loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := c.RunOnce(ctx); err != nil {
				c.log.ErrorObj("scheduled curation failed", "error", err.Error())
			}
		}
	}
}

// RunOnce performs a single curation pass across all feeds.
func (c *Curator) RunOnce(ctx context.Context) error {
	providers := c.providerReg.All()
	start := time.Now()
	c.log.InfoObj("curation pass started", "crawl_meta", map[string]any{
		"providers_count": len(providers),
		"started_at":      start.UTC(),
	})
	if err := c.crawlService.Run(ctx, providers); err != nil {
		return err
	}
	c.log.InfoObj("curation pass completed", "crawl_meta", map[string]any{
		"providers_count": len(providers),
		"elapsed_ms":      time.Since(start).Milliseconds(),
	})
	return nil
}

// close releases publishers and the storage backend, logging any errors.
func (c *Curator) close() {
	if c.fanout != nil {
		if err := c.fanout.Close(); err != nil {
			c.log.ErrorObj("publisher close failed", "error", err.Error())
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.log.ErrorObj("storage close failed", "error", err.Error())
		}
	}
}
