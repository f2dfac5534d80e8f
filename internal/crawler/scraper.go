package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/samvad-hq/samvad-news-curator/internal/domain"
	"github.com/samvad-hq/samvad-news-curator/internal/logger"
	"github.com/samvad-hq/samvad-news-curator/pkg/httpclient"
	"github.com/samvad-hq/samvad-news-curator/pkg/providers"
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
)

// Scraper fetches article pages and fills gaps from OG tags. Page fetches
// for one feed are spaced by the feed's request delay, whichever worker
// issues them.
type Scraper struct {
	client httpclient.Client
	log    logger.Logger

	mu       sync.Mutex
	throttle map[string]*rate.Limiter
}

// NewScraper constructs a scraper with the provided HTTP client (or default).
func NewScraper(client httpclient.Client, log logger.Logger) *Scraper {
	if client == nil {
		client = providers.DefaultHTTPClient()
	}
	return &Scraper{
		client:   client,
		log:      logger.Ensure(log),
		throttle: make(map[string]*rate.Limiter),
	}
}

// EnrichArticle visits the page of an article missing an image, description
// or title and merges OG metadata into the empty fields only. Complete
// articles are returned untouched without a request, as is the original
// article on any failure.
func (s *Scraper) EnrichArticle(ctx context.Context, cfg providers.Provider, art domain.Article) domain.Article {
	if !needsEnrichment(art) {
		return art
	}
	if err := s.limiterFor(cfg).Wait(ctx); err != nil {
		return art
	}

	enriched, err := s.fetchAndParse(ctx, cfg, art)
	if err != nil {
		s.log.WarnObj("article metadata scrape failed", "metadata_error", map[string]any{
			"provider_id": cfg.ID,
			"url":         art.URL,
			"error":       err.Error(),
		})
		return art
	}
	return enriched
}

// limiterFor returns the feed's page-fetch throttle: one request per
// request delay, no burst.
func (s *Scraper) limiterFor(cfg providers.Provider) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.throttle[cfg.ID]
	if !ok {
		l = rate.NewLimiter(rate.Every(cfg.RequestDelay()), 1)
		s.throttle[cfg.ID] = l
	}
	return l
}

func needsEnrichment(a domain.Article) bool {
	if strings.TrimSpace(a.URL) == "" {
		return false
	}
	return a.ImageURLValue() == "" || a.Description == nil || strings.TrimSpace(a.Title) == ""
}

func (s *Scraper) fetchAndParse(ctx context.Context, cfg providers.Provider, art domain.Article) (domain.Article, error) {
	headers := providers.Headers(cfg)

	resp, err := s.client.Get(ctx, art.URL, headers)
	if err != nil {
		return art, fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() != 200 {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return art, fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet)
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	meta, err := parseMeta(body)
	if err != nil {
		return art, err
	}
	return mergeMeta(art, meta), nil
}

// mergeMeta fills only the fields the feed left empty.
func mergeMeta(art domain.Article, meta pageMeta) domain.Article {
	updated := art
	if strings.TrimSpace(updated.Title) == "" || updated.Title == updated.URL {
		if meta.Title != "" {
			updated.Title = meta.Title
		}
	}
	if updated.Description == nil && meta.Description != "" {
		updated.Description = domain.StringPtr(meta.Description)
	}
	if updated.ImageURLValue() == "" {
		if img := resolveURL(meta.ImageURL, art.URL); img != "" {
			updated.ImageURL = domain.StringPtr(img)
		}
	}
	return updated
}

func parseMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	pm := pageMeta{}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	pm.Title = firstNonEmpty(
		extract(`meta[property="og:title"]`),
		strings.TrimSpace(doc.Find("title").First().Text()),
	)
	pm.Description = firstNonEmpty(
		extract(`meta[property="og:description"]`),
		extract(`meta[name="description"]`),
	)
	pm.ImageURL = firstNonEmpty(
		extract(`meta[property="og:image"]`),
		extract(`meta[name="twitter:image"]`),
	)

	return pm, nil
}

type pageMeta struct {
	Title       string
	Description string
	ImageURL    string
}

// resolveURL makes raw absolute against base. Unparseable input yields "".
func resolveURL(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return ""
	}
	return b.ResolveReference(ref).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
