package providers

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-news-curator/internal/domain"
)

const defaultMaxSitemaps = 10

// googleNewsFetcher implements Fetcher for Google News sitemap providers.
// Sitemap indexes are followed breadth-first up to max_sitemaps documents.
type googleNewsFetcher struct {
	client HTTPClient
	now    func() time.Time
}

// NewGoogleNewsFetcher builds a fetcher for Google News sitemaps.
func NewGoogleNewsFetcher(client HTTPClient) Fetcher {
	return newGoogleNewsFetcherWithClock(client, time.Now)
}

func newGoogleNewsFetcherWithClock(client HTTPClient, now func() time.Time) *googleNewsFetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	if now == nil {
		now = time.Now
	}
	return &googleNewsFetcher{client: client, now: now}
}

func (f *googleNewsFetcher) ID() string {
	return ProviderTypeGoogleNews
}

func (f *googleNewsFetcher) Fetch(ctx context.Context, cfg Provider) ([]domain.Article, error) {
	if !strings.EqualFold(cfg.Type, ProviderTypeGoogleNews) {
		return nil, fmt.Errorf("google news fetcher received incompatible provider type %q", cfg.Type)
	}
	if strings.TrimSpace(cfg.SourceURL) == "" {
		return nil, fmt.Errorf("provider %q source_url is empty", cfg.ID)
	}

	root := cfg.SourceURL
	if ConfigBool(cfg, ConfigDatedQueryKey) {
		dated, err := datedSourceURL(root, f.now(), ConfigString(cfg, ConfigTimezoneKey, ""))
		if err != nil {
			return nil, err
		}
		root = dated
	}

	urls, err := f.fetchGoogleNewsURLs(ctx, cfg, root, Headers(cfg), nil)
	if err != nil {
		return nil, err
	}

	articles := buildArticlesFromSitemap(cfg, urls)
	if len(articles) == 0 {
		return nil, fmt.Errorf("%s sitemap returned no records", cfg.ID)
	}
	return articles, nil
}

// fetchGoogleNewsURLs downloads root and, when it is a sitemap index, every
// referenced sitemap, returning the flattened url entries.
func (f *googleNewsFetcher) fetchGoogleNewsURLs(ctx context.Context, cfg Provider, root string, headers map[string]string, seen map[string]struct{}) ([]googleNewsURL, error) {
	if seen == nil {
		seen = make(map[string]struct{})
	}
	maxDocs := ConfigInt(cfg, ConfigMaxSitemapsKey, defaultMaxSitemaps)

	var out []googleNewsURL
	pending := []string{root}
	fetched := 0
	for len(pending) > 0 && fetched < maxDocs {
		next := pending[0]
		pending = pending[1:]
		if _, dup := seen[next]; dup {
			continue
		}
		seen[next] = struct{}{}

		if fetched > 0 {
			if err := waitDelay(ctx, time.Duration(cfg.RequestDelayMs)*time.Millisecond); err != nil {
				return nil, err
			}
		}
		raw, err := fetchSitemap(ctx, f.client, next, cfg.ID, headers)
		if err != nil {
			return nil, err
		}
		fetched++

		doc, err := parseSitemapDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("decode google news sitemap: %w", err)
		}
		if doc.isIndex() {
			pending = append(pending, doc.childSitemaps()...)
			continue
		}
		out = append(out, doc.URLs...)
	}

	return out, nil
}

func fetchSitemap(ctx context.Context, client HTTPClient, url, providerID string, headers map[string]string) ([]byte, error) {
	return fetchBody(ctx, client, url, providerID, headers)
}

type sitemapDocument struct {
	XMLName  xml.Name
	URLs     []googleNewsURL `xml:"url"`
	Sitemaps []sitemapRef    `xml:"sitemap"`
}

func (d sitemapDocument) isIndex() bool {
	return strings.EqualFold(d.XMLName.Local, "sitemapindex")
}

func (d sitemapDocument) childSitemaps() []string {
	out := make([]string, 0, len(d.Sitemaps))
	for _, s := range d.Sitemaps {
		if loc := strings.TrimSpace(s.Loc); loc != "" {
			out = append(out, loc)
		}
	}
	return out
}

type sitemapRef struct {
	Loc string `xml:"loc"`
}

type googleNewsURL struct {
	Loc    string         `xml:"loc"`
	News   googleNewsMeta `xml:"news"`
	Images []sitemapImage `xml:"image"`
}

type googleNewsMeta struct {
	Publication     googleNewsPublication `xml:"publication"`
	PublicationDate string                `xml:"publication_date"`
	Title           string                `xml:"title"`
	Keywords        string                `xml:"keywords"`
}

type googleNewsPublication struct {
	Name     string `xml:"name"`
	Language string `xml:"language"`
}

type sitemapImage struct {
	Loc     string `xml:"loc"`
	Caption string `xml:"caption"`
}

func parseSitemapDocument(data []byte) (sitemapDocument, error) {
	var doc sitemapDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return sitemapDocument{}, err
	}
	return doc, nil
}

func parseGoogleNewsSitemap(data []byte) ([]googleNewsURL, error) {
	doc, err := parseSitemapDocument(data)
	if err != nil {
		return nil, err
	}
	return doc.URLs, nil
}

func parseSitemapIndex(data []byte) ([]string, error) {
	doc, err := parseSitemapDocument(data)
	if err != nil {
		return nil, err
	}
	return doc.childSitemaps(), nil
}

func buildArticlesFromSitemap(cfg Provider, urls []googleNewsURL) []domain.Article {
	articles := make([]domain.Article, 0, len(urls))
	for _, entry := range urls {
		loc := strings.TrimSpace(entry.Loc)
		if loc == "" {
			continue
		}

		title := strings.TrimSpace(entry.News.Title)
		if title == "" {
			title = loc
		}

		sourceName := strings.TrimSpace(entry.News.Publication.Name)
		if sourceName == "" {
			sourceName = cfg.Name
		}

		art := domain.Article{
			ID:          hashURL(loc),
			ProviderID:  cfg.ID,
			Title:       title,
			URL:         loc,
			PublishedAt: optionalTime(parsePublicationDate(entry.News.PublicationDate)),
			Keywords:    parseKeywords(entry.News.Keywords),
			Source:      &domain.Source{ID: optionalString(cfg.ID), Name: optionalString(sourceName)},
		}
		for _, img := range entry.Images {
			if u := strings.TrimSpace(img.Loc); u != "" {
				art.ImageURL = &u
				break
			}
		}
		articles = append(articles, art)
	}
	return articles
}

func parseKeywords(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if kw := strings.TrimSpace(p); kw != "" {
			out = append(out, kw)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parsePublicationDate(raw string) time.Time {
	return parseTime(raw)
}

// datedSourceURL appends yyyy/mm/dd query parameters for sitemaps that are
// partitioned by day. The date is taken in tz (IST when empty).
func datedSourceURL(raw string, now time.Time, tz string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse dated source_url: %w", err)
	}

	loc := time.FixedZone("IST", 5*60*60+30*60)
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return "", fmt.Errorf("load timezone %q: %w", tz, err)
		}
		loc = l
	}

	y, m, d := now.In(loc).Date()

	q := parsed.Query()
	q.Set("yyyy", fmt.Sprintf("%04d", y))
	q.Set("mm", fmt.Sprintf("%02d", int(m)))
	q.Set("dd", fmt.Sprintf("%02d", d))
	parsed.RawQuery = q.Encode()

	return parsed.String(), nil
}
