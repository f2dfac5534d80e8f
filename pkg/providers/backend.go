package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/samvad-hq/samvad-news-curator/internal/domain"
)

const (
	defaultBackendPageSize = 10

	// ConfigArticleBaseURLKey is the site root used to build article links from slugs.
	ConfigArticleBaseURLKey = "article_base_url"
)

// backendPost is a post as served by the site's content API.
type backendPost struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Slug        string           `json:"slug"`
	Excerpt     *string          `json:"excerpt"`
	Content     *string          `json:"content"`
	CoverImage  *string          `json:"coverImage"`
	PublishedAt *string          `json:"publishedAt"`
	UpdatedAt   *string          `json:"updatedAt"`
	Category    *backendCategory `json:"category"`
	Author      *backendAuthor   `json:"author"`
}

type backendCategory struct {
	Name *string `json:"name"`
	Slug string  `json:"slug"`
}

type backendAuthor struct {
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatarUrl"`
}

type backendPage struct {
	Data []backendPost `json:"data"`
	Meta struct {
		Total    int `json:"total"`
		Page     int `json:"page"`
		LastPage int `json:"lastPage"`
	} `json:"meta"`
}

// backendFetcher reads posts from the content API, either the trending list
// or one category page.
type backendFetcher struct {
	client HTTPClient
	typ    string
}

// NewBackendTrendingFetcher builds a fetcher for GET {source_url}/posts/trending.
func NewBackendTrendingFetcher(client HTTPClient) Fetcher {
	return newBackendFetcher(client, ProviderTypeBackendTrending)
}

// NewBackendCategoryFetcher builds a fetcher for GET {source_url}/posts?category=...
func NewBackendCategoryFetcher(client HTTPClient) Fetcher {
	return newBackendFetcher(client, ProviderTypeBackendCategory)
}

func newBackendFetcher(client HTTPClient, typ string) *backendFetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &backendFetcher{client: client, typ: typ}
}

func (f *backendFetcher) ID() string { return f.typ }

func (f *backendFetcher) Fetch(ctx context.Context, cfg Provider) ([]domain.Article, error) {
	if !strings.EqualFold(cfg.Type, f.typ) {
		return nil, fmt.Errorf("%s fetcher received incompatible provider type %q", f.typ, cfg.Type)
	}

	endpoint, err := f.endpoint(cfg)
	if err != nil {
		return nil, err
	}

	body, err := fetchBody(ctx, f.client, endpoint, cfg.ID, f.headers(cfg))
	if err != nil {
		return nil, err
	}

	posts, err := decodeBackendPosts(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s posts: %w", cfg.ID, err)
	}

	base := ConfigString(cfg, ConfigArticleBaseURLKey, cfg.SourceURL)
	articles := make([]domain.Article, 0, len(posts))
	for _, p := range posts {
		articles = append(articles, p.toArticle(cfg.ID, base))
	}
	return articles, nil
}

func (f *backendFetcher) headers(cfg Provider) map[string]string {
	headers := Headers(cfg)
	if _, ok := headers["Accept"]; !ok {
		headers["Accept"] = "application/json"
	}
	return headers
}

func (f *backendFetcher) endpoint(cfg Provider) (string, error) {
	base := strings.TrimRight(cfg.SourceURL, "/")
	if base == "" {
		return "", fmt.Errorf("provider %q source_url is empty", cfg.ID)
	}

	if f.typ == ProviderTypeBackendTrending {
		return base + "/posts/trending", nil
	}

	category, err := requireString(cfg, ConfigCategoryKey)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("category", category)
	q.Set("page", "1")
	q.Set("limit", strconv.Itoa(ConfigInt(cfg, ConfigPageSizeKey, defaultBackendPageSize)))
	return base + "/posts?" + q.Encode(), nil
}

// decodeBackendPosts accepts either a bare array or a paginated {data: [...]} envelope.
func decodeBackendPosts(body []byte) ([]backendPost, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var posts []backendPost
		if err := json.Unmarshal(trimmed, &posts); err != nil {
			return nil, err
		}
		return posts, nil
	}

	var page backendPage
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, err
	}
	return page.Data, nil
}

func (p backendPost) toArticle(providerID, base string) domain.Article {
	link := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(p.Slug, "/")
	id := strings.TrimSpace(p.ID)
	if id == "" {
		id = hashURL(link)
	}

	art := domain.Article{
		ID:          id,
		ProviderID:  providerID,
		Title:       p.Title,
		URL:         link,
		Description: p.Excerpt,
		ImageURL:    p.CoverImage,
		Content:     p.Content,
	}
	if p.PublishedAt != nil {
		art.PublishedAt = optionalTime(parseTime(*p.PublishedAt))
	}
	if p.Category != nil {
		art.Source = &domain.Source{ID: optionalString(p.Category.Slug), Name: p.Category.Name}
	}
	if p.Author != nil {
		art.Author = optionalString(p.Author.FullName)
	}
	return art
}
