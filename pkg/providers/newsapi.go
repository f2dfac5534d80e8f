package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/samvad-hq/samvad-news-curator/internal/domain"
)

const newsAPIStatusOK = "ok"

type newsAPIResponse struct {
	Status       string           `json:"status"`
	Code         string           `json:"code"`
	Message      string           `json:"message"`
	TotalResults int              `json:"totalResults"`
	Articles     []domain.Article `json:"articles"`
}

// newsAPIFetcher reads NewsAPI-shaped endpoints ({status, articles: [...]}).
type newsAPIFetcher struct {
	client HTTPClient
}

// NewNewsAPIFetcher builds a fetcher for NewsAPI-compatible endpoints.
func NewNewsAPIFetcher(client HTTPClient) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &newsAPIFetcher{client: client}
}

func (f *newsAPIFetcher) ID() string { return ProviderTypeNewsAPI }

func (f *newsAPIFetcher) Fetch(ctx context.Context, cfg Provider) ([]domain.Article, error) {
	if !strings.EqualFold(cfg.Type, ProviderTypeNewsAPI) {
		return nil, fmt.Errorf("newsapi fetcher received incompatible provider type %q", cfg.Type)
	}

	endpoint, err := newsAPIEndpoint(cfg)
	if err != nil {
		return nil, err
	}
	apiKey, err := requireString(cfg, ConfigAPIKeyKey)
	if err != nil {
		return nil, err
	}

	headers := Headers(cfg)
	headers["X-Api-Key"] = apiKey

	body, err := fetchBody(ctx, f.client, endpoint, cfg.ID, headers)
	if err != nil {
		return nil, err
	}

	var resp newsAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode %s articles: %w", cfg.ID, err)
	}
	if resp.Status != "" && resp.Status != newsAPIStatusOK {
		return nil, fmt.Errorf("%s returned %s: %s", cfg.ID, resp.Code, resp.Message)
	}

	out := make([]domain.Article, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		a.ProviderID = cfg.ID
		if a.ID == "" {
			a.ID = hashURL(a.URL)
		}
		out = append(out, a)
	}
	return out, nil
}

// newsAPIEndpoint adds category and pageSize from config unless the source
// URL already sets them.
func newsAPIEndpoint(cfg Provider) (string, error) {
	if strings.TrimSpace(cfg.SourceURL) == "" {
		return "", fmt.Errorf("provider %q source_url is empty", cfg.ID)
	}
	parsed, err := url.Parse(cfg.SourceURL)
	if err != nil {
		return "", fmt.Errorf("parse %s source_url: %w", cfg.ID, err)
	}

	q := parsed.Query()
	if c := ConfigString(cfg, ConfigCategoryKey, ""); c != "" && q.Get("category") == "" {
		q.Set("category", c)
	}
	if n := ConfigInt(cfg, ConfigPageSizeKey, 0); n > 0 && q.Get("pageSize") == "" {
		q.Set("pageSize", strconv.Itoa(n))
	}
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}
