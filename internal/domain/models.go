package domain

import "time"

// Domain contains core models shared by feeds, curation and publishers.

// Source identifies the outlet an article was published by.
type Source struct {
	ID   *string `json:"id"`
	Name *string `json:"name"`
}

// Article is a news item pulled from an upstream feed. Optional fields are
// pointers so that "missing" can be told apart from "empty".
type Article struct {
	ID          string     `json:"id"`
	ProviderID  string     `json:"provider_id,omitempty"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Description *string    `json:"description"`
	ImageURL    *string    `json:"urlToImage"`
	PublishedAt *time.Time `json:"publishedAt"`
	Source      *Source    `json:"source"`
	Author      *string    `json:"author,omitempty"`
	Content     *string    `json:"content,omitempty"`
	Keywords    []string   `json:"keywords,omitempty"`
}

// ImageURLValue returns the declared image URL or "" when absent.
func (a Article) ImageURLValue() string {
	if a.ImageURL == nil {
		return ""
	}
	return *a.ImageURL
}

// SourceName returns the source name or "" when absent.
func (a Article) SourceName() string {
	if a.Source == nil || a.Source.Name == nil {
		return ""
	}
	return *a.Source.Name
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time { return &t }
