package publishers

import (
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/samvad-news-curator/internal/domain"
	"github.com/samvad-hq/samvad-news-curator/pkg/articletext"
)

// Event represents one curated article published downstream.
type Event struct {
	EventID      string         `json:"event_id"`
	ProviderID   string         `json:"provider_id"`
	ProviderName string         `json:"provider_name"`
	Article      domain.Article `json:"article"`
	HeadlineTail string         `json:"headline_tail"`
	ReadingTime  string         `json:"reading_time"`
	DisplayDate  string         `json:"display_date"`
	CuratedAt    time.Time      `json:"curated_at"`
}

// NewEvent constructs an Event for the given feed + article, deriving the
// presentation fields from the article.
func NewEvent(providerID, providerName string, article domain.Article, curatedAt time.Time) Event {
	if curatedAt.IsZero() {
		curatedAt = time.Now()
	}
	content := ""
	switch {
	case article.Content != nil:
		content = *article.Content
	case article.Description != nil:
		content = *article.Description
	}

	return Event{
		EventID:      uuid.NewString(),
		ProviderID:   providerID,
		ProviderName: providerName,
		Article:      article,
		HeadlineTail: articletext.HeadlineTail(article.Title),
		ReadingTime:  articletext.ReadingTime(content),
		DisplayDate:  articletext.DisplayDate(article.PublishedAt, curatedAt),
		CuratedAt:    curatedAt.UTC(),
	}
}

// attributes are the routing attributes attached to queue/topic messages.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"event_id":    e.EventID,
		"provider_id": e.ProviderID,
		"article_id":  e.Article.ID,
	}
}
