package providers

import (
	"context"
	"testing"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>Example Wire</title>
    <link>https://wire.example</link>
    <description>Wire stories</description>
    <item>
      <title>Rover lands</title>
      <link>https://wire.example/rover</link>
      <guid>rover-1</guid>
      <description>The rover touched down.</description>
      <pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate>
      <enclosure url="https://wire.example/rover.jpg" length="1200" type="image/jpeg"/>
    </item>
    <item>
      <title>Media only</title>
      <link>https://wire.example/media</link>
      <media:content url="https://wire.example/media.png" medium="image"/>
    </item>
    <item>
      <title>No link</title>
    </item>
  </channel>
</rss>`

func TestRSSFetcher(t *testing.T) {
	client := &fakeHTTPClient{
		responses: map[string]fakeResponse{
			"https://wire.example/feed": okResponse(sampleRSS),
		},
	}

	articles, err := NewRSSFetcher(client).Fetch(context.Background(), Provider{
		ID:        "wire",
		Name:      "Wire Feed",
		Type:      ProviderTypeRSS,
		SourceURL: "https://wire.example/feed",
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 linked items, got %d", len(articles))
	}

	rover := articles[0]
	if rover.ID != "rover-1" || rover.Title != "Rover lands" {
		t.Errorf("unexpected rover article %+v", rover)
	}
	if rover.ImageURLValue() != "https://wire.example/rover.jpg" {
		t.Errorf("ImageURL = %s", rover.ImageURLValue())
	}
	if rover.PublishedAt == nil || rover.Description == nil {
		t.Errorf("expected publishedAt and description to be set")
	}
	if rover.SourceName() != "Example Wire" {
		t.Errorf("Source name = %q", rover.SourceName())
	}

	media := articles[1]
	if media.ImageURLValue() != "https://wire.example/media.png" {
		t.Errorf("media ImageURL = %s", media.ImageURLValue())
	}
	if media.Description != nil || media.PublishedAt != nil {
		t.Errorf("expected missing description and date to stay absent")
	}
}

func TestRSSFetcherRejectsGarbage(t *testing.T) {
	client := &fakeHTTPClient{
		responses: map[string]fakeResponse{
			"https://wire.example/feed": okResponse("not a feed"),
		},
	}
	_, err := NewRSSFetcher(client).Fetch(context.Background(), Provider{
		ID:        "wire",
		Type:      ProviderTypeRSS,
		SourceURL: "https://wire.example/feed",
	})
	if err == nil {
		t.Fatal("expected parse error")
	}
}
