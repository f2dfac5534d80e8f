package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-news-curator/internal/domain"
)

func TestReadCandidatesAcceptsArrayAndEnvelope(t *testing.T) {
	list, err := readCandidates(strings.NewReader(`[{"id":"a","title":"A"},{"id":"b","title":"B"}]`))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[1].ID)

	env, err := readCandidates(strings.NewReader(`{"status":"ok","articles":[{"title":"C","urlToImage":"https://x/c.jpg"}]}`))
	require.NoError(t, err)
	require.Len(t, env, 1)
	assert.Equal(t, "https://x/c.jpg", env[0].ImageURLValue())
}

func TestReadCandidatesEmptyAndInvalid(t *testing.T) {
	list, err := readCandidates(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = readCandidates(strings.NewReader(`{"articles":`))
	assert.Error(t, err)
}

func TestWriteArticlesPrintsEmptyArrayForNoResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeArticles(&buf, nil))
	assert.JSONEq(t, `[]`, buf.String())
}

func TestCurateCommandPrintsCuratedArticles(t *testing.T) {
	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok.jpg" {
			w.Header().Set("Content-Type", "image/jpeg")
			return
		}
		http.NotFound(w, r)
	}))
	defer images.Close()

	candidate := func(id, img string) map[string]any {
		return map[string]any{
			"id":          id,
			"title":       "Story " + id,
			"url":         "https://news.example.com/" + id,
			"description": "desc",
			"urlToImage":  images.URL + img,
			"publishedAt": "2024-03-01T10:00:00Z",
			"source":      map[string]any{"id": nil, "name": "Example"},
		}
	}
	payload, err := json.Marshal(map[string]any{"articles": []any{
		candidate("one", "/ok.jpg"),
		candidate("two", "/missing.jpg"),
		candidate("three", "/ok.jpg"),
	}})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "candidates.json")
	require.NoError(t, os.WriteFile(path, payload, 0o600))

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"curate", "--file", path, "--limit", "5", "--concurrency", "2"})
	require.NoError(t, cmd.Execute())

	var curated []domain.Article
	require.NoError(t, json.Unmarshal(out.Bytes(), &curated))
	ids := make([]string, 0, len(curated))
	for _, a := range curated {
		ids = append(ids, a.ID)
	}
	assert.ElementsMatch(t, []string{"one", "three"}, ids)
}
