package providers

import (
	"context"
	"errors"
	"sync"

	"github.com/samvad-hq/samvad-news-curator/pkg/httpclient"
)

// fakeResponse lets us stub the httpclient.Client interface.
type fakeResponse struct {
	body       []byte
	statusCode int
	headers    map[string]string
}

func (f fakeResponse) Body() []byte             { return f.body }
func (f fakeResponse) StatusCode() int          { return f.statusCode }
func (f fakeResponse) Header(key string) string { return f.headers[key] }

// fakeHTTPClient returns canned responses per URL to avoid network calls.
type fakeHTTPClient struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	calls     []string
	headers   []map[string]string
}

func (f *fakeHTTPClient) Get(_ context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, url)
	f.headers = append(f.headers, headers)
	resp, ok := f.responses[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return resp, nil
}

func (f *fakeHTTPClient) Head(ctx context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	return f.Get(ctx, url, headers)
}

func (f *fakeHTTPClient) lastHeaders() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.headers) == 0 {
		return nil
	}
	return f.headers[len(f.headers)-1]
}

func okResponse(body string) fakeResponse {
	return fakeResponse{body: []byte(body), statusCode: 200}
}
