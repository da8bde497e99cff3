package crawler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-index-harvester/internal/domain"
	"github.com/samvad-hq/samvad-index-harvester/pkg/httpclient"
	"github.com/samvad-hq/samvad-index-harvester/pkg/listing"
)

// stubHTTPResponse implements httpclient.Response.
type stubHTTPResponse struct {
	statusCode int
	header     http.Header
}

func (s stubHTTPResponse) Body() []byte        { return nil }
func (s stubHTTPResponse) StatusCode() int     { return s.statusCode }
func (s stubHTTPResponse) Header() http.Header { return s.header }

// stubHTTPClient answers HEAD requests per URL.
type stubHTTPClient struct {
	responses map[string]httpclient.Response
	heads     []string
}

func (s *stubHTTPClient) Get(context.Context, string, map[string]string) (httpclient.Response, error) {
	return nil, errors.New("unexpected GET")
}

func (s *stubHTTPClient) Head(_ context.Context, url string, _ map[string]string) (httpclient.Response, error) {
	s.heads = append(s.heads, url)
	resp, ok := s.responses[url]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return resp, nil
}

func TestHeadEnricherFillsSizeAndModTime(t *testing.T) {
	client := &stubHTTPClient{responses: map[string]httpclient.Response{
		"https://example.com/data/a.hdf": stubHTTPResponse{statusCode: 200, header: http.Header{
			"Content-Length": []string{"1234"},
			"Last-Modified":  []string{"Wed, 21 Oct 2015 07:28:00 GMT"},
		}},
		"https://example.com/data/b.hdf": stubHTTPResponse{statusCode: 404},
	}}
	enricher := NewHeadEnricher(client, nil)
	site := listing.Site{ID: "s", Type: listing.SiteTypeHTTP, RequestDelayMs: 1}
	entries := []domain.Entry{
		{ID: "a", URL: "https://example.com/data/a.hdf"},
		{ID: "b", URL: "https://example.com/data/b.hdf"},
		{ID: "sub", URL: "https://example.com/data/sub/", IsDir: true},
		{ID: "c", URL: "https://example.com/data/c.hdf"},
	}

	out := enricher.Enrich(context.Background(), site, entries)
	if len(out) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(out))
	}
	want := time.Date(2015, 10, 21, 7, 28, 0, 0, time.UTC)
	if out[0].Size != 1234 || !out[0].ModifiedAt.Equal(want) {
		t.Fatalf("unexpected enrich result %+v", out[0])
	}
	if out[1].Size != 0 || out[3].Size != 0 {
		t.Fatalf("failed lookups should keep entries untouched")
	}
	if len(client.heads) != 3 {
		t.Fatalf("directories must not be requested, heads=%v", client.heads)
	}
}

func TestHeadEnricherIgnoresFTPSites(t *testing.T) {
	client := &stubHTTPClient{}
	entries := []domain.Entry{{ID: "a", URL: "ftp://example.com/a"}}

	out := NewHeadEnricher(client, nil).Enrich(context.Background(), listing.Site{Type: listing.SiteTypeFTP}, entries)
	if len(out) != 1 || len(client.heads) != 0 {
		t.Fatalf("ftp sites should pass through, heads=%v", client.heads)
	}
}

func TestHeadEnricherStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &stubHTTPClient{}
	entries := []domain.Entry{{ID: "a"}, {ID: "b"}}
	out := NewHeadEnricher(client, nil).Enrich(ctx, listing.Site{Type: listing.SiteTypeHTTP}, entries)
	if len(out) != 0 || len(client.heads) != 0 {
		t.Fatalf("expected no work on cancelled context, got %d entries", len(out))
	}
}
