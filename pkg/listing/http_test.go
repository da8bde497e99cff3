package listing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/samvad-hq/samvad-index-harvester/internal/logger"
	"github.com/samvad-hq/samvad-index-harvester/pkg/httpclient"
)

const apacheIndex = `<!DOCTYPE HTML PUBLIC "-//W3C//DTD HTML 3.2 Final//EN">
<html>
 <head><title>Index of /MOLT/MOD10A1.006</title></head>
 <body>
<h1>Index of /MOLT/MOD10A1.006</h1>
<pre><img src="/icons/blank.gif" alt="Icon "> <a href="?C=N;O=D">Name</a>                    <a href="?C=M;O=A">Last modified</a>      <a href="?C=S;O=A">Size</a>  <hr><img src="/icons/back.gif" alt="[PARENTDIR]"> <a href="/MOLT/">Parent Directory</a>                             -
<img src="/icons/folder.gif" alt="[DIR]"> <a href="2000.02.24/">2000.02.24/</a>             2016-11-03 10:15    -
<img src="/icons/folder.gif" alt="[DIR]"> <a href="2000.02.25/">2000.02.25/</a>             2016-11-03 10:15    -
<img src="/icons/unknown.gif" alt="[   ]"> <a href="readme%20first.txt">readme first.txt</a>    2016-11-03 10:15  1.2K
<img src="/icons/unknown.gif" alt="[   ]"> <a href="/MOLT/MOD10A1.006/checksums.md5">checksums.md5</a>
<a href="2000.02.24/">duplicate</a>
<a href="https://other.example.com/MOLT/MOD10A1.006/x.hdf">elsewhere</a>
<a href="#top">top</a>
<a href="mailto:lpdaac@usgs.gov">contact</a>
<a href="2000.02.24/sub/file.hdf">nested</a>
<hr></pre>
</body></html>`

// stubResponse implements httpclient.Response.
type stubResponse struct {
	body   []byte
	status int
	header http.Header
}

func (s stubResponse) Body() []byte        { return s.body }
func (s stubResponse) StatusCode() int     { return s.status }
func (s stubResponse) Header() http.Header { return s.header }

// stubClient returns a single response and records the request.
type stubClient struct {
	resp    httpclient.Response
	err     error
	url     string
	headers map[string]string
}

func (s *stubClient) Get(_ context.Context, u string, headers map[string]string) (httpclient.Response, error) {
	s.url = u
	s.headers = headers
	return s.resp, s.err
}

func (s *stubClient) Head(ctx context.Context, u string, headers map[string]string) (httpclient.Response, error) {
	return s.Get(ctx, u, headers)
}

func TestHTTPListerParsesApacheIndex(t *testing.T) {
	client := &stubClient{resp: stubResponse{body: []byte(apacheIndex), status: http.StatusOK}}
	lister := NewHTTPLister(client)

	site := Site{
		ID:        "lpdaac",
		Type:      SiteTypeHTTP,
		SourceURL: "https://e4ftl01.cr.usgs.gov/MOLT/MOD10A1.006/",
		Config:    map[string]any{ConfigUserAgentKey: "UA"},
	}
	entries, err := lister.List(context.Background(), site)
	require.NoError(t, err)

	assert.Equal(t, "https://e4ftl01.cr.usgs.gov/MOLT/MOD10A1.006/", client.url)
	assert.Equal(t, "UA", client.headers["User-Agent"])

	require.Len(t, entries, 4)
	assert.Equal(t, "2000.02.24", entries[0].Name)
	assert.True(t, entries[0].IsDir)
	assert.Equal(t, "https://e4ftl01.cr.usgs.gov/MOLT/MOD10A1.006/2000.02.24/", entries[0].URL)
	assert.Equal(t, "2000.02.25", entries[1].Name)
	assert.Equal(t, "readme first.txt", entries[2].Name)
	assert.False(t, entries[2].IsDir)
	assert.Equal(t, "https://e4ftl01.cr.usgs.gov/MOLT/MOD10A1.006/readme%20first.txt", entries[2].URL)
	assert.Equal(t, "checksums.md5", entries[3].Name)
	assert.Equal(t, "lpdaac", entries[3].SiteID)
}

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	prev := logger.S
	logger.S = zap.New(core).Sugar()
	t.Cleanup(func() { logger.S = prev })
	return logs
}

func TestHTTPListerWarnsWhenPageNamesAFile(t *testing.T) {
	logs := observeLogs(t)
	body := []byte(`<a href="/data/a.hdf">a.hdf</a> <a href="/data/b.hdf">b.hdf</a>`)
	client := &stubClient{resp: stubResponse{body: body, status: http.StatusOK}}

	entries, err := NewHTTPLister(client).ListPage(context.Background(), "s", "https://example.com/data/index.html", nil)
	require.NoError(t, err)
	assert.Empty(t, entries)

	warnings := logs.FilterMessage("index page has links but no child entries").All()
	require.Len(t, warnings, 1)
	fields, ok := warnings[0].ContextMap()["index_warning"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/data/index.html/", fields["directory"])
	assert.Equal(t, 2, fields["anchors"])
}

func TestHTTPListerDoesNotWarnForPagesWithoutLinks(t *testing.T) {
	logs := observeLogs(t)
	client := &stubClient{resp: stubResponse{body: []byte(`<pre>empty</pre>`), status: http.StatusOK}}

	entries, err := NewHTTPLister(client).ListPage(context.Background(), "s", "https://example.com/data/", nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, logs.Len())
}

func TestHTTPListerTreatsPageAsDirectory(t *testing.T) {
	client := &stubClient{resp: stubResponse{body: []byte(`<a href="MOD10A1.006/">x</a>`), status: http.StatusOK}}

	entries, err := NewHTTPLister(client).ListPage(context.Background(), "s", "https://e4ftl01.cr.usgs.gov/MOLT", nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "https://e4ftl01.cr.usgs.gov/MOLT/MOD10A1.006/", entries[0].URL)
}

func TestHTTPListerErrors(t *testing.T) {
	notFound := &stubClient{resp: stubResponse{body: []byte("gone"), status: http.StatusNotFound}}
	_, err := NewHTTPLister(notFound).ListPage(context.Background(), "s", "https://example.com/data/", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "gone")

	broken := &stubClient{err: errors.New("connection reset")}
	_, err = NewHTTPLister(broken).ListPage(context.Background(), "s", "https://example.com/data/", nil)
	require.Error(t, err)

	_, err = NewHTTPLister(broken).ListPage(context.Background(), "s", "ftp://example.com/data/", nil)
	require.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestChildLink(t *testing.T) {
	dir, err := url.Parse("http://example.com/data/")
	require.NoError(t, err)

	cases := []struct {
		href  string
		name  string
		isDir bool
		ok    bool
	}{
		{href: "file.txt", name: "file.txt", ok: true},
		{href: "sub/", name: "sub", isDir: true, ok: true},
		{href: "/data/abs.nc", name: "abs.nc", ok: true},
		{href: "http://example.com/data/full.nc?x=1#frag", name: "full.nc", ok: true},
		{href: "../", ok: false},
		{href: "./", ok: false},
		{href: "?C=S;O=A", ok: false},
		{href: "/other/file.txt", ok: false},
		{href: "https://example.com/data/scheme.txt", ok: false},
		{href: "", ok: false},
	}
	for _, tc := range cases {
		name, _, isDir, ok := childLink(dir, tc.href)
		assert.Equal(t, tc.ok, ok, "href %q", tc.href)
		if tc.ok {
			assert.Equal(t, tc.name, name, "href %q", tc.href)
			assert.Equal(t, tc.isDir, isDir, "href %q", tc.href)
		}
	}
}

func TestListHTTPAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/archive/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<html><body><a href="../">up</a><a href="a.hdf">a</a><a href="b.hdf">b</a></body></html>`))
	}))
	defer srv.Close()

	names, err := ListHTTP(context.Background(), srv.URL+"/archive/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.hdf", "b.hdf"}, names)
}
