package listing

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/samvad-index-harvester/internal/domain"
	"github.com/samvad-hq/samvad-index-harvester/internal/logger"
)

const maxIndexBodyBytes = 8 << 20 // 8 MiB

// HTTPLister lists directory index pages (Apache/nginx autoindex style).
type HTTPLister struct {
	client HTTPClient
}

// NewHTTPLister builds an HTTP lister with the provided client (or default).
func NewHTTPLister(client HTTPClient) *HTTPLister {
	if client == nil {
		client = DefaultHTTPClient()
	}
	return &HTTPLister{client: client}
}

func (l *HTTPLister) Type() string { return SiteTypeHTTP }

// List fetches the site's index page and returns its child entries.
func (l *HTTPLister) List(ctx context.Context, site Site) ([]domain.Entry, error) {
	if !strings.EqualFold(site.Type, SiteTypeHTTP) {
		return nil, fmt.Errorf("http lister received incompatible site type %q", site.Type)
	}
	return l.ListPage(ctx, site.ID, site.SourceURL, Headers(site))
}

// ListPage fetches pageURL, which is always treated as a directory, and
// extracts the links pointing at its direct children. A URL naming a file
// such as ".../dir/index.html" is read as the directory "index.html/", so
// links of the form "/dir/name" are not its children. A warning is logged
// when a page has links but none of them qualify.
func (l *HTTPLister) ListPage(ctx context.Context, siteID, pageURL string, headers map[string]string) ([]domain.Entry, error) {
	base, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedScheme, base.Scheme)
	}

	resp, err := l.client.Get(ctx, base.String(), headers)
	if err != nil {
		return nil, fmt.Errorf("fetch index %s: %w", base, err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("index %s returned status %d body: %s", base, resp.StatusCode(), responseSnippet(body))
	}
	if len(body) > maxIndexBodyBytes {
		body = body[:maxIndexBodyBytes]
	}

	dir := directoryOf(base)
	entries, anchors, err := parseIndex(dir, siteID, body)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 && anchors > 0 {
		logger.WarnObj("index page has links but no child entries", "index_warning", map[string]any{
			"site_id":   siteID,
			"page_url":  base.String(),
			"directory": dir.String(),
			"anchors":   anchors,
		})
	}
	return entries, nil
}

// ListHTTP lists the index page at pageURL and returns the child names.
// pageURL should name the directory itself (trailing slash), not an index
// file inside it.
func ListHTTP(ctx context.Context, pageURL string) ([]string, error) {
	entries, err := NewHTTPLister(nil).ListPage(ctx, pageURL, pageURL, nil)
	if err != nil {
		return nil, err
	}
	return domain.NewListing(entries).Names, nil
}

// parseIndex returns the child entries of dir linked from body and the
// number of anchors inspected.
func parseIndex(dir *url.URL, siteID string, body []byte) ([]domain.Entry, int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("parse html: %w", err)
	}

	var entries []domain.Entry
	seen := make(map[string]struct{})

	anchors := doc.Find("a[href]")
	anchors.Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		name, abs, isDir, ok := childLink(dir, href)
		if !ok {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		entries = append(entries, newEntry(siteID, name, abs, isDir))
	})

	return entries, anchors.Length(), nil
}

// childLink resolves href against dir and reports whether it names a
// direct child of dir.
func childLink(dir *url.URL, href string) (name, abs string, isDir, ok bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "?") {
		return "", "", false, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", "", false, false
	}

	u := dir.ResolveReference(ref)
	if u.Scheme != dir.Scheme || !strings.EqualFold(u.Host, dir.Host) {
		return "", "", false, false
	}
	if !strings.HasPrefix(u.Path, dir.Path) {
		return "", "", false, false
	}

	rest := strings.TrimPrefix(u.Path, dir.Path)
	isDir = strings.HasSuffix(rest, "/")
	rest = strings.TrimSuffix(rest, "/")
	if isPseudoEntry(rest) || strings.Contains(rest, "/") {
		return "", "", false, false
	}

	u.RawQuery = ""
	u.Fragment = ""
	return rest, u.String(), isDir, true
}

// directoryOf returns a copy of u with query and fragment dropped and a
// trailing slash on the path.
func directoryOf(u *url.URL) *url.URL {
	d := *u
	d.RawQuery = ""
	d.Fragment = ""
	if !strings.HasSuffix(d.Path, "/") {
		d.Path += "/"
		if d.RawPath != "" {
			d.RawPath += "/"
		}
	}
	return &d
}
