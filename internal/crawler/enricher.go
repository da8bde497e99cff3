package crawler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-index-harvester/internal/domain"
	"github.com/samvad-hq/samvad-index-harvester/internal/logger"
	"github.com/samvad-hq/samvad-index-harvester/pkg/httpclient"
	"github.com/samvad-hq/samvad-index-harvester/pkg/listing"
)

// HeadEnricher issues HEAD requests against HTTP file entries to learn their
// size and modification time.
type HeadEnricher struct {
	client httpclient.Client
	log    logger.Logger
}

// NewHeadEnricher constructs an enricher with the provided HTTP client (or default).
func NewHeadEnricher(client httpclient.Client, log logger.Logger) *HeadEnricher {
	if client == nil {
		client = listing.DefaultHTTPClient()
	}
	return &HeadEnricher{client: client, log: logger.Ensure(log)}
}

// Enrich issues a HEAD for each file entry, throttled by the site's request delay. On
// cancellation the entries handled so far are returned.
func (p *HeadEnricher) Enrich(ctx context.Context, site listing.Site, entries []domain.Entry) []domain.Entry {
	if site.Type != listing.SiteTypeHTTP {
		return entries
	}
	delay := site.RequestDelay()
	headers := listing.Headers(site)
	out := append([]domain.Entry(nil), entries...)

	for i, entry := range entries {
		select {
		case <-ctx.Done():
			return out[:i]
		default:
		}

		if entry.IsDir {
			continue
		}

		enriched, err := p.head(ctx, headers, entry)
		if err != nil {
			p.log.WarnObj("entry metadata lookup failed", "head_error", map[string]any{
				"site_id": site.ID,
				"url":     entry.URL,
				"error":   err.Error(),
			})
		} else {
			out[i] = enriched
		}

		if delay > 0 && i < len(entries)-1 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return out[:i+1]
			case <-timer.C:
			}
		}
	}

	return out
}

func (p *HeadEnricher) head(ctx context.Context, headers map[string]string, entry domain.Entry) (domain.Entry, error) {
	resp, err := p.client.Head(ctx, entry.URL, headers)
	if err != nil {
		return entry, fmt.Errorf("http head: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return entry, fmt.Errorf("status %d", resp.StatusCode())
	}

	hdr := resp.Header()
	if raw := strings.TrimSpace(hdr.Get("Content-Length")); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n >= 0 {
			entry.Size = n
		}
	}
	if raw := strings.TrimSpace(hdr.Get("Last-Modified")); raw != "" {
		if t, err := http.ParseTime(raw); err == nil {
			entry.ModifiedAt = t.UTC()
		}
	}
	return entry, nil
}
