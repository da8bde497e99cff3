package crawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/samvad-index-harvester/internal/domain"
	"github.com/samvad-hq/samvad-index-harvester/internal/logger"
	"github.com/samvad-hq/samvad-index-harvester/pkg/listing"
	"github.com/samvad-hq/samvad-index-harvester/pkg/publishers"
)

// SiteProcessor lists one site and announces the entries not seen before.
type SiteProcessor struct {
	registry listing.ListerRegistry
	enricher EntryEnricher
	pub      EventPublisher
	log      logger.Logger
	store    Deduper
}

// NewSiteProcessor builds a processor. enricher, pub and store are optional.
func NewSiteProcessor(reg listing.ListerRegistry, enricher EntryEnricher, pub EventPublisher, log logger.Logger, store Deduper) *SiteProcessor {
	return &SiteProcessor{
		registry: reg,
		enricher: enricher,
		pub:      pub,
		log:      logger.Ensure(log),
		store:    store,
	}
}

// Process runs list, filter, dedupe, enrich and publish for a single site.
func (p *SiteProcessor) Process(ctx context.Context, site listing.Site) error {
	lister, err := p.registry.ListerFor(site)
	if err != nil {
		return fmt.Errorf("resolve lister for site %s: %w", site.ID, err)
	}

	entries, err := lister.List(ctx, site)
	if err != nil {
		return fmt.Errorf("list site %s: %w", site.ID, err)
	}
	listed := len(entries)

	entries = listing.FilterByPattern(site, entries)
	entries = p.filterNewEntries(site, entries)

	if p.enricher != nil && len(entries) > 0 && listing.ConfigBool(site, listing.ConfigHeadMetadataKey, false) {
		entries = p.enricher.Enrich(ctx, site, entries)
	}

	published, err := p.publish(ctx, site, entries)

	p.log.InfoObj("site crawl completed", "site_result", map[string]any{
		"site_id":           site.ID,
		"entries_listed":    listed,
		"entries_new":       len(entries),
		"entries_published": published,
	})
	return err
}

func (p *SiteProcessor) publish(ctx context.Context, site listing.Site, entries []domain.Entry) (int, error) {
	if p.pub == nil {
		return 0, nil
	}

	var errs []error
	published := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		evt := publishers.NewEvent(site.ID, site.Name, entry)
		n, err := p.pub.Publish(ctx, evt)
		if err != nil {
			errs = append(errs, fmt.Errorf("publish entry %s (%s): %w", entry.Name, entry.ID, err))
		}
		if n == 0 {
			continue
		}
		published++
		p.markSeen(site, entry)
	}
	return published, errors.Join(errs...)
}

func (p *SiteProcessor) markSeen(site listing.Site, entry domain.Entry) {
	if p.store == nil {
		return
	}
	if err := p.store.MarkEntry(entry.ID); err != nil {
		p.log.WarnObj("mark entry failed", "store_error", map[string]any{
			"site_id":  site.ID,
			"entry_id": entry.ID,
			"error":    err.Error(),
		})
	}
}

// filterNewEntries drops entries the store has already seen. Lookup errors
// keep the entry.
func (p *SiteProcessor) filterNewEntries(site listing.Site, entries []domain.Entry) []domain.Entry {
	if p.store == nil {
		return entries
	}
	out := entries[:0:0]
	for _, entry := range entries {
		seen, err := p.store.SeenEntry(entry.ID)
		if err != nil {
			p.log.WarnObj("dedupe lookup failed", "store_error", map[string]any{
				"site_id":  site.ID,
				"entry_id": entry.ID,
				"error":    err.Error(),
			})
			out = append(out, entry)
			continue
		}
		if !seen {
			out = append(out, entry)
		}
	}
	return out
}
