package crawler

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/samvad-hq/samvad-index-harvester/internal/logger"
	"github.com/samvad-hq/samvad-index-harvester/pkg/listing"
)

const defaultConcurrency = 1

// Service coordinates listing across multiple sites.
type Service struct {
	processor   *SiteProcessor
	log         logger.Logger
	concurrency int
}

// Options tunes a Service.
type Options struct {
	Concurrency int
	Enricher    EntryEnricher
}

// NewService wires a crawler with the lister registry, publisher and dedupe store.
func NewService(reg listing.ListerRegistry, pub EventPublisher, log logger.Logger, store Deduper, opts Options) *Service {
	log = logger.Ensure(log)
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Service{
		processor:   NewSiteProcessor(reg, opts.Enricher, pub, log, store),
		log:         log,
		concurrency: opts.Concurrency,
	}
}

// Run executes a listing pass for all configured sites.
func (s *Service) Run(ctx context.Context, sites []listing.Site) error {
	if s == nil || s.processor == nil || s.processor.registry == nil {
		return fmt.Errorf("crawler service is not initialized")
	}

	if len(sites) == 0 {
		return fmt.Errorf("no sites configured for crawling")
	}

	errs := s.runAll(ctx, sites)
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

func (s *Service) runAll(ctx context.Context, sites []listing.Site) []error {
	errs := make([]error, len(sites))

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for i, site := range sites {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if err := s.processor.Process(ctx, site); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				errs[i] = err
				s.log.ErrorObj("site crawl failed", "site_error", map[string]any{
					"site_id": site.ID,
					"error":   err.Error(),
				})
			}
			return nil
		})
	}
	_ = g.Wait()

	out := errs[:0]
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
