package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/samvad-hq/samvad-index-harvester/internal/config"
	"github.com/samvad-hq/samvad-index-harvester/internal/domain"
	"github.com/samvad-hq/samvad-index-harvester/internal/logger"
	"github.com/samvad-hq/samvad-index-harvester/pkg/httpclient"
	"github.com/samvad-hq/samvad-index-harvester/pkg/listing"
)

// Collector lists every configured site once, without storage or publishing.
type Collector struct {
	sites       []listing.Site
	listers     listing.ListerRegistry
	concurrency int
	log         logger.Logger
}

// NewCollector builds a collector over an explicit site list.
func NewCollector(sites []listing.Site, listers listing.ListerRegistry, concurrency int, log logger.Logger) *Collector {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Collector{
		sites:       sites,
		listers:     listers,
		concurrency: concurrency,
		log:         logger.Ensure(log),
	}
}

// NewCollectorFromConfig loads the sites file named by cfg and wires the
// default listers.
func NewCollectorFromConfig(cfg *config.Config, log logger.Logger) (*Collector, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)

	siteReg, err := listing.LoadRegistry(cfg.SitesFile)
	if err != nil {
		return nil, fmt.Errorf("load sites registry: %w", err)
	}
	logSites(log, siteReg.All())

	listers := listing.DefaultListerRegistry(httpclient.NewRestyClient(cfg.HTTPTimeout), cfg.FTPTimeout)
	return NewCollector(siteReg.All(), listers, cfg.CrawlConcurrency, log), nil
}

// Collect lists each site and returns its names and paths keyed by site id.
// Sites that fail are left out of the map and reported in the joined error.
func (c *Collector) Collect(ctx context.Context) (map[string]domain.Listing, error) {
	if c == nil || c.listers == nil {
		return nil, fmt.Errorf("collector is not initialized")
	}
	if len(c.sites) == 0 {
		return nil, fmt.Errorf("no sites configured")
	}

	var (
		mu   sync.Mutex
		out  = make(map[string]domain.Listing, len(c.sites))
		errs []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, site := range c.sites {
		g.Go(func() error {
			entries, err := c.collectSite(gctx, site)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				c.log.WarnObj("site listing failed", "site_error", map[string]any{
					"site_id": site.ID,
					"error":   err.Error(),
				})
				return nil
			}
			out[site.ID] = domain.NewListing(entries)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return out, ctx.Err()
	}
	return out, errors.Join(errs...)
}

func (c *Collector) collectSite(ctx context.Context, site listing.Site) ([]domain.Entry, error) {
	lister, err := c.listers.ListerFor(site)
	if err != nil {
		return nil, fmt.Errorf("resolve lister for site %s: %w", site.ID, err)
	}
	entries, err := lister.List(ctx, site)
	if err != nil {
		return nil, fmt.Errorf("list site %s: %w", site.ID, err)
	}
	return listing.FilterByPattern(site, entries), nil
}
