package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-index-harvester/internal/config"
	"github.com/samvad-hq/samvad-index-harvester/internal/crawler"
	"github.com/samvad-hq/samvad-index-harvester/internal/logger"
	"github.com/samvad-hq/samvad-index-harvester/internal/storage"
	"github.com/samvad-hq/samvad-index-harvester/pkg/httpclient"
	"github.com/samvad-hq/samvad-index-harvester/pkg/listing"
	"github.com/samvad-hq/samvad-index-harvester/pkg/publishers"
)

// Harvester is the long-running runtime. It periodically lists every
// configured site and announces new entries through the publishers.
type Harvester struct {
	cfg           *config.Config
	siteReg       *listing.Registry
	fanout        *publishers.Fanout
	crawlService  *crawler.Service
	crawlInterval time.Duration
	log           logger.Logger
	store         storage.Store
}

// NewHarvester builds a harvester runtime from config files.
func NewHarvester(ctx context.Context, cfg *config.Config, log logger.Logger) (*Harvester, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	siteReg, err := listing.LoadRegistry(cfg.SitesFile)
	if err != nil {
		return nil, fmt.Errorf("load sites registry: %w", err)
	}
	logSites(log, siteReg.All())

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	store, err := openStore(cfg)
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     storageBackend(cfg),
		"entry_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	client := httpclient.NewRestyClient(cfg.HTTPTimeout)
	crawlService := crawler.NewService(
		listing.DefaultListerRegistry(client, cfg.FTPTimeout),
		fanout,
		log,
		store,
		crawler.Options{
			Concurrency: cfg.CrawlConcurrency,
			Enricher:    crawler.NewHeadEnricher(client, log),
		},
	)

	return &Harvester{
		cfg:           cfg,
		siteReg:       siteReg,
		fanout:        fanout,
		crawlService:  crawlService,
		crawlInterval: cfg.CrawlInterval,
		log:           log,
		store:         store,
	}, nil
}

// Summary describes what the harvester will do, for startup logging.
func (h *Harvester) Summary() map[string]any {
	if h == nil {
		return nil
	}
	byType := make(map[string]int)
	for _, s := range h.siteReg.All() {
		byType[s.Type]++
	}
	return map[string]any{
		"sites_count":       len(h.siteReg.All()),
		"sites_by_type":     byType,
		"publishers_count":  h.fanout.Size(),
		"storage_backend":   storageBackend(h.cfg),
		"crawl_interval":    h.crawlInterval.String(),
		"crawl_concurrency": h.cfg.CrawlConcurrency,
	}
}

// storageBackend names the seen-entry backend without exposing a DSN.
func storageBackend(cfg *config.Config) string {
	switch {
	case storage.IsPostgres(cfg.StorageType):
		return "postgres"
	case strings.EqualFold(strings.TrimSpace(cfg.StorageType), "bbolt"):
		return "bbolt:" + cfg.BBoltPath
	default:
		return "none"
	}
}

func openStore(cfg *config.Config) (storage.Store, error) {
	location := cfg.BBoltPath
	if storage.IsPostgres(cfg.StorageType) {
		location = cfg.PostgresDSN
	}
	return storage.NewStore(cfg.StorageType, location, storage.Options{
		EntryTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
}

// Run starts the crawl loop until the context is cancelled.
func (h *Harvester) Run(ctx context.Context) error {
	if h == nil || h.crawlService == nil {
		return fmt.Errorf("harvester is not initialized")
	}
	defer h.close()
	sites := h.siteReg.All()
	if len(sites) == 0 {
		h.log.WarnObj("no sites configured; harvester idle", "sites_file", h.cfg.SitesFile)
		<-ctx.Done()
		return ctx.Err()
	}

	h.log.InfoObj("harvester loop starting", "harvester_state", map[string]any{
		"sites_count":      len(sites),
		"publishers_count": h.fanout.Size(),
		"crawl_interval":   h.crawlInterval.String(),
	})

	if err := h.runOnce(ctx, sites); err != nil {
		h.log.ErrorObj("initial crawl failed", "error", err)
	}

	ticker := time.NewTicker(h.crawlInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.InfoObj("harvester loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := h.runOnce(ctx, sites); err != nil {
				h.log.ErrorObj("scheduled crawl failed", "error", err)
			}
		}
	}
}

// runOnce performs a single listing pass across all sites.
func (h *Harvester) runOnce(ctx context.Context, sites []listing.Site) error {
	start := time.Now()
	h.log.InfoObj("crawl started", "crawl_meta", map[string]any{
		"sites_count": len(sites),
		"started_at":  start.UTC(),
	})
	if err := h.crawlService.Run(ctx, sites); err != nil {
		return err
	}
	h.log.InfoObj("crawl completed", "crawl_meta", map[string]any{
		"sites_count": len(sites),
		"elapsed_ms":  time.Since(start).Milliseconds(),
	})
	return nil
}

// close releases the store and publisher clients, logging any errors.
func (h *Harvester) close() {
	if h == nil {
		return
	}
	if h.store != nil {
		if err := h.store.Close(); err != nil {
			h.log.ErrorObj("storage close failed", "error", err)
		}
	}
	if err := h.fanout.Close(); err != nil {
		h.log.ErrorObj("publisher close failed", "error", err)
	}
}

func logSites(log logger.Logger, sites []listing.Site) {
	ids := make([]string, 0, len(sites))
	for _, s := range sites {
		ids = append(ids, s.ID)
	}
	log.InfoObj("sites registry loaded", "sites_meta", map[string]any{
		"count": len(ids),
		"ids":   ids,
	})
}
