package crawler

import (
	"context"

	"github.com/samvad-hq/samvad-index-harvester/internal/domain"
	"github.com/samvad-hq/samvad-index-harvester/pkg/listing"
	"github.com/samvad-hq/samvad-index-harvester/pkg/publishers"
)

// EntryEnricher fills in entry metadata the listing itself did not carry.
type EntryEnricher interface {
	Enrich(ctx context.Context, site listing.Site, entries []domain.Entry) []domain.Entry
}

// EventPublisher publishes new entries downstream and reports how many
// sinks accepted the event.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Deduper remembers entries that were already announced.
type Deduper interface {
	SeenEntry(id string) (bool, error)
	MarkEntry(id string) error
}
