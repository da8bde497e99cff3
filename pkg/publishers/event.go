package publishers

import (
	"time"

	"github.com/google/uuid"

	"github.com/samvad-hq/samvad-index-harvester/internal/domain"
)

// Event announces one newly discovered listing entry downstream.
type Event struct {
	ID          string       `json:"id"`
	SiteID      string       `json:"site_id"`
	SiteName    string       `json:"site_name"`
	Entry       domain.Entry `json:"entry"`
	CollectedAt time.Time    `json:"collected_at"`
}

// NewEvent constructs an Event for the given site + entry.
func NewEvent(siteID, siteName string, entry domain.Entry) Event {
	return Event{
		ID:          uuid.NewString(),
		SiteID:      siteID,
		SiteName:    siteName,
		Entry:       entry,
		CollectedAt: time.Now().UTC(),
	}
}

// attributes are the routing attributes attached by queue/topic sinks.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"site_id":  e.SiteID,
		"event_id": e.ID,
	}
}
