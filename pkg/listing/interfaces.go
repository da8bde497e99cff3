package listing

import (
	"context"

	"github.com/samvad-hq/samvad-index-harvester/internal/domain"
	"github.com/samvad-hq/samvad-index-harvester/pkg/httpclient"
)

// Lister retrieves the entries of one remote directory.
type Lister interface {
	Type() string
	List(ctx context.Context, site Site) ([]domain.Entry, error)
}

// ListerRegistry resolves the lister implementation for a given site.
type ListerRegistry interface {
	ListerFor(site Site) (Lister, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within listing.
type HTTPClient = httpclient.Client
