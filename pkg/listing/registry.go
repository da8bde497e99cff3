package listing

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/samvad-index-harvester/pkg/httpclient"
)

// listerRegistry implements ListerRegistry.
type listerRegistry struct {
	listersByID   map[string]Lister
	listersByType map[string]Lister
	mu            sync.RWMutex
}

// NewListerRegistry builds a registry with type-based listers and optional
// site-specific overrides keyed by site id.
func NewListerRegistry(typeListers map[string]Lister, siteListers map[string]Lister) ListerRegistry {
	reg := &listerRegistry{
		listersByID:   make(map[string]Lister),
		listersByType: make(map[string]Lister),
	}

	for id, l := range siteListers {
		reg.register(reg.listersByID, id, l)
	}
	for typ, l := range typeListers {
		reg.register(reg.listersByType, typ, l)
	}

	return reg
}

func (r *listerRegistry) register(into map[string]Lister, key string, l Lister) {
	if l == nil {
		return
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return
	}

	r.mu.Lock()
	into[key] = l
	r.mu.Unlock()
}

// ListerFor selects the lister for the given site based on its id or type.
func (r *listerRegistry) ListerFor(site Site) (Lister, error) {
	if r == nil {
		return nil, fmt.Errorf("lister registry is nil")
	}
	if strings.TrimSpace(site.ID) == "" {
		return nil, fmt.Errorf("site id is empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if l, ok := r.listersByID[strings.ToLower(strings.TrimSpace(site.ID))]; ok {
		return l, nil
	}

	typeKey := strings.ToLower(strings.TrimSpace(site.Type))
	if typeKey != "" {
		if l, ok := r.listersByType[typeKey]; ok {
			return l, nil
		}
	}

	return nil, fmt.Errorf("%w for site %q (type %q)", ErrNoLister, site.ID, site.Type)
}

const (
	defaultHTTPTimeout = 15 * time.Second
	defaultFTPTimeout  = 30 * time.Second
)

// DefaultHTTPClient returns a tuned HTTP client for index pages.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(defaultHTTPTimeout) }

// DefaultListerRegistry wires up the FTP and HTTP listers.
func DefaultListerRegistry(client HTTPClient, ftpTimeout time.Duration) ListerRegistry {
	if client == nil {
		client = DefaultHTTPClient()
	}

	return NewListerRegistry(map[string]Lister{
		SiteTypeFTP:  NewFTPLister(ftpTimeout, nil),
		SiteTypeHTTP: NewHTTPLister(client),
	}, nil)
}
