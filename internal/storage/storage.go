package storage

import (
	"fmt"
	"strings"
	"time"
)

// Package storage remembers which listing entries were already announced.

// Store tracks published entry IDs.
type Store interface {
	Close() error
	SeenEntry(id string) (bool, error)
	MarkEntry(id string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	EntryTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	defaultEntryTTL        = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend. location is the bbolt
// file path or the postgres DSN.
func NewStore(typ, location string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(location) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		store, err := openBolt(location, opts)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		if strings.TrimSpace(location) == "" {
			return nil, fmt.Errorf("postgres storage requires a dsn")
		}
		store, err := openPostgres(location, opts)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

// IsPostgres reports whether typ selects the postgres backend.
func IsPostgres(typ string) bool {
	return strings.EqualFold(strings.TrimSpace(typ), "postgres")
}

func normalizeOptions(opts Options) Options {
	if opts.EntryTTL <= 0 {
		opts.EntryTTL = defaultEntryTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                   { return nil }
func (noopStore) SeenEntry(string) (bool, error) { return false, nil }
func (noopStore) MarkEntry(string) error         { return nil }
