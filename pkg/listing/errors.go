package listing

import "errors"

var (
	// ErrUnsupportedScheme is returned when a URL scheme does not match the lister.
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
	// ErrNoLister is returned when no lister is registered for a site.
	ErrNoLister = errors.New("no lister registered")
)
