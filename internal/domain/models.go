package domain

import "time"

// Domain contains core models shared by listers, the crawler and publishers.

// Entry is a single item discovered in a remote directory listing.
type Entry struct {
	ID         string    `json:"id"`
	SiteID     string    `json:"site_id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	IsDir      bool      `json:"is_dir"`
	Size       int64     `json:"size,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
}

// Listing is the flat form of a directory listing: parallel slices of
// entry names and retrievable URLs.
type Listing struct {
	Names []string `json:"names" yaml:"names"`
	Paths []string `json:"paths" yaml:"paths"`
}

// NewListing projects entries into a Listing, keeping order.
func NewListing(entries []Entry) Listing {
	l := Listing{
		Names: make([]string, 0, len(entries)),
		Paths: make([]string, 0, len(entries)),
	}
	for _, e := range entries {
		l.Names = append(l.Names, e.Name)
		l.Paths = append(l.Paths, e.URL)
	}
	return l
}
