package listing

import (
	"crypto/sha1" //nolint:gosec // non-cryptographic id generation
	"encoding/hex"
	"path"
	"strings"

	"github.com/samvad-hq/samvad-index-harvester/internal/domain"
)

func hashURL(u string) string {
	sum := sha1.Sum([]byte(u))
	return hex.EncodeToString(sum[:])
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// collapseSlashes replaces every run of '/' with a single '/'.
func collapseSlashes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSlash := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

// ftpURL builds the retrievable ftp:// URL of name inside dir on host.
func ftpURL(host, dir, name string) string {
	return "ftp://" + collapseSlashes(strings.Join([]string{host, dir, name}, "/"))
}

func isPseudoEntry(name string) bool {
	return name == "" || name == "." || name == ".."
}

func newEntry(siteID, name, absURL string, isDir bool) domain.Entry {
	return domain.Entry{
		ID:     hashURL(absURL),
		SiteID: siteID,
		Name:   name,
		URL:    absURL,
		IsDir:  isDir,
	}
}

// FilterByPattern keeps entries whose name matches the site's glob pattern.
// An empty pattern keeps everything.
func FilterByPattern(site Site, entries []domain.Entry) []domain.Entry {
	if site.Pattern == "" {
		return entries
	}
	out := make([]domain.Entry, 0, len(entries))
	for _, e := range entries {
		if ok, err := path.Match(site.Pattern, e.Name); err == nil && ok {
			out = append(out, e)
		}
	}
	return out
}
