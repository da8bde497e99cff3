package listing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Package listing lists remote FTP and HTTP directories and loads the
// site definitions (YAML/JSON) that drive them.

const (
	SiteTypeFTP  = "ftp"
	SiteTypeHTTP = "http"
)

// Site is one remote directory to list.
type Site struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Type           string         `json:"type" yaml:"type"`
	SourceURL      string         `json:"source_url" yaml:"source_url"`
	Pattern        string         `json:"pattern" yaml:"pattern"`
	RequestDelayMs int            `json:"request_delay_ms" yaml:"request_delay_ms"`
	Config         map[string]any `json:"config" yaml:"config"`
}

type sitesFile struct {
	Sites []Site `json:"sites" yaml:"sites"`
}

var defaultRequestDelayMs = 500

// Registry holds the validated sites loaded from a sites file.
type Registry struct {
	mu    sync.RWMutex
	sites []Site
	idx   map[string]Site
}

// LoadRegistry loads the sites registry from file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sites file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sites file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sites file: %w", err)
	}

	parsed, err := parseSitesFile(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(parsed.Sites) == 0 {
		return nil, errors.New("sites file contains no sites entries")
	}

	return NewRegistry(parsed.Sites...)
}

// NewRegistry sanitizes and validates sites and indexes them by id.
func NewRegistry(sites ...Site) (*Registry, error) {
	reg := &Registry{
		sites: make([]Site, 0, len(sites)),
		idx:   make(map[string]Site, len(sites)),
	}
	for i := range sites {
		s := sanitizeSite(sites[i])
		if err := ValidateSite(s); err != nil {
			return nil, fmt.Errorf("site[%d]: %w", i, err)
		}
		if _, exists := reg.idx[s.ID]; exists {
			return nil, fmt.Errorf("duplicate site id %q", s.ID)
		}
		reg.sites = append(reg.sites, s)
		reg.idx[s.ID] = s
	}
	return reg, nil
}

func parseSitesFile(data []byte, ext string) (sitesFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	var decodeErrs []error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		parsed, err := unmarshalSites(d.name, data, d.fn)
		if err == nil {
			return parsed, nil
		}
		decodeErrs = append(decodeErrs, err)
	}

	notRecognized := errors.New("sites file format not recognized (expected YAML or JSON)")
	return sitesFile{}, errors.Join(append([]error{notRecognized}, decodeErrs...)...)
}

type unmarshalFn func([]byte, any) error

func unmarshalSites(name string, data []byte, fn unmarshalFn) (sitesFile, error) {
	var parsed sitesFile
	if err := fn(data, &parsed); err != nil {
		return sitesFile{}, fmt.Errorf("decode %s sites: %w", name, err)
	}
	return parsed, nil
}

func sanitizeSite(s Site) Site {
	s.ID = strings.TrimSpace(s.ID)
	s.Name = strings.TrimSpace(s.Name)
	s.Type = strings.ToLower(strings.TrimSpace(s.Type))
	s.SourceURL = strings.TrimSpace(s.SourceURL)
	s.Pattern = strings.TrimSpace(s.Pattern)

	if s.Name == "" {
		s.Name = s.ID
	}
	if s.Config == nil {
		s.Config = map[string]any{}
	}
	if s.RequestDelayMs <= 0 {
		s.RequestDelayMs = defaultRequestDelayMs
	}

	return s
}

// ValidateSite checks required fields and that the source URL scheme matches the type.
func ValidateSite(s Site) error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if s.SourceURL == "" {
		return fmt.Errorf("source_url is required for site %q", s.ID)
	}
	u, err := url.Parse(s.SourceURL)
	if err != nil {
		return fmt.Errorf("source_url of site %q: %w", s.ID, err)
	}
	if u.Host == "" {
		return fmt.Errorf("source_url of site %q has no host", s.ID)
	}

	switch s.Type {
	case SiteTypeFTP:
		if u.Scheme != "ftp" {
			return fmt.Errorf("site %q: %w %q for type ftp", s.ID, ErrUnsupportedScheme, u.Scheme)
		}
	case SiteTypeHTTP:
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("site %q: %w %q for type http", s.ID, ErrUnsupportedScheme, u.Scheme)
		}
	case "":
		return fmt.Errorf("type is required for site %q", s.ID)
	default:
		return fmt.Errorf("unsupported type %q for site %q", s.Type, s.ID)
	}

	if s.Pattern != "" {
		if _, err := path.Match(s.Pattern, ""); err != nil {
			return fmt.Errorf("invalid pattern %q for site %q: %w", s.Pattern, s.ID, err)
		}
	}
	return nil
}

// All returns a copy of the loaded sites in file order.
func (r *Registry) All() []Site {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Site, len(r.sites))
	copy(out, r.sites)
	return out
}

// ByID returns the site for the given id, if loaded.
func (r *Registry) ByID(id string) (Site, bool) {
	if r == nil {
		return Site{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Site{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.idx[id]
	return s, ok
}

// RequestDelay returns the per-request throttle duration for the site.
func (s Site) RequestDelay() time.Duration {
	if s.RequestDelayMs <= 0 {
		return time.Duration(defaultRequestDelayMs) * time.Millisecond
	}
	return time.Duration(s.RequestDelayMs) * time.Millisecond
}

// ftpLocation splits an ftp:// source URL into host (with port) and directory.
func (s Site) ftpLocation() (string, string, error) {
	u, err := url.Parse(s.SourceURL)
	if err != nil {
		return "", "", fmt.Errorf("parse source_url: %w", err)
	}
	if u.Scheme != "ftp" {
		return "", "", fmt.Errorf("%w %q", ErrUnsupportedScheme, u.Scheme)
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}
