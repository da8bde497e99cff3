package listing

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-index-harvester/internal/domain"
)

func writeSitesFile(t *testing.T, name, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}

func TestLoadRegistryYAML(t *testing.T) {
	file := writeSitesFile(t, "sites.yaml", `
sites:
  - id: lpdaac-molt
    name: LP DAAC MOLT
    type: HTTP
    source_url: https://e4ftl01.cr.usgs.gov/MOLT/
    pattern: "*.hdf"
    request_delay_ms: 750
    config:
      head_metadata: true
  - id: nsidc
    type: ftp
    source_url: ftp://sidads.colorado.edu/pub/DATASETS/
`)

	reg, err := LoadRegistry(file)
	require.NoError(t, err)
	require.Len(t, reg.All(), 2)

	s, ok := reg.ByID("lpdaac-molt")
	require.True(t, ok)
	assert.Equal(t, SiteTypeHTTP, s.Type)
	assert.Equal(t, 750*time.Millisecond, s.RequestDelay())
	assert.True(t, ConfigBool(s, ConfigHeadMetadataKey, false))

	ftpSite, ok := reg.ByID("nsidc")
	require.True(t, ok)
	assert.Equal(t, "nsidc", ftpSite.Name, "name defaults to id")
	assert.Equal(t, 500*time.Millisecond, ftpSite.RequestDelay())

	host, dir, err := ftpSite.ftpLocation()
	require.NoError(t, err)
	assert.Equal(t, "sidads.colorado.edu", host)
	assert.Equal(t, "pub/DATASETS", dir)
}

func TestLoadRegistryJSON(t *testing.T) {
	file := writeSitesFile(t, "sites.json", `{"sites":[{"id":"a","type":"http","source_url":"http://example.com/a/"}]}`)
	reg, err := LoadRegistry(file)
	require.NoError(t, err)
	assert.Len(t, reg.All(), 1)
}

func TestLoadRegistryRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"duplicate": `
sites:
  - {id: dup, type: http, source_url: "http://a.example/"}
  - {id: dup, type: http, source_url: "http://b.example/"}
`,
		"scheme mismatch": `
sites:
  - {id: x, type: ftp, source_url: "http://a.example/"}
`,
		"unknown type": `
sites:
  - {id: x, type: gopher, source_url: "gopher://a.example/"}
`,
		"bad pattern": `
sites:
  - {id: x, type: http, source_url: "http://a.example/", pattern: "[abc"}
`,
		"empty": `sites: []`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			file := writeSitesFile(t, "sites.yaml", content)
			_, err := LoadRegistry(file)
			require.Error(t, err)
		})
	}
}

func TestLoadRegistryReportsDecodeError(t *testing.T) {
	file := writeSitesFile(t, "sites.yaml", "sites:\n  - id: [unclosed\n")
	_, err := LoadRegistry(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format not recognized")
	assert.Contains(t, err.Error(), "decode yaml sites")

	file = writeSitesFile(t, "sites.json", `{"sites": [`)
	_, err = LoadRegistry(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode json sites")
}

func TestLoadRegistryMissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	_, err = LoadRegistry("  ")
	require.Error(t, err)
}

func TestHeadersSkipsEmptyValues(t *testing.T) {
	headers := Headers(Site{Config: map[string]any{
		ConfigUserAgentKey:    "UA",
		ConfigAcceptKey:       "  ",
		ConfigCacheControlKey: "no-cache",
	}})
	assert.Equal(t, map[string]string{"User-Agent": "UA", "Cache-Control": "no-cache"}, headers)
}

func TestConfigBool(t *testing.T) {
	s := Site{Config: map[string]any{"a": true, "b": "1", "c": "nope", "d": 3}}
	assert.True(t, ConfigBool(s, "a", false))
	assert.True(t, ConfigBool(s, "b", false))
	assert.True(t, ConfigBool(s, "c", true))
	assert.False(t, ConfigBool(s, "d", false))
	assert.False(t, ConfigBool(s, "missing", false))
}

func TestFilterByPattern(t *testing.T) {
	entries := []domain.Entry{{Name: "a.hdf"}, {Name: "a.xml"}, {Name: "b.hdf"}}

	assert.Len(t, FilterByPattern(Site{}, entries), 3)

	filtered := FilterByPattern(Site{Pattern: "*.hdf"}, entries)
	require.Len(t, filtered, 2)
	assert.Equal(t, "b.hdf", filtered[1].Name)
}
