package listing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-index-harvester/internal/domain"
)

type namedLister struct{ typ string }

func (n namedLister) Type() string { return n.typ }
func (n namedLister) List(context.Context, Site) ([]domain.Entry, error) {
	return nil, nil
}

func TestListerRegistryPrefersSiteOverride(t *testing.T) {
	override := namedLister{typ: "custom"}
	reg := NewListerRegistry(
		map[string]Lister{SiteTypeHTTP: namedLister{typ: SiteTypeHTTP}},
		map[string]Lister{"Special": override},
	)

	l, err := reg.ListerFor(Site{ID: "special", Type: SiteTypeHTTP})
	require.NoError(t, err)
	assert.Equal(t, "custom", l.Type())

	l, err = reg.ListerFor(Site{ID: "plain", Type: "HTTP"})
	require.NoError(t, err)
	assert.Equal(t, SiteTypeHTTP, l.Type())
}

func TestListerRegistryErrors(t *testing.T) {
	reg := NewListerRegistry(nil, nil)

	_, err := reg.ListerFor(Site{ID: "x", Type: SiteTypeFTP})
	require.ErrorIs(t, err, ErrNoLister)

	_, err = reg.ListerFor(Site{Type: SiteTypeFTP})
	require.Error(t, err)
}

func TestDefaultListerRegistry(t *testing.T) {
	reg := DefaultListerRegistry(nil, 5*time.Second)

	l, err := reg.ListerFor(Site{ID: "f", Type: SiteTypeFTP})
	require.NoError(t, err)
	assert.Equal(t, SiteTypeFTP, l.Type())

	l, err = reg.ListerFor(Site{ID: "h", Type: SiteTypeHTTP})
	require.NoError(t, err)
	assert.Equal(t, SiteTypeHTTP, l.Type())
}
