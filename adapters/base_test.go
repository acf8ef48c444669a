package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ad-collector/internal/types"
)

func TestGet(t *testing.T) {
	adapter, err := Get("generic")
	require.NoError(t, err)
	assert.Equal(t, "generic", adapter.Name())

	adapter, err = Get(" NewsBreak ")
	require.NoError(t, err)
	assert.Equal(t, "newsbreak", adapter.Name())
	assert.Equal(t, "newsbreak", adapter.Profile().Name)

	_, err = Get("acme-store")
	assert.ErrorIs(t, err, types.ErrUnknownAdapter)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"generic", "newsbreak"}, Names())
}

func TestBaseProfile(t *testing.T) {
	profile := (&BaseAdapter{}).Profile()

	assert.Equal(t, ".ad-card-container", profile.MainPage[0])
	assert.Equal(t, []string{".ad-headline", "h1, h2, h3, h4, h5, h6"}, profile.Fields.Headline)
	assert.Equal(t, types.Selector{CSS: "a[aria-label*='next' i]"}, profile.Pagination[0])
	assert.Equal(t, types.Selector{CSS: "button", Text: "more"}, profile.Pagination[len(profile.Pagination)-1])
	assert.Contains(t, profile.Popups.SkipTexts, "Subscribe")

	// every call returns an independent copy
	profile.MainPage[0] = "changed"
	assert.Equal(t, ".ad-card-container", (&BaseAdapter{}).Profile().MainPage[0])
}

func TestMerge(t *testing.T) {
	base := (&BaseAdapter{}).Profile()
	override := &types.SelectorProfile{
		NativeFrame: "iframe.native-slot",
		Fields:      types.FieldSelectors{Body: ".copy"},
		Pagination:  []types.Selector{{CSS: "a.older"}},
	}

	merged := Merge(base, override)

	assert.Equal(t, "iframe.native-slot", merged.NativeFrame)
	assert.Equal(t, ".copy", merged.Fields.Body)
	assert.Equal(t, []types.Selector{{CSS: "a.older"}}, merged.Pagination)
	// untouched values are kept
	assert.Equal(t, base.MainPage, merged.MainPage)
	assert.Equal(t, base.Fields.Headline, merged.Fields.Headline)
	assert.Equal(t, "mspai", merged.FrameMarker)
	// base is not modified
	assert.Equal(t, "iframe.mspai-nova-native", base.NativeFrame)
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: custom
ad_container:
  - .sponsored-card
pagination:
  - css: button
    text: Load more
popups:
  skip_texts: [Share]
`), 0644))

	profile, err := LoadProfile(path, (&BaseAdapter{}).Profile())
	require.NoError(t, err)

	assert.Equal(t, "custom", profile.Name)
	assert.Equal(t, []string{".sponsored-card"}, profile.AdContainer)
	assert.Equal(t, []types.Selector{{CSS: "button", Text: "Load more"}}, profile.Pagination)
	assert.Equal(t, []string{"Share"}, profile.Popups.SkipTexts)
	assert.NotEmpty(t, profile.Popups.Cookie)
}

func TestLoadProfile_Errors(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"), (&BaseAdapter{}).Profile())
	assert.ErrorIs(t, err, types.ErrConfigNotFound)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("main_page: [unclosed"), 0644))
	_, err = LoadProfile(path, (&BaseAdapter{}).Profile())
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	profile, err := Resolve("newsbreak", "")
	require.NoError(t, err)
	assert.Equal(t, "newsbreak", profile.Name)

	_, err = Resolve("newsbreak", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, types.ErrConfigNotFound)
}

func TestMarshalRoundTrip(t *testing.T) {
	profile := NewNewsBreakAdapter().Profile()
	data, err := Marshal(profile)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))

	loaded, err := LoadProfile(path, &types.SelectorProfile{})
	require.NoError(t, err)
	assert.Equal(t, profile, loaded)
}
