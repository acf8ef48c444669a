package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ad-collector/internal/types"
)

const framedPage = `<html><body>
<iframe class="mspai-nova-native" src="/frames/native1"></iframe>
<iframe class="other-widget" src="/frames/other"></iframe>
<iframe class="mspai-nova-native" src="/frames/native2"></iframe>
<iframe class="broken" src="/frames/missing"></iframe>
<div class="ad-card-container">
  <h3>Main Ad</h3>
  <img src="/img/main.png">
  <a href="/go/main">Learn more</a>
</div>
</body></html>`

const nativeFrame1 = `<html><body>
<a class="ad-click-through" href="/dest/1">
  <span class="ad-headline">Native One</span>
  <img class="ad-foreground" src="/img/n1.png">
  <span class="ad-advertiser">Acme</span>
  <span class="ad-tag">Sponsored</span>
  <p class="ad-body">Body one</p>
</a>
</body></html>`

const nativeFrame2 = `<html><body>
<a class="ad-click-through" href="https://shop.example.com/deal">Weekend deal</a>
<div class="ad-card-container"><h4>Native Card</h4></div>
</body></html>`

const otherFrame = `<html><body>
<div class="ad-card-container">
  <h2 class="ad-headline">Other Ad</h2>
  <a href="/dest/other">Go</a>
</div>
<a class="ad-click-through" href="/ignored">Ignored in other frames</a>
</body></html>`

func framedSite(t *testing.T) string {
	server := newSite(t, map[string]string{
		"/":               framedPage,
		"/frames/native1": nativeFrame1,
		"/frames/native2": nativeFrame2,
		"/frames/other":   otherFrame,
	})
	return server.URL
}

func TestExtractPage_ProvenanceOrder(t *testing.T) {
	base := framedSite(t)
	config := testConfig(base + "/")
	page := openStatic(t, config, config.StartURL)

	records := NewFrameExtractor(config, genericProfile(), testLogger()).ExtractPage(context.Background(), page)

	var provenance []string
	for _, r := range records {
		provenance = append(provenance, r.Provenance)
	}
	// the main-page card matches both the exact and the looser ad-card selector
	assert.Equal(t, []string{
		"nativeFrame:1",
		"nativeFrame:2",
		"nativeFrame:2",
		"otherFrame:2",
		"mainPage",
		"mainPage",
	}, provenance)
}

func TestExtractPage_Fields(t *testing.T) {
	base := framedSite(t)
	config := testConfig(base + "/")
	page := openStatic(t, config, config.StartURL)

	records := NewFrameExtractor(config, genericProfile(), testLogger()).ExtractPage(context.Background(), page)
	require.Len(t, records, 6)

	native := records[0]
	assert.Equal(t, "Native One", native.Headline)
	assert.Equal(t, base+"/img/n1.png", native.ImageSrc)
	assert.Equal(t, base+"/dest/1", native.DestinationURL)
	assert.Equal(t, "Acme", native.AdvertiserName)
	assert.Equal(t, "Sponsored", native.CategoryTag)
	assert.Equal(t, "Body one", native.BodyText)
	assert.Equal(t, base+"/", native.SourcePageURL)
	assert.False(t, native.CollectedAt.IsZero())

	// anchor without sub-elements falls back to its own text
	assert.Equal(t, "Weekend deal", records[1].Headline)
	assert.Equal(t, "https://shop.example.com/deal", records[1].DestinationURL)
	assert.Empty(t, records[1].ImageSrc)

	assert.Equal(t, "Native Card", records[2].Headline)
	assert.Empty(t, records[2].DestinationURL)

	assert.Equal(t, "Other Ad", records[3].Headline)
	assert.Equal(t, base+"/dest/other", records[3].DestinationURL)

	main := records[4]
	assert.Equal(t, "Main Ad", main.Headline)
	assert.Equal(t, base+"/img/main.png", main.ImageSrc)
	assert.Equal(t, base+"/go/main", main.DestinationURL)
}

// exitTracker records ExitToTop calls and fails to enter the first frame
type exitTracker struct {
	types.Page
	entered int
	exits   int
}

func (p *exitTracker) EnterFrame(ctx context.Context, el types.Element) (types.Frame, error) {
	p.entered++
	if p.entered == 1 {
		return nil, types.ErrNoFrameDocument
	}
	return p.Page.EnterFrame(ctx, el)
}

func (p *exitTracker) ExitToTop(ctx context.Context) error {
	p.exits++
	return p.Page.ExitToTop(ctx)
}

func TestExtractPage_FrameFailureIsIsolated(t *testing.T) {
	base := framedSite(t)
	config := testConfig(base + "/")
	page := &exitTracker{Page: openStatic(t, config, config.StartURL)}

	records := NewFrameExtractor(config, genericProfile(), testLogger()).ExtractPage(context.Background(), page)

	// native frame 1 is lost, everything after it survives
	require.NotEmpty(t, records)
	assert.Equal(t, "nativeFrame:2", records[0].Provenance)
	assert.Equal(t, "mainPage", records[len(records)-1].Provenance)

	// one exit per entered frame plus the return before the main page
	assert.Equal(t, page.entered+1, page.exits)
}
