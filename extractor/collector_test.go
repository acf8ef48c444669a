package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ad-collector/internal/types"
	"ad-collector/utils"
)

// endlessSite serves /p/N pages, each with one ad and a link to /p/N+1
func endlessSite(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/p/"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `<html><body>
<div class="ad-card-container"><h3>Ad on %d</h3><img src="/img/%d.png"></div>
<a class="next" href="/p/%d">Next</a>
</body></html>`, n, n, n+1)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCollector_TerminatesWithoutAdvanceControl(t *testing.T) {
	server := newSite(t, map[string]string{
		"/": `<html><body><div class="ad-card-container"><h3>Only</h3></div></body></html>`,
	})
	config := testConfig(server.URL + "/")
	sink := &memorySink{}
	page := &countingPage{}

	summary, err := NewCollector(config, genericProfile(), staticLauncher(config, page), sink, testLogger()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.PagesProcessed)
	assert.Equal(t, 1, summary.RecordsPersisted)
	assert.Equal(t, "memory", summary.SinkLocation)
	assert.Equal(t, 0, page.clicks)
	assert.True(t, page.closed)

	records := sink.records()
	require.Len(t, records, 1)
	assert.Equal(t, "Only", records[0].Headline)
	assert.Equal(t, 1, records[0].PageIndex)
}

func TestCollector_PageCeiling(t *testing.T) {
	server := endlessSite(t)
	config := testConfig(server.URL + "/p/1")
	config.PageCeiling = 3
	sink := &memorySink{}
	page := &countingPage{}

	summary, err := NewCollector(config, genericProfile(), staticLauncher(config, page), sink, testLogger()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.PagesProcessed)
	assert.Equal(t, 3, summary.RecordsPersisted)
	assert.Equal(t, 2, page.clicks)

	require.Len(t, sink.batches, 3)
	for i, batch := range sink.batches {
		require.Len(t, batch, 1)
		assert.Equal(t, i+1, batch[0].PageIndex)
		assert.Equal(t, fmt.Sprintf("Ad on %d", i+1), batch[0].Headline)
		assert.Equal(t, fmt.Sprintf("%s/p/%d", server.URL, i+1), batch[0].SourcePageURL)
	}
}

func TestCollector_AppendFailureIsPageLocal(t *testing.T) {
	server := endlessSite(t)
	config := testConfig(server.URL + "/p/1")
	config.PageCeiling = 2
	sink := &memorySink{fail: true}

	summary, err := NewCollector(config, genericProfile(), staticLauncher(config, &countingPage{}), sink, testLogger()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.PagesProcessed)
	assert.Equal(t, 0, summary.RecordsPersisted)
}

func TestCollector_EmptyPageIsNotAppended(t *testing.T) {
	server := newSite(t, map[string]string{"/": `<html><body><p>no ads</p></body></html>`})
	config := testConfig(server.URL + "/")
	sink := &memorySink{}

	summary, err := NewCollector(config, genericProfile(), staticLauncher(config, &countingPage{}), sink, testLogger()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.PagesProcessed)
	assert.Empty(t, sink.batches)
}

func TestCollector_StartPageFailureIsFatal(t *testing.T) {
	server := newSite(t, map[string]string{})
	config := testConfig(server.URL + "/missing")
	page := &countingPage{}

	summary, err := NewCollector(config, genericProfile(), staticLauncher(config, page), &memorySink{}, testLogger()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load start page")
	assert.Equal(t, 0, summary.PagesProcessed)
	assert.True(t, page.closed)
}

func TestCollector_LaunchFailure(t *testing.T) {
	config := testConfig("http://unused.invalid/")
	launcher := launcherFunc(func(ctx context.Context) (types.Page, error) {
		return nil, errors.New("chrome not found")
	})

	summary, err := NewCollector(config, genericProfile(), launcher, &memorySink{}, testLogger()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chrome not found")
	require.NotNil(t, summary)
	assert.Equal(t, 0, summary.PagesProcessed)
}

func TestCollector_Interrupted(t *testing.T) {
	server := endlessSite(t)
	config := testConfig(server.URL + "/p/1")
	ctx, cancel := context.WithCancel(context.Background())
	sink := &memorySink{}

	// cancel once the second page has been saved
	cancelling := &cancelOnAppend{Sink: sink, after: 2, cancel: cancel}
	page := &countingPage{}

	summary, err := NewCollector(config, genericProfile(), staticLauncher(config, page), cancelling, testLogger()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, summary.PagesProcessed)
	assert.Equal(t, 2, summary.RecordsPersisted)
	assert.True(t, page.closed)
}

type cancelOnAppend struct {
	types.Sink
	after  int
	calls  int
	cancel context.CancelFunc
}

func (s *cancelOnAppend) Append(records []types.ExtractedRecord) error {
	err := s.Sink.Append(records)
	s.calls++
	if s.calls == s.after {
		s.cancel()
	}
	return err
}

// schedulePage logs the calls that mark each collector phase, and answers
// popup clicks itself
type schedulePage struct {
	types.Page
	events []string
}

func (p *schedulePage) Navigate(ctx context.Context, url string) error {
	p.events = append(p.events, "navigate")
	return p.Page.Navigate(ctx, url)
}

func (p *schedulePage) WaitReady(ctx context.Context, css string) error {
	p.events = append(p.events, "ready")
	return p.Page.WaitReady(ctx, css)
}

func (p *schedulePage) ScrollTo(ctx context.Context, y int64) error {
	p.events = append(p.events, "top")
	return p.Page.ScrollTo(ctx, y)
}

func (p *schedulePage) Click(ctx context.Context, el types.Element) error {
	if class, _ := el.Attribute("class"); class == "popup-close" {
		p.events = append(p.events, "popup")
		return nil
	}
	p.events = append(p.events, "advance")
	return p.Page.Click(ctx, el)
}

func TestCollector_PopupDismissalSchedule(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/p/"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `<html><body>
<div class="modal"><button class="popup-close">Dismiss</button></div>
<div class="ad-card-container"><h3>Ad on %d</h3></div>
<a class="next" href="/p/%d">Next</a>
</body></html>`, n, n+1)
	}))
	defer server.Close()

	config := testConfig(server.URL + "/p/1")
	config.PageCeiling = 2

	profile := genericProfile()
	profile.Popups = types.PopupSelectors{Close: []types.Selector{{CSS: ".popup-close"}}}

	page := &schedulePage{}
	client := utils.NewStaticClient(config, testLogger())
	launcher := launcherFunc(func(ctx context.Context) (types.Page, error) {
		inner, err := client.Launch(ctx)
		if err != nil {
			return nil, err
		}
		page.Page = inner
		return page, nil
	})

	summary, err := NewCollector(config, profile, launcher, &memorySink{}, testLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.PagesProcessed)

	loading := []string{
		"ready",
		// one pass per scroll iteration, then one per extra scroll
		"popup", "popup", "popup", "popup",
		"top",
		// after stabilizing
		"popup",
	}

	var want []string
	// twice on open, around the initial settle delay
	want = append(want, "navigate", "popup", "popup")
	want = append(want, loading...)
	// once after a successful advance
	want = append(want, "advance", "popup")
	want = append(want, loading...)

	assert.Equal(t, want, page.events)
}
