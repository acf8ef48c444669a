package extractor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"ad-collector/adapters"
	"ad-collector/internal/types"
	"ad-collector/utils"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig(startURL string) *types.Config {
	config := types.DefaultConfig().WithoutDelays()
	config.StartURL = startURL
	config.MaxRetries = 0
	config.StabilizationIterations = 3
	return config
}

func genericProfile() *types.SelectorProfile {
	return (&adapters.BaseAdapter{}).Profile()
}

// newSite serves the given path -> HTML pages
func newSite(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.RequestURI()]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

// openStatic launches a static page and loads url
func openStatic(t *testing.T, config *types.Config, url string) types.Page {
	t.Helper()
	page, err := utils.NewStaticClient(config, testLogger()).Launch(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = page.Close() })
	require.NoError(t, page.Navigate(context.Background(), url))
	return page
}

// memorySink keeps appended batches in memory
type memorySink struct {
	mu      sync.Mutex
	batches [][]types.ExtractedRecord
	fail    bool
}

func (s *memorySink) Append(records []types.ExtractedRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("disk full")
	}
	batch := make([]types.ExtractedRecord, len(records))
	copy(batch, records)
	s.batches = append(s.batches, batch)
	return nil
}

func (s *memorySink) Location() string { return "memory" }
func (s *memorySink) Close() error     { return nil }

func (s *memorySink) records() []types.ExtractedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []types.ExtractedRecord
	for _, b := range s.batches {
		all = append(all, b...)
	}
	return all
}

// launcherFunc adapts a function to types.Launcher
type launcherFunc func(ctx context.Context) (types.Page, error)

func (f launcherFunc) Launch(ctx context.Context) (types.Page, error) { return f(ctx) }

// countingPage wraps a page and counts activations
type countingPage struct {
	types.Page
	intercept    bool
	clicks       int
	scriptClicks int
	closed       bool
}

func (p *countingPage) Click(ctx context.Context, el types.Element) error {
	p.clicks++
	if p.intercept {
		return types.ErrClickIntercepted
	}
	return p.Page.Click(ctx, el)
}

func (p *countingPage) ClickByScript(ctx context.Context, el types.Element) error {
	p.scriptClicks++
	return p.Page.ClickByScript(ctx, el)
}

func (p *countingPage) Close() error {
	p.closed = true
	return p.Page.Close()
}

// staticLauncher opens static pages wrapped in a countingPage
func staticLauncher(config *types.Config, wrap *countingPage) types.Launcher {
	client := utils.NewStaticClient(config, testLogger())
	return launcherFunc(func(ctx context.Context) (types.Page, error) {
		page, err := client.Launch(ctx)
		if err != nil {
			return nil, err
		}
		wrap.Page = page
		return wrap, nil
	})
}
