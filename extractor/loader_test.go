package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ad-collector/internal/types"
)

// scrollPage reports a scripted sequence of document heights
type scrollPage struct {
	types.Page
	heights  []int64
	measured int
	failAt   int
	bottoms  int
	tops     []int64
	nudges   int
}

func (p *scrollPage) ScrollHeight(ctx context.Context) (int64, error) {
	p.measured++
	if p.failAt > 0 && p.measured >= p.failAt {
		return 0, errors.New("target closed")
	}
	i := p.measured - 1
	if i >= len(p.heights) {
		i = len(p.heights) - 1
	}
	return p.heights[i], nil
}

func (p *scrollPage) ScrollToBottom(ctx context.Context) error {
	p.bottoms++
	return nil
}

func (p *scrollPage) ScrollTo(ctx context.Context, y int64) error {
	p.tops = append(p.tops, y)
	return nil
}

func (p *scrollPage) RunScript(ctx context.Context, script string, res interface{}) error {
	p.nudges++
	return nil
}

func newTestLoader(iterations int) *ContentLoader {
	config := testConfig("http://unused.invalid/")
	config.StabilizationIterations = iterations
	return NewContentLoader(config, NewPopupDismisser(config, types.PopupSelectors{}, testLogger()), testLogger())
}

func TestStabilize_StopsWhenHeightSettles(t *testing.T) {
	// grows on the first pass, unchanged on the second
	page := &scrollPage{heights: []int64{1000, 2000, 2000, 2000}}

	require.NoError(t, newTestLoader(10).Stabilize(context.Background(), page))

	assert.Equal(t, 4, page.measured)
	assert.Equal(t, 2+extraScrollAttempts, page.bottoms)
	assert.Equal(t, 2, page.nudges)
	assert.Equal(t, []int64{0}, page.tops)
}

func TestStabilize_ExhaustsIterations(t *testing.T) {
	page := &scrollPage{heights: []int64{100, 200, 300, 400, 500, 600, 700, 800}}

	require.NoError(t, newTestLoader(3).Stabilize(context.Background(), page))

	assert.Equal(t, 3, page.bottoms)
	assert.Equal(t, []int64{0}, page.tops)
}

func TestStabilize_MeasurementErrorCountsAsStable(t *testing.T) {
	page := &scrollPage{heights: []int64{100, 200}, failAt: 2}

	require.NoError(t, newTestLoader(10).Stabilize(context.Background(), page))

	assert.Equal(t, 1, page.bottoms)
	assert.Equal(t, []int64{0}, page.tops)
}

func TestStabilize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := &scrollPage{heights: []int64{100, 200, 300}}
	err := newTestLoader(10).Stabilize(ctx, page)
	assert.ErrorIs(t, err, context.Canceled)
}
