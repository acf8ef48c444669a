package adapters

import "ad-collector/internal/types"

// NewsBreakAdapter handles newsbreak.com, whose native ads are rendered by
// the mspai nova widget inside iframes
type NewsBreakAdapter struct {
	*BaseAdapter
}

// NewNewsBreakAdapter creates a new NewsBreak adapter
func NewNewsBreakAdapter() *NewsBreakAdapter {
	return &NewsBreakAdapter{
		BaseAdapter: &BaseAdapter{},
	}
}

// Name returns the adapter name
func (n *NewsBreakAdapter) Name() string {
	return "newsbreak"
}

// Profile returns the NewsBreak selector profile
func (n *NewsBreakAdapter) Profile() *types.SelectorProfile {
	profile := n.BaseAdapter.Profile()
	profile.Name = n.Name()
	profile.StartURL = "https://www.newsbreak.com"
	return profile
}
