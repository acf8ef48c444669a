package extractor

import (
	"context"
	"strings"
	"time"

	"ad-collector/internal/types"
)

// findMatching returns the elements under scope matching sel. Text is
// matched ignoring case. A lookup failure yields no elements.
func findMatching(ctx context.Context, page types.Page, scope types.Element, sel types.Selector) []types.Element {
	elements, err := page.QueryAll(ctx, scope, sel.CSS)
	if err != nil || sel.Text == "" {
		return elements
	}

	want := strings.ToLower(sel.Text)
	var matched []types.Element
	for _, el := range elements {
		text, err := page.Text(ctx, el)
		if err == nil && strings.Contains(strings.ToLower(text), want) {
			matched = append(matched, el)
		}
	}
	return matched
}

// firstOf returns the first element found by trying each selector in order
func firstOf(ctx context.Context, page types.Page, scope types.Element, chain []string) (types.Element, bool) {
	for _, css := range chain {
		if css == "" {
			continue
		}
		if el, ok := page.Query(ctx, scope, css); ok {
			return el, true
		}
	}
	return nil, false
}

// textOf returns the trimmed text of the first match of chain, or ""
func textOf(ctx context.Context, page types.Page, scope types.Element, chain ...string) string {
	el, ok := firstOf(ctx, page, scope, chain)
	if !ok {
		return ""
	}
	text, err := page.Text(ctx, el)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// attrOf returns the trimmed attribute of the first match of chain, or ""
func attrOf(ctx context.Context, page types.Page, scope types.Element, name string, chain ...string) string {
	el, ok := firstOf(ctx, page, scope, chain)
	if !ok {
		return ""
	}
	v, _ := el.Attribute(name)
	return strings.TrimSpace(v)
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
