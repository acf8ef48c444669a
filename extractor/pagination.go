package extractor

import (
	"context"
	"errors"
	"strings"

	"ad-collector/internal/types"
)

// PaginationController finds and activates the control leading to the next page
type PaginationController struct {
	config    *types.Config
	selectors []types.Selector
	logger    types.Logger
}

// NewPaginationController creates a controller trying selectors in order
func NewPaginationController(config *types.Config, selectors []types.Selector, logger types.Logger) *PaginationController {
	return &PaginationController{
		config:    config,
		selectors: selectors,
		logger:    logger,
	}
}

// FindAdvanceControl returns the first visible and enabled element matched
// by the selector chain
func (p *PaginationController) FindAdvanceControl(ctx context.Context, page types.Page) (types.Element, bool) {
	for _, sel := range p.selectors {
		for _, el := range findMatching(ctx, page, nil, sel) {
			if page.Interactable(ctx, el) {
				p.logger.Debugf("Advance control matched %s", sel)
				return el, true
			}
		}
	}
	return nil, false
}

// Advance activates the next page control. A click blocked by an overlay is
// retried through script. It returns false when there is no control or
// activation failed, which ends pagination.
func (p *PaginationController) Advance(ctx context.Context, page types.Page) bool {
	p.logger.Info("Looking for next page button...")
	control, ok := p.FindAdvanceControl(ctx, page)
	if !ok {
		p.logger.Info("No next page button found")
		return false
	}
	p.logger.Infof("Found next page button: %s", p.describe(ctx, page, control))

	if err := page.ScrollIntoView(ctx, control); err != nil {
		p.logger.Debugf("Scroll into view failed: %v", err)
	}
	if err := sleep(ctx, p.config.ScrollIntoViewDelay); err != nil {
		return false
	}

	err := page.Click(ctx, control)
	if errors.Is(err, types.ErrClickIntercepted) {
		p.logger.Debug("Click intercepted, retrying with script")
		if err = page.ClickByScript(ctx, control); err == nil {
			p.logger.Info("Clicked next page button using script")
			return true
		}
	}
	if err != nil {
		p.logger.Warnf("Error clicking next page button: %v", err)
		return false
	}

	p.logger.Info("Clicked next page button")
	return true
}

func (p *PaginationController) describe(ctx context.Context, page types.Page, el types.Element) string {
	if text, err := page.Text(ctx, el); err == nil && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text)
	}
	if aria, ok := el.Attribute("aria-label"); ok && aria != "" {
		return aria
	}
	return "Unknown"
}
