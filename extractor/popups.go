package extractor

import (
	"context"
	"strings"

	"ad-collector/internal/types"
)

// promptLevels bounds how far above a prompt text its buttons are searched
const promptLevels = 3

// PopupDismisser clicks away notification prompts, consent banners and
// modal overlays. Dismissal is best-effort and never reports failure.
type PopupDismisser struct {
	config    *types.Config
	selectors types.PopupSelectors
	logger    types.Logger
}

// NewPopupDismisser creates a dismisser for the given popup selectors
func NewPopupDismisser(config *types.Config, selectors types.PopupSelectors, logger types.Logger) *PopupDismisser {
	return &PopupDismisser{
		config:    config,
		selectors: selectors,
		logger:    logger,
	}
}

// Dismiss answers permission prompts, then tries every notification, cookie
// and close selector in order. It returns the number of elements clicked.
func (d *PopupDismisser) Dismiss(ctx context.Context, page types.Page) int {
	clicked := d.answerPrompts(ctx, page)
	for _, group := range [][]types.Selector{
		d.selectors.Notification,
		d.selectors.Cookie,
		d.selectors.Close,
	} {
		for _, sel := range group {
			if ctx.Err() != nil {
				return clicked
			}
			if d.clickFirst(ctx, page, nil, sel) {
				clicked++
			}
		}
	}
	return clicked
}

// answerPrompts clicks a prompt action found in the nearest ancestors of
// each prompt text, trying the closest ancestor first
func (d *PopupDismisser) answerPrompts(ctx context.Context, page types.Page) int {
	if len(d.selectors.PromptAction) == 0 {
		return 0
	}

	clicked := 0
	for _, text := range d.selectors.Prompts {
		if ctx.Err() != nil {
			return clicked
		}
		found, err := page.SearchText(ctx, text)
		if err != nil {
			d.logger.Debugf("Prompt search for %q failed: %v", text, err)
			continue
		}

		for _, el := range found {
			if d.answerPrompt(ctx, page, el) {
				clicked++
			}
		}
	}
	return clicked
}

func (d *PopupDismisser) answerPrompt(ctx context.Context, page types.Page, prompt types.Element) bool {
	for level := 1; level <= promptLevels; level++ {
		region, ok := page.Ancestor(ctx, prompt, level)
		if !ok {
			return false
		}
		for _, sel := range d.selectors.PromptAction {
			if d.clickFirst(ctx, page, region, sel) {
				return true
			}
		}
	}
	return false
}

// clickFirst clicks the first usable element under scope matching sel
func (d *PopupDismisser) clickFirst(ctx context.Context, page types.Page, scope types.Element, sel types.Selector) bool {
	for _, el := range findMatching(ctx, page, scope, sel) {
		if !page.Interactable(ctx, el) {
			continue
		}

		label := d.label(ctx, page, el)
		if d.skipped(label) {
			continue
		}

		if err := page.Click(ctx, el); err != nil {
			d.logger.Debugf("Popup click on %s failed: %v", sel, err)
			continue
		}
		d.logger.Infof("Dismissed popup via %s: %q", sel, label)
		_ = sleep(ctx, d.config.PopupClickDelay)
		return true
	}
	return false
}

// label is the element text, or its aria-label when it has no text
func (d *PopupDismisser) label(ctx context.Context, page types.Page, el types.Element) string {
	if text, err := page.Text(ctx, el); err == nil && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text)
	}
	aria, _ := el.Attribute("aria-label")
	return strings.TrimSpace(aria)
}

func (d *PopupDismisser) skipped(label string) bool {
	label = strings.ToLower(label)
	for _, skip := range d.selectors.SkipTexts {
		if skip != "" && strings.Contains(label, strings.ToLower(skip)) {
			return true
		}
	}
	return false
}
