package extractor

import (
	"context"

	"ad-collector/internal/types"
)

const (
	extraScrollAttempts = 3
	scrollNudgeScript   = `window.dispatchEvent(new Event('scroll'))`
)

// ContentLoader scrolls a page until lazily rendered content stops appearing
type ContentLoader struct {
	config *types.Config
	popups *PopupDismisser
	logger types.Logger
}

// NewContentLoader creates a new content loader
func NewContentLoader(config *types.Config, popups *PopupDismisser, logger types.Logger) *ContentLoader {
	return &ContentLoader{
		config: config,
		popups: popups,
		logger: logger,
	}
}

// Stabilize scrolls to the bottom until the document height stops growing,
// then returns to the top. Measurement failures count as stabilized; only
// cancellation of ctx is reported.
func (l *ContentLoader) Stabilize(ctx context.Context, page types.Page) error {
	l.logger.Info("Scrolling to load all content...")

	for i := 0; i < l.config.StabilizationIterations; i++ {
		before, err := page.ScrollHeight(ctx)
		if err != nil {
			l.logger.Debugf("Could not measure page height: %v", err)
			break
		}

		if err := page.ScrollToBottom(ctx); err != nil {
			l.logger.Debugf("Scroll to bottom failed: %v", err)
			break
		}
		if err := sleep(ctx, l.config.SettleDelay); err != nil {
			return err
		}

		// ignored: engines without script support have no lazy renderers to nudge
		_ = page.RunScript(ctx, scrollNudgeScript, nil)
		if err := sleep(ctx, l.config.NudgeDelay); err != nil {
			return err
		}

		l.popups.Dismiss(ctx, page)

		after, err := page.ScrollHeight(ctx)
		if err != nil {
			l.logger.Debugf("Could not measure page height: %v", err)
			break
		}
		l.logger.Debugf("Scroll iteration %d: height %d -> %d", i+1, before, after)

		if after == before {
			if err := l.extraScrolls(ctx, page); err != nil {
				return err
			}
			break
		}
	}

	if err := page.ScrollTo(ctx, 0); err != nil {
		l.logger.Debugf("Scroll to top failed: %v", err)
	}
	return sleep(ctx, l.config.ScrollTopDelay)
}

// extraScrolls gives renderers that lag behind the scroll event a few more chances
func (l *ContentLoader) extraScrolls(ctx context.Context, page types.Page) error {
	l.logger.Debug("Height unchanged, trying extra scrolls...")
	for i := 0; i < extraScrollAttempts; i++ {
		if err := page.ScrollToBottom(ctx); err != nil {
			l.logger.Debugf("Extra scroll %d failed: %v", i+1, err)
			return nil
		}
		if err := sleep(ctx, l.config.ExtraScrollDelay); err != nil {
			return err
		}
		l.popups.Dismiss(ctx, page)
	}
	return nil
}
