package extractor

import (
	"context"
	"fmt"
	"time"

	"ad-collector/internal/types"
)

type state int

const (
	stateInit state = iota
	stateLoadingPage
	stateExtracting
	statePersisting
	stateAdvancingOrDone
	stateTerminated
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "Init"
	case stateLoadingPage:
		return "LoadingPage"
	case stateExtracting:
		return "Extracting"
	case statePersisting:
		return "Persisting"
	case stateAdvancingOrDone:
		return "AdvancingOrDone"
	case stateTerminated:
		return "Terminated"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Collector drives one collection session: it loads each page, extracts and
// deduplicates its ads, appends them to the sink and advances until no next
// page control is found or the page ceiling is reached.
type Collector struct {
	config   *types.Config
	launcher types.Launcher
	sink     types.Sink
	logger   types.Logger

	popups *PopupDismisser
	loader *ContentLoader
	frames *FrameExtractor
	dedupe Deduplicator
	pager  *PaginationController
}

// NewCollector wires a collector for profile
func NewCollector(config *types.Config, profile *types.SelectorProfile, launcher types.Launcher, sink types.Sink, logger types.Logger) *Collector {
	popups := NewPopupDismisser(config, profile.Popups, logger)
	return &Collector{
		config:   config,
		launcher: launcher,
		sink:     sink,
		logger:   logger,
		popups:   popups,
		loader:   NewContentLoader(config, popups, logger),
		frames:   NewFrameExtractor(config, profile, logger),
		dedupe:   Deduplicator{KeyOnDestination: config.KeyOnDestination},
		pager:    NewPaginationController(config, profile.Pagination, logger),
	}
}

// Run executes the session and returns its summary. The summary is returned
// even when the run fails or ctx is cancelled, together with the error.
func (c *Collector) Run(ctx context.Context) (*types.SessionSummary, error) {
	startTime := time.Now()
	session := types.NewCollectionSession(c.sink)

	c.logger.Infof("Starting automated ad collection from: %s", c.config.StartURL)
	if c.config.PageCeiling > 0 {
		c.logger.Infof("Maximum pages to process: %d", c.config.PageCeiling)
	} else {
		c.logger.Info("No page limit, will process all available pages")
	}

	page, err := c.launcher.Launch(ctx)
	if err != nil {
		return session.Summary(), fmt.Errorf("failed to open page session: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			c.logger.Debugf("Error closing page session: %v", err)
		}
	}()

	var records []types.ExtractedRecord
	current := stateInit
	for current != stateTerminated {
		if err := ctx.Err(); err != nil {
			c.logger.Warnf("Collection interrupted in state %s", current)
			return c.finish(session, startTime), err
		}

		switch current {
		case stateInit:
			if err := c.open(ctx, page); err != nil {
				return c.finish(session, startTime), err
			}
			current = stateLoadingPage

		case stateLoadingPage:
			c.logger.Infof("--- Processing page %d ---", session.CurrentPageIndex)
			c.load(ctx, page)
			current = stateExtracting

		case stateExtracting:
			records = c.extract(ctx, page, session.CurrentPageIndex)
			current = statePersisting

		case statePersisting:
			c.persist(session, records)
			records = nil
			current = stateAdvancingOrDone

		case stateAdvancingOrDone:
			current = c.advance(ctx, page, session)
		}
	}

	return c.finish(session, startTime), nil
}

// open navigates to the start URL and clears initial prompts
func (c *Collector) open(ctx context.Context, page types.Page) error {
	c.logger.Infof("Loading page 1: %s", c.config.StartURL)
	if err := page.Navigate(ctx, c.config.StartURL); err != nil {
		return fmt.Errorf("failed to load start page: %w", err)
	}

	c.logger.Info("Handling initial popups and notifications...")
	c.popups.Dismiss(ctx, page)
	if err := sleep(ctx, c.config.InitialPopupDelay); err != nil {
		return err
	}
	c.popups.Dismiss(ctx, page)
	return nil
}

func (c *Collector) load(ctx context.Context, page types.Page) {
	waitCtx, cancel := context.WithTimeout(ctx, c.config.WaitTimeout)
	err := page.WaitReady(waitCtx, "body")
	cancel()
	if err != nil {
		c.logger.Warnf("Page body not ready: %v", err)
	}

	if err := sleep(ctx, c.config.PageLoadDelay); err != nil {
		return
	}
	if err := c.loader.Stabilize(ctx, page); err != nil {
		return
	}
	c.popups.Dismiss(ctx, page)
}

func (c *Collector) extract(ctx context.Context, page types.Page, pageIndex int) []types.ExtractedRecord {
	c.logger.Infof("Collecting ads from page %d...", pageIndex)
	candidates := c.frames.ExtractPage(ctx, page)
	unique := c.dedupe.Dedupe(candidates)
	for i := range unique {
		unique[i].PageIndex = pageIndex
	}
	c.logger.Infof("Found %d unique ads on page %d (%d candidates)", len(unique), pageIndex, len(candidates))
	return unique
}

// persist appends the page batch. A failed append is logged and the page
// still counts as processed.
func (c *Collector) persist(session *types.CollectionSession, records []types.ExtractedRecord) {
	session.PagesProcessed++
	if len(records) == 0 {
		c.logger.Infof("No ads found on page %d", session.CurrentPageIndex)
		return
	}

	if err := session.Sink.Append(records); err != nil {
		c.logger.Errorf("Error saving page %d to %s: %v", session.CurrentPageIndex, session.Sink.Location(), err)
		return
	}
	session.TotalRecordsPersisted += len(records)
	c.logger.Infof("Saved %d ads (Total: %d)", len(records), session.TotalRecordsPersisted)
}

func (c *Collector) advance(ctx context.Context, page types.Page, session *types.CollectionSession) state {
	if c.config.PageCeiling > 0 && session.PagesProcessed >= c.config.PageCeiling {
		c.logger.Infof("Reached maximum page limit (%d)", c.config.PageCeiling)
		return stateTerminated
	}

	c.logger.Infof("Attempting to go to page %d...", session.CurrentPageIndex+1)
	if !c.pager.Advance(ctx, page) {
		c.logger.Infof("No more pages available. Stopping at page %d", session.CurrentPageIndex)
		return stateTerminated
	}

	if err := sleep(ctx, c.config.AdvanceDelay); err == nil {
		c.popups.Dismiss(ctx, page)
	}
	session.CurrentPageIndex++
	return stateLoadingPage
}

func (c *Collector) finish(session *types.CollectionSession, startTime time.Time) *types.SessionSummary {
	summary := session.Summary()
	c.logger.Infof("Collection finished in %v: %d pages processed, %d ads saved to %s",
		time.Since(startTime), summary.PagesProcessed, summary.RecordsPersisted, summary.SinkLocation)
	return summary
}
