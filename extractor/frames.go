package extractor

import (
	"context"
	"fmt"
	"strings"

	"ad-collector/internal/types"
)

// FrameExtractor walks the native ad frames, the remaining frames and the
// top-level document of a page, in that order
type FrameExtractor struct {
	config  *types.Config
	profile *types.SelectorProfile
	fields  *FieldExtractor
	logger  types.Logger
}

// NewFrameExtractor creates a frame extractor for profile
func NewFrameExtractor(config *types.Config, profile *types.SelectorProfile, logger types.Logger) *FrameExtractor {
	return &FrameExtractor{
		config:  config,
		profile: profile,
		fields:  NewFieldExtractor(profile.Fields),
		logger:  logger,
	}
}

// ExtractPage returns the candidate records of the current page in
// discovery order. Records are not deduplicated.
func (f *FrameExtractor) ExtractPage(ctx context.Context, page types.Page) []types.ExtractedRecord {
	var records []types.ExtractedRecord
	records = append(records, f.nativeFrames(ctx, page)...)
	records = append(records, f.otherFrames(ctx, page)...)
	records = append(records, f.mainPage(ctx, page)...)
	return records
}

func (f *FrameExtractor) nativeFrames(ctx context.Context, page types.Page) []types.ExtractedRecord {
	if f.profile.NativeFrame == "" {
		return nil
	}
	frames, err := page.QueryAll(ctx, nil, f.profile.NativeFrame)
	if err != nil {
		f.logger.Warnf("Error collecting from native ad frames: %v", err)
		return nil
	}
	f.logger.Infof("Found %d native ad frames", len(frames))

	var records []types.ExtractedRecord
	for i, el := range frames {
		provenance := fmt.Sprintf("%s:%d", types.ProvenanceNativeFrame, i+1)
		found, err := f.withinFrame(ctx, page, el, func(frame types.Frame) []types.ExtractedRecord {
			if err := sleep(ctx, f.config.FrameSettleDelay); err != nil {
				return nil
			}
			var out []types.ExtractedRecord
			out = append(out, f.collect(ctx, page, frame.Root(), frame.URL(), f.profile.ClickThrough, true, provenance)...)
			out = append(out, f.collect(ctx, page, frame.Root(), frame.URL(), f.profile.AdContainer, false, provenance)...)
			return out
		})
		if err != nil {
			f.logger.Warnf("Error processing native frame %d: %v", i+1, err)
			continue
		}
		f.logger.Debugf("Native frame %d yielded %d candidates", i+1, len(found))
		records = append(records, found...)
	}
	return records
}

// otherFrames visits every frame whose class lacks the native marker.
// Indexes count all frames of the page.
func (f *FrameExtractor) otherFrames(ctx context.Context, page types.Page) []types.ExtractedRecord {
	if f.profile.AnyFrame == "" {
		return nil
	}
	frames, err := page.QueryAll(ctx, nil, f.profile.AnyFrame)
	if err != nil {
		f.logger.Warnf("Error collecting from other frames: %v", err)
		return nil
	}

	var records []types.ExtractedRecord
	for i, el := range frames {
		if f.isNative(el) {
			continue
		}
		provenance := fmt.Sprintf("%s:%d", types.ProvenanceOtherFrame, i+1)
		found, err := f.withinFrame(ctx, page, el, func(frame types.Frame) []types.ExtractedRecord {
			return f.collect(ctx, page, frame.Root(), frame.URL(), f.profile.AdContainer, false, provenance)
		})
		if err != nil {
			f.logger.Debugf("Error processing other frame %d: %v", i+1, err)
			continue
		}
		f.logger.Debugf("Other frame %d yielded %d candidates", i+1, len(found))
		records = append(records, found...)
	}
	return records
}

func (f *FrameExtractor) mainPage(ctx context.Context, page types.Page) []types.ExtractedRecord {
	if err := page.ExitToTop(ctx); err != nil {
		f.logger.Warnf("Could not return to top-level document: %v", err)
	}
	base, _ := page.CurrentURL(ctx)
	return f.collect(ctx, page, nil, base, f.profile.MainPage, false, types.ProvenanceMainPage)
}

// withinFrame enters the frame of el, runs fn and always returns to the
// top-level document afterwards
func (f *FrameExtractor) withinFrame(ctx context.Context, page types.Page, el types.Element, fn func(types.Frame) []types.ExtractedRecord) (records []types.ExtractedRecord, err error) {
	defer func() {
		if exitErr := page.ExitToTop(ctx); exitErr != nil {
			f.logger.Debugf("Exit to top-level document failed: %v", exitErr)
		}
	}()

	frame, err := page.EnterFrame(ctx, el)
	if err != nil {
		return nil, err
	}
	return fn(frame), nil
}

// collect extracts a record from every element matching each selector
func (f *FrameExtractor) collect(ctx context.Context, page types.Page, scope types.Element, base string, chain []string, anchor bool, provenance string) []types.ExtractedRecord {
	var records []types.ExtractedRecord
	for _, css := range chain {
		elements, err := page.QueryAll(ctx, scope, css)
		if err != nil {
			f.logger.Debugf("Selector %s failed in %s: %v", css, provenance, err)
			continue
		}
		for _, el := range elements {
			if ctx.Err() != nil {
				return records
			}
			record, ok := f.fields.Extract(ctx, page, Candidate{Element: el, BaseURL: base, Anchor: anchor}, provenance)
			if ok {
				records = append(records, record)
			}
		}
	}
	return records
}

func (f *FrameExtractor) isNative(el types.Element) bool {
	if f.profile.FrameMarker == "" {
		return false
	}
	class, _ := el.Attribute("class")
	return strings.Contains(strings.ToLower(class), strings.ToLower(f.profile.FrameMarker))
}
