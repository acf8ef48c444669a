package extractor

import (
	"context"
	"strings"
	"time"

	"ad-collector/internal/types"
	"ad-collector/utils"
)

// Candidate is an element that may hold one ad
type Candidate struct {
	Element types.Element
	// BaseURL is the document URL used to resolve the candidate's links
	BaseURL string
	// Anchor marks click-through links, whose own href and text are used
	Anchor bool
}

// FieldExtractor derives records from candidate elements with fallback chains
type FieldExtractor struct {
	fields types.FieldSelectors
	now    func() time.Time
}

// NewFieldExtractor creates a field extractor for the given sub-element selectors
func NewFieldExtractor(fields types.FieldSelectors) *FieldExtractor {
	return &FieldExtractor{
		fields: fields,
		now:    time.Now,
	}
}

// Extract builds a record from c. It returns false when the candidate has
// no headline, image or destination. Every field is looked up independently
// and a missing sub-element leaves only that field empty.
func (f *FieldExtractor) Extract(ctx context.Context, page types.Page, c Candidate, provenance string) (types.ExtractedRecord, bool) {
	el := c.Element
	record := types.ExtractedRecord{
		Headline:       textOf(ctx, page, el, f.fields.Headline...),
		ImageSrc:       utils.ResolveURL(c.BaseURL, attrOf(ctx, page, el, "src", f.fields.Image...)),
		AdvertiserName: textOf(ctx, page, el, f.fields.Advertiser),
		CategoryTag:    textOf(ctx, page, el, f.fields.Tag),
		BodyText:       textOf(ctx, page, el, f.fields.Body),
		Provenance:     provenance,
		CollectedAt:    f.now(),
	}

	if c.Anchor {
		href, _ := el.Attribute("href")
		record.DestinationURL = utils.ResolveURL(c.BaseURL, href)
		if record.Headline == "" {
			if text, err := page.Text(ctx, el); err == nil {
				record.Headline = strings.TrimSpace(text)
			}
		}
	} else {
		record.DestinationURL = utils.ResolveURL(c.BaseURL, attrOf(ctx, page, el, "href", f.fields.Link))
	}

	if !record.HasContent() {
		return types.ExtractedRecord{}, false
	}

	if url, err := page.CurrentURL(ctx); err == nil {
		record.SourcePageURL = url
	}
	return record, true
}
