package extractor

import (
	"slices"

	"github.com/cespare/xxhash/v2"

	"ad-collector/internal/types"
)

// Deduplicator collapses repeated records, keeping the first occurrence
type Deduplicator struct {
	// KeyOnDestination keys records without headline and image on their
	// destination URL instead of dropping them
	KeyOnDestination bool

	// hash buckets identities; nil means xxhash
	hash func(identity) uint64
}

// identity is the part of a record that decides whether two records are the
// same ad. Destination-keyed identities have an empty headline and image.
type identity struct {
	headline    string
	image       string
	destination string
}

func (id identity) sum() uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(id.headline)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(id.image)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(id.destination)
	return h.Sum64()
}

// Dedupe returns records in arrival order with duplicates removed. Records
// keyed on an empty headline and image are dropped.
func (d Deduplicator) Dedupe(records []types.ExtractedRecord) []types.ExtractedRecord {
	hash := d.hash
	if hash == nil {
		hash = identity.sum
	}

	seen := make(map[uint64][]identity, len(records))
	unique := make([]types.ExtractedRecord, 0, len(records))

	for _, r := range records {
		id, ok := d.identify(r)
		if !ok {
			continue
		}
		bucket := hash(id)
		if slices.Contains(seen[bucket], id) {
			continue
		}
		seen[bucket] = append(seen[bucket], id)
		unique = append(unique, r)
	}
	return unique
}

func (d Deduplicator) identify(r types.ExtractedRecord) (identity, bool) {
	if r.Headline == "" && r.ImageSrc == "" {
		if !d.KeyOnDestination || r.DestinationURL == "" {
			return identity{}, false
		}
		return identity{destination: r.DestinationURL}, true
	}
	return identity{headline: r.Headline, image: r.ImageSrc}, true
}
