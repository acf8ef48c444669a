// Package sink stores harvested records in append-only destinations.
package sink

import (
	"path/filepath"
	"strings"

	"ad-collector/internal/types"
)

// TimeLayout is the layout of collected_at values
const TimeLayout = "2006-01-02 15:04:05"

// Columns is the fixed record schema, in storage order
var Columns = []string{
	"page_url",
	"advertiser",
	"ad_tag",
	"headline",
	"body",
	"image_src",
	"destination_url",
	"collected_at",
	"context",
	"page_number",
}

// Open opens the sink at location, creating it when missing and reusing it
// otherwise. SQLite files are recognised by extension; anything else is CSV.
func Open(location string) (types.Sink, error) {
	switch strings.ToLower(filepath.Ext(location)) {
	case ".db", ".sqlite", ".sqlite3":
		s, err := OpenSQLite(location)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		s, err := OpenCSV(location)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
