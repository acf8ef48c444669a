package sink

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"ad-collector/internal/types"
)

// CSVSink appends records to a CSV file. The header is written once, when
// the file is created or empty.
type CSVSink struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// OpenCSV opens path for appending
func OpenCSV(path string) (*CSVSink, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV sink %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat CSV sink %s: %w", path, err)
	}

	if info.Size() == 0 {
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		_ = w.Write(Columns)
		w.Flush()
		if _, err := file.Write(buf.Bytes()); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write CSV header: %w", err)
		}
	}

	return &CSVSink{path: path, file: file}, nil
}

// Append writes records as a single append. Empty batches are ignored.
func (s *CSVSink) Append(records []types.ExtractedRecord) error {
	if len(records) == 0 {
		return nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, r := range records {
		if err := w.Write(row(r)); err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return types.ErrSinkClosed
	}
	if _, err := s.file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to append to %s: %w", s.path, err)
	}
	return s.file.Sync()
}

// Location returns the CSV file path
func (s *CSVSink) Location() string {
	return s.path
}

// Close closes the file. Appending afterwards fails with ErrSinkClosed.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func row(r types.ExtractedRecord) []string {
	return []string{
		r.SourcePageURL,
		r.AdvertiserName,
		r.CategoryTag,
		r.Headline,
		r.BodyText,
		r.ImageSrc,
		r.DestinationURL,
		r.CollectedAt.Format(TimeLayout),
		r.Provenance,
		strconv.Itoa(r.PageIndex),
	}
}
