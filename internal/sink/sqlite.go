package sink

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ad-collector/internal/types"
)

const insertBatchSize = 100

// AdRecord is the stored form of an ExtractedRecord
type AdRecord struct {
	ID             uint      `gorm:"primaryKey"`
	PageURL        string    `gorm:"column:page_url;type:text"`
	Advertiser     string    `gorm:"column:advertiser;type:text"`
	AdTag          string    `gorm:"column:ad_tag;type:text"`
	Headline       string    `gorm:"column:headline;type:text;index"`
	Body           string    `gorm:"column:body;type:text"`
	ImageSrc       string    `gorm:"column:image_src;type:text"`
	DestinationURL string    `gorm:"column:destination_url;type:text"`
	CollectedAt    time.Time `gorm:"column:collected_at;not null"`
	Context        string    `gorm:"column:context"`
	PageNumber     int       `gorm:"column:page_number;index"`
}

// TableName overrides the table name used by AdRecord
func (AdRecord) TableName() string {
	return "ad_records"
}

// SQLiteSink appends records to a SQLite database
type SQLiteSink struct {
	mu   sync.Mutex
	path string
	db   *gorm.DB
}

// OpenSQLite opens or creates the database at path and migrates the schema
func OpenSQLite(path string) (*SQLiteSink, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&AdRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteSink{path: path, db: db}, nil
}

// Append inserts records in one transaction. Empty batches are ignored.
func (s *SQLiteSink) Append(records []types.ExtractedRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]AdRecord, 0, len(records))
	for _, r := range records {
		rows = append(rows, AdRecord{
			PageURL:        r.SourcePageURL,
			Advertiser:     r.AdvertiserName,
			AdTag:          r.CategoryTag,
			Headline:       r.Headline,
			Body:           r.BodyText,
			ImageSrc:       r.ImageSrc,
			DestinationURL: r.DestinationURL,
			CollectedAt:    r.CollectedAt,
			Context:        r.Provenance,
			PageNumber:     r.PageIndex,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return types.ErrSinkClosed
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&rows, insertBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("failed to insert records: %w", err)
	}
	return nil
}

// Count returns the number of stored records
func (s *SQLiteSink) Count() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return 0, types.ErrSinkClosed
	}

	var n int64
	if err := s.db.Model(&AdRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// Location returns the database path
func (s *SQLiteSink) Location() string {
	return s.path
}

// Close closes the database connection
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	s.db = nil
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	return sqlDB.Close()
}
