package types

import (
	"errors"
	"time"
)

// Provenance names used to tag records with the context that produced them
const (
	ProvenanceNativeFrame = "nativeFrame"
	ProvenanceOtherFrame  = "otherFrame"
	ProvenanceMainPage    = "mainPage"
)

// Common errors
var (
	ErrClickIntercepted  = errors.New("click intercepted by another element")
	ErrNotNavigable      = errors.New("element cannot be activated")
	ErrScriptUnsupported = errors.New("script execution not supported by this engine")
	ErrNoFrameDocument   = errors.New("frame has no accessible document")
	ErrSinkClosed        = errors.New("sink is closed")
	ErrUnknownAdapter    = errors.New("unknown adapter")
	ErrConfigNotFound    = errors.New("configuration file not found")
)

// ExtractedRecord represents one harvested ad
type ExtractedRecord struct {
	SourcePageURL  string    `json:"page_url"`
	AdvertiserName string    `json:"advertiser"`
	CategoryTag    string    `json:"ad_tag"`
	Headline       string    `json:"headline"`
	BodyText       string    `json:"body"`
	ImageSrc       string    `json:"image_src"`
	DestinationURL string    `json:"destination_url"`
	CollectedAt    time.Time `json:"collected_at"`
	Provenance     string    `json:"context"`
	PageIndex      int       `json:"page_number"`
}

// HasContent reports whether the record carries at least one identifying field
func (r ExtractedRecord) HasContent() bool {
	return r.Headline != "" || r.ImageSrc != "" || r.DestinationURL != ""
}

// CollectionSession holds the state of one collection run. It is owned by
// the collector and never shared.
type CollectionSession struct {
	CurrentPageIndex      int
	PagesProcessed        int
	TotalRecordsPersisted int
	Sink                  Sink
}

// NewCollectionSession creates a session positioned on the first page
func NewCollectionSession(sink Sink) *CollectionSession {
	return &CollectionSession{
		CurrentPageIndex: 1,
		Sink:             sink,
	}
}

// Summary returns the counters reported to the caller at termination
func (s *CollectionSession) Summary() *SessionSummary {
	summary := &SessionSummary{
		PagesProcessed:   s.PagesProcessed,
		RecordsPersisted: s.TotalRecordsPersisted,
	}
	if s.Sink != nil {
		summary.SinkLocation = s.Sink.Location()
	}
	return summary
}

// SessionSummary is returned when a collection run terminates
type SessionSummary struct {
	PagesProcessed   int    `json:"pages_processed"`
	RecordsPersisted int    `json:"records_persisted"`
	SinkLocation     string `json:"sink_location"`
}

// Sink is the append-only destination for harvested records
type Sink interface {
	// Append stores records as one batch. Records are never rewritten.
	Append(records []ExtractedRecord) error

	// Location returns where records are stored
	Location() string

	Close() error
}

// Config holds the configuration for a collection run
type Config struct {
	StartURL                string
	PageCeiling             int // 0 means no limit
	Headless                bool
	SinkLocation            string
	StabilizationIterations int
	SettleDelay             time.Duration

	NudgeDelay          time.Duration
	ExtraScrollDelay    time.Duration
	ScrollTopDelay      time.Duration
	InitialPopupDelay   time.Duration
	PageLoadDelay       time.Duration
	FrameSettleDelay    time.Duration
	AdvanceDelay        time.Duration
	ScrollIntoViewDelay time.Duration
	PopupClickDelay     time.Duration
	WaitTimeout         time.Duration

	UseHeadlessBrowser bool
	Timeout            time.Duration
	RequestDelay       time.Duration
	MaxRetries         int
	UserAgent          string
	WindowWidth        int
	WindowHeight       int
	ExtensionDir       string
	UserDataDir        string
	Latitude           float64
	Longitude          float64
	TimezoneID         string

	Adapter          string
	SelectorsFile    string
	KeyOnDestination bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		StartURL:                "https://www.newsbreak.com",
		Headless:                false,
		SinkLocation:            "ad_data_collection.csv",
		StabilizationIterations: 10,
		SettleDelay:             3 * time.Second,

		NudgeDelay:          1200 * time.Millisecond,
		ExtraScrollDelay:    2 * time.Second,
		ScrollTopDelay:      2 * time.Second,
		InitialPopupDelay:   3 * time.Second,
		PageLoadDelay:       6 * time.Second,
		FrameSettleDelay:    2 * time.Second,
		AdvanceDelay:        5 * time.Second,
		ScrollIntoViewDelay: 1 * time.Second,
		PopupClickDelay:     1 * time.Second,
		WaitTimeout:         15 * time.Second,

		UseHeadlessBrowser: true,
		Timeout:            60 * time.Second,
		RequestDelay:       1 * time.Second,
		MaxRetries:         3,
		UserAgent:          "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		WindowWidth:        1920,
		WindowHeight:       1080,
		Latitude:           40.7128,
		Longitude:          -74.0060,
		TimezoneID:         "America/New_York",

		Adapter: "generic",
	}
}

// WithoutDelays returns a copy of the config with every settle delay set to zero
func (c *Config) WithoutDelays() *Config {
	cp := *c
	cp.SettleDelay = 0
	cp.NudgeDelay = 0
	cp.ExtraScrollDelay = 0
	cp.ScrollTopDelay = 0
	cp.InitialPopupDelay = 0
	cp.PageLoadDelay = 0
	cp.FrameSettleDelay = 0
	cp.AdvanceDelay = 0
	cp.ScrollIntoViewDelay = 0
	cp.PopupClickDelay = 0
	cp.RequestDelay = time.Millisecond
	return &cp
}

// Logger defines the logging interface
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}
