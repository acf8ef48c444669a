package utils

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"ad-collector/internal/types"
)

// Environment variables read by LoadEnv
const (
	EnvStartURL     = "AD_COLLECTOR_URL"
	EnvMaxPages     = "AD_COLLECTOR_MAX_PAGES"
	EnvHeadless     = "AD_COLLECTOR_HEADLESS"
	EnvSink         = "AD_COLLECTOR_CSV_FILE"
	EnvEngine       = "AD_COLLECTOR_ENGINE"
	EnvAdapter      = "AD_COLLECTOR_ADAPTER"
	EnvSelectors    = "AD_COLLECTOR_SELECTORS"
	EnvIterations   = "AD_COLLECTOR_ITERATIONS"
	EnvSettleDelay  = "AD_COLLECTOR_SETTLE_DELAY"
	EnvUserAgent    = "AD_COLLECTOR_USER_AGENT"
	EnvExtensionDir = "AD_COLLECTOR_EXTENSION_DIR"
	EnvUserDataDir  = "AD_COLLECTOR_USER_DATA_DIR"
)

// NewLauncher returns the page engine selected by config
func NewLauncher(config *types.Config, logger types.Logger) types.Launcher {
	if config.UseHeadlessBrowser {
		return NewBrowserClient(config, logger)
	}
	return NewStaticClient(config, logger)
}

// NewLogger creates the logger used by the command line tools
func NewLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()

	// Set timestamp format with milliseconds
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	// Set log level from LOG_LEVEL env if present
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			logger.SetLevel(level)
		}
	} else if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return logger
}

// LoadEnv loads .env files if present and applies AD_COLLECTOR_* variables
// to config. Malformed values are reported and left at their defaults.
func LoadEnv(config *types.Config, logger types.Logger, files ...string) {
	// Load .env file if present
	_ = godotenv.Load(files...)

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	// counts must not be negative
	setCount := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				logger.Warnf("Ignoring %s=%q: %v", key, v, err)
				return
			}
			if n < 0 {
				logger.Warnf("Ignoring %s=%q: must not be negative", key, v)
				return
			}
			*dst = n
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				logger.Warnf("Ignoring %s=%q: %v", key, v, err)
				return
			}
			*dst = b
		}
	}

	setString(EnvStartURL, &config.StartURL)
	setCount(EnvMaxPages, &config.PageCeiling)
	setBool(EnvHeadless, &config.Headless)
	setString(EnvSink, &config.SinkLocation)
	setString(EnvAdapter, &config.Adapter)
	setString(EnvSelectors, &config.SelectorsFile)
	setCount(EnvIterations, &config.StabilizationIterations)
	setString(EnvUserAgent, &config.UserAgent)
	setString(EnvExtensionDir, &config.ExtensionDir)
	setString(EnvUserDataDir, &config.UserDataDir)

	switch engine := os.Getenv(EnvEngine); engine {
	case "":
	case "browser":
		config.UseHeadlessBrowser = true
	case "static":
		config.UseHeadlessBrowser = false
	default:
		logger.Warnf("Ignoring %s=%q: want browser or static", EnvEngine, engine)
	}

	if v := os.Getenv(EnvSettleDelay); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			logger.Warnf("Ignoring %s=%q: %v", EnvSettleDelay, v, err)
		} else {
			config.SettleDelay = d
		}
	}
}

// parseSeconds accepts a duration such as "1.5s" or a plain number of seconds
func parseSeconds(v string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(v)
}
