package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ad-collector/adapters"
	"ad-collector/extractor"
	"ad-collector/internal/sink"
	"ad-collector/internal/types"
	"ad-collector/utils"
)

// NewCollectCmd creates the collect command
func NewCollectCmd() *cobra.Command {
	defaults := types.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect ads from every page reachable through the next page control",
		Long: `Collect starts at --url and processes pages until no next page control is
found or --max-pages pages have been processed. Records are appended to
--csv-file; a path ending in .db, .sqlite or .sqlite3 selects SQLite.

Settings are read from AD_COLLECTOR_* variables (and a .env file) first;
flags override them.

Examples:
  # Collect every page of the default site
  ad-collector collect

  # Stop after three pages, headless, into SQLite
  ad-collector collect --max-pages 3 --headless --csv-file ads.db

  # Fetch without a browser using custom selectors
  ad-collector collect --engine static --selectors selectors.yaml`,
		Args: cobra.NoArgs,
		RunE: runCollectCmd,
	}

	cmd.Flags().String("url", defaults.StartURL, "Starting URL")
	cmd.Flags().Int("max-pages", 0, "Maximum number of pages to process (0 processes all pages)")
	cmd.Flags().Bool("headless", defaults.Headless, "Run Chrome in headless mode")
	cmd.Flags().String("engine", "browser", "Page engine: browser or static")
	cmd.Flags().String("csv-file", defaults.SinkLocation, "File to append records to")
	cmd.Flags().String("adapter", defaults.Adapter, fmt.Sprintf("Selector profile %v", adapters.Names()))
	cmd.Flags().String("selectors", "", "YAML file overriding parts of the selector profile")
	cmd.Flags().Int("iterations", defaults.StabilizationIterations, "Maximum scroll iterations per page")
	cmd.Flags().Float64("settle-delay", defaults.SettleDelay.Seconds(), "Seconds to wait after each scroll")
	cmd.Flags().Duration("timeout", defaults.Timeout, "Navigation timeout")
	cmd.Flags().Bool("key-on-destination", false, "Keep ads with only a destination URL, deduplicated by that URL")
	cmd.Flags().String("extension-dir", "", "Unpacked Chrome extension to load")
	cmd.Flags().String("user-data-dir", "", "Chrome profile directory to persist sessions in")

	return cmd
}

func runCollectCmd(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := utils.NewLogger(verbose)

	config := types.DefaultConfig()
	utils.LoadEnv(config, logger, envFiles(cmd)...)
	if err := applyCollectFlags(cmd, config); err != nil {
		return err
	}

	profile, err := adapters.Resolve(config.Adapter, config.SelectorsFile)
	if err != nil {
		return fmt.Errorf("failed to load selector profile: %w", err)
	}
	if !cmd.Flags().Changed("url") && os.Getenv(utils.EnvStartURL) == "" && profile.StartURL != "" {
		config.StartURL = profile.StartURL
	}

	out, err := sink.Open(config.SinkLocation)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			logger.Warnf("Failed to close %s: %v", out.Location(), err)
		}
	}()

	// Set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := extractor.NewCollector(config, profile, utils.NewLauncher(config, logger), out, logger)
	summary, err := collector.Run(ctx)

	// Print summary
	logger.Info("============================================================")
	logger.Infof("Total pages processed: %d", summary.PagesProcessed)
	logger.Infof("Total ads collected: %d", summary.RecordsPersisted)
	logger.Infof("Data saved to: %s", summary.SinkLocation)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		logger.Warn("Collection interrupted by user")
		return nil
	default:
		return fmt.Errorf("collection failed: %w", err)
	}
}

// applyCollectFlags overrides config with the flags set on the command line
func applyCollectFlags(cmd *cobra.Command, config *types.Config) error {
	flags := cmd.Flags()

	if flags.Changed("url") {
		config.StartURL, _ = flags.GetString("url")
	}
	if flags.Changed("max-pages") {
		config.PageCeiling, _ = flags.GetInt("max-pages")
		if config.PageCeiling < 0 {
			return fmt.Errorf("--max-pages must not be negative")
		}
	}
	if flags.Changed("headless") {
		config.Headless, _ = flags.GetBool("headless")
	}
	if flags.Changed("engine") {
		switch engine, _ := flags.GetString("engine"); engine {
		case "browser":
			config.UseHeadlessBrowser = true
		case "static":
			config.UseHeadlessBrowser = false
		default:
			return fmt.Errorf("unknown engine %q: want browser or static", engine)
		}
	}
	if flags.Changed("csv-file") {
		config.SinkLocation, _ = flags.GetString("csv-file")
	}
	if flags.Changed("adapter") {
		config.Adapter, _ = flags.GetString("adapter")
	}
	if flags.Changed("selectors") {
		config.SelectorsFile, _ = flags.GetString("selectors")
	}
	if flags.Changed("iterations") {
		config.StabilizationIterations, _ = flags.GetInt("iterations")
	}
	if flags.Changed("settle-delay") {
		secs, _ := flags.GetFloat64("settle-delay")
		config.SettleDelay = time.Duration(secs * float64(time.Second))
	}
	if flags.Changed("timeout") {
		config.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("key-on-destination") {
		config.KeyOnDestination, _ = flags.GetBool("key-on-destination")
	}
	if flags.Changed("extension-dir") {
		config.ExtensionDir, _ = flags.GetString("extension-dir")
	}
	if flags.Changed("user-data-dir") {
		config.UserDataDir, _ = flags.GetString("user-data-dir")
	}
	return nil
}
