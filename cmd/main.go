package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ad-collector",
		Short: "Collect ads from paginated pages",
		Long: `ad-collector loads a page in Chrome, scrolls until lazily loaded content
has rendered, extracts ads from native ad frames, other frames and the page
itself, and appends the deduplicated records to a CSV file or SQLite database.
It then follows the next page control until none is left.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("env-file", "", "Load variables from this file instead of .env")

	cmd.AddCommand(NewCollectCmd())
	cmd.AddCommand(NewInspectCmd())
	cmd.AddCommand(NewProfileCmd())

	return cmd
}

func envFiles(cmd *cobra.Command) []string {
	if path, _ := cmd.Flags().GetString("env-file"); path != "" {
		return []string{path}
	}
	return nil
}
