package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ad-collector/adapters"
)

// NewProfileCmd creates the profile command
func NewProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Print the effective selector profile as YAML",
		Long: `Profile prints the selector profile collect would use. The output is a
valid --selectors file and a starting point for site specific overrides.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, _ := cmd.Flags().GetString("adapter")
			selectors, _ := cmd.Flags().GetString("selectors")

			profile, err := adapters.Resolve(adapter, selectors)
			if err != nil {
				return err
			}

			data, err := adapters.Marshal(profile)
			if err != nil {
				return fmt.Errorf("failed to render profile: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().String("adapter", "generic", fmt.Sprintf("Selector profile %v", adapters.Names()))
	cmd.Flags().String("selectors", "", "YAML file overriding parts of the selector profile")

	return cmd
}
