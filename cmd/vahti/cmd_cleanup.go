package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	cleanupOwner string
	cleanupForce bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup <resource-id>",
	Short: "Destroy a detected orphan",
	Long: `Destroy one detected orphaned resource.

Low and medium risk orphans clean up immediately. High risk orphans
are refused unless --force is given.`,
	Example: `  vahti cleanup vol-0abc123 --owner alice
  vahti cleanup vol-0big456 --owner alice --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		result, err := a.coordinator.CleanupOrphanedResource(cmd.Context(), args[0], cleanupOwner, cleanupForce)
		if err != nil {
			return err
		}

		if !result.Success {
			if result.RequiresForce {
				return fmt.Errorf("%s is %s risk, rerun with --force to clean it up", args[0], result.Risk)
			}
			return fmt.Errorf("cleanup denied: %s", result.Reason)
		}

		fmt.Printf("Cleaned up %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().StringVar(&cleanupOwner, "owner", "", "Owner to act as (required)")
	cleanupCmd.Flags().BoolVar(&cleanupForce, "force", false, "Allow high risk cleanup")
	_ = cleanupCmd.MarkFlagRequired("owner")
}
