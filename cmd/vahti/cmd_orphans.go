package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var orphansOwner string

var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "Find and inspect orphaned resources",
}

var orphansScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan an owner's account for orphaned resources",
	Long: `Scan one owner's account and reconcile the findings.

Detects unattached volumes, unassociated addresses, instances stopped
past the threshold, and detached network interfaces. Resources that
disappeared since the last scan are dropped from the inventory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		result, err := a.coordinator.DetectOrphanedResources(cmd.Context(), orphansOwner)
		if err != nil {
			return err
		}
		fmt.Printf("Scan complete: %d new, %d refreshed, %d removed\n",
			result.New, result.Refreshed, result.Removed)
		return nil
	},
}

var orphansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List detected orphans for an owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		orphans, err := a.coordinator.ListOrphans(cmd.Context(), orphansOwner)
		if err != nil {
			return err
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Resource", "Kind", "Class", "Risk", "Monthly Cost", "Status", "Detected"})
		total := 0.0
		for _, o := range orphans {
			tw.AppendRow(table.Row{
				o.ResourceID, o.ResourceKind, o.Classification, o.Risk,
				fmt.Sprintf("$%.2f", o.MonthlyCost), o.Status,
				o.DetectedAt.Format("2006-01-02"),
			})
			total += o.MonthlyCost
		}
		tw.AppendFooter(table.Row{"", "", "", "Total", fmt.Sprintf("$%.2f", total), "", ""})
		tw.SetStyle(table.StyleRounded)
		tw.Render()
		return nil
	},
}

var orphansHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List cleaned-up orphans for an owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		cleaned, err := a.coordinator.ListCleaned(cmd.Context(), orphansOwner)
		if err != nil {
			return err
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Resource", "Kind", "Monthly Cost", "Cleaned"})
		for _, o := range cleaned {
			tw.AppendRow(table.Row{
				o.ResourceID, o.ResourceKind,
				fmt.Sprintf("$%.2f", o.MonthlyCost),
				o.CleanedAt.Format("2006-01-02 15:04"),
			})
		}
		tw.SetStyle(table.StyleRounded)
		tw.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(orphansCmd)
	orphansCmd.AddCommand(orphansScanCmd, orphansListCmd, orphansHistoryCmd)

	orphansCmd.PersistentFlags().StringVar(&orphansOwner, "owner", "", "Owner to act as (required)")
	_ = orphansCmd.MarkPersistentFlagRequired("owner")
}
