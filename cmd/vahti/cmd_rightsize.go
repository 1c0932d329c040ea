package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yairfalse/vahti/types"
)

var rightsizeOwner string

var rightsizeCmd = &cobra.Command{
	Use:   "rightsize",
	Short: "Inspect and apply rightsizing recommendations",
}

var rightsizeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending recommendations for an owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		recs, err := a.coordinator.ListRecommendations(cmd.Context(), rightsizeOwner, types.RecommendationPending)
		if err != nil {
			return err
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"Resource", "Current", "Recommended", "Confidence", "Monthly Savings"})
		for _, r := range recs {
			tw.AppendRow(table.Row{
				r.ResourceID, r.CurrentClass, r.RecommendedClass,
				fmt.Sprintf("%.0f%%", r.Confidence*100),
				fmt.Sprintf("$%.2f", r.EstimatedSavings),
			})
		}
		tw.SetStyle(table.StyleRounded)
		tw.Render()
		return nil
	},
}

var rightsizeApplyCmd = &cobra.Command{
	Use:   "apply <resource-id>",
	Short: "Apply the pending recommendation for a resource",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		outcome, err := a.coordinator.ApplyRightsizing(cmd.Context(), args[0], rightsizeOwner)
		if err != nil {
			return err
		}
		fmt.Printf("Applied: %s\n", outcome.Message)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rightsizeCmd)
	rightsizeCmd.AddCommand(rightsizeListCmd, rightsizeApplyCmd)

	rightsizeCmd.PersistentFlags().StringVar(&rightsizeOwner, "owner", "", "Owner to act as (required)")
	_ = rightsizeCmd.MarkPersistentFlagRequired("owner")
}
