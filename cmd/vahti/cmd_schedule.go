package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/yairfalse/vahti/types"
)

var (
	scheduleOwner    string
	scheduleName     string
	scheduleCron     string
	scheduleTimezone string
	scheduleKind     string
	scheduleClass    string
	scheduleForce    bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage scheduled lifecycle actions",
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedules for an owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		schedules, err := a.coordinator.ListSchedules(cmd.Context(), scheduleOwner)
		if err != nil {
			return err
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"ID", "Name", "Resource", "Action", "Cron", "TZ", "Active", "Last Outcome"})
		for _, s := range schedules {
			tw.AppendRow(table.Row{
				s.ID, s.Name, s.ResourceID, s.Action, s.CronExpr, s.Timezone, s.Active, s.LastOutcome,
			})
		}
		tw.SetStyle(table.StyleRounded)
		tw.Render()
		return nil
	},
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add <action> <resource-id>",
	Short: "Create a schedule",
	Long: `Create a recurring scheduled action against one resource.

Actions: shutdown, startup, resize, terminate, scale_down, scale_up.
The resource kind is inferred from the ID prefix when not given.`,
	Example: `  vahti schedule add shutdown i-0abc123 --owner alice --cron "0 18 * * 1-5" --tz Europe/Helsinki
  vahti schedule add resize i-0abc123 --owner alice --cron "0 3 * * 6" --target-class m5.large
  vahti schedule add scale_down web-asg --owner alice --kind asg --cron "0 20 * * *"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		rec := types.ScheduledAction{
			ResourceID:   args[1],
			ResourceKind: types.ResourceKind(scheduleKind),
			Name:         scheduleName,
			Action:       types.ActionKind(args[0]),
			CronExpr:     scheduleCron,
			Timezone:     scheduleTimezone,
			OwnerID:      scheduleOwner,
			Metadata: types.ActionMetadata{
				TargetClass: scheduleClass,
				Force:       scheduleForce,
			},
		}

		created, err := a.coordinator.ScheduleAction(cmd.Context(), rec)
		if err != nil {
			return err
		}
		fmt.Printf("Created schedule %s: %s %s (%s)\n",
			created.ID, created.Action, created.ResourceID, created.CronExpr)
		return nil
	},
}

var scheduleUpdateCmd = &cobra.Command{
	Use:   "update <schedule-id>",
	Short: "Change a schedule's name, cron expression, timezone or target class",
	Example: `  vahti schedule update sched-1 --owner alice --cron "0 19 * * 1-5"
  vahti schedule update sched-1 --owner alice --tz UTC --name "evening stop"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		var upd types.ScheduleUpdate
		if cmd.Flags().Changed("name") {
			upd.Name = &scheduleName
		}
		if cmd.Flags().Changed("cron") {
			upd.CronExpr = &scheduleCron
		}
		if cmd.Flags().Changed("tz") {
			upd.Timezone = &scheduleTimezone
		}
		if cmd.Flags().Changed("target-class") {
			upd.TargetClass = &scheduleClass
		}

		updated, err := a.coordinator.UpdateScheduledAction(cmd.Context(), args[0], scheduleOwner, upd)
		if err != nil {
			return err
		}
		fmt.Printf("Updated schedule %s: %s (%s)\n", updated.ID, updated.Name, updated.CronExpr)
		return nil
	},
}

var schedulePauseCmd = &cobra.Command{
	Use:   "pause <schedule-id>",
	Short: "Pause a schedule without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.coordinator.PauseSchedule(cmd.Context(), args[0], scheduleOwner); err != nil {
			return err
		}
		fmt.Printf("Paused schedule %s\n", args[0])
		return nil
	},
}

var scheduleResumeCmd = &cobra.Command{
	Use:   "resume <schedule-id>",
	Short: "Resume a paused schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.coordinator.ResumeSchedule(cmd.Context(), args[0], scheduleOwner); err != nil {
			return err
		}
		fmt.Printf("Resumed schedule %s\n", args[0])
		return nil
	},
}

var scheduleCancelCmd = &cobra.Command{
	Use:   "cancel <schedule-id>",
	Short: "Cancel and delete a schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.coordinator.CancelSchedule(cmd.Context(), args[0], scheduleOwner); err != nil {
			return err
		}
		fmt.Printf("Cancelled schedule %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleListCmd, scheduleAddCmd, scheduleUpdateCmd, schedulePauseCmd, scheduleResumeCmd, scheduleCancelCmd)

	scheduleCmd.PersistentFlags().StringVar(&scheduleOwner, "owner", "", "Owner to act as (required)")
	_ = scheduleCmd.MarkPersistentFlagRequired("owner")

	scheduleAddCmd.Flags().StringVar(&scheduleName, "name", "", "Human readable schedule name")
	scheduleAddCmd.Flags().StringVar(&scheduleCron, "cron", "", "Cron expression (required)")
	scheduleAddCmd.Flags().StringVar(&scheduleTimezone, "tz", "", "Timezone for the cron expression")
	scheduleAddCmd.Flags().StringVar(&scheduleKind, "kind", "", "Resource kind (instance, database, asg, container-service)")
	scheduleAddCmd.Flags().StringVar(&scheduleClass, "target-class", "", "Target class for resize actions")
	scheduleAddCmd.Flags().BoolVar(&scheduleForce, "force", false, "Allow destructive actions")
	_ = scheduleAddCmd.MarkFlagRequired("cron")

	scheduleUpdateCmd.Flags().StringVar(&scheduleName, "name", "", "New schedule name")
	scheduleUpdateCmd.Flags().StringVar(&scheduleCron, "cron", "", "New cron expression")
	scheduleUpdateCmd.Flags().StringVar(&scheduleTimezone, "tz", "", "New timezone")
	scheduleUpdateCmd.Flags().StringVar(&scheduleClass, "target-class", "", "New target class for resize actions")
}
