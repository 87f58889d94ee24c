package main

import (
	"errors"
	"os"

	"github.com/fabricops/fabricctl/pkg/migration"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:               "migrate",
	Short:             "Migrate Azure Data Factory artifacts to Fabric",
	PersistentPreRunE: prepare,
}

var migrateSchedulesCmd = &cobra.Command{
	Use:   "schedules",
	Short: "Recreate ADF schedule triggers as Fabric pipeline schedules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()
		path, _ := flags.GetString("triggers")
		workspace, _ := flags.GetString("workspace")
		if path == "" || workspace == "" {
			return errors.New("--triggers and --workspace are required")
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		triggers, err := migration.ParseTriggers(data)
		if err != nil {
			return err
		}
		wsID, err := state.workspaceID(ctx, workspace)
		if err != nil {
			return err
		}

		m := &migration.Migrator{API: state.client, WorkspaceID: wsID}
		m.DryRun, _ = flags.GetBool("dry-run")
		m.Concurrency, _ = flags.GetInt("concurrency")
		m.Options.Horizon, _ = flags.GetDuration("horizon")

		report, err := m.Migrate(ctx, triggers)
		if err != nil {
			return err
		}
		if err := output(report); err != nil {
			return err
		}
		if report.Failed > 0 || report.PartiallySucceeded > 0 {
			return errors.New("some triggers were not migrated")
		}
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateSchedulesCmd)

	flags := migrateSchedulesCmd.Flags()
	flags.String("triggers", "", "ADF trigger JSON: a single trigger, an array, or a list response")
	flags.String("workspace", "", "Target workspace id or display name")
	flags.Bool("dry-run", false, "Convert and resolve pipelines without creating schedules")
	flags.Int("concurrency", 4, "Schedules created in parallel")
	flags.Duration("horizon", migration.DefaultHorizon, "End of schedules for triggers without an end time")
}
