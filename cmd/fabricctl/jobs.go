package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/spf13/cobra"
)

var environmentsCmd = &cobra.Command{
	Use:               "environments",
	Short:             "Manage Spark environments",
	PersistentPreRunE: prepare,
}

var environmentsGetCmd = &cobra.Command{
	Use:   "get <workspace> <environment>",
	Short: "Show an environment and its publish state",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		wsID, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		envID, err := state.itemID(ctx, wsID, "Environment", args[1])
		if err != nil {
			return err
		}
		env, err := state.client.GetEnvironment(ctx, wsID, envID)
		if err != nil {
			return err
		}
		return output(env)
	},
}

var environmentsPublishCmd = &cobra.Command{
	Use:   "publish <workspace> <environment>",
	Short: "Publish the staged changes of an environment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		wsID, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		envID, err := state.itemID(ctx, wsID, "Environment", args[1])
		if err != nil {
			return err
		}
		details, err := state.client.PublishEnvironment(ctx, wsID, envID)
		if err != nil {
			return err
		}
		if wait, _ := cmd.Flags().GetBool("wait"); wait && !details.State.Terminal() {
			details, err = state.client.WaitForPublish(ctx, wsID, envID)
			if err != nil {
				return err
			}
		}
		return output(details)
	},
}

var jobsCmd = &cobra.Command{
	Use:               "jobs",
	Short:             "Run and track on-demand item jobs",
	PersistentPreRunE: prepare,
}

var jobsRunCmd = &cobra.Command{
	Use:   "run <workspace> <item>",
	Short: "Start a job, e.g. --job-type Pipeline or RunNotebook",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		jobType, _ := cmd.Flags().GetString("job-type")
		if jobType == "" {
			return errors.New("--job-type is required")
		}
		var executionData any
		if data, _ := cmd.Flags().GetString("data"); data != "" {
			if !json.Valid([]byte(data)) {
				return errors.New("--data is not valid JSON")
			}
			executionData = json.RawMessage(data)
		}

		wsID, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		itemID, err := state.itemID(ctx, wsID, "", args[1])
		if err != nil {
			return err
		}
		jobID, err := state.client.RunJob(ctx, wsID, itemID, jobType, executionData)
		if err != nil {
			return err
		}
		return showJob(cmd, wsID, itemID, jobID)
	},
}

var jobsGetCmd = &cobra.Command{
	Use:   "get <workspace> <item> <job-id>",
	Short: "Show a job instance",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireID("job", args[2]); err != nil {
			return err
		}
		wsID, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		itemID, err := state.itemID(ctx, wsID, "", args[1])
		if err != nil {
			return err
		}
		return showJob(cmd, wsID, itemID, args[2])
	},
}

var jobsCancelCmd = &cobra.Command{
	Use:   "cancel <workspace> <item> <job-id>",
	Short: "Cancel a job instance",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireID("job", args[2]); err != nil {
			return err
		}
		wsID, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		itemID, err := state.itemID(ctx, wsID, "", args[1])
		if err != nil {
			return err
		}
		if err := state.client.CancelJobInstance(ctx, wsID, itemID, args[2]); err != nil {
			return err
		}
		return showJob(cmd, wsID, itemID, args[2])
	},
}

// Print the job, after waiting for it with --wait. A failed job is printed
// before its error is returned.
func showJob(cmd *cobra.Command, workspaceID, itemID, jobID string) error {
	ctx := cmd.Context()
	if wait, _ := cmd.Flags().GetBool("wait"); wait {
		job, err := state.client.WaitForJob(ctx, workspaceID, itemID, jobID)
		if job != nil {
			if oerr := output(job); oerr != nil {
				return oerr
			}
		}
		return err
	}
	job, err := state.client.GetJobInstance(ctx, workspaceID, itemID, jobID)
	if err != nil {
		return err
	}
	return output(job)
}

var tablesCmd = &cobra.Command{
	Use:               "tables",
	Short:             "Inspect and maintain lakehouse tables",
	PersistentPreRunE: prepare,
}

var tablesListCmd = &cobra.Command{
	Use:   "list <workspace> <lakehouse>",
	Short: "List the tables of a lakehouse",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		wsID, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		lakehouseID, err := state.itemID(ctx, wsID, "Lakehouse", args[1])
		if err != nil {
			return err
		}
		tables, err := state.client.ListTables(ctx, wsID, lakehouseID)
		if err != nil {
			return err
		}
		return output(tables)
	},
}

var tablesMaintainCmd = &cobra.Command{
	Use:   "maintain <workspace> <lakehouse> <table>",
	Short: "Run OPTIMIZE and VACUUM on a lakehouse table",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()
		req := models.TableMaintenanceRequest{TableName: args[2]}
		req.SchemaName, _ = flags.GetString("schema")
		if optimize, _ := flags.GetBool("optimize"); optimize {
			req.OptimizeSettings = &models.OptimizeSettings{}
			req.OptimizeSettings.VOrder, _ = flags.GetBool("v-order")
			req.OptimizeSettings.ZOrderBy, _ = flags.GetStringSlice("z-order-by")
		}
		if retention, _ := flags.GetString("vacuum-retention"); retention != "" {
			req.VacuumSettings = &models.VacuumSettings{RetentionPeriod: retention}
		}
		if req.OptimizeSettings == nil && req.VacuumSettings == nil {
			return fmt.Errorf("nothing to do: pass --optimize or --vacuum-retention")
		}

		wsID, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		lakehouseID, err := state.itemID(ctx, wsID, "Lakehouse", args[1])
		if err != nil {
			return err
		}
		wait, _ := flags.GetBool("wait")
		job, err := state.client.RunTableMaintenance(ctx, wsID, lakehouseID, req, wait)
		if job != nil {
			if oerr := output(job); oerr != nil {
				return oerr
			}
		}
		return err
	},
}

var schedulesCmd = &cobra.Command{
	Use:               "schedules",
	Short:             "Manage item job schedules",
	PersistentPreRunE: prepare,
}

var schedulesListCmd = &cobra.Command{
	Use:   "list <workspace> <item>",
	Short: "List the schedules of an item job",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		wsID, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		itemID, err := state.itemID(ctx, wsID, "", args[1])
		if err != nil {
			return err
		}
		jobType, _ := cmd.Flags().GetString("job-type")
		schedules, err := state.client.ListSchedules(ctx, wsID, itemID, jobType)
		if err != nil {
			return err
		}
		return output(schedules)
	},
}

var schedulesDeleteCmd = &cobra.Command{
	Use:   "delete <workspace> <item> <schedule-id>",
	Short: "Delete a schedule",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireID("schedule", args[2]); err != nil {
			return err
		}
		wsID, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		itemID, err := state.itemID(ctx, wsID, "", args[1])
		if err != nil {
			return err
		}
		jobType, _ := cmd.Flags().GetString("job-type")
		return state.client.DeleteSchedule(ctx, wsID, itemID, jobType, args[2])
	},
}

var operationsCmd = &cobra.Command{
	Use:               "operations",
	Short:             "Inspect long running operations",
	PersistentPreRunE: prepare,
}

var operationsGetCmd = &cobra.Command{
	Use:   "get <operation-id>",
	Short: "Show the state of an operation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireID("operation", args[0]); err != nil {
			return err
		}
		op, err := state.client.GetOperation(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return output(op)
	},
}

var operationsResultCmd = &cobra.Command{
	Use:   "result <operation-id>",
	Short: "Show the result of a succeeded operation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireID("operation", args[0]); err != nil {
			return err
		}
		var result json.RawMessage
		if err := state.client.GetOperationResult(cmd.Context(), args[0], &result); err != nil {
			return err
		}
		return output(result)
	},
}

func init() {
	environmentsCmd.AddCommand(environmentsGetCmd)
	environmentsCmd.AddCommand(environmentsPublishCmd)
	jobsCmd.AddCommand(jobsRunCmd)
	jobsCmd.AddCommand(jobsGetCmd)
	jobsCmd.AddCommand(jobsCancelCmd)
	tablesCmd.AddCommand(tablesListCmd)
	tablesCmd.AddCommand(tablesMaintainCmd)
	schedulesCmd.AddCommand(schedulesListCmd)
	schedulesCmd.AddCommand(schedulesDeleteCmd)
	operationsCmd.AddCommand(operationsGetCmd)
	operationsCmd.AddCommand(operationsResultCmd)

	environmentsPublishCmd.Flags().Bool("wait", false, "Wait until the publish completes")
	for _, c := range []*cobra.Command{jobsRunCmd, jobsGetCmd, jobsCancelCmd, tablesMaintainCmd} {
		c.Flags().Bool("wait", false, "Wait until the job reaches a terminal status")
	}
	jobsRunCmd.Flags().String("job-type", "", "Job type, e.g. Pipeline, RunNotebook, sparkjob")
	jobsRunCmd.Flags().String("data", "", "executionData as JSON")

	tablesMaintainCmd.Flags().String("schema", "", "Schema of the table in schema enabled lakehouses")
	tablesMaintainCmd.Flags().Bool("optimize", false, "Run OPTIMIZE")
	tablesMaintainCmd.Flags().Bool("v-order", false, "Apply V-Order while optimizing")
	tablesMaintainCmd.Flags().StringSlice("z-order-by", nil, "Columns to Z-Order by while optimizing")
	tablesMaintainCmd.Flags().String("vacuum-retention", "", "Run VACUUM with this retention period, d.hh:mm:ss")

	for _, c := range []*cobra.Command{schedulesListCmd, schedulesDeleteCmd} {
		c.Flags().String("job-type", "Pipeline", "Job type of the schedules")
	}
}
