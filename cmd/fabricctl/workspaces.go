package main

import (
	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/spf13/cobra"
)

var workspacesCmd = &cobra.Command{
	Use:               "workspaces",
	Aliases:           []string{"ws"},
	Short:             "Manage workspaces",
	PersistentPreRunE: prepare,
}

var workspacesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workspaces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		workspaces, err := state.client.ListWorkspaces(cmd.Context())
		if err != nil {
			return err
		}
		return output(workspaces)
	},
}

var workspacesGetCmd = &cobra.Command{
	Use:   "get <workspace>",
	Short: "Show a workspace by id or display name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		ws, err := state.client.GetWorkspace(ctx, id)
		if err != nil {
			return err
		}
		return output(ws)
	},
}

var workspacesCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := models.CreateWorkspaceRequest{DisplayName: args[0]}
		req.Description, _ = cmd.Flags().GetString("description")
		req.CapacityID, _ = cmd.Flags().GetString("capacity")
		if req.CapacityID != "" {
			if err := requireID("capacity", req.CapacityID); err != nil {
				return err
			}
		}
		ws, err := state.client.CreateWorkspace(cmd.Context(), req)
		if err != nil {
			return err
		}
		return output(ws)
	},
}

var workspacesUpdateCmd = &cobra.Command{
	Use:   "update <workspace>",
	Short: "Rename a workspace or change its description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		req := models.UpdateWorkspaceRequest{}
		req.DisplayName, _ = cmd.Flags().GetString("name")
		if cmd.Flags().Changed("description") {
			description, _ := cmd.Flags().GetString("description")
			req.Description = &description
		}
		ws, err := state.client.UpdateWorkspace(ctx, id, req)
		if err != nil {
			return err
		}
		return output(ws)
	},
}

var workspacesDeleteCmd = &cobra.Command{
	Use:   "delete <workspace>",
	Short: "Delete a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		return state.client.DeleteWorkspace(ctx, id)
	},
}

var workspacesAssignCapacityCmd = &cobra.Command{
	Use:   "assign-capacity <workspace> <capacity-id>",
	Short: "Assign a workspace to a capacity and wait for the assignment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireID("capacity", args[1]); err != nil {
			return err
		}
		id, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		return state.client.AssignToCapacity(ctx, id, args[1])
	},
}

var workspacesUnassignCapacityCmd = &cobra.Command{
	Use:   "unassign-capacity <workspace>",
	Short: "Remove a workspace from its capacity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		return state.client.UnassignFromCapacity(ctx, id)
	},
}

var workspacesProvisionIdentityCmd = &cobra.Command{
	Use:   "provision-identity <workspace>",
	Short: "Provision the workspace identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		identity, err := state.client.ProvisionIdentity(ctx, id)
		if err != nil {
			return err
		}
		return output(identity)
	},
}

var workspacesDeprovisionIdentityCmd = &cobra.Command{
	Use:   "deprovision-identity <workspace>",
	Short: "Deprovision the workspace identity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		return state.client.DeprovisionIdentity(ctx, id)
	},
}

var capacitiesCmd = &cobra.Command{
	Use:               "capacities",
	Short:             "Inspect capacities",
	PersistentPreRunE: prepare,
}

var capacitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the capacities the caller can access",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		capacities, err := state.client.ListCapacities(cmd.Context())
		if err != nil {
			return err
		}
		return output(capacities)
	},
}

func init() {
	workspacesCmd.AddCommand(workspacesListCmd)
	workspacesCmd.AddCommand(workspacesGetCmd)
	workspacesCmd.AddCommand(workspacesCreateCmd)
	workspacesCmd.AddCommand(workspacesUpdateCmd)
	workspacesCmd.AddCommand(workspacesDeleteCmd)
	workspacesCmd.AddCommand(workspacesAssignCapacityCmd)
	workspacesCmd.AddCommand(workspacesUnassignCapacityCmd)
	workspacesCmd.AddCommand(workspacesProvisionIdentityCmd)
	workspacesCmd.AddCommand(workspacesDeprovisionIdentityCmd)
	capacitiesCmd.AddCommand(capacitiesListCmd)

	workspacesCreateCmd.Flags().String("description", "", "Workspace description")
	workspacesCreateCmd.Flags().String("capacity", "", "Capacity id to assign the workspace to")
	workspacesUpdateCmd.Flags().String("name", "", "New display name")
	workspacesUpdateCmd.Flags().String("description", "", "New description")
}
