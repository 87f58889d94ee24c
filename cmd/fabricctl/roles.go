package main

import (
	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/spf13/cobra"
)

var rolesCmd = &cobra.Command{
	Use:               "roles",
	Short:             "Manage workspace role assignments",
	PersistentPreRunE: prepare,
}

var rolesListCmd = &cobra.Command{
	Use:   "list <workspace>",
	Short: "List role assignments of a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		assignments, err := state.client.ListRoleAssignments(ctx, id)
		if err != nil {
			return err
		}
		return output(assignments)
	},
}

var rolesAddCmd = &cobra.Command{
	Use:   "add <workspace> <principal-id> <role>",
	Short: "Grant a principal Admin, Member, Contributor or Viewer",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := requireID("principal", args[1]); err != nil {
			return err
		}
		id, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		principalType, _ := cmd.Flags().GetString("type")
		assignment, err := state.client.AddRoleAssignment(ctx, id,
			models.Principal{ID: args[1], Type: principalType}, args[2])
		if err != nil {
			return err
		}
		return output(assignment)
	},
}

var rolesRemoveCmd = &cobra.Command{
	Use:   "remove <workspace> <assignment-id>",
	Short: "Remove a role assignment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		return state.client.DeleteRoleAssignment(ctx, id, args[1])
	},
}

func init() {
	rolesCmd.AddCommand(rolesListCmd)
	rolesCmd.AddCommand(rolesAddCmd)
	rolesCmd.AddCommand(rolesRemoveCmd)

	rolesAddCmd.Flags().String("type", "User", "Principal type (User, Group, ServicePrincipal, ServicePrincipalProfile)")
}
