package main

import (
	"errors"
	"fmt"

	"github.com/fabricops/fabricctl/pkg/client"
	"github.com/fabricops/fabricctl/pkg/export"
	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var itemsCmd = &cobra.Command{
	Use:               "items",
	Short:             "Manage workspace items",
	PersistentPreRunE: prepare,
}

var itemsListCmd = &cobra.Command{
	Use:   "list <workspace>",
	Short: "List items of a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		itemType, _ := cmd.Flags().GetString("type")
		items, err := state.client.ListItems(ctx, id, itemType)
		if err != nil {
			return err
		}
		return output(items)
	},
}

var itemsGetCmd = &cobra.Command{
	Use:   "get <workspace> <item>",
	Short: "Show an item by id or display name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		wsID, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		itemType, _ := cmd.Flags().GetString("type")
		itemID, err := state.itemID(ctx, wsID, itemType, args[1])
		if err != nil {
			return err
		}
		item, err := state.client.GetItem(ctx, wsID, itemID)
		if err != nil {
			return err
		}
		return output(item)
	},
}

var itemsCreateCmd = &cobra.Command{
	Use:   "create <workspace> <name>",
	Short: "Create an item, optionally from a definition directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		wsID, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		req := models.CreateItemRequest{DisplayName: args[1]}
		req.Type, _ = cmd.Flags().GetString("type")
		req.Description, _ = cmd.Flags().GetString("description")
		if req.Type == "" {
			return errors.New("--type is required")
		}
		if from, _ := cmd.Flags().GetString("from"); from != "" {
			req.Definition, err = export.ReadDefinition(from)
			if err != nil {
				return err
			}
		}
		item, err := state.client.CreateItem(ctx, wsID, req)
		if err != nil {
			return err
		}
		return output(item)
	},
}

var itemsDeleteCmd = &cobra.Command{
	Use:   "delete <workspace> <item>",
	Short: "Delete an item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		wsID, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		itemType, _ := cmd.Flags().GetString("type")
		itemID, err := state.itemID(ctx, wsID, itemType, args[1])
		if err != nil {
			return err
		}
		return state.client.DeleteItem(ctx, wsID, itemID)
	},
}

var itemsGetDefinitionCmd = &cobra.Command{
	Use:   "get-definition <workspace> <item>",
	Short: "Retrieve the definition of an item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		wsID, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		itemType, _ := cmd.Flags().GetString("type")
		itemID, err := state.itemID(ctx, wsID, itemType, args[1])
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		def, err := state.client.GetItemDefinition(ctx, wsID, itemID, format)
		if err != nil {
			return err
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			return output(def)
		}
		item, err := state.client.GetItem(ctx, wsID, itemID)
		if err != nil {
			return err
		}
		dir, err := export.WriteDefinition(out, *item, def)
		if err != nil {
			return err
		}
		log.Info().Str("dir", dir).Int("parts", len(def.Parts)).Msg("definition written")
		return nil
	},
}

var itemsUpdateDefinitionCmd = &cobra.Command{
	Use:   "update-definition <workspace> <item>",
	Short: "Replace the definition of an item with the files of a directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		from, _ := cmd.Flags().GetString("from")
		if from == "" {
			return errors.New("--from is required")
		}
		def, err := export.ReadDefinition(from)
		if err != nil {
			return err
		}
		wsID, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		itemType, _ := cmd.Flags().GetString("type")
		itemID, err := state.itemID(ctx, wsID, itemType, args[1])
		if err != nil {
			return err
		}
		updateMetadata, _ := cmd.Flags().GetBool("update-metadata")
		return state.client.UpdateItemDefinition(ctx, wsID, itemID, *def, updateMetadata)
	},
}

var itemsExportCmd = &cobra.Command{
	Use:   "export <workspace>",
	Short: "Write the definitions of all items of a workspace to a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		wsID, err := state.workspaceID(ctx, args[0])
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			return errors.New("--out is required")
		}
		itemType, _ := cmd.Flags().GetString("type")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		exporter := &export.Exporter{
			API:         state.client,
			Concurrency: concurrency,
			Skip: func(err error) bool {
				return errors.Is(err, client.ErrBadRequest)
			},
		}
		exported, err := exporter.Export(ctx, wsID, itemType, out)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		return output(exported)
	},
}

func init() {
	itemsCmd.AddCommand(itemsListCmd)
	itemsCmd.AddCommand(itemsGetCmd)
	itemsCmd.AddCommand(itemsCreateCmd)
	itemsCmd.AddCommand(itemsDeleteCmd)
	itemsCmd.AddCommand(itemsGetDefinitionCmd)
	itemsCmd.AddCommand(itemsUpdateDefinitionCmd)
	itemsCmd.AddCommand(itemsExportCmd)

	for _, c := range []*cobra.Command{itemsListCmd, itemsGetCmd, itemsDeleteCmd, itemsGetDefinitionCmd, itemsUpdateDefinitionCmd, itemsExportCmd} {
		c.Flags().String("type", "", "Item type, e.g. Notebook, DataPipeline, Lakehouse")
	}
	itemsCreateCmd.Flags().String("type", "", "Item type, e.g. Notebook, DataPipeline, Lakehouse")
	itemsCreateCmd.Flags().String("description", "", "Item description")
	itemsCreateCmd.Flags().String("from", "", "Directory holding the item definition")
	itemsGetDefinitionCmd.Flags().String("format", "", "Definition format, e.g. ipynb or TMDL")
	itemsGetDefinitionCmd.Flags().String("out", "", "Write the definition parts below this directory")
	itemsUpdateDefinitionCmd.Flags().String("from", "", "Directory holding the item definition")
	itemsUpdateDefinitionCmd.Flags().Bool("update-metadata", false, "Apply the display name from the .platform part")
	itemsExportCmd.Flags().String("out", "", "Directory to write definitions to")
	itemsExportCmd.Flags().Int("concurrency", 4, "Definitions retrieved in parallel")
}
