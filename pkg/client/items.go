package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fabricops/fabricctl/pkg/models"
)

// Items of a workspace, optionally filtered by type (Notebook, DataPipeline, ...)
func (c *Client) ListItems(ctx context.Context, workspaceID, itemType string) ([]models.Item, error) {
	return collect(paginate[models.Item](ctx, c, pathf("/workspaces/%s/items", workspaceID), typeQuery(itemType)))
}

func (c *Client) GetItem(ctx context.Context, workspaceID, itemID string) (*models.Item, error) {
	var item models.Item
	if err := c.getJSON(ctx, pathf("/workspaces/%s/items/%s", workspaceID, itemID), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Item of the given type and display name
func (c *Client) FindItem(ctx context.Context, workspaceID, itemType, displayName string) (*models.Item, error) {
	for item, err := range paginate[models.Item](ctx, c, pathf("/workspaces/%s/items", workspaceID), typeQuery(itemType)) {
		if err != nil {
			return nil, err
		}
		if item.DisplayName == displayName {
			return &item, nil
		}
	}
	return nil, fmt.Errorf("%s %q: %w", itemType, displayName, ErrNotFound)
}

// Create an item. Items created with a definition are usually provisioned
// asynchronously, the call then waits for the operation.
func (c *Client) CreateItem(ctx context.Context, workspaceID string, req models.CreateItemRequest) (*models.Item, error) {
	resp, err := c.do(ctx, http.MethodPost, pathf("/workspaces/%s/items", workspaceID), nil, req)
	if err != nil {
		return nil, err
	}
	var item models.Item
	if err := c.wait(ctx, resp, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) UpdateItem(ctx context.Context, workspaceID, itemID string, req models.UpdateItemRequest) (*models.Item, error) {
	resp, err := c.do(ctx, http.MethodPatch, pathf("/workspaces/%s/items/%s", workspaceID, itemID), nil, req)
	if err != nil {
		return nil, err
	}
	var item models.Item
	if err := decode(resp, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) DeleteItem(ctx context.Context, workspaceID, itemID string) error {
	return c.exec(ctx, http.MethodDelete, pathf("/workspaces/%s/items/%s", workspaceID, itemID), nil)
}

// Retrieve the definition of an item (notebook, semantic model, report,
// Reflex, ...). format is optional, e.g. ipynb or TMDL.
func (c *Client) GetItemDefinition(ctx context.Context, workspaceID, itemID, format string) (*models.ItemDefinition, error) {
	var query url.Values
	if format != "" {
		query = url.Values{"format": {format}}
	}
	resp, err := c.do(ctx, http.MethodPost, pathf("/workspaces/%s/items/%s/getDefinition", workspaceID, itemID), query, nil)
	if err != nil {
		return nil, err
	}
	var envelope models.DefinitionEnvelope
	if err := c.wait(ctx, resp, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Definition, nil
}

// Replace the definition of an item and wait until it is applied. With
// updateMetadata the .platform part also updates the display name.
func (c *Client) UpdateItemDefinition(ctx context.Context, workspaceID, itemID string, def models.ItemDefinition, updateMetadata bool) error {
	var query url.Values
	if updateMetadata {
		query = url.Values{"updateMetadata": {"true"}}
	}
	resp, err := c.do(ctx, http.MethodPost, pathf("/workspaces/%s/items/%s/updateDefinition", workspaceID, itemID), query,
		models.DefinitionEnvelope{Definition: def})
	if err != nil {
		return err
	}
	return c.wait(ctx, resp, nil)
}

func typeQuery(itemType string) url.Values {
	if itemType == "" {
		return nil
	}
	return url.Values{"type": {itemType}}
}
