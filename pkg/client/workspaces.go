package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fabricops/fabricctl/pkg/models"
)

func (c *Client) ListWorkspaces(ctx context.Context) ([]models.Workspace, error) {
	return collect(paginate[models.Workspace](ctx, c, "/workspaces", nil))
}

func (c *Client) GetWorkspace(ctx context.Context, workspaceID string) (*models.Workspace, error) {
	var ws models.Workspace
	if err := c.getJSON(ctx, pathf("/workspaces/%s", workspaceID), nil, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

// First workspace with the given display name
func (c *Client) FindWorkspace(ctx context.Context, displayName string) (*models.Workspace, error) {
	for ws, err := range paginate[models.Workspace](ctx, c, "/workspaces", nil) {
		if err != nil {
			return nil, err
		}
		if ws.DisplayName == displayName {
			return &ws, nil
		}
	}
	return nil, fmt.Errorf("workspace %q: %w", displayName, ErrNotFound)
}

func (c *Client) CreateWorkspace(ctx context.Context, req models.CreateWorkspaceRequest) (*models.Workspace, error) {
	resp, err := c.do(ctx, http.MethodPost, "/workspaces", nil, req)
	if err != nil {
		return nil, err
	}
	var ws models.Workspace
	if err := decode(resp, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (c *Client) UpdateWorkspace(ctx context.Context, workspaceID string, req models.UpdateWorkspaceRequest) (*models.Workspace, error) {
	resp, err := c.do(ctx, http.MethodPatch, pathf("/workspaces/%s", workspaceID), nil, req)
	if err != nil {
		return nil, err
	}
	var ws models.Workspace
	if err := decode(resp, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (c *Client) DeleteWorkspace(ctx context.Context, workspaceID string) error {
	return c.exec(ctx, http.MethodDelete, pathf("/workspaces/%s", workspaceID), nil)
}

func (c *Client) AssignToCapacity(ctx context.Context, workspaceID, capacityID string) error {
	resp, err := c.do(ctx, http.MethodPost, pathf("/workspaces/%s/assignToCapacity", workspaceID), nil,
		models.AssignCapacityRequest{CapacityID: capacityID})
	if err != nil {
		return err
	}
	return c.wait(ctx, resp, nil)
}

func (c *Client) UnassignFromCapacity(ctx context.Context, workspaceID string) error {
	resp, err := c.do(ctx, http.MethodPost, pathf("/workspaces/%s/unassignFromCapacity", workspaceID), nil, nil)
	if err != nil {
		return err
	}
	return c.wait(ctx, resp, nil)
}

// Provision the workspace identity and wait for its service principal
func (c *Client) ProvisionIdentity(ctx context.Context, workspaceID string) (*models.WorkspaceIdentity, error) {
	resp, err := c.do(ctx, http.MethodPost, pathf("/workspaces/%s/provisionIdentity", workspaceID), nil, nil)
	if err != nil {
		return nil, err
	}
	var identity models.WorkspaceIdentity
	if err := c.wait(ctx, resp, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (c *Client) DeprovisionIdentity(ctx context.Context, workspaceID string) error {
	resp, err := c.do(ctx, http.MethodPost, pathf("/workspaces/%s/deprovisionIdentity", workspaceID), nil, nil)
	if err != nil {
		return err
	}
	return c.wait(ctx, resp, nil)
}
