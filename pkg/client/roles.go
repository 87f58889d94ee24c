package client

import (
	"context"
	"net/http"

	"github.com/fabricops/fabricctl/pkg/models"
)

func (c *Client) ListRoleAssignments(ctx context.Context, workspaceID string) ([]models.RoleAssignment, error) {
	return collect(paginate[models.RoleAssignment](ctx, c, pathf("/workspaces/%s/roleAssignments", workspaceID), nil))
}

func (c *Client) AddRoleAssignment(ctx context.Context, workspaceID string, principal models.Principal, role string) (*models.RoleAssignment, error) {
	resp, err := c.do(ctx, http.MethodPost, pathf("/workspaces/%s/roleAssignments", workspaceID), nil,
		models.RoleAssignment{Principal: principal, Role: role})
	if err != nil {
		return nil, err
	}
	var ra models.RoleAssignment
	if err := decode(resp, &ra); err != nil {
		return nil, err
	}
	return &ra, nil
}

func (c *Client) DeleteRoleAssignment(ctx context.Context, workspaceID, roleAssignmentID string) error {
	return c.exec(ctx, http.MethodDelete, pathf("/workspaces/%s/roleAssignments/%s", workspaceID, roleAssignmentID), nil)
}
