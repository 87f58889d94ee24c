package client

import (
	"context"

	"github.com/fabricops/fabricctl/pkg/models"
)

func (c *Client) ListTables(ctx context.Context, workspaceID, lakehouseID string) ([]models.Table, error) {
	return collect(paginate[models.Table](ctx, c, pathf("/workspaces/%s/lakehouses/%s/tables", workspaceID, lakehouseID), nil))
}

// Start OPTIMIZE/VACUUM on a lakehouse table, optionally waiting for the job
func (c *Client) RunTableMaintenance(ctx context.Context, workspaceID, lakehouseID string, req models.TableMaintenanceRequest, wait bool) (*models.JobInstance, error) {
	jobID, err := c.RunJob(ctx, workspaceID, lakehouseID, models.JobTypeTableMaintenance, req)
	if err != nil {
		return nil, err
	}
	if !wait {
		return c.GetJobInstance(ctx, workspaceID, lakehouseID, jobID)
	}
	return c.WaitForJob(ctx, workspaceID, lakehouseID, jobID)
}
