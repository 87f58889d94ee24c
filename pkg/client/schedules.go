package client

import (
	"context"
	"net/http"

	"github.com/fabricops/fabricctl/pkg/models"
)

func (c *Client) ListSchedules(ctx context.Context, workspaceID, itemID, jobType string) ([]models.ItemSchedule, error) {
	return collect(paginate[models.ItemSchedule](ctx, c, pathf("/workspaces/%s/items/%s/jobs/%s/schedules", workspaceID, itemID, jobType), nil))
}

func (c *Client) CreateSchedule(ctx context.Context, workspaceID, itemID, jobType string, req models.CreateScheduleRequest) (*models.ItemSchedule, error) {
	resp, err := c.do(ctx, http.MethodPost, pathf("/workspaces/%s/items/%s/jobs/%s/schedules", workspaceID, itemID, jobType), nil, req)
	if err != nil {
		return nil, err
	}
	var schedule models.ItemSchedule
	if err := decode(resp, &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (c *Client) DeleteSchedule(ctx context.Context, workspaceID, itemID, jobType, scheduleID string) error {
	return c.exec(ctx, http.MethodDelete, pathf("/workspaces/%s/items/%s/jobs/%s/schedules/%s", workspaceID, itemID, jobType, scheduleID), nil)
}
