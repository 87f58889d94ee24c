package client

import (
	"context"

	"github.com/fabricops/fabricctl/pkg/models"
)

func (c *Client) ListCapacities(ctx context.Context) ([]models.Capacity, error) {
	return collect(paginate[models.Capacity](ctx, c, "/capacities", nil))
}
