package client

import (
	"context"
	"net/http"
	"time"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/rs/zerolog/log"
)

func (c *Client) GetEnvironment(ctx context.Context, workspaceID, environmentID string) (*models.Environment, error) {
	var env models.Environment
	if err := c.getJSON(ctx, pathf("/workspaces/%s/environments/%s", workspaceID, environmentID), nil, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Publish the staged libraries and Spark settings of an environment
func (c *Client) PublishEnvironment(ctx context.Context, workspaceID, environmentID string) (*models.PublishDetails, error) {
	resp, err := c.do(ctx, http.MethodPost, pathf("/workspaces/%s/environments/%s/staging/publish", workspaceID, environmentID), nil, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusAccepted {
		if err := c.wait(ctx, resp, nil); err != nil {
			return nil, err
		}
		return c.WaitForPublish(ctx, workspaceID, environmentID)
	}

	var props models.EnvironmentProperties
	if err := decode(resp, &props); err != nil {
		return nil, err
	}
	return &props.PublishDetails, nil
}

// Poll the environment until its publish reaches Success, Failed or Cancelled
func (c *Client) WaitForPublish(ctx context.Context, workspaceID, environmentID string) (*models.PublishDetails, error) {
	var details models.PublishDetails
	err := c.poll(ctx, "publish", 0, func(ctx context.Context) (bool, time.Duration, error) {
		env, err := c.GetEnvironment(ctx, workspaceID, environmentID)
		if err != nil {
			return false, 0, err
		}
		details = env.Properties.PublishDetails
		log.Debug().
			Str("environment_id", environmentID).
			Str("state", string(details.State)).
			Msg("polled environment publish")

		if !details.State.Terminal() {
			return false, 0, nil
		}
		if details.State != models.PublishSuccess {
			return true, 0, &OperationError{Kind: "publish", ID: environmentID, Status: string(details.State)}
		}
		return true, 0, nil
	})
	if err != nil {
		return nil, err
	}
	return &details, nil
}
