package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/rs/zerolog/log"
)

// Run an on-demand job (Pipeline, RunNotebook, TableMaintenance, ...) and
// return the id of the job instance
func (c *Client) RunJob(ctx context.Context, workspaceID, itemID, jobType string, executionData any) (string, error) {
	var body any
	if executionData != nil {
		body = models.RunJobRequest{ExecutionData: executionData}
	}
	resp, err := c.do(ctx, http.MethodPost, pathf("/workspaces/%s/items/%s/jobs/instances", workspaceID, itemID),
		url.Values{"jobType": {jobType}}, body)
	if err != nil {
		return "", err
	}
	_ = decode(resp, nil)

	location := resp.Header.Get("Location")
	if location == "" {
		return "", errors.New("fabric: job accepted without Location")
	}
	if u, err := url.Parse(location); err == nil {
		location = u.Path
	}
	jobID := path.Base(location)
	log.Debug().Str("item_id", itemID).Str("job_type", jobType).Str("job_id", jobID).Msg("job started")
	return jobID, nil
}

func (c *Client) GetJobInstance(ctx context.Context, workspaceID, itemID, jobID string) (*models.JobInstance, error) {
	var job models.JobInstance
	if err := c.getJSON(ctx, pathf("/workspaces/%s/items/%s/jobs/instances/%s", workspaceID, itemID, jobID), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) CancelJobInstance(ctx context.Context, workspaceID, itemID, jobID string) error {
	return c.exec(ctx, http.MethodPost, pathf("/workspaces/%s/items/%s/jobs/instances/%s/cancel", workspaceID, itemID, jobID), nil)
}

// Poll a job instance until it is Completed, Failed, Cancelled or Deduped.
// Anything but Completed is returned as *OperationError along with the job.
func (c *Client) WaitForJob(ctx context.Context, workspaceID, itemID, jobID string) (*models.JobInstance, error) {
	var job *models.JobInstance
	err := c.poll(ctx, "job", c.PollInterval, func(ctx context.Context) (bool, time.Duration, error) {
		var err error
		job, err = c.GetJobInstance(ctx, workspaceID, itemID, jobID)
		if err != nil {
			return false, 0, err
		}
		log.Debug().Str("job_id", jobID).Str("status", string(job.Status)).Msg("polled job")

		if !job.Status.Terminal() {
			return false, 0, nil
		}
		if job.Status != models.JobCompleted {
			return true, 0, &OperationError{Kind: "job", ID: jobID, Status: string(job.Status), Cause: job.FailureReason}
		}
		return true, 0, nil
	})
	return job, err
}
