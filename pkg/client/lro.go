package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/rs/zerolog/log"
)

// Finish a call that may be long running. 200 and 201 are decoded into out
// directly. 202 is polled through its Location (or x-ms-operation-id) until
// the operation is terminal, then the result is fetched into out.
func (c *Client) wait(ctx context.Context, resp *http.Response, out any) error {
	if resp.StatusCode != http.StatusAccepted {
		return decode(resp, out)
	}
	_ = decode(resp, nil)

	location := resp.Header.Get("Location")
	operationID := resp.Header.Get("x-ms-operation-id")
	if location == "" {
		if operationID == "" {
			return errors.New("fabric: 202 Accepted without Location or x-ms-operation-id")
		}
		location = pathf("/operations/%s", operationID)
	}
	if operationID == "" {
		operationID = path.Base(location)
	}

	var resultLocation string
	err := c.poll(ctx, "operation", retryAfter(resp.Header, c.PollInterval), func(ctx context.Context) (bool, time.Duration, error) {
		r, err := c.do(ctx, http.MethodGet, location, nil, nil)
		if err != nil {
			return false, 0, err
		}
		next := retryAfter(r.Header, c.PollInterval)
		resultLocation = r.Header.Get("Location")

		var state models.OperationState
		if err := decode(r, &state); err != nil {
			return false, 0, err
		}

		event := log.Debug().Str("operation_id", operationID).Str("status", string(state.Status))
		if state.PercentComplete != nil {
			event = event.Int("percent_complete", *state.PercentComplete)
		}
		event.Msg("polled operation")

		switch state.Status {
		case models.OperationSucceeded:
			return true, 0, nil
		case models.OperationFailed, models.OperationUndefined:
			return true, 0, &OperationError{
				Kind:   "operation",
				ID:     operationID,
				Status: string(state.Status),
				Cause:  state.Error,
			}
		}
		return false, next, nil
	})
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if resultLocation == "" || resultLocation == location {
		resultLocation = pathf("/operations/%s/result", operationID)
	}
	return c.getJSON(ctx, resultLocation, nil, out)
}

// Call check until it reports done. The first call happens after delay,
// later ones after the delay check returns (PollInterval when zero). The
// whole loop is bounded by PollTimeout.
func (c *Client) poll(ctx context.Context, kind string, delay time.Duration, check func(context.Context) (bool, time.Duration, error)) error {
	pollCtx := ctx
	if c.PollTimeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, c.PollTimeout)
		defer cancel()
	}

	timedOut := func(err error) error {
		if ctx.Err() == nil && errors.Is(pollCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s after %s", ErrPollTimeout, kind, c.PollTimeout)
		}
		return err
	}

	for {
		if err := sleep(pollCtx, delay); err != nil {
			return timedOut(err)
		}

		pollsTotal.WithLabelValues(kind).Inc()
		done, next, err := check(pollCtx)
		if err != nil {
			return timedOut(err)
		}
		if done {
			return nil
		}

		delay = next
		if delay <= 0 {
			delay = c.PollInterval
		}
	}
}

// Raw state of an operation
func (c *Client) GetOperation(ctx context.Context, operationID string) (*models.OperationState, error) {
	var state models.OperationState
	if err := c.getJSON(ctx, pathf("/operations/%s", operationID), nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Result document of a succeeded operation, decoded into out
func (c *Client) GetOperationResult(ctx context.Context, operationID string, out any) error {
	return c.getJSON(ctx, pathf("/operations/%s/result", operationID), nil, out)
}
