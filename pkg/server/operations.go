package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/gin-gonic/gin"
)

// Answer 202 for an operation, as the service does for long running calls
func (a *API) accepted(c *gin.Context, op *operation) {
	c.Header("Location", location(c, "/operations/"+op.id))
	c.Header("x-ms-operation-id", op.id)
	a.retryAfter(c)
	c.Status(http.StatusAccepted)
}

func (a *API) retryAfter(c *gin.Context) {
	if a.Configuration.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(a.Configuration.RetryAfter))
	}
}

func (a *API) getOperation(c *gin.Context) {
	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	op := s.operations[c.Param("operation")]
	if op == nil {
		fabricError(c, http.StatusNotFound, "OperationNotFound", "operation %s not found", c.Param("operation"))
		return
	}

	op.polls++
	state := models.OperationState{
		CreatedTimeUtc:     op.created.Format(time.RFC3339),
		LastUpdatedTimeUtc: time.Now().UTC().Format(time.RFC3339),
	}
	required := a.Configuration.OperationPolls

	switch {
	case op.polls < required:
		state.Status = models.OperationRunning
		percent := op.polls * 100 / required
		state.PercentComplete = &percent
		a.retryAfter(c)
	case op.failure != nil:
		state.Status = models.OperationFailed
		state.Error = op.failure
	default:
		state.Status = models.OperationSucceeded
		percent := 100
		state.PercentComplete = &percent
		if op.commit != nil {
			op.commit()
			op.commit = nil
		}
		if op.result != nil {
			c.Header("Location", location(c, "/operations/"+op.id+"/result"))
		}
	}

	c.JSON(http.StatusOK, state)
}

func (a *API) getOperationResult(c *gin.Context) {
	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	op := s.operations[c.Param("operation")]
	if op == nil {
		fabricError(c, http.StatusNotFound, "OperationNotFound", "operation %s not found", c.Param("operation"))
		return
	}
	if op.polls < a.Configuration.OperationPolls || op.failure != nil || op.commit != nil {
		fabricError(c, http.StatusBadRequest, "OperationNotSucceeded", "operation %s has not succeeded", op.id)
		return
	}
	if op.result == nil {
		fabricError(c, http.StatusNotFound, "OperationHasNoResult", "operation %s has no result", op.id)
		return
	}
	c.JSON(http.StatusOK, op.result)
}
