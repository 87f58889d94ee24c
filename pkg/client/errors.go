package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fabricops/fabricctl/pkg/models"
)

var (
	// Sentinel errors for errors.Is checks
	ErrBadRequest      = errors.New("fabric: bad request")
	ErrUnauthorized    = errors.New("fabric: unauthorized")
	ErrForbidden       = errors.New("fabric: forbidden")
	ErrNotFound        = errors.New("fabric: not found")
	ErrConflict        = errors.New("fabric: conflict")
	ErrThrottled       = errors.New("fabric: throttled")
	ErrServer          = errors.New("fabric: server error")
	ErrOperationFailed = errors.New("fabric: operation failed")
	ErrPollTimeout     = errors.New("fabric: timed out waiting for completion")
)

// Non-2xx response of the Fabric API
type APIError struct {
	StatusCode int
	Method     string
	URL        string
	models.ErrorResponse
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("fabric: %s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
	if e.ErrorCode != "" {
		msg += " " + e.ErrorCode
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.RequestID != "" {
		msg += " (request id " + e.RequestID + ")"
	}
	return msg
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusConflict:
		return ErrConflict
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrThrottled
	case e.StatusCode >= 500:
		return ErrServer
	}
	return ErrBadRequest
}

// An operation, job or publish that reached a failed terminal state
type OperationError struct {
	// operation, job or publish
	Kind   string
	ID     string
	Status string
	Cause  *models.ErrorResponse
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("fabric: %s %s ended %s", e.Kind, e.ID, e.Status)
	if e.Cause != nil {
		msg += fmt.Sprintf(": %s: %s", e.Cause.ErrorCode, e.Cause.Message)
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return ErrOperationFailed
}
