package models

import (
	"encoding/json"
	"io"
)

// Fabric error envelope
type ErrorResponse struct {
	RequestID       string           `json:"requestId,omitempty"`
	ErrorCode       string           `json:"errorCode"`
	Message         string           `json:"message"`
	MoreDetails     []ErrorDetail    `json:"moreDetails,omitempty"`
	RelatedResource *RelatedResource `json:"relatedResource,omitempty"`
}

type ErrorDetail struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

type RelatedResource struct {
	ResourceID   string `json:"resourceId"`
	ResourceType string `json:"resourceType"`
}

// One page of a list endpoint. Most endpoints use value, lakehouse tables use data.
type ListResponse[T any] struct {
	Value             []T    `json:"value,omitempty"`
	Data              []T    `json:"data,omitempty"`
	ContinuationToken string `json:"continuationToken,omitempty"`
	ContinuationURI   string `json:"continuationUri,omitempty"`
}

func (l *ListResponse[T]) Items() []T {
	if len(l.Data) == 0 {
		return l.Value
	}
	return append(l.Value, l.Data...)
}

func JSONEncoder(w io.Writer) *json.Encoder {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e
}
