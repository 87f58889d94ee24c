package models

import (
	"encoding/base64"
	"fmt"
)

type Workspace struct {
	ID                         string             `json:"id"`
	DisplayName                string             `json:"displayName"`
	Description                string             `json:"description,omitempty"`
	Type                       string             `json:"type,omitempty"`
	CapacityID                 string             `json:"capacityId,omitempty"`
	CapacityAssignmentProgress string             `json:"capacityAssignmentProgress,omitempty"`
	WorkspaceIdentity          *WorkspaceIdentity `json:"workspaceIdentity,omitempty"`
}

type WorkspaceIdentity struct {
	ApplicationID      string `json:"applicationId"`
	ServicePrincipalID string `json:"servicePrincipalId"`
}

type CreateWorkspaceRequest struct {
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	CapacityID  string `json:"capacityId,omitempty"`
}

type UpdateWorkspaceRequest struct {
	DisplayName string  `json:"displayName,omitempty"`
	Description *string `json:"description,omitempty"`
}

type AssignCapacityRequest struct {
	CapacityID string `json:"capacityId"`
}

type Capacity struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"displayName" yaml:"displayName"`
	SKU         string `json:"sku" yaml:"sku"`
	Region      string `json:"region" yaml:"region"`
	State       string `json:"state" yaml:"state"`
}

type Principal struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	DisplayName string `json:"displayName,omitempty"`
}

type RoleAssignment struct {
	ID        string    `json:"id,omitempty"`
	Principal Principal `json:"principal"`
	Role      string    `json:"role"`
}

type Item struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	WorkspaceID string `json:"workspaceId,omitempty"`
}

type CreateItemRequest struct {
	DisplayName string          `json:"displayName"`
	Description string          `json:"description,omitempty"`
	Type        string          `json:"type"`
	Definition  *ItemDefinition `json:"definition,omitempty"`
}

type UpdateItemRequest struct {
	DisplayName string  `json:"displayName,omitempty"`
	Description *string `json:"description,omitempty"`
}

type ItemDefinition struct {
	Format string           `json:"format,omitempty"`
	Parts  []DefinitionPart `json:"parts"`
}

const PayloadInlineBase64 = "InlineBase64"

type DefinitionPart struct {
	Path        string `json:"path"`
	Payload     string `json:"payload"`
	PayloadType string `json:"payloadType"`
}

// Encode raw content as an inline base64 definition part
func NewDefinitionPart(path string, content []byte) DefinitionPart {
	return DefinitionPart{
		Path:        path,
		Payload:     base64.StdEncoding.EncodeToString(content),
		PayloadType: PayloadInlineBase64,
	}
}

// Decoded payload of the part
func (p DefinitionPart) Content() ([]byte, error) {
	if p.PayloadType != "" && p.PayloadType != PayloadInlineBase64 {
		return nil, fmt.Errorf("unsupported payload type %q for part %s", p.PayloadType, p.Path)
	}
	b, err := base64.StdEncoding.DecodeString(p.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode part %s: %w", p.Path, err)
	}
	return b, nil
}

type DefinitionEnvelope struct {
	Definition ItemDefinition `json:"definition"`
}

type OperationStatus string

const (
	OperationNotStarted OperationStatus = "NotStarted"
	OperationRunning    OperationStatus = "Running"
	OperationSucceeded  OperationStatus = "Succeeded"
	OperationFailed     OperationStatus = "Failed"
	OperationUndefined  OperationStatus = "Undefined"
)

func (s OperationStatus) Terminal() bool {
	switch s {
	case OperationSucceeded, OperationFailed, OperationUndefined:
		return true
	}
	return false
}

type OperationState struct {
	Status             OperationStatus `json:"status"`
	CreatedTimeUtc     string          `json:"createdTimeUtc,omitempty"`
	LastUpdatedTimeUtc string          `json:"lastUpdatedTimeUtc,omitempty"`
	PercentComplete    *int            `json:"percentComplete,omitempty"`
	Error              *ErrorResponse  `json:"error,omitempty"`
}

type JobStatus string

const (
	JobNotStarted JobStatus = "NotStarted"
	JobInProgress JobStatus = "InProgress"
	JobCompleted  JobStatus = "Completed"
	JobFailed     JobStatus = "Failed"
	JobCancelled  JobStatus = "Cancelled"
	JobDeduped    JobStatus = "Deduped"
)

func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled, JobDeduped:
		return true
	}
	return false
}

type JobInstance struct {
	ID             string         `json:"id"`
	ItemID         string         `json:"itemId"`
	JobType        string         `json:"jobType"`
	InvokeType     string         `json:"invokeType"`
	Status         JobStatus      `json:"status"`
	FailureReason  *ErrorResponse `json:"failureReason,omitempty"`
	RootActivityID string         `json:"rootActivityId,omitempty"`
	StartTimeUtc   string         `json:"startTimeUtc,omitempty"`
	EndTimeUtc     string         `json:"endTimeUtc,omitempty"`
}

type RunJobRequest struct {
	ExecutionData any `json:"executionData,omitempty"`
}

const JobTypeTableMaintenance = "TableMaintenance"

type TableMaintenanceRequest struct {
	TableName        string            `json:"tableName"`
	SchemaName       string            `json:"schemaName,omitempty"`
	OptimizeSettings *OptimizeSettings `json:"optimizeSettings,omitempty"`
	VacuumSettings   *VacuumSettings   `json:"vacuumSettings,omitempty"`
}

type OptimizeSettings struct {
	VOrder   bool     `json:"vOrder"`
	ZOrderBy []string `json:"zOrderBy,omitempty"`
}

type VacuumSettings struct {
	// d.hh:mm:ss
	RetentionPeriod string `json:"retentionPeriod"`
}

type Table struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Location string `json:"location"`
	Format   string `json:"format"`
}

type PublishState string

const (
	PublishRunning    PublishState = "Running"
	PublishWaiting    PublishState = "Waiting"
	PublishSuccess    PublishState = "Success"
	PublishFailed     PublishState = "Failed"
	PublishCancelling PublishState = "Cancelling"
	PublishCancelled  PublishState = "Cancelled"
)

func (s PublishState) Terminal() bool {
	switch s {
	case PublishSuccess, PublishFailed, PublishCancelled:
		return true
	}
	return false
}

type PublishDetails struct {
	State         PublishState `json:"state"`
	TargetVersion string       `json:"targetVersion,omitempty"`
	StartTime     string       `json:"startTime,omitempty"`
	EndTime       string       `json:"endTime,omitempty"`
}

type Environment struct {
	Item
	Properties EnvironmentProperties `json:"properties"`
}

type EnvironmentProperties struct {
	PublishDetails PublishDetails `json:"publishDetails"`
}

const (
	ScheduleCron    = "Cron"
	ScheduleDaily   = "Daily"
	ScheduleWeekly  = "Weekly"
	ScheduleMonthly = "Monthly"

	// startDateTime and endDateTime, local to localTimeZoneId
	ScheduleTimeLayout = "2006-01-02T15:04:05"
)

type ScheduleConfig struct {
	Type            string             `json:"type"`
	StartDateTime   string             `json:"startDateTime"`
	EndDateTime     string             `json:"endDateTime"`
	LocalTimeZoneID string             `json:"localTimeZoneId"`
	Interval        int                `json:"interval,omitempty"`
	Times           []string           `json:"times,omitempty"`
	Weekdays        []string           `json:"weekdays,omitempty"`
	Recurrence      int                `json:"recurrence,omitempty"`
	Occurrence      *MonthlyOccurrence `json:"occurrence,omitempty"`
}

type MonthlyOccurrence struct {
	OccurrenceType string `json:"occurrenceType"`
	DayOfMonth     int    `json:"dayOfMonth,omitempty"`
	WeekIndex      string `json:"weekIndex,omitempty"`
	Weekday        string `json:"weekday,omitempty"`
}

type ItemSchedule struct {
	ID              string         `json:"id"`
	Enabled         bool           `json:"enabled"`
	CreatedDateTime string         `json:"createdDateTime,omitempty"`
	Configuration   ScheduleConfig `json:"configuration"`
	Owner           *Principal     `json:"owner,omitempty"`
}

type CreateScheduleRequest struct {
	Enabled       bool           `json:"enabled"`
	Configuration ScheduleConfig `json:"configuration"`
}
