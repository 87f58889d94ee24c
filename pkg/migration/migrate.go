package migration

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	ItemTypeDataPipeline = "DataPipeline"
	JobTypePipeline      = "Pipeline"
)

type Status string

const (
	StatusSucceeded          Status = "Succeeded"
	StatusPartiallySucceeded Status = "PartiallySucceeded"
	StatusFailed             Status = "Failed"
	StatusSkipped            Status = "Skipped"
	// dry runs that would have created schedules
	StatusPlanned Status = "Planned"
)

// The Fabric calls a migration needs
type ScheduleAPI interface {
	ListItems(ctx context.Context, workspaceID, itemType string) ([]models.Item, error)
	CreateSchedule(ctx context.Context, workspaceID, itemID, jobType string, req models.CreateScheduleRequest) (*models.ItemSchedule, error)
}

// Recreates ADF schedule triggers as Fabric pipeline schedules
type Migrator struct {
	API         ScheduleAPI
	WorkspaceID string
	// Convert and resolve pipelines without creating schedules
	DryRun bool
	// Schedules created in parallel
	Concurrency int
	Options     Options
}

type Report struct {
	WorkspaceID        string          `json:"workspaceId"`
	DryRun             bool            `json:"dryRun"`
	Triggers           []TriggerResult `json:"triggers"`
	Succeeded          int             `json:"succeeded"`
	Planned            int             `json:"planned"`
	PartiallySucceeded int             `json:"partiallySucceeded"`
	Failed             int             `json:"failed"`
	Skipped            int             `json:"skipped"`
	SchedulesCreated   int             `json:"schedulesCreated"`
}

type TriggerResult struct {
	Name      string           `json:"name"`
	Status    Status           `json:"status"`
	Reason    string           `json:"reason,omitempty"`
	Warnings  []string         `json:"warnings,omitempty"`
	Enabled   bool             `json:"enabled"`
	Pipelines []PipelineResult `json:"pipelines,omitempty"`
}

type PipelineResult struct {
	Pipeline  string                  `json:"pipeline"`
	ItemID    string                  `json:"itemId,omitempty"`
	Status    Status                  `json:"status"`
	Error     string                  `json:"error,omitempty"`
	Schedules []string                `json:"schedules,omitempty"`
	Configs   []models.ScheduleConfig `json:"configs,omitempty"`
}

// Migrate every trigger. Failures are reported per trigger and pipeline,
// the error is only set when the workspace pipelines cannot be listed.
func (m *Migrator) Migrate(ctx context.Context, triggers []Trigger) (*Report, error) {
	items, err := m.API.ListItems(ctx, m.WorkspaceID, ItemTypeDataPipeline)
	if err != nil {
		return nil, fmt.Errorf("list pipelines of workspace %s: %w", m.WorkspaceID, err)
	}
	pipelines := map[string]string{}
	for _, item := range items {
		pipelines[item.DisplayName] = item.ID
	}

	report := &Report{WorkspaceID: m.WorkspaceID, DryRun: m.DryRun, Triggers: make([]TriggerResult, len(triggers))}

	g := errgroup.Group{}
	limit := m.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)
	var mu sync.Mutex

	for i, trigger := range triggers {
		result := &report.Triggers[i]
		result.Name = trigger.Name

		conv, err := Convert(trigger, m.Options)
		switch {
		case errors.Is(err, ErrNotScheduleTrigger):
			result.Status = StatusSkipped
			result.Reason = err.Error()
			continue
		case err != nil:
			result.Status = StatusFailed
			result.Reason = err.Error()
			continue
		}
		result.Enabled = conv.Enabled
		result.Warnings = conv.Warnings

		names := trigger.PipelineNames()
		if len(names) == 0 {
			result.Status = StatusSkipped
			result.Reason = "trigger references no pipelines"
			continue
		}

		result.Pipelines = make([]PipelineResult, len(names))
		for j, name := range names {
			pr := &result.Pipelines[j]
			pr.Pipeline = name
			pr.Configs = conv.Configs
			pr.ItemID = pipelines[name]
			if pr.ItemID == "" {
				pr.Status = StatusFailed
				pr.Error = fmt.Sprintf("pipeline %q not found in workspace", name)
				continue
			}
			if m.DryRun {
				pr.Status = StatusPlanned
				continue
			}

			for _, cfg := range conv.Configs {
				g.Go(func() error {
					schedule, err := m.API.CreateSchedule(ctx, m.WorkspaceID, pr.ItemID, JobTypePipeline,
						models.CreateScheduleRequest{Enabled: conv.Enabled, Configuration: cfg})

					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						log.Warn().Err(err).Str("trigger", trigger.Name).Str("pipeline", name).Msg("failed to create schedule")
						if pr.Error == "" {
							pr.Error = err.Error()
						}
						return nil
					}
					log.Info().Str("trigger", trigger.Name).Str("pipeline", name).Str("schedule_id", schedule.ID).Msg("created schedule")
					pr.Schedules = append(pr.Schedules, schedule.ID)
					return nil
				})
			}
		}
	}
	_ = g.Wait()

	for i := range report.Triggers {
		result := &report.Triggers[i]
		if result.Status == "" {
			result.Status = summarize(result.Pipelines)
		}
		switch result.Status {
		case StatusSucceeded:
			report.Succeeded++
		case StatusPlanned:
			report.Planned++
		case StatusPartiallySucceeded:
			report.PartiallySucceeded++
		case StatusFailed:
			report.Failed++
		case StatusSkipped:
			report.Skipped++
		}
		for _, pr := range result.Pipelines {
			report.SchedulesCreated += len(pr.Schedules)
		}
	}
	return report, nil
}

// Settle pipeline statuses and derive the trigger status from them
func summarize(pipelines []PipelineResult) Status {
	succeeded := 0
	planned := 0
	for i := range pipelines {
		pr := &pipelines[i]
		if pr.Status == "" {
			if pr.Error != "" {
				pr.Status = StatusFailed
			} else {
				pr.Status = StatusSucceeded
			}
		}
		switch pr.Status {
		case StatusSucceeded:
			succeeded++
		case StatusPlanned:
			planned++
		}
	}

	switch {
	case planned == len(pipelines):
		return StatusPlanned
	case succeeded+planned == len(pipelines):
		return StatusSucceeded
	case succeeded+planned > 0:
		return StatusPartiallySucceeded
	}
	return StatusFailed
}
