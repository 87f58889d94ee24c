package migration

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const TriggerTypeSchedule = "ScheduleTrigger"

// Azure Data Factory trigger as exported in ARM templates or by the
// management API
type Trigger struct {
	Name       string            `json:"name"`
	Properties TriggerProperties `json:"properties"`
}

type TriggerProperties struct {
	Type           string                `json:"type"`
	Description    string                `json:"description,omitempty"`
	RuntimeState   string                `json:"runtimeState,omitempty"`
	Pipelines      []TriggerPipeline     `json:"pipelines,omitempty"`
	TypeProperties TriggerTypeProperties `json:"typeProperties"`
}

type TriggerPipeline struct {
	PipelineReference PipelineReference `json:"pipelineReference"`
	Parameters        map[string]any    `json:"parameters,omitempty"`
}

type PipelineReference struct {
	ReferenceName string `json:"referenceName"`
	Type          string `json:"type,omitempty"`
}

type TriggerTypeProperties struct {
	Recurrence *Recurrence `json:"recurrence,omitempty"`
}

type Recurrence struct {
	// Minute, Hour, Day, Week or Month
	Frequency string              `json:"frequency"`
	Interval  int                 `json:"interval"`
	StartTime string              `json:"startTime,omitempty"`
	EndTime   string              `json:"endTime,omitempty"`
	TimeZone  string              `json:"timeZone,omitempty"`
	Schedule  *RecurrenceSchedule `json:"schedule,omitempty"`
}

type RecurrenceSchedule struct {
	Minutes            []int               `json:"minutes,omitempty"`
	Hours              []int               `json:"hours,omitempty"`
	WeekDays           []string            `json:"weekDays,omitempty"`
	MonthDays          []int               `json:"monthDays,omitempty"`
	MonthlyOccurrences []MonthlyOccurrence `json:"monthlyOccurrences,omitempty"`
}

type MonthlyOccurrence struct {
	Day        string `json:"day"`
	Occurrence int    `json:"occurrence"`
}

// Pipeline names referenced by the trigger, in order and without duplicates
func (t *Trigger) PipelineNames() []string {
	seen := map[string]bool{}
	names := []string{}
	for _, p := range t.Properties.Pipelines {
		name := p.PipelineReference.ReferenceName
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Decode triggers from a single trigger object, an array of triggers, a
// list response {"value": [...]} or an ARM template export whose
// resources include factory triggers
func ParseTriggers(data []byte) ([]Trigger, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("no triggers")
	}

	var triggers []Trigger
	if data[0] == '[' {
		if err := json.Unmarshal(data, &triggers); err != nil {
			return nil, fmt.Errorf("failed to decode triggers: %w", err)
		}
		return triggers, nil
	}

	var envelope struct {
		Value     *[]Trigger     `json:"value"`
		Resources *[]armResource `json:"resources"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode triggers: %w", err)
	}
	if envelope.Value != nil {
		return *envelope.Value, nil
	}
	if envelope.Resources != nil {
		triggers = []Trigger{}
		for _, res := range *envelope.Resources {
			if !strings.HasSuffix(strings.ToLower(res.Type), "/triggers") {
				continue
			}
			triggers = append(triggers, Trigger{Name: armName(res.Name), Properties: res.Properties})
		}
		return triggers, nil
	}

	var trigger Trigger
	if err := json.Unmarshal(data, &trigger); err != nil {
		return nil, fmt.Errorf("failed to decode trigger: %w", err)
	}
	return []Trigger{trigger}, nil
}

type armResource struct {
	Type       string            `json:"type"`
	Name       string            `json:"name"`
	Properties TriggerProperties `json:"properties"`
}

// Last segment of an ARM resource name, either "factory/nightly" or
// "[concat(parameters('factoryName'), '/nightly')]"
func armName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "')]")
}
