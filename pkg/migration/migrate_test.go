package migration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockScheduleAPI struct {
	mu        sync.Mutex
	Items     []models.Item
	ListErr   error
	FailItems map[string]bool
	Created   map[string][]models.CreateScheduleRequest
}

func (m *MockScheduleAPI) ListItems(ctx context.Context, workspaceID, itemType string) ([]models.Item, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	items := []models.Item{}
	for _, item := range m.Items {
		if item.Type == itemType {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *MockScheduleAPI) CreateSchedule(ctx context.Context, workspaceID, itemID, jobType string, req models.CreateScheduleRequest) (*models.ItemSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailItems[itemID] {
		return nil, errors.New("capacity is paused")
	}
	if m.Created == nil {
		m.Created = map[string][]models.CreateScheduleRequest{}
	}
	m.Created[itemID] = append(m.Created[itemID], req)
	return &models.ItemSchedule{
		ID:            fmt.Sprintf("%s-%d", itemID, len(m.Created[itemID])),
		Enabled:       req.Enabled,
		Configuration: req.Configuration,
	}, nil
}

func newMockAPI() *MockScheduleAPI {
	return &MockScheduleAPI{
		Items: []models.Item{
			{ID: "sales", DisplayName: "load_sales", Type: ItemTypeDataPipeline},
			{ID: "stock", DisplayName: "load_stock", Type: ItemTypeDataPipeline},
			{ID: "nb", DisplayName: "load_stock", Type: "Notebook"},
		},
	}
}

func readTriggers(t *testing.T) []Trigger {
	data, err := os.ReadFile("testdata/triggers.json")
	require.NoError(t, err)
	triggers, err := ParseTriggers(data)
	require.NoError(t, err)
	return triggers
}

func TestMigrate(t *testing.T) {
	api := newMockAPI()
	m := &Migrator{API: api, WorkspaceID: "ws", Concurrency: 2}

	report, err := m.Migrate(context.Background(), readTriggers(t))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.SchedulesCreated)

	nightly := report.Triggers[0]
	assert.Equal(t, StatusSucceeded, nightly.Status)
	require.Len(t, nightly.Pipelines, 2)
	assert.Equal(t, "sales", nightly.Pipelines[0].ItemID)
	assert.Equal(t, []string{"sales-1"}, nightly.Pipelines[0].Schedules)
	assert.Equal(t, StatusSucceeded, nightly.Pipelines[1].Status)

	blob := report.Triggers[1]
	assert.Equal(t, StatusSkipped, blob.Status)
	assert.Contains(t, blob.Reason, "BlobEventsTrigger")

	require.Len(t, api.Created["sales"], 1)
	req := api.Created["sales"][0]
	assert.True(t, req.Enabled)
	assert.Equal(t, models.ScheduleDaily, req.Configuration.Type)
	assert.Equal(t, []string{"02:00", "02:30"}, req.Configuration.Times)
	assert.Equal(t, "2026-01-01T00:00:00", req.Configuration.StartDateTime)
}

func TestMigratePartialFailure(t *testing.T) {
	api := newMockAPI()
	api.FailItems = map[string]bool{"stock": true}

	triggers := []Trigger{
		scheduleTrigger(Recurrence{Frequency: "Month", Interval: 1, StartTime: "2026-01-01T00:00:00Z",
			Schedule: &RecurrenceSchedule{MonthDays: []int{1, 15}}}),
		scheduleTrigger(Recurrence{Frequency: "Hour", Interval: 1}),
		scheduleTrigger(Recurrence{Frequency: "Week", Interval: 3}),
		scheduleTrigger(Recurrence{Frequency: "Hour", Interval: 1}),
	}
	triggers[0].Properties.Pipelines = []TriggerPipeline{
		{PipelineReference: PipelineReference{ReferenceName: "load_sales"}},
		{PipelineReference: PipelineReference{ReferenceName: "load_stock"}},
		{PipelineReference: PipelineReference{ReferenceName: "missing"}},
	}
	triggers[1].Properties.Pipelines = []TriggerPipeline{
		{PipelineReference: PipelineReference{ReferenceName: "load_stock"}},
	}
	triggers[2].Properties.Pipelines = triggers[0].Properties.Pipelines

	m := &Migrator{API: api, WorkspaceID: "ws", Options: Options{Now: func() time.Time { return testNow }}}
	report, err := m.Migrate(context.Background(), triggers)
	require.NoError(t, err)

	first := report.Triggers[0]
	assert.Equal(t, StatusPartiallySucceeded, first.Status)
	assert.Equal(t, StatusSucceeded, first.Pipelines[0].Status)
	assert.ElementsMatch(t, []string{"sales-1", "sales-2"}, first.Pipelines[0].Schedules)
	assert.Equal(t, StatusFailed, first.Pipelines[1].Status)
	assert.Equal(t, "capacity is paused", first.Pipelines[1].Error)
	assert.Equal(t, StatusFailed, first.Pipelines[2].Status)
	assert.Contains(t, first.Pipelines[2].Error, "not found")

	assert.Equal(t, StatusFailed, report.Triggers[1].Status)
	assert.Equal(t, StatusFailed, report.Triggers[2].Status)
	assert.Contains(t, report.Triggers[2].Reason, "every 3 weeks")
	assert.Equal(t, StatusSkipped, report.Triggers[3].Status)

	assert.Equal(t, 1, report.PartiallySucceeded)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, report.SchedulesCreated)
}

func TestMigrateDryRun(t *testing.T) {
	api := newMockAPI()
	m := &Migrator{API: api, WorkspaceID: "ws", DryRun: true}

	report, err := m.Migrate(context.Background(), readTriggers(t))
	require.NoError(t, err)

	assert.Empty(t, api.Created)
	assert.True(t, report.DryRun)
	assert.Equal(t, StatusPlanned, report.Triggers[0].Status)
	assert.Equal(t, StatusPlanned, report.Triggers[0].Pipelines[0].Status)
	assert.Len(t, report.Triggers[0].Pipelines[0].Configs, 1)
	assert.Equal(t, 1, report.Planned)
	assert.Zero(t, report.Succeeded)
	assert.Zero(t, report.SchedulesCreated)
}

func TestMigrateListError(t *testing.T) {
	api := newMockAPI()
	api.ListErr = errors.New("unauthorized")
	m := &Migrator{API: api, WorkspaceID: "ws"}

	_, err := m.Migrate(context.Background(), readTriggers(t))
	assert.ErrorContains(t, err, "list pipelines of workspace ws: unauthorized")
}
