package server

import (
	"slices"
	"sync"
	"time"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/google/uuid"
)

// In-memory state of the mock service
type Store struct {
	mu sync.Mutex

	workspaces []*models.Workspace
	items      []*storedItem
	capacities []models.Capacity
	roles      map[string][]models.RoleAssignment
	tables     map[string][]models.Table
	schedules  map[string][]models.ItemSchedule
	operations map[string]*operation
	jobs       map[string]*job
}

type storedItem struct {
	models.Item
	Definition *models.ItemDefinition
	publish    *publish
}

// Operation that succeeds (or fails) after a number of polls
type operation struct {
	id      string
	created time.Time
	polls   int
	failure *models.ErrorResponse
	result  any
	// applied on success
	commit func()
}

type job struct {
	instance models.JobInstance
	polls    int
	failure  *models.ErrorResponse
}

type publish struct {
	details models.PublishDetails
	polls   int
}

func NewStore(capacities []models.Capacity) *Store {
	return &Store{
		capacities: slices.Clone(capacities),
		roles:      map[string][]models.RoleAssignment{},
		tables:     map[string][]models.Table{},
		schedules:  map[string][]models.ItemSchedule{},
		operations: map[string]*operation{},
		jobs:       map[string]*job{},
	}
}

func (s *Store) workspace(id string) *models.Workspace {
	for _, ws := range s.workspaces {
		if ws.ID == id {
			return ws
		}
	}
	return nil
}

func (s *Store) item(workspaceID, id string) *storedItem {
	for _, item := range s.items {
		if item.WorkspaceID == workspaceID && item.ID == id {
			return item
		}
	}
	return nil
}

func (s *Store) capacity(id string) *models.Capacity {
	for i := range s.capacities {
		if s.capacities[i].ID == id {
			return &s.capacities[i]
		}
	}
	return nil
}

// Seed a workspace, returns its id
func (s *Store) AddWorkspace(ws models.Workspace) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ws.ID == "" {
		ws.ID = uuid.NewString()
	}
	if ws.Type == "" {
		ws.Type = "Workspace"
	}
	s.workspaces = append(s.workspaces, &ws)
	return ws.ID
}

// Seed an item, returns its id
func (s *Store) AddItem(item models.Item, def *models.ItemDefinition) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	s.items = append(s.items, &storedItem{Item: item, Definition: def})
	return item.ID
}

// Seed a lakehouse table
func (s *Store) AddTable(lakehouseID string, table models.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[lakehouseID] = append(s.tables[lakehouseID], table)
}

func (s *Store) newOperation(result any, failure *models.ErrorResponse, commit func()) *operation {
	op := &operation{
		id:      uuid.NewString(),
		created: time.Now().UTC(),
		result:  result,
		failure: failure,
		commit:  commit,
	}
	s.operations[op.id] = op
	return op
}

func scheduleKey(itemID, jobType string) string {
	return itemID + "/" + jobType
}
