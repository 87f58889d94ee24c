package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNoDefinition = errors.New("no definition")

type MockDefinitionAPI struct {
	Items       []models.Item
	Definitions map[string]*models.ItemDefinition
}

func (m *MockDefinitionAPI) ListItems(ctx context.Context, workspaceID, itemType string) ([]models.Item, error) {
	items := []models.Item{}
	for _, item := range m.Items {
		if itemType == "" || item.Type == itemType {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *MockDefinitionAPI) GetItemDefinition(ctx context.Context, workspaceID, itemID, format string) (*models.ItemDefinition, error) {
	def, ok := m.Definitions[itemID]
	if !ok {
		return nil, errNoDefinition
	}
	return def, nil
}

func TestExport(t *testing.T) {
	api := &MockDefinitionAPI{
		Items: []models.Item{
			{ID: "1", DisplayName: "load", Type: "Notebook"},
			{ID: "2", DisplayName: "copy", Type: "DataPipeline"},
			{ID: "3", DisplayName: "warehouse", Type: "Warehouse"},
		},
		Definitions: map[string]*models.ItemDefinition{
			"1": {Parts: []models.DefinitionPart{models.NewDefinitionPart("notebook-content.py", []byte("pass"))}},
			"2": {Parts: []models.DefinitionPart{models.NewDefinitionPart("pipeline-content.json", []byte("{}"))}},
		},
	}
	dir := t.TempDir()

	e := &Exporter{API: api, Concurrency: 2, Skip: func(err error) bool { return errors.Is(err, errNoDefinition) }}
	exported, err := e.Export(context.Background(), "ws", "", dir)
	require.NoError(t, err)
	assert.Len(t, exported, 2)

	_, err = os.Stat(filepath.Join(dir, "copy.DataPipeline", "pipeline-content.json"))
	assert.NoError(t, err)

	exported, err = e.Export(context.Background(), "ws", "Notebook", dir)
	require.NoError(t, err)
	require.Len(t, exported, 1)
	assert.Equal(t, filepath.Join(dir, "load.Notebook"), exported[0].Dir)
}

func TestExportFails(t *testing.T) {
	api := &MockDefinitionAPI{Items: []models.Item{{ID: "3", DisplayName: "warehouse", Type: "Warehouse"}}}
	e := &Exporter{API: api}
	_, err := e.Export(context.Background(), "ws", "", t.TempDir())
	assert.ErrorIs(t, err, errNoDefinition)
}
