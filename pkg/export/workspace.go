package export

import (
	"context"
	"fmt"
	"sync"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type DefinitionAPI interface {
	ListItems(ctx context.Context, workspaceID, itemType string) ([]models.Item, error)
	GetItemDefinition(ctx context.Context, workspaceID, itemID, format string) (*models.ItemDefinition, error)
}

// Writes the definitions of all items of a workspace
type Exporter struct {
	API DefinitionAPI
	// Definitions retrieved in parallel
	Concurrency int
	// Errors for items that have no definition, those items are skipped
	Skip func(error) bool
}

type Exported struct {
	Item models.Item `json:"item"`
	Dir  string      `json:"dir"`
}

// Export items of the workspace, optionally of one type, below dir.
// The first failure cancels the remaining retrievals.
func (e *Exporter) Export(ctx context.Context, workspaceID, itemType, dir string) ([]Exported, error) {
	items, err := e.API.ListItems(ctx, workspaceID, itemType)
	if err != nil {
		return nil, err
	}

	g, ctx := errgroup.WithContext(ctx)
	limit := e.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)

	var mu sync.Mutex
	exported := make([]Exported, 0, len(items))
	for _, item := range items {
		g.Go(func() error {
			def, err := e.API.GetItemDefinition(ctx, workspaceID, item.ID, "")
			if err != nil {
				if e.Skip != nil && e.Skip(err) {
					log.Info().Str("item", item.DisplayName).Str("type", item.Type).Msg("skipping item without definition")
					return nil
				}
				return fmt.Errorf("%s %s: %w", item.Type, item.DisplayName, err)
			}
			path, err := WriteDefinition(dir, item, def)
			if err != nil {
				return fmt.Errorf("%s %s: %w", item.Type, item.DisplayName, err)
			}

			mu.Lock()
			defer mu.Unlock()
			exported = append(exported, Exported{Item: item, Dir: path})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return exported, nil
}
