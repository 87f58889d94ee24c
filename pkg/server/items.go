package server

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	itemTypeEnvironment = "Environment"
	itemTypeLakehouse   = "Lakehouse"
	platformPart        = ".platform"
)

func (a *API) listItems(c *gin.Context) {
	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := a.lookupWorkspace(c)
	if ws == nil {
		return
	}
	itemType := c.Query("type")
	all := []models.Item{}
	for _, item := range s.items {
		if item.WorkspaceID == ws.ID && (itemType == "" || item.Type == itemType) {
			all = append(all, item.Item)
		}
	}
	respondPage(c, a.Configuration.PageSize, all)
}

// Lookup the :item parameter within the :workspace. Callers hold the lock.
func (a *API) lookupItem(c *gin.Context, itemType string) *storedItem {
	ws := a.lookupWorkspace(c)
	if ws == nil {
		return nil
	}
	item := a.Store.item(ws.ID, c.Param("item"))
	if item == nil || (itemType != "" && item.Type != itemType) {
		fabricError(c, http.StatusNotFound, "ItemNotFound", "item %s not found", c.Param("item"))
		return nil
	}
	return item
}

func (a *API) itemNameTaken(workspaceID, itemType, name, except string) bool {
	for _, item := range a.Store.items {
		if item.WorkspaceID == workspaceID && item.Type == itemType && item.DisplayName == name && item.ID != except {
			return true
		}
	}
	return false
}

func (a *API) createItem(c *gin.Context) {
	var req models.CreateItemRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.DisplayName == "" || req.Type == "" {
		fabricError(c, http.StatusBadRequest, "InvalidInput", "displayName and type are required")
		return
	}

	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := a.lookupWorkspace(c)
	if ws == nil {
		return
	}
	if a.itemNameTaken(ws.ID, req.Type, req.DisplayName, "") {
		fabricError(c, http.StatusConflict, "ItemDisplayNameAlreadyInUse", "%s %q already exists", req.Type, req.DisplayName)
		return
	}

	item := &storedItem{
		Item: models.Item{
			ID:          uuid.NewString(),
			DisplayName: req.DisplayName,
			Description: req.Description,
			Type:        req.Type,
			WorkspaceID: ws.ID,
		},
		Definition: req.Definition,
	}

	// with a definition the item is provisioned asynchronously
	if req.Definition != nil {
		op := s.newOperation(item.Item, nil, func() { s.items = append(s.items, item) })
		a.accepted(c, op)
		return
	}
	s.items = append(s.items, item)
	c.JSON(http.StatusCreated, item.Item)
}

func (a *API) getItem(c *gin.Context) {
	a.Store.mu.Lock()
	defer a.Store.mu.Unlock()
	if item := a.lookupItem(c, ""); item != nil {
		c.JSON(http.StatusOK, item.Item)
	}
}

func (a *API) updateItem(c *gin.Context) {
	var req models.UpdateItemRequest
	if !bindJSON(c, &req) {
		return
	}

	a.Store.mu.Lock()
	defer a.Store.mu.Unlock()

	item := a.lookupItem(c, "")
	if item == nil {
		return
	}
	if req.DisplayName != "" {
		if a.itemNameTaken(item.WorkspaceID, item.Type, req.DisplayName, item.ID) {
			fabricError(c, http.StatusConflict, "ItemDisplayNameAlreadyInUse", "%s %q already exists", item.Type, req.DisplayName)
			return
		}
		item.DisplayName = req.DisplayName
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	c.JSON(http.StatusOK, item.Item)
}

func (a *API) deleteItem(c *gin.Context) {
	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	item := a.lookupItem(c, "")
	if item == nil {
		return
	}
	s.items = slices.DeleteFunc(s.items, func(i *storedItem) bool { return i == item })
	delete(s.tables, item.ID)
	for key := range s.schedules {
		if strings.HasPrefix(key, item.ID+"/") {
			delete(s.schedules, key)
		}
	}
	c.Status(http.StatusOK)
}

func (a *API) getDefinition(c *gin.Context) {
	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	item := a.lookupItem(c, "")
	if item == nil {
		return
	}
	if item.Definition == nil {
		fabricError(c, http.StatusBadRequest, "OperationNotSupportedForItem", "%s %s has no definition", item.Type, item.ID)
		return
	}
	def := models.ItemDefinition{
		Format: item.Definition.Format,
		Parts:  slices.Clone(item.Definition.Parts),
	}
	if format := c.Query("format"); format != "" {
		if def.Format != "" && def.Format != format {
			fabricError(c, http.StatusBadRequest, "InvalidDefinitionFormat", "%s %s has no %s definition", item.Type, item.ID, format)
			return
		}
		def.Format = format
	}
	op := s.newOperation(models.DefinitionEnvelope{Definition: def}, nil, nil)
	a.accepted(c, op)
}

func (a *API) updateDefinition(c *gin.Context) {
	var req models.DefinitionEnvelope
	if !bindJSON(c, &req) {
		return
	}

	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	item := a.lookupItem(c, "")
	if item == nil {
		return
	}
	if len(req.Definition.Parts) == 0 {
		op := s.newOperation(nil, &models.ErrorResponse{
			ErrorCode: "InvalidDefinition",
			Message:   "the definition has no parts",
		}, nil)
		a.accepted(c, op)
		return
	}

	def := req.Definition
	displayName := ""
	if c.Query("updateMetadata") == "true" {
		displayName = platformDisplayName(def)
	}
	op := s.newOperation(nil, nil, func() {
		item.Definition = &def
		if displayName != "" {
			item.DisplayName = displayName
		}
	})
	a.accepted(c, op)
}

// Display name from the metadata of the .platform part, if any
func platformDisplayName(def models.ItemDefinition) string {
	for _, part := range def.Parts {
		if part.Path != platformPart {
			continue
		}
		content, err := part.Content()
		if err != nil {
			return ""
		}
		var platform struct {
			Metadata struct {
				DisplayName string `json:"displayName"`
			} `json:"metadata"`
		}
		if json.Unmarshal(content, &platform) != nil {
			return ""
		}
		return platform.Metadata.DisplayName
	}
	return ""
}

func (a *API) getEnvironment(c *gin.Context) {
	a.Store.mu.Lock()
	defer a.Store.mu.Unlock()

	item := a.lookupItem(c, itemTypeEnvironment)
	if item == nil {
		return
	}
	env := models.Environment{Item: item.Item}
	if p := item.publish; p != nil {
		if !p.details.State.Terminal() {
			p.polls++
			if p.polls >= a.Configuration.OperationPolls {
				p.details.State = models.PublishSuccess
				p.details.EndTime = time.Now().UTC().Format(time.RFC3339)
			}
		}
		env.Properties.PublishDetails = p.details
	} else {
		env.Properties.PublishDetails.State = models.PublishSuccess
	}
	c.JSON(http.StatusOK, env)
}

func (a *API) publishEnvironment(c *gin.Context) {
	a.Store.mu.Lock()
	defer a.Store.mu.Unlock()

	item := a.lookupItem(c, itemTypeEnvironment)
	if item == nil {
		return
	}
	if item.publish != nil && !item.publish.details.State.Terminal() {
		fabricError(c, http.StatusBadRequest, "EnvironmentPublishInProgress", "environment %s is already publishing", item.ID)
		return
	}
	item.publish = &publish{details: models.PublishDetails{
		State:         models.PublishRunning,
		TargetVersion: uuid.NewString(),
		StartTime:     time.Now().UTC().Format(time.RFC3339),
	}}
	c.JSON(http.StatusOK, models.EnvironmentProperties{PublishDetails: item.publish.details})
}

func (a *API) listTables(c *gin.Context) {
	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	item := a.lookupItem(c, itemTypeLakehouse)
	if item == nil {
		return
	}
	resp, ok := page(c, a.Configuration.PageSize, slices.Clone(s.tables[item.ID]))
	if !ok {
		return
	}
	// lakehouse tables are listed under data
	resp.Data, resp.Value = resp.Value, nil
	c.JSON(http.StatusOK, resp)
}
