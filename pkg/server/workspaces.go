package server

import (
	"net/http"
	"slices"

	"github.com/fabricops/fabricctl/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var workspaceRoles = []string{"Admin", "Member", "Contributor", "Viewer"}

func (a *API) listCapacities(c *gin.Context) {
	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()
	respondPage(c, a.Configuration.PageSize, slices.Clone(s.capacities))
}

func (a *API) listWorkspaces(c *gin.Context) {
	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]models.Workspace, 0, len(s.workspaces))
	for _, ws := range s.workspaces {
		all = append(all, *ws)
	}
	respondPage(c, a.Configuration.PageSize, all)
}

// Lookup the :workspace parameter, answers 404 when unknown. Callers hold the lock.
func (a *API) lookupWorkspace(c *gin.Context) *models.Workspace {
	ws := a.Store.workspace(c.Param("workspace"))
	if ws == nil {
		fabricError(c, http.StatusNotFound, "WorkspaceNotFound", "workspace %s not found", c.Param("workspace"))
	}
	return ws
}

func (a *API) workspaceNameTaken(name, except string) bool {
	for _, ws := range a.Store.workspaces {
		if ws.DisplayName == name && ws.ID != except {
			return true
		}
	}
	return false
}

func (a *API) createWorkspace(c *gin.Context) {
	var req models.CreateWorkspaceRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.DisplayName == "" {
		fabricError(c, http.StatusBadRequest, "InvalidInput", "displayName is required")
		return
	}

	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.workspaceNameTaken(req.DisplayName, "") {
		fabricError(c, http.StatusConflict, "WorkspaceNameAlreadyExists", "workspace %q already exists", req.DisplayName)
		return
	}
	if req.CapacityID != "" && s.capacity(req.CapacityID) == nil {
		fabricError(c, http.StatusNotFound, "CapacityNotFound", "capacity %s not found", req.CapacityID)
		return
	}

	ws := &models.Workspace{
		ID:          uuid.NewString(),
		DisplayName: req.DisplayName,
		Description: req.Description,
		Type:        "Workspace",
		CapacityID:  req.CapacityID,
	}
	if ws.CapacityID != "" {
		ws.CapacityAssignmentProgress = "Completed"
	}
	s.workspaces = append(s.workspaces, ws)
	c.Header("Location", location(c, "/workspaces/"+ws.ID))
	c.JSON(http.StatusCreated, ws)
}

func (a *API) getWorkspace(c *gin.Context) {
	a.Store.mu.Lock()
	defer a.Store.mu.Unlock()
	if ws := a.lookupWorkspace(c); ws != nil {
		c.JSON(http.StatusOK, ws)
	}
}

func (a *API) updateWorkspace(c *gin.Context) {
	var req models.UpdateWorkspaceRequest
	if !bindJSON(c, &req) {
		return
	}

	a.Store.mu.Lock()
	defer a.Store.mu.Unlock()

	ws := a.lookupWorkspace(c)
	if ws == nil {
		return
	}
	if req.DisplayName != "" {
		if a.workspaceNameTaken(req.DisplayName, ws.ID) {
			fabricError(c, http.StatusConflict, "WorkspaceNameAlreadyExists", "workspace %q already exists", req.DisplayName)
			return
		}
		ws.DisplayName = req.DisplayName
	}
	if req.Description != nil {
		ws.Description = *req.Description
	}
	c.JSON(http.StatusOK, ws)
}

func (a *API) deleteWorkspace(c *gin.Context) {
	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := a.lookupWorkspace(c)
	if ws == nil {
		return
	}
	s.workspaces = slices.DeleteFunc(s.workspaces, func(w *models.Workspace) bool { return w.ID == ws.ID })
	s.items = slices.DeleteFunc(s.items, func(i *storedItem) bool { return i.WorkspaceID == ws.ID })
	delete(s.roles, ws.ID)
	c.Status(http.StatusOK)
}

func (a *API) assignToCapacity(c *gin.Context) {
	var req models.AssignCapacityRequest
	if !bindJSON(c, &req) {
		return
	}

	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := a.lookupWorkspace(c)
	if ws == nil {
		return
	}
	if s.capacity(req.CapacityID) == nil {
		fabricError(c, http.StatusNotFound, "CapacityNotFound", "capacity %s not found", req.CapacityID)
		return
	}
	ws.CapacityAssignmentProgress = "InProgress"
	op := s.newOperation(nil, nil, func() {
		ws.CapacityID = req.CapacityID
		ws.CapacityAssignmentProgress = "Completed"
	})
	a.accepted(c, op)
}

func (a *API) unassignFromCapacity(c *gin.Context) {
	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := a.lookupWorkspace(c)
	if ws == nil {
		return
	}
	op := s.newOperation(nil, nil, func() {
		ws.CapacityID = ""
		ws.CapacityAssignmentProgress = ""
	})
	a.accepted(c, op)
}

func (a *API) provisionIdentity(c *gin.Context) {
	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := a.lookupWorkspace(c)
	if ws == nil {
		return
	}
	if ws.WorkspaceIdentity != nil {
		fabricError(c, http.StatusConflict, "WorkspaceIdentityAlreadyExists", "workspace %s already has an identity", ws.ID)
		return
	}
	if ws.CapacityID == "" {
		fabricError(c, http.StatusBadRequest, "WorkspaceNotAssignedToCapacity", "workspace %s is not assigned to a capacity", ws.ID)
		return
	}
	identity := &models.WorkspaceIdentity{
		ApplicationID:      uuid.NewString(),
		ServicePrincipalID: uuid.NewString(),
	}
	op := s.newOperation(identity, nil, func() { ws.WorkspaceIdentity = identity })
	a.accepted(c, op)
}

func (a *API) deprovisionIdentity(c *gin.Context) {
	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := a.lookupWorkspace(c)
	if ws == nil {
		return
	}
	if ws.WorkspaceIdentity == nil {
		fabricError(c, http.StatusBadRequest, "WorkspaceIdentityNotFound", "workspace %s has no identity", ws.ID)
		return
	}
	op := s.newOperation(nil, nil, func() { ws.WorkspaceIdentity = nil })
	a.accepted(c, op)
}

func (a *API) listRoleAssignments(c *gin.Context) {
	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := a.lookupWorkspace(c)
	if ws == nil {
		return
	}
	respondPage(c, a.Configuration.PageSize, slices.Clone(s.roles[ws.ID]))
}

func (a *API) addRoleAssignment(c *gin.Context) {
	var req models.RoleAssignment
	if !bindJSON(c, &req) {
		return
	}
	if req.Principal.ID == "" || req.Principal.Type == "" {
		fabricError(c, http.StatusBadRequest, "InvalidInput", "principal id and type are required")
		return
	}
	if !slices.Contains(workspaceRoles, req.Role) {
		fabricError(c, http.StatusBadRequest, "InvalidInput", "invalid workspace role %q", req.Role)
		return
	}

	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := a.lookupWorkspace(c)
	if ws == nil {
		return
	}
	for _, ra := range s.roles[ws.ID] {
		if ra.Principal.ID == req.Principal.ID {
			fabricError(c, http.StatusConflict, "PrincipalAlreadyHasWorkspaceRolePermissions",
				"principal %s already has role %s", req.Principal.ID, ra.Role)
			return
		}
	}
	req.ID = req.Principal.ID
	s.roles[ws.ID] = append(s.roles[ws.ID], req)
	c.JSON(http.StatusCreated, req)
}

func (a *API) deleteRoleAssignment(c *gin.Context) {
	s := a.Store
	s.mu.Lock()
	defer s.mu.Unlock()

	ws := a.lookupWorkspace(c)
	if ws == nil {
		return
	}
	id := c.Param("assignment")
	before := len(s.roles[ws.ID])
	s.roles[ws.ID] = slices.DeleteFunc(s.roles[ws.ID], func(ra models.RoleAssignment) bool { return ra.ID == id })
	if len(s.roles[ws.ID]) == before {
		fabricError(c, http.StatusNotFound, "WorkspaceRoleAssignmentNotFound", "role assignment %s not found", id)
		return
	}
	c.Status(http.StatusOK)
}
