package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/crossply/crossply/internal/api/middleware"
	"github.com/crossply/crossply/internal/api/response"
	"github.com/crossply/crossply/internal/domain"
	"github.com/crossply/crossply/internal/service"
)

// WorkspaceHandler handles workspace endpoints
type WorkspaceHandler struct {
	workspaceService *service.WorkspaceService
}

// NewWorkspaceHandler creates a new workspace handler
func NewWorkspaceHandler(workspaceService *service.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceService: workspaceService}
}

// Create handles workspace creation
func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	tenantID, ok := middleware.GetTenantID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.WorkspaceCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationErrors(err))
		return
	}

	workspace, err := h.workspaceService.Create(r.Context(), userID, tenantID, input)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, workspace)
}

// List handles listing the user's workspaces
func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	workspaces, err := h.workspaceService.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, workspaces)
}

// Get handles getting a workspace by ID
func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	workspace, err := h.workspaceService.Get(r.Context(), userID, workspaceID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, workspace)
}

// Update handles updating a workspace
func (h *WorkspaceHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	var input domain.WorkspaceUpdate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.workspaceService.Update(r.Context(), userID, workspaceID, input); err != nil {
		writeError(w, err)
		return
	}

	response.NoContent(w)
}

// Delete handles deleting a workspace
func (h *WorkspaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	if err := h.workspaceService.Delete(r.Context(), userID, workspaceID); err != nil {
		writeError(w, err)
		return
	}

	response.NoContent(w)
}

// AddMember handles adding a member to a workspace
func (h *WorkspaceHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	actorID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	var input struct {
		UserID uuid.UUID `json:"user_id" validate:"required"`
		Role   string    `json:"role" validate:"required,oneof=owner admin member"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationErrors(err))
		return
	}

	if err := h.workspaceService.AddMember(r.Context(), actorID, workspaceID, input.UserID, input.Role); err != nil {
		writeError(w, err)
		return
	}

	response.NoContent(w)
}

// RemoveMember handles removing a member from a workspace
func (h *WorkspaceHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	actorID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	memberID, err := urlUUID(r, "userID")
	if err != nil {
		response.BadRequest(w, "invalid user ID")
		return
	}

	if err := h.workspaceService.RemoveMember(r.Context(), actorID, workspaceID, memberID); err != nil {
		writeError(w, err)
		return
	}

	response.NoContent(w)
}
