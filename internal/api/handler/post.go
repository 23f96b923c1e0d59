package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/crossply/crossply/internal/api/response"
	"github.com/crossply/crossply/internal/domain"
	"github.com/crossply/crossply/internal/service"
)

// PostHandler handles post lifecycle endpoints
type PostHandler struct {
	postService     *service.PostService
	insightsService *service.InsightsService
}

// NewPostHandler creates a new post handler
func NewPostHandler(postService *service.PostService, insightsService *service.InsightsService) *PostHandler {
	return &PostHandler{
		postService:     postService,
		insightsService: insightsService,
	}
}

// Engagement handles reading live engagement metrics for one published
// target. The window defaults to 24h.
func (h *PostHandler) Engagement(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	postID, err := urlUUID(r, "postID")
	if err != nil {
		response.BadRequest(w, "invalid post ID")
		return
	}
	targetID, err := urlUUID(r, "targetID")
	if err != nil {
		response.BadRequest(w, "invalid target ID")
		return
	}

	window := 24 * time.Hour
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			response.BadRequest(w, "invalid window")
			return
		}
		window = d
	}

	metrics, err := h.insightsService.TargetEngagement(r.Context(), userID, workspaceID, postID, targetID, window)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, metrics)
}

// Create handles draft creation
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	var input domain.PostCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationErrors(err))
		return
	}

	post, err := h.postService.Create(r.Context(), userID, workspaceID, input)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, post)
}

// List handles listing posts, optionally filtered by status
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	var status *domain.PostStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s := domain.PostStatus(v)
		status = &s
	}
	limit, offset := pagination(r)

	posts, err := h.postService.List(r.Context(), userID, workspaceID, status, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, posts)
}

// Get handles getting one post
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	postID, err := urlUUID(r, "postID")
	if err != nil {
		response.BadRequest(w, "invalid post ID")
		return
	}

	post, err := h.postService.Get(r.Context(), userID, workspaceID, postID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, post)
}

// Targets handles listing the per-platform targets of a post
func (h *PostHandler) Targets(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	postID, err := urlUUID(r, "postID")
	if err != nil {
		response.BadRequest(w, "invalid post ID")
		return
	}

	targets, err := h.postService.Targets(r.Context(), userID, workspaceID, postID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, targets)
}

// Update handles editing a draft
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	postID, err := urlUUID(r, "postID")
	if err != nil {
		response.BadRequest(w, "invalid post ID")
		return
	}

	var input domain.PostUpdate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	post, err := h.postService.Update(r.Context(), userID, workspaceID, postID, input)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, post)
}

// Submit handles moving a draft into review
func (h *PostHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.postService.Submit)
}

// Approve handles accepting a submitted post
func (h *PostHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.postService.Approve)
}

// Reject handles sending a submitted post back to its author
func (h *PostHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.postService.Reject)
}

// Cancel handles withdrawing a post from the pipeline
func (h *PostHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.postService.Cancel)
}

// Delete handles soft-deleting a post
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.postService.Delete)
}

// Schedule handles putting an approved post on the calendar
func (h *PostHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	postID, err := urlUUID(r, "postID")
	if err != nil {
		response.BadRequest(w, "invalid post ID")
		return
	}

	var input struct {
		ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationErrors(err))
		return
	}

	if err := h.postService.Schedule(r.Context(), userID, workspaceID, postID, input.ScheduledAt); err != nil {
		writeError(w, err)
		return
	}

	response.NoContent(w)
}

// BulkDelete handles bulk soft-deletion; responds with the exact count
// of posts deleted.
func (h *PostHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, h.postService.BulkDelete, "deleted")
}

// BulkSubmit handles bulk submission; responds with the exact count of
// posts submitted.
func (h *PostHandler) BulkSubmit(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, h.postService.BulkSubmit, "submitted")
}

func (h *PostHandler) lifecycle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, workspaceID, postID uuid.UUID) error) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	postID, err := urlUUID(r, "postID")
	if err != nil {
		response.BadRequest(w, "invalid post ID")
		return
	}

	if err := op(r.Context(), userID, workspaceID, postID); err != nil {
		writeError(w, err)
		return
	}

	response.NoContent(w)
}

func (h *PostHandler) bulk(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, workspaceID uuid.UUID, ids []uuid.UUID) (int64, error), field string) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	// An empty ids list is a valid no-op and reports a zero count.
	var input struct {
		IDs []uuid.UUID `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	n, err := op(r.Context(), userID, workspaceID, input.IDs)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]any{field: n})
}
