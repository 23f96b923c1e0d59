package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/crossply/crossply/internal/api/response"
	"github.com/crossply/crossply/internal/domain"
	"github.com/crossply/crossply/internal/service"
)

// InboxHandler handles unified inbox endpoints
type InboxHandler struct {
	ingestService   *service.IngestService
	whatsappService *service.WhatsAppService
}

// NewInboxHandler creates a new inbox handler
func NewInboxHandler(ingestService *service.IngestService, whatsappService *service.WhatsAppService) *InboxHandler {
	return &InboxHandler{
		ingestService:   ingestService,
		whatsappService: whatsappService,
	}
}

// ListConversations handles listing inbox conversations
func (h *InboxHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	var state *domain.ConversationState
	if v := r.URL.Query().Get("state"); v != "" {
		s := domain.ConversationState(v)
		state = &s
	}
	limit, offset := pagination(r)

	conversations, err := h.ingestService.ListConversations(r.Context(), userID, workspaceID, state, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, conversations)
}

// ListItems handles listing the items of a conversation
func (h *InboxHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	conversationID, err := urlUUID(r, "conversationID")
	if err != nil {
		response.BadRequest(w, "invalid conversation ID")
		return
	}
	limit, offset := pagination(r)

	items, err := h.ingestService.ListItems(r.Context(), userID, workspaceID, conversationID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, items)
}

// SetState handles moving a conversation between triage states
func (h *InboxHandler) SetState(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	conversationID, err := urlUUID(r, "conversationID")
	if err != nil {
		response.BadRequest(w, "invalid conversation ID")
		return
	}

	var input struct {
		State domain.ConversationState `json:"state" validate:"required,oneof=active resolved archived"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationErrors(err))
		return
	}

	if err := h.ingestService.SetConversationState(r.Context(), userID, workspaceID, conversationID, input.State); err != nil {
		writeError(w, err)
		return
	}

	response.NoContent(w)
}

// Assign handles assigning a conversation to a team member. A null
// assignee unassigns.
func (h *InboxHandler) Assign(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	conversationID, err := urlUUID(r, "conversationID")
	if err != nil {
		response.BadRequest(w, "invalid conversation ID")
		return
	}

	var input struct {
		AssigneeID *uuid.UUID `json:"assignee_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.ingestService.AssignConversation(r.Context(), userID, workspaceID, conversationID, input.AssigneeID); err != nil {
		writeError(w, err)
		return
	}

	response.NoContent(w)
}

// ListWhatsAppConversations handles listing WhatsApp conversations
func (h *InboxHandler) ListWhatsAppConversations(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r)

	conversations, err := h.whatsappService.ListConversations(r.Context(), userID, workspaceID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, conversations)
}

// ListWhatsAppMessages handles listing the messages of a WhatsApp
// conversation
func (h *InboxHandler) ListWhatsAppMessages(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	conversationID, err := urlUUID(r, "conversationID")
	if err != nil {
		response.BadRequest(w, "invalid conversation ID")
		return
	}
	limit, offset := pagination(r)

	messages, err := h.whatsappService.ListMessages(r.Context(), userID, workspaceID, conversationID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, messages)
}

// ReplyWhatsApp handles sending an outbound WhatsApp message
func (h *InboxHandler) ReplyWhatsApp(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	conversationID, err := urlUUID(r, "conversationID")
	if err != nil {
		response.BadRequest(w, "invalid conversation ID")
		return
	}

	var input domain.WhatsAppReply
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	msg, err := h.whatsappService.Reply(r.Context(), userID, workspaceID, conversationID, input)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, msg)
}
