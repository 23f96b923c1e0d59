package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/crossply/crossply/internal/api/response"
	"github.com/crossply/crossply/internal/domain"
	"github.com/crossply/crossply/internal/service"
)

// AccountHandler handles social account endpoints
type AccountHandler struct {
	accountService *service.AccountService
	ingestService  *service.IngestService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accountService *service.AccountService, ingestService *service.IngestService) *AccountHandler {
	return &AccountHandler{accountService: accountService, ingestService: ingestService}
}

// Connect handles connecting a social account after an OAuth callback
func (h *AccountHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	var input domain.SocialAccountConnect
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, validationErrors(err))
		return
	}

	info, err := h.accountService.Connect(r.Context(), userID, workspaceID, input)
	if err != nil {
		writeError(w, err)
		return
	}

	response.Created(w, info)
}

// List handles listing the workspace's connected accounts
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	accounts, err := h.accountService.List(r.Context(), userID, workspaceID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, accounts)
}

// Get handles getting one account
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	accountID, err := urlUUID(r, "accountID")
	if err != nil {
		response.BadRequest(w, "invalid account ID")
		return
	}

	info, err := h.accountService.Get(r.Context(), userID, workspaceID, accountID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, info)
}

// Disconnect handles disconnecting an account
func (h *AccountHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	accountID, err := urlUUID(r, "accountID")
	if err != nil {
		response.BadRequest(w, "invalid account ID")
		return
	}

	if err := h.accountService.Disconnect(r.Context(), userID, workspaceID, accountID); err != nil {
		writeError(w, err)
		return
	}

	response.NoContent(w)
}

// Sync handles pulling inbound items from the platform on demand. The
// optional "since" query parameter bounds how far back to look; it
// defaults to the last 24 hours.
func (h *AccountHandler) Sync(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	accountID, err := urlUUID(r, "accountID")
	if err != nil {
		response.BadRequest(w, "invalid account ID")
		return
	}

	since := time.Now().Add(-24 * time.Hour)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.BadRequest(w, "invalid since timestamp, expected RFC3339")
			return
		}
		since = parsed
	}

	inserted, err := h.ingestService.SyncAccount(r.Context(), userID, workspaceID, accountID, since)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]int{"inserted": inserted})
}
