package handler

import (
	"net/http"

	"github.com/crossply/crossply/internal/api/response"
	"github.com/crossply/crossply/internal/service"
)

// NotificationHandler handles notification endpoints
type NotificationHandler struct {
	notifier *service.Notifier
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifier *service.Notifier) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

// List handles listing the user's notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	limit, offset := pagination(r)

	notifications, err := h.notifier.ListForUser(r.Context(), workspaceID, userID, unreadOnly, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, notifications)
}

// MarkRead handles marking one notification read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := requestScope(w, r)
	if !ok {
		return
	}

	notificationID, err := urlUUID(r, "notificationID")
	if err != nil {
		response.BadRequest(w, "invalid notification ID")
		return
	}

	if err := h.notifier.MarkRead(r.Context(), notificationID, userID); err != nil {
		writeError(w, err)
		return
	}

	response.NoContent(w)
}

// UnreadCount handles counting the user's unread notifications
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, workspaceID, ok := requestScope(w, r)
	if !ok {
		return
	}

	count, err := h.notifier.CountUnread(r.Context(), workspaceID, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]int{"unread": count})
}
