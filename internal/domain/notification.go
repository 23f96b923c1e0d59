package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// NotificationKind classifies the domain event behind a notification
type NotificationKind string

const (
	NotificationNewInboxItem NotificationKind = "inbox.new_item"
	NotificationAssigned     NotificationKind = "inbox.assigned"
	NotificationReply        NotificationKind = "inbox.reply"
	NotificationPublishDone  NotificationKind = "post.publish_done"
	NotificationPublishError NotificationKind = "post.publish_error"
)

// Notification is a per-recipient record of a domain event. The row is
// persisted before any broadcast attempt; SentAt/FailedAt track the
// best-effort real-time delivery independently.
type Notification struct {
	ID          uuid.UUID        `json:"id"`
	WorkspaceID uuid.UUID        `json:"workspace_id"`
	RecipientID uuid.UUID        `json:"recipient_id"`
	Kind        NotificationKind `json:"kind"`
	Payload     map[string]any   `json:"payload,omitempty"`
	ReadAt      *time.Time       `json:"read_at,omitempty"`
	SentAt      *time.Time       `json:"sent_at,omitempty"`
	FailedAt    *time.Time       `json:"failed_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// BroadcastEvent is what the real-time transport receives per
// recipient.
type BroadcastEvent struct {
	NotificationID  uuid.UUID      `json:"notification_id"`
	RecipientUserID uuid.UUID      `json:"recipient_user_id"`
	Kind            NotificationKind `json:"kind"`
	Payload         map[string]any `json:"payload,omitempty"`
}

// NotificationRepository defines the interface for notification storage
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListByRecipient(ctx context.Context, workspaceID, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]Notification, error)
	MarkRead(ctx context.Context, id, recipientID uuid.UUID) error
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, at time.Time) error
	CountUnread(ctx context.Context, workspaceID, recipientID uuid.UUID) (int, error)
}

// Broadcaster publishes real-time events to connected clients. Delivery
// is best effort; failures never roll back the persisted notification.
type Broadcaster interface {
	Publish(ctx context.Context, event BroadcastEvent) error
}
