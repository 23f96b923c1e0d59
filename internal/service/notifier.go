package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crossply/crossply/internal/domain"
)

// Notifier fans domain events out to workspace members. The row is
// persisted first; the real-time broadcast is best effort and its
// outcome is recorded on the row afterwards.
type Notifier struct {
	notificationRepo domain.NotificationRepository
	workspaceRepo    domain.WorkspaceRepository
	broadcaster      domain.Broadcaster
}

// NewNotifier creates a new notifier
func NewNotifier(
	notificationRepo domain.NotificationRepository,
	workspaceRepo domain.WorkspaceRepository,
	broadcaster domain.Broadcaster,
) *Notifier {
	return &Notifier{
		notificationRepo: notificationRepo,
		workspaceRepo:    workspaceRepo,
		broadcaster:      broadcaster,
	}
}

// NotifyWorkspace notifies every member of the workspace
func (n *Notifier) NotifyWorkspace(ctx context.Context, workspaceID uuid.UUID, kind domain.NotificationKind, payload map[string]any) error {
	members, err := n.workspaceRepo.ListMemberIDs(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}
	return n.NotifyUsers(ctx, workspaceID, members, kind, payload)
}

// NotifyUsers notifies specific recipients. A persistence failure for
// one recipient aborts; a broadcast failure never does.
func (n *Notifier) NotifyUsers(ctx context.Context, workspaceID uuid.UUID, recipients []uuid.UUID, kind domain.NotificationKind, payload map[string]any) error {
	for _, recipientID := range recipients {
		notification := &domain.Notification{
			ID:          uuid.New(),
			WorkspaceID: workspaceID,
			RecipientID: recipientID,
			Kind:        kind,
			Payload:     payload,
			CreatedAt:   time.Now(),
		}

		if err := n.notificationRepo.Create(ctx, notification); err != nil {
			return fmt.Errorf("failed to persist notification: %w", err)
		}

		n.broadcast(ctx, notification)
	}
	return nil
}

func (n *Notifier) broadcast(ctx context.Context, notification *domain.Notification) {
	event := domain.BroadcastEvent{
		NotificationID:  notification.ID,
		RecipientUserID: notification.RecipientID,
		Kind:            notification.Kind,
		Payload:         notification.Payload,
	}

	now := time.Now()
	if err := n.broadcaster.Publish(ctx, event); err != nil {
		log.Warn().Err(err).
			Str("notification_id", notification.ID.String()).
			Msg("broadcast failed, notification remains queued")
		if err := n.notificationRepo.MarkFailed(ctx, notification.ID, now); err != nil {
			log.Error().Err(err).Msg("failed to mark notification failed")
		}
		return
	}

	if err := n.notificationRepo.MarkSent(ctx, notification.ID, now); err != nil {
		log.Error().Err(err).Msg("failed to mark notification sent")
	}
}

// ListForUser retrieves a recipient's notifications
func (n *Notifier) ListForUser(ctx context.Context, workspaceID, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	return n.notificationRepo.ListByRecipient(ctx, workspaceID, userID, unreadOnly, limit, offset)
}

// MarkRead marks one notification read by its recipient
func (n *Notifier) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return n.notificationRepo.MarkRead(ctx, id, userID)
}

// CountUnread counts a recipient's unread notifications
func (n *Notifier) CountUnread(ctx context.Context, workspaceID, userID uuid.UUID) (int, error) {
	return n.notificationRepo.CountUnread(ctx, workspaceID, userID)
}
