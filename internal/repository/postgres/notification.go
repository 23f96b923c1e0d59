package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crossply/crossply/internal/domain"
)

// NotificationRepository handles notification data access
type NotificationRepository struct {
	db *DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create creates a new notification
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO notifications (id, workspace_id, recipient_id, kind, payload,
			read_at, sent_at, failed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.Pool.Exec(ctx, query,
		n.ID,
		n.WorkspaceID,
		n.RecipientID,
		n.Kind,
		payload,
		n.ReadAt,
		n.SentAt,
		n.FailedAt,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// ListByRecipient retrieves notifications for a recipient, newest first
func (r *NotificationRepository) ListByRecipient(ctx context.Context, workspaceID, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	query := `
		SELECT id, workspace_id, recipient_id, kind, payload,
		       read_at, sent_at, failed_at, created_at
		FROM notifications
		WHERE workspace_id = $1 AND recipient_id = $2
		  AND ($3 = false OR read_at IS NULL)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`

	rows, err := r.db.Pool.Query(ctx, query, workspaceID, recipientID, unreadOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var payloadJSON []byte

		if err := rows.Scan(
			&n.ID,
			&n.WorkspaceID,
			&n.RecipientID,
			&n.Kind,
			&payloadJSON,
			&n.ReadAt,
			&n.SentAt,
			&n.FailedAt,
			&n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		if len(payloadJSON) > 0 {
			json.Unmarshal(payloadJSON, &n.Payload)
		}

		notifications = append(notifications, n)
	}

	return notifications, nil
}

// MarkRead marks a notification as read by its recipient
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	query := `
		UPDATE notifications
		SET read_at = NOW()
		WHERE id = $1 AND recipient_id = $2 AND read_at IS NULL
	`

	_, err := r.db.Pool.Exec(ctx, query, id, recipientID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	return nil
}

// MarkSent records a successful real-time delivery
func (r *NotificationRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE notifications SET sent_at = $2 WHERE id = $1`

	_, err := r.db.Pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}

	return nil
}

// MarkFailed records a failed real-time delivery
func (r *NotificationRepository) MarkFailed(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE notifications SET failed_at = $2 WHERE id = $1`

	_, err := r.db.Pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}

	return nil
}

// CountUnread counts unread notifications for a recipient
func (r *NotificationRepository) CountUnread(ctx context.Context, workspaceID, recipientID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM notifications
		WHERE workspace_id = $1 AND recipient_id = $2 AND read_at IS NULL
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, workspaceID, recipientID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}
