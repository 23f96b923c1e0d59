package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crossply/crossply/internal/domain"
)

// WhatsAppConversationRepository handles WhatsApp conversation data
// access
type WhatsAppConversationRepository struct {
	db *DB
}

// NewWhatsAppConversationRepository creates a new WhatsApp conversation
// repository
func NewWhatsAppConversationRepository(db *DB) *WhatsAppConversationRepository {
	return &WhatsAppConversationRepository{db: db}
}

const waConversationColumns = `
	id, workspace_id, social_account_id, customer_phone, customer_name,
	conversation_expires_at, message_count, last_message_at, created_at, updated_at
`

// Create creates a new conversation
func (r *WhatsAppConversationRepository) Create(ctx context.Context, conv *domain.WhatsAppConversation) error {
	query := `
		INSERT INTO whatsapp_conversations (` + waConversationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		conv.ID,
		conv.WorkspaceID,
		conv.SocialAccountID,
		conv.CustomerPhone,
		conv.CustomerName,
		conv.ConversationExpiresAt,
		conv.MessageCount,
		conv.LastMessageAt,
		conv.CreatedAt,
		conv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create whatsapp conversation: %w", err)
	}

	return nil
}

// GetByIDAndWorkspace retrieves a conversation scoped to a workspace
func (r *WhatsAppConversationRepository) GetByIDAndWorkspace(ctx context.Context, id, workspaceID uuid.UUID) (*domain.WhatsAppConversation, error) {
	query := `
		SELECT ` + waConversationColumns + `
		FROM whatsapp_conversations
		WHERE id = $1 AND workspace_id = $2
	`

	return r.scanOne(ctx, query, id, workspaceID)
}

// GetByPhone retrieves a conversation by customer phone number
func (r *WhatsAppConversationRepository) GetByPhone(ctx context.Context, workspaceID, socialAccountID uuid.UUID, phone string) (*domain.WhatsAppConversation, error) {
	query := `
		SELECT ` + waConversationColumns + `
		FROM whatsapp_conversations
		WHERE workspace_id = $1 AND social_account_id = $2 AND customer_phone = $3
	`

	return r.scanOne(ctx, query, workspaceID, socialAccountID, phone)
}

// ListByWorkspace retrieves conversations, most recently active first
func (r *WhatsAppConversationRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]domain.WhatsAppConversation, error) {
	query := `
		SELECT ` + waConversationColumns + `
		FROM whatsapp_conversations
		WHERE workspace_id = $1
		ORDER BY last_message_at DESC NULLS LAST
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, workspaceID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list whatsapp conversations: %w", err)
	}
	defer rows.Close()

	var convs []domain.WhatsAppConversation
	for rows.Next() {
		conv, err := scanWAConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan whatsapp conversation: %w", err)
		}
		convs = append(convs, *conv)
	}

	return convs, nil
}

// RefreshWindow bumps message bookkeeping and moves the service window
// expiry to the given time. Only inbound customer messages call this.
func (r *WhatsAppConversationRepository) RefreshWindow(ctx context.Context, id uuid.UUID, messageAt time.Time, expiresAt time.Time) error {
	query := `
		UPDATE whatsapp_conversations
		SET message_count = message_count + 1,
		    last_message_at = GREATEST(COALESCE(last_message_at, $2), $2),
		    conversation_expires_at = $3,
		    updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, id, messageAt, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to refresh service window: %w", err)
	}

	return nil
}

// RecordOutbound bumps message bookkeeping without touching the window
func (r *WhatsAppConversationRepository) RecordOutbound(ctx context.Context, id uuid.UUID, messageAt time.Time) error {
	query := `
		UPDATE whatsapp_conversations
		SET message_count = message_count + 1,
		    last_message_at = GREATEST(COALESCE(last_message_at, $2), $2),
		    updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, id, messageAt)
	if err != nil {
		return fmt.Errorf("failed to record outbound message: %w", err)
	}

	return nil
}

func (r *WhatsAppConversationRepository) scanOne(ctx context.Context, query string, args ...any) (*domain.WhatsAppConversation, error) {
	conv, err := scanWAConversation(r.db.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get whatsapp conversation: %w", err)
	}
	return conv, nil
}

func scanWAConversation(row rowScanner) (*domain.WhatsAppConversation, error) {
	var conv domain.WhatsAppConversation
	err := row.Scan(
		&conv.ID,
		&conv.WorkspaceID,
		&conv.SocialAccountID,
		&conv.CustomerPhone,
		&conv.CustomerName,
		&conv.ConversationExpiresAt,
		&conv.MessageCount,
		&conv.LastMessageAt,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// WhatsAppMessageRepository handles WhatsApp message data access
type WhatsAppMessageRepository struct {
	db *DB
}

// NewWhatsAppMessageRepository creates a new WhatsApp message repository
func NewWhatsAppMessageRepository(db *DB) *WhatsAppMessageRepository {
	return &WhatsAppMessageRepository{db: db}
}

const waMessageColumns = `
	id, conversation_id, workspace_id, social_account_id, platform_message_id,
	direction, body, template_name, sent_at, created_at
`

// Upsert inserts the message unless the same (social_account_id,
// platform_message_id) row already exists. Returns true on insert.
func (r *WhatsAppMessageRepository) Upsert(ctx context.Context, msg *domain.WhatsAppMessage) (bool, error) {
	query := `
		INSERT INTO whatsapp_messages (` + waMessageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (social_account_id, platform_message_id) DO NOTHING
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.WorkspaceID,
		msg.SocialAccountID,
		msg.PlatformMessageID,
		msg.Direction,
		msg.Body,
		msg.TemplateName,
		msg.SentAt,
		msg.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert whatsapp message: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// ListByConversation retrieves messages in a conversation, newest first
func (r *WhatsAppMessageRepository) ListByConversation(ctx context.Context, workspaceID, conversationID uuid.UUID, limit, offset int) ([]domain.WhatsAppMessage, error) {
	query := `
		SELECT ` + waMessageColumns + `
		FROM whatsapp_messages
		WHERE workspace_id = $1 AND conversation_id = $2
		ORDER BY sent_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Pool.Query(ctx, query, workspaceID, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list whatsapp messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.WhatsAppMessage
	for rows.Next() {
		var msg domain.WhatsAppMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.WorkspaceID,
			&msg.SocialAccountID,
			&msg.PlatformMessageID,
			&msg.Direction,
			&msg.Body,
			&msg.TemplateName,
			&msg.SentAt,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan whatsapp message: %w", err)
		}
		msgs = append(msgs, msg)
	}

	return msgs, nil
}
