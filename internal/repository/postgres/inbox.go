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

// InboxItemRepository handles inbox item data access
type InboxItemRepository struct {
	db *DB
}

// NewInboxItemRepository creates a new inbox item repository
func NewInboxItemRepository(db *DB) *InboxItemRepository {
	return &InboxItemRepository{db: db}
}

const inboxItemColumns = `
	id, workspace_id, social_account_id, conversation_id, platform_item_id,
	kind, author_external_id, author_username, content, post_target_id,
	thread_id, received_at, created_at
`

// Upsert inserts the item unless the same (social_account_id,
// platform_item_id) row already exists. Returns true on insert, so
// webhook redeliveries are observable as no-ops.
func (r *InboxItemRepository) Upsert(ctx context.Context, item *domain.InboxItem) (bool, error) {
	query := `
		INSERT INTO inbox_items (` + inboxItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (social_account_id, platform_item_id) DO NOTHING
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		item.ID,
		item.WorkspaceID,
		item.SocialAccountID,
		item.ConversationID,
		item.PlatformItemID,
		item.Kind,
		item.AuthorExternalID,
		item.AuthorUsername,
		item.Content,
		item.PostTargetID,
		item.ThreadID,
		item.ReceivedAt,
		item.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert inbox item: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// GetByPlatformItemID retrieves an item by its platform identity
func (r *InboxItemRepository) GetByPlatformItemID(ctx context.Context, socialAccountID uuid.UUID, platformItemID string) (*domain.InboxItem, error) {
	query := `
		SELECT ` + inboxItemColumns + `
		FROM inbox_items
		WHERE social_account_id = $1 AND platform_item_id = $2
	`

	var item domain.InboxItem
	err := r.db.Pool.QueryRow(ctx, query, socialAccountID, platformItemID).Scan(
		&item.ID,
		&item.WorkspaceID,
		&item.SocialAccountID,
		&item.ConversationID,
		&item.PlatformItemID,
		&item.Kind,
		&item.AuthorExternalID,
		&item.AuthorUsername,
		&item.Content,
		&item.PostTargetID,
		&item.ThreadID,
		&item.ReceivedAt,
		&item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get inbox item: %w", err)
	}

	return &item, nil
}

// ListByConversation retrieves items in a conversation, newest first
func (r *InboxItemRepository) ListByConversation(ctx context.Context, workspaceID, conversationID uuid.UUID, limit, offset int) ([]domain.InboxItem, error) {
	query := `
		SELECT ` + inboxItemColumns + `
		FROM inbox_items
		WHERE workspace_id = $1 AND conversation_id = $2
		ORDER BY received_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Pool.Query(ctx, query, workspaceID, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox items: %w", err)
	}
	defer rows.Close()

	var items []domain.InboxItem
	for rows.Next() {
		var item domain.InboxItem
		if err := rows.Scan(
			&item.ID,
			&item.WorkspaceID,
			&item.SocialAccountID,
			&item.ConversationID,
			&item.PlatformItemID,
			&item.Kind,
			&item.AuthorExternalID,
			&item.AuthorUsername,
			&item.Content,
			&item.PostTargetID,
			&item.ThreadID,
			&item.ReceivedAt,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan inbox item: %w", err)
		}
		items = append(items, item)
	}

	return items, nil
}

// CountByConversation counts items in a conversation
func (r *InboxItemRepository) CountByConversation(ctx context.Context, conversationID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM inbox_items WHERE conversation_id = $1`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, conversationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count inbox items: %w", err)
	}

	return count, nil
}

// InboxConversationRepository handles conversation data access
type InboxConversationRepository struct {
	db *DB
}

// NewInboxConversationRepository creates a new conversation repository
func NewInboxConversationRepository(db *DB) *InboxConversationRepository {
	return &InboxConversationRepository{db: db}
}

const conversationColumns = `
	id, workspace_id, social_account_id, conversation_key, platform, state,
	assigned_user_id, message_count, first_message_at, last_message_at,
	created_at, updated_at
`

// Create creates a new conversation
func (r *InboxConversationRepository) Create(ctx context.Context, conv *domain.InboxConversation) error {
	query := `
		INSERT INTO inbox_conversations (` + conversationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		conv.ID,
		conv.WorkspaceID,
		conv.SocialAccountID,
		conv.ConversationKey,
		conv.Platform,
		conv.State,
		conv.AssignedUserID,
		conv.MessageCount,
		conv.FirstMessageAt,
		conv.LastMessageAt,
		conv.CreatedAt,
		conv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	return nil
}

// GetByIDAndWorkspace retrieves a conversation scoped to a workspace
func (r *InboxConversationRepository) GetByIDAndWorkspace(ctx context.Context, id, workspaceID uuid.UUID) (*domain.InboxConversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM inbox_conversations
		WHERE id = $1 AND workspace_id = $2
	`

	return r.scanOne(ctx, query, id, workspaceID)
}

// GetByKey retrieves a conversation by its grouping key
func (r *InboxConversationRepository) GetByKey(ctx context.Context, workspaceID uuid.UUID, key string) (*domain.InboxConversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM inbox_conversations
		WHERE workspace_id = $1 AND conversation_key = $2
	`

	return r.scanOne(ctx, query, workspaceID, key)
}

// ListByWorkspace retrieves conversations, optionally filtered by state,
// most recently active first
func (r *InboxConversationRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, state *domain.ConversationState, limit, offset int) ([]domain.InboxConversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM inbox_conversations
		WHERE workspace_id = $1
		  AND ($2::text IS NULL OR state = $2)
		ORDER BY last_message_at DESC NULLS LAST
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Pool.Query(ctx, query, workspaceID, state, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var convs []domain.InboxConversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, *conv)
	}

	return convs, nil
}

// Append records one more item on the conversation: message_count goes
// up, last_message_at never moves backwards, first_message_at is set
// once, and a resolved or archived conversation reopens to active.
func (r *InboxConversationRepository) Append(ctx context.Context, id uuid.UUID, messageAt time.Time) error {
	query := `
		UPDATE inbox_conversations
		SET message_count = message_count + 1,
		    first_message_at = COALESCE(first_message_at, $2),
		    last_message_at = GREATEST(COALESCE(last_message_at, $2), $2),
		    state = 'active',
		    updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, id, messageAt)
	if err != nil {
		return fmt.Errorf("failed to append to conversation: %w", err)
	}

	return nil
}

// SetState sets the triage state of a conversation
func (r *InboxConversationRepository) SetState(ctx context.Context, id, workspaceID uuid.UUID, state domain.ConversationState) error {
	query := `
		UPDATE inbox_conversations
		SET state = $3, updated_at = NOW()
		WHERE id = $1 AND workspace_id = $2
	`

	_, err := r.db.Pool.Exec(ctx, query, id, workspaceID, state)
	if err != nil {
		return fmt.Errorf("failed to set conversation state: %w", err)
	}

	return nil
}

// Assign assigns or unassigns a team member
func (r *InboxConversationRepository) Assign(ctx context.Context, id, workspaceID uuid.UUID, userID *uuid.UUID) error {
	query := `
		UPDATE inbox_conversations
		SET assigned_user_id = $3, updated_at = NOW()
		WHERE id = $1 AND workspace_id = $2
	`

	_, err := r.db.Pool.Exec(ctx, query, id, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("failed to assign conversation: %w", err)
	}

	return nil
}

func (r *InboxConversationRepository) scanOne(ctx context.Context, query string, args ...any) (*domain.InboxConversation, error) {
	conv, err := scanConversation(r.db.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

func scanConversation(row rowScanner) (*domain.InboxConversation, error) {
	var conv domain.InboxConversation
	err := row.Scan(
		&conv.ID,
		&conv.WorkspaceID,
		&conv.SocialAccountID,
		&conv.ConversationKey,
		&conv.Platform,
		&conv.State,
		&conv.AssignedUserID,
		&conv.MessageCount,
		&conv.FirstMessageAt,
		&conv.LastMessageAt,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}
