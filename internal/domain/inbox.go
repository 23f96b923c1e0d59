package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InboxItemKind classifies an inbound item
type InboxItemKind string

const (
	InboxItemComment InboxItemKind = "comment"
	InboxItemMention InboxItemKind = "mention"
	InboxItemMessage InboxItemKind = "message"
)

// InboxItem is a single inbound comment, mention or message. Unique per
// (social_account_id, platform_item_id) so webhook redelivery dedupes.
type InboxItem struct {
	ID              uuid.UUID     `json:"id"`
	WorkspaceID     uuid.UUID     `json:"workspace_id"`
	SocialAccountID uuid.UUID     `json:"social_account_id"`
	ConversationID  uuid.UUID     `json:"conversation_id"`
	PlatformItemID  string        `json:"platform_item_id"`
	Kind            InboxItemKind `json:"kind"`
	AuthorExternalID string       `json:"author_external_id"`
	AuthorUsername  string        `json:"author_username"`
	Content         string        `json:"content"`
	PostTargetID    *uuid.UUID    `json:"post_target_id,omitempty"`
	ThreadID        string        `json:"thread_id,omitempty"`
	ReceivedAt      time.Time     `json:"received_at"`
	CreatedAt       time.Time     `json:"created_at"`
}

// ConversationState is the triage state of an inbox conversation
type ConversationState string

const (
	ConversationActive   ConversationState = "active"
	ConversationResolved ConversationState = "resolved"
	ConversationArchived ConversationState = "archived"
)

// InboxConversation groups inbox items by participant identity.
// MessageCount always equals the number of associated items and
// LastMessageAt is monotonically non-decreasing.
type InboxConversation struct {
	ID              uuid.UUID         `json:"id"`
	WorkspaceID     uuid.UUID         `json:"workspace_id"`
	SocialAccountID uuid.UUID         `json:"social_account_id"`
	ConversationKey string            `json:"conversation_key"`
	Platform        Platform          `json:"platform"`
	State           ConversationState `json:"state"`
	AssignedUserID  *uuid.UUID        `json:"assigned_user_id,omitempty"`
	MessageCount    int               `json:"message_count"`
	FirstMessageAt  *time.Time        `json:"first_message_at,omitempty"`
	LastMessageAt   *time.Time        `json:"last_message_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// InboundEnvelope is the canonical, platform-neutral form of a webhook
// item after normalization. The receiver verifies the delivery before
// this struct is built.
type InboundEnvelope struct {
	Platform         Platform
	SocialAccountID  uuid.UUID
	PlatformItemID   string
	Kind             InboxItemKind
	AuthorExternalID string
	AuthorUsername   string
	Content          string
	PostTargetID     *uuid.UUID
	ThreadID         string
	Timestamp        time.Time
}

// GroupingKey derives the conversation bucket for an inbound item.
// Precedence: explicit thread id, then the commented post target, then
// the (account, author) pair.
func (e InboundEnvelope) GroupingKey() string {
	if e.ThreadID != "" {
		return fmt.Sprintf("thread:%s", e.ThreadID)
	}
	if e.PostTargetID != nil {
		// All comments on the same published target share one
		// conversation regardless of author.
		return fmt.Sprintf("target:%s", e.PostTargetID)
	}
	return fmt.Sprintf("author:%s:%s", e.SocialAccountID, e.AuthorExternalID)
}

// InboxItemRepository defines the interface for inbox item storage
type InboxItemRepository interface {
	// Upsert inserts the item or returns the existing row for the same
	// (social_account_id, platform_item_id). Returns true when a new
	// row was inserted.
	Upsert(ctx context.Context, item *InboxItem) (bool, error)
	GetByPlatformItemID(ctx context.Context, socialAccountID uuid.UUID, platformItemID string) (*InboxItem, error)
	ListByConversation(ctx context.Context, workspaceID, conversationID uuid.UUID, limit, offset int) ([]InboxItem, error)
	CountByConversation(ctx context.Context, conversationID uuid.UUID) (int, error)
}

// InboxConversationRepository defines the interface for conversation
// storage
type InboxConversationRepository interface {
	Create(ctx context.Context, conv *InboxConversation) error
	GetByIDAndWorkspace(ctx context.Context, id, workspaceID uuid.UUID) (*InboxConversation, error)
	GetByKey(ctx context.Context, workspaceID uuid.UUID, key string) (*InboxConversation, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, state *ConversationState, limit, offset int) ([]InboxConversation, error)
	// Append records one more item on the conversation: increments
	// message_count, bumps last_message_at (never backwards), sets
	// first_message_at once, and reopens resolved/archived
	// conversations to active.
	Append(ctx context.Context, id uuid.UUID, messageAt time.Time) error
	SetState(ctx context.Context, id, workspaceID uuid.UUID, state ConversationState) error
	Assign(ctx context.Context, id, workspaceID uuid.UUID, userID *uuid.UUID) error
}
