package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ServiceWindow is WhatsApp's customer-initiated messaging window.
// Free-form replies are only permitted while it is open; afterwards
// only template messages may be sent.
const ServiceWindow = 24 * time.Hour

// MessageDirection distinguishes inbound customer messages from
// outbound business replies
type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

// WhatsAppConversation tracks one customer phone number thread and its
// service window.
type WhatsAppConversation struct {
	ID                    uuid.UUID  `json:"id"`
	WorkspaceID           uuid.UUID  `json:"workspace_id"`
	SocialAccountID       uuid.UUID  `json:"social_account_id"`
	CustomerPhone         string     `json:"customer_phone"`
	CustomerName          string     `json:"customer_name"`
	ConversationExpiresAt *time.Time `json:"conversation_expires_at,omitempty"`
	MessageCount          int        `json:"message_count"`
	LastMessageAt         *time.Time `json:"last_message_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// IsWithinServiceWindow reports whether free-form replies are currently
// permitted.
func (c *WhatsAppConversation) IsWithinServiceWindow(now time.Time) bool {
	return c.ConversationExpiresAt != nil && now.Before(*c.ConversationExpiresAt)
}

// WhatsAppMessage is one message in a WhatsApp conversation. Unique per
// (social_account_id, platform_message_id) for inbound dedup.
type WhatsAppMessage struct {
	ID                uuid.UUID        `json:"id"`
	ConversationID    uuid.UUID        `json:"conversation_id"`
	WorkspaceID       uuid.UUID        `json:"workspace_id"`
	SocialAccountID   uuid.UUID        `json:"social_account_id"`
	PlatformMessageID string           `json:"platform_message_id"`
	Direction         MessageDirection `json:"direction"`
	Body              string           `json:"body"`
	TemplateName      string           `json:"template_name,omitempty"`
	SentAt            time.Time        `json:"sent_at"`
	CreatedAt         time.Time        `json:"created_at"`
}

// WhatsAppReply is an outbound reply request. Either Body (free-form,
// window permitting) or TemplateName must be set.
type WhatsAppReply struct {
	Body           string   `json:"body,omitempty"`
	TemplateName   string   `json:"template_name,omitempty"`
	LanguageCode   string   `json:"language_code,omitempty"`
	TemplateParams []string `json:"template_params,omitempty"`
}

// IsTemplate reports whether the reply is a template message.
func (r WhatsAppReply) IsTemplate() bool {
	return r.TemplateName != ""
}

// WhatsAppConversationRepository defines the interface for WhatsApp
// conversation storage
type WhatsAppConversationRepository interface {
	Create(ctx context.Context, conv *WhatsAppConversation) error
	GetByIDAndWorkspace(ctx context.Context, id, workspaceID uuid.UUID) (*WhatsAppConversation, error)
	GetByPhone(ctx context.Context, workspaceID, socialAccountID uuid.UUID, phone string) (*WhatsAppConversation, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]WhatsAppConversation, error)
	// RefreshWindow bumps message bookkeeping and moves the service
	// window expiry to messageAt+24h, unconditionally of prior state.
	RefreshWindow(ctx context.Context, id uuid.UUID, messageAt time.Time, expiresAt time.Time) error
	// RecordOutbound bumps message bookkeeping without touching the
	// window; only inbound customer messages extend it.
	RecordOutbound(ctx context.Context, id uuid.UUID, messageAt time.Time) error
}

// WhatsAppMessageRepository defines the interface for WhatsApp message
// storage
type WhatsAppMessageRepository interface {
	// Upsert inserts the message or keeps the existing row for the same
	// (social_account_id, platform_message_id). Returns true on insert.
	Upsert(ctx context.Context, msg *WhatsAppMessage) (bool, error)
	ListByConversation(ctx context.Context, workspaceID, conversationID uuid.UUID, limit, offset int) ([]WhatsAppMessage, error)
}
