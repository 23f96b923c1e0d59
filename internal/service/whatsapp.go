package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crossply/crossply/internal/domain"
	"github.com/crossply/crossply/internal/observability/metrics"
)

// WhatsAppSender sends messages through the WhatsApp Business API. The
// platform adapter satisfies it.
type WhatsAppSender interface {
	SendText(ctx context.Context, accessToken, recipient, body string) (string, error)
	SendTemplate(ctx context.Context, accessToken, recipient, template, languageCode string, params []string) (string, error)
}

// WhatsAppInbound is one customer message delivered by a webhook.
type WhatsAppInbound struct {
	SocialAccountID   uuid.UUID
	PlatformMessageID string
	CustomerPhone     string
	CustomerName      string
	Body              string
	SentAt            time.Time
}

// WhatsAppService manages WhatsApp conversations and the 24 hour
// customer service window.
type WhatsAppService struct {
	convRepo    domain.WhatsAppConversationRepository
	messageRepo domain.WhatsAppMessageRepository
	accountRepo domain.SocialAccountRepository
	workspaces  *WorkspaceService
	accounts    *AccountService
	sender      WhatsAppSender
	notifier    *Notifier
}

// NewWhatsAppService creates a new WhatsApp service
func NewWhatsAppService(
	convRepo domain.WhatsAppConversationRepository,
	messageRepo domain.WhatsAppMessageRepository,
	accountRepo domain.SocialAccountRepository,
	workspaces *WorkspaceService,
	accounts *AccountService,
	sender WhatsAppSender,
	notifier *Notifier,
) *WhatsAppService {
	return &WhatsAppService{
		convRepo:    convRepo,
		messageRepo: messageRepo,
		accountRepo: accountRepo,
		workspaces:  workspaces,
		accounts:    accounts,
		sender:      sender,
		notifier:    notifier,
	}
}

// IngestMessage records an inbound customer message and extends the
// conversation's service window to 24 hours past the message timestamp.
// Idempotent per platform message id.
func (s *WhatsAppService) IngestMessage(ctx context.Context, workspaceID uuid.UUID, in WhatsAppInbound) (*domain.WhatsAppMessage, bool, error) {
	conv, err := s.findOrCreateConversation(ctx, workspaceID, in)
	if err != nil {
		return nil, false, err
	}

	now := time.Now()
	msg := &domain.WhatsAppMessage{
		ID:                uuid.New(),
		ConversationID:    conv.ID,
		WorkspaceID:       workspaceID,
		SocialAccountID:   in.SocialAccountID,
		PlatformMessageID: in.PlatformMessageID,
		Direction:         domain.DirectionInbound,
		Body:              in.Body,
		SentAt:            in.SentAt,
		CreatedAt:         now,
	}

	inserted, err := s.messageRepo.Upsert(ctx, msg)
	if err != nil {
		return nil, false, fmt.Errorf("failed to store message: %w", err)
	}
	if !inserted {
		metrics.ObserveInbound(string(domain.PlatformWhatsApp), "duplicate")
		return msg, false, nil
	}

	expiresAt := in.SentAt.Add(domain.ServiceWindow)
	if err := s.convRepo.RefreshWindow(ctx, conv.ID, in.SentAt, expiresAt); err != nil {
		return nil, false, fmt.Errorf("failed to refresh service window: %w", err)
	}

	metrics.ObserveInbound(string(domain.PlatformWhatsApp), "ingested")

	payload := map[string]any{
		"conversation_id": conv.ID.String(),
		"message_id":      msg.ID.String(),
		"customer_phone":  conv.CustomerPhone,
	}
	if err := s.notifier.NotifyWorkspace(ctx, workspaceID, domain.NotificationNewInboxItem, payload); err != nil {
		log.Error().Err(err).Msg("failed to notify whatsapp message")
	}

	return msg, true, nil
}

func (s *WhatsAppService) findOrCreateConversation(ctx context.Context, workspaceID uuid.UUID, in WhatsAppInbound) (*domain.WhatsAppConversation, error) {
	conv, err := s.convRepo.GetByPhone(ctx, workspaceID, in.SocialAccountID, in.CustomerPhone)
	if err != nil {
		return nil, fmt.Errorf("failed to look up conversation: %w", err)
	}
	if conv != nil {
		return conv, nil
	}

	now := time.Now()
	conv = &domain.WhatsAppConversation{
		ID:              uuid.New(),
		WorkspaceID:     workspaceID,
		SocialAccountID: in.SocialAccountID,
		CustomerPhone:   in.CustomerPhone,
		CustomerName:    in.CustomerName,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.convRepo.Create(ctx, conv); err != nil {
		existing, lookupErr := s.convRepo.GetByPhone(ctx, workspaceID, in.SocialAccountID, in.CustomerPhone)
		if lookupErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return conv, nil
}

// Reply sends an outbound message to a conversation. Free-form replies
// require an open service window; template replies are always allowed.
func (s *WhatsAppService) Reply(ctx context.Context, userID, workspaceID, conversationID uuid.UUID, reply domain.WhatsAppReply) (*domain.WhatsAppMessage, error) {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return nil, err
	}

	if reply.Body == "" && !reply.IsTemplate() {
		return nil, errors.New("reply requires a body or a template")
	}

	conv, err := s.convRepo.GetByIDAndWorkspace(ctx, conversationID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv == nil {
		return nil, domain.ErrNotFound
	}

	if !reply.IsTemplate() && !conv.IsWithinServiceWindow(time.Now()) {
		return nil, domain.ErrServiceWindowClosed
	}

	account, err := s.accountRepo.GetByIDAndWorkspace(ctx, conv.SocialAccountID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}

	ref, err := s.accounts.Credentials(ctx, account)
	if err != nil {
		return nil, err
	}

	var platformMessageID string
	if reply.IsTemplate() {
		platformMessageID, err = s.sender.SendTemplate(ctx, ref.AccessToken, conv.CustomerPhone, reply.TemplateName, reply.LanguageCode, reply.TemplateParams)
	} else {
		platformMessageID, err = s.sender.SendText(ctx, ref.AccessToken, conv.CustomerPhone, reply.Body)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	now := time.Now()
	msg := &domain.WhatsAppMessage{
		ID:                uuid.New(),
		ConversationID:    conv.ID,
		WorkspaceID:       workspaceID,
		SocialAccountID:   conv.SocialAccountID,
		PlatformMessageID: platformMessageID,
		Direction:         domain.DirectionOutbound,
		Body:              reply.Body,
		TemplateName:      reply.TemplateName,
		SentAt:            now,
		CreatedAt:         now,
	}

	if _, err := s.messageRepo.Upsert(ctx, msg); err != nil {
		// The message was delivered; losing the record is worth a log
		// line, not a failed request.
		log.Error().Err(err).Str("platform_message_id", platformMessageID).Msg("failed to store outbound message")
		return msg, nil
	}

	if err := s.convRepo.RecordOutbound(ctx, conv.ID, now); err != nil {
		log.Error().Err(err).Msg("failed to record outbound message")
	}

	return msg, nil
}

// ListConversations retrieves WhatsApp conversations in a workspace
func (s *WhatsAppService) ListConversations(ctx context.Context, userID, workspaceID uuid.UUID, limit, offset int) ([]domain.WhatsAppConversation, error) {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return nil, err
	}
	return s.convRepo.ListByWorkspace(ctx, workspaceID, limit, offset)
}

// ListMessages retrieves the messages of a conversation
func (s *WhatsAppService) ListMessages(ctx context.Context, userID, workspaceID, conversationID uuid.UUID, limit, offset int) ([]domain.WhatsAppMessage, error) {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return nil, err
	}
	return s.messageRepo.ListByConversation(ctx, workspaceID, conversationID, limit, offset)
}
