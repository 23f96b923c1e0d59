package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crossply/crossply/internal/domain"
	"github.com/crossply/crossply/internal/observability/metrics"
	"github.com/crossply/crossply/internal/platform"
)

// IngestService turns verified webhook deliveries into inbox items and
// conversations. Ingestion is idempotent per platform item, so webhook
// redeliveries are harmless.
type IngestService struct {
	itemRepo    domain.InboxItemRepository
	convRepo    domain.InboxConversationRepository
	accountRepo domain.SocialAccountRepository
	workspaces  *WorkspaceService
	accounts    *AccountService
	registry    *platform.Registry
	notifier    *Notifier
}

// NewIngestService creates a new ingest service
func NewIngestService(
	itemRepo domain.InboxItemRepository,
	convRepo domain.InboxConversationRepository,
	accountRepo domain.SocialAccountRepository,
	workspaces *WorkspaceService,
	accounts *AccountService,
	registry *platform.Registry,
	notifier *Notifier,
) *IngestService {
	return &IngestService{
		itemRepo:    itemRepo,
		convRepo:    convRepo,
		accountRepo: accountRepo,
		workspaces:  workspaces,
		accounts:    accounts,
		registry:    registry,
		notifier:    notifier,
	}
}

// SyncAccount polls the platform for inbound items created since the
// given time and runs each one through Ingest. It exists for platforms
// whose webhooks are unreliable or not yet configured; because Ingest
// is idempotent, overlapping a sync with live webhook traffic is safe.
// Returns the number of newly stored items.
func (s *IngestService) SyncAccount(ctx context.Context, userID, workspaceID, accountID uuid.UUID, since time.Time) (int, error) {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return 0, err
	}

	account, err := s.accountRepo.GetByIDAndWorkspace(ctx, accountID, workspaceID)
	if err != nil {
		return 0, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return 0, domain.ErrNotFound
	}

	ref, err := s.accounts.Credentials(ctx, account)
	if err != nil {
		return 0, err
	}

	adapter, err := s.registry.Get(account.Platform)
	if err != nil {
		return 0, err
	}

	items, err := adapter.FetchInboundItems(ctx, ref, since)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch inbound items: %w", err)
	}

	inserted := 0
	for _, it := range items {
		env := domain.InboundEnvelope{
			Platform:         account.Platform,
			SocialAccountID:  account.ID,
			PlatformItemID:   it.PlatformItemID,
			Kind:             it.Kind,
			AuthorExternalID: it.AuthorExternalID,
			AuthorUsername:   it.AuthorUsername,
			Content:          it.Content,
			ThreadID:         it.ThreadID,
			Timestamp:        it.Timestamp,
		}
		_, isNew, err := s.Ingest(ctx, workspaceID, env)
		if err != nil {
			return inserted, err
		}
		if isNew {
			inserted++
		}
	}

	log.Debug().
		Str("account_id", accountID.String()).
		Int("fetched", len(items)).
		Int("inserted", inserted).
		Msg("inbound sync finished")

	return inserted, nil
}

// Ingest records one inbound item. Returns the item and whether it was
// new; a redelivered item comes back with inserted == false and no side
// effects.
func (s *IngestService) Ingest(ctx context.Context, workspaceID uuid.UUID, env domain.InboundEnvelope) (*domain.InboxItem, bool, error) {
	// Redelivery check first: a known item must not touch the
	// conversation again.
	existing, err := s.itemRepo.GetByPlatformItemID(ctx, env.SocialAccountID, env.PlatformItemID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check existing item: %w", err)
	}
	if existing != nil {
		metrics.ObserveInbound(string(env.Platform), "duplicate")
		return existing, false, nil
	}

	conv, err := s.findOrCreateConversation(ctx, workspaceID, env)
	if err != nil {
		return nil, false, err
	}

	now := time.Now()
	item := &domain.InboxItem{
		ID:               uuid.New(),
		WorkspaceID:      workspaceID,
		SocialAccountID:  env.SocialAccountID,
		ConversationID:   conv.ID,
		PlatformItemID:   env.PlatformItemID,
		Kind:             env.Kind,
		AuthorExternalID: env.AuthorExternalID,
		AuthorUsername:   env.AuthorUsername,
		Content:          env.Content,
		PostTargetID:     env.PostTargetID,
		ThreadID:         env.ThreadID,
		ReceivedAt:       env.Timestamp,
		CreatedAt:        now,
	}

	inserted, err := s.itemRepo.Upsert(ctx, item)
	if err != nil {
		return nil, false, fmt.Errorf("failed to store item: %w", err)
	}
	if !inserted {
		// Lost a race with a concurrent delivery of the same item.
		metrics.ObserveInbound(string(env.Platform), "duplicate")
		return item, false, nil
	}

	if err := s.convRepo.Append(ctx, conv.ID, env.Timestamp); err != nil {
		return nil, false, fmt.Errorf("failed to append to conversation: %w", err)
	}

	metrics.ObserveInbound(string(env.Platform), "ingested")

	payload := map[string]any{
		"conversation_id": conv.ID.String(),
		"item_id":         item.ID.String(),
		"kind":            string(item.Kind),
		"platform":        string(env.Platform),
	}
	// An assigned conversation routes straight to its owner; only
	// unclaimed conversations fan out to the whole workspace.
	if conv.AssignedUserID != nil {
		err = s.notifier.NotifyUsers(ctx, workspaceID, []uuid.UUID{*conv.AssignedUserID}, domain.NotificationReply, payload)
	} else {
		err = s.notifier.NotifyWorkspace(ctx, workspaceID, domain.NotificationNewInboxItem, payload)
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to notify inbound item")
	}

	return item, true, nil
}

func (s *IngestService) findOrCreateConversation(ctx context.Context, workspaceID uuid.UUID, env domain.InboundEnvelope) (*domain.InboxConversation, error) {
	key := env.GroupingKey()

	conv, err := s.convRepo.GetByKey(ctx, workspaceID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to look up conversation: %w", err)
	}
	if conv != nil {
		return conv, nil
	}

	now := time.Now()
	conv = &domain.InboxConversation{
		ID:              uuid.New(),
		WorkspaceID:     workspaceID,
		SocialAccountID: env.SocialAccountID,
		ConversationKey: key,
		Platform:        env.Platform,
		State:           domain.ConversationActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.convRepo.Create(ctx, conv); err != nil {
		// A concurrent delivery may have created the same key; the
		// unique constraint makes the re-read authoritative.
		existing, lookupErr := s.convRepo.GetByKey(ctx, workspaceID, key)
		if lookupErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return conv, nil
}

// ResolveAccount maps a platform identity from a webhook delivery to
// the connected account it belongs to
func (s *IngestService) ResolveAccount(ctx context.Context, workspaceID uuid.UUID, platform domain.Platform, externalID string) (*domain.SocialAccount, error) {
	account, err := s.accountRepo.GetByExternalID(ctx, workspaceID, platform, externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}
	return account, nil
}

// ListConversations retrieves conversations in a workspace
func (s *IngestService) ListConversations(ctx context.Context, userID, workspaceID uuid.UUID, state *domain.ConversationState, limit, offset int) ([]domain.InboxConversation, error) {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return nil, err
	}
	return s.convRepo.ListByWorkspace(ctx, workspaceID, state, limit, offset)
}

// ListItems retrieves the items of a conversation
func (s *IngestService) ListItems(ctx context.Context, userID, workspaceID, conversationID uuid.UUID, limit, offset int) ([]domain.InboxItem, error) {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return nil, err
	}
	return s.itemRepo.ListByConversation(ctx, workspaceID, conversationID, limit, offset)
}

// SetConversationState moves a conversation between active, resolved
// and archived
func (s *IngestService) SetConversationState(ctx context.Context, userID, workspaceID, conversationID uuid.UUID, state domain.ConversationState) error {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return err
	}

	conv, err := s.convRepo.GetByIDAndWorkspace(ctx, conversationID, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv == nil {
		return domain.ErrNotFound
	}

	return s.convRepo.SetState(ctx, conversationID, workspaceID, state)
}

// AssignConversation assigns a conversation to a team member and
// notifies them
func (s *IngestService) AssignConversation(ctx context.Context, userID, workspaceID, conversationID uuid.UUID, assigneeID *uuid.UUID) error {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return err
	}

	if assigneeID != nil {
		if err := s.workspaces.RequireMember(ctx, *assigneeID, workspaceID); err != nil {
			return fmt.Errorf("assignee is not a member: %w", err)
		}
	}

	conv, err := s.convRepo.GetByIDAndWorkspace(ctx, conversationID, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv == nil {
		return domain.ErrNotFound
	}

	if err := s.convRepo.Assign(ctx, conversationID, workspaceID, assigneeID); err != nil {
		return fmt.Errorf("failed to assign conversation: %w", err)
	}

	if assigneeID != nil {
		payload := map[string]any{
			"conversation_id": conversationID.String(),
			"assigned_by":     userID.String(),
		}
		if err := s.notifier.NotifyUsers(ctx, workspaceID, []uuid.UUID{*assigneeID}, domain.NotificationAssigned, payload); err != nil {
			log.Error().Err(err).Msg("failed to notify assignment")
		}
	}

	return nil
}
