package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/crossply/crossply/internal/domain"
	"github.com/crossply/crossply/internal/platform"
)

type MockPostRepo struct {
	mock.Mock
}

func (m *MockPostRepo) Create(ctx context.Context, post *domain.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepo) GetByIDAndWorkspace(ctx context.Context, id, workspaceID uuid.UUID) (*domain.Post, error) {
	args := m.Called(ctx, id, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Post), args.Error(1)
}

func (m *MockPostRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, status *domain.PostStatus, limit, offset int) ([]domain.Post, error) {
	args := m.Called(ctx, workspaceID, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Post), args.Error(1)
}

func (m *MockPostRepo) Update(ctx context.Context, post *domain.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.PostStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockPostRepo) SoftDeleteDraftsBulk(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) (int64, error) {
	args := m.Called(ctx, workspaceID, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPostRepo) SubmitBulk(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) (int64, error) {
	args := m.Called(ctx, workspaceID, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPostRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.Post, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Post), args.Error(1)
}

func (m *MockPostRepo) ReleaseQueued(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPostRepo) SetPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

type MockPostTargetRepo struct {
	mock.Mock
}

func (m *MockPostTargetRepo) Create(ctx context.Context, target *domain.PostTarget) error {
	args := m.Called(ctx, target)
	return args.Error(0)
}

func (m *MockPostTargetRepo) ListByPost(ctx context.Context, postID uuid.UUID) ([]domain.PostTarget, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PostTarget), args.Error(1)
}

func (m *MockPostTargetRepo) ClaimForPublishing(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockPostTargetRepo) MarkPublished(ctx context.Context, id uuid.UUID, externalPostID string, at time.Time) error {
	args := m.Called(ctx, id, externalPostID, at)
	return args.Error(0)
}

func (m *MockPostTargetRepo) MarkFailed(ctx context.Context, id uuid.UUID, errorCode, errorMessage string, retryCount int) error {
	args := m.Called(ctx, id, errorCode, errorMessage, retryCount)
	return args.Error(0)
}

func (m *MockPostTargetRepo) DeleteByPost(ctx context.Context, postID uuid.UUID) error {
	args := m.Called(ctx, postID)
	return args.Error(0)
}

type MockSocialAccountRepo struct {
	mock.Mock
}

func (m *MockSocialAccountRepo) Create(ctx context.Context, account *domain.SocialAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockSocialAccountRepo) GetByIDAndWorkspace(ctx context.Context, id, workspaceID uuid.UUID) (*domain.SocialAccount, error) {
	args := m.Called(ctx, id, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SocialAccount), args.Error(1)
}

func (m *MockSocialAccountRepo) GetByExternalID(ctx context.Context, workspaceID uuid.UUID, p domain.Platform, externalID string) (*domain.SocialAccount, error) {
	args := m.Called(ctx, workspaceID, p, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SocialAccount), args.Error(1)
}

func (m *MockSocialAccountRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]domain.SocialAccount, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SocialAccount), args.Error(1)
}

func (m *MockSocialAccountRepo) UpdateTokens(ctx context.Context, id uuid.UUID, access, refresh []byte, expiresAt *time.Time) error {
	args := m.Called(ctx, id, access, refresh, expiresAt)
	return args.Error(0)
}

func (m *MockSocialAccountRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

type MockWorkspaceRepo struct {
	mock.Mock
}

func (m *MockWorkspaceRepo) Create(ctx context.Context, workspace *domain.Workspace) error {
	args := m.Called(ctx, workspace)
	return args.Error(0)
}

func (m *MockWorkspaceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workspace, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Workspace), args.Error(1)
}

func (m *MockWorkspaceRepo) Update(ctx context.Context, id uuid.UUID, update *domain.WorkspaceUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *MockWorkspaceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockWorkspaceRepo) AddMember(ctx context.Context, member *domain.WorkspaceMember) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockWorkspaceRepo) RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	args := m.Called(ctx, workspaceID, userID)
	return args.Error(0)
}

func (m *MockWorkspaceRepo) GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (*domain.WorkspaceMember, error) {
	args := m.Called(ctx, workspaceID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WorkspaceMember), args.Error(1)
}

func (m *MockWorkspaceRepo) IsMember(ctx context.Context, workspaceID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, workspaceID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockWorkspaceRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Workspace, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Workspace), args.Error(1)
}

func (m *MockWorkspaceRepo) ListMemberIDs(ctx context.Context, workspaceID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

type MockTenantRepo struct {
	mock.Mock
}

func (m *MockTenantRepo) Create(ctx context.Context, tenant *domain.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepo) SetPlan(ctx context.Context, id uuid.UUID, planID *uuid.UUID) error {
	args := m.Called(ctx, id, planID)
	return args.Error(0)
}

func (m *MockTenantRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockInboxItemRepo struct {
	mock.Mock
}

func (m *MockInboxItemRepo) Upsert(ctx context.Context, item *domain.InboxItem) (bool, error) {
	args := m.Called(ctx, item)
	return args.Bool(0), args.Error(1)
}

func (m *MockInboxItemRepo) GetByPlatformItemID(ctx context.Context, socialAccountID uuid.UUID, platformItemID string) (*domain.InboxItem, error) {
	args := m.Called(ctx, socialAccountID, platformItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InboxItem), args.Error(1)
}

func (m *MockInboxItemRepo) ListByConversation(ctx context.Context, workspaceID, conversationID uuid.UUID, limit, offset int) ([]domain.InboxItem, error) {
	args := m.Called(ctx, workspaceID, conversationID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InboxItem), args.Error(1)
}

func (m *MockInboxItemRepo) CountByConversation(ctx context.Context, conversationID uuid.UUID) (int, error) {
	args := m.Called(ctx, conversationID)
	return args.Int(0), args.Error(1)
}

type MockInboxConversationRepo struct {
	mock.Mock
}

func (m *MockInboxConversationRepo) Create(ctx context.Context, conv *domain.InboxConversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *MockInboxConversationRepo) GetByIDAndWorkspace(ctx context.Context, id, workspaceID uuid.UUID) (*domain.InboxConversation, error) {
	args := m.Called(ctx, id, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InboxConversation), args.Error(1)
}

func (m *MockInboxConversationRepo) GetByKey(ctx context.Context, workspaceID uuid.UUID, key string) (*domain.InboxConversation, error) {
	args := m.Called(ctx, workspaceID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InboxConversation), args.Error(1)
}

func (m *MockInboxConversationRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, state *domain.ConversationState, limit, offset int) ([]domain.InboxConversation, error) {
	args := m.Called(ctx, workspaceID, state, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InboxConversation), args.Error(1)
}

func (m *MockInboxConversationRepo) Append(ctx context.Context, id uuid.UUID, messageAt time.Time) error {
	args := m.Called(ctx, id, messageAt)
	return args.Error(0)
}

func (m *MockInboxConversationRepo) SetState(ctx context.Context, id, workspaceID uuid.UUID, state domain.ConversationState) error {
	args := m.Called(ctx, id, workspaceID, state)
	return args.Error(0)
}

func (m *MockInboxConversationRepo) Assign(ctx context.Context, id, workspaceID uuid.UUID, userID *uuid.UUID) error {
	args := m.Called(ctx, id, workspaceID, userID)
	return args.Error(0)
}

type MockWhatsAppConversationRepo struct {
	mock.Mock
}

func (m *MockWhatsAppConversationRepo) Create(ctx context.Context, conv *domain.WhatsAppConversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *MockWhatsAppConversationRepo) GetByIDAndWorkspace(ctx context.Context, id, workspaceID uuid.UUID) (*domain.WhatsAppConversation, error) {
	args := m.Called(ctx, id, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WhatsAppConversation), args.Error(1)
}

func (m *MockWhatsAppConversationRepo) GetByPhone(ctx context.Context, workspaceID, socialAccountID uuid.UUID, phone string) (*domain.WhatsAppConversation, error) {
	args := m.Called(ctx, workspaceID, socialAccountID, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WhatsAppConversation), args.Error(1)
}

func (m *MockWhatsAppConversationRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, limit, offset int) ([]domain.WhatsAppConversation, error) {
	args := m.Called(ctx, workspaceID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WhatsAppConversation), args.Error(1)
}

func (m *MockWhatsAppConversationRepo) RefreshWindow(ctx context.Context, id uuid.UUID, messageAt, expiresAt time.Time) error {
	args := m.Called(ctx, id, messageAt, expiresAt)
	return args.Error(0)
}

func (m *MockWhatsAppConversationRepo) RecordOutbound(ctx context.Context, id uuid.UUID, messageAt time.Time) error {
	args := m.Called(ctx, id, messageAt)
	return args.Error(0)
}

type MockWhatsAppMessageRepo struct {
	mock.Mock
}

func (m *MockWhatsAppMessageRepo) Upsert(ctx context.Context, msg *domain.WhatsAppMessage) (bool, error) {
	args := m.Called(ctx, msg)
	return args.Bool(0), args.Error(1)
}

func (m *MockWhatsAppMessageRepo) ListByConversation(ctx context.Context, workspaceID, conversationID uuid.UUID, limit, offset int) ([]domain.WhatsAppMessage, error) {
	args := m.Called(ctx, workspaceID, conversationID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WhatsAppMessage), args.Error(1)
}

type MockNotificationRepo struct {
	mock.Mock
}

func (m *MockNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationRepo) ListByRecipient(ctx context.Context, workspaceID, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	args := m.Called(ctx, workspaceID, recipientID, unreadOnly, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Notification), args.Error(1)
}

func (m *MockNotificationRepo) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	args := m.Called(ctx, id, recipientID)
	return args.Error(0)
}

func (m *MockNotificationRepo) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockNotificationRepo) MarkFailed(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockNotificationRepo) CountUnread(ctx context.Context, workspaceID, recipientID uuid.UUID) (int, error) {
	args := m.Called(ctx, workspaceID, recipientID)
	return args.Int(0), args.Error(1)
}

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) Publish(ctx context.Context, event domain.BroadcastEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, job domain.PublishJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockQueue) Dequeue(ctx context.Context, timeout time.Duration) (*domain.PublishJob, error) {
	args := m.Called(ctx, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PublishJob), args.Error(1)
}

type MockAdapter struct {
	mock.Mock
	platform domain.Platform
}

func (m *MockAdapter) Platform() domain.Platform {
	return m.platform
}

func (m *MockAdapter) PublishPost(ctx context.Context, ref platform.AccountRef, content platform.Content) (*platform.PublishResult, error) {
	args := m.Called(ctx, ref, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*platform.PublishResult), args.Error(1)
}

func (m *MockAdapter) FetchEngagement(ctx context.Context, ref platform.AccountRef, externalPostID string, window time.Duration) (*platform.Metrics, error) {
	args := m.Called(ctx, ref, externalPostID, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*platform.Metrics), args.Error(1)
}

func (m *MockAdapter) FetchInboundItems(ctx context.Context, ref platform.AccountRef, since time.Time) ([]platform.InboundItem, error) {
	args := m.Called(ctx, ref, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]platform.InboundItem), args.Error(1)
}

func (m *MockAdapter) RefreshToken(ctx context.Context, refreshToken string) (*platform.TokenGrant, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*platform.TokenGrant), args.Error(1)
}

type MockWhatsAppSender struct {
	mock.Mock
}

func (m *MockWhatsAppSender) SendText(ctx context.Context, accessToken, recipient, body string) (string, error) {
	args := m.Called(ctx, accessToken, recipient, body)
	return args.String(0), args.Error(1)
}

func (m *MockWhatsAppSender) SendTemplate(ctx context.Context, accessToken, recipient, template, languageCode string, params []string) (string, error) {
	args := m.Called(ctx, accessToken, recipient, template, languageCode, params)
	return args.String(0), args.Error(1)
}
