package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crossply/crossply/internal/domain"
	"github.com/crossply/crossply/internal/platform"
	"github.com/crossply/crossply/internal/security"
)

type ingestFixture struct {
	itemRepo      *MockInboxItemRepo
	convRepo      *MockInboxConversationRepo
	accountRepo   *MockSocialAccountRepo
	workspaceRepo *MockWorkspaceRepo
	notifRepo     *MockNotificationRepo
	broadcaster   *MockBroadcaster
	adapter       *MockAdapter
	cipher        *security.TokenCipher
	svc           *IngestService
}

func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()

	enc, err := security.NewEncryptor([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	cipher := security.NewTokenCipher(enc)

	f := &ingestFixture{
		itemRepo:      new(MockInboxItemRepo),
		convRepo:      new(MockInboxConversationRepo),
		accountRepo:   new(MockSocialAccountRepo),
		workspaceRepo: new(MockWorkspaceRepo),
		notifRepo:     new(MockNotificationRepo),
		broadcaster:   new(MockBroadcaster),
		adapter:       &MockAdapter{platform: domain.PlatformFacebook},
		cipher:        cipher,
	}

	registry := platform.NewRegistry()
	registry.Register(f.adapter)

	workspaces := NewWorkspaceService(f.workspaceRepo, new(MockUserRepo))
	accounts := NewAccountService(f.accountRepo, workspaces, registry, cipher, time.Hour)
	notifier := NewNotifier(f.notifRepo, f.workspaceRepo, f.broadcaster)
	f.svc = NewIngestService(f.itemRepo, f.convRepo, f.accountRepo, workspaces, accounts, registry, notifier)
	return f
}

func commentEnvelope(accountID uuid.UUID) domain.InboundEnvelope {
	return domain.InboundEnvelope{
		Platform:         domain.PlatformFacebook,
		SocialAccountID:  accountID,
		PlatformItemID:   "comment-1",
		Kind:             domain.InboxItemComment,
		AuthorExternalID: "author-9",
		AuthorUsername:   "jordan",
		Content:          "nice post",
		Timestamp:        time.Now().Add(-time.Minute),
	}
}

func TestIngestNewItemCreatesConversation(t *testing.T) {
	f := newIngestFixture(t)
	workspaceID := uuid.New()
	accountID := uuid.New()
	env := commentEnvelope(accountID)

	f.itemRepo.On("GetByPlatformItemID", mock.Anything, accountID, env.PlatformItemID).Return(nil, nil)
	f.convRepo.On("GetByKey", mock.Anything, workspaceID, env.GroupingKey()).Return(nil, nil)
	f.convRepo.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.InboxConversation) bool {
		return c.WorkspaceID == workspaceID &&
			c.ConversationKey == env.GroupingKey() &&
			c.State == domain.ConversationActive
	})).Return(nil)
	f.itemRepo.On("Upsert", mock.Anything, mock.Anything).Return(true, nil)
	f.convRepo.On("Append", mock.Anything, mock.Anything, env.Timestamp).Return(nil)
	f.workspaceRepo.On("ListMemberIDs", mock.Anything, workspaceID).Return([]uuid.UUID{}, nil)

	item, inserted, err := f.svc.Ingest(context.Background(), workspaceID, env)

	require.NoError(t, err)
	require.True(t, inserted)
	require.Equal(t, env.Content, item.Content)
	f.convRepo.AssertExpectations(t)
}

func TestIngestRedeliveryIsNoop(t *testing.T) {
	f := newIngestFixture(t)
	workspaceID := uuid.New()
	accountID := uuid.New()
	env := commentEnvelope(accountID)

	existing := &domain.InboxItem{ID: uuid.New(), PlatformItemID: env.PlatformItemID}
	f.itemRepo.On("GetByPlatformItemID", mock.Anything, accountID, env.PlatformItemID).Return(existing, nil)

	item, inserted, err := f.svc.Ingest(context.Background(), workspaceID, env)

	require.NoError(t, err)
	require.False(t, inserted)
	require.Equal(t, existing.ID, item.ID)
	f.convRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
	f.notifRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestIngestUpsertRaceIsNoop(t *testing.T) {
	f := newIngestFixture(t)
	workspaceID := uuid.New()
	accountID := uuid.New()
	env := commentEnvelope(accountID)

	conv := &domain.InboxConversation{ID: uuid.New(), WorkspaceID: workspaceID, ConversationKey: env.GroupingKey()}

	f.itemRepo.On("GetByPlatformItemID", mock.Anything, accountID, env.PlatformItemID).Return(nil, nil)
	f.convRepo.On("GetByKey", mock.Anything, workspaceID, env.GroupingKey()).Return(conv, nil)
	// A concurrent delivery won the insert.
	f.itemRepo.On("Upsert", mock.Anything, mock.Anything).Return(false, nil)

	_, inserted, err := f.svc.Ingest(context.Background(), workspaceID, env)

	require.NoError(t, err)
	require.False(t, inserted)
	f.convRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestAssignedConversationNotifiesOwnerOnly(t *testing.T) {
	f := newIngestFixture(t)
	workspaceID := uuid.New()
	accountID := uuid.New()
	assigneeID := uuid.New()
	env := commentEnvelope(accountID)

	conv := &domain.InboxConversation{
		ID:              uuid.New(),
		WorkspaceID:     workspaceID,
		ConversationKey: env.GroupingKey(),
		AssignedUserID:  &assigneeID,
	}

	f.itemRepo.On("GetByPlatformItemID", mock.Anything, accountID, env.PlatformItemID).Return(nil, nil)
	f.convRepo.On("GetByKey", mock.Anything, workspaceID, env.GroupingKey()).Return(conv, nil)
	f.itemRepo.On("Upsert", mock.Anything, mock.Anything).Return(true, nil)
	f.convRepo.On("Append", mock.Anything, conv.ID, env.Timestamp).Return(nil)
	f.notifRepo.On("Create", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.RecipientID == assigneeID && n.Kind == domain.NotificationReply
	})).Return(nil)
	f.broadcaster.On("Publish", mock.Anything, mock.Anything).Return(nil)
	f.notifRepo.On("MarkSent", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, inserted, err := f.svc.Ingest(context.Background(), workspaceID, env)

	require.NoError(t, err)
	require.True(t, inserted)
	f.workspaceRepo.AssertNotCalled(t, "ListMemberIDs", mock.Anything, mock.Anything)
	f.notifRepo.AssertExpectations(t)
}

func TestIngestReusesExistingConversation(t *testing.T) {
	f := newIngestFixture(t)
	workspaceID := uuid.New()
	accountID := uuid.New()
	env := commentEnvelope(accountID)

	conv := &domain.InboxConversation{ID: uuid.New(), WorkspaceID: workspaceID, ConversationKey: env.GroupingKey()}

	f.itemRepo.On("GetByPlatformItemID", mock.Anything, accountID, env.PlatformItemID).Return(nil, nil)
	f.convRepo.On("GetByKey", mock.Anything, workspaceID, env.GroupingKey()).Return(conv, nil)
	f.itemRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(i *domain.InboxItem) bool {
		return i.ConversationID == conv.ID
	})).Return(true, nil)
	f.convRepo.On("Append", mock.Anything, conv.ID, env.Timestamp).Return(nil)
	f.workspaceRepo.On("ListMemberIDs", mock.Anything, workspaceID).Return([]uuid.UUID{}, nil)

	_, inserted, err := f.svc.Ingest(context.Background(), workspaceID, env)

	require.NoError(t, err)
	require.True(t, inserted)
	f.convRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestIngestConversationCreateRace(t *testing.T) {
	f := newIngestFixture(t)
	workspaceID := uuid.New()
	accountID := uuid.New()
	env := commentEnvelope(accountID)

	winner := &domain.InboxConversation{ID: uuid.New(), WorkspaceID: workspaceID, ConversationKey: env.GroupingKey()}

	f.itemRepo.On("GetByPlatformItemID", mock.Anything, accountID, env.PlatformItemID).Return(nil, nil)
	f.convRepo.On("GetByKey", mock.Anything, workspaceID, env.GroupingKey()).Return(nil, nil).Once()
	f.convRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("duplicate key"))
	f.convRepo.On("GetByKey", mock.Anything, workspaceID, env.GroupingKey()).Return(winner, nil).Once()
	f.itemRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(i *domain.InboxItem) bool {
		return i.ConversationID == winner.ID
	})).Return(true, nil)
	f.convRepo.On("Append", mock.Anything, winner.ID, env.Timestamp).Return(nil)
	f.workspaceRepo.On("ListMemberIDs", mock.Anything, workspaceID).Return([]uuid.UUID{}, nil)

	_, inserted, err := f.svc.Ingest(context.Background(), workspaceID, env)

	require.NoError(t, err)
	require.True(t, inserted)
}

func TestGroupingKeyPrecedence(t *testing.T) {
	accountID := uuid.New()
	targetID := uuid.New()

	env := commentEnvelope(accountID)
	require.Equal(t, fmt.Sprintf("author:%s:%s", accountID, env.AuthorExternalID), env.GroupingKey())

	env.PostTargetID = &targetID
	require.Equal(t, fmt.Sprintf("target:%s:%s", targetID, env.AuthorExternalID), env.GroupingKey())

	env.ThreadID = "t-77"
	require.Equal(t, "thread:t-77", env.GroupingKey())
}

func TestAssignConversationNotifiesAssignee(t *testing.T) {
	f := newIngestFixture(t)
	workspaceID := uuid.New()
	conversationID := uuid.New()
	actorID := uuid.New()
	assigneeID := uuid.New()

	f.workspaceRepo.On("IsMember", mock.Anything, workspaceID, actorID).Return(true, nil)
	f.workspaceRepo.On("IsMember", mock.Anything, workspaceID, assigneeID).Return(true, nil)
	f.convRepo.On("GetByIDAndWorkspace", mock.Anything, conversationID, workspaceID).
		Return(&domain.InboxConversation{ID: conversationID, WorkspaceID: workspaceID}, nil)
	f.convRepo.On("Assign", mock.Anything, conversationID, workspaceID, &assigneeID).Return(nil)
	f.notifRepo.On("Create", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.RecipientID == assigneeID && n.Kind == domain.NotificationAssigned
	})).Return(nil)
	f.broadcaster.On("Publish", mock.Anything, mock.Anything).Return(nil)
	f.notifRepo.On("MarkSent", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	err := f.svc.AssignConversation(context.Background(), actorID, workspaceID, conversationID, &assigneeID)

	require.NoError(t, err)
	f.notifRepo.AssertExpectations(t)
}

func TestAssignConversationRejectsOutsideAssignee(t *testing.T) {
	f := newIngestFixture(t)
	workspaceID := uuid.New()
	actorID := uuid.New()
	assigneeID := uuid.New()

	f.workspaceRepo.On("IsMember", mock.Anything, workspaceID, actorID).Return(true, nil)
	f.workspaceRepo.On("IsMember", mock.Anything, workspaceID, assigneeID).Return(false, nil)

	err := f.svc.AssignConversation(context.Background(), actorID, workspaceID, uuid.New(), &assigneeID)

	require.ErrorIs(t, err, domain.ErrAccessDenied)
	f.convRepo.AssertNotCalled(t, "Assign", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetConversationStateRequiresMembership(t *testing.T) {
	f := newIngestFixture(t)
	workspaceID := uuid.New()
	userID := uuid.New()

	f.workspaceRepo.On("IsMember", mock.Anything, workspaceID, userID).Return(false, nil)

	err := f.svc.SetConversationState(context.Background(), userID, workspaceID, uuid.New(), domain.ConversationResolved)

	require.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestSyncAccountIngestsFetchedItems(t *testing.T) {
	f := newIngestFixture(t)
	workspaceID := uuid.New()
	userID := uuid.New()
	since := time.Now().Add(-time.Hour)

	set, _ := f.cipher.Seal("access-token", "")
	account := &domain.SocialAccount{
		ID:                   uuid.New(),
		WorkspaceID:          workspaceID,
		Platform:             domain.PlatformFacebook,
		ExternalAccountID:    "page-1",
		AccessTokenEncrypted: set.Access,
		Status:               domain.AccountStatusConnected,
	}

	fetched := []platform.InboundItem{
		{PlatformItemID: "comment-new", Kind: domain.InboxItemComment, AuthorExternalID: "author-1", Content: "hello", Timestamp: since.Add(time.Minute)},
		{PlatformItemID: "comment-known", Kind: domain.InboxItemComment, AuthorExternalID: "author-2", Content: "again", Timestamp: since.Add(2 * time.Minute)},
	}

	f.workspaceRepo.On("IsMember", mock.Anything, workspaceID, userID).Return(true, nil)
	f.accountRepo.On("GetByIDAndWorkspace", mock.Anything, account.ID, workspaceID).Return(account, nil)
	f.adapter.On("FetchInboundItems", mock.Anything, mock.MatchedBy(func(ref platform.AccountRef) bool {
		return ref.AccessToken == "access-token"
	}), since).Return(fetched, nil)

	f.itemRepo.On("GetByPlatformItemID", mock.Anything, account.ID, "comment-new").Return(nil, nil)
	f.itemRepo.On("GetByPlatformItemID", mock.Anything, account.ID, "comment-known").
		Return(&domain.InboxItem{ID: uuid.New(), PlatformItemID: "comment-known"}, nil)
	f.convRepo.On("GetByKey", mock.Anything, workspaceID, mock.Anything).Return(nil, nil)
	f.convRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.itemRepo.On("Upsert", mock.Anything, mock.Anything).Return(true, nil)
	f.convRepo.On("Append", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.workspaceRepo.On("ListMemberIDs", mock.Anything, workspaceID).Return([]uuid.UUID{}, nil)

	inserted, err := f.svc.SyncAccount(context.Background(), userID, workspaceID, account.ID, since)

	require.NoError(t, err)
	require.Equal(t, 1, inserted)
	f.itemRepo.AssertNumberOfCalls(t, "Upsert", 1)
}

func TestSyncAccountUnknownAccount(t *testing.T) {
	f := newIngestFixture(t)
	workspaceID := uuid.New()
	userID := uuid.New()

	f.workspaceRepo.On("IsMember", mock.Anything, workspaceID, userID).Return(true, nil)
	f.accountRepo.On("GetByIDAndWorkspace", mock.Anything, mock.Anything, workspaceID).Return(nil, nil)

	_, err := f.svc.SyncAccount(context.Background(), userID, workspaceID, uuid.New(), time.Now())

	require.ErrorIs(t, err, domain.ErrNotFound)
	f.adapter.AssertNotCalled(t, "FetchInboundItems", mock.Anything, mock.Anything, mock.Anything)
}
