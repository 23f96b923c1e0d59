package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crossply/crossply/internal/config"
	"github.com/crossply/crossply/internal/domain"
	"github.com/crossply/crossply/internal/platform"
	"github.com/crossply/crossply/internal/security"
)

type dispatchFixture struct {
	postRepo     *MockPostRepo
	targetRepo   *MockPostTargetRepo
	accountRepo  *MockSocialAccountRepo
	workspaceRepo *MockWorkspaceRepo
	notifRepo    *MockNotificationRepo
	broadcaster  *MockBroadcaster
	adapter      *MockAdapter
	cipher       *security.TokenCipher
	svc          *DispatchService
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()

	enc, err := security.NewEncryptor([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	cipher := security.NewTokenCipher(enc)

	f := &dispatchFixture{
		postRepo:      new(MockPostRepo),
		targetRepo:    new(MockPostTargetRepo),
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

	f.svc = NewDispatchService(f.postRepo, f.targetRepo, f.accountRepo, accounts, registry, notifier, config.DispatchConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	})
	return f
}

func (f *dispatchFixture) sealedAccount(workspaceID uuid.UUID) *domain.SocialAccount {
	set, _ := f.cipher.Seal("access-token", "")
	return &domain.SocialAccount{
		ID:                   uuid.New(),
		WorkspaceID:          workspaceID,
		Platform:             domain.PlatformFacebook,
		ExternalAccountID:    "ext-1",
		AccessTokenEncrypted: set.Access,
		Status:               domain.AccountStatusConnected,
	}
}

func scheduledPost(workspaceID uuid.UUID) *domain.Post {
	return &domain.Post{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		Body:        "hello",
		MediaType:   domain.MediaTypeText,
		Status:      domain.PostStatusScheduled,
	}
}

func TestDispatchPartialPublish(t *testing.T) {
	f := newDispatchFixture(t)
	workspaceID := uuid.New()
	post := scheduledPost(workspaceID)
	account := f.sealedAccount(workspaceID)

	okTarget := domain.PostTarget{ID: uuid.New(), PostID: post.ID, SocialAccountID: account.ID, Platform: domain.PlatformFacebook, Status: domain.TargetStatusPending}
	badTarget := domain.PostTarget{ID: uuid.New(), PostID: post.ID, SocialAccountID: uuid.New(), Platform: domain.PlatformFacebook, Status: domain.TargetStatusPending}

	f.postRepo.On("GetByIDAndWorkspace", mock.Anything, post.ID, workspaceID).Return(post, nil)
	f.targetRepo.On("ListByPost", mock.Anything, post.ID).Return([]domain.PostTarget{okTarget, badTarget}, nil)
	f.targetRepo.On("ClaimForPublishing", mock.Anything, okTarget.ID).Return(true, nil)
	f.targetRepo.On("ClaimForPublishing", mock.Anything, badTarget.ID).Return(true, nil)

	f.accountRepo.On("GetByIDAndWorkspace", mock.Anything, okTarget.SocialAccountID, workspaceID).Return(account, nil)
	// The second target's account is gone.
	f.accountRepo.On("GetByIDAndWorkspace", mock.Anything, badTarget.SocialAccountID, workspaceID).Return(nil, nil)

	f.adapter.On("PublishPost", mock.Anything, mock.Anything, mock.Anything).
		Return(&platform.PublishResult{ExternalPostID: "fb-123"}, nil).Once()

	f.targetRepo.On("MarkPublished", mock.Anything, okTarget.ID, "fb-123", mock.Anything).Return(nil)
	f.targetRepo.On("MarkFailed", mock.Anything, badTarget.ID, "account_disconnected", mock.Anything, 0).Return(nil)

	// One published target is enough to settle the post as published.
	f.postRepo.On("UpdateStatus", mock.Anything, post.ID, domain.PostStatusScheduled, domain.PostStatusPublished).Return(true, nil)
	f.postRepo.On("SetPublished", mock.Anything, post.ID, mock.Anything).Return(nil)
	f.workspaceRepo.On("ListMemberIDs", mock.Anything, workspaceID).Return([]uuid.UUID{}, nil)

	err := f.svc.Process(context.Background(), domain.PublishJob{PostID: post.ID, WorkspaceID: workspaceID})

	require.NoError(t, err)
	f.targetRepo.AssertExpectations(t)
	f.postRepo.AssertExpectations(t)
}

func TestDispatchAllTargetsFailed(t *testing.T) {
	f := newDispatchFixture(t)
	workspaceID := uuid.New()
	post := scheduledPost(workspaceID)
	account := f.sealedAccount(workspaceID)

	target := domain.PostTarget{ID: uuid.New(), PostID: post.ID, SocialAccountID: account.ID, Platform: domain.PlatformFacebook, Status: domain.TargetStatusPending}

	f.postRepo.On("GetByIDAndWorkspace", mock.Anything, post.ID, workspaceID).Return(post, nil)
	f.targetRepo.On("ListByPost", mock.Anything, post.ID).Return([]domain.PostTarget{target}, nil)
	f.targetRepo.On("ClaimForPublishing", mock.Anything, target.ID).Return(true, nil)
	f.accountRepo.On("GetByIDAndWorkspace", mock.Anything, account.ID, workspaceID).Return(account, nil)

	f.adapter.On("PublishPost", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, platform.NewError(platform.CodeContentRejected, "rejected", false))

	f.targetRepo.On("MarkFailed", mock.Anything, target.ID, platform.CodeContentRejected, "rejected", 1).Return(nil)
	f.postRepo.On("UpdateStatus", mock.Anything, post.ID, domain.PostStatusScheduled, domain.PostStatusFailed).Return(true, nil)
	f.workspaceRepo.On("ListMemberIDs", mock.Anything, workspaceID).Return([]uuid.UUID{}, nil)

	err := f.svc.Process(context.Background(), domain.PublishJob{PostID: post.ID, WorkspaceID: workspaceID})

	require.NoError(t, err)
	// A permanent platform error is not retried.
	f.adapter.AssertNumberOfCalls(t, "PublishPost", 1)
	f.postRepo.AssertExpectations(t)
}

func TestDispatchRetryableErrorThenSuccess(t *testing.T) {
	f := newDispatchFixture(t)
	workspaceID := uuid.New()
	post := scheduledPost(workspaceID)
	account := f.sealedAccount(workspaceID)

	target := domain.PostTarget{ID: uuid.New(), PostID: post.ID, SocialAccountID: account.ID, Platform: domain.PlatformFacebook, Status: domain.TargetStatusPending}

	f.postRepo.On("GetByIDAndWorkspace", mock.Anything, post.ID, workspaceID).Return(post, nil)
	f.targetRepo.On("ListByPost", mock.Anything, post.ID).Return([]domain.PostTarget{target}, nil)
	f.targetRepo.On("ClaimForPublishing", mock.Anything, target.ID).Return(true, nil)
	f.accountRepo.On("GetByIDAndWorkspace", mock.Anything, account.ID, workspaceID).Return(account, nil)

	f.adapter.On("PublishPost", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, platform.NewError(platform.CodeRateLimited, "slow down", true)).Once()
	f.adapter.On("PublishPost", mock.Anything, mock.Anything, mock.Anything).
		Return(&platform.PublishResult{ExternalPostID: "fb-9"}, nil).Once()

	f.targetRepo.On("MarkPublished", mock.Anything, target.ID, "fb-9", mock.Anything).Return(nil)
	f.postRepo.On("UpdateStatus", mock.Anything, post.ID, domain.PostStatusScheduled, domain.PostStatusPublished).Return(true, nil)
	f.postRepo.On("SetPublished", mock.Anything, post.ID, mock.Anything).Return(nil)
	f.workspaceRepo.On("ListMemberIDs", mock.Anything, workspaceID).Return([]uuid.UUID{}, nil)

	err := f.svc.Process(context.Background(), domain.PublishJob{PostID: post.ID, WorkspaceID: workspaceID})

	require.NoError(t, err)
	f.adapter.AssertNumberOfCalls(t, "PublishPost", 2)
	f.targetRepo.AssertExpectations(t)
}

func TestDispatchDropsCancelledPost(t *testing.T) {
	f := newDispatchFixture(t)
	workspaceID := uuid.New()
	post := scheduledPost(workspaceID)
	post.Status = domain.PostStatusCancelled

	f.postRepo.On("GetByIDAndWorkspace", mock.Anything, post.ID, workspaceID).Return(post, nil)

	err := f.svc.Process(context.Background(), domain.PublishJob{PostID: post.ID, WorkspaceID: workspaceID})

	require.NoError(t, err)
	f.targetRepo.AssertNotCalled(t, "ListByPost", mock.Anything, mock.Anything)
}

func TestDispatchDropsUnknownPost(t *testing.T) {
	f := newDispatchFixture(t)
	jobID := uuid.New()
	workspaceID := uuid.New()

	f.postRepo.On("GetByIDAndWorkspace", mock.Anything, jobID, workspaceID).Return(nil, nil)

	err := f.svc.Process(context.Background(), domain.PublishJob{PostID: jobID, WorkspaceID: workspaceID})

	require.NoError(t, err)
	f.targetRepo.AssertNotCalled(t, "ListByPost", mock.Anything, mock.Anything)
}

func TestDispatchTokenUnavailableFailsTargetOnly(t *testing.T) {
	f := newDispatchFixture(t)
	workspaceID := uuid.New()
	post := scheduledPost(workspaceID)

	account := f.sealedAccount(workspaceID)
	// Corrupt the ciphertext so the vault cannot open it.
	account.AccessTokenEncrypted = []byte("not ciphertext")

	target := domain.PostTarget{ID: uuid.New(), PostID: post.ID, SocialAccountID: account.ID, Platform: domain.PlatformFacebook, Status: domain.TargetStatusPending}

	f.postRepo.On("GetByIDAndWorkspace", mock.Anything, post.ID, workspaceID).Return(post, nil)
	f.targetRepo.On("ListByPost", mock.Anything, post.ID).Return([]domain.PostTarget{target}, nil)
	f.targetRepo.On("ClaimForPublishing", mock.Anything, target.ID).Return(true, nil)
	f.accountRepo.On("GetByIDAndWorkspace", mock.Anything, account.ID, workspaceID).Return(account, nil)
	f.accountRepo.On("UpdateStatus", mock.Anything, account.ID, domain.AccountStatusError).Return(nil)

	f.targetRepo.On("MarkFailed", mock.Anything, target.ID, platform.CodeAuthExpired, mock.Anything, 0).Return(nil)
	f.postRepo.On("UpdateStatus", mock.Anything, post.ID, domain.PostStatusScheduled, domain.PostStatusFailed).Return(true, nil)
	f.workspaceRepo.On("ListMemberIDs", mock.Anything, workspaceID).Return([]uuid.UUID{}, nil)

	err := f.svc.Process(context.Background(), domain.PublishJob{PostID: post.ID, WorkspaceID: workspaceID})

	require.NoError(t, err)
	f.adapter.AssertNotCalled(t, "PublishPost", mock.Anything, mock.Anything, mock.Anything)
	f.accountRepo.AssertCalled(t, "UpdateStatus", mock.Anything, account.ID, domain.AccountStatusError)
}

func TestDispatchSkipsUnclaimedTargets(t *testing.T) {
	f := newDispatchFixture(t)
	workspaceID := uuid.New()
	post := scheduledPost(workspaceID)

	target := domain.PostTarget{ID: uuid.New(), PostID: post.ID, SocialAccountID: uuid.New(), Platform: domain.PlatformFacebook, Status: domain.TargetStatusPending}

	f.postRepo.On("GetByIDAndWorkspace", mock.Anything, post.ID, workspaceID).Return(post, nil)
	f.targetRepo.On("ListByPost", mock.Anything, post.ID).Return([]domain.PostTarget{target}, nil)
	// Another worker holds the claim.
	f.targetRepo.On("ClaimForPublishing", mock.Anything, target.ID).Return(false, nil)

	err := f.svc.Process(context.Background(), domain.PublishJob{PostID: post.ID, WorkspaceID: workspaceID})

	require.NoError(t, err)
	assert.True(t, f.postRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything))
}
