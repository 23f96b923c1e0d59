package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crossply/crossply/internal/domain"
)

// Every lookup is keyed by (id, workspace_id), so an ID from one
// workspace must surface as not-found in any other, even for a user
// who is a member of both.

func TestPostInvisibleOutsideItsWorkspace(t *testing.T) {
	f := newPostFixture()
	homeWS := uuid.New()
	otherWS := uuid.New()
	userID := uuid.New()
	f.member(homeWS, userID)
	f.member(otherWS, userID)

	post := &domain.Post{ID: uuid.New(), WorkspaceID: homeWS, Status: domain.PostStatusDraft}
	f.postRepo.On("GetByIDAndWorkspace", mock.Anything, post.ID, homeWS).Return(post, nil)
	f.postRepo.On("GetByIDAndWorkspace", mock.Anything, post.ID, otherWS).Return(nil, nil)

	got, err := f.svc.Get(context.Background(), userID, homeWS, post.ID)
	require.NoError(t, err)
	require.Equal(t, post.ID, got.ID)

	_, err = f.svc.Get(context.Background(), userID, otherWS, post.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccountInvisibleOutsideItsWorkspace(t *testing.T) {
	f := newAccountFixture(t)
	homeWS := uuid.New()
	otherWS := uuid.New()
	userID := uuid.New()

	f.workspaceRepo.On("IsMember", mock.Anything, homeWS, userID).Return(true, nil)
	f.workspaceRepo.On("IsMember", mock.Anything, otherWS, userID).Return(true, nil)

	account := &domain.SocialAccount{
		ID:          uuid.New(),
		WorkspaceID: homeWS,
		Platform:    domain.PlatformLinkedIn,
		Status:      domain.AccountStatusConnected,
	}
	f.accountRepo.On("GetByIDAndWorkspace", mock.Anything, account.ID, homeWS).Return(account, nil)
	f.accountRepo.On("GetByIDAndWorkspace", mock.Anything, account.ID, otherWS).Return(nil, nil)

	got, err := f.svc.Get(context.Background(), userID, homeWS, account.ID)
	require.NoError(t, err)
	require.Equal(t, account.ID, got.ID)

	_, err = f.svc.Get(context.Background(), userID, otherWS, account.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConversationInvisibleOutsideItsWorkspace(t *testing.T) {
	f := newIngestFixture(t)
	otherWS := uuid.New()
	userID := uuid.New()
	convID := uuid.New()

	f.workspaceRepo.On("IsMember", mock.Anything, otherWS, userID).Return(true, nil)
	f.convRepo.On("GetByIDAndWorkspace", mock.Anything, convID, otherWS).Return(nil, nil)

	err := f.svc.SetConversationState(context.Background(), userID, otherWS, convID, domain.ConversationResolved)

	require.ErrorIs(t, err, domain.ErrNotFound)
	f.convRepo.AssertNotCalled(t, "SetState", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
