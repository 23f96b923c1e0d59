package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crossply/crossply/internal/domain"
)

type postFixture struct {
	postRepo      *MockPostRepo
	targetRepo    *MockPostTargetRepo
	accountRepo   *MockSocialAccountRepo
	workspaceRepo *MockWorkspaceRepo
	svc           *PostService
}

func newPostFixture() *postFixture {
	f := &postFixture{
		postRepo:      new(MockPostRepo),
		targetRepo:    new(MockPostTargetRepo),
		accountRepo:   new(MockSocialAccountRepo),
		workspaceRepo: new(MockWorkspaceRepo),
	}
	workspaces := NewWorkspaceService(f.workspaceRepo, new(MockUserRepo))
	f.svc = NewPostService(f.postRepo, f.targetRepo, f.accountRepo, workspaces)
	return f
}

func (f *postFixture) member(workspaceID, userID uuid.UUID) {
	f.workspaceRepo.On("IsMember", mock.Anything, workspaceID, userID).Return(true, nil)
}

func TestCreatePostWithTargets(t *testing.T) {
	f := newPostFixture()
	workspaceID := uuid.New()
	userID := uuid.New()
	f.member(workspaceID, userID)

	fb := &domain.SocialAccount{ID: uuid.New(), WorkspaceID: workspaceID, Platform: domain.PlatformFacebook, Status: domain.AccountStatusConnected}
	li := &domain.SocialAccount{ID: uuid.New(), WorkspaceID: workspaceID, Platform: domain.PlatformLinkedIn, Status: domain.AccountStatusConnected}

	f.accountRepo.On("GetByIDAndWorkspace", mock.Anything, fb.ID, workspaceID).Return(fb, nil)
	f.accountRepo.On("GetByIDAndWorkspace", mock.Anything, li.ID, workspaceID).Return(li, nil)
	f.postRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Post) bool {
		return p.Status == domain.PostStatusDraft && p.MediaType == domain.MediaTypeText
	})).Return(nil)
	f.targetRepo.On("Create", mock.Anything, mock.MatchedBy(func(tg *domain.PostTarget) bool {
		return tg.Status == domain.TargetStatusPending && tg.Platform == domain.PlatformFacebook
	})).Return(nil).Once()
	f.targetRepo.On("Create", mock.Anything, mock.MatchedBy(func(tg *domain.PostTarget) bool {
		return tg.Status == domain.TargetStatusPending && tg.Platform == domain.PlatformLinkedIn
	})).Return(nil).Once()

	post, err := f.svc.Create(context.Background(), userID, workspaceID, domain.PostCreate{
		Body:             "hello world",
		TargetAccountIDs: []uuid.UUID{fb.ID, li.ID},
	})

	require.NoError(t, err)
	require.Equal(t, domain.PostStatusDraft, post.Status)
	f.targetRepo.AssertNumberOfCalls(t, "Create", 2)
}

func TestCreatePostRejectsDisconnectedAccount(t *testing.T) {
	f := newPostFixture()
	workspaceID := uuid.New()
	userID := uuid.New()
	f.member(workspaceID, userID)

	account := &domain.SocialAccount{ID: uuid.New(), WorkspaceID: workspaceID, Platform: domain.PlatformFacebook, Status: domain.AccountStatusDisconnected}
	f.accountRepo.On("GetByIDAndWorkspace", mock.Anything, account.ID, workspaceID).Return(account, nil)

	_, err := f.svc.Create(context.Background(), userID, workspaceID, domain.PostCreate{
		Body:             "hello",
		TargetAccountIDs: []uuid.UUID{account.ID},
	})

	require.Error(t, err)
	f.postRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreatePostRejectsForeignAccount(t *testing.T) {
	f := newPostFixture()
	workspaceID := uuid.New()
	userID := uuid.New()
	f.member(workspaceID, userID)

	accountID := uuid.New()
	f.accountRepo.On("GetByIDAndWorkspace", mock.Anything, accountID, workspaceID).Return(nil, nil)

	_, err := f.svc.Create(context.Background(), userID, workspaceID, domain.PostCreate{
		Body:             "hello",
		TargetAccountIDs: []uuid.UUID{accountID},
	})

	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSubmitApproveFlow(t *testing.T) {
	f := newPostFixture()
	workspaceID := uuid.New()
	userID := uuid.New()
	postID := uuid.New()
	f.member(workspaceID, userID)

	draft := &domain.Post{ID: postID, WorkspaceID: workspaceID, Status: domain.PostStatusDraft}
	f.postRepo.On("GetByIDAndWorkspace", mock.Anything, postID, workspaceID).Return(draft, nil).Once()
	f.postRepo.On("UpdateStatus", mock.Anything, postID, domain.PostStatusDraft, domain.PostStatusSubmitted).Return(true, nil)

	require.NoError(t, f.svc.Submit(context.Background(), userID, workspaceID, postID))

	submitted := &domain.Post{ID: postID, WorkspaceID: workspaceID, Status: domain.PostStatusSubmitted}
	f.postRepo.On("GetByIDAndWorkspace", mock.Anything, postID, workspaceID).Return(submitted, nil).Once()
	f.postRepo.On("UpdateStatus", mock.Anything, postID, domain.PostStatusSubmitted, domain.PostStatusApproved).Return(true, nil)

	require.NoError(t, f.svc.Approve(context.Background(), userID, workspaceID, postID))
}

func TestSubmitRejectsWrongState(t *testing.T) {
	f := newPostFixture()
	workspaceID := uuid.New()
	userID := uuid.New()
	postID := uuid.New()
	f.member(workspaceID, userID)

	published := &domain.Post{ID: postID, WorkspaceID: workspaceID, Status: domain.PostStatusPublished}
	f.postRepo.On("GetByIDAndWorkspace", mock.Anything, postID, workspaceID).Return(published, nil)

	err := f.svc.Submit(context.Background(), userID, workspaceID, postID)

	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	f.postRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransitionLostRace(t *testing.T) {
	f := newPostFixture()
	workspaceID := uuid.New()
	userID := uuid.New()
	postID := uuid.New()
	f.member(workspaceID, userID)

	draft := &domain.Post{ID: postID, WorkspaceID: workspaceID, Status: domain.PostStatusDraft}
	f.postRepo.On("GetByIDAndWorkspace", mock.Anything, postID, workspaceID).Return(draft, nil)
	// Someone else moved the post between the read and the update.
	f.postRepo.On("UpdateStatus", mock.Anything, postID, domain.PostStatusDraft, domain.PostStatusSubmitted).Return(false, nil)

	err := f.svc.Submit(context.Background(), userID, workspaceID, postID)

	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestScheduleRequiresFutureTime(t *testing.T) {
	f := newPostFixture()
	workspaceID := uuid.New()
	userID := uuid.New()
	f.member(workspaceID, userID)

	err := f.svc.Schedule(context.Background(), userID, workspaceID, uuid.New(), time.Now().Add(-time.Minute))

	require.Error(t, err)
	f.postRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestScheduleApprovedPost(t *testing.T) {
	f := newPostFixture()
	workspaceID := uuid.New()
	userID := uuid.New()
	postID := uuid.New()
	f.member(workspaceID, userID)

	approved := &domain.Post{ID: postID, WorkspaceID: workspaceID, Status: domain.PostStatusApproved}
	at := time.Now().Add(time.Hour)

	f.postRepo.On("GetByIDAndWorkspace", mock.Anything, postID, workspaceID).Return(approved, nil)
	f.postRepo.On("Update", mock.Anything, mock.MatchedBy(func(p *domain.Post) bool {
		return p.ScheduledAt != nil && p.ScheduledAt.Equal(at)
	})).Return(nil)
	f.postRepo.On("UpdateStatus", mock.Anything, postID, domain.PostStatusApproved, domain.PostStatusScheduled).Return(true, nil)

	require.NoError(t, f.svc.Schedule(context.Background(), userID, workspaceID, postID, at))
	f.postRepo.AssertExpectations(t)
}

// A post that failed after being swept carries a queued_at stamp; the
// reschedule must go through UpdateStatus, which clears it, or the next
// sweep would skip the post forever.
func TestScheduleFailedPostAgain(t *testing.T) {
	f := newPostFixture()
	workspaceID := uuid.New()
	userID := uuid.New()
	postID := uuid.New()
	f.member(workspaceID, userID)

	claimedAt := time.Now().Add(-time.Hour)
	failed := &domain.Post{
		ID:          postID,
		WorkspaceID: workspaceID,
		Status:      domain.PostStatusFailed,
		QueuedAt:    &claimedAt,
	}
	at := time.Now().Add(time.Hour)

	f.postRepo.On("GetByIDAndWorkspace", mock.Anything, postID, workspaceID).Return(failed, nil)
	f.postRepo.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.postRepo.On("UpdateStatus", mock.Anything, postID, domain.PostStatusFailed, domain.PostStatusScheduled).Return(true, nil)

	require.NoError(t, f.svc.Schedule(context.Background(), userID, workspaceID, postID, at))
	f.postRepo.AssertExpectations(t)
}

func TestUpdateOnlyDrafts(t *testing.T) {
	f := newPostFixture()
	workspaceID := uuid.New()
	userID := uuid.New()
	postID := uuid.New()
	f.member(workspaceID, userID)

	scheduled := &domain.Post{ID: postID, WorkspaceID: workspaceID, Status: domain.PostStatusScheduled}
	f.postRepo.On("GetByIDAndWorkspace", mock.Anything, postID, workspaceID).Return(scheduled, nil)

	title := "new title"
	_, err := f.svc.Update(context.Background(), userID, workspaceID, postID, domain.PostUpdate{Title: &title})

	require.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestDeletePublishedPostRejected(t *testing.T) {
	f := newPostFixture()
	workspaceID := uuid.New()
	userID := uuid.New()
	postID := uuid.New()
	f.member(workspaceID, userID)

	published := &domain.Post{ID: postID, WorkspaceID: workspaceID, Status: domain.PostStatusPublished}
	f.postRepo.On("GetByIDAndWorkspace", mock.Anything, postID, workspaceID).Return(published, nil)

	err := f.svc.Delete(context.Background(), userID, workspaceID, postID)

	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	f.postRepo.AssertNotCalled(t, "SoftDeleteDraftsBulk", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteDraftRemovesPendingTargets(t *testing.T) {
	f := newPostFixture()
	workspaceID := uuid.New()
	userID := uuid.New()
	postID := uuid.New()
	f.member(workspaceID, userID)

	draft := &domain.Post{ID: postID, WorkspaceID: workspaceID, Status: domain.PostStatusDraft}
	f.postRepo.On("GetByIDAndWorkspace", mock.Anything, postID, workspaceID).Return(draft, nil)
	f.postRepo.On("SoftDeleteDraftsBulk", mock.Anything, workspaceID, []uuid.UUID{postID}).Return(int64(1), nil)
	f.targetRepo.On("DeleteByPost", mock.Anything, postID).Return(nil)

	require.NoError(t, f.svc.Delete(context.Background(), userID, workspaceID, postID))
	f.targetRepo.AssertExpectations(t)
}

func TestBulkDeleteReturnsExactCount(t *testing.T) {
	f := newPostFixture()
	workspaceID := uuid.New()
	userID := uuid.New()
	f.member(workspaceID, userID)

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	// One of the three is in a protected state and gets skipped.
	f.postRepo.On("SoftDeleteDraftsBulk", mock.Anything, workspaceID, ids).Return(int64(2), nil)

	n, err := f.svc.BulkDelete(context.Background(), userID, workspaceID, ids)

	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestBulkDeleteEmptyListIsNoop(t *testing.T) {
	f := newPostFixture()
	workspaceID := uuid.New()
	userID := uuid.New()
	f.member(workspaceID, userID)

	f.postRepo.On("SoftDeleteDraftsBulk", mock.Anything, workspaceID, []uuid.UUID{}).Return(int64(0), nil)

	n, err := f.svc.BulkDelete(context.Background(), userID, workspaceID, []uuid.UUID{})

	require.NoError(t, err)
	require.Equal(t, int64(0), n)
}

func TestBulkSubmitReturnsExactCount(t *testing.T) {
	f := newPostFixture()
	workspaceID := uuid.New()
	userID := uuid.New()
	f.member(workspaceID, userID)

	ids := []uuid.UUID{uuid.New()}
	f.postRepo.On("SubmitBulk", mock.Anything, workspaceID, ids).Return(int64(1), nil)

	n, err := f.svc.BulkSubmit(context.Background(), userID, workspaceID, ids)

	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestPostAccessRequiresMembership(t *testing.T) {
	f := newPostFixture()
	workspaceID := uuid.New()
	userID := uuid.New()

	f.workspaceRepo.On("IsMember", mock.Anything, workspaceID, userID).Return(false, nil)

	_, err := f.svc.Get(context.Background(), userID, workspaceID, uuid.New())

	require.ErrorIs(t, err, domain.ErrAccessDenied)
}
