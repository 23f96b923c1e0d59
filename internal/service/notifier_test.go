package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/crossply/crossply/internal/domain"
)

func TestNotifyUsersPersistsThenBroadcasts(t *testing.T) {
	notifRepo := new(MockNotificationRepo)
	workspaceRepo := new(MockWorkspaceRepo)
	broadcaster := new(MockBroadcaster)
	n := NewNotifier(notifRepo, workspaceRepo, broadcaster)

	workspaceID := uuid.New()
	recipientID := uuid.New()

	notifRepo.On("Create", mock.Anything, mock.MatchedBy(func(row *domain.Notification) bool {
		return row.RecipientID == recipientID && row.Kind == domain.NotificationPublishDone
	})).Return(nil)
	broadcaster.On("Publish", mock.Anything, mock.MatchedBy(func(e domain.BroadcastEvent) bool {
		return e.RecipientUserID == recipientID
	})).Return(nil)
	notifRepo.On("MarkSent", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	err := n.NotifyUsers(context.Background(), workspaceID, []uuid.UUID{recipientID}, domain.NotificationPublishDone, map[string]any{"post_id": "x"})

	require.NoError(t, err)
	notifRepo.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
}

func TestNotifyBroadcastFailureKeepsRow(t *testing.T) {
	notifRepo := new(MockNotificationRepo)
	workspaceRepo := new(MockWorkspaceRepo)
	broadcaster := new(MockBroadcaster)
	n := NewNotifier(notifRepo, workspaceRepo, broadcaster)

	workspaceID := uuid.New()
	recipientID := uuid.New()

	notifRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	broadcaster.On("Publish", mock.Anything, mock.Anything).Return(errors.New("redis down"))
	notifRepo.On("MarkFailed", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	// The broadcast is best effort; the persisted row survives it.
	err := n.NotifyUsers(context.Background(), workspaceID, []uuid.UUID{recipientID}, domain.NotificationPublishError, nil)

	require.NoError(t, err)
	notifRepo.AssertCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
	notifRepo.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotifyPersistFailureAborts(t *testing.T) {
	notifRepo := new(MockNotificationRepo)
	workspaceRepo := new(MockWorkspaceRepo)
	broadcaster := new(MockBroadcaster)
	n := NewNotifier(notifRepo, workspaceRepo, broadcaster)

	notifRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	err := n.NotifyUsers(context.Background(), uuid.New(), []uuid.UUID{uuid.New()}, domain.NotificationPublishDone, nil)

	require.Error(t, err)
	broadcaster.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestNotifyWorkspaceFansOutToMembers(t *testing.T) {
	notifRepo := new(MockNotificationRepo)
	workspaceRepo := new(MockWorkspaceRepo)
	broadcaster := new(MockBroadcaster)
	n := NewNotifier(notifRepo, workspaceRepo, broadcaster)

	workspaceID := uuid.New()
	members := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	workspaceRepo.On("ListMemberIDs", mock.Anything, workspaceID).Return(members, nil)
	notifRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	broadcaster.On("Publish", mock.Anything, mock.Anything).Return(nil)
	notifRepo.On("MarkSent", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	err := n.NotifyWorkspace(context.Background(), workspaceID, domain.NotificationPublishDone, nil)

	require.NoError(t, err)
	notifRepo.AssertNumberOfCalls(t, "Create", len(members))
	broadcaster.AssertNumberOfCalls(t, "Publish", len(members))
}
