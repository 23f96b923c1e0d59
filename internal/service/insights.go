package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crossply/crossply/internal/domain"
	"github.com/crossply/crossply/internal/platform"
)

// InsightsService reads engagement numbers for published targets
// straight from the platforms. Nothing is cached: the numbers are
// whatever the platform reports at call time.
type InsightsService struct {
	postRepo    domain.PostRepository
	targetRepo  domain.PostTargetRepository
	accountRepo domain.SocialAccountRepository
	accounts    *AccountService
	registry    *platform.Registry
	workspaces  *WorkspaceService
}

// NewInsightsService creates a new insights service
func NewInsightsService(
	postRepo domain.PostRepository,
	targetRepo domain.PostTargetRepository,
	accountRepo domain.SocialAccountRepository,
	accounts *AccountService,
	registry *platform.Registry,
	workspaces *WorkspaceService,
) *InsightsService {
	return &InsightsService{
		postRepo:    postRepo,
		targetRepo:  targetRepo,
		accountRepo: accountRepo,
		accounts:    accounts,
		registry:    registry,
		workspaces:  workspaces,
	}
}

// TargetEngagement fetches engagement metrics for one published target
func (s *InsightsService) TargetEngagement(ctx context.Context, userID, workspaceID, postID, targetID uuid.UUID, window time.Duration) (*platform.Metrics, error) {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return nil, err
	}

	post, err := s.postRepo.GetByIDAndWorkspace(ctx, postID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load post: %w", err)
	}
	if post == nil {
		return nil, domain.ErrNotFound
	}

	targets, err := s.targetRepo.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load targets: %w", err)
	}

	var target *domain.PostTarget
	for i := range targets {
		if targets[i].ID == targetID {
			target = &targets[i]
			break
		}
	}
	if target == nil {
		return nil, domain.ErrNotFound
	}
	if target.Status != domain.TargetStatusPublished || target.ExternalPostID == "" {
		return nil, fmt.Errorf("target not published: %w", domain.ErrInvalidTransition)
	}

	account, err := s.accountRepo.GetByIDAndWorkspace(ctx, target.SocialAccountID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}

	ref, err := s.accounts.Credentials(ctx, account)
	if err != nil {
		return nil, err
	}

	adapter, err := s.registry.Get(account.Platform)
	if err != nil {
		return nil, err
	}

	metrics, err := adapter.FetchEngagement(ctx, ref, target.ExternalPostID, window)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch engagement: %w", err)
	}

	return metrics, nil
}
