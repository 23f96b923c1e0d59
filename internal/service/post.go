package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crossply/crossply/internal/domain"
)

// PostService handles the post lifecycle up to the point a scheduled
// post is handed to the dispatch pipeline.
type PostService struct {
	postRepo    domain.PostRepository
	targetRepo  domain.PostTargetRepository
	accountRepo domain.SocialAccountRepository
	workspaces  *WorkspaceService
}

// NewPostService creates a new post service
func NewPostService(
	postRepo domain.PostRepository,
	targetRepo domain.PostTargetRepository,
	accountRepo domain.SocialAccountRepository,
	workspaces *WorkspaceService,
) *PostService {
	return &PostService{
		postRepo:    postRepo,
		targetRepo:  targetRepo,
		accountRepo: accountRepo,
		workspaces:  workspaces,
	}
}

// Create creates a draft post with one target per named account. Every
// target account must be a connected account of the same workspace.
func (s *PostService) Create(ctx context.Context, userID, workspaceID uuid.UUID, input domain.PostCreate) (*domain.Post, error) {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return nil, err
	}

	accounts := make([]*domain.SocialAccount, 0, len(input.TargetAccountIDs))
	for _, accountID := range input.TargetAccountIDs {
		account, err := s.accountRepo.GetByIDAndWorkspace(ctx, accountID, workspaceID)
		if err != nil {
			return nil, fmt.Errorf("failed to get account: %w", err)
		}
		if account == nil {
			return nil, fmt.Errorf("%w: account %s", domain.ErrNotFound, accountID)
		}
		if account.Status != domain.AccountStatusConnected {
			return nil, fmt.Errorf("account %s is not connected", accountID)
		}
		accounts = append(accounts, account)
	}

	mediaType := input.MediaType
	if mediaType == "" {
		mediaType = domain.MediaTypeText
	}

	now := time.Now()
	post := &domain.Post{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		AuthorID:    userID,
		Title:       input.Title,
		Body:        input.Body,
		MediaType:   mediaType,
		MediaURLs:   input.MediaURLs,
		Status:      domain.PostStatusDraft,
		ScheduledAt: input.ScheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	for _, account := range accounts {
		target := &domain.PostTarget{
			ID:              uuid.New(),
			PostID:          post.ID,
			SocialAccountID: account.ID,
			Platform:        account.Platform,
			Status:          domain.TargetStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.targetRepo.Create(ctx, target); err != nil {
			return nil, fmt.Errorf("failed to create target: %w", err)
		}
	}

	return post, nil
}

// Get retrieves a post within a workspace
func (s *PostService) Get(ctx context.Context, userID, workspaceID, postID uuid.UUID) (*domain.Post, error) {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return nil, err
	}
	return s.get(ctx, workspaceID, postID)
}

// List retrieves posts in a workspace, optionally filtered by status
func (s *PostService) List(ctx context.Context, userID, workspaceID uuid.UUID, status *domain.PostStatus, limit, offset int) ([]domain.Post, error) {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return nil, err
	}
	return s.postRepo.ListByWorkspace(ctx, workspaceID, status, limit, offset)
}

// Targets retrieves the per-platform targets of a post
func (s *PostService) Targets(ctx context.Context, userID, workspaceID, postID uuid.UUID) ([]domain.PostTarget, error) {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return nil, err
	}
	if _, err := s.get(ctx, workspaceID, postID); err != nil {
		return nil, err
	}
	return s.targetRepo.ListByPost(ctx, postID)
}

// Update edits a post; only drafts are editable
func (s *PostService) Update(ctx context.Context, userID, workspaceID, postID uuid.UUID, input domain.PostUpdate) (*domain.Post, error) {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return nil, err
	}

	post, err := s.get(ctx, workspaceID, postID)
	if err != nil {
		return nil, err
	}
	if post.Status != domain.PostStatusDraft {
		return nil, fmt.Errorf("%w: only drafts are editable", domain.ErrInvalidTransition)
	}

	if input.Title != nil {
		post.Title = *input.Title
	}
	if input.Body != nil {
		post.Body = *input.Body
	}
	if input.MediaType != nil {
		post.MediaType = *input.MediaType
	}
	if input.MediaURLs != nil {
		post.MediaURLs = input.MediaURLs
	}
	if input.ScheduledAt != nil {
		post.ScheduledAt = input.ScheduledAt
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	return post, nil
}

// Submit moves a draft into review
func (s *PostService) Submit(ctx context.Context, userID, workspaceID, postID uuid.UUID) error {
	return s.transition(ctx, userID, workspaceID, postID, domain.PostStatusDraft, domain.PostStatusSubmitted)
}

// Approve accepts a submitted post
func (s *PostService) Approve(ctx context.Context, userID, workspaceID, postID uuid.UUID) error {
	return s.transition(ctx, userID, workspaceID, postID, domain.PostStatusSubmitted, domain.PostStatusApproved)
}

// Reject sends a submitted post back to its author
func (s *PostService) Reject(ctx context.Context, userID, workspaceID, postID uuid.UUID) error {
	return s.transition(ctx, userID, workspaceID, postID, domain.PostStatusSubmitted, domain.PostStatusRejected)
}

// Schedule moves an approved post onto the calendar. The scheduled time
// must be in the future.
func (s *PostService) Schedule(ctx context.Context, userID, workspaceID, postID uuid.UUID, at time.Time) error {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return err
	}

	if !at.After(time.Now()) {
		return fmt.Errorf("scheduled time must be in the future")
	}

	post, err := s.get(ctx, workspaceID, postID)
	if err != nil {
		return err
	}
	if !domain.CanTransition(post.Status, domain.PostStatusScheduled) {
		return fmt.Errorf("%w: %s -> scheduled", domain.ErrInvalidTransition, post.Status)
	}

	post.ScheduledAt = &at
	if err := s.postRepo.Update(ctx, post); err != nil {
		return fmt.Errorf("failed to set schedule: %w", err)
	}

	moved, err := s.postRepo.UpdateStatus(ctx, postID, post.Status, domain.PostStatusScheduled)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if !moved {
		return fmt.Errorf("%w: post changed concurrently", domain.ErrInvalidTransition)
	}

	return nil
}

// Cancel withdraws a post from the pipeline
func (s *PostService) Cancel(ctx context.Context, userID, workspaceID, postID uuid.UUID) error {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return err
	}

	post, err := s.get(ctx, workspaceID, postID)
	if err != nil {
		return err
	}
	if !domain.CanTransition(post.Status, domain.PostStatusCancelled) {
		return fmt.Errorf("%w: %s -> cancelled", domain.ErrInvalidTransition, post.Status)
	}

	moved, err := s.postRepo.UpdateStatus(ctx, postID, post.Status, domain.PostStatusCancelled)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if !moved {
		return fmt.Errorf("%w: post changed concurrently", domain.ErrInvalidTransition)
	}

	return nil
}

// Delete soft-deletes a post; only drafts and cancelled posts qualify
func (s *PostService) Delete(ctx context.Context, userID, workspaceID, postID uuid.UUID) error {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return err
	}

	post, err := s.get(ctx, workspaceID, postID)
	if err != nil {
		return err
	}
	if !post.Deletable() {
		return fmt.Errorf("%w: %s posts cannot be deleted", domain.ErrInvalidTransition, post.Status)
	}

	n, err := s.postRepo.SoftDeleteDraftsBulk(ctx, workspaceID, []uuid.UUID{postID})
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: post changed concurrently", domain.ErrInvalidTransition)
	}

	// A deletable post was never dispatched, so its targets are all
	// pending rows with no publish history worth keeping.
	if err := s.targetRepo.DeleteByPost(ctx, postID); err != nil {
		return fmt.Errorf("failed to delete post targets: %w", err)
	}

	return nil
}

// BulkDelete soft-deletes the given posts where status permits and
// returns the exact count of posts actually deleted. IDs that are
// missing, foreign or in a protected state are skipped, not errors.
func (s *PostService) BulkDelete(ctx context.Context, userID, workspaceID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return 0, err
	}
	return s.postRepo.SoftDeleteDraftsBulk(ctx, workspaceID, ids)
}

// BulkSubmit moves the given drafts into review and returns the exact
// count of posts actually submitted.
func (s *PostService) BulkSubmit(ctx context.Context, userID, workspaceID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return 0, err
	}
	return s.postRepo.SubmitBulk(ctx, workspaceID, ids)
}

func (s *PostService) transition(ctx context.Context, userID, workspaceID, postID uuid.UUID, from, to domain.PostStatus) error {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return err
	}

	post, err := s.get(ctx, workspaceID, postID)
	if err != nil {
		return err
	}
	if post.Status != from || !domain.CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, post.Status, to)
	}

	moved, err := s.postRepo.UpdateStatus(ctx, postID, from, to)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if !moved {
		return fmt.Errorf("%w: post changed concurrently", domain.ErrInvalidTransition)
	}

	return nil
}

func (s *PostService) get(ctx context.Context, workspaceID, postID uuid.UUID) (*domain.Post, error) {
	post, err := s.postRepo.GetByIDAndWorkspace(ctx, postID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if post == nil {
		return nil, domain.ErrNotFound
	}
	return post, nil
}
