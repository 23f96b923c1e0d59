package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crossply/crossply/internal/domain"
)

// WorkspaceService handles workspace operations. Every read and write
// on workspace children goes through a membership check first.
type WorkspaceService struct {
	workspaceRepo domain.WorkspaceRepository
	userRepo      domain.UserRepository
}

// NewWorkspaceService creates a new workspace service
func NewWorkspaceService(workspaceRepo domain.WorkspaceRepository, userRepo domain.UserRepository) *WorkspaceService {
	return &WorkspaceService{
		workspaceRepo: workspaceRepo,
		userRepo:      userRepo,
	}
}

// Create creates a workspace in the user's tenant and makes the creator
// its owner
func (s *WorkspaceService) Create(ctx context.Context, userID, tenantID uuid.UUID, input domain.WorkspaceCreate) (*domain.Workspace, error) {
	now := time.Now()
	workspace := &domain.Workspace{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      input.Name,
		Slug:      input.Slug,
		Settings:  input.Settings,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.workspaceRepo.Create(ctx, workspace); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	member := &domain.WorkspaceMember{
		WorkspaceID: workspace.ID,
		UserID:      userID,
		Role:        domain.RoleOwner,
		CreatedAt:   now,
	}
	if err := s.workspaceRepo.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to add owner: %w", err)
	}

	return workspace, nil
}

// Get retrieves a workspace the user is a member of
func (s *WorkspaceService) Get(ctx context.Context, userID, workspaceID uuid.UUID) (*domain.Workspace, error) {
	if err := s.RequireMember(ctx, userID, workspaceID); err != nil {
		return nil, err
	}

	workspace, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	if workspace == nil {
		return nil, domain.ErrNotFound
	}

	return workspace, nil
}

// List retrieves all workspaces the user is a member of
func (s *WorkspaceService) List(ctx context.Context, userID uuid.UUID) ([]domain.Workspace, error) {
	return s.workspaceRepo.ListByUserID(ctx, userID)
}

// Update updates a workspace; admin or owner only
func (s *WorkspaceService) Update(ctx context.Context, userID, workspaceID uuid.UUID, input domain.WorkspaceUpdate) error {
	if err := s.requireRole(ctx, userID, workspaceID, domain.RoleOwner, domain.RoleAdmin); err != nil {
		return err
	}

	if err := s.workspaceRepo.Update(ctx, workspaceID, &input); err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}

	return nil
}

// Delete deletes a workspace; owner only
func (s *WorkspaceService) Delete(ctx context.Context, userID, workspaceID uuid.UUID) error {
	if err := s.requireRole(ctx, userID, workspaceID, domain.RoleOwner); err != nil {
		return err
	}

	if err := s.workspaceRepo.Delete(ctx, workspaceID); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}

	return nil
}

// AddMember adds a user to the workspace; admin or owner only. The new
// member must belong to the same tenant as the workspace.
func (s *WorkspaceService) AddMember(ctx context.Context, actorID, workspaceID, userID uuid.UUID, role string) error {
	if err := s.requireRole(ctx, actorID, workspaceID, domain.RoleOwner, domain.RoleAdmin); err != nil {
		return err
	}

	workspace, err := s.workspaceRepo.GetByID(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to get workspace: %w", err)
	}
	if workspace == nil {
		return domain.ErrNotFound
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.TenantID != workspace.TenantID {
		return domain.ErrAccessDenied
	}

	member := &domain.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
		CreatedAt:   time.Now(),
	}
	if err := s.workspaceRepo.AddMember(ctx, member); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}

	return nil
}

// RemoveMember removes a user from the workspace; admin or owner only
func (s *WorkspaceService) RemoveMember(ctx context.Context, actorID, workspaceID, userID uuid.UUID) error {
	if err := s.requireRole(ctx, actorID, workspaceID, domain.RoleOwner, domain.RoleAdmin); err != nil {
		return err
	}

	if err := s.workspaceRepo.RemoveMember(ctx, workspaceID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return nil
}

// RequireMember returns ErrAccessDenied unless the user belongs to the
// workspace
func (s *WorkspaceService) RequireMember(ctx context.Context, userID, workspaceID uuid.UUID) error {
	isMember, err := s.workspaceRepo.IsMember(ctx, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !isMember {
		return domain.ErrAccessDenied
	}
	return nil
}

func (s *WorkspaceService) requireRole(ctx context.Context, userID, workspaceID uuid.UUID, roles ...string) error {
	member, err := s.workspaceRepo.GetMember(ctx, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("failed to get member: %w", err)
	}
	if member == nil {
		return domain.ErrAccessDenied
	}

	for _, role := range roles {
		if member.Role == role {
			return nil
		}
	}
	return domain.ErrAccessDenied
}
