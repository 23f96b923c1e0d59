package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Workspace is the isolation boundary for content and social accounts
// within a tenant. Slug is unique per tenant; every child entity
// carries the workspace ID and is only reachable through it.
type Workspace struct {
	ID        uuid.UUID      `json:"id"`
	TenantID  uuid.UUID      `json:"tenant_id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	Settings  map[string]any `json:"settings,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// WorkspaceCreate represents workspace creation data
type WorkspaceCreate struct {
	Name     string         `json:"name" validate:"required,max=255"`
	Slug     string         `json:"slug" validate:"required,max=64,lowercase"`
	Settings map[string]any `json:"settings,omitempty"`
}

// WorkspaceUpdate represents workspace update data
type WorkspaceUpdate struct {
	Name     *string        `json:"name,omitempty" validate:"omitempty,max=255"`
	Settings map[string]any `json:"settings,omitempty"`
}

// WorkspaceMember represents workspace membership
type WorkspaceMember struct {
	WorkspaceID uuid.UUID `json:"workspace_id"`
	UserID      uuid.UUID `json:"user_id"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// Role constants
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// WorkspaceRepository defines the interface for workspace storage
type WorkspaceRepository interface {
	Create(ctx context.Context, workspace *Workspace) error
	GetByID(ctx context.Context, id uuid.UUID) (*Workspace, error)
	Update(ctx context.Context, id uuid.UUID, update *WorkspaceUpdate) error
	Delete(ctx context.Context, id uuid.UUID) error
	AddMember(ctx context.Context, member *WorkspaceMember) error
	RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error
	GetMember(ctx context.Context, workspaceID, userID uuid.UUID) (*WorkspaceMember, error)
	IsMember(ctx context.Context, workspaceID, userID uuid.UUID) (bool, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]Workspace, error)
	ListMemberIDs(ctx context.Context, workspaceID uuid.UUID) ([]uuid.UUID, error)
}
