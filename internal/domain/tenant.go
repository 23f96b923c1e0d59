package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tenant is the top-level customer organization. PlanID is nullable
// while the tenant is on trial.
type Tenant struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	PlanID    *uuid.UUID `json:"plan_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the tenant has been soft-deleted.
func (t *Tenant) IsDeleted() bool {
	return t.DeletedAt != nil
}

// TenantCreate represents tenant creation data
type TenantCreate struct {
	Name string `json:"name" validate:"required,max=255"`
}

// TenantRepository defines the interface for tenant storage. Reads
// exclude soft-deleted rows.
type TenantRepository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	SetPlan(ctx context.Context, id uuid.UUID, planID *uuid.UUID) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}
