package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Platform identifies a supported external platform
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformYouTube   Platform = "youtube"
	PlatformTwitter   Platform = "twitter"
	PlatformWhatsApp  Platform = "whatsapp"
)

// Platforms lists every supported platform.
func Platforms() []Platform {
	return []Platform{
		PlatformFacebook,
		PlatformInstagram,
		PlatformLinkedIn,
		PlatformYouTube,
		PlatformTwitter,
		PlatformWhatsApp,
	}
}

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformFacebook, PlatformInstagram, PlatformLinkedIn,
		PlatformYouTube, PlatformTwitter, PlatformWhatsApp:
		return true
	}
	return false
}

// AccountStatus is the connection state of a social account
type AccountStatus string

const (
	AccountStatusConnected    AccountStatus = "connected"
	AccountStatusDisconnected AccountStatus = "disconnected"
	AccountStatusError        AccountStatus = "error"
)

// SocialAccount is a connected external platform identity. Token
// columns hold AES-GCM ciphertext only and are excluded from
// serialization.
type SocialAccount struct {
	ID                    uuid.UUID     `json:"id"`
	WorkspaceID           uuid.UUID     `json:"workspace_id"`
	Platform              Platform      `json:"platform"`
	ExternalAccountID     string        `json:"external_account_id"`
	DisplayName           string        `json:"display_name"`
	Username              string        `json:"username"`
	AccessTokenEncrypted  []byte        `json:"-"`
	RefreshTokenEncrypted []byte        `json:"-"`
	TokenExpiresAt        *time.Time    `json:"token_expires_at,omitempty"`
	Status                AccountStatus `json:"status"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// TokenExpiringWithin reports whether the access token expires inside
// the given horizon. Accounts without an expiry never report true.
func (a *SocialAccount) TokenExpiringWithin(horizon time.Duration, now time.Time) bool {
	if a.TokenExpiresAt == nil {
		return false
	}
	return a.TokenExpiresAt.Before(now.Add(horizon))
}

// SocialAccountConnect represents OAuth callback data for connecting an
// account. Tokens arrive in plaintext here and are sealed before the
// row is written.
type SocialAccountConnect struct {
	Platform          Platform   `json:"platform" validate:"required"`
	ExternalAccountID string     `json:"external_account_id" validate:"required,max=255"`
	DisplayName       string     `json:"display_name" validate:"max=255"`
	Username          string     `json:"username" validate:"max=255"`
	AccessToken       string     `json:"access_token" validate:"required"`
	RefreshToken      string     `json:"refresh_token,omitempty"`
	TokenExpiresAt    *time.Time `json:"token_expires_at,omitempty"`
}

// SocialAccountInfo is the external-facing projection of a social
// account. It never carries token material.
type SocialAccountInfo struct {
	ID                uuid.UUID     `json:"id"`
	WorkspaceID       uuid.UUID     `json:"workspace_id"`
	Platform          Platform      `json:"platform"`
	ExternalAccountID string        `json:"external_account_id"`
	DisplayName       string        `json:"display_name"`
	Username          string        `json:"username"`
	TokenExpiresAt    *time.Time    `json:"token_expires_at,omitempty"`
	Status            AccountStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
}

// ToInfo converts a SocialAccount to its sanitized projection.
func (a *SocialAccount) ToInfo() SocialAccountInfo {
	return SocialAccountInfo{
		ID:                a.ID,
		WorkspaceID:       a.WorkspaceID,
		Platform:          a.Platform,
		ExternalAccountID: a.ExternalAccountID,
		DisplayName:       a.DisplayName,
		Username:          a.Username,
		TokenExpiresAt:    a.TokenExpiresAt,
		Status:            a.Status,
		CreatedAt:         a.CreatedAt,
	}
}

// SocialAccountRepository defines the interface for social account
// storage. All reads are workspace-scoped.
type SocialAccountRepository interface {
	Create(ctx context.Context, account *SocialAccount) error
	GetByIDAndWorkspace(ctx context.Context, id, workspaceID uuid.UUID) (*SocialAccount, error)
	GetByExternalID(ctx context.Context, workspaceID uuid.UUID, platform Platform, externalID string) (*SocialAccount, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]SocialAccount, error)
	// UpdateTokens replaces both encrypted token columns and the expiry
	// in a single statement so a partial update can never leave one
	// token stale.
	UpdateTokens(ctx context.Context, id uuid.UUID, access, refresh []byte, expiresAt *time.Time) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status AccountStatus) error
}
