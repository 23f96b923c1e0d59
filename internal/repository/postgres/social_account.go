package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crossply/crossply/internal/domain"
)

// SocialAccountRepository handles social account data access. Token
// columns store AES-GCM ciphertext only.
type SocialAccountRepository struct {
	db *DB
}

// NewSocialAccountRepository creates a new social account repository
func NewSocialAccountRepository(db *DB) *SocialAccountRepository {
	return &SocialAccountRepository{db: db}
}

const socialAccountColumns = `
	id, workspace_id, platform, external_account_id, display_name, username,
	access_token_encrypted, refresh_token_encrypted, token_expires_at,
	status, created_at, updated_at
`

// Create creates a new social account connection
func (r *SocialAccountRepository) Create(ctx context.Context, account *domain.SocialAccount) error {
	query := `
		INSERT INTO social_accounts (` + socialAccountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		account.ID,
		account.WorkspaceID,
		account.Platform,
		account.ExternalAccountID,
		account.DisplayName,
		account.Username,
		account.AccessTokenEncrypted,
		account.RefreshTokenEncrypted,
		account.TokenExpiresAt,
		account.Status,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create social account: %w", err)
	}

	return nil
}

// GetByIDAndWorkspace retrieves a social account scoped to a workspace
func (r *SocialAccountRepository) GetByIDAndWorkspace(ctx context.Context, id, workspaceID uuid.UUID) (*domain.SocialAccount, error) {
	query := `
		SELECT ` + socialAccountColumns + `
		FROM social_accounts
		WHERE id = $1 AND workspace_id = $2
	`

	return r.scanOne(ctx, query, id, workspaceID)
}

// GetByExternalID retrieves a social account by platform identity
func (r *SocialAccountRepository) GetByExternalID(ctx context.Context, workspaceID uuid.UUID, platform domain.Platform, externalID string) (*domain.SocialAccount, error) {
	query := `
		SELECT ` + socialAccountColumns + `
		FROM social_accounts
		WHERE workspace_id = $1 AND platform = $2 AND external_account_id = $3
	`

	return r.scanOne(ctx, query, workspaceID, platform, externalID)
}

// ListByWorkspace retrieves all social accounts in a workspace
func (r *SocialAccountRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]domain.SocialAccount, error) {
	query := `
		SELECT ` + socialAccountColumns + `
		FROM social_accounts
		WHERE workspace_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list social accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.SocialAccount
	for rows.Next() {
		account, err := scanSocialAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}

	return accounts, nil
}

// UpdateTokens replaces both token columns and the expiry in one
// statement
func (r *SocialAccountRepository) UpdateTokens(ctx context.Context, id uuid.UUID, access, refresh []byte, expiresAt *time.Time) error {
	query := `
		UPDATE social_accounts
		SET access_token_encrypted = $2,
		    refresh_token_encrypted = $3,
		    token_expires_at = $4,
		    updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, id, access, refresh, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}

	return nil
}

// UpdateStatus updates the connection status
func (r *SocialAccountRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus) error {
	query := `
		UPDATE social_accounts
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	return nil
}

func (r *SocialAccountRepository) scanOne(ctx context.Context, query string, args ...any) (*domain.SocialAccount, error) {
	account, err := scanSocialAccount(r.db.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get social account: %w", err)
	}
	return account, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSocialAccount(row rowScanner) (*domain.SocialAccount, error) {
	var account domain.SocialAccount
	err := row.Scan(
		&account.ID,
		&account.WorkspaceID,
		&account.Platform,
		&account.ExternalAccountID,
		&account.DisplayName,
		&account.Username,
		&account.AccessTokenEncrypted,
		&account.RefreshTokenEncrypted,
		&account.TokenExpiresAt,
		&account.Status,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}
