package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crossply/crossply/internal/domain"
	"github.com/crossply/crossply/internal/platform"
	"github.com/crossply/crossply/internal/security"
)

// AccountService handles social account connections and credential
// access. Plaintext tokens only exist in memory between Open and the
// outbound platform call.
type AccountService struct {
	accountRepo    domain.SocialAccountRepository
	workspaces     *WorkspaceService
	registry       *platform.Registry
	cipher         *security.TokenCipher
	refreshHorizon time.Duration
}

// NewAccountService creates a new account service
func NewAccountService(
	accountRepo domain.SocialAccountRepository,
	workspaces *WorkspaceService,
	registry *platform.Registry,
	cipher *security.TokenCipher,
	refreshHorizon time.Duration,
) *AccountService {
	return &AccountService{
		accountRepo:    accountRepo,
		workspaces:     workspaces,
		registry:       registry,
		cipher:         cipher,
		refreshHorizon: refreshHorizon,
	}
}

// Connect stores a newly authorized social account with its tokens
// sealed
func (s *AccountService) Connect(ctx context.Context, userID, workspaceID uuid.UUID, input domain.SocialAccountConnect) (*domain.SocialAccountInfo, error) {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return nil, err
	}

	if !input.Platform.Valid() {
		return nil, fmt.Errorf("unknown platform %q", input.Platform)
	}

	set, err := s.cipher.Seal(input.AccessToken, input.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to seal tokens: %w", err)
	}

	// Reconnecting an already-known identity replaces its tokens
	// instead of creating a second row.
	existing, err := s.accountRepo.GetByExternalID(ctx, workspaceID, input.Platform, input.ExternalAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if existing != nil {
		if err := s.accountRepo.UpdateTokens(ctx, existing.ID, set.Access, set.Refresh, input.TokenExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to update tokens: %w", err)
		}
		if err := s.accountRepo.UpdateStatus(ctx, existing.ID, domain.AccountStatusConnected); err != nil {
			return nil, fmt.Errorf("failed to update status: %w", err)
		}
		existing.Status = domain.AccountStatusConnected
		existing.TokenExpiresAt = input.TokenExpiresAt
		info := existing.ToInfo()
		return &info, nil
	}

	now := time.Now()
	account := &domain.SocialAccount{
		ID:                    uuid.New(),
		WorkspaceID:           workspaceID,
		Platform:              input.Platform,
		ExternalAccountID:     input.ExternalAccountID,
		DisplayName:           input.DisplayName,
		Username:              input.Username,
		AccessTokenEncrypted:  set.Access,
		RefreshTokenEncrypted: set.Refresh,
		TokenExpiresAt:        input.TokenExpiresAt,
		Status:                domain.AccountStatusConnected,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	info := account.ToInfo()
	return &info, nil
}

// List retrieves sanitized projections of all accounts in a workspace
func (s *AccountService) List(ctx context.Context, userID, workspaceID uuid.UUID) ([]domain.SocialAccountInfo, error) {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return nil, err
	}

	accounts, err := s.accountRepo.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	infos := make([]domain.SocialAccountInfo, len(accounts))
	for i := range accounts {
		infos[i] = accounts[i].ToInfo()
	}
	return infos, nil
}

// Get retrieves one account's sanitized projection
func (s *AccountService) Get(ctx context.Context, userID, workspaceID, accountID uuid.UUID) (*domain.SocialAccountInfo, error) {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetByIDAndWorkspace(ctx, accountID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}

	info := account.ToInfo()
	return &info, nil
}

// Disconnect marks an account disconnected. The row and its history
// stay; publishing to it stops.
func (s *AccountService) Disconnect(ctx context.Context, userID, workspaceID, accountID uuid.UUID) error {
	if err := s.workspaces.RequireMember(ctx, userID, workspaceID); err != nil {
		return err
	}

	account, err := s.accountRepo.GetByIDAndWorkspace(ctx, accountID, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return domain.ErrNotFound
	}

	if err := s.accountRepo.UpdateStatus(ctx, accountID, domain.AccountStatusDisconnected); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	return nil
}

// Credentials opens the account's tokens and returns a ready-to-use
// account reference, refreshing the access token first when it expires
// within the horizon. A refresh failure marks the account errored and
// surfaces domain.ErrTokenUnavailable.
func (s *AccountService) Credentials(ctx context.Context, account *domain.SocialAccount) (platform.AccountRef, error) {
	access, refresh, err := s.cipher.Open(security.TokenSet{
		Access:  account.AccessTokenEncrypted,
		Refresh: account.RefreshTokenEncrypted,
	})
	if err != nil {
		s.markErrored(ctx, account.ID)
		return platform.AccountRef{}, err
	}

	if account.TokenExpiringWithin(s.refreshHorizon, time.Now()) && refresh != "" {
		access, err = s.refreshTokens(ctx, account, refresh)
		if err != nil {
			s.markErrored(ctx, account.ID)
			return platform.AccountRef{}, fmt.Errorf("%w: %v", domain.ErrTokenUnavailable, err)
		}
	}

	return platform.AccountRef{
		ExternalAccountID: account.ExternalAccountID,
		AccessToken:       access,
	}, nil
}

func (s *AccountService) refreshTokens(ctx context.Context, account *domain.SocialAccount, refresh string) (string, error) {
	adapter, err := s.registry.Get(account.Platform)
	if err != nil {
		return "", err
	}

	grant, err := adapter.RefreshToken(ctx, refresh)
	if err != nil {
		return "", fmt.Errorf("refresh failed: %w", err)
	}

	// Platforms that rotate the refresh token return a new one; keep
	// the old one otherwise.
	newRefresh := grant.RefreshToken
	if newRefresh == "" {
		newRefresh = refresh
	}

	set, err := s.cipher.Seal(grant.AccessToken, newRefresh)
	if err != nil {
		return "", fmt.Errorf("failed to seal refreshed tokens: %w", err)
	}

	if err := s.accountRepo.UpdateTokens(ctx, account.ID, set.Access, set.Refresh, grant.ExpiresAt); err != nil {
		return "", fmt.Errorf("failed to store refreshed tokens: %w", err)
	}

	log.Info().
		Str("account_id", account.ID.String()).
		Str("platform", string(account.Platform)).
		Msg("access token refreshed")

	return grant.AccessToken, nil
}

func (s *AccountService) markErrored(ctx context.Context, accountID uuid.UUID) {
	if err := s.accountRepo.UpdateStatus(ctx, accountID, domain.AccountStatusError); err != nil {
		log.Error().Err(err).Str("account_id", accountID.String()).Msg("failed to mark account errored")
	}
}
