package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crossply/crossply/internal/config"
	"github.com/crossply/crossply/internal/domain"
	"github.com/crossply/crossply/internal/observability/metrics"
	"github.com/crossply/crossply/internal/platform"
)

// Queue is the publish job queue as the services see it
type Queue interface {
	Enqueue(ctx context.Context, job domain.PublishJob) error
	Dequeue(ctx context.Context, timeout time.Duration) (*domain.PublishJob, error)
}

// DispatchService publishes one due post to each of its targets.
// Targets are independent: one failing never blocks its siblings, and
// the post aggregate reflects whatever subset made it out.
type DispatchService struct {
	postRepo   domain.PostRepository
	targetRepo domain.PostTargetRepository
	accountRepo domain.SocialAccountRepository
	accounts   *AccountService
	registry   *platform.Registry
	notifier   *Notifier
	cfg        config.DispatchConfig
}

// NewDispatchService creates a new dispatch service
func NewDispatchService(
	postRepo domain.PostRepository,
	targetRepo domain.PostTargetRepository,
	accountRepo domain.SocialAccountRepository,
	accounts *AccountService,
	registry *platform.Registry,
	notifier *Notifier,
	cfg config.DispatchConfig,
) *DispatchService {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &DispatchService{
		postRepo:    postRepo,
		targetRepo:  targetRepo,
		accountRepo: accountRepo,
		accounts:    accounts,
		registry:    registry,
		notifier:    notifier,
		cfg:         cfg,
	}
}

// Process publishes the post named by the job. The job carries IDs
// only; current state is re-read here, so a post cancelled after
// enqueue is a clean no-op.
func (s *DispatchService) Process(ctx context.Context, job domain.PublishJob) error {
	post, err := s.postRepo.GetByIDAndWorkspace(ctx, job.PostID, job.WorkspaceID)
	if err != nil {
		return fmt.Errorf("failed to load post: %w", err)
	}
	if post == nil {
		log.Warn().Str("post_id", job.PostID.String()).Msg("job for unknown post, dropping")
		return nil
	}
	if post.Status != domain.PostStatusScheduled {
		log.Info().
			Str("post_id", post.ID.String()).
			Str("status", string(post.Status)).
			Msg("post no longer scheduled, dropping job")
		return nil
	}

	targets, err := s.targetRepo.ListByPost(ctx, post.ID)
	if err != nil {
		return fmt.Errorf("failed to load targets: %w", err)
	}

	var published, failed int
	for i := range targets {
		target := &targets[i]
		switch target.Status {
		case domain.TargetStatusPublished:
			published++
			continue
		case domain.TargetStatusPublishing:
			// Another worker owns it; count nothing.
			continue
		}

		claimed, err := s.targetRepo.ClaimForPublishing(ctx, target.ID)
		if err != nil {
			return fmt.Errorf("failed to claim target: %w", err)
		}
		if !claimed {
			continue
		}

		if err := s.publishTarget(ctx, post, target); err != nil {
			failed++
		} else {
			published++
		}
	}

	return s.settle(ctx, post, published, failed)
}

// publishTarget runs the attempt loop for one target and records the
// outcome on the row.
func (s *DispatchService) publishTarget(ctx context.Context, post *domain.Post, target *domain.PostTarget) error {
	account, err := s.accountRepo.GetByIDAndWorkspace(ctx, target.SocialAccountID, post.WorkspaceID)
	if err != nil {
		return s.fail(ctx, target, "internal", err.Error())
	}
	if account == nil || account.Status == domain.AccountStatusDisconnected {
		return s.fail(ctx, target, "account_disconnected", "account is not connected")
	}

	adapter, err := s.registry.Get(account.Platform)
	if err != nil {
		return s.fail(ctx, target, "internal", err.Error())
	}

	ref, err := s.accounts.Credentials(ctx, account)
	if err != nil {
		metrics.ObserveTokenRefresh(string(account.Platform), "error")
		if errors.Is(err, domain.ErrTokenUnavailable) {
			return s.fail(ctx, target, platform.CodeAuthExpired, err.Error())
		}
		return s.fail(ctx, target, "internal", err.Error())
	}

	content := platform.Content{
		Title:     post.Title,
		Body:      post.Body,
		MediaType: post.MediaType,
		MediaURLs: post.MediaURLs,
	}

	start := time.Now()
	result, err := s.publishWithRetry(ctx, adapter, ref, content, target)
	if err != nil {
		metrics.ObservePublish(string(account.Platform), "failure", time.Since(start))
		code, message := platform.CodeBadResponse, err.Error()
		if pe, ok := platform.AsError(err); ok {
			code, message = pe.Code, pe.Message
		}
		if code == platform.CodeAuthExpired {
			s.markAccountErrored(ctx, account)
		}
		return s.fail(ctx, target, code, message)
	}
	metrics.ObservePublish(string(account.Platform), "success", time.Since(start))

	now := time.Now()
	if err := s.targetRepo.MarkPublished(ctx, target.ID, result.ExternalPostID, now); err != nil {
		return fmt.Errorf("failed to mark target published: %w", err)
	}
	target.Status = domain.TargetStatusPublished

	log.Info().
		Str("post_id", post.ID.String()).
		Str("target_id", target.ID.String()).
		Str("platform", string(target.Platform)).
		Str("external_post_id", result.ExternalPostID).
		Msg("target published")

	return nil
}

// publishWithRetry retries retryable platform failures with doubling
// backoff. Permanent errors and context cancellation stop immediately.
func (s *DispatchService) publishWithRetry(ctx context.Context, adapter platform.Adapter, ref platform.AccountRef, content platform.Content, target *domain.PostTarget) (*platform.PublishResult, error) {
	backoff := s.cfg.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		result, err := adapter.PublishPost(ctx, ref, content)
		if err == nil {
			return result, nil
		}
		lastErr = err
		target.RetryCount++

		if !platform.IsRetryable(err) {
			return nil, err
		}
		if attempt == s.cfg.MaxAttempts {
			break
		}

		log.Warn().Err(err).
			Str("target_id", target.ID.String()).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("publish attempt failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}

	return nil, lastErr
}

// settle rolls the per-target outcomes into the post aggregate. One
// published target is enough for the post to count as published.
func (s *DispatchService) settle(ctx context.Context, post *domain.Post, published, failed int) error {
	if published == 0 && failed == 0 {
		// Nothing actionable this pass.
		return nil
	}

	if published > 0 {
		moved, err := s.postRepo.UpdateStatus(ctx, post.ID, domain.PostStatusScheduled, domain.PostStatusPublished)
		if err != nil {
			return fmt.Errorf("failed to update post status: %w", err)
		}
		if moved {
			if err := s.postRepo.SetPublished(ctx, post.ID, time.Now()); err != nil {
				return fmt.Errorf("failed to set published time: %w", err)
			}
		}

		kind := domain.NotificationPublishDone
		payload := map[string]any{
			"post_id":   post.ID.String(),
			"published": published,
			"failed":    failed,
		}
		if err := s.notifier.NotifyWorkspace(ctx, post.WorkspaceID, kind, payload); err != nil {
			log.Error().Err(err).Msg("failed to notify publish outcome")
		}
		return nil
	}

	moved, err := s.postRepo.UpdateStatus(ctx, post.ID, domain.PostStatusScheduled, domain.PostStatusFailed)
	if err != nil {
		return fmt.Errorf("failed to update post status: %w", err)
	}
	if moved {
		payload := map[string]any{
			"post_id": post.ID.String(),
			"failed":  failed,
		}
		if err := s.notifier.NotifyWorkspace(ctx, post.WorkspaceID, domain.NotificationPublishError, payload); err != nil {
			log.Error().Err(err).Msg("failed to notify publish failure")
		}
	}
	return nil
}

func (s *DispatchService) fail(ctx context.Context, target *domain.PostTarget, code, message string) error {
	if err := s.targetRepo.MarkFailed(ctx, target.ID, code, message, target.RetryCount); err != nil {
		return fmt.Errorf("failed to mark target failed: %w", err)
	}
	target.Status = domain.TargetStatusFailed

	log.Warn().
		Str("target_id", target.ID.String()).
		Str("platform", string(target.Platform)).
		Str("error_code", code).
		Msg("target failed")

	return fmt.Errorf("target %s failed: %s", target.ID, code)
}

func (s *DispatchService) markAccountErrored(ctx context.Context, account *domain.SocialAccount) {
	if err := s.accountRepo.UpdateStatus(ctx, account.ID, domain.AccountStatusError); err != nil {
		log.Error().Err(err).Str("account_id", account.ID.String()).Msg("failed to mark account errored")
	}
}
