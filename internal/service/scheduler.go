package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crossply/crossply/internal/config"
	"github.com/crossply/crossply/internal/domain"
	"github.com/crossply/crossply/internal/observability/metrics"
)

const sweepBatchSize = 100

// SchedulerService turns due scheduled posts into publish jobs. The
// claim stamps queued_at on the row, so a post is enqueued exactly once
// no matter how many sweeps run concurrently.
type SchedulerService struct {
	postRepo domain.PostRepository
	queue    Queue
	cfg      config.SchedulerConfig
}

// NewSchedulerService creates a new scheduler service
func NewSchedulerService(postRepo domain.PostRepository, queue Queue, cfg config.SchedulerConfig) *SchedulerService {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	return &SchedulerService{
		postRepo: postRepo,
		queue:    queue,
		cfg:      cfg,
	}
}

// Sweep claims every due post and enqueues one job each. A failed
// enqueue releases the claim so the next sweep retries it. Returns the
// number of jobs enqueued.
func (s *SchedulerService) Sweep(ctx context.Context, now time.Time) (int, error) {
	posts, err := s.postRepo.ClaimDue(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to claim due posts: %w", err)
	}

	enqueued := 0
	for _, post := range posts {
		job := domain.PublishJob{PostID: post.ID, WorkspaceID: post.WorkspaceID}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			log.Error().Err(err).
				Str("post_id", post.ID.String()).
				Msg("failed to enqueue publish job, releasing claim")
			if releaseErr := s.postRepo.ReleaseQueued(ctx, post.ID); releaseErr != nil {
				log.Error().Err(releaseErr).
					Str("post_id", post.ID.String()).
					Msg("failed to release claim")
			}
			continue
		}
		enqueued++
	}

	metrics.ObserveSweep(enqueued)
	return enqueued, nil
}

// Start runs the sweep loop until the context is cancelled
func (s *SchedulerService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.cfg.SweepInterval).Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx, time.Now())
			if err != nil {
				log.Error().Err(err).Msg("sweep failed")
				continue
			}
			if n > 0 {
				log.Info().Int("enqueued", n).Msg("sweep enqueued due posts")
			}
		}
	}
}
