package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crossply/crossply/internal/domain"
	"github.com/crossply/crossply/internal/observability/metrics"
	"github.com/crossply/crossply/internal/repository/redis"
	"github.com/crossply/crossply/internal/service"
)

const (
	dequeueTimeout   = 5 * time.Second
	depthSampleEvery = 30 * time.Second
	errorBackoff     = time.Second
)

// PublishWorker drains the publish queue and hands each job to the
// dispatch service. Jobs that panic or fail are logged and dropped;
// the post they named keeps its target-level failure records, so a
// crash never loses more than the one job in flight.
type PublishWorker struct {
	queue    *redis.JobQueue
	dispatch *service.DispatchService
}

// NewPublishWorker creates a new publish worker
func NewPublishWorker(queue *redis.JobQueue, dispatch *service.DispatchService) *PublishWorker {
	return &PublishWorker{
		queue:    queue,
		dispatch: dispatch,
	}
}

// Run consumes jobs until the context is cancelled
func (w *PublishWorker) Run(ctx context.Context) {
	log.Info().Msg("publish worker started")

	go w.sampleDepth(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("publish worker stopped")
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Error().Err(err).Msg("failed to dequeue publish job")
			select {
			case <-ctx.Done():
			case <-time.After(errorBackoff):
			}
			continue
		}
		if job == nil {
			continue
		}

		w.process(ctx, *job)
	}
}

func (w *PublishWorker) process(ctx context.Context, job domain.PublishJob) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("post_id", job.PostID.String()).
				Msg("publish job panicked")
		}
	}()

	if err := w.dispatch.Process(ctx, job); err != nil {
		log.Error().
			Err(err).
			Str("post_id", job.PostID.String()).
			Str("workspace_id", job.WorkspaceID.String()).
			Msg("publish job failed")
	}
}

func (w *PublishWorker) sampleDepth(ctx context.Context) {
	ticker := time.NewTicker(depthSampleEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depth, err := w.queue.Depth(ctx)
			if err != nil {
				log.Error().Err(err).Msg("failed to read queue depth")
				continue
			}
			metrics.SetQueueDepth(depth)
		}
	}
}
