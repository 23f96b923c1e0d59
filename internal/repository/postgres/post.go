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

// PostRepository handles post data access. Reads exclude soft-deleted
// rows and are workspace-scoped.
type PostRepository struct {
	db *DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *DB) *PostRepository {
	return &PostRepository{db: db}
}

const postColumns = `
	id, workspace_id, author_id, title, body, media_type, media_urls,
	status, scheduled_at, published_at, queued_at, created_at, updated_at, deleted_at
`

// Create creates a new post
func (r *PostRepository) Create(ctx context.Context, post *domain.Post) error {
	query := `
		INSERT INTO posts (` + postColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		post.ID,
		post.WorkspaceID,
		post.AuthorID,
		post.Title,
		post.Body,
		post.MediaType,
		post.MediaURLs,
		post.Status,
		post.ScheduledAt,
		post.PublishedAt,
		post.QueuedAt,
		post.CreatedAt,
		post.UpdatedAt,
		post.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}

	return nil
}

// GetByIDAndWorkspace retrieves a post scoped to a workspace
func (r *PostRepository) GetByIDAndWorkspace(ctx context.Context, id, workspaceID uuid.UUID) (*domain.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE id = $1 AND workspace_id = $2 AND deleted_at IS NULL
	`

	post, err := scanPost(r.db.Pool.QueryRow(ctx, query, id, workspaceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return post, nil
}

// ListByWorkspace retrieves posts in a workspace, optionally filtered by
// status
func (r *PostRepository) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, status *domain.PostStatus, limit, offset int) ([]domain.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM posts
		WHERE workspace_id = $1 AND deleted_at IS NULL
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Pool.Query(ctx, query, workspaceID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *post)
	}

	return posts, nil
}

// Update updates the editable fields of a post
func (r *PostRepository) Update(ctx context.Context, post *domain.Post) error {
	query := `
		UPDATE posts
		SET title = $2,
		    body = $3,
		    media_type = $4,
		    media_urls = $5,
		    scheduled_at = $6,
		    updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	_, err := r.db.Pool.Exec(ctx, query,
		post.ID,
		post.Title,
		post.Body,
		post.MediaType,
		post.MediaURLs,
		post.ScheduledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}

	return nil
}

// UpdateStatus performs a compare-and-set status transition. Returns
// true when the row was in the expected state and moved. Entering
// scheduled clears queued_at so a rescheduled post is claimable again;
// without that a post claimed once would never match ClaimDue's
// queued_at IS NULL predicate.
func (r *PostRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.PostStatus) (bool, error) {
	query := `
		UPDATE posts
		SET status = $3,
		    queued_at = CASE WHEN $3::text = 'scheduled' THEN NULL ELSE queued_at END,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2 AND deleted_at IS NULL
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to update post status: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// SoftDeleteDraftsBulk soft-deletes the given posts where the status
// permits deletion, returning the exact number of rows mutated
func (r *PostRepository) SoftDeleteDraftsBulk(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE posts
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE workspace_id = $1
		  AND id = ANY($2)
		  AND status IN ('draft', 'cancelled')
		  AND deleted_at IS NULL
	`

	tag, err := r.db.Pool.Exec(ctx, query, workspaceID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk delete posts: %w", err)
	}

	return tag.RowsAffected(), nil
}

// SubmitBulk moves draft posts to submitted, returning the exact number
// of rows mutated
func (r *PostRepository) SubmitBulk(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE posts
		SET status = 'submitted', updated_at = NOW()
		WHERE workspace_id = $1
		  AND id = ANY($2)
		  AND status = 'draft'
		  AND deleted_at IS NULL
	`

	tag, err := r.db.Pool.Exec(ctx, query, workspaceID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk submit posts: %w", err)
	}

	return tag.RowsAffected(), nil
}

// ClaimDue stamps queued_at on due scheduled posts and returns them.
// The RETURNING clause makes the claim and the read one statement, so
// concurrent sweeps never claim the same post twice.
func (r *PostRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.Post, error) {
	query := `
		UPDATE posts
		SET queued_at = NOW(), updated_at = NOW()
		WHERE id IN (
			SELECT id FROM posts
			WHERE status = 'scheduled'
			  AND scheduled_at <= $1
			  AND queued_at IS NULL
			  AND deleted_at IS NULL
			ORDER BY scheduled_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + postColumns + `
	`

	rows, err := r.db.Pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claimed post: %w", err)
		}
		posts = append(posts, *post)
	}

	return posts, nil
}

// ReleaseQueued clears queued_at so the next sweep can retry a failed
// enqueue
func (r *PostRepository) ReleaseQueued(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE posts
		SET queued_at = NULL, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to release queued post: %w", err)
	}

	return nil
}

// SetPublished records the publish completion time
func (r *PostRepository) SetPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE posts
		SET published_at = $2, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to set published: %w", err)
	}

	return nil
}

func scanPost(row rowScanner) (*domain.Post, error) {
	var post domain.Post
	err := row.Scan(
		&post.ID,
		&post.WorkspaceID,
		&post.AuthorID,
		&post.Title,
		&post.Body,
		&post.MediaType,
		&post.MediaURLs,
		&post.Status,
		&post.ScheduledAt,
		&post.PublishedAt,
		&post.QueuedAt,
		&post.CreatedAt,
		&post.UpdatedAt,
		&post.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// PostTargetRepository handles post target data access
type PostTargetRepository struct {
	db *DB
}

// NewPostTargetRepository creates a new post target repository
func NewPostTargetRepository(db *DB) *PostTargetRepository {
	return &PostTargetRepository{db: db}
}

const targetColumns = `
	id, post_id, social_account_id, platform, status, external_post_id,
	retry_count, error_code, error_message, published_at, created_at, updated_at
`

// Create creates a new post target
func (r *PostTargetRepository) Create(ctx context.Context, target *domain.PostTarget) error {
	query := `
		INSERT INTO post_targets (` + targetColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		target.ID,
		target.PostID,
		target.SocialAccountID,
		target.Platform,
		target.Status,
		target.ExternalPostID,
		target.RetryCount,
		target.ErrorCode,
		target.ErrorMessage,
		target.PublishedAt,
		target.CreatedAt,
		target.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create post target: %w", err)
	}

	return nil
}

// ListByPost retrieves all targets for a post
func (r *PostTargetRepository) ListByPost(ctx context.Context, postID uuid.UUID) ([]domain.PostTarget, error) {
	query := `
		SELECT ` + targetColumns + `
		FROM post_targets
		WHERE post_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.Pool.Query(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list post targets: %w", err)
	}
	defer rows.Close()

	var targets []domain.PostTarget
	for rows.Next() {
		var target domain.PostTarget
		if err := rows.Scan(
			&target.ID,
			&target.PostID,
			&target.SocialAccountID,
			&target.Platform,
			&target.Status,
			&target.ExternalPostID,
			&target.RetryCount,
			&target.ErrorCode,
			&target.ErrorMessage,
			&target.PublishedAt,
			&target.CreatedAt,
			&target.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan post target: %w", err)
		}
		targets = append(targets, target)
	}

	return targets, nil
}

// ClaimForPublishing moves a pending or previously failed target to
// publishing. Returns false when another worker already owns it.
func (r *PostTargetRepository) ClaimForPublishing(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE post_targets
		SET status = 'publishing', updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'failed')
	`

	tag, err := r.db.Pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim post target: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// MarkPublished records a successful publish
func (r *PostTargetRepository) MarkPublished(ctx context.Context, id uuid.UUID, externalPostID string, at time.Time) error {
	query := `
		UPDATE post_targets
		SET status = 'published',
		    external_post_id = $2,
		    published_at = $3,
		    error_code = '',
		    error_message = '',
		    updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, id, externalPostID, at)
	if err != nil {
		return fmt.Errorf("failed to mark target published: %w", err)
	}

	return nil
}

// MarkFailed records a failed publish attempt
func (r *PostTargetRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorCode, errorMessage string, retryCount int) error {
	query := `
		UPDATE post_targets
		SET status = 'failed',
		    error_code = $2,
		    error_message = $3,
		    retry_count = $4,
		    updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, id, errorCode, errorMessage, retryCount)
	if err != nil {
		return fmt.Errorf("failed to mark target failed: %w", err)
	}

	return nil
}

// DeleteByPost removes all targets for a post
func (r *PostTargetRepository) DeleteByPost(ctx context.Context, postID uuid.UUID) error {
	query := `DELETE FROM post_targets WHERE post_id = $1`

	_, err := r.db.Pool.Exec(ctx, query, postID)
	if err != nil {
		return fmt.Errorf("failed to delete post targets: %w", err)
	}

	return nil
}
