package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PostStatus is the lifecycle state of a post
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusSubmitted PostStatus = "submitted"
	PostStatusApproved  PostStatus = "approved"
	PostStatusRejected  PostStatus = "rejected"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPublished PostStatus = "published"
	PostStatusFailed    PostStatus = "failed"
	PostStatusCancelled PostStatus = "cancelled"
)

// postTransitions encodes the allowed post lifecycle edges. Publishing
// transitions (scheduled -> published/failed) are driven by the
// dispatcher, everything else by user actions.
var postTransitions = map[PostStatus][]PostStatus{
	PostStatusDraft:     {PostStatusSubmitted, PostStatusCancelled},
	PostStatusSubmitted: {PostStatusApproved, PostStatusRejected, PostStatusCancelled},
	PostStatusApproved:  {PostStatusScheduled, PostStatusCancelled},
	PostStatusRejected:  {PostStatusDraft, PostStatusCancelled},
	PostStatusScheduled: {PostStatusPublished, PostStatusFailed, PostStatusCancelled},
	PostStatusFailed:    {PostStatusScheduled},
	PostStatusCancelled: {PostStatusDraft},
}

// CanTransition reports whether a post may move from one status to
// another.
func CanTransition(from, to PostStatus) bool {
	for _, s := range postTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// MediaType describes the content shape of a post
type MediaType string

const (
	MediaTypeText     MediaType = "text"
	MediaTypeImage    MediaType = "image"
	MediaTypeVideo    MediaType = "video"
	MediaTypeCarousel MediaType = "carousel"
)

// Post is a content unit owned by a workspace
type Post struct {
	ID          uuid.UUID  `json:"id"`
	WorkspaceID uuid.UUID  `json:"workspace_id"`
	AuthorID    uuid.UUID  `json:"author_id"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	MediaType   MediaType  `json:"media_type"`
	MediaURLs   []string   `json:"media_urls,omitempty"`
	Status      PostStatus `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	// QueuedAt marks a scheduled post that the sweep has already
	// enqueued; it is the exactly-once guard for job creation.
	QueuedAt  *time.Time `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

// Deletable reports whether the post may be deleted. Only drafts and
// cancelled posts qualify.
func (p *Post) Deletable() bool {
	return p.Status == PostStatusDraft || p.Status == PostStatusCancelled
}

// PostCreate represents post creation data. TargetAccountIDs name the
// social accounts the post will publish to.
type PostCreate struct {
	Title            string      `json:"title" validate:"max=255"`
	Body             string      `json:"body" validate:"required"`
	MediaType        MediaType   `json:"media_type" validate:"omitempty,oneof=text image video carousel"`
	MediaURLs        []string    `json:"media_urls,omitempty" validate:"omitempty,dive,url"`
	TargetAccountIDs []uuid.UUID `json:"target_account_ids" validate:"required,min=1"`
	ScheduledAt      *time.Time  `json:"scheduled_at,omitempty"`
}

// PostUpdate represents post update data; only drafts are editable
type PostUpdate struct {
	Title       *string    `json:"title,omitempty" validate:"omitempty,max=255"`
	Body        *string    `json:"body,omitempty"`
	MediaType   *MediaType `json:"media_type,omitempty" validate:"omitempty,oneof=text image video carousel"`
	MediaURLs   []string   `json:"media_urls,omitempty" validate:"omitempty,dive,url"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// TargetStatus is the publishing state of one post target
type TargetStatus string

const (
	TargetStatusPending    TargetStatus = "pending"
	TargetStatusPublishing TargetStatus = "publishing"
	TargetStatusPublished  TargetStatus = "published"
	TargetStatusFailed     TargetStatus = "failed"
)

// PostTarget is one platform destination for a post. Target state is
// independent of sibling targets; a post can be partially published.
type PostTarget struct {
	ID              uuid.UUID    `json:"id"`
	PostID          uuid.UUID    `json:"post_id"`
	SocialAccountID uuid.UUID    `json:"social_account_id"`
	Platform        Platform     `json:"platform"`
	Status          TargetStatus `json:"status"`
	ExternalPostID  string       `json:"external_post_id,omitempty"`
	RetryCount      int          `json:"retry_count"`
	ErrorCode       string       `json:"error_code,omitempty"`
	ErrorMessage    string       `json:"error_message,omitempty"`
	PublishedAt     *time.Time   `json:"published_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// PublishJob is the queue payload for one due post. It carries IDs
// only; the worker re-fetches current state before acting.
type PublishJob struct {
	PostID      uuid.UUID `json:"post_id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
}

// PostRepository defines the interface for post storage. Reads exclude
// soft-deleted rows and are workspace-scoped.
type PostRepository interface {
	Create(ctx context.Context, post *Post) error
	GetByIDAndWorkspace(ctx context.Context, id, workspaceID uuid.UUID) (*Post, error)
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID, status *PostStatus, limit, offset int) ([]Post, error)
	Update(ctx context.Context, post *Post) error
	// UpdateStatus is a compare-and-set transition: the row is only
	// touched when its current status matches from. Returns true when
	// the transition happened.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to PostStatus) (bool, error)
	// SoftDeleteDraftsBulk soft-deletes the given posts where status
	// permits deletion, returning the exact number of rows mutated.
	SoftDeleteDraftsBulk(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) (int64, error)
	// SubmitBulk moves draft posts to submitted, returning the exact
	// number of rows mutated.
	SubmitBulk(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) (int64, error)
	// ClaimDue stamps queued_at on scheduled posts due at now that have
	// not been claimed yet, returning the claimed posts. Each due post
	// is returned by exactly one call across concurrent sweeps.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]Post, error)
	// ReleaseQueued clears queued_at so a failed enqueue can be retried
	// by the next sweep.
	ReleaseQueued(ctx context.Context, id uuid.UUID) error
	SetPublished(ctx context.Context, id uuid.UUID, at time.Time) error
}

// PostTargetRepository defines the interface for post target storage
type PostTargetRepository interface {
	Create(ctx context.Context, target *PostTarget) error
	ListByPost(ctx context.Context, postID uuid.UUID) ([]PostTarget, error)
	// ClaimForPublishing is the compare-and-set transition from pending
	// (or failed, on retry) to publishing. Returns false when another
	// worker already owns the target.
	ClaimForPublishing(ctx context.Context, id uuid.UUID) (bool, error)
	MarkPublished(ctx context.Context, id uuid.UUID, externalPostID string, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorCode, errorMessage string, retryCount int) error
	DeleteByPost(ctx context.Context, postID uuid.UUID) error
}
