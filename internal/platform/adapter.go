// Package platform defines the capability surface shared by every
// external platform client. Each platform lives in its own subpackage
// and owns its base URL, auth convention and publish protocol; all of
// them normalize failures into *Error before returning.
package platform

import (
	"context"
	"time"

	"github.com/crossply/crossply/internal/domain"
)

// AccountRef identifies one connected account for an outbound call.
// The access token is plaintext here: the vault opens it immediately
// before the call and it is never persisted in this form.
type AccountRef struct {
	ExternalAccountID string
	AccessToken       string
}

// Content is the platform-neutral form of a post to publish
type Content struct {
	Title     string
	Body      string
	MediaType domain.MediaType
	MediaURLs []string
}

// PublishResult is the outcome of a successful publish
type PublishResult struct {
	ExternalPostID string
}

// Metrics holds engagement numbers for one published post
type Metrics struct {
	Likes       int64 `json:"likes"`
	Comments    int64 `json:"comments"`
	Shares      int64 `json:"shares"`
	Impressions int64 `json:"impressions"`
}

// InboundItem is one inbound comment/mention/message as fetched from a
// platform, prior to ingestion.
type InboundItem struct {
	PlatformItemID   string
	Kind             domain.InboxItemKind
	AuthorExternalID string
	AuthorUsername   string
	Content          string
	ThreadID         string
	Timestamp        time.Time
}

// TokenGrant is a refreshed token pair. RefreshToken may be empty when
// the platform rotates only the access token.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// Adapter is the common capability interface implemented once per
// platform. Every method performs a real outbound network call; test
// doubles intercept at the HTTP transport, never inside adapter logic.
type Adapter interface {
	// Platform returns the platform this adapter serves
	Platform() domain.Platform

	// PublishPost publishes content to the account and returns the
	// platform-assigned post ID
	PublishPost(ctx context.Context, ref AccountRef, content Content) (*PublishResult, error)

	// FetchEngagement returns engagement metrics for a published post
	// over the given window
	FetchEngagement(ctx context.Context, ref AccountRef, externalPostID string, window time.Duration) (*Metrics, error)

	// FetchInboundItems returns inbound comments/mentions/messages
	// created since the given time
	FetchInboundItems(ctx context.Context, ref AccountRef, since time.Time) ([]InboundItem, error)

	// RefreshToken exchanges a refresh token for a new grant. Platforms
	// without a refresh flow return a permanent *Error.
	RefreshToken(ctx context.Context, refreshToken string) (*TokenGrant, error)
}
