// Package linkedin implements the platform adapter for LinkedIn
// organization pages. Auth is a bearer token; posts go through the
// ugcPosts endpoint.
package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/crossply/crossply/internal/domain"
	"github.com/crossply/crossply/internal/platform"
)

const defaultBaseURL = "https://api.linkedin.com/v2"

// Adapter implements platform.Adapter for LinkedIn
type Adapter struct {
	baseURL      string
	clientID     string
	clientSecret string
	client       *http.Client
}

// NewAdapter creates a new LinkedIn adapter
func NewAdapter(baseURL, clientID, clientSecret string, timeout time.Duration) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Adapter{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       &http.Client{Timeout: timeout},
	}
}

// Platform returns the platform identifier
func (a *Adapter) Platform() domain.Platform {
	return domain.PlatformLinkedIn
}

type ugcPostRequest struct {
	Author          string         `json:"author"`
	LifecycleState  string         `json:"lifecycleState"`
	SpecificContent map[string]any `json:"specificContent"`
	Visibility      map[string]any `json:"visibility"`
}

type ugcPostResponse struct {
	ID string `json:"id"`
}

// PublishPost creates a UGC post for the organization
func (a *Adapter) PublishPost(ctx context.Context, ref platform.AccountRef, content platform.Content) (*platform.PublishResult, error) {
	shareContent := map[string]any{
		"shareCommentary":    map[string]string{"text": content.Body},
		"shareMediaCategory": "NONE",
	}
	if len(content.MediaURLs) > 0 {
		category := "IMAGE"
		if content.MediaType == domain.MediaTypeVideo {
			category = "VIDEO"
		}
		media := make([]map[string]any, 0, len(content.MediaURLs))
		for _, u := range content.MediaURLs {
			media = append(media, map[string]any{
				"status":      "READY",
				"originalUrl": u,
			})
		}
		shareContent["shareMediaCategory"] = category
		shareContent["media"] = media
	}

	reqBody := ugcPostRequest{
		Author:         "urn:li:organization:" + ref.ExternalAccountID,
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]any{
			"com.linkedin.ugc.ShareContent": shareContent,
		},
		Visibility: map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	body, err := a.doJSON(ctx, http.MethodPost, "/ugcPosts", ref.AccessToken, reqBody)
	if err != nil {
		return nil, err
	}

	var resp ugcPostResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.ID == "" {
		return nil, platform.NewError(platform.CodeBadResponse, "ugcPosts response missing id", false)
	}

	return &platform.PublishResult{ExternalPostID: resp.ID}, nil
}

type statsResponse struct {
	Elements []struct {
		TotalShareStatistics struct {
			LikeCount       int64 `json:"likeCount"`
			CommentCount    int64 `json:"commentCount"`
			ShareCount      int64 `json:"shareCount"`
			ImpressionCount int64 `json:"impressionCount"`
		} `json:"totalShareStatistics"`
	} `json:"elements"`
}

// FetchEngagement reads share statistics for a post
func (a *Adapter) FetchEngagement(ctx context.Context, ref platform.AccountRef, externalPostID string, window time.Duration) (*platform.Metrics, error) {
	path := fmt.Sprintf(
		"/organizationalEntityShareStatistics?q=organizationalEntity&organizationalEntity=%s&shares[0]=%s",
		url.QueryEscape("urn:li:organization:"+ref.ExternalAccountID),
		url.QueryEscape(externalPostID),
	)

	body, err := a.doJSON(ctx, http.MethodGet, path, ref.AccessToken, nil)
	if err != nil {
		return nil, err
	}

	var resp statsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewError(platform.CodeBadResponse, "failed to decode share statistics", false)
	}

	metrics := &platform.Metrics{}
	if len(resp.Elements) > 0 {
		s := resp.Elements[0].TotalShareStatistics
		metrics.Likes = s.LikeCount
		metrics.Comments = s.CommentCount
		metrics.Shares = s.ShareCount
		metrics.Impressions = s.ImpressionCount
	}
	return metrics, nil
}

type commentsResponse struct {
	Elements []struct {
		ID    string `json:"id"`
		Actor string `json:"actor"`
		Message struct {
			Text string `json:"text"`
		} `json:"message"`
		Created struct {
			Time int64 `json:"time"`
		} `json:"created"`
	} `json:"elements"`
}

// FetchInboundItems lists comments on organization shares
func (a *Adapter) FetchInboundItems(ctx context.Context, ref platform.AccountRef, since time.Time) ([]platform.InboundItem, error) {
	path := fmt.Sprintf("/socialActions/%s/comments",
		url.QueryEscape("urn:li:organization:"+ref.ExternalAccountID))

	body, err := a.doJSON(ctx, http.MethodGet, path, ref.AccessToken, nil)
	if err != nil {
		return nil, err
	}

	var resp commentsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewError(platform.CodeBadResponse, "failed to decode comments response", false)
	}

	items := make([]platform.InboundItem, 0, len(resp.Elements))
	for _, c := range resp.Elements {
		ts := time.UnixMilli(c.Created.Time)
		if ts.Before(since) {
			continue
		}
		items = append(items, platform.InboundItem{
			PlatformItemID:   c.ID,
			Kind:             domain.InboxItemComment,
			AuthorExternalID: c.Actor,
			AuthorUsername:   c.Actor,
			Content:          c.Message.Text,
			Timestamp:        ts,
		})
	}
	return items, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RefreshToken exchanges a refresh token at the OAuth endpoint. LinkedIn
// rotates both tokens.
func (a *Adapter) RefreshToken(ctx context.Context, refreshToken string) (*platform.TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", a.clientID)
	form.Set("client_secret", a.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://www.linkedin.com/oauth/v2/accessToken", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := a.do(req)
	if err != nil {
		return nil, err
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.AccessToken == "" {
		return nil, platform.NewError(platform.CodeBadResponse, "failed to decode token response", false)
	}

	grant := &platform.TokenGrant{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}
	if resp.ExpiresIn > 0 {
		exp := time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
		grant.ExpiresAt = &exp
	}
	return grant, nil
}

func (a *Adapter) doJSON(ctx context.Context, method, path, token string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return a.do(req)
}

func (a *Adapter) do(req *http.Request) ([]byte, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, platform.NewError(platform.CodeTimeout, err.Error(), true)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, platform.NewError(platform.CodeBadResponse, "failed to read response body", true)
	}

	if resp.StatusCode >= 400 {
		return nil, platform.FromHTTPStatus(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}
