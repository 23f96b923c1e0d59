// Package facebook implements the platform adapter for Facebook pages
// via the Graph API. Auth rides on the access_token query parameter,
// and the endpoint path depends on the content type: /feed for text,
// /photos for images, /videos for video posts.
package facebook

import (
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

const defaultBaseURL = "https://graph.facebook.com/v19.0"

// Adapter implements platform.Adapter for Facebook
type Adapter struct {
	baseURL   string
	appID     string
	appSecret string
	client    *http.Client
}

// NewAdapter creates a new Facebook adapter
func NewAdapter(baseURL, appID, appSecret string, timeout time.Duration) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Adapter{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		appID:     appID,
		appSecret: appSecret,
		client:    &http.Client{Timeout: timeout},
	}
}

// Platform returns the platform identifier
func (a *Adapter) Platform() domain.Platform {
	return domain.PlatformFacebook
}

type graphError struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		FBTraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}

type publishResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

// PublishPost publishes content to a page feed. Images go through
// /photos, videos through /videos, plain text through /feed.
func (a *Adapter) PublishPost(ctx context.Context, ref platform.AccountRef, content platform.Content) (*platform.PublishResult, error) {
	form := url.Values{}
	form.Set("access_token", ref.AccessToken)

	var path string
	switch content.MediaType {
	case domain.MediaTypeImage, domain.MediaTypeCarousel:
		path = fmt.Sprintf("/%s/photos", ref.ExternalAccountID)
		form.Set("caption", content.Body)
		if len(content.MediaURLs) > 0 {
			form.Set("url", content.MediaURLs[0])
		}
	case domain.MediaTypeVideo:
		path = fmt.Sprintf("/%s/videos", ref.ExternalAccountID)
		form.Set("description", content.Body)
		if len(content.MediaURLs) > 0 {
			form.Set("file_url", content.MediaURLs[0])
		}
	default:
		path = fmt.Sprintf("/%s/feed", ref.ExternalAccountID)
		form.Set("message", content.Body)
	}

	body, err := a.postForm(ctx, path, form)
	if err != nil {
		return nil, err
	}

	var resp publishResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewError(platform.CodeBadResponse, "failed to decode publish response", false)
	}

	externalID := resp.PostID
	if externalID == "" {
		externalID = resp.ID
	}
	if externalID == "" {
		return nil, platform.NewError(platform.CodeBadResponse, "publish response missing post id", false)
	}

	return &platform.PublishResult{ExternalPostID: externalID}, nil
}

type insightsResponse struct {
	Data []struct {
		Name   string `json:"name"`
		Values []struct {
			Value int64 `json:"value"`
		} `json:"values"`
	} `json:"data"`
}

// FetchEngagement reads post insights for the given window
func (a *Adapter) FetchEngagement(ctx context.Context, ref platform.AccountRef, externalPostID string, window time.Duration) (*platform.Metrics, error) {
	q := url.Values{}
	q.Set("access_token", ref.AccessToken)
	q.Set("metric", "post_reactions_by_type_total,post_impressions,post_clicks")
	q.Set("since", time.Now().Add(-window).Format(time.RFC3339))

	body, err := a.get(ctx, fmt.Sprintf("/%s/insights", externalPostID), q)
	if err != nil {
		return nil, err
	}

	var resp insightsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewError(platform.CodeBadResponse, "failed to decode insights response", false)
	}

	metrics := &platform.Metrics{}
	for _, d := range resp.Data {
		if len(d.Values) == 0 {
			continue
		}
		switch d.Name {
		case "post_reactions_by_type_total":
			metrics.Likes = d.Values[0].Value
		case "post_impressions":
			metrics.Impressions = d.Values[0].Value
		}
	}
	return metrics, nil
}

type commentsResponse struct {
	Data []struct {
		ID   string `json:"id"`
		From struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"from"`
		Message     string    `json:"message"`
		CreatedTime time.Time `json:"created_time"`
	} `json:"data"`
}

// FetchInboundItems lists comments on the page feed created since the
// given time
func (a *Adapter) FetchInboundItems(ctx context.Context, ref platform.AccountRef, since time.Time) ([]platform.InboundItem, error) {
	q := url.Values{}
	q.Set("access_token", ref.AccessToken)
	q.Set("fields", "id,from,message,created_time")
	q.Set("since", fmt.Sprintf("%d", since.Unix()))

	body, err := a.get(ctx, fmt.Sprintf("/%s/comments", ref.ExternalAccountID), q)
	if err != nil {
		return nil, err
	}

	var resp commentsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewError(platform.CodeBadResponse, "failed to decode comments response", false)
	}

	items := make([]platform.InboundItem, 0, len(resp.Data))
	for _, c := range resp.Data {
		items = append(items, platform.InboundItem{
			PlatformItemID:   c.ID,
			Kind:             domain.InboxItemComment,
			AuthorExternalID: c.From.ID,
			AuthorUsername:   c.From.Name,
			Content:          c.Message,
			Timestamp:        c.CreatedTime,
		})
	}
	return items, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// RefreshToken exchanges a long-lived token via fb_exchange_token. The
// Graph API returns a new access token only; the stored refresh token
// stays in place.
func (a *Adapter) RefreshToken(ctx context.Context, refreshToken string) (*platform.TokenGrant, error) {
	q := url.Values{}
	q.Set("grant_type", "fb_exchange_token")
	q.Set("client_id", a.appID)
	q.Set("client_secret", a.appSecret)
	q.Set("fb_exchange_token", refreshToken)

	body, err := a.get(ctx, "/oauth/access_token", q)
	if err != nil {
		return nil, err
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.AccessToken == "" {
		return nil, platform.NewError(platform.CodeBadResponse, "failed to decode token response", false)
	}

	grant := &platform.TokenGrant{AccessToken: resp.AccessToken}
	if resp.ExpiresIn > 0 {
		exp := time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
		grant.ExpiresAt = &exp
	}
	return grant, nil
}

func (a *Adapter) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req)
}

func (a *Adapter) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
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
		var ge graphError
		if json.Unmarshal(body, &ge) == nil && ge.Error.Code != 0 {
			return nil, platform.FromGraphCode(ge.Error.Code, ge.Error.Message)
		}
		return nil, platform.FromHTTPStatus(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}
