// Package instagram implements the platform adapter for Instagram
// business accounts via the Graph API. Publishing is a multi-step
// protocol: create a media container, poll its status until FINISHED,
// then publish the container.
package instagram

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

// Adapter implements platform.Adapter for Instagram
type Adapter struct {
	baseURL      string
	appID        string
	appSecret    string
	client       *http.Client
	pollInterval time.Duration
	maxPolls     int
}

// NewAdapter creates a new Instagram adapter
func NewAdapter(baseURL, appID, appSecret string, timeout time.Duration) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Adapter{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		appID:        appID,
		appSecret:    appSecret,
		client:       &http.Client{Timeout: timeout},
		pollInterval: 2 * time.Second,
		maxPolls:     15,
	}
}

// Platform returns the platform identifier
func (a *Adapter) Platform() domain.Platform {
	return domain.PlatformInstagram
}

type idResponse struct {
	ID string `json:"id"`
}

type statusResponse struct {
	StatusCode string `json:"status_code"`
}

// PublishPost runs the container protocol: create, poll until FINISHED,
// publish. Text-only posts are not supported by the API.
func (a *Adapter) PublishPost(ctx context.Context, ref platform.AccountRef, content platform.Content) (*platform.PublishResult, error) {
	if len(content.MediaURLs) == 0 {
		return nil, platform.NewError(platform.CodeContentRejected, "instagram posts require media", false)
	}

	containerID, err := a.createContainer(ctx, ref, content)
	if err != nil {
		return nil, err
	}

	if err := a.waitForContainer(ctx, ref, containerID); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("access_token", ref.AccessToken)
	form.Set("creation_id", containerID)

	body, err := a.postForm(ctx, fmt.Sprintf("/%s/media_publish", ref.ExternalAccountID), form)
	if err != nil {
		return nil, err
	}

	var resp idResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.ID == "" {
		return nil, platform.NewError(platform.CodeBadResponse, "media_publish response missing id", false)
	}

	return &platform.PublishResult{ExternalPostID: resp.ID}, nil
}

func (a *Adapter) createContainer(ctx context.Context, ref platform.AccountRef, content platform.Content) (string, error) {
	form := url.Values{}
	form.Set("access_token", ref.AccessToken)
	form.Set("caption", content.Body)

	switch content.MediaType {
	case domain.MediaTypeVideo:
		form.Set("media_type", "REELS")
		form.Set("video_url", content.MediaURLs[0])
	case domain.MediaTypeCarousel:
		// Carousel children are containers themselves; each child is
		// created first, then referenced from the parent.
		children := make([]string, 0, len(content.MediaURLs))
		for _, mediaURL := range content.MediaURLs {
			childForm := url.Values{}
			childForm.Set("access_token", ref.AccessToken)
			childForm.Set("image_url", mediaURL)
			childForm.Set("is_carousel_item", "true")

			body, err := a.postForm(ctx, fmt.Sprintf("/%s/media", ref.ExternalAccountID), childForm)
			if err != nil {
				return "", err
			}
			var child idResponse
			if err := json.Unmarshal(body, &child); err != nil || child.ID == "" {
				return "", platform.NewError(platform.CodeBadResponse, "carousel child container missing id", false)
			}
			children = append(children, child.ID)
		}
		form.Set("media_type", "CAROUSEL")
		form.Set("children", strings.Join(children, ","))
	default:
		form.Set("image_url", content.MediaURLs[0])
	}

	body, err := a.postForm(ctx, fmt.Sprintf("/%s/media", ref.ExternalAccountID), form)
	if err != nil {
		return "", err
	}

	var resp idResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.ID == "" {
		return "", platform.NewError(platform.CodeBadResponse, "container response missing id", false)
	}
	return resp.ID, nil
}

func (a *Adapter) waitForContainer(ctx context.Context, ref platform.AccountRef, containerID string) error {
	q := url.Values{}
	q.Set("access_token", ref.AccessToken)
	q.Set("fields", "status_code")

	for i := 0; i < a.maxPolls; i++ {
		body, err := a.get(ctx, "/"+containerID, q)
		if err != nil {
			return err
		}

		var resp statusResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return platform.NewError(platform.CodeBadResponse, "failed to decode container status", false)
		}

		switch resp.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR":
			return platform.NewError(platform.CodeContentRejected, "media container processing failed", false)
		}

		select {
		case <-ctx.Done():
			return platform.NewError(platform.CodeTimeout, ctx.Err().Error(), true)
		case <-time.After(a.pollInterval):
		}
	}

	return platform.NewError(platform.CodeTimeout, "media container did not finish processing", true)
}

type insightsResponse struct {
	Data []struct {
		Name   string `json:"name"`
		Values []struct {
			Value int64 `json:"value"`
		} `json:"values"`
	} `json:"data"`
}

// FetchEngagement reads media insights
func (a *Adapter) FetchEngagement(ctx context.Context, ref platform.AccountRef, externalPostID string, window time.Duration) (*platform.Metrics, error) {
	q := url.Values{}
	q.Set("access_token", ref.AccessToken)
	q.Set("metric", "likes,comments,shares,impressions")

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
		case "likes":
			metrics.Likes = d.Values[0].Value
		case "comments":
			metrics.Comments = d.Values[0].Value
		case "shares":
			metrics.Shares = d.Values[0].Value
		case "impressions":
			metrics.Impressions = d.Values[0].Value
		}
	}
	return metrics, nil
}

type commentsResponse struct {
	Data []struct {
		ID        string    `json:"id"`
		Username  string    `json:"username"`
		Text      string    `json:"text"`
		Timestamp time.Time `json:"timestamp"`
		From      struct {
			ID string `json:"id"`
		} `json:"from"`
	} `json:"data"`
}

// FetchInboundItems lists comments on recent media since the given time
func (a *Adapter) FetchInboundItems(ctx context.Context, ref platform.AccountRef, since time.Time) ([]platform.InboundItem, error) {
	q := url.Values{}
	q.Set("access_token", ref.AccessToken)
	q.Set("fields", "id,username,text,timestamp,from")
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
			AuthorUsername:   c.Username,
			Content:          c.Text,
			Timestamp:        c.Timestamp,
		})
	}
	return items, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// RefreshToken exchanges a long-lived token (same flow as Facebook)
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

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
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
