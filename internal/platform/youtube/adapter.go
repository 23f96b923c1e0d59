// Package youtube implements the platform adapter for YouTube channels.
// Auth is a bearer token; video publishing is a two-step resumable
// upload: open an upload session, then send the media to the session
// URL.
package youtube

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

const (
	defaultUploadBaseURL = "https://www.googleapis.com/upload/youtube/v3"
	dataBaseURL          = "https://www.googleapis.com/youtube/v3"
	oauthTokenURL        = "https://oauth2.googleapis.com/token"
)

// Adapter implements platform.Adapter for YouTube
type Adapter struct {
	uploadBaseURL string
	dataBaseURL   string
	tokenURL      string
	clientID      string
	clientSecret  string
	client        *http.Client
}

// NewAdapter creates a new YouTube adapter
func NewAdapter(baseURL, clientID, clientSecret string, timeout time.Duration) *Adapter {
	if baseURL == "" {
		baseURL = defaultUploadBaseURL
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Adapter{
		uploadBaseURL: strings.TrimSuffix(baseURL, "/"),
		dataBaseURL:   dataBaseURL,
		tokenURL:      oauthTokenURL,
		clientID:      clientID,
		clientSecret:  clientSecret,
		client:        &http.Client{Timeout: timeout},
	}
}

// SetDataBaseURL overrides the data API host. Used by integration
// environments pointing at a sandbox.
func (a *Adapter) SetDataBaseURL(u string) {
	a.dataBaseURL = strings.TrimSuffix(u, "/")
}

// SetTokenURL overrides the OAuth token endpoint.
func (a *Adapter) SetTokenURL(u string) {
	a.tokenURL = u
}

// Platform returns the platform identifier
func (a *Adapter) Platform() domain.Platform {
	return domain.PlatformYouTube
}

type videoResource struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"snippet"`
}

// PublishPost uploads a video. Step one posts the video metadata and
// receives a session URL in the Location header; step two sends the
// media reference to that session.
func (a *Adapter) PublishPost(ctx context.Context, ref platform.AccountRef, content platform.Content) (*platform.PublishResult, error) {
	if content.MediaType != domain.MediaTypeVideo || len(content.MediaURLs) == 0 {
		return nil, platform.NewError(platform.CodeContentRejected, "youtube posts require a video", false)
	}

	meta := map[string]any{
		"snippet": map[string]any{
			"title":       content.Title,
			"description": content.Body,
		},
		"status": map[string]any{"privacyStatus": "public"},
	}
	metaBody, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	initURL := a.uploadBaseURL + "/videos?uploadType=resumable&part=snippet,status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, initURL, bytes.NewReader(metaBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+ref.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, platform.NewError(platform.CodeTimeout, err.Error(), true)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, platform.FromHTTPStatus(resp.StatusCode, "failed to open upload session")
	}

	sessionURL := resp.Header.Get("Location")
	if sessionURL == "" {
		return nil, platform.NewError(platform.CodeBadResponse, "upload session missing location", false)
	}

	// Step two: the media itself. The service stores media by
	// reference, so the session receives the source URL.
	uploadReq, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL,
		strings.NewReader(content.MediaURLs[0]))
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	uploadReq.Header.Set("Authorization", "Bearer "+ref.AccessToken)

	body, err := a.do(uploadReq)
	if err != nil {
		return nil, err
	}

	var video videoResource
	if err := json.Unmarshal(body, &video); err != nil || video.ID == "" {
		return nil, platform.NewError(platform.CodeBadResponse, "upload response missing video id", false)
	}

	return &platform.PublishResult{ExternalPostID: video.ID}, nil
}

type statsResponse struct {
	Items []struct {
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// FetchEngagement reads video statistics
func (a *Adapter) FetchEngagement(ctx context.Context, ref platform.AccountRef, externalPostID string, window time.Duration) (*platform.Metrics, error) {
	u := fmt.Sprintf("%s/videos?part=statistics&id=%s", a.dataBaseURL, url.QueryEscape(externalPostID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+ref.AccessToken)

	body, err := a.do(req)
	if err != nil {
		return nil, err
	}

	var resp statsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewError(platform.CodeBadResponse, "failed to decode statistics", false)
	}

	metrics := &platform.Metrics{}
	if len(resp.Items) > 0 {
		s := resp.Items[0].Statistics
		fmt.Sscanf(s.LikeCount, "%d", &metrics.Likes)
		fmt.Sscanf(s.CommentCount, "%d", &metrics.Comments)
		fmt.Sscanf(s.ViewCount, "%d", &metrics.Impressions)
	}
	return metrics, nil
}

type commentThreadsResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			TopLevelComment struct {
				Snippet struct {
					AuthorDisplayName string    `json:"authorDisplayName"`
					AuthorChannelID   struct{ Value string } `json:"authorChannelId"`
					TextDisplay       string    `json:"textDisplay"`
					PublishedAt       time.Time `json:"publishedAt"`
				} `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
}

// FetchInboundItems lists comment threads on the channel since the
// given time
func (a *Adapter) FetchInboundItems(ctx context.Context, ref platform.AccountRef, since time.Time) ([]platform.InboundItem, error) {
	u := fmt.Sprintf("%s/commentThreads?part=snippet&allThreadsRelatedToChannelId=%s",
		a.dataBaseURL, url.QueryEscape(ref.ExternalAccountID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+ref.AccessToken)

	body, err := a.do(req)
	if err != nil {
		return nil, err
	}

	var resp commentThreadsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewError(platform.CodeBadResponse, "failed to decode comment threads", false)
	}

	items := make([]platform.InboundItem, 0, len(resp.Items))
	for _, t := range resp.Items {
		s := t.Snippet.TopLevelComment.Snippet
		if s.PublishedAt.Before(since) {
			continue
		}
		items = append(items, platform.InboundItem{
			PlatformItemID:   t.ID,
			Kind:             domain.InboxItemComment,
			AuthorExternalID: s.AuthorChannelID.Value,
			AuthorUsername:   s.AuthorDisplayName,
			Content:          s.TextDisplay,
			ThreadID:         t.ID,
			Timestamp:        s.PublishedAt,
		})
	}
	return items, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// RefreshToken exchanges a refresh token at the Google OAuth endpoint.
// Google keeps the refresh token stable.
func (a *Adapter) RefreshToken(ctx context.Context, refreshToken string) (*platform.TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", a.clientID)
	form.Set("client_secret", a.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
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

	grant := &platform.TokenGrant{AccessToken: resp.AccessToken}
	if resp.ExpiresIn > 0 {
		exp := time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
		grant.ExpiresAt = &exp
	}
	return grant, nil
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
