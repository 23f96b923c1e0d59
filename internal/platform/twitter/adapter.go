// Package twitter implements the platform adapter for X/Twitter
// accounts using the v2 API with bearer-token auth.
package twitter

import (
	"bytes"
	"context"
	"encoding/base64"
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
	defaultBaseURL = "https://api.twitter.com/2"
	oauthTokenPath = "/oauth2/token"
)

// Adapter implements platform.Adapter for Twitter
type Adapter struct {
	baseURL      string
	clientID     string
	clientSecret string
	client       *http.Client
}

// NewAdapter creates a new Twitter adapter
func NewAdapter(baseURL, clientID, clientSecret string, timeout time.Duration) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout == 0 {
		timeout = 30 * time.Second
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
	return domain.PlatformTwitter
}

type tweetRequest struct {
	Text string `json:"text"`
}

type tweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

// PublishPost creates a tweet. Media attachments are not supported on
// this surface yet; text is the body plus any media URLs appended.
func (a *Adapter) PublishPost(ctx context.Context, ref platform.AccountRef, content platform.Content) (*platform.PublishResult, error) {
	text := content.Body
	for _, u := range content.MediaURLs {
		text = text + "\n" + u
	}
	if strings.TrimSpace(text) == "" {
		return nil, platform.NewError(platform.CodeContentRejected, "tweet text is empty", false)
	}

	payload, err := json.Marshal(tweetRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tweet: %w", err)
	}

	body, err := a.post(ctx, "/tweets", ref.AccessToken, payload)
	if err != nil {
		return nil, err
	}

	var resp tweetResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Data.ID == "" {
		return nil, platform.NewError(platform.CodeBadResponse, "tweet response missing id", false)
	}

	return &platform.PublishResult{ExternalPostID: resp.Data.ID}, nil
}

type tweetMetricsResponse struct {
	Data struct {
		PublicMetrics struct {
			LikeCount       int64 `json:"like_count"`
			ReplyCount      int64 `json:"reply_count"`
			RetweetCount    int64 `json:"retweet_count"`
			ImpressionCount int64 `json:"impression_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

// FetchEngagement reads public metrics for a tweet
func (a *Adapter) FetchEngagement(ctx context.Context, ref platform.AccountRef, externalPostID string, window time.Duration) (*platform.Metrics, error) {
	path := fmt.Sprintf("/tweets/%s?tweet.fields=public_metrics", url.PathEscape(externalPostID))
	body, err := a.get(ctx, path, ref.AccessToken)
	if err != nil {
		return nil, err
	}

	var resp tweetMetricsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewError(platform.CodeBadResponse, "failed to decode tweet metrics", false)
	}

	m := resp.Data.PublicMetrics
	return &platform.Metrics{
		Likes:       m.LikeCount,
		Comments:    m.ReplyCount,
		Shares:      m.RetweetCount,
		Impressions: m.ImpressionCount,
	}, nil
}

type mentionsResponse struct {
	Data []struct {
		ID             string    `json:"id"`
		Text           string    `json:"text"`
		AuthorID       string    `json:"author_id"`
		ConversationID string    `json:"conversation_id"`
		CreatedAt      time.Time `json:"created_at"`
	} `json:"data"`
}

// FetchInboundItems lists mentions of the account since the given time
func (a *Adapter) FetchInboundItems(ctx context.Context, ref platform.AccountRef, since time.Time) ([]platform.InboundItem, error) {
	path := fmt.Sprintf("/users/%s/mentions?tweet.fields=author_id,conversation_id,created_at",
		url.PathEscape(ref.ExternalAccountID))
	if !since.IsZero() {
		path += "&start_time=" + url.QueryEscape(since.UTC().Format(time.RFC3339))
	}

	body, err := a.get(ctx, path, ref.AccessToken)
	if err != nil {
		return nil, err
	}

	var resp mentionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewError(platform.CodeBadResponse, "failed to decode mentions", false)
	}

	items := make([]platform.InboundItem, 0, len(resp.Data))
	for _, t := range resp.Data {
		items = append(items, platform.InboundItem{
			PlatformItemID:   t.ID,
			Kind:             domain.InboxItemMention,
			AuthorExternalID: t.AuthorID,
			Content:          t.Text,
			ThreadID:         t.ConversationID,
			Timestamp:        t.CreatedAt,
		})
	}
	return items, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RefreshToken exchanges a refresh token. Twitter rotates the refresh
// token on every exchange, so the grant always carries a new one.
func (a *Adapter) RefreshToken(ctx context.Context, refreshToken string) (*platform.TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+oauthTokenPath,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(a.clientID + ":" + a.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
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

func (a *Adapter) post(ctx context.Context, path, token string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return a.do(req)
}

func (a *Adapter) get(ctx context.Context, path, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
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
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Detail != "" {
			return nil, platform.FromHTTPStatus(resp.StatusCode, apiErr.Detail)
		}
		return nil, platform.FromHTTPStatus(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}
