// Package whatsapp implements the platform adapter for WhatsApp
// Business accounts on the Cloud API. The adapter also exposes the
// direct send operations used by the inbox reply path; the shared
// Adapter contract covers publishing and token handling only as far
// as the Cloud API allows.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/crossply/crossply/internal/domain"
	"github.com/crossply/crossply/internal/platform"
)

const defaultBaseURL = "https://graph.facebook.com/v19.0"

// Adapter implements platform.Adapter for WhatsApp
type Adapter struct {
	baseURL       string
	phoneNumberID string
	client        *http.Client
}

// NewAdapter creates a new WhatsApp adapter bound to a business phone
// number
func NewAdapter(baseURL, phoneNumberID string, timeout time.Duration) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Adapter{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		phoneNumberID: phoneNumberID,
		client:        &http.Client{Timeout: timeout},
	}
}

// Platform returns the platform identifier
func (a *Adapter) Platform() domain.Platform {
	return domain.PlatformWhatsApp
}

// PublishPost is not supported: WhatsApp has no feed. Broadcast-style
// content goes out as template sends per conversation.
func (a *Adapter) PublishPost(ctx context.Context, ref platform.AccountRef, content platform.Content) (*platform.PublishResult, error) {
	return nil, platform.NewError(platform.CodeContentRejected, "whatsapp does not support feed publishing", false)
}

// FetchEngagement is not supported: messages have delivery receipts,
// not engagement metrics, and receipts arrive over the webhook.
func (a *Adapter) FetchEngagement(ctx context.Context, ref platform.AccountRef, externalPostID string, window time.Duration) (*platform.Metrics, error) {
	return nil, platform.NewError(platform.CodeContentRejected, "whatsapp has no engagement metrics", false)
}

// FetchInboundItems is not supported: inbound messages arrive over the
// webhook only.
func (a *Adapter) FetchInboundItems(ctx context.Context, ref platform.AccountRef, since time.Time) ([]platform.InboundItem, error) {
	return nil, platform.NewError(platform.CodeContentRejected, "whatsapp inbound arrives via webhook", false)
}

// RefreshToken is not supported: Cloud API system-user tokens are
// long-lived and rotated out of band.
func (a *Adapter) RefreshToken(ctx context.Context, refreshToken string) (*platform.TokenGrant, error) {
	return nil, platform.NewError(platform.CodeAuthExpired, "whatsapp tokens cannot be refreshed", false)
}

type sendRequest struct {
	MessagingProduct string          `json:"messaging_product"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Text             *textPayload    `json:"text,omitempty"`
	Template         *templatePayload `json:"template,omitempty"`
}

type textPayload struct {
	Body string `json:"body"`
}

type templatePayload struct {
	Name     string           `json:"name"`
	Language templateLanguage `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type graphErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendText sends a free-form text message to a customer. Callers must
// check the service window before using this; the API rejects sends
// outside it with a policy error either way.
func (a *Adapter) SendText(ctx context.Context, accessToken, recipient, body string) (string, error) {
	return a.send(ctx, accessToken, sendRequest{
		MessagingProduct: "whatsapp",
		To:               recipient,
		Type:             "text",
		Text:             &textPayload{Body: body},
	})
}

// SendTemplate sends a pre-approved template message. Templates are
// the only messages allowed outside the service window.
func (a *Adapter) SendTemplate(ctx context.Context, accessToken, recipient, template, languageCode string, params []string) (string, error) {
	req := sendRequest{
		MessagingProduct: "whatsapp",
		To:               recipient,
		Type:             "template",
		Template: &templatePayload{
			Name:     template,
			Language: templateLanguage{Code: languageCode},
		},
	}
	if len(params) > 0 {
		comp := templateComponent{Type: "body"}
		for _, p := range params {
			comp.Parameters = append(comp.Parameters, templateParameter{Type: "text", Text: p})
		}
		req.Template.Components = []templateComponent{comp}
	}
	return a.send(ctx, accessToken, req)
}

func (a *Adapter) send(ctx context.Context, accessToken string, payload sendRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	u := fmt.Sprintf("%s/%s/messages", a.baseURL, a.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	respBody, err := a.do(req)
	if err != nil {
		return "", err
	}

	var resp sendResponse
	if err := json.Unmarshal(respBody, &resp); err != nil || len(resp.Messages) == 0 {
		return "", platform.NewError(platform.CodeBadResponse, "send response missing message id", false)
	}
	return resp.Messages[0].ID, nil
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
		var graphErr graphErrorResponse
		if json.Unmarshal(body, &graphErr) == nil && graphErr.Error.Code != 0 {
			return nil, platform.FromGraphCode(graphErr.Error.Code, graphErr.Error.Message)
		}
		return nil, platform.FromHTTPStatus(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}
