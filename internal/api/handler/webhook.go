package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crossply/crossply/internal/api/middleware"
	"github.com/crossply/crossply/internal/api/response"
	"github.com/crossply/crossply/internal/domain"
	"github.com/crossply/crossply/internal/service"
)

// WebhookHandler receives platform webhook deliveries. Each workspace
// exposes one webhook URL per platform; deliveries are keyed to a
// connected account by its external ID.
type WebhookHandler struct {
	ingestService   *service.IngestService
	whatsappService *service.WhatsAppService
	verifyToken     string
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(ingestService *service.IngestService, whatsappService *service.WhatsAppService, verifyToken string) *WebhookHandler {
	return &WebhookHandler{
		ingestService:   ingestService,
		whatsappService: whatsappService,
		verifyToken:     verifyToken,
	}
}

// Verify answers the subscription handshake. The platform sends its
// verify token and expects the challenge echoed back in plain text.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || q.Get("hub.verify_token") != h.verifyToken {
		response.Forbidden(w, "verification failed")
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(q.Get("hub.challenge")))
}

type webhookItem struct {
	PlatformItemID   string               `json:"platform_item_id" validate:"required"`
	Kind             domain.InboxItemKind `json:"kind" validate:"required,oneof=comment mention message"`
	AuthorExternalID string               `json:"author_external_id" validate:"required"`
	AuthorUsername   string               `json:"author_username"`
	Content          string               `json:"content"`
	PostTargetID     *uuid.UUID           `json:"post_target_id,omitempty"`
	ThreadID         string               `json:"thread_id,omitempty"`
	Timestamp        time.Time            `json:"timestamp" validate:"required"`
}

type webhookDelivery struct {
	ExternalAccountID string        `json:"external_account_id" validate:"required"`
	Items             []webhookItem `json:"items" validate:"required,min=1,dive"`
}

// Ingest accepts a batch of inbound items for one connected account.
// Redelivered items are acknowledged without side effects, so the
// platform can retry deliveries freely.
func (h *WebhookHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	workspaceID, ok := middleware.GetWorkspaceID(r.Context())
	if !ok {
		response.BadRequest(w, "missing workspace ID")
		return
	}

	p := domain.Platform(chi.URLParam(r, "platform"))
	if !p.Valid() {
		response.NotFound(w, "unknown platform")
		return
	}
	if p == domain.PlatformWhatsApp {
		h.ingestWhatsApp(w, r, workspaceID)
		return
	}

	var delivery webhookDelivery
	if err := json.NewDecoder(r.Body).Decode(&delivery); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(delivery); err != nil {
		response.BadRequest(w, validationErrors(err))
		return
	}

	account, err := h.ingestService.ResolveAccount(r.Context(), workspaceID, p, delivery.ExternalAccountID)
	if err != nil {
		writeError(w, err)
		return
	}

	ingested := 0
	for _, item := range delivery.Items {
		env := domain.InboundEnvelope{
			Platform:         p,
			SocialAccountID:  account.ID,
			PlatformItemID:   item.PlatformItemID,
			Kind:             item.Kind,
			AuthorExternalID: item.AuthorExternalID,
			AuthorUsername:   item.AuthorUsername,
			Content:          item.Content,
			PostTargetID:     item.PostTargetID,
			ThreadID:         item.ThreadID,
			Timestamp:        item.Timestamp,
		}
		_, inserted, err := h.ingestService.Ingest(r.Context(), workspaceID, env)
		if err != nil {
			log.Error().Err(err).
				Str("platform", string(p)).
				Str("platform_item_id", item.PlatformItemID).
				Msg("failed to ingest webhook item")
			response.InternalError(w, "ingestion failed")
			return
		}
		if inserted {
			ingested++
		}
	}

	response.OK(w, map[string]any{
		"received": len(delivery.Items),
		"ingested": ingested,
	})
}

type whatsappWebhookMessage struct {
	ID        string    `json:"id" validate:"required"`
	From      string    `json:"from" validate:"required"`
	Name      string    `json:"name"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

type whatsappWebhookDelivery struct {
	ExternalAccountID string                   `json:"external_account_id" validate:"required"`
	Messages          []whatsappWebhookMessage `json:"messages" validate:"required,min=1,dive"`
}

func (h *WebhookHandler) ingestWhatsApp(w http.ResponseWriter, r *http.Request, workspaceID uuid.UUID) {
	var delivery whatsappWebhookDelivery
	if err := json.NewDecoder(r.Body).Decode(&delivery); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(delivery); err != nil {
		response.BadRequest(w, validationErrors(err))
		return
	}

	account, err := h.ingestService.ResolveAccount(r.Context(), workspaceID, domain.PlatformWhatsApp, delivery.ExternalAccountID)
	if err != nil {
		writeError(w, err)
		return
	}

	ingested := 0
	for _, msg := range delivery.Messages {
		in := service.WhatsAppInbound{
			SocialAccountID:   account.ID,
			PlatformMessageID: msg.ID,
			CustomerPhone:     msg.From,
			CustomerName:      msg.Name,
			Body:              msg.Body,
			SentAt:            msg.Timestamp,
		}
		_, inserted, err := h.whatsappService.IngestMessage(r.Context(), workspaceID, in)
		if err != nil {
			log.Error().Err(err).
				Str("platform_message_id", msg.ID).
				Msg("failed to ingest whatsapp message")
			response.InternalError(w, "ingestion failed")
			return
		}
		if inserted {
			ingested++
		}
	}

	response.OK(w, map[string]any{
		"received": len(delivery.Messages),
		"ingested": ingested,
	})
}
