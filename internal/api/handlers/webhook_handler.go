package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/enablehub/hub/internal/api/response"
	"github.com/enablehub/hub/internal/models"
	"github.com/enablehub/hub/internal/service"
)

// ContentSyncer processes one CMS document change event.
type ContentSyncer interface {
	Sync(ctx context.Context, doc models.ContentDocument) (service.SyncOutcome, error)
}

// WebhookHandler handles CMS content change webhooks.
type WebhookHandler struct {
	syncer ContentSyncer
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(syncer ContentSyncer) *WebhookHandler {
	return &WebhookHandler{syncer: syncer}
}

// WebhookResponse acknowledges a processed webhook delivery.
type WebhookResponse struct {
	Status string `json:"status"`
}

// HandleContentChange handles POST /v1/webhooks/content. The CMS retries on
// 5xx; the sync upsert is idempotent, so redelivery is safe. Non-tracked
// types and unpublished documents are acknowledged with 200 so the CMS does
// not retry them.
func (h *WebhookHandler) HandleContentChange(w http.ResponseWriter, r *http.Request) {
	var doc models.ContentDocument

	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		response.RespondBadRequest(w, "Invalid webhook payload")

		return
	}

	if doc.SourceID == "" {
		response.RespondBadRequest(w, "_id is required")

		return
	}

	outcome, err := h.syncer.Sync(r.Context(), doc)
	if err != nil {
		response.RespondInternalServerError(w, "Content sync failed")

		return
	}

	response.RespondJSON(w, http.StatusOK, WebhookResponse{Status: string(outcome)})
}
