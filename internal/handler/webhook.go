package handler

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"

	"fastflix/internal/httputil"
	"fastflix/internal/model"
	"fastflix/internal/service"
)

// WebhookHandler receives RevenueCat subscription events.
type WebhookHandler struct {
	subscriptionService *service.SubscriptionService
	secret              string
}

func NewWebhookHandler(subscriptionService *service.SubscriptionService, secret string) *WebhookHandler {
	return &WebhookHandler{subscriptionService: subscriptionService, secret: secret}
}

// RevenueCat applies one webhook event
// POST /api/webhooks/revenuecat
func (h *WebhookHandler) RevenueCat(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r.Header.Get("Authorization")) {
		httputil.WriteUnauthorized(w, "Invalid webhook authorization")
		return
	}

	var payload model.RevenueCatWebhook
	if !decodeAndValidate(w, r, &payload) {
		return
	}

	if _, err := h.subscriptionService.ApplyEvent(r.Context(), &payload.Event); err != nil {
		log.Printf("[WebhookHandler] ApplyEvent FAILED: type=%s id=%s err=%v", payload.Event.Type, payload.Event.ID, err)
		httputil.WriteInternalError(w, "Failed to process event")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// authorized accepts the secret bare or with a "Bearer " prefix. An unset secret rejects everything.
func (h *WebhookHandler) authorized(header string) bool {
	if h.secret == "" {
		return false
	}
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		header = strings.TrimSpace(header[7:])
	}
	return subtle.ConstantTimeCompare([]byte(header), []byte(h.secret)) == 1
}
