package handlers

import (
	"io"
	"net/http"

	"github.com/pccbooth/payment-gateway/internal/application"
	"github.com/pccbooth/payment-gateway/internal/interfaces/rest"
)

const maxWebhookBodyBytes = 64 * 1024

type WebhookResponse struct {
	Received bool `json:"received"`
}

// Webhook handles processor event deliveries. The body must be read raw and
// verified before any decoding; a failed signature mutates nothing.
func (h *Handlers) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		rest.WriteError(w, application.NewSignatureInvalidError(err), h.logger)
		return
	}

	event, err := h.verifier.ConstructEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("webhook rejected", "error", err)
		rest.WriteError(w, application.NewSignatureInvalidError(err), h.logger)
		return
	}

	if err := h.reconcileService.HandleEvent(r.Context(), event); err != nil {
		rest.WriteError(w, application.NewInternalError(err), h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, WebhookResponse{Received: true})
}
