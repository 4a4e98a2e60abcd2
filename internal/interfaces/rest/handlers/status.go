package handlers

import (
	"net/http"

	"github.com/pccbooth/payment-gateway/internal/application"
	"github.com/pccbooth/payment-gateway/internal/interfaces/rest"
)

type PaymentStatusResponse struct {
	Status string `json:"status"`
}

type ExpireResponse struct {
	Status  string `json:"status"`
	Expired bool   `json:"expired"`
}

// PaymentStatus reports the gateway's current view of an intent. The kiosk
// polls this while the QR code is on screen.
func (h *Handlers) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	paymentIntentID := r.PathValue("paymentIntentId")
	if paymentIntentID == "" {
		rest.WriteError(w, application.NewMissingFieldsError("paymentIntentId is required"), h.logger)
		return
	}

	status, err := h.reconcileService.PollStatus(r.Context(), paymentIntentID)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, PaymentStatusResponse{Status: status})
}

// ExpireSession cancels the session when the kiosk countdown runs out.
func (h *Handlers) ExpireSession(w http.ResponseWriter, r *http.Request) {
	paymentIntentID := r.PathValue("paymentIntentId")
	if paymentIntentID == "" {
		rest.WriteError(w, application.NewMissingFieldsError("paymentIntentId is required"), h.logger)
		return
	}

	session, err := h.expireService.Expire(r.Context(), paymentIntentID)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, ExpireResponse{
		Status:  string(session.Status),
		Expired: session.Expired,
	})
}
