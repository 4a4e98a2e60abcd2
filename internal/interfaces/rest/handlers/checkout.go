package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pccbooth/payment-gateway/internal/application"
	"github.com/pccbooth/payment-gateway/internal/application/services"
	"github.com/pccbooth/payment-gateway/internal/interfaces/rest"
)

type CheckoutRequest struct {
	PromoCode   string  `json:"promoCode"`
	UserNumber  string  `json:"userNumber" validate:"required"`
	OrderAmount float64 `json:"orderAmount" validate:"required,gt=0"`
	Email       string  `json:"email" validate:"omitempty,email"`
}

type CheckoutResponse struct {
	SessionID       string     `json:"sessionId"`
	PaymentIntentID string     `json:"paymentIntentId,omitempty"`
	FinalAmount     float64    `json:"finalAmount"`
	QR              string     `json:"qr,omitempty"`
	ClientSecret    string     `json:"clientSecret,omitempty"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	ExpireSeconds   int        `json:"expireSeconds"`
	Free            bool       `json:"free,omitempty"`
	Redeemed        bool       `json:"redeemed,omitempty"`
}

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, application.NewMissingFieldsError("invalid request body"), h.logger)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		rest.WriteError(w, application.NewMissingFieldsError(err.Error()), h.logger)
		return
	}

	result, err := h.checkoutService.Checkout(r.Context(), services.CheckoutCommand{
		PromoCode:      req.PromoCode,
		UserNumber:     req.UserNumber,
		OrderAmountTHB: req.OrderAmount,
		Email:          req.Email,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.WriteJSON(w, http.StatusOK, CheckoutResponse{
		SessionID:       result.SessionID,
		PaymentIntentID: result.PaymentIntentID,
		FinalAmount:     result.FinalAmountTHB,
		QR:              result.QR,
		ClientSecret:    result.ClientSecret,
		ExpiresAt:       result.ExpiresAt,
		ExpireSeconds:   result.ExpireSeconds,
		Free:            result.Free,
		Redeemed:        result.Redeemed,
	})
}
