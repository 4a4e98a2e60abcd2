// Package handlers wires the HTTP surface to the application services.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"
	"github.com/pccbooth/payment-gateway/internal/application"
	"github.com/pccbooth/payment-gateway/internal/application/services"
	"github.com/pccbooth/payment-gateway/internal/domain"
)

type CheckoutRunner interface {
	Checkout(ctx context.Context, cmd services.CheckoutCommand) (*services.CheckoutResult, error)
}

type StatusReconciler interface {
	PollStatus(ctx context.Context, paymentIntentID string) (string, error)
	HandleEvent(ctx context.Context, event *application.WebhookEvent) error
}

type SessionExpirer interface {
	Expire(ctx context.Context, paymentIntentID string) (*domain.PaySession, error)
}

type FeedQuerier interface {
	Recent(ctx context.Context, days, limit int) (*services.SessionsFeed, error)
}

type Handlers struct {
	checkoutService  CheckoutRunner
	reconcileService StatusReconciler
	expireService    SessionExpirer
	queryService     FeedQuerier
	verifier         application.WebhookVerifier
	validate         *validator.Validate
	logger           *slog.Logger
}

func NewHandlers(
	checkoutService CheckoutRunner,
	reconcileService StatusReconciler,
	expireService SessionExpirer,
	queryService FeedQuerier,
	verifier application.WebhookVerifier,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		checkoutService:  checkoutService,
		reconcileService: reconcileService,
		expireService:    expireService,
		queryService:     queryService,
		verifier:         verifier,
		validate:         validator.New(),
		logger:           logger,
	}
}

func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /checkout", h.Checkout)
	mux.HandleFunc("GET /payment-status/{paymentIntentId}", h.PaymentStatus)
	mux.HandleFunc("DELETE /payment-status/{paymentIntentId}", h.ExpireSession)
	mux.HandleFunc("POST /webhook", h.Webhook)
	mux.HandleFunc("GET /paysessions", h.PaySessions)
}
