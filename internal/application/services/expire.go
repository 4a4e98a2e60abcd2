package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pccbooth/payment-gateway/internal/application"
	"github.com/pccbooth/payment-gateway/internal/domain"
)

// ExpireService force-cancels a session whose countdown elapsed. The gateway
// cancel is best effort; the local write always applies because local TTL is
// authoritative for the booth flow.
type ExpireService struct {
	repo    application.SessionRepository
	gateway application.PaymentGateway
	logger  *slog.Logger
}

func NewExpireService(
	repo application.SessionRepository,
	gateway application.PaymentGateway,
	logger *slog.Logger,
) *ExpireService {
	return &ExpireService{
		repo:    repo,
		gateway: gateway,
		logger:  logger,
	}
}

func (s *ExpireService) Expire(ctx context.Context, paymentIntentID string) (*domain.PaySession, error) {
	session, err := s.repo.FindByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		if errors.Is(err, application.ErrSessionNotFound) {
			return nil, application.NewSessionNotFoundError(paymentIntentID)
		}
		return nil, application.NewPayExpireFailedError(err)
	}

	if session.IsTerminal() {
		return session, nil
	}

	if _, err := s.gateway.CancelIntent(ctx, paymentIntentID); err != nil {
		// The intent may already be terminal at the gateway, or the gateway
		// may be unreachable. Either way the local cancellation applies.
		s.logger.Warn("gateway cancel failed, applying local cancellation",
			"payment_intent_id", paymentIntentID,
			"error", err)
	}

	updated, err := s.repo.MarkExpired(ctx, paymentIntentID, time.Now())
	if err != nil {
		return nil, application.NewPayExpireFailedError(err)
	}

	s.logger.Info("session expired",
		"session_id", updated.SessionID,
		"payment_intent_id", paymentIntentID)

	return updated, nil
}
