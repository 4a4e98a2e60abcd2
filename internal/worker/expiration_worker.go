// Package worker runs the background expiration sweep.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/pccbooth/payment-gateway/internal/application"
)

// ExpirationWorker sweeps sessions whose countdown elapsed without a
// terminal signal. The kiosk normally expires its own session via DELETE;
// the sweep catches sessions the kiosk abandoned (power loss, crashed tab).
type ExpirationWorker struct {
	repo      application.SessionRepository
	gateway   application.PaymentGateway
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewExpirationWorker(
	repo application.SessionRepository,
	gateway application.PaymentGateway,
	interval time.Duration,
	batchSize int,
	logger *slog.Logger,
) *ExpirationWorker {
	return &ExpirationWorker{
		repo:      repo,
		gateway:   gateway,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (w *ExpirationWorker) Start(ctx context.Context) {
	w.logger.Info("expiration worker started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	if err := w.sweep(ctx); err != nil {
		w.logger.Error("expiration sweep failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("expiration worker stopping")
			return
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				w.logger.Error("expiration sweep failed", "error", err)
			}
		}
	}
}

func (w *ExpirationWorker) sweep(ctx context.Context) error {
	sessions, err := w.repo.FindExpiredSessions(ctx, time.Now(), w.batchSize)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		return nil
	}

	var expired int

	for _, session := range sessions {
		if session.PaymentIntentID == nil {
			continue
		}
		if err := w.expireSession(ctx, *session.PaymentIntentID); err != nil {
			w.logger.Error("failed to expire session",
				"session_id", session.SessionID,
				"payment_intent_id", *session.PaymentIntentID,
				"error", err)
		} else {
			expired++
		}
	}

	w.logger.Info("expiration sweep complete",
		"found", len(sessions),
		"expired", expired)

	return nil
}

func (w *ExpirationWorker) expireSession(ctx context.Context, paymentIntentID string) error {
	if _, err := w.gateway.CancelIntent(ctx, paymentIntentID); err != nil {
		// The gateway cancel is best effort; local expiry applies anyway.
		w.logger.Warn("gateway cancel failed during sweep",
			"payment_intent_id", paymentIntentID,
			"error", err)
	}

	_, err := w.repo.MarkExpired(ctx, paymentIntentID, time.Now())
	return err
}
