package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pccbooth/payment-gateway/internal/application"
	"github.com/pccbooth/payment-gateway/internal/domain"
)

// ReconcileService converges the poll and webhook paths on a single status
// transition function. Both paths may run concurrently for the same session;
// correctness rests on the storage-layer guards, not on ordering.
type ReconcileService struct {
	repo    application.SessionRepository
	gateway application.PaymentGateway
	promo   application.PromoClient
	events  application.WebhookEventStore
	logger  *slog.Logger
}

func NewReconcileService(
	repo application.SessionRepository,
	gateway application.PaymentGateway,
	promo application.PromoClient,
	events application.WebhookEventStore,
	logger *slog.Logger,
) *ReconcileService {
	return &ReconcileService{
		repo:    repo,
		gateway: gateway,
		promo:   promo,
		events:  events,
		logger:  logger,
	}
}

// PollStatus asks the gateway for the current intent status and mirrors it
// onto the local session. The gateway is the source of truth for status; the
// local write is a side effect and its failure does not fail the poll.
func (s *ReconcileService) PollStatus(ctx context.Context, paymentIntentID string) (string, error) {
	intent, err := s.gateway.RetrieveIntent(ctx, paymentIntentID)
	if err != nil {
		return "", application.NewPayStatusFailedError(err)
	}

	if err := s.applyStatus(ctx, paymentIntentID, domain.MapIntentStatus(intent.Status), "poll"); err != nil {
		s.logger.Warn("status mirror failed on poll",
			"payment_intent_id", paymentIntentID,
			"status", intent.Status,
			"error", err)
	}

	return intent.Status, nil
}

// HandleEvent processes a verified webhook event. Unhandled event types and
// duplicate deliveries are accepted silently. The event is marked processed
// only after the status apply succeeds: a transient failure must leave the
// event ID unclaimed so the processor's retry of that same ID is reprocessed
// rather than absorbed. Reprocessing a duplicate is safe because the status
// and redemption writes are guarded at the storage layer.
func (s *ReconcileService) HandleEvent(ctx context.Context, event *application.WebhookEvent) error {
	if event.Intent == nil {
		s.markProcessed(ctx, event)
		s.logger.Info("unhandled webhook event type", "event_id", event.ID, "type", event.Type)
		return nil
	}

	err := s.applyStatus(ctx, event.Intent.ID, domain.MapIntentStatus(event.Intent.Status), "webhook")
	if errors.Is(err, application.ErrSessionNotFound) {
		// Intents can exist at the processor without a local session, e.g.
		// created by another environment sharing the account.
		s.markProcessed(ctx, event)
		s.logger.Warn("webhook for unknown payment intent",
			"event_id", event.ID,
			"payment_intent_id", event.Intent.ID)
		return nil
	}
	if err != nil {
		return err
	}

	s.markProcessed(ctx, event)
	return nil
}

// markProcessed records the event ID best-effort. Dedup store trouble is not
// fatal: the storage guards keep reprocessing idempotent on their own.
func (s *ReconcileService) markProcessed(ctx context.Context, event *application.WebhookEvent) {
	first, err := s.events.MarkProcessed(ctx, event.ID, event.Type)
	if err != nil {
		s.logger.Error("webhook event dedup failed", "event_id", event.ID, "error", err)
		return
	}
	if !first {
		s.logger.Info("duplicate webhook delivery absorbed", "event_id", event.ID, "type", event.Type)
	}
}

// applyStatus is the single transition function shared by both paths.
// Status writes are guarded at the repository: a terminal session absorbs
// any further signal. The redemption side effect fires only for the caller
// that wins the atomic claim on the first transition into succeeded.
func (s *ReconcileService) applyStatus(ctx context.Context, paymentIntentID string, status domain.SessionStatus, source string) error {
	session, changed, err := s.repo.UpdateStatus(ctx, paymentIntentID, status)
	if err != nil {
		return err
	}

	if !changed {
		if session.IsTerminal() && session.Status != status {
			s.logger.Warn("late status signal absorbed by terminal session",
				"payment_intent_id", paymentIntentID,
				"session_status", session.Status,
				"signal", status,
				"source", source)
		}
		return nil
	}

	s.logger.Info("session status updated",
		"payment_intent_id", paymentIntentID,
		"status", status,
		"source", source)

	if status != domain.StatusSucceeded {
		return nil
	}

	claimed, err := s.repo.ClaimRedemption(ctx, session.SessionID, time.Now())
	if err != nil {
		return err
	}
	if !claimed {
		s.logger.Info("redemption already claimed",
			"session_id", session.SessionID,
			"source", source)
		return nil
	}

	outcome := redeemSessionPromo(ctx, s.repo, s.promo, session, s.logger)
	s.logger.Info("session redemption recorded",
		"session_id", session.SessionID,
		"redeemed", outcome.Ok,
		"source", source)
	return nil
}

// redeemSessionPromo performs the promo redemption for a session whose
// redemption claim was just won, and records the outcome. A failed redeem
// call never rolls back the payment: the money is already captured, so the
// outcome is recorded as-is and the session stays succeeded.
func redeemSessionPromo(
	ctx context.Context,
	repo application.SessionRepository,
	promo application.PromoClient,
	session *domain.PaySession,
	logger *slog.Logger,
) domain.RedeemOutcome {
	outcome := domain.RedeemOutcome{Ok: false, Message: "NO_PROMO_TO_REDEEM"}

	if session.PromoCode != nil && *session.PromoCode != "" {
		result, err := promo.Redeem(ctx, *session.PromoCode, session.UserNumber,
			domain.THBFromSatang(session.OriginalSatang))
		if err != nil {
			outcome = domain.RedeemOutcome{Ok: false, Message: err.Error()}
		} else {
			outcome = *result
		}
	}

	if err := repo.RecordRedemption(ctx, session.SessionID, outcome); err != nil {
		logger.Error("failed to record redemption outcome",
			"session_id", session.SessionID,
			"error", err)
	}
	return outcome
}
