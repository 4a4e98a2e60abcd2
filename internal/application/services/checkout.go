package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pccbooth/payment-gateway/internal/application"
	"github.com/pccbooth/payment-gateway/internal/config"
	"github.com/pccbooth/payment-gateway/internal/domain"
)

// CheckoutService runs a single checkout pass: promo validation, discount
// computation, intent creation and session persistence.
type CheckoutService struct {
	repo    application.SessionRepository
	gateway application.PaymentGateway
	promo   application.PromoClient
	users   application.UserDirectory
	cfg     config.CheckoutConfig
	logger  *slog.Logger
}

func NewCheckoutService(
	repo application.SessionRepository,
	gateway application.PaymentGateway,
	promo application.PromoClient,
	users application.UserDirectory,
	cfg config.CheckoutConfig,
	logger *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		repo:    repo,
		gateway: gateway,
		promo:   promo,
		users:   users,
		cfg:     cfg,
		logger:  logger,
	}
}

func (s *CheckoutService) Checkout(ctx context.Context, cmd CheckoutCommand) (*CheckoutResult, error) {
	if cmd.UserNumber == "" {
		return nil, application.NewMissingFieldsError("userNumber is required")
	}
	if cmd.OrderAmountTHB <= 0 {
		return nil, application.NewMissingFieldsError("orderAmount must be greater than zero")
	}

	originalSatang := domain.SatangFromTHB(cmd.OrderAmountTHB)
	email := s.resolveEmail(ctx, cmd)

	var quote PromoQuote
	var promoCode *string
	if cmd.PromoCode != "" {
		validation, err := s.promo.Validate(ctx, cmd.PromoCode, cmd.UserNumber, cmd.OrderAmountTHB)
		if err != nil {
			s.logger.Warn("promo validation unreachable", "code", cmd.PromoCode, "error", err)
			return nil, application.NewInvalidCouponError("")
		}
		if !validation.Ok {
			return nil, application.NewInvalidCouponError(validation.Message)
		}
		quote = QuoteFromValidation(originalSatang, validation)
		promoCode = &cmd.PromoCode
	}

	session, err := domain.NewPaySession(
		uuid.New().String(),
		cmd.UserNumber,
		promoCode,
		originalSatang,
		quote.DiscountSatang,
	)
	if err != nil {
		return nil, application.NewMissingFieldsError(err.Error())
	}

	if session.FinalSatang == 0 && s.cfg.ZeroAmountBypass {
		return s.checkoutFree(ctx, session)
	}

	expiresAt := time.Now().Add(s.cfg.SessionTTL)

	intent, err := s.gateway.CreateIntent(ctx, application.CreateIntentRequest{
		AmountSatang: session.FinalSatang,
		Currency:     s.cfg.Currency,
		ReceiptEmail: email,
		Metadata: map[string]string{
			"session_id":      session.SessionID,
			"user_number":     session.UserNumber,
			"promo_code":      cmd.PromoCode,
			"original_satang": fmt.Sprintf("%d", session.OriginalSatang),
			"discount_satang": fmt.Sprintf("%d", session.DiscountSatang),
			"final_satang":    fmt.Sprintf("%d", session.FinalSatang),
			"expires_at":      expiresAt.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		// No session row may exist without a matching intent. The inverse
		// is tolerable: an orphaned intent simply expires at the gateway.
		return nil, application.NewPayCreateFailedError(err)
	}

	session.Attach(intent.ID, expiresAt)

	if err := s.repo.Create(ctx, session); err != nil {
		s.logger.Error("session persist failed after intent creation",
			"session_id", session.SessionID,
			"payment_intent_id", intent.ID,
			"error", err)
		return nil, application.NewInternalError(err)
	}

	s.logger.Info("checkout session created",
		"session_id", session.SessionID,
		"payment_intent_id", intent.ID,
		"final_satang", session.FinalSatang,
		"promo_code", cmd.PromoCode)

	return &CheckoutResult{
		SessionID:       session.SessionID,
		PaymentIntentID: intent.ID,
		FinalAmountTHB:  domain.THBFromSatang(session.FinalSatang),
		QR:              intent.QRImageURL,
		ClientSecret:    intent.ClientSecret,
		ExpiresAt:       &expiresAt,
		ExpireSeconds:   int(s.cfg.SessionTTL.Seconds()),
	}, nil
}

// checkoutFree handles orders fully covered by a promo. There is nothing for
// the gateway to collect, so the session is born succeeded and the promo is
// redeemed inline (no webhook will ever arrive for it).
func (s *CheckoutService) checkoutFree(ctx context.Context, session *domain.PaySession) (*CheckoutResult, error) {
	if _, err := session.ApplyStatus(domain.StatusSucceeded); err != nil {
		return nil, application.NewInternalError(err)
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, application.NewInternalError(err)
	}

	outcome := domain.RedeemOutcome{Ok: false, Message: "NO_PROMO_TO_REDEEM"}
	claimed, err := s.repo.ClaimRedemption(ctx, session.SessionID, time.Now())
	if err != nil {
		s.logger.Error("redemption claim failed for free session",
			"session_id", session.SessionID, "error", err)
	} else if claimed {
		outcome = redeemSessionPromo(ctx, s.repo, s.promo, session, s.logger)
	}

	s.logger.Info("free checkout session succeeded",
		"session_id", session.SessionID,
		"redeemed", outcome.Ok)

	return &CheckoutResult{
		SessionID:      session.SessionID,
		FinalAmountTHB: 0,
		ExpireSeconds:  0,
		Free:           true,
		Redeemed:       outcome.Ok,
	}, nil
}

func (s *CheckoutService) resolveEmail(ctx context.Context, cmd CheckoutCommand) string {
	if cmd.Email != "" {
		return cmd.Email
	}
	if email, err := s.users.EmailByNumber(ctx, cmd.UserNumber); err == nil && email != "" {
		return email
	}
	// Receipt delivery must never block a checkout.
	return fmt.Sprintf("no-reply+%s@pcc.local", cmd.UserNumber)
}
