package services_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/pccbooth/payment-gateway/internal/application"
	"github.com/pccbooth/payment-gateway/internal/application/services"
	"github.com/pccbooth/payment-gateway/internal/config"
	"github.com/pccbooth/payment-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testCheckoutConfig() config.CheckoutConfig {
	return config.CheckoutConfig{
		SessionTTL:       120 * time.Second,
		Currency:         "thb",
		ZeroAmountBypass: true,
	}
}

type checkoutFixture struct {
	repo    *services.MockSessionRepository
	gateway *services.MockPaymentGateway
	promo   *services.MockPromoClient
	users   *services.MockUserDirectory
	service *services.CheckoutService
}

func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		repo:    services.NewMockSessionRepository(),
		gateway: &services.MockPaymentGateway{},
		promo:   &services.MockPromoClient{},
		users:   &services.MockUserDirectory{},
	}
	f.service = services.NewCheckoutService(
		f.repo, f.gateway, f.promo, f.users, testCheckoutConfig(), testLogger())
	return f
}

func TestCheckout_NoPromo(t *testing.T) {
	f := newCheckoutFixture()

	result, err := f.service.Checkout(context.Background(), services.CheckoutCommand{
		UserNumber:     "1234",
		OrderAmountTHB: 150,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, "pi_mock", result.PaymentIntentID)
	assert.InDelta(t, 150.0, result.FinalAmountTHB, 0.0001)
	assert.NotEmpty(t, result.QR)
	assert.NotEmpty(t, result.ClientSecret)
	assert.Equal(t, 120, result.ExpireSeconds)
	assert.False(t, result.Free)

	session := f.repo.Get(result.SessionID)
	require.NotNil(t, session)
	assert.Equal(t, domain.StatusCreated, session.Status)
	assert.Equal(t, int64(15000), session.OriginalSatang)
	assert.Equal(t, int64(15000), session.FinalSatang)
	assert.Nil(t, session.PromoCode)
	require.NotNil(t, session.ExpiresAt)

	require.Len(t, f.gateway.CreateCalls, 1)
	req := f.gateway.CreateCalls[0]
	assert.Equal(t, int64(15000), req.AmountSatang)
	assert.Equal(t, "thb", req.Currency)
	assert.Equal(t, result.SessionID, req.Metadata["session_id"])
	assert.Equal(t, "1234", req.Metadata["user_number"])
}

func TestCheckout_WithPromo(t *testing.T) {
	f := newCheckoutFixture()
	f.promo.ValidateFn = func(ctx context.Context, code, userNumber string, orderAmountTHB float64) (*application.PromoValidation, error) {
		assert.Equal(t, "HALF", code)
		assert.Equal(t, "1234", userNumber)
		assert.InDelta(t, 100.0, orderAmountTHB, 0.0001)
		return &application.PromoValidation{Ok: true, Type: "percent", Value: 50}, nil
	}

	result, err := f.service.Checkout(context.Background(), services.CheckoutCommand{
		PromoCode:      "HALF",
		UserNumber:     "1234",
		OrderAmountTHB: 100,
	})
	require.NoError(t, err)

	assert.InDelta(t, 50.0, result.FinalAmountTHB, 0.0001)

	session := f.repo.Get(result.SessionID)
	require.NotNil(t, session)
	assert.Equal(t, int64(10000), session.OriginalSatang)
	assert.Equal(t, int64(5000), session.DiscountSatang)
	assert.Equal(t, int64(5000), session.FinalSatang)
	require.NotNil(t, session.PromoCode)
	assert.Equal(t, "HALF", *session.PromoCode)

	// Validation never redeems.
	assert.Equal(t, 0, f.promo.RedeemCalls)
}

func TestCheckout_InvalidPromo_NoSideEffects(t *testing.T) {
	f := newCheckoutFixture()
	f.promo.ValidateFn = func(ctx context.Context, code, userNumber string, orderAmountTHB float64) (*application.PromoValidation, error) {
		return &application.PromoValidation{Ok: false, Message: "code expired"}, nil
	}

	_, err := f.service.Checkout(context.Background(), services.CheckoutCommand{
		PromoCode:      "OLD",
		UserNumber:     "1234",
		OrderAmountTHB: 100,
	})

	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeInvalidCoupon, svcErr.Code)
	assert.Equal(t, "code expired", svcErr.Message)

	assert.Empty(t, f.gateway.CreateCalls)
	assert.Equal(t, 0, f.promo.RedeemCalls)
}

func TestCheckout_PromoServiceUnreachable(t *testing.T) {
	f := newCheckoutFixture()
	f.promo.ValidateFn = func(ctx context.Context, code, userNumber string, orderAmountTHB float64) (*application.PromoValidation, error) {
		return nil, errors.New("connection refused")
	}

	_, err := f.service.Checkout(context.Background(), services.CheckoutCommand{
		PromoCode:      "HALF",
		UserNumber:     "1234",
		OrderAmountTHB: 100,
	})

	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeInvalidCoupon, svcErr.Code)
	assert.Empty(t, f.gateway.CreateCalls)
}

func TestCheckout_MissingFields(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.service.Checkout(context.Background(), services.CheckoutCommand{
		OrderAmountTHB: 100,
	})
	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeMissingFields, svcErr.Code)

	_, err = f.service.Checkout(context.Background(), services.CheckoutCommand{
		UserNumber: "1234",
	})
	svcErr, ok = application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodeMissingFields, svcErr.Code)
}

func TestCheckout_GatewayFailure_NoSessionRow(t *testing.T) {
	f := newCheckoutFixture()
	f.gateway.CreateIntentFn = func(ctx context.Context, req application.CreateIntentRequest) (*application.PaymentIntent, error) {
		return nil, errors.New("processor down")
	}

	var created int
	f.repo.CreateFn = func(ctx context.Context, session *domain.PaySession) error {
		created++
		return nil
	}

	_, err := f.service.Checkout(context.Background(), services.CheckoutCommand{
		UserNumber:     "1234",
		OrderAmountTHB: 100,
	})

	svcErr, ok := application.IsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, application.ErrCodePayCreateFailed, svcErr.Code)
	assert.Equal(t, 0, created)
}

func TestCheckout_FullDiscount_BypassesGateway(t *testing.T) {
	f := newCheckoutFixture()
	f.promo.ValidateFn = func(ctx context.Context, code, userNumber string, orderAmountTHB float64) (*application.PromoValidation, error) {
		return &application.PromoValidation{Ok: true, Type: "percent", Value: 100}, nil
	}

	result, err := f.service.Checkout(context.Background(), services.CheckoutCommand{
		PromoCode:      "FREE",
		UserNumber:     "1234",
		OrderAmountTHB: 100,
	})
	require.NoError(t, err)

	assert.True(t, result.Free)
	assert.True(t, result.Redeemed)
	assert.Empty(t, result.PaymentIntentID)
	assert.Zero(t, result.FinalAmountTHB)
	assert.Empty(t, f.gateway.CreateCalls)

	session := f.repo.Get(result.SessionID)
	require.NotNil(t, session)
	assert.Equal(t, domain.StatusSucceeded, session.Status)
	assert.Nil(t, session.PaymentIntentID)
	assert.True(t, session.Redeemed)
	require.NotNil(t, session.RedeemAt)

	// Redemption happened inline, exactly once.
	assert.Equal(t, 1, f.promo.RedeemCalls)
}

func TestCheckout_ReceiptEmailFallback(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.service.Checkout(context.Background(), services.CheckoutCommand{
		UserNumber:     "5678",
		OrderAmountTHB: 100,
	})
	require.NoError(t, err)

	require.Len(t, f.gateway.CreateCalls, 1)
	assert.Equal(t, "no-reply+5678@pcc.local", f.gateway.CreateCalls[0].ReceiptEmail)
}

func TestCheckout_ReceiptEmailFromDirectory(t *testing.T) {
	f := newCheckoutFixture()
	f.users.EmailByNumberFn = func(ctx context.Context, userNumber string) (string, error) {
		return "customer@example.com", nil
	}

	_, err := f.service.Checkout(context.Background(), services.CheckoutCommand{
		UserNumber:     "5678",
		OrderAmountTHB: 100,
	})
	require.NoError(t, err)

	require.Len(t, f.gateway.CreateCalls, 1)
	assert.Equal(t, "customer@example.com", f.gateway.CreateCalls[0].ReceiptEmail)
}
