package application

import (
	"context"
	"time"

	"github.com/pccbooth/payment-gateway/internal/domain"
)

// PaymentGateway is the port for the external payment processor.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*PaymentIntent, error)
	RetrieveIntent(ctx context.Context, id string) (*PaymentIntent, error)
	// CancelIntent tolerates intents already in a terminal state at the
	// processor; that case is a no-op, not an error.
	CancelIntent(ctx context.Context, id string) (*PaymentIntent, error)
}

// WebhookVerifier checks a webhook signature against the exact raw request
// bytes, before any JSON decoding happens.
type WebhookVerifier interface {
	ConstructEvent(payload []byte, sigHeader string) (*WebhookEvent, error)
}

// PromoClient is the port for the booth API's promo endpoints. Validation is
// a black box: the booth API decides whether a code is usable and may return
// authoritative pricing.
type PromoClient interface {
	Validate(ctx context.Context, code, userNumber string, orderAmountTHB float64) (*PromoValidation, error)
	Redeem(ctx context.Context, code, userNumber string, orderAmountTHB float64) (*domain.RedeemOutcome, error)
}

// UserDirectory resolves a customer's receipt email from their number.
type UserDirectory interface {
	EmailByNumber(ctx context.Context, userNumber string) (string, error)
}

// SessionRepository is the port for persistence. Status and redemption
// writes are guarded at the storage layer: UpdateStatus never moves a
// session out of a terminal state and ClaimRedemption is a single atomic
// conditional update, which is what closes the poll/webhook race.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.PaySession) error
	FindBySessionID(ctx context.Context, sessionID string) (*domain.PaySession, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.PaySession, error)
	UpdateStatus(ctx context.Context, paymentIntentID string, status domain.SessionStatus) (*domain.PaySession, bool, error)
	ClaimRedemption(ctx context.Context, sessionID string, at time.Time) (bool, error)
	RecordRedemption(ctx context.Context, sessionID string, outcome domain.RedeemOutcome) error
	MarkExpired(ctx context.Context, paymentIntentID string, at time.Time) (*domain.PaySession, error)
	FindExpiredSessions(ctx context.Context, now time.Time, limit int) ([]*domain.PaySession, error)
	ListRecent(ctx context.Context, limit int) ([]*domain.PaySession, error)
	RevenueByDay(ctx context.Context, since time.Time) ([]DailyRevenue, error)
}

// WebhookEventStore deduplicates processor event deliveries.
type WebhookEventStore interface {
	// MarkProcessed returns true the first time an event ID is seen.
	MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error)
}

type CreateIntentRequest struct {
	AmountSatang int64
	Currency     string
	ReceiptEmail string
	Metadata     map[string]string
}

type PaymentIntent struct {
	ID           string
	Status       string
	ClientSecret string
	AmountSatang int64
	Currency     string
	// QRImageURL is empty when the intent's next action carries no
	// recognized QR shape; that is a valid transient state.
	QRImageURL string
	Metadata   map[string]string
}

type WebhookEvent struct {
	ID   string
	Type string
	// Intent is populated for payment_intent.* events, nil otherwise.
	Intent *PaymentIntent
}

type PromoPricing struct {
	AmountBeforeTHB   float64
	DiscountAmountTHB float64
	AmountAfterTHB    float64
}

type PromoValidation struct {
	Ok      bool
	Message string
	Type    string // "percent" or "fixed"
	Value   float64
	// Pricing, when present, is the booth API's authoritative before/after
	// computation and overrides local discount math.
	Pricing *PromoPricing
}

type DailyRevenue struct {
	Date   string
	Satang int64
}
