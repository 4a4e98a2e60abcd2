// Package domain encodes the pay session entity and its lifecycle.
package domain

import (
	"errors"
	"slices"
	"time"
)

// SessionStatus mirrors the payment processor's view of an intent, narrowed
// to the states this application acts on.
type SessionStatus string

const (
	StatusCreated    SessionStatus = "created"
	StatusProcessing SessionStatus = "processing"
	StatusSucceeded  SessionStatus = "succeeded"
	StatusCanceled   SessionStatus = "canceled"
	StatusFailed     SessionStatus = "failed"
)

// RedeemOutcome records the result of a promo redemption attempt. It is
// written exactly once per session, on the first observed transition into
// succeeded, and never overwritten.
type RedeemOutcome struct {
	Ok      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// PaySession is one checkout attempt, linked 1:1 to a payment intent.
// Sessions are append-only: they are created once, advanced by the
// reconciliation paths, and never deleted.
type PaySession struct {
	SessionID  string
	UserNumber string
	PromoCode  *string

	// Amounts in satang. FinalSatang = OriginalSatang - DiscountSatang,
	// with DiscountSatang clamped to [0, OriginalSatang].
	OriginalSatang int64
	DiscountSatang int64
	FinalSatang    int64

	// PaymentIntentID is nil only for zero-amount sessions that bypassed
	// the gateway. Once set it is never reassigned.
	PaymentIntentID *string

	Status    SessionStatus
	ExpiresAt *time.Time
	Expired   bool
	ExpiredAt *time.Time

	Redeemed     bool
	RedeemAt     *time.Time
	RedeemResult *RedeemOutcome

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewPaySession(
	sessionID string,
	userNumber string,
	promoCode *string,
	originalSatang, discountSatang int64,
) (*PaySession, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}
	if userNumber == "" {
		return nil, errors.New("user number is required")
	}
	if originalSatang < 0 {
		return nil, errors.New("order amount must not be negative")
	}
	if discountSatang < 0 {
		discountSatang = 0
	}
	if discountSatang > originalSatang {
		discountSatang = originalSatang
	}

	now := time.Now()
	return &PaySession{
		SessionID:      sessionID,
		UserNumber:     userNumber,
		PromoCode:      promoCode,
		OriginalSatang: originalSatang,
		DiscountSatang: discountSatang,
		FinalSatang:    originalSatang - discountSatang,
		Status:         StatusCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Attach records the gateway intent and the local expiry deadline.
func (s *PaySession) Attach(paymentIntentID string, expiresAt time.Time) {
	s.PaymentIntentID = &paymentIntentID
	s.ExpiresAt = &expiresAt
}

func (s *PaySession) IsTerminal() bool {
	switch s.Status {
	case StatusSucceeded, StatusCanceled, StatusFailed:
		return true
	default:
		return false
	}
}

func (s *PaySession) IsExpiredAt(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// ApplyStatus mirrors a gateway-observed status onto the session. Repeating
// the current status is a no-op. Any signal arriving after a terminal status
// is absorbed with ErrTerminalState so callers can log and move on.
func (s *PaySession) ApplyStatus(target SessionStatus) (bool, error) {
	if target == s.Status {
		return false, nil
	}
	if s.IsTerminal() {
		return false, ErrTerminalState
	}
	if err := s.canTransitionTo(target); err != nil {
		return false, err
	}
	s.Status = target
	s.UpdatedAt = time.Now()
	return true, nil
}

func (s *PaySession) canTransitionTo(target SessionStatus) error {
	switch s.Status {
	case StatusCreated:
		return s.allow(target, StatusProcessing, StatusSucceeded, StatusCanceled, StatusFailed)
	case StatusProcessing:
		return s.allow(target, StatusSucceeded, StatusCanceled, StatusFailed)
	}
	return ErrInvalidTransition
}

func (s *PaySession) allow(target SessionStatus, allowed ...SessionStatus) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return ErrInvalidTransition
}

// MarkExpired cancels a non-terminal session locally. Local expiry is
// authoritative for this application regardless of gateway-side timing.
func (s *PaySession) MarkExpired(now time.Time) error {
	if s.IsTerminal() {
		return ErrTerminalState
	}
	s.Status = StatusCanceled
	s.Expired = true
	s.ExpiredAt = &now
	s.UpdatedAt = now
	return nil
}

// RecordRedemption sets the write-once redemption fields.
func (s *PaySession) RecordRedemption(outcome RedeemOutcome, at time.Time) error {
	if s.RedeemAt != nil {
		return ErrAlreadyRedeemed
	}
	s.Redeemed = outcome.Ok
	s.RedeemAt = &at
	s.RedeemResult = &outcome
	s.UpdatedAt = at
	return nil
}

// MapIntentStatus narrows a raw processor intent status to a session status.
// Unknown statuses map to processing so a later signal can still settle the
// session.
func MapIntentStatus(raw string) SessionStatus {
	switch raw {
	case "succeeded":
		return StatusSucceeded
	case "canceled":
		return StatusCanceled
	case "payment_failed", "failed":
		return StatusFailed
	case "requires_payment_method", "requires_confirmation", "requires_action", "processing":
		return StatusProcessing
	default:
		return StatusProcessing
	}
}

// Reconstitute - Special constructor for loading from DB
func Reconstitute(
	sessionID, userNumber string,
	promoCode *string,
	originalSatang, discountSatang, finalSatang int64,
	paymentIntentID *string,
	status SessionStatus,
	expiresAt *time.Time,
	expired bool,
	expiredAt *time.Time,
	redeemed bool,
	redeemAt *time.Time,
	redeemResult *RedeemOutcome,
	createdAt, updatedAt time.Time,
) *PaySession {
	return &PaySession{
		SessionID:       sessionID,
		UserNumber:      userNumber,
		PromoCode:       promoCode,
		OriginalSatang:  originalSatang,
		DiscountSatang:  discountSatang,
		FinalSatang:     finalSatang,
		PaymentIntentID: paymentIntentID,
		Status:          status,
		ExpiresAt:       expiresAt,
		Expired:         expired,
		ExpiredAt:       expiredAt,
		Redeemed:        redeemed,
		RedeemAt:        redeemAt,
		RedeemResult:    redeemResult,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}
}
