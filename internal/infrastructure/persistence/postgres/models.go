package postgres

import (
	"time"
)

type PaySessionModel struct {
	SessionID       string
	UserNumber      string
	PromoCode       *string
	OriginalSatang  int64
	DiscountSatang  int64
	FinalSatang     int64
	PaymentIntentID *string
	Status          string
	ExpiresAt       *time.Time
	Expired         bool
	ExpiredAt       *time.Time
	Redeemed        bool
	RedeemAt        *time.Time
	RedeemResult    []byte
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
