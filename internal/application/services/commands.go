package services

import "time"

type CheckoutCommand struct {
	PromoCode      string
	UserNumber     string
	OrderAmountTHB float64
	Email          string
}

type CheckoutResult struct {
	SessionID       string
	PaymentIntentID string
	FinalAmountTHB  float64
	QR              string
	ClientSecret    string
	ExpiresAt       *time.Time
	ExpireSeconds   int
	Free            bool
	Redeemed        bool
}

type SessionSummary struct {
	ID         string
	AmountTHB  float64
	Currency   string
	Status     string
	CreatedAt  time.Time
	UserNumber string
}

type RevenuePoint struct {
	Date      string
	AmountTHB float64
}

type SessionsFeed struct {
	Items  []SessionSummary
	Series []RevenuePoint
}
