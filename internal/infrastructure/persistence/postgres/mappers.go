package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/pccbooth/payment-gateway/internal/domain"
)

// toDomainModel: maps db model to domain entity
func toDomainModel(m PaySessionModel) *domain.PaySession {
	var outcome *domain.RedeemOutcome
	if len(m.RedeemResult) > 0 {
		var o domain.RedeemOutcome
		if err := json.Unmarshal(m.RedeemResult, &o); err == nil {
			outcome = &o
		}
	}

	return domain.Reconstitute(
		m.SessionID,
		m.UserNumber,
		m.PromoCode,
		m.OriginalSatang,
		m.DiscountSatang,
		m.FinalSatang,
		m.PaymentIntentID,
		domain.SessionStatus(m.Status),
		m.ExpiresAt,
		m.Expired,
		m.ExpiredAt,
		m.Redeemed,
		m.RedeemAt,
		outcome,
		m.CreatedAt,
		m.UpdatedAt,
	)
}

func encodeOutcome(outcome domain.RedeemOutcome) ([]byte, error) {
	data, err := json.Marshal(outcome)
	if err != nil {
		return nil, fmt.Errorf("failed to encode redeem outcome: %w", err)
	}
	return data, nil
}

// toDBModel: maps domain entity to db model
func toDBModel(s *domain.PaySession) *PaySessionModel {
	var redeemResult []byte
	if s.RedeemResult != nil {
		redeemResult, _ = json.Marshal(s.RedeemResult)
	}

	return &PaySessionModel{
		SessionID:       s.SessionID,
		UserNumber:      s.UserNumber,
		PromoCode:       s.PromoCode,
		OriginalSatang:  s.OriginalSatang,
		DiscountSatang:  s.DiscountSatang,
		FinalSatang:     s.FinalSatang,
		PaymentIntentID: s.PaymentIntentID,
		Status:          string(s.Status),
		ExpiresAt:       s.ExpiresAt,
		Expired:         s.Expired,
		ExpiredAt:       s.ExpiredAt,
		Redeemed:        s.Redeemed,
		RedeemAt:        s.RedeemAt,
		RedeemResult:    redeemResult,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}
