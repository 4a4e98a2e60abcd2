package services

import (
	"math"

	"github.com/pccbooth/payment-gateway/internal/application"
	"github.com/pccbooth/payment-gateway/internal/domain"
)

// PromoQuote is the discount applied to one checkout, in satang.
type PromoQuote struct {
	DiscountSatang int64
	FinalSatang    int64
}

// QuoteFromValidation turns a booth API validation response into a discount.
// When the response carries authoritative pricing, those amounts are used
// verbatim; recomputing locally would let the two services drift. Otherwise
// the discount is derived from the promo type and value.
func QuoteFromValidation(originalSatang int64, v *application.PromoValidation) PromoQuote {
	if v.Pricing != nil {
		discount := clamp(domain.SatangFromTHB(v.Pricing.DiscountAmountTHB), 0, originalSatang)
		return PromoQuote{
			DiscountSatang: discount,
			FinalSatang:    originalSatang - discount,
		}
	}

	discount := ComputeDiscount(originalSatang, v.Type, v.Value)
	return PromoQuote{
		DiscountSatang: discount,
		FinalSatang:    originalSatang - discount,
	}
}

// ComputeDiscount applies a percent or fixed promo to an order amount.
// The result is always within [0, originalSatang].
func ComputeDiscount(originalSatang int64, promoType string, value float64) int64 {
	switch promoType {
	case "percent":
		pct := value
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		discount := int64(math.Floor(float64(originalSatang) * pct / 100))
		return clamp(discount, 0, originalSatang)
	case "fixed", "amount":
		return clamp(domain.SatangFromTHB(value), 0, originalSatang)
	default:
		return 0
	}
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
