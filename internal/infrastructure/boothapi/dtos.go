package boothapi

type promoOrderRequest struct {
	UserNumber  string  `json:"userNumber"`
	OrderAmount float64 `json:"orderAmount"`
}

type promoValidateResponse struct {
	Ok      bool       `json:"ok"`
	Message string     `json:"message"`
	Data    *promoData `json:"data"`
}

type promoData struct {
	Type    string        `json:"type"`
	Value   float64       `json:"value"`
	Pricing *promoPricing `json:"pricing"`
}

type promoPricing struct {
	AmountBefore   float64 `json:"amount_before"`
	DiscountAmount float64 `json:"discount_amount"`
	AmountAfter    float64 `json:"amount_after"`
}

type promoRedeemResponse struct {
	Ok      bool   `json:"ok"`
	Message string `json:"message"`
}

type userLookupResponse struct {
	Data *struct {
		Gmail string `json:"gmail"`
	} `json:"data"`
}
