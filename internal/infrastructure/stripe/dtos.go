package stripe

import "github.com/pccbooth/payment-gateway/internal/application"

type intentResponse struct {
	ID           string            `json:"id"`
	Status       string            `json:"status"`
	ClientSecret string            `json:"client_secret"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	NextAction   *nextAction       `json:"next_action"`
	Metadata     map[string]string `json:"metadata"`
}

// nextAction enumerates the QR-bearing shapes the processor is known to
// return for scan-to-pay confirmation. Anything else yields no payload.
type nextAction struct {
	Type                   string         `json:"type"`
	PromptPayDisplayQRCode *displayQRCode `json:"promptpay_display_qr_code"`
	DisplayQRCode          *displayQRCode `json:"display_qr_code"`
}

type displayQRCode struct {
	Data        string `json:"data"`
	ImageURLPNG string `json:"image_url_png"`
	ImageURLSVG string `json:"image_url_svg"`
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (r *intentResponse) toPaymentIntent() *application.PaymentIntent {
	return &application.PaymentIntent{
		ID:           r.ID,
		Status:       r.Status,
		ClientSecret: r.ClientSecret,
		AmountSatang: r.Amount,
		Currency:     r.Currency,
		QRImageURL:   extractQRImageURL(r.NextAction),
		Metadata:     r.Metadata,
	}
}

// extractQRImageURL fails closed: a missing or unrecognized next_action
// shape returns an empty payload, which is a valid transient state, not an
// error.
func extractQRImageURL(na *nextAction) string {
	if na == nil {
		return ""
	}
	if na.PromptPayDisplayQRCode != nil && na.PromptPayDisplayQRCode.ImageURLPNG != "" {
		return na.PromptPayDisplayQRCode.ImageURLPNG
	}
	if na.DisplayQRCode != nil && na.DisplayQRCode.ImageURLPNG != "" {
		return na.DisplayQRCode.ImageURLPNG
	}
	return ""
}
