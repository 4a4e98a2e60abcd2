package stripe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pccbooth/payment-gateway/internal/application"
	"github.com/pccbooth/payment-gateway/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	return NewClient(config.StripeConfig{
		SecretKey:        "sk_test_123",
		WebhookSecret:    "whsec_test",
		BaseURL:          serverURL,
		ConnTimeout:      5 * time.Second,
		WebhookTolerance: 5 * time.Minute,
	})
}

func TestCreateIntent_SendsPromptPayForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)

		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "sk_test_123", user)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "15000", r.PostForm.Get("amount"))
		assert.Equal(t, "thb", r.PostForm.Get("currency"))
		assert.Equal(t, "promptpay", r.PostForm.Get("payment_method_types[]"))
		assert.Equal(t, "promptpay", r.PostForm.Get("payment_method_data[type]"))
		assert.Equal(t, "true", r.PostForm.Get("confirm"))
		assert.Equal(t, "buyer@example.com", r.PostForm.Get("receipt_email"))
		assert.Equal(t, "sess-1", r.PostForm.Get("metadata[session_id]"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":            "pi_123",
			"status":        "requires_action",
			"client_secret": "pi_123_secret",
			"amount":        15000,
			"currency":      "thb",
			"next_action": map[string]any{
				"type": "promptpay_display_qr_code",
				"promptpay_display_qr_code": map[string]any{
					"data":          "000201010212...",
					"image_url_png": "https://qr.example/pi_123.png",
				},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	intent, err := client.CreateIntent(context.Background(), application.CreateIntentRequest{
		AmountSatang: 15000,
		Currency:     "thb",
		ReceiptEmail: "buyer@example.com",
		Metadata:     map[string]string{"session_id": "sess-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "requires_action", intent.Status)
	assert.Equal(t, "pi_123_secret", intent.ClientSecret)
	assert.Equal(t, "https://qr.example/pi_123.png", intent.QRImageURL)
}

func TestCreateIntent_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"type":    "card_error",
				"code":    "amount_too_small",
				"message": "Amount must be at least...",
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.CreateIntent(context.Background(), application.CreateIntentRequest{
		AmountSatang: 1,
		Currency:     "thb",
	})
	require.Error(t, err)

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "amount_too_small", gwErr.Code)
	assert.Equal(t, http.StatusPaymentRequired, gwErr.StatusCode)
}

func TestCancelIntent_ToleratesTerminalIntent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{
					"type":    "invalid_request_error",
					"code":    "payment_intent_unexpected_state",
					"message": "The PaymentIntent could not be canceled",
				},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "pi_123",
			"status": "succeeded",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	intent, err := client.CancelIntent(context.Background(), "pi_123")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", intent.Status)
}

func TestExtractQRImageURL(t *testing.T) {
	tests := []struct {
		name string
		na   *nextAction
		want string
	}{
		{"nil next action", nil, ""},
		{
			"promptpay shape",
			&nextAction{
				Type:                   "promptpay_display_qr_code",
				PromptPayDisplayQRCode: &displayQRCode{ImageURLPNG: "https://qr.example/a.png"},
			},
			"https://qr.example/a.png",
		},
		{
			"generic display shape",
			&nextAction{
				Type:          "display_qr_code",
				DisplayQRCode: &displayQRCode{ImageURLPNG: "https://qr.example/b.png"},
			},
			"https://qr.example/b.png",
		},
		{"unknown shape fails closed", &nextAction{Type: "redirect_to_url"}, ""},
		{
			"shape without image fails closed",
			&nextAction{
				Type:                   "promptpay_display_qr_code",
				PromptPayDisplayQRCode: &displayQRCode{Data: "000201..."},
			},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractQRImageURL(tt.na))
		})
	}
}
