// Package stripe implements the payment processor port over Stripe's
// form-encoded HTTP API, scoped to the PromptPay intent flow the booth uses.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pccbooth/payment-gateway/internal/application"
	"github.com/pccbooth/payment-gateway/internal/config"
)

type Client struct {
	baseURL          string
	secretKey        string
	webhookSecret    string
	webhookTolerance time.Duration
	httpClient       *http.Client
}

func NewClient(cfg config.StripeConfig) *Client {
	return &Client{
		baseURL:          strings.TrimSuffix(cfg.BaseURL, "/"),
		secretKey:        cfg.SecretKey,
		webhookSecret:    cfg.WebhookSecret,
		webhookTolerance: cfg.WebhookTolerance,
		httpClient: &http.Client{
			Timeout: cfg.ConnTimeout,
		},
	}
}

// CreateIntent creates and confirms a PromptPay intent in one call so the
// scannable QR payload is available synchronously in next_action.
func (c *Client) CreateIntent(ctx context.Context, req application.CreateIntentRequest) (*application.PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountSatang, 10))
	form.Set("currency", req.Currency)
	form.Add("payment_method_types[]", "promptpay")
	form.Set("payment_method_data[type]", "promptpay")
	form.Set("confirm", "true")

	if req.ReceiptEmail != "" {
		form.Set("receipt_email", req.ReceiptEmail)
		form.Set("payment_method_data[billing_details][email]", req.ReceiptEmail)
	}

	for key, value := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", key), value)
	}

	resp, err := c.do(ctx, http.MethodPost, "/v1/payment_intents", form)
	if err != nil {
		return nil, err
	}
	return resp.toPaymentIntent(), nil
}

func (c *Client) RetrieveIntent(ctx context.Context, id string) (*application.PaymentIntent, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return resp.toPaymentIntent(), nil
}

// CancelIntent cancels an intent. Intents already settled or canceled at the
// processor are reported back as-is rather than as an error.
func (c *Client) CancelIntent(ctx context.Context, id string) (*application.PaymentIntent, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/payment_intents/"+url.PathEscape(id)+"/cancel", nil)
	if err != nil {
		var gwErr *GatewayError
		if errors.As(err, &gwErr) && gwErr.Code == "payment_intent_unexpected_state" {
			return c.RetrieveIntent(ctx, id)
		}
		return nil, err
	}
	return resp.toPaymentIntent(), nil
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values) (*intentResponse, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	httpReq.SetBasicAuth(c.secretKey, "")
	if form != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		var errResp apiErrorResponse
		if err := json.Unmarshal(raw, &errResp); err != nil || errResp.Error.Message == "" {
			return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(raw))
		}
		return nil, &GatewayError{
			Type:       errResp.Error.Type,
			Code:       errResp.Error.Code,
			Message:    errResp.Error.Message,
			StatusCode: resp.StatusCode,
		}
	}

	var intentResp intentResponse
	if err := json.NewDecoder(resp.Body).Decode(&intentResp); err != nil {
		return nil, fmt.Errorf("error decoding json response: %w", err)
	}

	return &intentResp, nil
}
