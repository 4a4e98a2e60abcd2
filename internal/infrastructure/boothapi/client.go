// Package boothapi is the HTTP client for the booth's backing API, which
// owns promo codes and customer records.
package boothapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pccbooth/payment-gateway/internal/application"
	"github.com/pccbooth/payment-gateway/internal/config"
	"github.com/pccbooth/payment-gateway/internal/domain"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.BoothAPIConfig) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.ConnTimeout,
		},
	}
}

// Validate asks the booth API whether a promo code is usable for this user
// and order. A rejected code is a normal response, not an error; errors mean
// the booth API could not be consulted at all.
func (c *Client) Validate(ctx context.Context, code, userNumber string, orderAmountTHB float64) (*application.PromoValidation, error) {
	endpoint := fmt.Sprintf("%s/api/promos/%s/validate", c.baseURL, url.PathEscape(code))

	var resp promoValidateResponse
	statusCode, err := c.postJSON(ctx, endpoint, promoOrderRequest{
		UserNumber:  userNumber,
		OrderAmount: orderAmountTHB,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if statusCode < 200 || statusCode >= 300 || !resp.Ok {
		return &application.PromoValidation{Ok: false, Message: resp.Message}, nil
	}

	validation := &application.PromoValidation{
		Ok:      true,
		Message: resp.Message,
	}
	if resp.Data != nil {
		validation.Type = resp.Data.Type
		validation.Value = resp.Data.Value
		if resp.Data.Pricing != nil {
			validation.Pricing = &application.PromoPricing{
				AmountBeforeTHB:   resp.Data.Pricing.AmountBefore,
				DiscountAmountTHB: resp.Data.Pricing.DiscountAmount,
				AmountAfterTHB:    resp.Data.Pricing.AmountAfter,
			}
		}
	}
	return validation, nil
}

// Redeem marks a promo code consumed for this user and order. The outcome is
// reported as data either way; only transport failures surface as errors.
func (c *Client) Redeem(ctx context.Context, code, userNumber string, orderAmountTHB float64) (*domain.RedeemOutcome, error) {
	endpoint := fmt.Sprintf("%s/api/promos/%s/redeem", c.baseURL, url.PathEscape(code))

	var resp promoRedeemResponse
	statusCode, err := c.postJSON(ctx, endpoint, promoOrderRequest{
		UserNumber:  userNumber,
		OrderAmount: orderAmountTHB,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if statusCode < 200 || statusCode >= 300 || !resp.Ok {
		message := resp.Message
		if message == "" {
			message = fmt.Sprintf("redeem rejected with status %d", statusCode)
		}
		return &domain.RedeemOutcome{Ok: false, Message: message}, nil
	}

	return &domain.RedeemOutcome{Ok: true, Message: resp.Message}, nil
}

// EmailByNumber looks up a customer's receipt email. A missing customer or
// record yields an empty email, not an error.
func (c *Client) EmailByNumber(ctx context.Context, userNumber string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/user/by-number/%s", c.baseURL, url.PathEscape(userNumber))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil
	}

	var userResp userLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&userResp); err != nil {
		return "", nil
	}
	if userResp.Data == nil {
		return "", nil
	}
	return userResp.Data.Gmail, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, reqBody any, out any) (int, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return 0, fmt.Errorf("error marshalling json: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return 0, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("error reading response: %w", err)
	}

	// Error bodies share the {ok, message} envelope, so decode failures on
	// non-2xx responses are tolerated.
	if err := json.Unmarshal(raw, out); err != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp.StatusCode, fmt.Errorf("error decoding json response: %w", err)
	}

	return resp.StatusCode, nil
}
