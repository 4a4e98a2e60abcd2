package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pccbooth/payment-gateway/internal/application"
)

var ErrSignatureInvalid = errors.New("webhook signature invalid")

type eventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// ConstructEvent verifies the signature header against the exact raw payload
// bytes and only then decodes the event. The payload must be the unparsed
// request body; any re-serialization would break the signature.
func (c *Client) ConstructEvent(payload []byte, sigHeader string) (*application.WebhookEvent, error) {
	if err := verifySignature(payload, sigHeader, c.webhookSecret, c.webhookTolerance, time.Now()); err != nil {
		return nil, err
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("error decoding webhook event: %w", err)
	}

	event := &application.WebhookEvent{
		ID:   envelope.ID,
		Type: envelope.Type,
	}

	if strings.HasPrefix(envelope.Type, "payment_intent.") && len(envelope.Data.Object) > 0 {
		var intentResp intentResponse
		if err := json.Unmarshal(envelope.Data.Object, &intentResp); err != nil {
			return nil, fmt.Errorf("error decoding webhook payment intent: %w", err)
		}
		event.Intent = intentResp.toPaymentIntent()
	}

	return event, nil
}

// verifySignature checks the t=..,v1=.. signature scheme: an HMAC-SHA256 of
// "<timestamp>.<payload>" under the endpoint secret. Multiple v1 entries may
// be present during secret rotation; any valid one passes.
func verifySignature(payload []byte, sigHeader, secret string, tolerance time.Duration, now time.Time) error {
	var timestamp int64
	var signatures []string

	for _, pair := range strings.Split(sigHeader, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			continue
		}
		switch parts[0] {
		case "t":
			ts, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return ErrSignatureInvalid
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, parts[1])
		}
	}

	if timestamp == 0 || len(signatures) == 0 {
		return ErrSignatureInvalid
	}

	if tolerance > 0 && now.Sub(time.Unix(timestamp, 0)) > tolerance {
		return ErrSignatureInvalid
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}

	return ErrSignatureInvalid
}
