package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signPayload(t *testing.T, payload []byte, secret string, at time.Time) string {
	t.Helper()
	ts := fmt.Sprintf("%d", at.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	secret := "whsec_test"
	now := time.Now()

	t.Run("valid signature", func(t *testing.T) {
		header := signPayload(t, payload, secret, now)
		assert.NoError(t, verifySignature(payload, header, secret, 5*time.Minute, now))
	})

	t.Run("wrong secret", func(t *testing.T) {
		header := signPayload(t, payload, "whsec_other", now)
		assert.ErrorIs(t, verifySignature(payload, header, secret, 5*time.Minute, now), ErrSignatureInvalid)
	})

	t.Run("tampered payload", func(t *testing.T) {
		header := signPayload(t, payload, secret, now)
		tampered := []byte(`{"id":"evt_2"}`)
		assert.ErrorIs(t, verifySignature(tampered, header, secret, 5*time.Minute, now), ErrSignatureInvalid)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		header := signPayload(t, payload, secret, now.Add(-10*time.Minute))
		assert.ErrorIs(t, verifySignature(payload, header, secret, 5*time.Minute, now), ErrSignatureInvalid)
	})

	t.Run("within tolerance", func(t *testing.T) {
		header := signPayload(t, payload, secret, now.Add(-3*time.Minute))
		assert.NoError(t, verifySignature(payload, header, secret, 5*time.Minute, now))
	})

	t.Run("rotated secret second v1 passes", func(t *testing.T) {
		ts := fmt.Sprintf("%d", now.Unix())
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write([]byte(ts + "."))
		mac.Write(payload)
		goodSig := hex.EncodeToString(mac.Sum(nil))

		combined := fmt.Sprintf("t=%s,v1=%s,v1=%s", ts, "0000", goodSig)
		assert.NoError(t, verifySignature(payload, combined, secret, 5*time.Minute, now))
	})

	t.Run("malformed header", func(t *testing.T) {
		assert.ErrorIs(t, verifySignature(payload, "", secret, 5*time.Minute, now), ErrSignatureInvalid)
		assert.ErrorIs(t, verifySignature(payload, "t=abc,v1=def", secret, 5*time.Minute, now), ErrSignatureInvalid)
		assert.ErrorIs(t, verifySignature(payload, "v1=deadbeef", secret, 5*time.Minute, now), ErrSignatureInvalid)
	})
}

func TestConstructEvent(t *testing.T) {
	client := newTestClient("https://api.example")

	t.Run("payment intent event", func(t *testing.T) {
		payload := []byte(`{
			"id": "evt_1",
			"type": "payment_intent.succeeded",
			"data": {"object": {"id": "pi_123", "status": "succeeded", "amount": 15000}}
		}`)
		header := signPayload(t, payload, "whsec_test", time.Now())

		event, err := client.ConstructEvent(payload, header)
		require.NoError(t, err)

		assert.Equal(t, "evt_1", event.ID)
		assert.Equal(t, "payment_intent.succeeded", event.Type)
		require.NotNil(t, event.Intent)
		assert.Equal(t, "pi_123", event.Intent.ID)
		assert.Equal(t, "succeeded", event.Intent.Status)
		assert.Equal(t, int64(15000), event.Intent.AmountSatang)
	})

	t.Run("non payment intent event has nil intent", func(t *testing.T) {
		payload := []byte(`{"id": "evt_2", "type": "charge.refunded", "data": {"object": {"id": "ch_1"}}}`)
		header := signPayload(t, payload, "whsec_test", time.Now())

		event, err := client.ConstructEvent(payload, header)
		require.NoError(t, err)
		assert.Nil(t, event.Intent)
	})

	t.Run("bad signature rejects before decode", func(t *testing.T) {
		payload := []byte(`{"id": "evt_3", "type": "payment_intent.succeeded"}`)

		_, err := client.ConstructEvent(payload, "t=1,v1=bogus")
		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})
}
