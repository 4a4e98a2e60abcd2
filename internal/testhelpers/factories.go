package testhelpers

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pccbooth/payment-gateway/internal/domain"
	"github.com/stretchr/testify/require"
)

// NewOpenSession builds an unsaved session attached to a fresh payment
// intent, expiring two minutes out.
func NewOpenSession(t *testing.T, promoCode string) *domain.PaySession {
	t.Helper()

	var codePtr *string
	if promoCode != "" {
		codePtr = &promoCode
	}

	session, err := domain.NewPaySession(
		uuid.New().String(), "1234", codePtr, 15000, 0)
	require.NoError(t, err)

	session.Attach("pi_"+uuid.New().String(), time.Now().Add(2*time.Minute))
	return session
}
