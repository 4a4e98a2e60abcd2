package worker_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/pccbooth/payment-gateway/internal/application"
	"github.com/pccbooth/payment-gateway/internal/application/services"
	"github.com/pccbooth/payment-gateway/internal/domain"
	"github.com/pccbooth/payment-gateway/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedExpiredSession(t *testing.T, repo *services.MockSessionRepository, sessionID, intentID string, expiresAt time.Time) {
	t.Helper()
	session, err := domain.NewPaySession(sessionID, "1234", nil, 10000, 0)
	require.NoError(t, err)
	session.Attach(intentID, expiresAt)
	require.NoError(t, repo.Create(context.Background(), session))
}

func TestWorker_SweepsExpiredSessions(t *testing.T) {
	repo := services.NewMockSessionRepository()
	gateway := &services.MockPaymentGateway{}

	seedExpiredSession(t, repo, "sess-old", "pi_old", time.Now().Add(-time.Minute))
	seedExpiredSession(t, repo, "sess-live", "pi_live", time.Now().Add(time.Hour))

	w := worker.NewExpirationWorker(repo, gateway, 10*time.Millisecond, 100,
		slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w.Start(ctx)

	expired := repo.Get("sess-old")
	assert.Equal(t, domain.StatusCanceled, expired.Status)
	assert.True(t, expired.Expired)

	live := repo.Get("sess-live")
	assert.Equal(t, domain.StatusCreated, live.Status)
	assert.False(t, live.Expired)

	assert.Contains(t, gateway.CancelCalls, "pi_old")
	assert.NotContains(t, gateway.CancelCalls, "pi_live")
}

func TestWorker_FirstSweepFailureLogged(t *testing.T) {
	repo := services.NewMockSessionRepository()
	repo.FindExpiredSessionsFn = func(ctx context.Context, now time.Time, limit int) ([]*domain.PaySession, error) {
		return nil, errors.New("db down")
	}

	var buf bytes.Buffer
	w := worker.NewExpirationWorker(repo, &services.MockPaymentGateway{}, time.Hour, 100,
		slog.New(slog.NewTextHandler(&buf, nil)))

	// The interval is far beyond the deadline, so only the startup sweep
	// runs before the worker stops.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	w.Start(ctx)

	assert.Contains(t, buf.String(), "expiration sweep failed")
}

func TestWorker_GatewayFailureStillExpires(t *testing.T) {
	repo := services.NewMockSessionRepository()
	gateway := &services.MockPaymentGateway{
		CancelIntentFn: func(ctx context.Context, id string) (*application.PaymentIntent, error) {
			return nil, errors.New("processor down")
		},
	}

	seedExpiredSession(t, repo, "sess-old", "pi_old", time.Now().Add(-time.Minute))

	w := worker.NewExpirationWorker(repo, gateway, 10*time.Millisecond, 100,
		slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	w.Start(ctx)

	expired := repo.Get("sess-old")
	assert.Equal(t, domain.StatusCanceled, expired.Status)
	assert.True(t, expired.Expired)
}
