package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/pccbooth/payment-gateway/internal/application"
	"github.com/pccbooth/payment-gateway/internal/application/services"
	"github.com/pccbooth/payment-gateway/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecent_ZeroFillsRevenueSeries(t *testing.T) {
	repo := services.NewMockSessionRepository()

	today := time.Now().UTC().Format("2006-01-02")
	repo.RevenueByDayFn = func(ctx context.Context, since time.Time) ([]application.DailyRevenue, error) {
		return []application.DailyRevenue{
			{Date: today, Satang: 25000},
		}, nil
	}

	session, err := domain.NewPaySession("sess-1", "1234", nil, 25000, 0)
	require.NoError(t, err)
	session.Attach("pi_123", time.Now().Add(2*time.Minute))
	session.Status = domain.StatusSucceeded
	require.NoError(t, repo.Create(context.Background(), session))

	service := services.NewQueryService(repo, "thb")

	feed, err := service.Recent(context.Background(), 7, 10)
	require.NoError(t, err)

	require.Len(t, feed.Series, 7)
	assert.Equal(t, today, feed.Series[6].Date)
	assert.InDelta(t, 250.0, feed.Series[6].AmountTHB, 0.0001)
	for _, point := range feed.Series[:6] {
		assert.Zero(t, point.AmountTHB)
	}

	require.Len(t, feed.Items, 1)
	assert.Equal(t, "pi_123", feed.Items[0].ID)
	assert.Equal(t, "thb", feed.Items[0].Currency)
	assert.Equal(t, "succeeded", feed.Items[0].Status)
}

func TestRecent_ClampsParameters(t *testing.T) {
	repo := services.NewMockSessionRepository()
	service := services.NewQueryService(repo, "thb")

	feed, err := service.Recent(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, feed.Series, 30)

	feed, err = service.Recent(context.Background(), 9999, 9999)
	require.NoError(t, err)
	assert.Len(t, feed.Series, 365)
}
