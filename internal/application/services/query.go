package services

import (
	"context"
	"time"

	"github.com/pccbooth/payment-gateway/internal/application"
	"github.com/pccbooth/payment-gateway/internal/domain"
)

const (
	maxFeedDays  = 365
	maxFeedLimit = 200
)

// QueryService serves the dashboard feed: recent sessions plus a zero-filled
// per-day revenue series.
type QueryService struct {
	repo     application.SessionRepository
	currency string
}

func NewQueryService(repo application.SessionRepository, currency string) *QueryService {
	return &QueryService{repo: repo, currency: currency}
}

func (s *QueryService) Recent(ctx context.Context, days, limit int) (*SessionsFeed, error) {
	if days <= 0 {
		days = 30
	}
	if days > maxFeedDays {
		days = maxFeedDays
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}

	recent, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, application.NewInternalError(err)
	}

	// The repository buckets revenue by UTC day, so the zero-fill keys and
	// the cutoff are computed in UTC as well.
	now := time.Now().UTC()
	revenue, err := s.repo.RevenueByDay(ctx, now.AddDate(0, 0, -days))
	if err != nil {
		return nil, application.NewInternalError(err)
	}

	byDate := make(map[string]int64, len(revenue))
	for _, r := range revenue {
		byDate[r.Date] = r.Satang
	}

	series := make([]RevenuePoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i).Format("2006-01-02")
		series = append(series, RevenuePoint{
			Date:      date,
			AmountTHB: domain.THBFromSatang(byDate[date]),
		})
	}

	items := make([]SessionSummary, 0, len(recent))
	for _, sess := range recent {
		id := sess.SessionID
		if sess.PaymentIntentID != nil {
			id = *sess.PaymentIntentID
		}
		items = append(items, SessionSummary{
			ID:         id,
			AmountTHB:  domain.THBFromSatang(sess.FinalSatang),
			Currency:   s.currency,
			Status:     string(sess.Status),
			CreatedAt:  sess.CreatedAt,
			UserNumber: sess.UserNumber,
		})
	}

	return &SessionsFeed{Items: items, Series: series}, nil
}
