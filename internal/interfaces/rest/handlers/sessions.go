package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/pccbooth/payment-gateway/internal/interfaces/rest"
)

type SessionItem struct {
	ID         string    `json:"id"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UserNumber string    `json:"userNumber"`
}

type RevenueItem struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

type PaySessionsResponse struct {
	Items  []SessionItem `json:"items"`
	Series []RevenueItem `json:"series"`
}

// PaySessions serves the dashboard feed: recent sessions plus a per-day
// revenue series.
func (h *Handlers) PaySessions(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	feed, err := h.queryService.Recent(r.Context(), days, limit)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	resp := PaySessionsResponse{
		Items:  make([]SessionItem, 0, len(feed.Items)),
		Series: make([]RevenueItem, 0, len(feed.Series)),
	}
	for _, item := range feed.Items {
		resp.Items = append(resp.Items, SessionItem{
			ID:         item.ID,
			Amount:     item.AmountTHB,
			Currency:   item.Currency,
			Status:     item.Status,
			CreatedAt:  item.CreatedAt,
			UserNumber: item.UserNumber,
		})
	}
	for _, point := range feed.Series {
		resp.Series = append(resp.Series, RevenueItem{
			Date:   point.Date,
			Amount: point.AmountTHB,
		})
	}

	rest.WriteJSON(w, http.StatusOK, resp)
}
