package postgres

import (
	"context"
	"fmt"

	"github.com/pccbooth/payment-gateway/internal/infrastructure/persistence"
)

// WebhookEventRepository deduplicates processor event deliveries via the
// primary key on event_id. Insert-or-ignore makes redelivery handling a
// single round trip.
type WebhookEventRepository struct {
	db *persistence.DB
}

func NewWebhookEventRepository(db *persistence.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// MarkProcessed returns true the first time an event ID is seen.
func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	query := `
		INSERT INTO webhook_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`

	tag, err := r.db.Pool.Exec(ctx, query, eventID, eventType)
	if err != nil {
		return false, fmt.Errorf("failed to record webhook event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
