package repository

import (
	"context"
	"fmt"

	"resort-booking/internal/data/entity"
	"resort-booking/pkg/database"

	"go.uber.org/zap"
)

type WebhookEventRepository interface {
	Record(ctx context.Context, event *entity.WebhookEvent) (bool, error)
}

type webhookEventRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewWebhookEventRepository(db database.Querier, log *zap.Logger) WebhookEventRepository {
	return &webhookEventRepository{
		db:  db,
		log: log.With(zap.String("repository", "webhook_event")),
	}
}

// Record stores a verified webhook delivery. It reports false when the same
// provider event was already recorded.
func (r *webhookEventRepository) Record(ctx context.Context, event *entity.WebhookEvent) (bool, error) {
	query := `
		INSERT INTO webhook_events (id, provider, event_id, event_type, payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (provider, event_id) DO NOTHING
	`

	result, err := r.db.Exec(ctx, query,
		event.ID,
		event.Provider,
		event.EventID,
		event.EventType,
		event.Payload,
		event.ReceivedAt,
	)
	if err != nil {
		r.log.Error("Failed to record webhook event",
			zap.Error(err),
			zap.String("provider", event.Provider),
			zap.String("event_id", event.EventID),
		)
		return false, fmt.Errorf("record webhook event %s: %w", event.EventID, err)
	}

	return result.RowsAffected() == 1, nil
}
