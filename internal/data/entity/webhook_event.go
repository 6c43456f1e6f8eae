package entity

import (
	"time"

	"github.com/google/uuid"
)

type WebhookEvent struct {
	ID         uuid.UUID `db:"id"`
	Provider   string    `db:"provider"`
	EventID    string    `db:"event_id"`
	EventType  string    `db:"event_type"`
	Payload    []byte    `db:"payload"`
	ReceivedAt time.Time `db:"received_at"`
}
