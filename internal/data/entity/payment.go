package entity

import (
	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "initiated"
	PaymentStatusSuccess   PaymentStatus = "success"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment records a charge against one attempt. ProviderReference is the
// provider's order id and the key reconciliation is deduplicated on.
type Payment struct {
	BaseNoDelete
	AttemptID         uuid.UUID     `db:"attempt_id"`
	Amount            int64         `db:"amount"`
	Currency          string        `db:"currency"`
	Provider          string        `db:"provider"`
	ProviderReference string        `db:"provider_reference"`
	ProviderPaymentID *string       `db:"provider_payment_id"`
	FailureReason     *string       `db:"failure_reason"`
	Status            PaymentStatus `db:"status"`
}

func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusSuccess || p.Status == PaymentStatusFailed
}
