package response

import (
	"time"

	"resort-booking/internal/data/entity"
	"resort-booking/pkg/utils"
)

type PaymentResponse struct {
	ID                string               `json:"id"`
	AttemptID         string               `json:"attempt_id"`
	Amount            string               `json:"amount"`
	AmountMinor       int64                `json:"amount_minor"`
	Currency          string               `json:"currency"`
	Provider          string               `json:"provider"`
	ProviderReference string               `json:"provider_reference"`
	ProviderPaymentID *string              `json:"provider_payment_id,omitempty"`
	Status            entity.PaymentStatus `json:"status"`
	CreatedAt         time.Time            `json:"created_at"`
}

// CheckoutResponse carries what a client needs to open the provider's
// checkout for an initiated payment.
type CheckoutResponse struct {
	Payment   PaymentResponse `json:"payment"`
	KeyID     string          `json:"key_id"`
	Receipt   string          `json:"receipt"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// ReconcileResponse is the outcome of applying a provider result. BookingID
// is set only when a booking was finalized; RefundRequired marks a captured
// payment whose booking could not be completed.
type ReconcileResponse struct {
	PaymentStatus  entity.PaymentStatus `json:"payment_status"`
	AttemptStatus  entity.AttemptStatus `json:"attempt_status"`
	BookingID      *string              `json:"booking_id,omitempty"`
	RefundRequired bool                 `json:"refund_required"`
}

type WebhookAckResponse struct {
	Event     string `json:"event"`
	Duplicate bool   `json:"duplicate"`
	Ignored   bool   `json:"ignored"`
}

func PaymentToResponse(p *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                p.ID.String(),
		AttemptID:         p.AttemptID.String(),
		Amount:            utils.FormatAmount(p.Amount),
		AmountMinor:       p.Amount,
		Currency:          p.Currency,
		Provider:          p.Provider,
		ProviderReference: p.ProviderReference,
		ProviderPaymentID: p.ProviderPaymentID,
		Status:            p.Status,
		CreatedAt:         p.CreatedAt,
	}
}
