// Package payment adapts payment providers to a create-charge, verify-result,
// parse-webhook contract.
package payment

import (
	"context"
	"errors"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

var (
	ErrUnknownProvider = errors.New("unknown payment provider")
	ErrMalformedEvent  = errors.New("malformed webhook event")
)

type ChargeRequest struct {
	Amount         int64
	Currency       string
	IdempotencyKey string
	Notes          map[string]string
}

type Charge struct {
	ProviderReference string
	Amount            int64
	Currency          string
}

// Verification is a provider result as received from the client or a
// webhook. Payload is the raw webhook body and is empty on the client path.
type Verification struct {
	ProviderReference string
	ProviderPaymentID string
	Outcome           Outcome
	Signature         string
	Payload           []byte
}

// WebhookEvent is a parsed webhook delivery. Ignored is set for event types
// that carry no payment result.
type WebhookEvent struct {
	EventType         string
	ProviderReference string
	ProviderPaymentID string
	Outcome           Outcome
	FailureReason     string
	Ignored           bool
}

type Gateway interface {
	Name() string
	PublicKey() string
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	// Verify fails closed: any missing or mismatched signature is false.
	Verify(v Verification) bool
	ParseWebhook(body []byte) (*WebhookEvent, error)
}
