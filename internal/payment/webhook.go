package payment

import (
	"encoding/json"
	"fmt"
)

type webhookBody struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Status           string `json:"status"`
				ErrorCode        string `json:"error_code"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// parseWebhook maps a Razorpay-format event body. payment.captured and
// order.paid are successes, payment.failed is a failure, anything else is
// acknowledged and ignored.
func parseWebhook(body []byte) (*WebhookEvent, error) {
	var b webhookBody
	if err := json.Unmarshal(body, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if b.Event == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedEvent)
	}

	event := &WebhookEvent{EventType: b.Event}

	switch b.Event {
	case "payment.captured":
		event.Outcome = OutcomeSuccess
	case "order.paid":
		event.Outcome = OutcomeSuccess
	case "payment.failed":
		event.Outcome = OutcomeFailed
	default:
		event.Ignored = true
		return event, nil
	}

	if p := b.Payload.Payment; p != nil {
		event.ProviderReference = p.Entity.OrderID
		event.ProviderPaymentID = p.Entity.ID
		if event.Outcome == OutcomeFailed {
			event.FailureReason = p.Entity.ErrorDescription
			if event.FailureReason == "" {
				event.FailureReason = p.Entity.ErrorCode
			}
		}
	}
	if event.ProviderReference == "" && b.Payload.Order != nil {
		event.ProviderReference = b.Payload.Order.Entity.ID
	}
	if event.ProviderReference == "" {
		return nil, fmt.Errorf("%w: %s without order id", ErrMalformedEvent, b.Event)
	}

	return event, nil
}
