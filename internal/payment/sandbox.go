package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/razorpay/razorpay-go/utils"
)

// Sandbox is an offline provider for local runs and tests. References are
// derived from the idempotency key and signatures use the same HMAC scheme as
// Razorpay, keyed by Secret.
type Sandbox struct {
	Secret string
	// Delay and Err let tests simulate a slow or failing provider.
	Delay time.Duration
	Err   error
}

func NewSandbox(secret string) *Sandbox {
	return &Sandbox{Secret: secret}
}

func (s *Sandbox) Name() string { return "sandbox" }

func (s *Sandbox) PublicKey() string { return "sandbox" }

func (s *Sandbox) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if s.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.Delay):
		}
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return &Charge{
		ProviderReference: "order_sbx_" + req.IdempotencyKey,
		Amount:            req.Amount,
		Currency:          req.Currency,
	}, nil
}

func (s *Sandbox) Verify(v Verification) bool {
	if v.Signature == "" || s.Secret == "" {
		return false
	}
	if len(v.Payload) > 0 {
		return utils.VerifyWebhookSignature(string(v.Payload), v.Signature, s.Secret)
	}
	if v.Outcome != OutcomeSuccess || v.ProviderReference == "" || v.ProviderPaymentID == "" {
		return false
	}
	return utils.VerifyPaymentSignature(map[string]interface{}{
		"razorpay_order_id":   v.ProviderReference,
		"razorpay_payment_id": v.ProviderPaymentID,
	}, v.Signature, s.Secret)
}

func (s *Sandbox) ParseWebhook(body []byte) (*WebhookEvent, error) {
	return parseWebhook(body)
}

// SignPayment returns the checkout signature a client would receive for
// reference and paymentID.
func (s *Sandbox) SignPayment(reference, paymentID string) string {
	return Sign(s.Secret, []byte(reference+"|"+paymentID))
}

// SignWebhook returns the webhook signature header value for body.
func (s *Sandbox) SignWebhook(body []byte) string {
	return Sign(s.Secret, body)
}

// Sign is hex(HMAC-SHA256(message, secret)).
func Sign(secret string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
