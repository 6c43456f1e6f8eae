package payment

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
	"go.uber.org/zap"
)

type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type Razorpay struct {
	keyID         string
	keySecret     string
	webhookSecret string
	orders        orderCreator
	log           *zap.Logger
}

func NewRazorpay(keyID, keySecret, webhookSecret string, log *zap.Logger) *Razorpay {
	client := razorpay.NewClient(keyID, keySecret)
	return &Razorpay{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		orders:        client.Order,
		log:           log.With(zap.String("gateway", "razorpay")),
	}
}

func (r *Razorpay) Name() string { return "razorpay" }

func (r *Razorpay) PublicKey() string { return r.keyID }

// CreateCharge creates a Razorpay order. The SDK call is not context aware,
// so it runs in its own goroutine and is abandoned when ctx is done.
func (r *Razorpay) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.IdempotencyKey,
	}
	if len(req.Notes) > 0 {
		notes := make(map[string]interface{}, len(req.Notes))
		for k, v := range req.Notes {
			notes[k] = v
		}
		data["notes"] = notes
	}

	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)

	go func() {
		body, err := r.orders.Create(data, nil)
		done <- result{body: body, err: err}
	}()

	select {
	case <-ctx.Done():
		r.log.Warn("Order creation abandoned", zap.String("receipt", req.IdempotencyKey), zap.Error(ctx.Err()))
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("razorpay create order: %w", res.err)
		}
		id, _ := res.body["id"].(string)
		if id == "" {
			return nil, fmt.Errorf("razorpay create order: response without id")
		}
		return &Charge{ProviderReference: id, Amount: req.Amount, Currency: req.Currency}, nil
	}
}

// Verify checks the webhook HMAC when a payload is present, otherwise the
// checkout signature over order_id|payment_id. The checkout signature only
// ever attests a success.
func (r *Razorpay) Verify(v Verification) bool {
	if v.Signature == "" {
		return false
	}

	if len(v.Payload) > 0 {
		if r.webhookSecret == "" {
			return false
		}
		return utils.VerifyWebhookSignature(string(v.Payload), v.Signature, r.webhookSecret)
	}

	if v.Outcome != OutcomeSuccess || v.ProviderReference == "" || v.ProviderPaymentID == "" {
		return false
	}

	attributes := map[string]interface{}{
		"razorpay_order_id":   v.ProviderReference,
		"razorpay_payment_id": v.ProviderPaymentID,
	}
	return utils.VerifyPaymentSignature(attributes, v.Signature, r.keySecret)
}

func (r *Razorpay) ParseWebhook(body []byte) (*WebhookEvent, error) {
	return parseWebhook(body)
}
