package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeOrders struct {
	body  map[string]interface{}
	err   error
	delay time.Duration
	got   map[string]interface{}
}

func (f *fakeOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.got = data
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.body, f.err
}

func newTestRazorpay(orders orderCreator) *Razorpay {
	r := NewRazorpay("rzp_test_key", "key-secret", "hook-secret", zap.NewNop())
	r.orders = orders
	return r
}

func TestRazorpay_CreateCharge(t *testing.T) {
	orders := &fakeOrders{body: map[string]interface{}{"id": "order_123"}}
	r := newTestRazorpay(orders)

	charge, err := r.CreateCharge(context.Background(), ChargeRequest{
		Amount:         45000,
		Currency:       "INR",
		IdempotencyKey: "booking_abc",
	})

	require.NoError(t, err)
	assert.Equal(t, "order_123", charge.ProviderReference)
	assert.Equal(t, int64(45000), orders.got["amount"])
	assert.Equal(t, "booking_abc", orders.got["receipt"])
}

func TestRazorpay_CreateCharge_ProviderError(t *testing.T) {
	r := newTestRazorpay(&fakeOrders{err: errors.New("503 service unavailable")})

	_, err := r.CreateCharge(context.Background(), ChargeRequest{Amount: 100, Currency: "INR"})

	require.Error(t, err)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
}

func TestRazorpay_CreateCharge_Timeout(t *testing.T) {
	r := newTestRazorpay(&fakeOrders{body: map[string]interface{}{"id": "late"}, delay: 200 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.CreateCharge(ctx, ChargeRequest{Amount: 100, Currency: "INR"})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRazorpay_VerifyClientSignature(t *testing.T) {
	r := newTestRazorpay(nil)
	valid := Sign("key-secret", []byte("order_1|pay_1"))

	assert.True(t, r.Verify(Verification{
		ProviderReference: "order_1",
		ProviderPaymentID: "pay_1",
		Outcome:           OutcomeSuccess,
		Signature:         valid,
	}))

	// same signature, different payment id
	assert.False(t, r.Verify(Verification{
		ProviderReference: "order_1",
		ProviderPaymentID: "pay_2",
		Outcome:           OutcomeSuccess,
		Signature:         valid,
	}))

	// checkout signatures never attest a failure
	assert.False(t, r.Verify(Verification{
		ProviderReference: "order_1",
		ProviderPaymentID: "pay_1",
		Outcome:           OutcomeFailed,
		Signature:         valid,
	}))

	assert.False(t, r.Verify(Verification{ProviderReference: "order_1", ProviderPaymentID: "pay_1", Outcome: OutcomeSuccess}))
}

func TestRazorpay_VerifyWebhookSignature(t *testing.T) {
	r := newTestRazorpay(nil)
	body := []byte(`{"event":"payment.captured"}`)

	assert.True(t, r.Verify(Verification{Payload: body, Signature: Sign("hook-secret", body)}))
	assert.False(t, r.Verify(Verification{Payload: body, Signature: Sign("key-secret", body)}))
	assert.False(t, r.Verify(Verification{Payload: []byte(`{"event":"payment.failed"}`), Signature: Sign("hook-secret", body)}))
}

func TestRazorpay_WebhookWithoutSecretFailsClosed(t *testing.T) {
	r := NewRazorpay("k", "s", "", zap.NewNop())
	body := []byte(`{}`)

	assert.False(t, r.Verify(Verification{Payload: body, Signature: Sign("", body)}))
}

func TestParseWebhook(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    *WebhookEvent
		wantErr bool
	}{
		{
			name: "payment captured",
			body: `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","status":"captured"}}}}`,
			want: &WebhookEvent{EventType: "payment.captured", ProviderReference: "order_1", ProviderPaymentID: "pay_1", Outcome: OutcomeSuccess},
		},
		{
			name: "order paid",
			body: `{"event":"order.paid","payload":{"order":{"entity":{"id":"order_2","status":"paid"}}}}`,
			want: &WebhookEvent{EventType: "order.paid", ProviderReference: "order_2", Outcome: OutcomeSuccess},
		},
		{
			name: "payment failed",
			body: `{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_3","order_id":"order_3","error_description":"card declined"}}}}`,
			want: &WebhookEvent{EventType: "payment.failed", ProviderReference: "order_3", ProviderPaymentID: "pay_3", Outcome: OutcomeFailed, FailureReason: "card declined"},
		},
		{
			name: "unrelated event",
			body: `{"event":"refund.created","payload":{}}`,
			want: &WebhookEvent{EventType: "refund.created", Ignored: true},
		},
		{name: "not json", body: `event=payment.captured`, wantErr: true},
		{name: "no order id", body: `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1"}}}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWebhook([]byte(tt.body))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedEvent)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSandbox_RoundTrip(t *testing.T) {
	s := NewSandbox("sbx")

	charge, err := s.CreateCharge(context.Background(), ChargeRequest{Amount: 100, Currency: "INR", IdempotencyKey: "booking_1"})
	require.NoError(t, err)
	assert.Equal(t, "order_sbx_booking_1", charge.ProviderReference)

	sig := s.SignPayment(charge.ProviderReference, "pay_sbx")
	assert.True(t, s.Verify(Verification{
		ProviderReference: charge.ProviderReference,
		ProviderPaymentID: "pay_sbx",
		Outcome:           OutcomeSuccess,
		Signature:         sig,
	}))

	body := []byte(`{"event":"payment.failed"}`)
	assert.True(t, s.Verify(Verification{Payload: body, Signature: s.SignWebhook(body)}))
}

func TestSandbox_SimulatedDelayHonoursContext(t *testing.T) {
	s := &Sandbox{Secret: "sbx", Delay: time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.CreateCharge(ctx, ChargeRequest{Amount: 1, Currency: "INR"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
