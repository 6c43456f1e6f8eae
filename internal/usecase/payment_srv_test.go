package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"resort-booking/internal/data/entity"
	"resort-booking/internal/dto/request"
	"resort-booking/internal/dto/response"
	"resort-booking/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func attemptIDOf(checkout *response.CheckoutResponse) uuid.UUID {
	return uuid.MustParse(checkout.Payment.AttemptID)
}

func TestInitiatePayment(t *testing.T) {
	f := newFixture(t)

	checkout := f.readyToPay(t, f.alice, 5, f.s1, f.d1)

	// (250.00 + 150.00) x 3 nights
	assert.Equal(t, int64(120000), checkout.Payment.AmountMinor)
	assert.Equal(t, "1200.00", checkout.Payment.Amount)
	assert.Equal(t, "INR", checkout.Payment.Currency)
	assert.Equal(t, entity.PaymentStatusInitiated, checkout.Payment.Status)
	assert.Equal(t, "sandbox", checkout.KeyID)
	assert.NotEmpty(t, checkout.Payment.ProviderReference)
	assert.Equal(t, testStart.Add(30*time.Minute), checkout.ExpiresAt)
}

func TestInitiatePayment_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	first := f.readyToPay(t, f.alice, 2, f.d1)

	again, err := f.svc.Payment.InitiatePayment(context.Background(), f.alice.ID, first.Payment.AttemptID)
	require.NoError(t, err)

	assert.Equal(t, first.Payment.ID, again.Payment.ID)
	assert.Equal(t, first.Payment.ProviderReference, again.Payment.ProviderReference)
}

func TestInitiatePayment_RequiresRooms(t *testing.T) {
	f := newFixture(t)
	attempt := f.createAttempt(t, f.alice, 2)

	_, err := f.svc.Payment.InitiatePayment(context.Background(), f.alice.ID, attempt.ID)
	assert.Contains(t, fieldsOf(t, err), "rooms")
}

func TestInitiatePayment_ZeroPrice(t *testing.T) {
	f := newFixture(t)
	_, rooms := f.store.SeedResort("Free Stay", "Nowhere", entity.Room{Capacity: 2, PricePerNight: 0})
	attempt, err := f.svc.Attempt.CreateAttempt(context.Background(), f.alice.ID, &request.CreateAttemptRequest{
		ResortID: rooms[0].ResortID.String(), CheckIn: stayIn, CheckOut: stayOut, GuestCount: 1,
	})
	require.NoError(t, err)
	f.selectRooms(t, f.alice, attempt.ID, rooms[0])

	_, err = f.svc.Payment.InitiatePayment(context.Background(), f.alice.ID, attempt.ID)
	assert.ErrorIs(t, err, apperror.ErrZeroOrNegativeAmount)
}

func TestInitiatePayment_ProviderTimeout(t *testing.T) {
	f := newFixture(t)
	f.svc.Payment.(*paymentService).timeout = 20 * time.Millisecond
	f.gateway.Delay = time.Second

	attempt := f.createAttempt(t, f.alice, 2)
	f.selectRooms(t, f.alice, attempt.ID, f.d1)

	_, err := f.svc.Payment.InitiatePayment(context.Background(), f.alice.ID, attempt.ID)
	assert.ErrorIs(t, err, apperror.ErrProviderTimeout)
	assert.Nil(t, f.store.PaymentByAttempt(uuid.MustParse(attempt.ID)))

	// the attempt stays payable
	f.gateway.Delay = 0
	_, err = f.svc.Payment.InitiatePayment(context.Background(), f.alice.ID, attempt.ID)
	assert.NoError(t, err)
}

func TestInitiatePayment_ProviderError(t *testing.T) {
	f := newFixture(t)
	f.gateway.Err = errors.New("connection refused")

	attempt := f.createAttempt(t, f.alice, 2)
	f.selectRooms(t, f.alice, attempt.ID, f.d1)

	_, err := f.svc.Payment.InitiatePayment(context.Background(), f.alice.ID, attempt.ID)
	assert.ErrorIs(t, err, apperror.ErrProviderUnavailable)
	assert.Equal(t, entity.AttemptStatusPending, f.store.Attempt(uuid.MustParse(attempt.ID)).Status)
}

func TestInitiatePayment_ExpiredAttempt(t *testing.T) {
	f := newFixture(t)
	attempt := f.createAttempt(t, f.alice, 2)
	f.selectRooms(t, f.alice, attempt.ID, f.d1)
	f.clock.Advance(time.Hour)

	_, err := f.svc.Payment.InitiatePayment(context.Background(), f.alice.ID, attempt.ID)
	assert.ErrorIs(t, err, apperror.ErrAttemptExpired)
}

func TestVerifyPayment_FinalizesBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	attempt := f.createAttempt(t, f.alice, 3)
	f.selectRooms(t, f.alice, attempt.ID, f.d1, f.d2)
	_, err := f.svc.Attempt.AddGuests(ctx, f.alice.ID, attempt.ID, &request.AddGuestsRequest{
		Guests: []request.GuestRequest{guest("Asha", 31, f.d1), guest("Ravi", 33, f.d1), guest("Meera", 6, f.d2)},
	})
	require.NoError(t, err)
	checkout, err := f.svc.Payment.InitiatePayment(ctx, f.alice.ID, attempt.ID)
	require.NoError(t, err)

	result, err := f.svc.Payment.VerifyPayment(ctx, f.alice.ID, f.verifyRequest(checkout, "pay_001"))
	require.NoError(t, err)

	assert.Equal(t, entity.PaymentStatusSuccess, result.PaymentStatus)
	assert.Equal(t, entity.AttemptStatusCompleted, result.AttemptStatus)
	assert.False(t, result.RefundRequired)
	require.NotNil(t, result.BookingID)

	bookings := f.store.Bookings()
	require.Len(t, bookings, 1)
	booking := bookings[0]
	assert.Equal(t, *result.BookingID, booking.ID.String())
	assert.Equal(t, int64(90000), booking.TotalAmount)
	assert.Equal(t, entity.BookingStatusConfirmed, booking.Status)

	assert.Len(t, f.store.ConfirmedBookingRooms(), 2)
	guests := f.store.BookingGuests(booking.ID)
	require.Len(t, guests, 3)
	assert.Equal(t, "Meera", guests[2].Name)

	p := f.store.PaymentByAttempt(uuid.MustParse(attempt.ID))
	require.NotNil(t, p.ProviderPaymentID)
	assert.Equal(t, "pay_001", *p.ProviderPaymentID)

	f.notifier.AssertCalled(t, "BookingConfirmed", mock.Anything, booking.ID)
}

func TestVerifyPayment_DuplicateCallbackReturnsSameOutcome(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	checkout := f.readyToPay(t, f.alice, 2, f.d1)
	req := f.verifyRequest(checkout, "pay_001")

	first, err := f.svc.Payment.VerifyPayment(ctx, f.alice.ID, req)
	require.NoError(t, err)
	second, err := f.svc.Payment.VerifyPayment(ctx, f.alice.ID, req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, f.store.Bookings(), 1)
	f.notifier.AssertNumberOfCalls(t, "BookingConfirmed", 1)
}

func TestVerifyPayment_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	checkout := f.readyToPay(t, f.alice, 2, f.d1)

	t.Run("bad signature", func(t *testing.T) {
		req := f.verifyRequest(checkout, "pay_001")
		req.Signature = "deadbeef"
		_, err := f.svc.Payment.VerifyPayment(ctx, f.alice.ID, req)
		assert.ErrorIs(t, err, apperror.ErrSignatureInvalid)
	})

	t.Run("signature for another payment id", func(t *testing.T) {
		req := f.verifyRequest(checkout, "pay_001")
		req.PaymentID = "pay_002"
		_, err := f.svc.Payment.VerifyPayment(ctx, f.alice.ID, req)
		assert.ErrorIs(t, err, apperror.ErrSignatureInvalid)
	})

	t.Run("another user", func(t *testing.T) {
		_, err := f.svc.Payment.VerifyPayment(ctx, f.bob.ID, f.verifyRequest(checkout, "pay_001"))
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})

	t.Run("unknown order", func(t *testing.T) {
		ref := "order_unknown"
		_, err := f.svc.Payment.VerifyPayment(ctx, f.alice.ID, &request.VerifyPaymentRequest{
			OrderID: ref, PaymentID: "pay_001", Signature: f.gateway.SignPayment(ref, "pay_001"),
		})
		assert.ErrorIs(t, err, apperror.ErrPaymentNotFound)
	})

	assert.Empty(t, f.store.Bookings())
	assert.Equal(t, entity.PaymentStatusInitiated, f.store.PaymentByAttempt(attemptIDOf(checkout)).Status)
}

func TestHandleWebhook_FailureThenCapture(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	checkout := f.readyToPay(t, f.alice, 2, f.d1)
	ref := checkout.Payment.ProviderReference

	failed := webhookBody("payment.failed", ref, "pay_001")
	ack, err := f.svc.Payment.HandleWebhook(ctx, failed, f.gateway.SignWebhook(failed), "evt_1")
	require.NoError(t, err)
	assert.False(t, ack.Duplicate)

	p := f.store.PaymentByAttempt(attemptIDOf(checkout))
	assert.Equal(t, entity.PaymentStatusFailed, p.Status)
	require.NotNil(t, p.FailureReason)
	assert.Equal(t, "card declined", *p.FailureReason)
	assert.Equal(t, entity.AttemptStatusFailed, f.store.Attempt(attemptIDOf(checkout)).Status)

	// a later capture for the same order does not reopen it
	captured := webhookBody("payment.captured", ref, "pay_002")
	_, err = f.svc.Payment.HandleWebhook(ctx, captured, f.gateway.SignWebhook(captured), "evt_2")
	require.NoError(t, err)

	assert.Equal(t, entity.PaymentStatusFailed, f.store.PaymentByAttempt(attemptIDOf(checkout)).Status)
	assert.Empty(t, f.store.Bookings())

	// the money for that capture has to go back
	result, err := f.svc.Payment.VerifyPayment(ctx, f.alice.ID, f.verifyRequest(checkout, "pay_002"))
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusFailed, result.PaymentStatus)
	assert.Equal(t, entity.AttemptStatusFailed, result.AttemptStatus)
	assert.True(t, result.RefundRequired)
	assert.Nil(t, result.BookingID)
}

func TestHandleWebhook_CaptureThenClientCallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	checkout := f.readyToPay(t, f.alice, 2, f.d1)

	body := webhookBody("payment.captured", checkout.Payment.ProviderReference, "pay_001")
	_, err := f.svc.Payment.HandleWebhook(ctx, body, f.gateway.SignWebhook(body), "evt_1")
	require.NoError(t, err)

	result, err := f.svc.Payment.VerifyPayment(ctx, f.alice.ID, f.verifyRequest(checkout, "pay_001"))
	require.NoError(t, err)
	assert.Equal(t, entity.AttemptStatusCompleted, result.AttemptStatus)
	require.NotNil(t, result.BookingID)
	assert.Len(t, f.store.Bookings(), 1)
}

func TestHandleWebhook_Redelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	checkout := f.readyToPay(t, f.alice, 2, f.d1)
	body := webhookBody("payment.captured", checkout.Payment.ProviderReference, "pay_001")

	first, err := f.svc.Payment.HandleWebhook(ctx, body, f.gateway.SignWebhook(body), "")
	require.NoError(t, err)
	second, err := f.svc.Payment.HandleWebhook(ctx, body, f.gateway.SignWebhook(body), "")
	require.NoError(t, err)

	assert.False(t, first.Duplicate)
	assert.True(t, second.Duplicate)
	assert.Equal(t, 1, f.store.WebhookEventCount())
	assert.Len(t, f.store.Bookings(), 1)
}

func TestHandleWebhook_BadSignature(t *testing.T) {
	f := newFixture(t)
	checkout := f.readyToPay(t, f.alice, 2, f.d1)
	body := webhookBody("payment.captured", checkout.Payment.ProviderReference, "pay_001")

	_, err := f.svc.Payment.HandleWebhook(context.Background(), body, "forged", "evt_1")
	assert.ErrorIs(t, err, apperror.ErrSignatureInvalid)
	assert.Zero(t, f.store.WebhookEventCount())
	assert.Empty(t, f.store.Bookings())
}

func TestHandleWebhook_IgnoredEvent(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"event":"refund.processed","payload":{}}`)

	ack, err := f.svc.Payment.HandleWebhook(context.Background(), body, f.gateway.SignWebhook(body), "evt_9")
	require.NoError(t, err)
	assert.True(t, ack.Ignored)
	assert.Equal(t, "refund.processed", ack.Event)
	assert.Equal(t, 1, f.store.WebhookEventCount())
}

func TestHandleWebhook_Malformed(t *testing.T) {
	f := newFixture(t)
	body := []byte(`{"event":"payment.captured","payload":{}}`)

	_, err := f.svc.Payment.HandleWebhook(context.Background(), body, f.gateway.SignWebhook(body), "evt_1")
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestReconcile_SecondPaymentForBookedRoomNeedsRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	aliceCheckout := f.readyToPay(t, f.alice, 2, f.d1)
	bobCheckout := f.readyToPay(t, f.bob, 2, f.d1)

	_, err := f.svc.Payment.VerifyPayment(ctx, f.alice.ID, f.verifyRequest(aliceCheckout, "pay_a"))
	require.NoError(t, err)

	result, err := f.svc.Payment.VerifyPayment(ctx, f.bob.ID, f.verifyRequest(bobCheckout, "pay_b"))
	require.NoError(t, err)

	assert.Equal(t, entity.PaymentStatusSuccess, result.PaymentStatus)
	assert.Equal(t, entity.AttemptStatusFailed, result.AttemptStatus)
	assert.True(t, result.RefundRequired)
	assert.Nil(t, result.BookingID)

	assert.Len(t, f.store.Bookings(), 1)
	assert.Equal(t, entity.PaymentStatusSuccess, f.store.PaymentByAttempt(attemptIDOf(bobCheckout)).Status)

	// asking again reports the same refund
	again, err := f.svc.Payment.VerifyPayment(ctx, f.bob.ID, f.verifyRequest(bobCheckout, "pay_b"))
	require.NoError(t, err)
	assert.True(t, again.RefundRequired)
	assert.Equal(t, entity.AttemptStatusFailed, again.AttemptStatus)
}

func TestReconcile_PaymentAfterExpiryNeedsRefund(t *testing.T) {
	f := newFixture(t)
	checkout := f.readyToPay(t, f.alice, 2, f.d1)
	f.clock.Advance(time.Hour)

	body := webhookBody("payment.captured", checkout.Payment.ProviderReference, "pay_late")
	_, err := f.svc.Payment.HandleWebhook(context.Background(), body, f.gateway.SignWebhook(body), "evt_1")
	require.NoError(t, err)

	assert.Empty(t, f.store.Bookings())
	assert.Equal(t, entity.AttemptStatusExpired, f.store.Attempt(attemptIDOf(checkout)).Status)
	assert.Equal(t, entity.PaymentStatusSuccess, f.store.PaymentByAttempt(attemptIDOf(checkout)).Status)
}

func TestReconcile_SweptAttemptNeedsRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	checkout := f.readyToPay(t, f.alice, 2, f.d1)
	f.clock.Advance(time.Hour)
	_, err := f.svc.Attempt.ExpireDue(ctx, 10)
	require.NoError(t, err)

	result, err := f.svc.Payment.VerifyPayment(ctx, f.alice.ID, f.verifyRequest(checkout, "pay_late"))
	require.NoError(t, err)
	assert.True(t, result.RefundRequired)
	assert.Equal(t, entity.AttemptStatusExpired, result.AttemptStatus)
}

func TestReconcile_RepricedRoomsNeedRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	checkout := f.readyToPay(t, f.alice, 2, f.d1)

	_, err := f.svc.Resort.UpdateRoom(ctx, f.resort.ID.String(), f.d1.ID.String(), &request.UpdateRoomRequest{
		RoomNumber: "D1", Capacity: 2, PricePerNight: "180.00",
	})
	require.NoError(t, err)

	result, err := f.svc.Payment.VerifyPayment(ctx, f.alice.ID, f.verifyRequest(checkout, "pay_001"))
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentStatusSuccess, result.PaymentStatus)
	assert.Equal(t, entity.AttemptStatusFailed, result.AttemptStatus)
	assert.True(t, result.RefundRequired)
	assert.Empty(t, f.store.Bookings())
}

func TestReconcile_FailureRollsBackEveryWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	attempt := f.createAttempt(t, f.alice, 2)
	f.selectRooms(t, f.alice, attempt.ID, f.d1)
	_, err := f.svc.Attempt.AddGuests(ctx, f.alice.ID, attempt.ID, &request.AddGuestsRequest{
		Guests: []request.GuestRequest{guest("Asha", 31, f.d1)},
	})
	require.NoError(t, err)
	checkout, err := f.svc.Payment.InitiatePayment(ctx, f.alice.ID, attempt.ID)
	require.NoError(t, err)

	f.store.FailNext("Booking.CreateGuests", errors.New("disk full"))
	_, err = f.svc.Payment.VerifyPayment(ctx, f.alice.ID, f.verifyRequest(checkout, "pay_001"))
	require.Error(t, err)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))

	assert.Empty(t, f.store.Bookings())
	assert.Empty(t, f.store.ConfirmedBookingRooms())
	assert.Equal(t, entity.PaymentStatusInitiated, f.store.PaymentByAttempt(attemptIDOf(checkout)).Status)
	assert.Equal(t, entity.AttemptStatusPending, f.store.Attempt(attemptIDOf(checkout)).Status)
	f.notifier.AssertNotCalled(t, "BookingConfirmed", mock.Anything, mock.Anything)

	// the provider retries and it goes through
	result, err := f.svc.Payment.VerifyPayment(ctx, f.alice.ID, f.verifyRequest(checkout, "pay_001"))
	require.NoError(t, err)
	assert.Equal(t, entity.AttemptStatusCompleted, result.AttemptStatus)
	assert.Len(t, f.store.Bookings(), 1)
}

func TestReconcile_ConcurrentCallbacksFinalizeOnce(t *testing.T) {
	f := newFixture(t)
	checkout := f.readyToPay(t, f.alice, 2, f.d1)
	req := f.verifyRequest(checkout, "pay_001")
	body := webhookBody("payment.captured", checkout.Payment.ProviderReference, "pay_001")
	sig := f.gateway.SignWebhook(body)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.svc.Payment.VerifyPayment(context.Background(), f.alice.ID, req)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := f.svc.Payment.HandleWebhook(context.Background(), body, sig, "evt_1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, f.store.Bookings(), 1)
	f.notifier.AssertNumberOfCalls(t, "BookingConfirmed", 1)
}

func TestReconcile_ConcurrentUsersOneWinner(t *testing.T) {
	f := newFixture(t)
	checkouts := map[uuid.UUID]*response.CheckoutResponse{
		f.alice.ID: f.readyToPay(t, f.alice, 2, f.d1),
		f.bob.ID:   f.readyToPay(t, f.bob, 2, f.d1),
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []*response.ReconcileResponse
	)
	for userID, checkout := range checkouts {
		wg.Add(1)
		go func(userID uuid.UUID, checkout *response.CheckoutResponse) {
			defer wg.Done()
			res, err := f.svc.Payment.VerifyPayment(context.Background(), userID, f.verifyRequest(checkout, "pay_"+userID.String()[:8]))
			assert.NoError(t, err)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}(userID, checkout)
	}
	wg.Wait()

	require.Len(t, results, 2)
	var booked, refunded int
	for _, res := range results {
		if res.BookingID != nil {
			booked++
		}
		if res.RefundRequired {
			refunded++
		}
	}
	assert.Equal(t, 1, booked)
	assert.Equal(t, 1, refunded)
	assert.Len(t, f.store.ConfirmedBookingRooms(), 1)
}
