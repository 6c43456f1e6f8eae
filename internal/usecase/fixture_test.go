package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"resort-booking/internal/data/entity"
	"resort-booking/internal/data/repository/memrepo"
	"resort-booking/internal/dto/request"
	"resort-booking/internal/dto/response"
	"resort-booking/internal/payment"
	"resort-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	stayIn  = "2026-12-10"
	stayOut = "2026-12-13"
)

var testStart = time.Date(2026, 12, 1, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) BookingConfirmed(ctx context.Context, bookingID uuid.UUID) {
	m.Called(ctx, bookingID)
}

func (m *mockNotifier) BookingCancelled(ctx context.Context, bookingID uuid.UUID) {
	m.Called(ctx, bookingID)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, resortID uuid.UUID, stay entity.DateRange) ([]*entity.Room, int64, bool) {
	args := m.Called(ctx, resortID, stay)
	rooms, _ := args.Get(0).([]*entity.Room)
	return rooms, args.Get(1).(int64), args.Bool(2)
}

func (m *mockCache) Set(ctx context.Context, resortID uuid.UUID, version int64, stay entity.DateRange, rooms []*entity.Room) {
	m.Called(ctx, resortID, version, stay, rooms)
}

func (m *mockCache) Invalidate(ctx context.Context, resortID uuid.UUID) {
	m.Called(ctx, resortID)
}

// fixture is a resort with two doubles (D1, D2: 2 guests, 150.00) and one
// suite (S1: 4 guests, 250.00), two customers and an admin, on an in-memory
// store with a controllable clock and the sandbox gateway.
type fixture struct {
	store    *memrepo.Store
	clock    *fakeClock
	gateway  *payment.Sandbox
	notifier *mockNotifier
	svc      *Service

	resort *entity.Resort
	d1     *entity.Room
	d2     *entity.Room
	s1     *entity.Room
	alice  *entity.User
	bob    *entity.User
}

func testConfig() *utils.Config {
	return &utils.Config{
		Session: utils.SessionConfig{ExpiryHours: 24},
		OTP:     utils.OTPConfig{ExpiryMinutes: 5, Length: 6, MaxAttempts: 3},
		Booking: utils.BookingConfig{AttemptTTLMinutes: 30},
		Payment: utils.PaymentConfig{Provider: "sandbox", Currency: "INR", TimeoutSeconds: 5},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &fakeClock{t: testStart}
	store := memrepo.New()
	store.Now = clock.Now

	resort, rooms := store.SeedResort("Coral Bay", "Candolim, Goa",
		entity.Room{RoomNumber: "D1", Capacity: 2, PricePerNight: 15000},
		entity.Room{RoomNumber: "D2", Capacity: 2, PricePerNight: 15000},
		entity.Room{RoomNumber: "S1", Capacity: 4, PricePerNight: 25000},
	)

	alice := "alice@example.com"
	f := &fixture{
		store:    store,
		clock:    clock,
		gateway:  payment.NewSandbox("test-secret"),
		notifier: &mockNotifier{},
		resort:   resort,
		d1:       rooms[0],
		d2:       rooms[1],
		s1:       rooms[2],
		alice:    store.SeedUser("+919800000001", entity.RoleCustomer, &alice),
		bob:      store.SeedUser("+919800000002", entity.RoleCustomer, nil),
	}
	f.notifier.On("BookingConfirmed", mock.Anything, mock.Anything).Return().Maybe()
	f.notifier.On("BookingCancelled", mock.Anything, mock.Anything).Return().Maybe()

	f.svc = newService(store.Repository(), f.gateway, f.notifier, nil, testConfig(), zap.NewNop(), clock.Now)
	return f
}

func (f *fixture) stay() entity.DateRange {
	in, _ := time.Parse(utils.DateLayout, stayIn)
	out, _ := time.Parse(utils.DateLayout, stayOut)
	return entity.NewDateRange(in, out)
}

func (f *fixture) createAttempt(t *testing.T, user *entity.User, guests int) *response.AttemptResponse {
	t.Helper()
	attempt, err := f.svc.Attempt.CreateAttempt(context.Background(), user.ID, &request.CreateAttemptRequest{
		ResortID:   f.resort.ID.String(),
		CheckIn:    stayIn,
		CheckOut:   stayOut,
		GuestCount: guests,
	})
	require.NoError(t, err)
	return attempt
}

func (f *fixture) selectRooms(t *testing.T, user *entity.User, attemptID string, rooms ...*entity.Room) {
	t.Helper()
	_, err := f.svc.Attempt.SelectRooms(context.Background(), user.ID, attemptID, &request.SelectRoomsRequest{RoomIDs: roomIDs(rooms...)})
	require.NoError(t, err)
}

// readyToPay creates an attempt with rooms selected and a payment initiated.
func (f *fixture) readyToPay(t *testing.T, user *entity.User, guests int, rooms ...*entity.Room) *response.CheckoutResponse {
	t.Helper()
	attempt := f.createAttempt(t, user, guests)
	f.selectRooms(t, user, attempt.ID, rooms...)
	checkout, err := f.svc.Payment.InitiatePayment(context.Background(), user.ID, attempt.ID)
	require.NoError(t, err)
	return checkout
}

func (f *fixture) verifyRequest(checkout *response.CheckoutResponse, paymentID string) *request.VerifyPaymentRequest {
	ref := checkout.Payment.ProviderReference
	return &request.VerifyPaymentRequest{
		OrderID:   ref,
		PaymentID: paymentID,
		Signature: f.gateway.SignPayment(ref, paymentID),
	}
}

func webhookBody(event, orderID, paymentID string) []byte {
	return []byte(fmt.Sprintf(
		`{"event":%q,"payload":{"payment":{"entity":{"id":%q,"order_id":%q,"status":"x","error_description":"card declined"}}}}`,
		event, paymentID, orderID,
	))
}

func roomIDs(rooms ...*entity.Room) []string {
	ids := make([]string, len(rooms))
	for i, room := range rooms {
		ids[i] = room.ID.String()
	}
	return ids
}
