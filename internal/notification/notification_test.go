package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"resort-booking/internal/data/entity"
	"resort-booking/internal/data/repository/memrepo"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishEvent(ctx context.Context, key string, event any) error {
	return m.Called(ctx, key, event).Error(0)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, email Email) error {
	return m.Called(ctx, email).Error(0)
}

func day(offset int) time.Time {
	return time.Date(2030, 1, 10+offset, 0, 0, 0, 0, time.UTC)
}

func seedBooking(t *testing.T, store *memrepo.Store, email *string) *entity.FinalBooking {
	t.Helper()
	user := store.SeedUser("+919800000001", entity.RoleCustomer, email)
	resort, rooms := store.SeedResort("Coral Bay", "Goa",
		entity.Room{RoomNumber: "D1", Capacity: 2, PricePerNight: 45000},
	)
	return store.SeedConfirmedBooking(user.ID, resort.ID, entity.NewDateRange(day(0), day(2)), rooms[0].ID)
}

func TestNotifier_PublishesConfirmedEvent(t *testing.T) {
	publisher := new(mockPublisher)
	bookingID := uuid.New()

	publisher.On("PublishEvent", mock.Anything, bookingID.String(), mock.MatchedBy(func(e BookingEvent) bool {
		return e.EventType == EventBookingConfirmed && e.BookingID == bookingID && e.EventID != ""
	})).Return(nil).Once()

	n := NewNotifier(publisher, zap.NewNop())
	n.BookingConfirmed(context.Background(), bookingID)
	n.Wait()

	publisher.AssertExpectations(t)
}

func TestNotifier_OutlivesRequestContext(t *testing.T) {
	publisher := new(mockPublisher)
	bookingID := uuid.New()

	publisher.On("PublishEvent", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), bookingID.String(), mock.Anything).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	n := NewNotifier(publisher, zap.NewNop())
	n.BookingCancelled(ctx, bookingID)
	cancel()
	n.Wait()

	publisher.AssertExpectations(t)
}

func TestNotifier_PublishErrorIsSwallowed(t *testing.T) {
	publisher := new(mockPublisher)
	publisher.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("broker down")).Once()

	n := NewNotifier(publisher, zap.NewNop())
	assert.NotPanics(t, func() {
		n.BookingConfirmed(context.Background(), uuid.New())
		n.Wait()
	})
	publisher.AssertExpectations(t)
}

func TestEmailHandler_SendsConfirmation(t *testing.T) {
	store := memrepo.New()
	email := "guest@example.com"
	booking := seedBooking(t, store, &email)

	mailer := new(mockMailer)
	mailer.On("Send", mock.Anything, mock.MatchedBy(func(e Email) bool {
		return e.To == email &&
			e.Subject == "Booking confirmed" &&
			containsAll(e.HTML, booking.ID.String(), "Coral Bay", "2030-01-10", "2030-01-12")
	})).Return(nil).Once()

	h := NewEmailHandler(store.Repository(), mailer, zap.NewNop())
	err := h.Handle(context.Background(), newBookingEvent(EventBookingConfirmed, booking.ID))

	require.NoError(t, err)
	mailer.AssertExpectations(t)
}

func TestEmailHandler_SkipsUserWithoutEmail(t *testing.T) {
	store := memrepo.New()
	booking := seedBooking(t, store, nil)

	mailer := new(mockMailer)
	h := NewEmailHandler(store.Repository(), mailer, zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), newBookingEvent(EventBookingCancelled, booking.ID)))
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestEmailHandler_UnknownBookingAndEventType(t *testing.T) {
	store := memrepo.New()
	mailer := new(mockMailer)
	h := NewEmailHandler(store.Repository(), mailer, zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), newBookingEvent(EventBookingConfirmed, uuid.New())))
	require.NoError(t, h.Handle(context.Background(), BookingEvent{EventType: "booking.unknown", BookingID: uuid.New()}))
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestEmailHandler_MailerErrorIsReturned(t *testing.T) {
	store := memrepo.New()
	email := "guest@example.com"
	booking := seedBooking(t, store, &email)

	mailer := new(mockMailer)
	mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp refused")).Once()

	h := NewEmailHandler(store.Repository(), mailer, zap.NewNop())
	err := h.Handle(context.Background(), newBookingEvent(EventBookingConfirmed, booking.ID))

	assert.EqualError(t, err, "smtp refused")
}

func TestEmailHandler_HandleMessage(t *testing.T) {
	store := memrepo.New()
	email := "guest@example.com"
	booking := seedBooking(t, store, &email)

	mailer := new(mockMailer)
	mailer.On("Send", mock.Anything, mock.Anything).Return(nil).Once()
	h := NewEmailHandler(store.Repository(), mailer, zap.NewNop())

	payload, err := json.Marshal(newBookingEvent(EventBookingCancelled, booking.ID))
	require.NoError(t, err)

	require.NoError(t, h.HandleMessage(context.Background(), kafka.Message{Key: []byte(booking.ID.String()), Value: payload}))
	require.NoError(t, h.HandleMessage(context.Background(), kafka.Message{Value: []byte("{not json")}))
	mailer.AssertNumberOfCalls(t, "Send", 1)
}

func TestLocalPublisher_DeliversToHandler(t *testing.T) {
	store := memrepo.New()
	email := "guest@example.com"
	booking := seedBooking(t, store, &email)

	mailer := new(mockMailer)
	mailer.On("Send", mock.Anything, mock.Anything).Return(nil).Once()

	n := NewNotifier(LocalPublisher{Handler: NewEmailHandler(store.Repository(), mailer, zap.NewNop())}, zap.NewNop())
	n.BookingConfirmed(context.Background(), booking.ID)
	n.Wait()

	mailer.AssertExpectations(t)
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
