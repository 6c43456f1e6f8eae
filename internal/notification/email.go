package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"

	"resort-booking/internal/data/entity"
	"resort-booking/internal/data/repository"
	"resort-booking/pkg/utils"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var bookingTemplate = template.Must(template.New("booking").Parse(`<html>
<body>
<h2>{{.Title}}</h2>
<p>Booking reference: <strong>{{.BookingID}}</strong></p>
<p>Resort: {{.Resort}}</p>
<p>Stay: {{.CheckIn}} to {{.CheckOut}} ({{.Guests}} guests)</p>
<p>Total: {{.Currency}} {{.Amount}}</p>
</body>
</html>`))

type bookingView struct {
	Title     string
	BookingID string
	Resort    string
	CheckIn   string
	CheckOut  string
	Guests    int
	Currency  string
	Amount    string
}

// EmailHandler turns booking events into customer emails.
type EmailHandler struct {
	repo   *repository.Repository
	mailer Mailer
	log    *zap.Logger
}

func NewEmailHandler(repo *repository.Repository, mailer Mailer, log *zap.Logger) *EmailHandler {
	return &EmailHandler{
		repo:   repo,
		mailer: mailer,
		log:    log.With(zap.String("component", "email_handler")),
	}
}

// HandleMessage is the broker.MessageHandler for the booking topic.
// Undecodable messages are dropped so they do not block the partition.
func (h *EmailHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var event BookingEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.log.Warn("Dropping malformed booking event", zap.Error(err), zap.ByteString("key", msg.Key))
		return nil
	}
	return h.Handle(ctx, event)
}

func (h *EmailHandler) Handle(ctx context.Context, event BookingEvent) error {
	var title, subject string
	switch event.EventType {
	case EventBookingConfirmed:
		title, subject = "Your booking is confirmed", "Booking confirmed"
	case EventBookingCancelled:
		title, subject = "Your booking was cancelled", "Booking cancelled"
	default:
		h.log.Debug("Ignoring booking event", zap.String("event", event.EventType))
		return nil
	}

	booking, err := h.repo.Booking.FindByID(ctx, event.BookingID)
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}
	if booking == nil {
		h.log.Warn("Booking event for unknown booking", zap.String("booking_id", event.BookingID.String()))
		return nil
	}

	user, err := h.repo.User.FindByID(ctx, booking.UserID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if user == nil || user.Email == nil || *user.Email == "" {
		h.log.Debug("No email address on file, skipping",
			zap.String("booking_id", booking.ID.String()),
		)
		return nil
	}

	resortName := ""
	resort, err := h.repo.Resort.FindByID(ctx, booking.ResortID)
	if err != nil {
		return fmt.Errorf("load resort: %w", err)
	}
	if resort != nil {
		resortName = resort.Name
	}

	html, err := renderBooking(title, resortName, booking)
	if err != nil {
		return err
	}

	if err := h.mailer.Send(ctx, Email{To: *user.Email, Subject: subject, HTML: html}); err != nil {
		h.log.Error("Failed to send booking email", zap.Error(err), zap.String("booking_id", booking.ID.String()))
		return err
	}

	h.log.Info("Booking email sent",
		zap.String("event", event.EventType),
		zap.String("booking_id", booking.ID.String()),
	)
	return nil
}

func renderBooking(title, resort string, booking *entity.FinalBooking) (string, error) {
	var buf bytes.Buffer
	err := bookingTemplate.Execute(&buf, bookingView{
		Title:     title,
		BookingID: booking.ID.String(),
		Resort:    resort,
		CheckIn:   booking.CheckIn.Format(utils.DateLayout),
		CheckOut:  booking.CheckOut.Format(utils.DateLayout),
		Guests:    booking.GuestCount,
		Currency:  booking.Currency,
		Amount:    utils.FormatAmount(booking.TotalAmount),
	})
	if err != nil {
		return "", fmt.Errorf("render booking email: %w", err)
	}
	return buf.String(), nil
}
