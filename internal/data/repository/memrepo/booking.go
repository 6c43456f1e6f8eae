package memrepo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"resort-booking/internal/data/entity"

	"github.com/google/uuid"
)

type attemptRepo struct{ v *view }

func (r *attemptRepo) Create(_ context.Context, attempt *entity.BookingAttempt) error {
	return r.v.run("Attempt.Create", func(st *state) error {
		if _, ok := st.resorts[attempt.ResortID]; !ok {
			return foreignKeyViolation("booking_attempts_resort_id_fkey")
		}
		st.attempts[attempt.ID] = copyOf(attempt)
		return nil
	})
}

func (r *attemptRepo) FindByID(_ context.Context, id uuid.UUID) (out *entity.BookingAttempt, err error) {
	err = r.v.run("Attempt.FindByID", func(st *state) error {
		out = copyOf(st.attempts[id])
		return nil
	})
	return out, err
}

func (r *attemptRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (out *entity.BookingAttempt, err error) {
	err = r.v.run("Attempt.FindByIDForUpdate", func(st *state) error {
		out = copyOf(st.attempts[id])
		return nil
	})
	return out, err
}

func (r *attemptRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to entity.AttemptStatus) (ok bool, err error) {
	now := r.v.now()
	err = r.v.run("Attempt.UpdateStatus", func(st *state) error {
		if a, found := st.attempts[id]; found && a.Status == from {
			a.Status = to
			a.UpdatedAt = now
			ok = true
		}
		return nil
	})
	return ok, err
}

func (r *attemptRepo) ExpireIfDue(_ context.Context, id uuid.UUID, now time.Time) (ok bool, err error) {
	err = r.v.run("Attempt.ExpireIfDue", func(st *state) error {
		if a, found := st.attempts[id]; found && a.IsDue(now) {
			a.Status = entity.AttemptStatusExpired
			a.UpdatedAt = now
			ok = true
		}
		return nil
	})
	return ok, err
}

func (r *attemptRepo) ExpireDue(_ context.Context, now time.Time, limit int) (ids []uuid.UUID, err error) {
	err = r.v.run("Attempt.ExpireDue", func(st *state) error {
		var due []*entity.BookingAttempt
		for _, a := range st.attempts {
			if a.IsDue(now) {
				due = append(due, a)
			}
		}
		sort.Slice(due, func(i, j int) bool { return due[i].ExpiresAt.Before(due[j].ExpiresAt) })
		for i, a := range due {
			if limit > 0 && i >= limit {
				break
			}
			a.Status = entity.AttemptStatusExpired
			a.UpdatedAt = now
			ids = append(ids, a.ID)
		}
		return nil
	})
	return ids, err
}

func (r *attemptRepo) ReplaceRooms(_ context.Context, attemptID uuid.UUID, roomIDs []uuid.UUID) error {
	return r.v.run("Attempt.ReplaceRooms", func(st *state) error {
		for _, id := range roomIDs {
			if _, ok := st.rooms[id]; !ok {
				return foreignKeyViolation("attempt_rooms_room_id_fkey")
			}
		}
		delete(st.attemptGuests, attemptID)
		st.attemptRooms[attemptID] = sortedIDs(roomIDs)
		return nil
	})
}

func (r *attemptRepo) FindRooms(_ context.Context, attemptID uuid.UUID) (out []*entity.Room, err error) {
	err = r.v.run("Attempt.FindRooms", func(st *state) error {
		for _, id := range st.attemptRooms[attemptID] {
			out = append(out, copyOf(st.rooms[id]))
		}
		return nil
	})
	return out, err
}

func (r *attemptRepo) ReplaceGuests(_ context.Context, attemptID uuid.UUID, guests []*entity.AttemptGuest) error {
	return r.v.run("Attempt.ReplaceGuests", func(st *state) error {
		selected := map[uuid.UUID]bool{}
		for _, id := range st.attemptRooms[attemptID] {
			selected[id] = true
		}
		stored := make([]*entity.AttemptGuest, 0, len(guests))
		for _, g := range guests {
			if !selected[g.RoomID] {
				return foreignKeyViolation("attempt_guests_attempt_id_room_id_fkey")
			}
			c := copyOf(g)
			c.AttemptID = attemptID
			stored = append(stored, c)
		}
		sort.SliceStable(stored, func(i, j int) bool { return stored[i].Position < stored[j].Position })
		st.attemptGuests[attemptID] = stored
		return nil
	})
}

func (r *attemptRepo) FindGuests(_ context.Context, attemptID uuid.UUID) (out []*entity.AttemptGuest, err error) {
	err = r.v.run("Attempt.FindGuests", func(st *state) error {
		out = copyAll(st.attemptGuests[attemptID])
		return nil
	})
	return out, err
}

type paymentRepo struct{ v *view }

func (r *paymentRepo) Create(_ context.Context, payment *entity.Payment) error {
	return r.v.run("Payment.Create", func(st *state) error {
		for _, p := range st.payments {
			if p.AttemptID == payment.AttemptID {
				return uniqueViolation("payments_attempt_id_key")
			}
			if p.ProviderReference == payment.ProviderReference {
				return uniqueViolation("payments_provider_reference_key")
			}
		}
		st.payments[payment.ID] = copyOf(payment)
		return nil
	})
}

func (r *paymentRepo) find(op string, match func(*entity.Payment) bool) (out *entity.Payment, err error) {
	err = r.v.run(op, func(st *state) error {
		for _, p := range st.payments {
			if match(p) {
				out = copyOf(p)
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *paymentRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Payment, error) {
	return r.find("Payment.FindByID", func(p *entity.Payment) bool { return p.ID == id })
}

func (r *paymentRepo) FindByAttemptID(_ context.Context, attemptID uuid.UUID) (*entity.Payment, error) {
	return r.find("Payment.FindByAttemptID", func(p *entity.Payment) bool { return p.AttemptID == attemptID })
}

func (r *paymentRepo) FindByProviderReferenceForUpdate(_ context.Context, reference string) (*entity.Payment, error) {
	return r.find("Payment.FindByProviderReferenceForUpdate", func(p *entity.Payment) bool {
		return p.ProviderReference == reference
	})
}

func (r *paymentRepo) MarkTerminal(_ context.Context, id uuid.UUID, status entity.PaymentStatus, providerPaymentID, failureReason *string) (ok bool, err error) {
	now := r.v.now()
	err = r.v.run("Payment.MarkTerminal", func(st *state) error {
		p, found := st.payments[id]
		if !found || p.Status != entity.PaymentStatusInitiated {
			return nil
		}
		p.Status = status
		if providerPaymentID != nil {
			p.ProviderPaymentID = copyOf(providerPaymentID)
		}
		p.FailureReason = copyOf(failureReason)
		p.UpdatedAt = now
		ok = true
		return nil
	})
	return ok, err
}

type bookingRepo struct{ v *view }

func (r *bookingRepo) Create(_ context.Context, booking *entity.FinalBooking) error {
	return r.v.run("Booking.Create", func(st *state) error {
		for _, b := range st.bookings {
			if b.AttemptID == booking.AttemptID {
				return uniqueViolation("final_bookings_attempt_id_key")
			}
			if b.PaymentID == booking.PaymentID {
				return uniqueViolation("final_bookings_payment_id_key")
			}
		}
		st.bookings[booking.ID] = copyOf(booking)
		return nil
	})
}

func (r *bookingRepo) CreateRooms(_ context.Context, rooms []*entity.BookingRoom) error {
	return r.v.run("Booking.CreateRooms", func(st *state) error {
		for _, br := range rooms {
			if br.Status == entity.BookingStatusConfirmed && st.roomBooked(br.RoomID, br.Stay) {
				return exclusionViolation()
			}
			st.bookingRooms[br.BookingID] = append(st.bookingRooms[br.BookingID], copyOf(br))
		}
		return nil
	})
}

func (r *bookingRepo) CreateGuests(_ context.Context, guests []*entity.BookingGuest) error {
	return r.v.run("Booking.CreateGuests", func(st *state) error {
		for _, g := range guests {
			st.bookingGuests[g.BookingID] = append(st.bookingGuests[g.BookingID], copyOf(g))
		}
		return nil
	})
}

func (r *bookingRepo) findOne(op string, match func(*entity.FinalBooking) bool) (out *entity.FinalBooking, err error) {
	err = r.v.run(op, func(st *state) error {
		for _, b := range st.bookings {
			if match(b) {
				out = copyOf(b)
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *bookingRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.FinalBooking, error) {
	return r.findOne("Booking.FindByID", func(b *entity.FinalBooking) bool { return b.ID == id })
}

func (r *bookingRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*entity.FinalBooking, error) {
	return r.findOne("Booking.FindByIDForUpdate", func(b *entity.FinalBooking) bool { return b.ID == id })
}

func (r *bookingRepo) FindByAttemptID(_ context.Context, attemptID uuid.UUID) (*entity.FinalBooking, error) {
	return r.findOne("Booking.FindByAttemptID", func(b *entity.FinalBooking) bool { return b.AttemptID == attemptID })
}

func (r *bookingRepo) filter(st *state, match func(*entity.FinalBooking) bool) []*entity.FinalBooking {
	var out []*entity.FinalBooking
	for _, b := range st.bookings {
		if match(b) {
			out = append(out, copyOf(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *bookingRepo) FindByUserID(_ context.Context, userID uuid.UUID, limit, offset int) (out []*entity.FinalBooking, err error) {
	err = r.v.run("Booking.FindByUserID", func(st *state) error {
		out = page(r.filter(st, func(b *entity.FinalBooking) bool { return b.UserID == userID }), limit, offset)
		return nil
	})
	return out, err
}

func (r *bookingRepo) CountByUserID(_ context.Context, userID uuid.UUID) (n int64, err error) {
	err = r.v.run("Booking.CountByUserID", func(st *state) error {
		n = int64(len(r.filter(st, func(b *entity.FinalBooking) bool { return b.UserID == userID })))
		return nil
	})
	return n, err
}

func (r *bookingRepo) FindAll(_ context.Context, limit, offset int) (out []*entity.FinalBooking, err error) {
	err = r.v.run("Booking.FindAll", func(st *state) error {
		out = page(r.filter(st, func(*entity.FinalBooking) bool { return true }), limit, offset)
		return nil
	})
	return out, err
}

func (r *bookingRepo) CountAll(_ context.Context) (n int64, err error) {
	err = r.v.run("Booking.CountAll", func(st *state) error {
		n = int64(len(st.bookings))
		return nil
	})
	return n, err
}

func (r *bookingRepo) FindRooms(_ context.Context, bookingID uuid.UUID) (out []*entity.BookingRoom, err error) {
	err = r.v.run("Booking.FindRooms", func(st *state) error {
		out = copyAll(st.bookingRooms[bookingID])
		sort.Slice(out, func(i, j int) bool { return out[i].RoomID.String() < out[j].RoomID.String() })
		return nil
	})
	return out, err
}

func (r *bookingRepo) FindGuests(_ context.Context, bookingID uuid.UUID) (out []*entity.BookingGuest, err error) {
	err = r.v.run("Booking.FindGuests", func(st *state) error {
		out = copyAll(st.bookingGuests[bookingID])
		sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
		return nil
	})
	return out, err
}

func (r *bookingRepo) Cancel(_ context.Context, id uuid.UUID, at time.Time) (ok bool, err error) {
	err = r.v.run("Booking.Cancel", func(st *state) error {
		b, found := st.bookings[id]
		if !found || b.Status != entity.BookingStatusConfirmed {
			return nil
		}
		b.Status = entity.BookingStatusCancelled
		b.CancelledAt = &at
		b.UpdatedAt = at
		for _, br := range st.bookingRooms[id] {
			br.Status = entity.BookingStatusCancelled
		}
		ok = true
		return nil
	})
	return ok, err
}

type webhookRepo struct{ v *view }

func (r *webhookRepo) Record(_ context.Context, event *entity.WebhookEvent) (inserted bool, err error) {
	key := fmt.Sprintf("%s|%s", event.Provider, event.EventID)
	err = r.v.run("WebhookEvent.Record", func(st *state) error {
		if _, exists := st.webhookEvents[key]; exists {
			return nil
		}
		st.webhookEvents[key] = copyOf(event)
		inserted = true
		return nil
	})
	return inserted, err
}
