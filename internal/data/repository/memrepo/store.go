// Package memrepo is an in-memory repository.Repository for tests.
//
// Every statement and every transaction runs under one mutex, so
// transactions are serializable. A transaction works on a deep copy of the
// state that replaces the live state on commit and is dropped on rollback.
// Unique and overlap constraints are reported as the same *pgconn.PgError
// codes Postgres would return.
package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"resort-booking/internal/data/entity"
	"resort-booking/internal/data/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type Store struct {
	mu     sync.Mutex
	state  *state
	faults map[string]error

	// Now stands in for the database clock (NOW()).
	Now func() time.Time
}

func New() *Store {
	return &Store{
		state:  newState(),
		faults: map[string]error{},
		Now:    time.Now,
	}
}

// FailNext makes the next call of op (e.g. "Booking.CreateGuests") return
// err, inside or outside a transaction.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// Repository returns repositories bound to the live state.
func (s *Store) Repository() *repository.Repository {
	repo := s.bind(&view{store: s})
	repo.Transactor = s
	return repo
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx *repository.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v := &view{store: s, tx: s.state.clone()}
	txRepo := s.bind(v)
	txRepo.Transactor = nestedTx{repo: txRepo}

	if err := fn(txRepo); err != nil {
		return err
	}

	s.state = v.tx
	return nil
}

type nestedTx struct {
	repo *repository.Repository
}

func (n nestedTx) WithinTx(_ context.Context, fn func(tx *repository.Repository) error) error {
	return fn(n.repo)
}

func (s *Store) bind(v *view) *repository.Repository {
	return &repository.Repository{
		User:         &userRepo{v},
		Session:      &sessionRepo{v},
		OTP:          &otpRepo{v},
		Resort:       &resortRepo{v},
		Room:         &roomRepo{v},
		Attempt:      &attemptRepo{v},
		Payment:      &paymentRepo{v},
		Booking:      &bookingRepo{v},
		WebhookEvent: &webhookRepo{v},
	}
}

// view is either the live state (tx == nil, locks per call) or a
// transaction's private copy (already under the store lock).
type view struct {
	store *Store
	tx    *state
}

// run executes fn against the bound state, consuming any injected fault for op.
func (v *view) run(op string, fn func(st *state) error) error {
	if v.tx == nil {
		v.store.mu.Lock()
		defer v.store.mu.Unlock()
	}

	if err, ok := v.store.faults[op]; ok {
		delete(v.store.faults, op)
		return err
	}

	st := v.tx
	if st == nil {
		st = v.store.state
	}
	return fn(st)
}

func (v *view) now() time.Time {
	return v.store.Now()
}

// Snapshot helpers for assertions in tests.

func (s *Store) Attempt(id uuid.UUID) *entity.BookingAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyOf(s.state.attempts[id])
}

func (s *Store) PaymentByAttempt(attemptID uuid.UUID) *entity.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.state.payments {
		if p.AttemptID == attemptID {
			return copyOf(p)
		}
	}
	return nil
}

func (s *Store) Bookings() []*entity.FinalBooking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.FinalBooking, 0, len(s.state.bookings))
	for _, b := range s.state.bookings {
		out = append(out, copyOf(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ConfirmedBookingRooms returns every confirmed booking room across bookings.
func (s *Store) ConfirmedBookingRooms() []*entity.BookingRoom {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.BookingRoom
	for _, rooms := range s.state.bookingRooms {
		for _, br := range rooms {
			if br.Status == entity.BookingStatusConfirmed {
				out = append(out, copyOf(br))
			}
		}
	}
	return out
}

func (s *Store) BookingGuests(bookingID uuid.UUID) []*entity.BookingGuest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyAll(s.state.bookingGuests[bookingID])
}

func (s *Store) WebhookEventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.webhookEvents)
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

func exclusionViolation() error {
	return &pgconn.PgError{Code: "23P01", ConstraintName: "booking_rooms_no_overlap", Message: "conflicting key value violates exclusion constraint"}
}

func foreignKeyViolation(constraint string) error {
	return &pgconn.PgError{Code: "23503", ConstraintName: constraint, Message: "violates foreign key constraint"}
}
