package memrepo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"resort-booking/internal/data/entity"

	"github.com/google/uuid"
)

type userRepo struct{ v *view }

func (r *userRepo) Create(_ context.Context, user *entity.User) error {
	return r.v.run("User.Create", func(st *state) error {
		for _, u := range st.users {
			if u.Phone == user.Phone {
				return uniqueViolation("users_phone_key")
			}
		}
		st.users[user.ID] = copyOf(user)
		return nil
	})
}

func (r *userRepo) FindByID(_ context.Context, id uuid.UUID) (out *entity.User, err error) {
	err = r.v.run("User.FindByID", func(st *state) error {
		if u, ok := st.users[id]; ok && !u.IsDeleted() {
			out = copyOf(u)
		}
		return nil
	})
	return out, err
}

func (r *userRepo) FindByPhone(_ context.Context, phone string) (out *entity.User, err error) {
	err = r.v.run("User.FindByPhone", func(st *state) error {
		for _, u := range st.users {
			if u.Phone == phone && !u.IsDeleted() {
				out = copyOf(u)
			}
		}
		return nil
	})
	return out, err
}

func (r *userRepo) FindAll(_ context.Context, limit, offset int) (out []*entity.User, err error) {
	err = r.v.run("User.FindAll", func(st *state) error {
		var all []*entity.User
		for _, u := range st.users {
			if !u.IsDeleted() {
				all = append(all, copyOf(u))
			}
		}
		sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
		out = page(all, limit, offset)
		return nil
	})
	return out, err
}

func (r *userRepo) CountAll(_ context.Context) (n int64, err error) {
	err = r.v.run("User.CountAll", func(st *state) error {
		for _, u := range st.users {
			if !u.IsDeleted() {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *userRepo) UpdateProfile(_ context.Context, user *entity.User) error {
	return r.v.run("User.UpdateProfile", func(st *state) error {
		u, ok := st.users[user.ID]
		if !ok || u.IsDeleted() {
			return fmt.Errorf("user %s not found", user.ID)
		}
		u.Name = user.Name
		u.Email = user.Email
		u.Gender = user.Gender
		u.DateOfBirth = user.DateOfBirth
		u.UpdatedAt = user.UpdatedAt
		return nil
	})
}

func (r *userRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	return r.v.run("User.SetActive", func(st *state) error {
		u, ok := st.users[id]
		if !ok || u.IsDeleted() {
			return fmt.Errorf("user %s not found", id)
		}
		u.IsActive = active
		return nil
	})
}

type sessionRepo struct{ v *view }

func (r *sessionRepo) Create(_ context.Context, session *entity.Session) error {
	return r.v.run("Session.Create", func(st *state) error {
		st.sessions[session.Token] = copyOf(session)
		return nil
	})
}

func (r *sessionRepo) FindValidSession(_ context.Context, token uuid.UUID) (out *entity.Session, err error) {
	now := r.v.now()
	err = r.v.run("Session.FindValidSession", func(st *state) error {
		if s, ok := st.sessions[token]; ok && s.IsValid(now) {
			out = copyOf(s)
		}
		return nil
	})
	return out, err
}

func (r *sessionRepo) Revoke(_ context.Context, token uuid.UUID) error {
	now := r.v.now()
	return r.v.run("Session.Revoke", func(st *state) error {
		s, ok := st.sessions[token]
		if !ok || s.RevokedAt != nil {
			return fmt.Errorf("session not found or already revoked")
		}
		s.RevokedAt = &now
		return nil
	})
}

func (r *sessionRepo) RevokeAllUserSessions(_ context.Context, userID uuid.UUID) error {
	now := r.v.now()
	return r.v.run("Session.RevokeAllUserSessions", func(st *state) error {
		for _, s := range st.sessions {
			if s.UserID == userID && s.RevokedAt == nil {
				s.RevokedAt = &now
			}
		}
		return nil
	})
}

func (r *sessionRepo) CleanExpiredSessions(_ context.Context, before time.Time) (n int64, err error) {
	err = r.v.run("Session.CleanExpiredSessions", func(st *state) error {
		for token, s := range st.sessions {
			if s.ExpiresAt.Before(before) {
				delete(st.sessions, token)
				n++
			}
		}
		return nil
	})
	return n, err
}

type otpRepo struct{ v *view }

func (r *otpRepo) Create(_ context.Context, otp *entity.OTP) error {
	return r.v.run("OTP.Create", func(st *state) error {
		st.otps[otp.ID] = copyOf(otp)
		return nil
	})
}

func (r *otpRepo) FindLatestUnused(_ context.Context, phone string) (out *entity.OTP, err error) {
	err = r.v.run("OTP.FindLatestUnused", func(st *state) error {
		for _, o := range st.otps {
			if o.Phone != phone || o.UsedAt != nil {
				continue
			}
			if out == nil || o.CreatedAt.After(out.CreatedAt) {
				out = copyOf(o)
			}
		}
		return nil
	})
	return out, err
}

func (r *otpRepo) IncrementAttempts(_ context.Context, otpID uuid.UUID) error {
	return r.v.run("OTP.IncrementAttempts", func(st *state) error {
		if o, ok := st.otps[otpID]; ok {
			o.Attempts++
		}
		return nil
	})
}

func (r *otpRepo) MarkAsUsed(_ context.Context, otpID uuid.UUID) (used bool, err error) {
	now := r.v.now()
	err = r.v.run("OTP.MarkAsUsed", func(st *state) error {
		if o, ok := st.otps[otpID]; ok && o.UsedAt == nil {
			o.UsedAt = &now
			used = true
		}
		return nil
	})
	return used, err
}

func (r *otpRepo) InvalidateForPhone(_ context.Context, phone string) error {
	now := r.v.now()
	return r.v.run("OTP.InvalidateForPhone", func(st *state) error {
		for _, o := range st.otps {
			if o.Phone == phone && o.UsedAt == nil {
				o.UsedAt = &now
			}
		}
		return nil
	})
}

func (r *otpRepo) DeleteExpired(_ context.Context, before time.Time) (n int64, err error) {
	err = r.v.run("OTP.DeleteExpired", func(st *state) error {
		for id, o := range st.otps {
			if o.ExpiresAt.Before(before) {
				delete(st.otps, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func page[T any](all []*T, limit, offset int) []*T {
	if offset >= len(all) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
