package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resort-booking/internal/data/entity"
	"resort-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type OTPRepository interface {
	Create(ctx context.Context, otp *entity.OTP) error
	FindLatestUnused(ctx context.Context, phone string) (*entity.OTP, error)
	IncrementAttempts(ctx context.Context, otpID uuid.UUID) error
	MarkAsUsed(ctx context.Context, otpID uuid.UUID) (bool, error)
	InvalidateForPhone(ctx context.Context, phone string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type otpRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewOTPRepository(db database.Querier, log *zap.Logger) OTPRepository {
	return &otpRepository{
		db:  db,
		log: log.With(zap.String("repository", "otp")),
	}
}

func (r *otpRepository) Create(ctx context.Context, otp *entity.OTP) error {
	query := `
		INSERT INTO otps (id, phone, code_hash, expires_at, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		otp.ID,
		otp.Phone,
		otp.CodeHash,
		otp.ExpiresAt,
		otp.Attempts,
		otp.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create OTP", zap.Error(err), zap.String("phone", otp.Phone))
		return fmt.Errorf("create otp: %w", err)
	}

	return nil
}

// FindLatestUnused returns the newest OTP for phone that has not been used,
// expired or not. The caller decides whether it is still usable.
func (r *otpRepository) FindLatestUnused(ctx context.Context, phone string) (*entity.OTP, error) {
	query := `
		SELECT id, phone, code_hash, expires_at, attempts, used_at, created_at
		FROM otps
		WHERE phone = $1 AND used_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`

	var otp entity.OTP
	err := r.db.QueryRow(ctx, query, phone).Scan(
		&otp.ID,
		&otp.Phone,
		&otp.CodeHash,
		&otp.ExpiresAt,
		&otp.Attempts,
		&otp.UsedAt,
		&otp.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find OTP", zap.Error(err), zap.String("phone", phone))
		return nil, fmt.Errorf("find otp: %w", err)
	}

	return &otp, nil
}

func (r *otpRepository) IncrementAttempts(ctx context.Context, otpID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE otps SET attempts = attempts + 1 WHERE id = $1`, otpID)
	if err != nil {
		r.log.Error("Failed to increment OTP attempts", zap.Error(err), zap.String("otp_id", otpID.String()))
		return fmt.Errorf("increment otp attempts: %w", err)
	}
	return nil
}

// MarkAsUsed consumes the OTP. It reports false when another request consumed
// it first.
func (r *otpRepository) MarkAsUsed(ctx context.Context, otpID uuid.UUID) (bool, error) {
	result, err := r.db.Exec(ctx, `UPDATE otps SET used_at = NOW() WHERE id = $1 AND used_at IS NULL`, otpID)
	if err != nil {
		r.log.Error("Failed to mark OTP as used", zap.Error(err), zap.String("otp_id", otpID.String()))
		return false, fmt.Errorf("mark otp used: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *otpRepository) InvalidateForPhone(ctx context.Context, phone string) error {
	_, err := r.db.Exec(ctx, `UPDATE otps SET used_at = NOW() WHERE phone = $1 AND used_at IS NULL`, phone)
	if err != nil {
		r.log.Error("Failed to invalidate OTPs", zap.Error(err), zap.String("phone", phone))
		return fmt.Errorf("invalidate otps: %w", err)
	}
	return nil
}

func (r *otpRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM otps WHERE expires_at < $1`, before)
	if err != nil {
		r.log.Error("Failed to delete expired OTPs", zap.Error(err))
		return 0, fmt.Errorf("delete expired otps: %w", err)
	}
	return result.RowsAffected(), nil
}
