package repository

import (
	"context"
	"errors"
	"fmt"

	"resort-booking/internal/data/entity"
	"resort-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindByAttemptID(ctx context.Context, attemptID uuid.UUID) (*entity.Payment, error)
	FindByProviderReferenceForUpdate(ctx context.Context, reference string) (*entity.Payment, error)
	MarkTerminal(ctx context.Context, id uuid.UUID, status entity.PaymentStatus, providerPaymentID, failureReason *string) (bool, error)
}

type paymentRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewPaymentRepository(db database.Querier, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, attempt_id, amount, currency, provider, provider_reference,
	provider_payment_id, failure_reason, status, created_at, updated_at`

func (r *paymentRepository) findOne(ctx context.Context, query string, arg any) (*entity.Payment, error) {
	var payment entity.Payment
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&payment.ID,
		&payment.AttemptID,
		&payment.Amount,
		&payment.Currency,
		&payment.Provider,
		&payment.ProviderReference,
		&payment.ProviderPaymentID,
		&payment.FailureReason,
		&payment.Status,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment", zap.Error(err), zap.Any("key", arg))
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return &payment, nil
}

// Create inserts an initiated payment. A second payment for the same attempt
// fails with a unique violation.
func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (id, attempt_id, amount, currency, provider, provider_reference,
		                      status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		payment.ID,
		payment.AttemptID,
		payment.Amount,
		payment.Currency,
		payment.Provider,
		payment.ProviderReference,
		payment.Status,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			r.log.Info("Payment already exists for attempt", zap.String("attempt_id", payment.AttemptID.String()))
		} else {
			r.log.Error("Failed to create payment",
				zap.Error(err),
				zap.String("attempt_id", payment.AttemptID.String()),
			)
		}
		return fmt.Errorf("create payment for attempt %s: %w", payment.AttemptID, err)
	}

	return nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

func (r *paymentRepository) FindByAttemptID(ctx context.Context, attemptID uuid.UUID) (*entity.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE attempt_id = $1`, attemptID)
}

// FindByProviderReferenceForUpdate locks the payment so that concurrent
// deliveries of the same provider result serialize on it.
func (r *paymentRepository) FindByProviderReferenceForUpdate(ctx context.Context, reference string) (*entity.Payment, error) {
	return r.findOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE provider_reference = $1 FOR UPDATE`, reference)
}

// MarkTerminal moves an initiated payment to success or failed. It reports
// false when the payment was already terminal.
func (r *paymentRepository) MarkTerminal(ctx context.Context, id uuid.UUID, status entity.PaymentStatus, providerPaymentID, failureReason *string) (bool, error) {
	query := `
		UPDATE payments
		SET status = $2,
		    provider_payment_id = COALESCE($3, provider_payment_id),
		    failure_reason = $4,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'initiated'
	`

	result, err := r.db.Exec(ctx, query, id, status, providerPaymentID, failureReason)
	if err != nil {
		r.log.Error("Failed to update payment status",
			zap.Error(err),
			zap.String("payment_id", id.String()),
			zap.String("status", string(status)),
		)
		return false, fmt.Errorf("mark payment %s %s: %w", id, status, err)
	}

	return result.RowsAffected() == 1, nil
}
