package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"resort-booking/internal/data/entity"
	"resort-booking/internal/data/repository"
	"resort-booking/internal/dto/request"
	"resort-booking/internal/dto/response"
	"resort-booking/internal/payment"
	"resort-booking/pkg/apperror"
	"resort-booking/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	defaultProviderTimeout = 10 * time.Second

	sourceClient  = "client"
	sourceWebhook = "webhook"
)

type PaymentService interface {
	// InitiatePayment creates the provider charge for an attempt, or returns
	// the one already initiated.
	InitiatePayment(ctx context.Context, userID uuid.UUID, attemptID string) (*response.CheckoutResponse, error)
	// VerifyPayment applies a checkout result reported by the paying user.
	VerifyPayment(ctx context.Context, userID uuid.UUID, req *request.VerifyPaymentRequest) (*response.ReconcileResponse, error)
	// HandleWebhook applies a provider webhook delivery.
	HandleWebhook(ctx context.Context, body []byte, signature, eventID string) (*response.WebhookAckResponse, error)
}

type paymentService struct {
	repo      *repository.Repository
	gateway   payment.Gateway
	finalizer Finalizer
	attempts  AttemptService
	notifier  BookingNotifier
	cache     AvailabilityCache
	currency  string
	timeout   time.Duration
	now       Clock
	log       *zap.Logger
}

func NewPaymentService(
	repo *repository.Repository,
	gateway payment.Gateway,
	finalizer Finalizer,
	attempts AttemptService,
	notifier BookingNotifier,
	cache AvailabilityCache,
	config *utils.Config,
	now Clock,
	log *zap.Logger,
) PaymentService {
	timeout := time.Duration(config.Payment.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}
	return &paymentService{
		repo:      repo,
		gateway:   gateway,
		finalizer: finalizer,
		attempts:  attempts,
		notifier:  notifier,
		cache:     cache,
		currency:  config.Payment.Currency,
		timeout:   timeout,
		now:       now,
		log:       log.With(zap.String("service", "payment")),
	}
}

// quote is what an attempt costs at a point in time.
type quote struct {
	attempt *entity.BookingAttempt
	amount  int64
}

func (s *paymentService) InitiatePayment(ctx context.Context, userID uuid.UUID, attemptID string) (*response.CheckoutResponse, error) {
	id, err := parseID(attemptID, apperror.ErrAttemptNotFound)
	if err != nil {
		return nil, err
	}

	ctx, span := utils.StartSpan(ctx, "payment.initiate")
	defer span.End()
	span.SetAttributes(attribute.String("attempt_id", id.String()))

	if _, err := s.attempts.ExpireIfDue(ctx, id); err != nil {
		return nil, err
	}

	var (
		q        quote
		existing *entity.Payment
	)
	err = s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		var err error
		q, existing, err = s.quote(ctx, tx, id, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.checkout(existing, q.attempt), nil
	}

	receipt := utils.BookingReceipt(id)
	charge, err := s.createCharge(ctx, payment.ChargeRequest{
		Amount:         q.amount,
		Currency:       s.currency,
		IdempotencyKey: receipt,
		Notes: map[string]string{
			"attempt_id": id.String(),
			"user_id":    userID.String(),
		},
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &entity.Payment{
		BaseNoDelete:      entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		AttemptID:         id,
		Amount:            q.amount,
		Currency:          s.currency,
		Provider:          s.gateway.Name(),
		ProviderReference: charge.ProviderReference,
		Status:            entity.PaymentStatusInitiated,
	}

	// The attempt may have changed while the provider was called, so it is
	// re-read and re-priced before the payment is stored.
	err = s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		current, prior, err := s.quote(ctx, tx, id, userID)
		if err != nil {
			return err
		}
		if prior != nil {
			existing = prior
			return nil
		}
		if current.amount != q.amount {
			return apperror.New(apperror.KindConflict, "booking changed while the payment was being created, please retry")
		}
		return tx.Payment.Create(ctx, p)
	})
	if err != nil {
		if !repository.IsUniqueViolation(err) {
			return nil, err
		}
		// A concurrent initiator stored its payment first.
		existing, err = s.repo.Payment.FindByAttemptID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("find payment: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("payment for attempt %s vanished after conflict", id)
		}
	}
	if existing != nil {
		return s.checkout(existing, q.attempt), nil
	}

	utils.PaymentsInitiatedTotal.Inc()
	s.log.Info("Payment initiated",
		zap.String("attempt_id", id.String()),
		zap.String("payment_id", p.ID.String()),
		zap.String("provider_reference", p.ProviderReference),
		zap.String("amount", utils.FormatAmount(p.Amount)),
	)

	return s.checkout(p, q.attempt), nil
}

// quote checks that the attempt can be paid for and prices it. An existing
// payment for the attempt is returned instead of a price.
func (s *paymentService) quote(ctx context.Context, tx *repository.Repository, id, userID uuid.UUID) (quote, *entity.Payment, error) {
	attempt, err := lockOwnedAttempt(ctx, tx, id, userID)
	if err != nil {
		return quote{}, nil, err
	}
	if err := checkPending(attempt, s.now()); err != nil {
		return quote{}, nil, err
	}

	existing, err := tx.Payment.FindByAttemptID(ctx, id)
	if err != nil {
		return quote{}, nil, fmt.Errorf("find payment: %w", err)
	}
	if existing != nil {
		return quote{attempt: attempt}, existing, nil
	}

	rooms, err := tx.Attempt.FindRooms(ctx, id)
	if err != nil {
		return quote{}, nil, fmt.Errorf("find attempt rooms: %w", err)
	}
	if len(rooms) == 0 {
		return quote{}, nil, apperror.Validation(map[string]string{"rooms": "Select rooms before paying"})
	}

	stay := attempt.Range()
	amount := stayAmount(rooms, stay)
	if stay.Nights() <= 0 || amount <= 0 {
		return quote{}, nil, apperror.ErrZeroOrNegativeAmount
	}

	return quote{attempt: attempt, amount: amount}, nil, nil
}

func (s *paymentService) createCharge(ctx context.Context, req payment.ChargeRequest) (*payment.Charge, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	charge, err := s.gateway.CreateCharge(callCtx, req)
	result := "ok"
	defer func() {
		utils.ProviderCallLatency.WithLabelValues(s.gateway.Name(), result).Observe(time.Since(start).Seconds())
	}()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			result = "timeout"
			s.log.Warn("Payment provider timed out", zap.String("receipt", req.IdempotencyKey), zap.Duration("timeout", s.timeout))
			return nil, apperror.Wrap(apperror.KindProviderTimeout, apperror.ErrProviderTimeout.Message, err)
		}
		result = "error"
		s.log.Error("Payment provider call failed", zap.Error(err), zap.String("receipt", req.IdempotencyKey))
		return nil, apperror.Wrap(apperror.KindProviderUnavailable, apperror.ErrProviderUnavailable.Message, err)
	}
	return charge, nil
}

func (s *paymentService) checkout(p *entity.Payment, attempt *entity.BookingAttempt) *response.CheckoutResponse {
	resp := &response.CheckoutResponse{
		Payment: response.PaymentToResponse(p),
		KeyID:   s.gateway.PublicKey(),
		Receipt: utils.BookingReceipt(p.AttemptID),
	}
	if attempt != nil {
		resp.ExpiresAt = attempt.ExpiresAt
	}
	return resp
}

func (s *paymentService) VerifyPayment(ctx context.Context, userID uuid.UUID, req *request.VerifyPaymentRequest) (*response.ReconcileResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	v := payment.Verification{
		ProviderReference: req.OrderID,
		ProviderPaymentID: req.PaymentID,
		Outcome:           payment.OutcomeSuccess,
		Signature:         req.Signature,
	}
	if !s.gateway.Verify(v) {
		utils.PaymentsReconciledTotal.WithLabelValues(sourceClient, "signature_invalid").Inc()
		s.log.Warn("Payment signature rejected",
			zap.String("provider_reference", req.OrderID),
			zap.String("user_id", userID.String()),
		)
		return nil, apperror.ErrSignatureInvalid
	}

	return s.reconcile(ctx, reconcileInput{
		source:            sourceClient,
		userID:            &userID,
		providerReference: req.OrderID,
		providerPaymentID: req.PaymentID,
		outcome:           payment.OutcomeSuccess,
	})
}

func (s *paymentService) HandleWebhook(ctx context.Context, body []byte, signature, eventID string) (*response.WebhookAckResponse, error) {
	if !s.gateway.Verify(payment.Verification{Signature: signature, Payload: body}) {
		utils.PaymentsReconciledTotal.WithLabelValues(sourceWebhook, "signature_invalid").Inc()
		s.log.Warn("Webhook signature rejected", zap.String("event_id", eventID))
		return nil, apperror.ErrSignatureInvalid
	}

	event, err := s.gateway.ParseWebhook(body)
	if err != nil {
		s.log.Warn("Malformed webhook", zap.Error(err), zap.String("event_id", eventID))
		return nil, apperror.Validation(map[string]string{"body": "Malformed webhook event"})
	}

	if eventID == "" {
		eventID = derivedEventID(body)
	}
	inserted, err := s.repo.WebhookEvent.Record(ctx, &entity.WebhookEvent{
		ID:         uuid.New(),
		Provider:   s.gateway.Name(),
		EventID:    eventID,
		EventType:  event.EventType,
		Payload:    body,
		ReceivedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("record webhook: %w", err)
	}

	ack := &response.WebhookAckResponse{Event: event.EventType, Duplicate: !inserted, Ignored: event.Ignored}
	if event.Ignored {
		s.log.Debug("Webhook event ignored", zap.String("event", event.EventType), zap.String("event_id", eventID))
		return ack, nil
	}

	// Redeliveries are reconciled again; reconciliation is idempotent and a
	// first delivery may have failed after it was recorded.
	if _, err := s.reconcile(ctx, reconcileInput{
		source:            sourceWebhook,
		providerReference: event.ProviderReference,
		providerPaymentID: event.ProviderPaymentID,
		outcome:           event.Outcome,
		failureReason:     event.FailureReason,
	}); err != nil {
		return nil, err
	}
	return ack, nil
}

// derivedEventID stands in for a missing event id header so that audit rows
// still deduplicate identical deliveries.
func derivedEventID(body []byte) string {
	sum := sha256.Sum256(body)
	return "sha256:" + hex.EncodeToString(sum[:])
}

type reconcileInput struct {
	source            string
	userID            *uuid.UUID
	providerReference string
	providerPaymentID string
	outcome           payment.Outcome
	failureReason     string
}

// reconcile applies a verified provider result exactly once. A payment that
// is already terminal is reported as it stands. A success whose booking
// cannot be finalized is still recorded, with the attempt failed or expired
// and the result flagged for refund.
func (s *paymentService) reconcile(ctx context.Context, in reconcileInput) (*response.ReconcileResponse, error) {
	ctx, span := utils.StartSpan(ctx, "payment.reconcile")
	defer span.End()
	span.SetAttributes(
		attribute.String("source", in.source),
		attribute.String("provider_reference", in.providerReference),
		attribute.String("outcome", string(in.outcome)),
	)

	var (
		result        *response.ReconcileResponse
		booking       *entity.FinalBooking
		finalizeErr   error
		resortID      uuid.UUID
		alreadyClosed bool
	)

	err := s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		p, attempt, err := s.lockPayment(ctx, tx, in)
		if err != nil {
			return err
		}
		resortID = attempt.ResortID

		if p.IsTerminal() {
			alreadyClosed = true
			result, err = existingOutcome(ctx, tx, p, attempt, in.outcome)
			return err
		}

		if in.outcome == payment.OutcomeFailed {
			result, err = s.recordFailure(ctx, tx, p, attempt, in)
			return err
		}

		if _, err := tx.Payment.MarkTerminal(ctx, p.ID, entity.PaymentStatusSuccess, strPtr(in.providerPaymentID), nil); err != nil {
			return fmt.Errorf("mark payment success: %w", err)
		}
		p.Status = entity.PaymentStatusSuccess

		booking, err = s.finalizer.Finalize(ctx, tx, attempt, p)
		if err != nil {
			if !isFinalizeConflict(err) {
				return err
			}
			finalizeErr = err
			return err
		}

		id := booking.ID.String()
		result = &response.ReconcileResponse{
			PaymentStatus: entity.PaymentStatusSuccess,
			AttemptStatus: entity.AttemptStatusCompleted,
			BookingID:     &id,
		}
		return nil
	})

	if finalizeErr != nil {
		return s.recordUnfinalizable(ctx, in, finalizeErr)
	}
	if err != nil {
		if apperror.KindOf(err) == apperror.KindInternal {
			s.log.Error("Reconciliation failed", zap.Error(err), zap.String("provider_reference", in.providerReference))
		}
		return nil, err
	}

	switch {
	case alreadyClosed && capturedAfterFailure(result, in.outcome):
		utils.PaymentsReconciledTotal.WithLabelValues(in.source, "refund_required").Inc()
		utils.FinalizationFailuresTotal.WithLabelValues("payment_failed").Inc()
		s.log.Error("finalization_failed",
			zap.String("provider_reference", in.providerReference),
			zap.String("provider_payment_id", in.providerPaymentID),
			zap.String("source", in.source),
			zap.String("payment_status", string(result.PaymentStatus)),
			zap.Bool("refund_required", true),
		)
	case alreadyClosed:
		utils.PaymentsReconciledTotal.WithLabelValues(in.source, "duplicate").Inc()
		s.log.Info("Payment already reconciled",
			zap.String("provider_reference", in.providerReference),
			zap.String("source", in.source),
			zap.String("payment_status", string(result.PaymentStatus)),
		)
	case booking != nil:
		utils.PaymentsReconciledTotal.WithLabelValues(in.source, string(payment.OutcomeSuccess)).Inc()
		utils.BookingsFinalizedTotal.Inc()
		s.log.Info("Booking confirmed",
			zap.String("booking_id", booking.ID.String()),
			zap.String("attempt_id", booking.AttemptID.String()),
			zap.String("source", in.source),
		)
		s.cache.Invalidate(ctx, resortID)
		s.notifier.BookingConfirmed(ctx, booking.ID)
	default:
		utils.PaymentsReconciledTotal.WithLabelValues(in.source, string(payment.OutcomeFailed)).Inc()
		utils.AttemptsFailedTotal.WithLabelValues("payment_failed").Inc()
		s.log.Info("Payment failed",
			zap.String("provider_reference", in.providerReference),
			zap.String("reason", in.failureReason),
		)
	}

	return result, nil
}

func (s *paymentService) lockPayment(ctx context.Context, tx *repository.Repository, in reconcileInput) (*entity.Payment, *entity.BookingAttempt, error) {
	p, err := tx.Payment.FindByProviderReferenceForUpdate(ctx, in.providerReference)
	if err != nil {
		return nil, nil, fmt.Errorf("lock payment: %w", err)
	}
	if p == nil {
		return nil, nil, apperror.ErrPaymentNotFound
	}

	attempt, err := tx.Attempt.FindByIDForUpdate(ctx, p.AttemptID)
	if err != nil {
		return nil, nil, fmt.Errorf("lock attempt: %w", err)
	}
	if attempt == nil {
		return nil, nil, fmt.Errorf("payment %s references missing attempt %s", p.ID, p.AttemptID)
	}
	if in.userID != nil && attempt.UserID != *in.userID {
		return nil, nil, apperror.ErrForbidden
	}
	return p, attempt, nil
}

func (s *paymentService) recordFailure(ctx context.Context, tx *repository.Repository, p *entity.Payment, attempt *entity.BookingAttempt, in reconcileInput) (*response.ReconcileResponse, error) {
	reason := in.failureReason
	if reason == "" {
		reason = "payment failed"
	}
	if _, err := tx.Payment.MarkTerminal(ctx, p.ID, entity.PaymentStatusFailed, strPtr(in.providerPaymentID), &reason); err != nil {
		return nil, fmt.Errorf("mark payment failed: %w", err)
	}

	status := attempt.Status
	failed, err := tx.Attempt.UpdateStatus(ctx, attempt.ID, entity.AttemptStatusPending, entity.AttemptStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("fail attempt: %w", err)
	}
	if failed {
		status = entity.AttemptStatusFailed
	}

	return &response.ReconcileResponse{PaymentStatus: entity.PaymentStatusFailed, AttemptStatus: status}, nil
}

// recordUnfinalizable runs after the finalize transaction rolled back. The
// money was taken, so the payment is stored as a success, the attempt is
// closed and the result asks for a refund.
func (s *paymentService) recordUnfinalizable(ctx context.Context, in reconcileInput, cause error) (*response.ReconcileResponse, error) {
	reason := string(apperror.KindOf(cause))
	utils.FinalizationFailuresTotal.WithLabelValues(reason).Inc()

	var (
		result        *response.ReconcileResponse
		alreadyClosed bool
		attemptID     uuid.UUID
	)
	err := s.repo.WithinTx(ctx, func(tx *repository.Repository) error {
		p, attempt, err := s.lockPayment(ctx, tx, in)
		if err != nil {
			return err
		}
		attemptID = attempt.ID

		if p.IsTerminal() {
			alreadyClosed = true
			result, err = existingOutcome(ctx, tx, p, attempt, in.outcome)
			return err
		}

		if _, err := tx.Payment.MarkTerminal(ctx, p.ID, entity.PaymentStatusSuccess, strPtr(in.providerPaymentID), nil); err != nil {
			return fmt.Errorf("mark payment success: %w", err)
		}

		next := entity.AttemptStatusFailed
		if attempt.IsDue(s.now()) {
			next = entity.AttemptStatusExpired
		}
		status := attempt.Status
		moved, err := tx.Attempt.UpdateStatus(ctx, attempt.ID, entity.AttemptStatusPending, next)
		if err != nil {
			return fmt.Errorf("close attempt: %w", err)
		}
		if moved {
			status = next
		}

		result = &response.ReconcileResponse{
			PaymentStatus:  entity.PaymentStatusSuccess,
			AttemptStatus:  status,
			RefundRequired: true,
		}
		return nil
	})
	if err != nil {
		s.log.Error("Failed to record unfinalizable payment", zap.Error(err), zap.String("provider_reference", in.providerReference))
		return nil, err
	}

	if alreadyClosed {
		utils.PaymentsReconciledTotal.WithLabelValues(in.source, "duplicate").Inc()
		return result, nil
	}

	utils.PaymentsReconciledTotal.WithLabelValues(in.source, "refund_required").Inc()
	utils.AttemptsFailedTotal.WithLabelValues(reason).Inc()
	s.log.Error("finalization_failed",
		zap.Error(cause),
		zap.String("attempt_id", attemptID.String()),
		zap.String("provider_reference", in.providerReference),
		zap.String("attempt_status", string(result.AttemptStatus)),
		zap.Bool("refund_required", true),
	)
	return result, nil
}

// existingOutcome describes a payment that was reconciled before. A success
// reported for a payment already closed as failed means the provider took
// money on a retry of the same order; nothing is reopened but a refund is due.
func existingOutcome(ctx context.Context, tx *repository.Repository, p *entity.Payment, attempt *entity.BookingAttempt, incoming payment.Outcome) (*response.ReconcileResponse, error) {
	result := &response.ReconcileResponse{PaymentStatus: p.Status, AttemptStatus: attempt.Status}
	if p.Status != entity.PaymentStatusSuccess {
		result.RefundRequired = p.Status == entity.PaymentStatusFailed && incoming == payment.OutcomeSuccess
		return result, nil
	}

	booking, err := tx.Booking.FindByAttemptID(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	if booking == nil {
		result.RefundRequired = true
		return result, nil
	}
	id := booking.ID.String()
	result.BookingID = &id
	return result, nil
}

func capturedAfterFailure(result *response.ReconcileResponse, incoming payment.Outcome) bool {
	return result != nil && result.PaymentStatus == entity.PaymentStatusFailed && incoming == payment.OutcomeSuccess
}

// isFinalizeConflict reports finalize errors caused by the state of the
// attempt or its rooms, as opposed to infrastructure failures.
func isFinalizeConflict(err error) bool {
	switch apperror.KindOf(err) {
	case apperror.KindRoomUnavailable, apperror.KindAttemptNotPending, apperror.KindAttemptExpired, apperror.KindConflict:
		return true
	}
	return false
}
