package adaptor

import (
	"io"
	"net/http"

	"resort-booking/internal/dto/request"
	"resort-booking/internal/usecase"
	"resort-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	signatureHeader = "X-Razorpay-Signature"
	eventIDHeader   = "X-Razorpay-Event-Id"
)

type PaymentHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// InitiatePayment handles POST /api/attempts/{id}/payment
func (h *PaymentHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	checkout, err := h.service.InitiatePayment(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, h.log, err, "initiate payment")
		return
	}

	utils.ResponseCreated(w, "Payment initiated", checkout)
}

// VerifyPayment handles POST /api/payments/verify
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.VerifyPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.VerifyPayment(r.Context(), userID, &req)
	if err != nil {
		handleError(w, h.log, err, "verify payment")
		return
	}

	message := "Payment processed"
	if result.RefundRequired {
		message = "Payment received but the booking could not be completed; a refund will be issued"
	}
	utils.ResponseSuccess(w, message, result)
}

// Webhook handles POST /api/payments/webhook. The signature covers the raw
// body, so it is read before any decoding.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	ack, err := h.service.HandleWebhook(r.Context(), body, r.Header.Get(signatureHeader), r.Header.Get(eventIDHeader))
	if err != nil {
		handleError(w, h.log, err, "handle webhook")
		return
	}

	utils.ResponseSuccess(w, "Webhook processed", ack)
}
