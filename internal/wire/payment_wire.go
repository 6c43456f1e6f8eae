package wire

import (
	"net/http"

	"resort-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wirePayment(
	r chi.Router,
	paymentHandler *adaptor.PaymentHandler,
	auth func(http.Handler) http.Handler,
) {
	r.With(auth).Post("/api/payments/verify", paymentHandler.VerifyPayment)

	// authenticated by the provider signature, not a session
	r.Post("/api/payments/webhook", paymentHandler.Webhook)
}
