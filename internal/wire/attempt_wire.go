package wire

import (
	"net/http"

	"resort-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireAttempt(
	r chi.Router,
	attemptHandler *adaptor.AttemptHandler,
	paymentHandler *adaptor.PaymentHandler,
	auth func(http.Handler) http.Handler,
	limits *rateLimits,
) {
	r.Route("/api/attempts", func(r chi.Router) {
		r.Use(auth)
		r.Post("/", attemptHandler.CreateAttempt)
		r.Get("/{id}", attemptHandler.GetAttempt)
		r.Post("/{id}/rooms", attemptHandler.SelectRooms)
		r.Put("/{id}/guests", attemptHandler.AddGuests)

		// limited per user, since auth has already run
		r.With(limits.Payment).Post("/{id}/payment", paymentHandler.InitiatePayment)
	})
}
