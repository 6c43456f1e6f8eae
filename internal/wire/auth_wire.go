package wire

import (
	"net/http"

	"resort-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireAuth(
	r chi.Router,
	authHandler *adaptor.AuthHandler,
	auth func(http.Handler) http.Handler,
	limits *rateLimits,
) {
	r.Route("/api/auth", func(r chi.Router) {
		r.With(limits.OTP).Post("/otp/request", authHandler.RequestOTP)
		r.With(limits.OTP).Post("/otp/verify", authHandler.VerifyOTP)

		r.With(auth).Post("/logout", authHandler.Logout)
	})
}
