package wire

import (
	"net/http"

	"resort-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireBooking(
	r chi.Router,
	bookingHandler *adaptor.BookingHandler,
	auth, admin func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Get("/api/user/bookings", bookingHandler.GetUserBookings)
		r.Get("/api/user/bookings/{id}", bookingHandler.GetUserBooking)
	})

	r.Route("/api/admin/bookings", func(r chi.Router) {
		r.Use(auth, admin)
		r.Get("/", bookingHandler.GetAllBookings)
		r.Get("/{id}", bookingHandler.GetBookingByID)
		r.Post("/{id}/cancel", bookingHandler.CancelBooking)
	})
}
