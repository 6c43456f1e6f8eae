package wire

import (
	"net/http"

	"resort-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireResort(
	r chi.Router,
	resortHandler *adaptor.ResortHandler,
	availabilityHandler *adaptor.AvailabilityHandler,
	auth, admin func(http.Handler) http.Handler,
) {
	// browsing and search are public
	r.Get("/api/resorts", resortHandler.GetAllResorts)
	r.Get("/api/resorts/{id}", resortHandler.GetResortByID)
	r.Get("/api/resorts/{id}/availability", availabilityHandler.CheckAvailability)
	r.Get("/api/rooms/search", availabilityHandler.Search)

	r.Route("/api/admin/resorts", func(r chi.Router) {
		r.Use(auth, admin)
		r.Post("/", resortHandler.CreateResort)
		r.Put("/{id}", resortHandler.UpdateResort)
		r.Delete("/{id}", resortHandler.DeleteResort)
		r.Get("/{id}/rooms", resortHandler.GetRooms)
		r.Post("/{id}/rooms", resortHandler.CreateRoom)
		r.Put("/{id}/rooms/{roomID}", resortHandler.UpdateRoom)
	})
}
