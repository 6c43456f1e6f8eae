package wire

import (
	"net/http"

	"resort-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireUser(
	r chi.Router,
	userHandler *adaptor.UserHandler,
	auth, admin func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Get("/api/user/profile", userHandler.GetProfile)
		r.Put("/api/user/profile", userHandler.UpdateProfile)
	})

	r.Route("/api/admin/users", func(r chi.Router) {
		r.Use(auth, admin)
		r.Get("/", userHandler.GetAllUsers)
		r.Patch("/{id}/active", userHandler.SetActive)
	})
}
