package adaptor

import (
	"net/http"

	"resort-booking/internal/dto/request"
	"resort-booking/internal/usecase"
	"resort-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AvailabilityHandler struct {
	service usecase.AvailabilityService
	log     *zap.Logger
}

func NewAvailabilityHandler(service usecase.AvailabilityService, log *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log.With(zap.String("handler", "availability")),
	}
}

// CheckAvailability handles GET /api/resorts/{id}/availability?check_in&check_out&guests
func (h *AvailabilityHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.AvailabilityRequest{
		CheckIn:  query.Get("check_in"),
		CheckOut: query.Get("check_out"),
		Guests:   parseInt(query.Get("guests"), 0),
	}

	result, err := h.service.CheckAvailability(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		handleError(w, h.log, err, "check availability")
		return
	}

	utils.ResponseSuccess(w, "Availability retrieved successfully", result)
}

// Search handles GET /api/rooms/search?location&check_in&check_out&guests
func (h *AvailabilityHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.SearchRoomsRequest{
		Location: query.Get("location"),
		CheckIn:  query.Get("check_in"),
		CheckOut: query.Get("check_out"),
		Guests:   parseInt(query.Get("guests"), 0),
	}

	results, err := h.service.Search(r.Context(), req)
	if err != nil {
		handleError(w, h.log, err, "search rooms")
		return
	}

	utils.ResponseSuccess(w, "Search completed", results)
}
