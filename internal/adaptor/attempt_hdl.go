package adaptor

import (
	"net/http"

	"resort-booking/internal/dto/request"
	"resort-booking/internal/usecase"
	"resort-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AttemptHandler drives the booking attempt lifecycle for the signed-in
// user. Every route runs behind AuthSession.
type AttemptHandler struct {
	service usecase.AttemptService
	log     *zap.Logger
}

func NewAttemptHandler(service usecase.AttemptService, log *zap.Logger) *AttemptHandler {
	return &AttemptHandler{
		service: service,
		log:     log.With(zap.String("handler", "attempt")),
	}
}

// CreateAttempt handles POST /api/attempts
func (h *AttemptHandler) CreateAttempt(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreateAttemptRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	attempt, err := h.service.CreateAttempt(r.Context(), userID, &req)
	if err != nil {
		handleError(w, h.log, err, "create attempt")
		return
	}

	utils.ResponseCreated(w, "Booking attempt created", attempt)
}

// GetAttempt handles GET /api/attempts/{id}
func (h *AttemptHandler) GetAttempt(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	attempt, err := h.service.GetAttempt(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, h.log, err, "get attempt")
		return
	}

	utils.ResponseSuccess(w, "Booking attempt retrieved", attempt)
}

// SelectRooms handles POST /api/attempts/{id}/rooms
func (h *AttemptHandler) SelectRooms(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.SelectRoomsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	attempt, err := h.service.SelectRooms(r.Context(), userID, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleError(w, h.log, err, "select rooms")
		return
	}

	utils.ResponseSuccess(w, "Rooms selected", attempt)
}

// AddGuests handles PUT /api/attempts/{id}/guests
func (h *AttemptHandler) AddGuests(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.AddGuestsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	attempt, err := h.service.AddGuests(r.Context(), userID, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleError(w, h.log, err, "add guests")
		return
	}

	utils.ResponseSuccess(w, "Guests saved", attempt)
}
