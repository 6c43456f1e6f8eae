package adaptor

import (
	"net/http"

	"resort-booking/internal/dto/request"
	"resort-booking/internal/usecase"
	"resort-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ResortHandler struct {
	service usecase.ResortService
	log     *zap.Logger
}

func NewResortHandler(service usecase.ResortService, log *zap.Logger) *ResortHandler {
	return &ResortHandler{
		service: service,
		log:     log.With(zap.String("handler", "resort")),
	}
}

// GetAllResorts handles GET /api/resorts
func (h *ResortHandler) GetAllResorts(w http.ResponseWriter, r *http.Request) {
	resorts, err := h.service.GetAllResorts(r.Context(), paginationFrom(r))
	if err != nil {
		handleError(w, h.log, err, "get all resorts")
		return
	}

	utils.ResponseSuccess(w, "Resorts retrieved successfully", resorts)
}

// GetResortByID handles GET /api/resorts/{id}
func (h *ResortHandler) GetResortByID(w http.ResponseWriter, r *http.Request) {
	resort, err := h.service.GetResortByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, h.log, err, "get resort")
		return
	}

	utils.ResponseSuccess(w, "Resort retrieved successfully", resort)
}

// CreateResort handles POST /api/admin/resorts
func (h *ResortHandler) CreateResort(w http.ResponseWriter, r *http.Request) {
	var req request.CreateResortRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resort, err := h.service.CreateResort(r.Context(), &req)
	if err != nil {
		handleError(w, h.log, err, "create resort")
		return
	}

	utils.ResponseCreated(w, "Resort created successfully", resort)
}

// UpdateResort handles PUT /api/admin/resorts/{id}
func (h *ResortHandler) UpdateResort(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateResortRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resort, err := h.service.UpdateResort(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleError(w, h.log, err, "update resort")
		return
	}

	utils.ResponseSuccess(w, "Resort updated successfully", resort)
}

// DeleteResort handles DELETE /api/admin/resorts/{id}
func (h *ResortHandler) DeleteResort(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteResort(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, h.log, err, "delete resort")
		return
	}

	utils.ResponseSuccess(w, "Resort deleted successfully", nil)
}

// GetRooms handles GET /api/admin/resorts/{id}/rooms
func (h *ResortHandler) GetRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.GetRooms(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, h.log, err, "get rooms")
		return
	}

	utils.ResponseSuccess(w, "Rooms retrieved successfully", rooms)
}

// CreateRoom handles POST /api/admin/resorts/{id}/rooms
func (h *ResortHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req request.CreateRoomRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	room, err := h.service.CreateRoom(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleError(w, h.log, err, "create room")
		return
	}

	utils.ResponseCreated(w, "Room created successfully", room)
}

// UpdateRoom handles PUT /api/admin/resorts/{id}/rooms/{roomID}
func (h *ResortHandler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateRoomRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	room, err := h.service.UpdateRoom(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "roomID"), &req)
	if err != nil {
		handleError(w, h.log, err, "update room")
		return
	}

	utils.ResponseSuccess(w, "Room updated successfully", room)
}
