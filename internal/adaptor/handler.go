package adaptor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"resort-booking/internal/dto/request"
	"resort-booking/internal/usecase"
	"resort-booking/pkg/apperror"
	"resort-booking/pkg/utils"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Resort       *ResortHandler
	Availability *AvailabilityHandler
	Attempt      *AttemptHandler
	Payment      *PaymentHandler
	Booking      *BookingHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(service.Auth, log),
		User:         NewUserHandler(service.User, log),
		Resort:       NewResortHandler(service.Resort, log),
		Availability: NewAvailabilityHandler(service.Availability, log),
		Attempt:      NewAttemptHandler(service.Attempt, log),
		Payment:      NewPaymentHandler(service.Payment, log),
		Booking:      NewBookingHandler(service.Booking, log),
	}
}

// decodeJSON reads a JSON body into dst. It writes the 400 itself and
// reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

// handleError renders err by kind. Only internal errors are logged at error
// level; the rest are expected outcomes of client input.
func handleError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	kind := apperror.KindOf(err)
	switch {
	case kind == apperror.KindInternal:
		log.Error("Failed to "+operation, zap.Error(err))
	case errors.Is(err, apperror.ErrProviderUnavailable), errors.Is(err, apperror.ErrProviderTimeout):
		log.Warn(operation+" failed - provider", zap.Error(err))
	default:
		log.Debug(operation+" rejected", zap.String("kind", string(kind)), zap.Error(err))
	}
	utils.ResponseError(w, err)
}

func parseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return result
}

func paginationFrom(r *http.Request) *request.PaginatedRequest {
	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    parseInt(query.Get("page"), 1),
		PerPage: parseInt(query.Get("per_page"), request.DefaultPerPage),
	}
	if req.PerPage > request.MaxPerPage {
		req.PerPage = request.MaxPerPage
	}
	return req
}
