package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesOnKind(t *testing.T) {
	err := Newf(KindRoomUnavailable, "room %s is booked", "D1")

	assert.ErrorIs(t, err, ErrRoomUnavailable)
	assert.NotErrorIs(t, err, ErrInsufficientCapacity)
}

func TestError_IsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("select rooms: %w", ErrAttemptExpired)

	assert.ErrorIs(t, err, ErrAttemptExpired)
	assert.Equal(t, KindAttemptExpired, KindOf(err))
}

func TestKindOf_PlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, ErrInternal, From(errors.New("boom")))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Wrap(KindProviderUnavailable, "provider down", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "dial tcp")
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindInvalidDateRange, http.StatusBadRequest},
		{KindSignatureInvalid, http.StatusBadRequest},
		{KindAttemptNotFound, http.StatusNotFound},
		{KindPaymentNotFound, http.StatusNotFound},
		{KindAttemptExpired, http.StatusGone},
		{KindAttemptNotPending, http.StatusConflict},
		{KindRoomUnavailable, http.StatusConflict},
		{KindInsufficientCapacity, http.StatusConflict},
		{KindProviderUnavailable, http.StatusBadGateway},
		{KindProviderTimeout, http.StatusGatewayTimeout},
		{KindForbidden, http.StatusForbidden},
		{KindRateLimited, http.StatusTooManyRequests},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.kind))
		})
	}
}

func TestValidation_CarriesFields(t *testing.T) {
	err := Validation(map[string]string{"guests[0].name": "This field is required"})

	assert.Equal(t, KindValidation, err.Kind)
	assert.Equal(t, "This field is required", err.Fields["guests[0].name"])
}
