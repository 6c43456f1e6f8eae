package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"resort-booking/internal/data/entity"
	"resort-booking/internal/data/repository/memrepo"
	"resort-booking/internal/dto/response"
	"resort-booking/internal/payment"
	"resort-booking/pkg/apperror"
	"resort-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type envelope[T any] struct {
	Status  bool              `json:"status"`
	Message string            `json:"message"`
	Kind    string            `json:"kind"`
	Data    T                 `json:"data"`
	Errors  map[string]string `json:"errors"`
}

type testApp struct {
	app     *App
	store   *memrepo.Store
	gateway *payment.Sandbox
	logs    *observer.ObservedLogs
	resort  *entity.Resort
	rooms   []*entity.Room
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	core, logs := observer.New(zapcore.InfoLevel)
	store := memrepo.New()
	resort, rooms := store.SeedResort("Coral Bay", "Candolim, Goa",
		entity.Room{RoomNumber: "D1", Capacity: 2, PricePerNight: 15000},
		entity.Room{RoomNumber: "S1", Capacity: 4, PricePerNight: 25000},
	)
	gateway := payment.NewSandbox("router-secret")

	app, err := Wiring(Deps{
		Repo:    store.Repository(),
		Gateway: gateway,
		Config: &utils.Config{
			Session:   utils.SessionConfig{ExpiryHours: 24},
			OTP:       utils.OTPConfig{ExpiryMinutes: 5, Length: 6, MaxAttempts: 5},
			Booking:   utils.BookingConfig{AttemptTTLMinutes: 30},
			Payment:   utils.PaymentConfig{Provider: "sandbox", Currency: "INR", TimeoutSeconds: 5},
			RateLimit: utils.RateLimitConfig{OTP: "4-M", Payment: "20-M"},
		},
		Logger: zap.New(core),
	})
	require.NoError(t, err)

	return &testApp{app: app, store: store, gateway: gateway, logs: logs, resort: resort, rooms: rooms}
}

func call[T any](t *testing.T, ta *testApp, method, path, token string, body any) (int, envelope[T]) {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ta.app.Router.ServeHTTP(rec, req)

	var out envelope[T]
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

// login runs the OTP flow, reading the code from the log.
func (ta *testApp) login(t *testing.T, phone string) string {
	t.Helper()

	code, _ := call[any](t, ta, http.MethodPost, "/api/auth/otp/request", "", map[string]string{"phone": phone})
	require.Equal(t, http.StatusOK, code)

	entries := ta.logs.FilterMessage("OTP generated").FilterField(zap.String("phone", phone)).All()
	require.NotEmpty(t, entries)
	otp := entries[len(entries)-1].ContextMap()["otp_code"].(string)

	code, resp := call[response.AuthResponse](t, ta, http.MethodPost, "/api/auth/otp/verify", "",
		map[string]string{"phone": phone, "code": otp})
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, resp.Data.Token)
	return resp.Data.Token
}

// adminToken seeds an admin with a live session.
func (ta *testApp) adminToken(t *testing.T) string {
	t.Helper()
	admin := ta.store.SeedUser("+919800000099", entity.RoleAdmin, nil)
	token := uuid.New()
	err := ta.store.Repository().Session.Create(context.Background(), &entity.Session{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: time.Now()},
		UserID:     admin.ID,
		Token:      token,
		ExpiresAt:  time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	return token.String()
}

func futureStay() (string, string) {
	in := time.Now().UTC().AddDate(0, 1, 0)
	return in.Format(utils.DateLayout), in.AddDate(0, 0, 2).Format(utils.DateLayout)
}

func TestRouter_Health(t *testing.T) {
	ta := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	ta.app.Router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestRouter_BookingFlow(t *testing.T) {
	ta := newTestApp(t)
	token := ta.login(t, "+919800000001")
	checkIn, checkOut := futureStay()
	suite := ta.rooms[1]

	code, avail := call[response.AvailabilityResponse](t, ta, http.MethodGet,
		"/api/resorts/"+ta.resort.ID.String()+"/availability?check_in="+checkIn+"&check_out="+checkOut+"&guests=3", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, avail.Data.Suggested)

	code, attempt := call[response.AttemptResponse](t, ta, http.MethodPost, "/api/attempts", token, map[string]any{
		"resort_id":   ta.resort.ID.String(),
		"check_in":    checkIn,
		"check_out":   checkOut,
		"guest_count": 3,
	})
	require.Equal(t, http.StatusCreated, code)
	attemptPath := "/api/attempts/" + attempt.Data.ID

	code, attempt = call[response.AttemptResponse](t, ta, http.MethodPost, attemptPath+"/rooms", token,
		map[string]any{"room_ids": []string{suite.ID.String()}})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "500.00", attempt.Data.Amount)

	code, _ = call[response.AttemptResponse](t, ta, http.MethodPut, attemptPath+"/guests", token, map[string]any{
		"guests": []map[string]any{
			{"name": "Asha", "age": 34, "room_id": suite.ID.String()},
			{"name": "Ravi", "age": 36, "room_id": suite.ID.String()},
			{"name": "Mira", "age": 6, "room_id": suite.ID.String()},
		},
	})
	require.Equal(t, http.StatusOK, code)

	code, checkout := call[response.CheckoutResponse](t, ta, http.MethodPost, attemptPath+"/payment", token, nil)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, int64(50000), checkout.Data.Payment.AmountMinor)

	ref := checkout.Data.Payment.ProviderReference
	code, result := call[response.ReconcileResponse](t, ta, http.MethodPost, "/api/payments/verify", token, map[string]string{
		"razorpay_order_id":   ref,
		"razorpay_payment_id": "pay_router_1",
		"razorpay_signature":  ta.gateway.SignPayment(ref, "pay_router_1"),
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, entity.PaymentStatusSuccess, result.Data.PaymentStatus)
	assert.Equal(t, entity.AttemptStatusCompleted, result.Data.AttemptStatus)
	require.NotNil(t, result.Data.BookingID)
	assert.False(t, result.Data.RefundRequired)

	code, detail := call[response.BookingDetailResponse](t, ta, http.MethodGet, "/api/user/bookings/"+*result.Data.BookingID, token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, detail.Data.Guests, 3)
}

func TestRouter_ErrorMapping(t *testing.T) {
	ta := newTestApp(t)
	token := ta.login(t, "+919800000002")

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       any
		wantStatus int
		wantKind   apperror.Kind
	}{
		{"no session", http.MethodGet, "/api/user/bookings", "", nil, http.StatusUnauthorized, apperror.KindUnauthorized},
		{"unknown attempt", http.MethodGet, "/api/attempts/" + uuid.NewString(), token, nil, http.StatusNotFound, apperror.KindAttemptNotFound},
		{"customer on admin route", http.MethodGet, "/api/admin/bookings", token, nil, http.StatusForbidden, apperror.KindForbidden},
		{"unsigned webhook", http.MethodPost, "/api/payments/webhook", "", map[string]string{"event": "payment.captured"}, http.StatusBadRequest, apperror.KindSignatureInvalid},
		{"reversed dates", http.MethodGet, "/api/resorts/" + ta.resort.ID.String() + "/availability?check_in=2031-01-05&check_out=2031-01-02&guests=2", "", nil, http.StatusBadRequest, apperror.KindInvalidDateRange},
		{"invalid body", http.MethodPost, "/api/attempts", token, "not an object", http.StatusBadRequest, apperror.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := call[any](t, ta, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, code)
			assert.Equal(t, string(tt.wantKind), body.Kind)
			assert.False(t, body.Status)
		})
	}
}

func TestRouter_AdminCreatesResort(t *testing.T) {
	ta := newTestApp(t)
	token := ta.adminToken(t)

	code, resort := call[response.ResortResponse](t, ta, http.MethodPost, "/api/admin/resorts", token, map[string]string{
		"name":     "Palm Grove",
		"location": "Kovalam, Kerala",
	})
	require.Equal(t, http.StatusCreated, code)

	code, room := call[response.RoomResponse](t, ta, http.MethodPost, "/api/admin/resorts/"+resort.Data.ID+"/rooms", token, map[string]any{
		"room_number":     "V1",
		"capacity":        3,
		"price_per_night": "180.00",
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "180.00", room.Data.PricePerNight)
}

func TestRouter_OTPRateLimited(t *testing.T) {
	ta := newTestApp(t)

	for i := 0; i < 4; i++ {
		code, _ := call[any](t, ta, http.MethodPost, "/api/auth/otp/request", "", map[string]string{"phone": "+919800000003"})
		require.Equal(t, http.StatusOK, code)
	}

	code, body := call[any](t, ta, http.MethodPost, "/api/auth/otp/request", "", map[string]string{"phone": "+919800000003"})
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, string(apperror.KindRateLimited), body.Kind)
}
