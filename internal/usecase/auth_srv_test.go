package usecase

import (
	"context"
	"testing"
	"time"

	"resort-booking/internal/data/entity"
	"resort-booking/internal/dto/request"
	"resort-booking/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type authFixture struct {
	*fixture
	auth AuthService
	logs *observer.ObservedLogs
}

func newAuthFixture(t *testing.T) *authFixture {
	f := newFixture(t)
	core, logs := observer.New(zapcore.InfoLevel)
	return &authFixture{
		fixture: f,
		auth:    NewAuthService(f.store.Repository(), testConfig(), f.clock.Now, zap.New(core)),
		logs:    logs,
	}
}

// requestCode asks for an OTP and reads the code back from the log.
func (f *authFixture) requestCode(t *testing.T, phone string) string {
	t.Helper()
	_, err := f.auth.RequestOTP(context.Background(), &request.RequestOTPRequest{Phone: phone})
	require.NoError(t, err)

	entries := f.logs.FilterMessage("OTP generated").FilterField(zap.String("phone", phone)).All()
	require.NotEmpty(t, entries)
	code, ok := entries[len(entries)-1].ContextMap()["otp_code"].(string)
	require.True(t, ok)
	return code
}

func (f *authFixture) verify(phone, code string) (string, error) {
	resp, err := f.auth.VerifyOTP(context.Background(), &request.VerifyOTPRequest{Phone: phone, Code: code}, ClientInfo{UserAgent: "test"})
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

func TestVerifyOTP_RegistersNewUser(t *testing.T) {
	f := newAuthFixture(t)
	phone := "+919811111111"
	code := f.requestCode(t, phone)

	resp, err := f.auth.VerifyOTP(context.Background(), &request.VerifyOTPRequest{Phone: phone, Code: code}, ClientInfo{})
	require.NoError(t, err)

	assert.True(t, resp.IsNewUser)
	assert.Equal(t, phone, resp.Phone)
	assert.Equal(t, entity.RoleCustomer, resp.Role)
	assert.Equal(t, testStart.Add(24*time.Hour), resp.ExpiresAt)

	// the code is single use
	_, err = f.verify(phone, code)
	assert.ErrorIs(t, err, errInvalidOTP)
}

func TestVerifyOTP_ExistingUser(t *testing.T) {
	f := newAuthFixture(t)
	code := f.requestCode(t, f.alice.Phone)

	resp, err := f.auth.VerifyOTP(context.Background(), &request.VerifyOTPRequest{Phone: f.alice.Phone, Code: code}, ClientInfo{})
	require.NoError(t, err)
	assert.False(t, resp.IsNewUser)
	assert.Equal(t, f.alice.ID.String(), resp.UserID)
}

func TestVerifyOTP_NewCodeReplacesOld(t *testing.T) {
	f := newAuthFixture(t)
	old := f.requestCode(t, f.alice.Phone)
	f.clock.Advance(time.Second)
	fresh := f.requestCode(t, f.alice.Phone)

	if old != fresh {
		_, err := f.verify(f.alice.Phone, old)
		assert.ErrorIs(t, err, errInvalidOTP)
	}
	_, err := f.verify(f.alice.Phone, fresh)
	assert.NoError(t, err)
}

func TestVerifyOTP_LocksAfterMaxAttempts(t *testing.T) {
	f := newAuthFixture(t)
	code := f.requestCode(t, f.alice.Phone)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < 3; i++ {
		_, err := f.verify(f.alice.Phone, wrong)
		assert.Equal(t, apperror.KindUnauthorized, apperror.KindOf(err))
	}

	_, err := f.verify(f.alice.Phone, code)
	assert.ErrorIs(t, err, errInvalidOTP)
}

func TestVerifyOTP_Expired(t *testing.T) {
	f := newAuthFixture(t)
	code := f.requestCode(t, f.alice.Phone)
	f.clock.Advance(6 * time.Minute)

	_, err := f.verify(f.alice.Phone, code)
	assert.ErrorIs(t, err, errInvalidOTP)
}

func TestVerifyOTP_InactiveUser(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.User.SetActive(context.Background(), f.bob.ID.String(), &request.SetUserActiveRequest{IsActive: false})
	require.NoError(t, err)

	code := f.requestCode(t, f.bob.Phone)
	_, err = f.verify(f.bob.Phone, code)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestRequestOTP_Validation(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.auth.RequestOTP(context.Background(), &request.RequestOTPRequest{Phone: "98000"})
	assert.Contains(t, fieldsOf(t, err), "phone")
}

func TestResolveSessionAndLogout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	token, err := f.verify(f.alice.Phone, f.requestCode(t, f.alice.Phone))
	require.NoError(t, err)

	info, err := f.auth.ResolveSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, info.UserID)
	assert.Equal(t, "customer", info.Role)

	require.NoError(t, f.auth.Logout(ctx, token))

	_, err = f.auth.ResolveSession(ctx, token)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	assert.ErrorIs(t, f.auth.Logout(ctx, token), apperror.ErrUnauthorized)
}

func TestResolveSession_Rejects(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.ResolveSession(ctx, "not-a-token")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = f.auth.ResolveSession(ctx, uuid.NewString())
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	token, err := f.verify(f.alice.Phone, f.requestCode(t, f.alice.Phone))
	require.NoError(t, err)
	f.clock.Advance(25 * time.Hour)

	_, err = f.auth.ResolveSession(ctx, token)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestCleanupExpired(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.verify(f.alice.Phone, f.requestCode(t, f.alice.Phone))
	require.NoError(t, err)
	f.requestCode(t, f.bob.Phone)

	f.clock.Advance(48 * time.Hour)

	n, err := f.auth.CleanupExpired(context.Background())
	require.NoError(t, err)
	// alice's session and both codes
	assert.Equal(t, int64(3), n)
}
