package usecase

import (
	"context"
	"fmt"
	"time"

	"resort-booking/internal/data/entity"
	"resort-booking/internal/data/repository"
	"resort-booking/internal/dto/request"
	"resort-booking/internal/dto/response"
	"resort-booking/pkg/apperror"
	"resort-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService interface {
	RequestOTP(ctx context.Context, req *request.RequestOTPRequest) (*response.OTPRequestedResponse, error)
	VerifyOTP(ctx context.Context, req *request.VerifyOTPRequest, client ClientInfo) (*response.AuthResponse, error)
	Logout(ctx context.Context, token string) error

	// ResolveSession maps a bearer token to the caller, for the auth middleware.
	ResolveSession(ctx context.Context, token string) (*utils.SessionInfo, error)
	// CleanupExpired purges expired sessions and OTPs.
	CleanupExpired(ctx context.Context) (int64, error)
}

// ClientInfo is recorded on the session created at login.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

var errInvalidOTP = apperror.New(apperror.KindUnauthorized, "invalid or expired OTP")

type authService struct {
	repo   *repository.Repository // user, session and otp
	config *utils.Config
	now    Clock
	log    *zap.Logger
}

func NewAuthService(repo *repository.Repository, config *utils.Config, now Clock, log *zap.Logger) AuthService {
	return &authService{
		repo:   repo,
		config: config,
		now:    now,
		log:    log.With(zap.String("service", "auth")),
	}
}

func (s *authService) RequestOTP(ctx context.Context, req *request.RequestOTPRequest) (*response.OTPRequestedResponse, error) {
	// 1. Validate
	if err := validate(req); err != nil {
		s.log.Warn("Request OTP validation failed", zap.Error(err))
		return nil, err
	}

	// 2. Older codes stop working once a new one is issued
	if err := s.repo.OTP.InvalidateForPhone(ctx, req.Phone); err != nil {
		return nil, fmt.Errorf("invalidate otp: %w", err)
	}

	// 3. Generate and store only the hash
	code, err := utils.GenerateOTP(s.config.OTP.Length)
	if err != nil {
		return nil, err
	}
	hash, err := utils.HashSecret(code)
	if err != nil {
		return nil, fmt.Errorf("hash otp: %w", err)
	}

	now := s.now()
	otp := &entity.OTP{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
		Phone:      req.Phone,
		CodeHash:   hash,
		ExpiresAt:  now.Add(s.otpTTL()),
	}
	if err := s.repo.OTP.Create(ctx, otp); err != nil {
		return nil, fmt.Errorf("save otp: %w", err)
	}

	// 4. Deliver. SMS is out of process; development reads it from the log.
	s.log.Info("OTP generated",
		zap.String("phone", req.Phone),
		zap.String("otp_code", code),
		zap.Time("expires_at", otp.ExpiresAt),
	)

	return &response.OTPRequestedResponse{Phone: req.Phone, ExpiresAt: otp.ExpiresAt}, nil
}

func (s *authService) VerifyOTP(ctx context.Context, req *request.VerifyOTPRequest, client ClientInfo) (*response.AuthResponse, error) {
	// 1. Validate
	if err := validate(req); err != nil {
		return nil, err
	}

	// 2. Find the latest code and check it
	otp, err := s.repo.OTP.FindLatestUnused(ctx, req.Phone)
	if err != nil {
		return nil, fmt.Errorf("find otp: %w", err)
	}
	now := s.now()
	if otp == nil || !otp.IsUsable(now, s.maxAttempts()) {
		s.log.Warn("No usable OTP", zap.String("phone", req.Phone))
		return nil, errInvalidOTP
	}

	if !utils.CheckSecret(otp.CodeHash, req.Code) {
		if err := s.repo.OTP.IncrementAttempts(ctx, otp.ID); err != nil {
			s.log.Warn("Failed to count OTP attempt", zap.Error(err), zap.String("otp_id", otp.ID.String()))
		}
		s.log.Warn("Wrong OTP", zap.String("phone", req.Phone), zap.Int("attempts", otp.Attempts+1))
		return nil, errInvalidOTP
	}

	// 3. Consume the code; a concurrent verify may have won
	used, err := s.repo.OTP.MarkAsUsed(ctx, otp.ID)
	if err != nil {
		return nil, fmt.Errorf("mark otp used: %w", err)
	}
	if !used {
		return nil, errInvalidOTP
	}

	// 4. Find or create the user
	user, isNew, err := s.findOrCreateUser(ctx, req.Phone)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		s.log.Warn("Inactive user tried to login", zap.String("user_id", user.ID.String()))
		return nil, apperror.New(apperror.KindForbidden, "account is deactivated")
	}

	// 5. Create session
	session, err := s.createSession(ctx, user.ID, client)
	if err != nil {
		s.log.Error("Failed to create session", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info("User logged in", zap.String("user_id", user.ID.String()), zap.Bool("new_user", isNew))

	resp := response.AuthToResponse(user, session, isNew)
	return &resp, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	tokenUUID, err := uuid.Parse(token)
	if err != nil {
		return apperror.ErrUnauthorized
	}

	if err := s.repo.Session.Revoke(ctx, tokenUUID); err != nil {
		s.log.Warn("Failed to revoke session", zap.Error(err))
		return apperror.ErrUnauthorized
	}

	s.log.Info("User logged out")
	return nil
}

func (s *authService) ResolveSession(ctx context.Context, token string) (*utils.SessionInfo, error) {
	tokenUUID, err := uuid.Parse(token)
	if err != nil {
		return nil, apperror.ErrUnauthorized
	}

	session, err := s.repo.Session.FindValidSession(ctx, tokenUUID)
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if session == nil {
		return nil, apperror.New(apperror.KindUnauthorized, "invalid or expired session")
	}

	user, err := s.repo.User.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("find session user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, apperror.New(apperror.KindUnauthorized, "account is not active")
	}

	return &utils.SessionInfo{UserID: user.ID, Role: string(user.Role), Token: token}, nil
}

func (s *authService) CleanupExpired(ctx context.Context) (int64, error) {
	now := s.now()

	sessions, err := s.repo.Session.CleanExpiredSessions(ctx, now)
	if err != nil {
		return 0, err
	}
	otps, err := s.repo.OTP.DeleteExpired(ctx, now.Add(-time.Hour))
	if err != nil {
		return sessions, err
	}
	return sessions + otps, nil
}

// ==================== HELPER METHODS ====================

func (s *authService) findOrCreateUser(ctx context.Context, phone string) (*entity.User, bool, error) {
	user, err := s.repo.User.FindByPhone(ctx, phone)
	if err != nil {
		return nil, false, fmt.Errorf("find user: %w", err)
	}
	if user != nil {
		return user, false, nil
	}

	now := s.now()
	user = &entity.User{
		Base:     entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Phone:    phone,
		Role:     entity.RoleCustomer,
		IsActive: true,
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		if !repository.IsUniqueViolation(err) {
			return nil, false, fmt.Errorf("create user: %w", err)
		}
		// Registered concurrently by another verify for the same phone
		existing, err := s.repo.User.FindByPhone(ctx, phone)
		if err != nil || existing == nil {
			return nil, false, fmt.Errorf("find user after conflict: %w", err)
		}
		return existing, false, nil
	}

	s.log.Info("User registered", zap.String("user_id", user.ID.String()))
	return user, true, nil
}

func (s *authService) createSession(ctx context.Context, userID uuid.UUID, client ClientInfo) (*entity.Session, error) {
	hours := s.config.Session.ExpiryHours
	if hours <= 0 {
		hours = 24
	}

	now := s.now()
	session := &entity.Session{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
		UserID:     userID,
		Token:      utils.GenerateSessionToken(),
		UserAgent:  strPtr(client.UserAgent),
		IPAddress:  strPtr(client.IPAddress),
		ExpiresAt:  now.Add(time.Duration(hours) * time.Hour),
	}

	if err := s.repo.Session.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *authService) otpTTL() time.Duration {
	if s.config.OTP.ExpiryMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.config.OTP.ExpiryMinutes) * time.Minute
}

func (s *authService) maxAttempts() int {
	if s.config.OTP.MaxAttempts <= 0 {
		return 5
	}
	return s.config.OTP.MaxAttempts
}
