// Package scheduler runs the periodic housekeeping jobs: expiring stale
// booking attempts and purging dead sessions and OTPs.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultBatch    = 500
	defaultInterval = time.Minute
)

type attemptExpirer interface {
	ExpireDue(ctx context.Context, limit int) ([]uuid.UUID, error)
}

type credentialCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

type Sweeper struct {
	attempts attemptExpirer
	auth     credentialCleaner
	interval time.Duration
	batch    int
	log      *zap.Logger
}

func NewSweeper(attempts attemptExpirer, auth credentialCleaner, interval time.Duration, log *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Sweeper{
		attempts: attempts,
		auth:     auth,
		interval: interval,
		batch:    defaultBatch,
		log:      log.With(zap.String("component", "sweeper")),
	}
}

// Start blocks until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("Sweeper started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Sweeper stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	expired, err := s.attempts.ExpireDue(ctx, s.batch)
	if err != nil {
		s.log.Error("Failed to expire booking attempts", zap.Error(err))
	}
	for _, id := range expired {
		s.log.Info("Booking attempt expired", zap.String("attempt_id", id.String()))
	}

	if s.auth == nil {
		return
	}
	purged, err := s.auth.CleanupExpired(ctx)
	if err != nil {
		s.log.Error("Failed to clean up expired credentials", zap.Error(err))
		return
	}
	if purged > 0 {
		s.log.Debug("Expired credentials purged", zap.Int64("count", purged))
	}
}
