package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/smallbiznis/launchpad/internal/repository"
)

// Sweeper periodically purges refresh tokens past their expiry. Rows are
// removed regardless of revocation state: an expired token can no longer be
// exchanged, and revocation history is kept in audit_logs instead. The sweep
// never touches unexpired rows, so it cannot interfere with a live rotation.
type Sweeper struct {
	tokens   repository.TokenRepository
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper creates a sweeper with the configured interval.
func NewSweeper(tokens repository.TokenRepository, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Sweeper{tokens: tokens, interval: interval, logger: logger}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Sweep removes expired tokens once and returns the number of rows deleted.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx, time.Now().UTC())
}

func (s *Sweeper) sweep(ctx context.Context) {
	removed, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error("token cleanup failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("expired refresh tokens removed", zap.Int64("count", removed))
	}
}
