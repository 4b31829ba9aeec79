package tokens

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/authkit/pkg/logger"
)

// Sweeper periodically purges dead refresh-token rows. It is safe to run
// alongside every other token operation because the purge only touches
// rows already past expiry plus grace.
type Sweeper struct {
	svc      *Service
	interval time.Duration
	log      *slog.Logger
}

func NewSweeper(svc *Service, interval time.Duration, log *slog.Logger) *Sweeper {
	if svc == nil {
		panic("tokens: service cannot be nil")
	}
	if interval <= 0 {
		interval = time.Hour
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Sweeper{svc: svc, interval: interval, log: log}
}

// Run sweeps on the configured interval until the context is cancelled.
// Intended to be started as a goroutine from process setup.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.svc.PurgeExpired(ctx)
			if err != nil {
				s.log.ErrorContext(ctx, "refresh token purge failed",
					logger.Error(err), logger.Component("tokens"))
				continue
			}
			if n > 0 {
				s.log.InfoContext(ctx, "purged expired refresh tokens",
					slog.Int64("count", n), logger.Component("tokens"))
			}
		}
	}
}
