package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/senyabanana/surplus-market/internal/metrics"
	"github.com/senyabanana/surplus-market/internal/repository"
)

// ExpirySweeper moves Pending contact requests older than TTL to Expired.
type ExpirySweeper struct {
	Requests repository.ContactRequestRepository
	TTL      time.Duration
	Interval time.Duration
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	now      func() time.Time
}

// NewExpirySweeper creates a sweeper.
func NewExpirySweeper(requests repository.ContactRequestRepository, ttl, interval time.Duration, m *metrics.Metrics, log *zap.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		Requests: requests,
		TTL:      ttl,
		Interval: interval,
		Metrics:  m,
		Logger:   log,
		now:      time.Now,
	}
}

// Sweep runs one expiry pass and returns the number of expired requests.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int64, error) {
	now := s.now()
	n, err := s.Requests.ExpirePending(ctx, now.Add(-s.TTL), now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Metrics.ContactRequestsExpired.Add(float64(n))
		s.Logger.Info("expired pending contact requests", zap.Int64("count", n))
	}
	return n, nil
}

// Run sweeps once immediately and then every Interval until ctx is cancelled.
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.Logger.Error("contact request expiry failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
