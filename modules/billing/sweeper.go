package billing

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/nakulaynzocto/safein-backend-sub000/pkg/subscription"
)

const defaultSweepInterval = time.Hour

// Sweeper periodically transitions lapsed subscriptions to expired. The
// sweep is idempotent and the interval is jittered, so running one sweeper
// per replica is safe.
type Sweeper struct {
	svc      subscription.Service
	interval time.Duration
	logger   *slog.Logger
}

// SweeperOption configures the sweeper.
type SweeperOption func(*Sweeper)

// WithSweepInterval overrides the sweep interval.
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSweeperLogger sets the sweeper logger.
func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSweeper creates an expiry sweeper. Panics on a nil service.
func NewSweeper(svc subscription.Service, opts ...SweeperOption) *Sweeper {
	if svc == nil {
		panic("billing: subscription service is required")
	}

	s := &Sweeper{
		svc:      svc,
		interval: defaultSweepInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps until the context is canceled. Each wait is jittered by up to
// 10% so replicas started together do not sweep in lockstep.
func (s *Sweeper) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.jittered()):
		}

		n, err := s.svc.ProcessExpired(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.ErrorContext(ctx, "expiry sweep failed", slog.Any("error", err))
			continue
		}
		if n > 0 {
			s.logger.InfoContext(ctx, "expiry sweep completed", slog.Int64("expired", n))
		}
	}
}

func (s *Sweeper) jittered() time.Duration {
	tenth := int64(s.interval) / 10
	if tenth <= 0 {
		return s.interval
	}
	return s.interval + time.Duration(rand.Int64N(tenth))
}
