package sweeper

import (
	"context"
	"fmt"
	"time"

	"ms-checkout/internal/logger"
)

// Store is the single store call the sweeper needs.
type Store interface {
	ReleaseExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper reclaims spots left reserved by checkouts that died before
// compensating: quantity comes back and the dead saga's ledger rows go
// away. It never touches a spot with an order id, so running it alongside
// live checkouts is safe; the worst case is a false reclaim of a very
// slow but alive checkout, which is accepted.
type Sweeper struct {
	DB       Store
	Interval time.Duration
	Grace    time.Duration
	logger   *logger.Logger
}

func New(db Store, interval, grace time.Duration, log *logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	if grace <= 0 {
		grace = 5 * time.Minute
	}
	return &Sweeper{DB: db, Interval: interval, Grace: grace, logger: log}
}

// SweepOnce releases every reservation older than the grace window and
// returns how many spots went back on sale.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.Grace)
	released, err := s.DB.ReleaseExpired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to release expired reservations: %w", err)
	}
	if released > 0 {
		s.logger.LogSweeper(fmt.Sprintf("released %d expired reservations", released))
	}
	return released, nil
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.LogSweeper(fmt.Sprintf("sweeping every %s with a %s grace window", s.Interval, s.Grace))

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.LogSweeper("stopping")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("SWEEPER", err.Error())
			}
		}
	}
}
