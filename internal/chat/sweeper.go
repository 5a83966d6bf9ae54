package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/parley-chat/parley/internal/metrics"
	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/store"
)

// Sweeper evicts participants whose presence went stale and records their
// departure. It is driven either by Run's ticker or directly through RunOnce,
// which tests call synchronously.
type Sweeper struct {
	store     store.DataStore
	logger    zerolog.Logger
	interval  time.Duration
	threshold time.Duration
}

// NewSweeper creates a Sweeper. interval is the period between passes,
// threshold the inactivity duration after which a participant is evicted.
func NewSweeper(st store.DataStore, logger zerolog.Logger, interval, threshold time.Duration) *Sweeper {
	return &Sweeper{store: st, logger: logger, interval: interval, threshold: threshold}
}

// Run sweeps on a fixed interval until ctx is cancelled. Failures are logged
// and never surfaced; no request waits on the sweeper.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("sweep failed")
			}
		}
	}
}

// RunOnce performs a single sweep cycle and returns the number of evicted
// participants. Departure notices are built from the same snapshot that
// precedes the delete. A participant refreshing between the snapshot read
// and the delete may still be evicted; the sweep is best-effort, not
// linearizable.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	cutoff := start.Add(-s.threshold)

	stale, err := s.store.ListStaleParticipants(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	departures := make([]models.Message, len(stale))
	for i, p := range stale {
		departures[i] = statusMessage(p.Name, "left", start)
	}
	if err := s.store.InsertMessages(ctx, departures); err != nil {
		// The eviction still proceeds; a missing departure notice is an
		// accepted gap.
		s.logger.Warn().Err(err).Int("count", len(departures)).Msg("departure notices not recorded")
	}

	deleted, err := s.store.DeleteStaleParticipants(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	metrics.ParticipantsEvicted.Add(float64(deleted))
	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	s.logger.Info().Int64("evicted", deleted).Msg("sweep completed")
	return int(deleted), nil
}
