package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rcliao/hye-memory/internal/model"
)

// Sweep forgets records that are both stale and rarely used: last accessed
// before now-ageThreshold and used fewer than usageFloor times. Each one is
// unindexed and unmapped first, then archived and deleted. Records archived
// by one sweep share a batch id. ageThreshold <= 0 and usageFloor < 0 take
// the configured policy.
func (s *Service) Sweep(ctx context.Context, ageThreshold time.Duration, usageFloor int) (int, error) {
	if ageThreshold <= 0 {
		ageThreshold = s.retention.AgeThreshold
	}
	if usageFloor < 0 {
		usageFloor = s.usageFloor
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ageThreshold)
	candidates, err := s.store.Forgettable(ctx, cutoff, usageFloor)
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	batch := uuid.NewString()
	forgotten := 0
	for _, rec := range candidates {
		if err := s.unindex(ctx, rec.ID); err != nil {
			return forgotten, fmt.Errorf("sweep: unindex %s: %w", rec.ID, err)
		}
		if err := s.store.ArchiveAndDelete(ctx, rec.ID, model.ArchiveRetention, batch); err != nil {
			return forgotten, fmt.Errorf("sweep: archive %s: %w", rec.ID, err)
		}
		forgotten++
	}
	s.log.Info("retention sweep", "batch", batch, "forgotten", forgotten,
		"cutoff", cutoff.UTC().Format(time.RFC3339), "usage_floor", usageFloor)
	return forgotten, nil
}

// RunRetention sweeps with the configured policy immediately and then every
// interval until ctx is done. Sweep errors are logged and do not stop the
// loop. interval <= 0 uses the configured interval.
func (s *Service) RunRetention(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = s.retention.Interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx, s.retention.AgeThreshold, s.usageFloor); err != nil {
			s.log.Error("retention sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Archive moves one record to cold storage regardless of its age or usage.
// The record is unindexed first, then archived with the manual reason.
func (s *Service) Archive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.unindex(ctx, id); err != nil {
		return fmt.Errorf("archive %s: unindex: %w", id, err)
	}
	if err := s.store.ArchiveAndDelete(ctx, id, model.ArchiveManual, ""); err != nil {
		return fmt.Errorf("archive %s: %w", id, err)
	}
	s.log.Info("memory archived", "id", id, "reason", model.ArchiveManual)
	return nil
}
