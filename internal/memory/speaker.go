package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rcliao/hye-memory/internal/model"
)

// InterestTags returns the speaker's topN most frequent tags, most frequent
// first. Equal counts keep first-seen order. topN <= 0 means 5.
func (s *Service) InterestTags(ctx context.Context, speakerID string, topN int) ([]string, error) {
	if topN <= 0 {
		topN = DefaultInterestTopN
	}
	if speakerID == "" {
		return nil, errors.New("interest tags: speaker id is required")
	}

	s.mu.RLock()
	recs, err := s.store.FindBySpeaker(ctx, s.gate.Pseudonymize(speakerID))
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("interest tags: %w", err)
	}
	return topTags(recs, topN), nil
}

func topTags(recs []model.Record, topN int) []string {
	counts := map[string]int{}
	var order []string
	for _, r := range recs {
		for _, t := range r.Tags {
			if _, seen := counts[t]; !seen {
				order = append(order, t)
			}
			counts[t]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > topN {
		order = order[:topN]
	}
	return order
}

// ForgetSpeaker deletes every memory of a speaker and returns how many were
// removed. Index entries and mappings go first; the records are then deleted
// in one statement without archiving. If that statement fails the records
// survive un-indexed and stay reachable through text and tag search.
func (s *Service) ForgetSpeaker(ctx context.Context, speakerID string) (int, error) {
	if speakerID == "" {
		return 0, errors.New("forget speaker: speaker id is required")
	}
	ref := s.gate.Pseudonymize(speakerID)

	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.store.FindBySpeaker(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("forget speaker: %w", err)
	}
	for _, rec := range recs {
		if err := s.unindex(ctx, rec.ID); err != nil {
			return 0, fmt.Errorf("forget speaker: unindex %s: %w", rec.ID, err)
		}
	}
	n, err := s.store.DeleteBySpeaker(ctx, ref)
	if err != nil {
		return 0, fmt.Errorf("forget speaker: %w", err)
	}
	s.log.Info("speaker forgotten", "speaker_ref", ref[:12], "deleted", n)
	return n, nil
}

// Export returns every memory, or one speaker's, decrypted.
func (s *Service) Export(ctx context.Context, speakerID string) ([]model.Memory, error) {
	s.mu.RLock()
	recs, err := s.store.ExportAll(ctx, s.speakerRef(speakerID))
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return s.decryptAll(recs, nil), nil
}
