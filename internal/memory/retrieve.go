package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcliao/hye-memory/internal/crypt"
	"github.com/rcliao/hye-memory/internal/model"
	"github.com/rcliao/hye-memory/internal/store"
)

// Get returns one decrypted memory without counting it as a use.
func (s *Service) Get(ctx context.Context, id string) (*model.Memory, error) {
	rec, err := s.fetch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	mem, err := s.decrypt(rec, nil)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return &mem, nil
}

func (s *Service) fetch(ctx context.Context, id string) (model.Record, error) {
	s.mu.RLock()
	found, err := s.store.FindByIDs(ctx, []string{id})
	s.mu.RUnlock()
	if err != nil {
		return model.Record{}, err
	}
	rec, ok := found[id]
	if !ok {
		return model.Record{}, fmt.Errorf("record %s: %w", id, store.ErrNotFound)
	}
	return rec, nil
}

// RetrieveText returns memories whose content contains pattern, ignoring
// case. An empty speakerID searches every speaker. Text scans do not count
// as use.
func (s *Service) RetrieveText(ctx context.Context, pattern, speakerID string) ([]model.Memory, error) {
	s.mu.RLock()
	recs, err := s.store.FindByText(ctx, pattern, s.speakerRef(speakerID))
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("retrieve text: %w", err)
	}
	return s.decryptAll(recs, nil), nil
}

// RetrieveTags returns memories carrying any of tags and counts each as used.
// The lookup and the usage increment share the write lock, so a concurrent
// sweep sees either none or all of the increments.
func (s *Service) RetrieveTags(ctx context.Context, tags []string, speakerID string) ([]model.Memory, error) {
	ref := s.speakerRef(speakerID)

	s.mu.Lock()
	recs, err := s.store.FindByTags(ctx, tags, ref)
	if err == nil {
		err = s.recordUsage(ctx, recs)
	}
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("retrieve tags: %w", err)
	}
	return s.decryptAll(recs, nil), nil
}

// RetrieveSemantic returns up to k memories nearest to query, nearest first.
// k <= 0 uses the configured default. Speaker scoping filters after the
// nearest-neighbour search, so fewer than k results may come back.
func (s *Service) RetrieveSemantic(ctx context.Context, query string, k int, speakerID string) ([]model.Memory, error) {
	if k <= 0 {
		k = s.semanticK
	}
	vec, err := s.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retrieve semantic: %w", err)
	}
	ref := s.speakerRef(speakerID)

	s.mu.Lock()
	kept, distances, err := s.nearest(ctx, vec, k)
	if err == nil {
		kept = filterSpeaker(kept, ref)
		err = s.recordUsage(ctx, kept)
	}
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("retrieve semantic: %w", err)
	}
	return s.decryptAll(kept, distances), nil
}

// RetrieveByContext is semantic retrieval keyed on a context string, with
// the smaller context default for k.
func (s *Service) RetrieveByContext(ctx context.Context, contextText string, k int, speakerID string) ([]model.Memory, error) {
	if k <= 0 {
		k = s.contextK
	}
	return s.RetrieveSemantic(ctx, contextText, k, speakerID)
}

// nearest searches the index and resolves hits to records in distance
// order. Unmapped ordinals and mappings without a record are skipped with a
// warning. Caller holds the lock.
func (s *Service) nearest(ctx context.Context, vec []float32, k int) ([]model.Record, map[string]float32, error) {
	hits, err := s.index.Search(vec, k)
	if err != nil {
		return nil, nil, err
	}
	if len(hits) == 0 {
		return nil, nil, nil
	}

	ordinals := make([]int64, len(hits))
	for i, h := range hits {
		ordinals[i] = h.Ordinal
	}
	mapped, err := s.store.ResolveOrdinals(ctx, ordinals)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]string, 0, len(hits))
	distances := make(map[string]float32, len(hits))
	for _, h := range hits {
		id, ok := mapped[h.Ordinal]
		if !ok {
			s.log.Warn("index entry has no mapping", "ordinal", h.Ordinal)
			continue
		}
		ids = append(ids, id)
		distances[id] = h.Distance
	}

	found, err := s.store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	recs := make([]model.Record, 0, len(ids))
	for _, id := range ids {
		r, ok := found[id]
		if !ok {
			s.log.Warn("dangling mapping", "record_id", id)
			continue
		}
		recs = append(recs, r)
	}
	return recs, distances, nil
}

func filterSpeaker(recs []model.Record, ref string) []model.Record {
	if ref == "" {
		return recs
	}
	kept := recs[:0]
	for _, r := range recs {
		if r.SpeakerRef == ref {
			kept = append(kept, r)
		}
	}
	return kept
}

// recordUsage counts recs as used. Caller holds the write lock.
func (s *Service) recordUsage(ctx context.Context, recs []model.Record) error {
	if len(recs) == 0 {
		return nil
	}
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return s.store.IncrementUsage(ctx, ids)
}

// view converts a record to its caller-facing shape without decrypting.
func (s *Service) view(r model.Record, distances map[string]float32) model.Memory {
	m := model.Memory{
		ID:           r.ID,
		Speaker:      model.SpeakerMarker,
		Tags:         r.Tags,
		Media:        r.Media,
		Sentiment:    r.Sentiment,
		CreatedAt:    r.CreatedAt,
		LastAccessed: r.LastAccessed,
		UsageCount:   r.UsageCount,
	}
	if d, ok := distances[r.ID]; ok {
		m.Distance = &d
	}
	return m
}

func (s *Service) decrypt(r model.Record, distances map[string]float32) (model.Memory, error) {
	m := s.view(r, distances)
	content, err := s.gate.Decrypt(r.ContentCipher)
	if err != nil {
		return m, fmt.Errorf("content: %w", err)
	}
	m.Content = content
	if r.ContextCipher != "" {
		ctxText, err := s.gate.Decrypt(r.ContextCipher)
		if err != nil {
			return m, fmt.Errorf("context: %w", err)
		}
		m.Context = ctxText
	}
	return m, nil
}

// decryptAll decrypts in order, applying the decrypt policy per record.
func (s *Service) decryptAll(recs []model.Record, distances map[string]float32) []model.Memory {
	out := make([]model.Memory, 0, len(recs))
	for _, r := range recs {
		m, err := s.decrypt(r, distances)
		if err == nil {
			out = append(out, m)
			continue
		}
		if !errors.Is(err, crypt.ErrDecryption) {
			s.log.Error("decrypt record", "id", r.ID, "error", err)
		}
		if s.policy == DecryptFlag {
			m.Content, m.Context = "", ""
			m.DecryptError = err.Error()
			out = append(out, m)
			continue
		}
		s.log.Warn("skipping record that failed to decrypt", "id", r.ID, "error", err)
	}
	return out
}
