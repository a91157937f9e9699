package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/hye-memory/internal/model"
	"github.com/rcliao/hye-memory/internal/store"
)

// StoreParams describes a new memory.
type StoreParams struct {
	Content   string
	SpeakerID string
	// Tags nil means derive the top keywords from Content. An empty,
	// non-nil slice stores no tags.
	Tags    []string
	Media   []string
	Context string
}

// Store persists and indexes a new memory.
//
// Sentiment, keywords and the embedding are computed before anything is
// written, so a failing or timed-out external call leaves no trace. The
// record is then inserted un-indexed, added to the index and mapped under
// the write lock. If indexing fails the record is deleted again; if that
// delete fails too, an *IndexingError is returned and Reindex can finish
// the job later.
func (s *Service) Store(ctx context.Context, p StoreParams) (*model.Memory, error) {
	if strings.TrimSpace(p.Content) == "" {
		return nil, errors.New("store: content is required")
	}
	if p.SpeakerID == "" {
		return nil, errors.New("store: speaker id is required")
	}

	sentiment, err := s.analyzer.Sentiment(ctx, p.Content)
	if err != nil {
		return nil, fmt.Errorf("store: sentiment: %w", err)
	}
	tags := p.Tags
	if tags == nil {
		if tags, err = s.analyzer.Keywords(ctx, p.Content, s.tagCount); err != nil {
			return nil, fmt.Errorf("store: keywords: %w", err)
		}
		if len(tags) > s.tagCount {
			tags = tags[:s.tagCount]
		}
	}
	vec, err := s.embed(ctx, p.Content)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	contentCipher, err := s.gate.Encrypt(p.Content)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	var contextCipher string
	if p.Context != "" {
		if contextCipher, err = s.gate.Encrypt(p.Context); err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Insert(ctx, store.InsertParams{
		ContentCipher: contentCipher,
		ContentPlain:  p.Content,
		SpeakerRef:    s.gate.Pseudonymize(p.SpeakerID),
		Tags:          tags,
		Media:         p.Media,
		Sentiment:     sentiment,
		ContextCipher: contextCipher,
	})
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	if err := s.indexRecord(ctx, rec.ID, vec); err != nil {
		return nil, s.rollback(ctx, rec.ID, err)
	}
	rec.Indexed = true

	mem := s.view(*rec, nil)
	mem.Content = p.Content
	mem.Context = p.Context
	return &mem, nil
}

// indexRecord reserves an ordinal, adds vec to the index and persists the
// mapping. On mapping failure the index entry is removed again. Caller
// holds the write lock.
func (s *Service) indexRecord(ctx context.Context, recordID string, vec []float32) error {
	ordinal, err := s.store.NextOrdinal(ctx)
	if err != nil {
		return err
	}
	if err := s.index.Add(ordinal, vec); err != nil {
		return fmt.Errorf("index add: %w", err)
	}
	if err := s.store.PutMapping(ctx, ordinal, recordID, vec); err != nil {
		s.index.Remove(ordinal)
		return err
	}
	return nil
}

func (s *Service) rollback(ctx context.Context, recordID string, cause error) error {
	if err := s.store.Delete(context.WithoutCancel(ctx), recordID); err != nil {
		s.log.Warn("indexing failed and rollback failed; record left un-indexed",
			"id", recordID, "cause", cause, "error", err)
		return &IndexingError{RecordID: recordID, Err: cause}
	}
	s.log.Warn("indexing failed; record rolled back", "id", recordID, "cause", cause)
	return fmt.Errorf("store: %w", cause)
}

// Reindex embeds and indexes a record left un-indexed by a failed write.
// Already-indexed records are left alone.
func (s *Service) Reindex(ctx context.Context, id string) error {
	rec, err := s.fetch(ctx, id)
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	if rec.Indexed {
		return nil
	}

	vec, err := s.embed(ctx, rec.ContentPlain)
	if err != nil {
		return &IndexingError{RecordID: id, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The record may have been deleted or indexed while embedding.
	found, err := s.store.FindByIDs(ctx, []string{id})
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	current, ok := found[id]
	if !ok {
		return fmt.Errorf("reindex %s: %w", id, store.ErrNotFound)
	}
	if current.Indexed {
		return nil
	}
	if err := s.indexRecord(ctx, id, vec); err != nil {
		return &IndexingError{RecordID: id, Err: err}
	}
	s.log.Info("record reindexed", "id", id)
	return nil
}

// ReindexPending retries indexing for every un-indexed record and returns
// how many succeeded.
func (s *Service) ReindexPending(ctx context.Context) (int, error) {
	s.mu.RLock()
	pending, err := s.store.Unindexed(ctx)
	s.mu.RUnlock()
	if err != nil {
		return 0, fmt.Errorf("reindex pending: %w", err)
	}

	var errs []error
	done := 0
	for _, rec := range pending {
		if err := s.Reindex(ctx, rec.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

// Import stores each item in order and returns how many were stored.
func (s *Service) Import(ctx context.Context, items []StoreParams) (int, error) {
	for i, it := range items {
		if _, err := s.Store(ctx, it); err != nil {
			return i, fmt.Errorf("import item %d: %w", i, err)
		}
	}
	return len(items), nil
}
