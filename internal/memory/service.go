// Package memory ties the record store, the vector index and the encryption
// gate into one speaker-scoped memory service.
//
// All mutations (store, delete, sweep, forget, reindex) take the service
// write lock. Tag and semantic retrieval count their results as used, so
// they also run under the write lock from lookup to usage increment. Text
// scans and single fetches run under the read lock. A reader never observes
// an index entry without its mapping or the reverse. Calls to the embedding
// and language services happen outside the lock.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rcliao/hye-memory/internal/crypt"
	"github.com/rcliao/hye-memory/internal/embedding"
	"github.com/rcliao/hye-memory/internal/language"
	"github.com/rcliao/hye-memory/internal/model"
	"github.com/rcliao/hye-memory/internal/store"
	"github.com/rcliao/hye-memory/internal/vindex"
)

// Defaults applied by New.
const (
	DefaultSemanticK    = 5
	DefaultContextK     = 3
	DefaultTagCount     = 3
	DefaultInterestTopN = 5
	DefaultAgeThreshold = 90 * 24 * time.Hour
	DefaultUsageFloor   = 2
	DefaultInterval     = 24 * time.Hour
)

// DecryptPolicy decides what retrieval does with a record that fails to decrypt.
type DecryptPolicy string

const (
	// DecryptSkip drops the record and logs a warning.
	DecryptSkip DecryptPolicy = "skip"
	// DecryptFlag returns the record with DecryptError set and empty content.
	DecryptFlag DecryptPolicy = "flag"
)

// Storage is the durable side of the service.
type Storage interface {
	store.Store
	store.MappingTable
	store.RetentionSource
	Unindexed(ctx context.Context) ([]model.Record, error)
	ExportAll(ctx context.Context, speakerRef string) ([]model.Record, error)
}

// VectorIndex is the in-memory similarity index.
type VectorIndex interface {
	Dims() int
	Len() int
	Add(ordinal int64, vec []float32) error
	Remove(ordinal int64)
	Search(query []float32, k int) ([]vindex.Hit, error)
}

// RetentionPolicy configures the forgetting sweep. Zero durations take the
// defaults. A nil UsageFloor means DefaultUsageFloor; a floor of 0 forgets
// nothing.
type RetentionPolicy struct {
	AgeThreshold time.Duration
	UsageFloor   *int
	Interval     time.Duration
}

// Options configures a Service. Store, Gate, Embedder and Analyzer are required.
type Options struct {
	Store    Storage
	Gate     *crypt.Gate
	Embedder embedding.Embedder
	Analyzer language.Analyzer

	// Index defaults to a flat index sized to Dims.
	Index VectorIndex
	// Dims is the expected embedding dimension. Zero means Embedder.Dims().
	Dims int

	Logger *slog.Logger
	Now    func() time.Time

	TagCount      int
	SemanticK     int
	ContextK      int
	DecryptPolicy DecryptPolicy
	Retention     RetentionPolicy
}

// Service is the memory store facade.
type Service struct {
	mu sync.RWMutex

	store    Storage
	index    VectorIndex
	gate     *crypt.Gate
	embedder embedding.Embedder
	analyzer language.Analyzer
	log      *slog.Logger
	now      func() time.Time

	tagCount  int
	semanticK int
	contextK  int
	policy    DecryptPolicy
	retention RetentionPolicy
	// usageFloor is retention.UsageFloor resolved against the default.
	usageFloor int
}

// New builds a Service and loads every persisted mapping into the index.
func New(ctx context.Context, opts Options) (*Service, error) {
	if opts.Store == nil || opts.Gate == nil || opts.Embedder == nil || opts.Analyzer == nil {
		return nil, fmt.Errorf("%w: store, gate, embedder and analyzer are required", vindex.ErrConfiguration)
	}

	dims := opts.Dims
	if dims == 0 {
		dims = opts.Embedder.Dims()
	}
	if opts.Embedder.Dims() != dims {
		return nil, fmt.Errorf("%w: embedder produces %d dims, index expects %d",
			vindex.ErrDimensionMismatch, opts.Embedder.Dims(), dims)
	}

	s := &Service{
		store:     opts.Store,
		index:     opts.Index,
		gate:      opts.Gate,
		embedder:  opts.Embedder,
		analyzer:  opts.Analyzer,
		log:       opts.Logger,
		now:       opts.Now,
		tagCount:  opts.TagCount,
		semanticK: opts.SemanticK,
		contextK:  opts.ContextK,
		policy:    opts.DecryptPolicy,
		retention: opts.Retention,
	}
	if s.index == nil {
		ix, err := vindex.New(dims)
		if err != nil {
			return nil, err
		}
		s.index = ix
	} else if s.index.Dims() != dims {
		return nil, fmt.Errorf("%w: index has %d dims, want %d", vindex.ErrDimensionMismatch, s.index.Dims(), dims)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.tagCount <= 0 {
		s.tagCount = DefaultTagCount
	}
	if s.semanticK <= 0 {
		s.semanticK = DefaultSemanticK
	}
	if s.contextK <= 0 {
		s.contextK = DefaultContextK
	}
	switch s.policy {
	case DecryptSkip, DecryptFlag:
	case "":
		s.policy = DecryptSkip
	default:
		return nil, fmt.Errorf("%w: unknown decrypt policy %q", vindex.ErrConfiguration, s.policy)
	}
	if s.retention.AgeThreshold <= 0 {
		s.retention.AgeThreshold = DefaultAgeThreshold
	}
	s.usageFloor = DefaultUsageFloor
	if f := s.retention.UsageFloor; f != nil {
		if *f < 0 {
			return nil, fmt.Errorf("%w: negative usage floor %d", vindex.ErrConfiguration, *f)
		}
		s.usageFloor = *f
	}
	if s.retention.Interval <= 0 {
		s.retention.Interval = DefaultInterval
	}

	if err := s.rebuild(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) rebuild(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	vectors, err := s.store.LoadMappings(ctx)
	if err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	for _, v := range vectors {
		if err := s.index.Add(v.Ordinal, v.Vector); err != nil {
			return fmt.Errorf("rebuild index: ordinal %d: %w", v.Ordinal, err)
		}
	}
	if len(vectors) > 0 {
		s.log.Info("vector index rebuilt", "entries", len(vectors))
	}
	return nil
}

// IndexSize returns the number of vectors held in the index.
func (s *Service) IndexSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Len()
}

// Close closes the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}

// embed obtains an embedding and checks it against the index dimension.
func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vec) != s.index.Dims() {
		return nil, fmt.Errorf("%w: embedder returned %d dims, index expects %d",
			vindex.ErrDimensionMismatch, len(vec), s.index.Dims())
	}
	return vec, nil
}

func (s *Service) speakerRef(speakerID string) string {
	if speakerID == "" {
		return ""
	}
	return s.gate.Pseudonymize(speakerID)
}

// unindex removes a record's mapping and index entry. Records without a
// mapping are ignored. Caller holds the write lock.
func (s *Service) unindex(ctx context.Context, recordID string) error {
	m, err := s.store.MappingForRecord(ctx, recordID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	if err := s.store.DeleteMapping(ctx, m.Ordinal); err != nil {
		return err
	}
	s.index.Remove(m.Ordinal)
	return nil
}
