// Package store provides durable memory record storage, the ordinal-to-record
// mapping table, and cold-storage archiving, backed by SQLite.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rcliao/hye-memory/internal/model"
)

var (
	// ErrNotFound indicates the requested record or mapping does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable indicates the database could not serve the operation.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// InsertParams holds the fields of a new record. The store assigns the id,
// timestamps and usage count.
type InsertParams struct {
	ContentCipher string
	ContentPlain  string
	SpeakerRef    string
	Tags          []string
	Media         []string
	Sentiment     model.Sentiment
	ContextCipher string
}

// IndexedVector is a mapping row together with its persisted embedding.
type IndexedVector struct {
	model.Mapping
	Vector []float32
}

// Store defines record storage. Nothing here touches the vector index.
type Store interface {
	// Insert persists a new record with usage_count 0 and
	// created_at = last_accessed = now. The record starts un-indexed.
	Insert(ctx context.Context, p InsertParams) (*model.Record, error)

	// FindByText matches content_plain case-insensitively as a substring.
	// An empty speakerRef means all speakers.
	FindByText(ctx context.Context, pattern, speakerRef string) ([]model.Record, error)

	// FindByTags returns records carrying at least one of tags.
	FindByTags(ctx context.Context, tags []string, speakerRef string) ([]model.Record, error)

	// FindByIDs returns the records that exist among ids, keyed by id.
	FindByIDs(ctx context.Context, ids []string) (map[string]model.Record, error)

	// FindBySpeaker returns all records of one speaker.
	FindBySpeaker(ctx context.Context, speakerRef string) ([]model.Record, error)

	// IncrementUsage bumps usage_count and last_accessed for every id in one transaction.
	IncrementUsage(ctx context.Context, ids []string) error

	// Delete removes a record. Missing records are ignored.
	Delete(ctx context.Context, id string) error

	// DeleteBySpeaker removes all records of one speaker and returns the count.
	DeleteBySpeaker(ctx context.Context, speakerRef string) (int, error)

	// ArchiveAndDelete copies a record to cold storage, then deletes it.
	ArchiveAndDelete(ctx context.Context, id, reason, batchID string) error

	// Close closes the store.
	Close() error
}

// MappingTable links vector index ordinals to record ids.
type MappingTable interface {
	// NextOrdinal reserves a new ordinal. Ordinals are never reused.
	NextOrdinal(ctx context.Context) (int64, error)

	// PutMapping records ordinal -> recordID with its embedding and marks
	// the record indexed, atomically.
	PutMapping(ctx context.Context, ordinal int64, recordID string, vec []float32) error

	// ResolveOrdinals maps ordinals to record ids; unmapped ordinals are absent.
	ResolveOrdinals(ctx context.Context, ordinals []int64) (map[int64]string, error)

	// MappingForRecord returns the mapping of a record or ErrNotFound.
	MappingForRecord(ctx context.Context, recordID string) (*model.Mapping, error)

	// DeleteMapping removes an ordinal's mapping.
	DeleteMapping(ctx context.Context, ordinal int64) error

	// LoadMappings returns every mapping with its vector, for index rebuilds.
	LoadMappings(ctx context.Context) ([]IndexedVector, error)
}

// RetentionSource exposes what the retention sweep needs to select candidates.
type RetentionSource interface {
	// Forgettable returns records last accessed before cutoff with usage below floor.
	Forgettable(ctx context.Context, cutoff time.Time, floor int) ([]model.Record, error)
}
