package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/hye-memory/internal/model"
)

func TestArchiveAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec := insert(t, s, "to archive", "r", "x", "y")
	require.NoError(t, s.IncrementUsage(ctx, []string{rec.ID}))
	require.NoError(t, s.ArchiveAndDelete(ctx, rec.ID, model.ArchiveRetention, "batch-1"))

	active, err := s.FindByIDs(ctx, []string{rec.ID})
	require.NoError(t, err)
	assert.Empty(t, active)

	archived, err := s.Archived(ctx, 0)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	a := archived[0]
	assert.Equal(t, rec.ID, a.ID)
	assert.Equal(t, "to archive", a.ContentPlain)
	assert.Equal(t, []string{"x", "y"}, a.Tags)
	assert.Equal(t, 1, a.UsageCount)
	assert.Equal(t, model.ArchiveRetention, a.Reason)
	assert.Equal(t, "batch-1", a.BatchID)
	assert.False(t, a.ArchivedAt.IsZero())
}

func TestArchiveMissingRecord(t *testing.T) {
	s := newTestStore(t)
	err := s.ArchiveAndDelete(context.Background(), "missing", model.ArchiveManual, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	a := insert(t, s, "a", "alice")
	b := insert(t, s, "b", "bob")
	insert(t, s, "c", "bob")

	ordA, err := s.NextOrdinal(ctx)
	require.NoError(t, err)
	require.NoError(t, s.PutMapping(ctx, ordA, a.ID, []float32{1}))
	ordB, err := s.NextOrdinal(ctx)
	require.NoError(t, err)
	require.NoError(t, s.PutMapping(ctx, ordB, b.ID, []float32{1}))

	// Removing b's record without its mapping leaves a dangling entry.
	require.NoError(t, s.Delete(ctx, b.ID))
	require.NoError(t, s.ArchiveAndDelete(ctx, a.ID, model.ArchiveManual, ""))

	st, err := s.Stats(ctx, dbPath)
	require.NoError(t, err)
	assert.Equal(t, 1, st.ActiveRecords)
	assert.Equal(t, 0, st.IndexedRecords)
	assert.Equal(t, 1, st.UnindexedRecords)
	assert.Equal(t, 1, st.ArchivedRecords)
	assert.Equal(t, 2, st.Mappings)
	assert.Equal(t, 2, st.DanglingMappings)
	assert.Equal(t, 1, st.Speakers)
	assert.Equal(t, int64(2), st.NextOrdinal)
	assert.NotZero(t, st.DBSizeBytes)
}
