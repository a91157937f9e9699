package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/hye-memory/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	require.NoError(t, err, "create store")
	t.Cleanup(func() { s.Close() })

	// Tick per read so insertion order is also created_at order.
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var ticks int64
	s.SetClock(func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Millisecond)
	})
	return s
}

// fakeClock is a settable time source.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func insert(t *testing.T, s *SQLiteStore, content, speaker string, tags ...string) *model.Record {
	t.Helper()
	rec, err := s.Insert(context.Background(), InsertParams{
		ContentCipher: "cipher:" + content,
		ContentPlain:  content,
		SpeakerRef:    speaker,
		Tags:          tags,
		Sentiment:     model.Sentiment{Label: "POSITIVE", Score: 0.9},
	})
	require.NoError(t, err)
	return rec
}

func TestInsertAndFindByIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, err := s.Insert(ctx, InsertParams{
		ContentCipher: "c1",
		ContentPlain:  "hello",
		SpeakerRef:    "ref-a",
		Tags:          []string{"greeting"},
		Media:         []string{"file://a.png", "file://b.png"},
		Sentiment:     model.Sentiment{Label: "POSITIVE", Score: 0.75},
		ContextCipher: "ctx",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 0, rec.UsageCount)
	assert.Equal(t, rec.CreatedAt, rec.LastAccessed)
	assert.False(t, rec.Indexed)

	got, err := s.FindByIDs(ctx, []string{rec.ID, "missing"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	r := got[rec.ID]
	assert.Equal(t, "c1", r.ContentCipher)
	assert.Equal(t, "hello", r.ContentPlain)
	assert.Equal(t, "ref-a", r.SpeakerRef)
	assert.Equal(t, []string{"greeting"}, r.Tags)
	assert.Equal(t, []string{"file://a.png", "file://b.png"}, r.Media)
	assert.Equal(t, model.Sentiment{Label: "POSITIVE", Score: 0.75}, r.Sentiment)
	assert.Equal(t, "ctx", r.ContextCipher)
	assert.True(t, r.CreatedAt.Equal(rec.CreatedAt))
}

func TestInsertDefaultsEmptySlices(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, err := s.Insert(ctx, InsertParams{ContentCipher: "c", ContentPlain: "p", SpeakerRef: "r"})
	require.NoError(t, err)

	got, err := s.FindByIDs(ctx, []string{rec.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{}, got[rec.ID].Tags)
	assert.Equal(t, []string{}, got[rec.ID].Media)
	assert.Empty(t, got[rec.ID].ContextCipher)
}

func TestIncrementUsage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s.SetClock(clock.Now)

	a := insert(t, s, "a", "r")
	b := insert(t, s, "b", "r")

	clock.Advance(time.Hour)
	require.NoError(t, s.IncrementUsage(ctx, []string{a.ID}))
	require.NoError(t, s.IncrementUsage(ctx, []string{a.ID, b.ID}))
	require.NoError(t, s.IncrementUsage(ctx, nil))

	got, err := s.FindByIDs(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, got[a.ID].UsageCount)
	assert.Equal(t, 1, got[b.ID].UsageCount)
	assert.True(t, got[a.ID].LastAccessed.Equal(clock.t))
}

func TestIncrementUsageNeverBeforeCreation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s.SetClock(clock.Now)

	rec := insert(t, s, "a", "r")
	clock.Advance(-time.Hour)
	require.NoError(t, s.IncrementUsage(ctx, []string{rec.ID}))

	got, err := s.FindByIDs(ctx, []string{rec.ID})
	require.NoError(t, err)
	assert.False(t, got[rec.ID].LastAccessed.Before(got[rec.ID].CreatedAt))
}

func TestIncrementUsageManyIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec := insert(t, s, "a", "r")
	ids := make([]string, 0, 1200)
	for i := 0; i < 1199; i++ {
		ids = append(ids, "missing")
	}
	ids = append(ids, rec.ID)
	require.NoError(t, s.IncrementUsage(ctx, ids))

	got, err := s.FindByIDs(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, 1, got[rec.ID].UsageCount)
}

func TestDeleteAndDeleteBySpeaker(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a1 := insert(t, s, "a1", "alice")
	insert(t, s, "a2", "alice")
	b1 := insert(t, s, "b1", "bob")

	require.NoError(t, s.Delete(ctx, a1.ID))
	require.NoError(t, s.Delete(ctx, a1.ID), "delete is idempotent")

	n, err := s.DeleteBySpeaker(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, err := s.ExportAll(ctx, "")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, b1.ID, left[0].ID)
}

func TestFindBySpeakerOrdered(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s.SetClock(clock.Now)

	first := insert(t, s, "first", "alice")
	clock.Advance(time.Second)
	insert(t, s, "other", "bob")
	clock.Advance(time.Second)
	second := insert(t, s, "second", "alice")

	got, err := s.FindBySpeaker(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, second.ID, got[1].ID)
}

func TestForgettable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s.SetClock(clock.Now)

	old := insert(t, s, "old", "r")
	oldUsed := insert(t, s, "old used", "r")
	require.NoError(t, s.IncrementUsage(ctx, []string{oldUsed.ID}))
	require.NoError(t, s.IncrementUsage(ctx, []string{oldUsed.ID}))

	clock.Advance(100 * 24 * time.Hour)
	insert(t, s, "fresh", "r")

	cutoff := clock.t.Add(-90 * 24 * time.Hour)
	got, err := s.Forgettable(ctx, cutoff, 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, old.ID, got[0].ID)
}

func TestUnindexed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := insert(t, s, "a", "r")
	b := insert(t, s, "b", "r")
	require.NoError(t, s.PutMapping(ctx, 0, a.ID, []float32{1}))

	got, err := s.Unindexed(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)
}

func TestDBPathCreation(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	s.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "expected db file to be created")
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s1, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	rec := insert(t, s1, "persisted", "r")
	ord, err := s1.NextOrdinal(ctx)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.FindByIDs(ctx, []string{rec.ID})
	require.NoError(t, err)
	assert.Equal(t, "persisted", got[rec.ID].ContentPlain)

	next, err := s2.NextOrdinal(ctx)
	require.NoError(t, err)
	assert.Equal(t, ord+1, next)
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.FindBySpeaker(context.Background(), "r")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
