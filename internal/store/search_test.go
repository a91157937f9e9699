package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindByText(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	hello := insert(t, s, "Hello world", "alice")
	insert(t, s, "Goodbye moon", "alice")
	bobHello := insert(t, s, "well, HELLO there", "bob")

	got, err := s.FindByText(ctx, "hello", "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, hello.ID, got[0].ID)
	assert.Equal(t, bobHello.ID, got[1].ID)

	got, err = s.FindByText(ctx, "hello", "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, hello.ID, got[0].ID)

	got, err = s.FindByText(ctx, "javascript", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindByTextEmptyPatternMatchesAll(t *testing.T) {
	s := newTestStore(t)
	insert(t, s, "a", "alice")
	insert(t, s, "b", "bob")

	got, err := s.FindByText(context.Background(), "", "")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFindByTextEscapesWildcards(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	insert(t, s, "100% sure", "r")
	insert(t, s, "100 percent", "r")
	insert(t, s, "snake_case", "r")
	insert(t, s, "snakeXcase", "r")

	got, err := s.FindByText(ctx, "100%", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "100% sure", got[0].ContentPlain)

	got, err = s.FindByText(ctx, "e_c", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "snake_case", got[0].ContentPlain)
}

func TestFindByTextUnicodeCaseFolding(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	insert(t, s, "ÉCOLE primaire", "r")
	insert(t, s, "Straße", "r")

	got, err := s.FindByText(ctx, "école", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ÉCOLE primaire", got[0].ContentPlain)
}

func TestFindByTags(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := insert(t, s, "a", "alice", "music", "games")
	b := insert(t, s, "b", "alice", "games")
	insert(t, s, "c", "alice", "cooking")
	d := insert(t, s, "d", "bob", "music")

	got, err := s.FindByTags(ctx, []string{"music", "games"}, "")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{a.ID, b.ID, d.ID}, []string{got[0].ID, got[1].ID, got[2].ID})

	got, err = s.FindByTags(ctx, []string{"music"}, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)

	got, err = s.FindByTags(ctx, nil, "")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.FindByTags(ctx, []string{"mus"}, "")
	require.NoError(t, err)
	assert.Empty(t, got, "tags match exactly, not by prefix")
}
