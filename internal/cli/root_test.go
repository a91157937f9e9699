package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/hye-memory/internal/crypt"
	"github.com/rcliao/hye-memory/internal/memory"
)

func TestOpenServiceCloserReleasesResources(t *testing.T) {
	dir := t.TempDir()
	key, err := crypt.GenerateKey()
	require.NoError(t, err)

	t.Setenv("HYE_CONFIG", filepath.Join(dir, "absent.yaml"))
	t.Setenv("HYE_STORAGE_DB_PATH", filepath.Join(dir, "memory.db"))
	t.Setenv("HYE_CRYPTO_KEY", crypt.EncodeKey(key))
	t.Setenv("HYE_EMBEDDING_DIMS", "32")
	t.Setenv("HYE_LOG_LEVEL", "error")

	ctx := context.Background()
	svc, done := openService(ctx)
	mem, err := svc.Store(ctx, memory.StoreParams{Content: "closing time", SpeakerID: "alice"})
	require.NoError(t, err)

	assert.NotPanics(t, done)
	_, err = svc.Get(ctx, mem.ID)
	assert.Error(t, err, "store still open after closer ran")

	// A second open sees the persisted record.
	svc, done = openService(ctx)
	defer done()
	got, err := svc.Get(ctx, mem.ID)
	require.NoError(t, err)
	assert.Equal(t, "closing time", got.Content)
}
