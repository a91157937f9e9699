package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestDoPassesResult(t *testing.T) {
	g := New(Config{Name: "test"}, nil)

	out, err := g.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Equal(t, "closed", g.State())
}

func TestDoAppliesTimeout(t *testing.T) {
	g := New(Config{Name: "test", Timeout: 20 * time.Millisecond}, nil)

	_, err := g.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	g := New(Config{Name: "test", MaxFailures: 2, Cooldown: time.Hour}, nil)
	fail := func(ctx context.Context) (interface{}, error) { return nil, errBoom }

	for i := 0; i < 2; i++ {
		_, err := g.Do(context.Background(), fail)
		assert.ErrorIs(t, err, errBoom)
	}
	assert.Equal(t, "open", g.State())

	called := false
	_, err := g.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerRecoversAfterCooldown(t *testing.T) {
	g := New(Config{Name: "test", MaxFailures: 1, Cooldown: 10 * time.Millisecond}, nil)

	_, err := g.Do(context.Background(), func(ctx context.Context) (interface{}, error) { return nil, errBoom })
	require.ErrorIs(t, err, errBoom)

	time.Sleep(30 * time.Millisecond)
	out, err := g.Do(context.Background(), func(ctx context.Context) (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "closed", g.State())
}

func TestDoRespectsCancelledContext(t *testing.T) {
	g := New(Config{Name: "test", RatePerSecond: 1, Burst: 1}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Do(ctx, func(ctx context.Context) (interface{}, error) { return nil, nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimitWaitHonoursDeadline(t *testing.T) {
	g := New(Config{Name: "test", RatePerSecond: 0.001, Burst: 1}, nil)
	noop := func(ctx context.Context) (interface{}, error) { return nil, nil }

	_, err := g.Do(context.Background(), noop)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.Do(ctx, noop)
	assert.Error(t, err)
}
