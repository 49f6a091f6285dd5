package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/bucket-brigade/internal/brigade"
)

func sample(run string, tick uint64) Sample {
	return Sample{
		RunID:    run,
		Tick:     tick,
		Recorded: time.Unix(int64(tick), 0).UTC(),
		Stats:    brigade.Stats{Tick: tick, FiresActive: int(tick % 7)},
	}
}

func ticksOf(samples []Sample) []uint64 {
	out := make([]uint64, len(samples))
	for i, s := range samples {
		out[i] = s.Tick
	}
	return out
}

func TestBadgerHistory_RecentNewestFirst(t *testing.T) {
	h, err := NewBadgerHistory("", 0)
	require.NoError(t, err)
	defer h.Close()

	ctx := context.Background()
	// Тики 9 и 10 проверяют, что порядок ключей числовой, а не строковый
	for _, tick := range []uint64{1, 2, 9, 10} {
		require.NoError(t, h.Record(ctx, sample("run-a", tick)))
	}
	require.NoError(t, h.Record(ctx, sample("run-b", 5)))

	got, err := h.Recent(ctx, "run-a", 3)
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 9, 2}, ticksOf(got))
	assert.Equal(t, sample("run-a", 10).Stats, got[0].Stats)
	assert.True(t, sample("run-a", 10).Recorded.Equal(got[0].Recorded))

	got, err = h.Recent(ctx, "run-b", 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{5}, ticksOf(got))

	got, err = h.Recent(ctx, "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBadgerHistory_Retain(t *testing.T) {
	h, err := NewBadgerHistory("", 3)
	require.NoError(t, err)
	defer h.Close()

	ctx := context.Background()
	for tick := uint64(1); tick <= 6; tick++ {
		require.NoError(t, h.Record(ctx, sample("run", tick)))
	}
	// Перезапись существующего тика не увеличивает счётчик
	require.NoError(t, h.Record(ctx, sample("run", 6)))

	got, err := h.Recent(ctx, "run", 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{6, 5, 4}, ticksOf(got))
}

func TestBadgerHistory_OnDiskAndClosed(t *testing.T) {
	dir := t.TempDir()
	h, err := NewBadgerHistory(dir, 0)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, h.Record(ctx, sample("run", 1)))
	require.NoError(t, h.Close())
	require.NoError(t, h.Close(), "Повторное закрытие безопасно")

	assert.ErrorIs(t, h.Record(ctx, sample("run", 2)), ErrClosed)
	_, err = h.Recent(ctx, "run", 1)
	assert.ErrorIs(t, err, ErrClosed)

	reopened, err := NewBadgerHistory(dir, 0)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Recent(ctx, "run", 5)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, ticksOf(got))
}

func TestNopHistory(t *testing.T) {
	h := NewNopHistory()
	require.NoError(t, h.Record(context.Background(), sample("run", 1)))
	got, err := h.Recent(context.Background(), "run", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, h.Close())
}

// Требует живой Redis: BRIGADE_TEST_REDIS=localhost:6379
func TestRedisHistory(t *testing.T) {
	addr := os.Getenv("BRIGADE_TEST_REDIS")
	if addr == "" {
		t.Skip("BRIGADE_TEST_REDIS не задан")
	}

	ctx := context.Background()
	cfg := DefaultRedisConfig()
	cfg.Addr = addr
	cfg.KeyPrefix = "brigade:test:" + time.Now().Format("150405.000") + ":"
	cfg.Retain = 2
	cfg.TTL = time.Minute

	h, err := NewRedisHistory(ctx, cfg)
	require.NoError(t, err)
	defer h.Close()

	for tick := uint64(1); tick <= 3; tick++ {
		require.NoError(t, h.Record(ctx, sample("run", tick)))
	}

	got, err := h.Recent(ctx, "run", 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 2}, ticksOf(got))

	latest, err := h.Latest(ctx, "run")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, uint64(3), latest.Tick)

	missing, err := h.Latest(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
