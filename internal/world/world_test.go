package world

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/bucket-brigade/internal/brigade"
	"github.com/annel0/bucket-brigade/internal/config"
	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/eventbus"
	"github.com/annel0/bucket-brigade/internal/observability"
	"github.com/annel0/bucket-brigade/internal/storage"
	framesync "github.com/annel0/bucket-brigade/internal/sync"
	"github.com/annel0/bucket-brigade/internal/vec"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Simulation.Rows, cfg.Simulation.Cols = 24, 24
	cfg.Simulation.Chains = 1
	cfg.Simulation.BotsPerChain = 6
	cfg.Simulation.Omnibots = 1
	cfg.Simulation.WaterSources = 1
	cfg.World.FrameEvery = 2
	cfg.World.CheckEvery = 1
	cfg.History.SampleEvery = 1
	return cfg
}

// emptyCell ищет свободную клетку с краю сетки
func emptyCell(t *testing.T, wm *WorldManager) vec.Vec2 {
	t.Helper()
	g := wm.sim.Grid()
	for y := 0; y < g.Rows(); y++ {
		for x := 0; x < g.Cols(); x++ {
			c := vec.Vec2{X: x, Y: y}
			if _, busy := g.Lookup(c); !busy && !g.IsReserved(c) {
				return c
			}
		}
	}
	t.Fatal("свободных клеток нет")
	return vec.Vec2{}
}

// collector собирает конверты шины
type collector struct {
	mu  sync.Mutex
	got []*eventbus.Envelope
}

func (c *collector) handle(_ context.Context, ev *eventbus.Envelope) {
	c.mu.Lock()
	c.got = append(c.got, ev)
	c.mu.Unlock()
}

func (c *collector) ofType(t string) []*eventbus.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*eventbus.Envelope
	for _, ev := range c.got {
		if ev.EventType == t {
			out = append(out, ev)
		}
	}
	return out
}

func TestWorldManager_StepPublishesAndRecords(t *testing.T) {
	bus := eventbus.NewMemoryBus(4096)
	var sink collector
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{}, sink.handle)
	require.NoError(t, err)

	history, err := storage.NewBadgerHistory("", 0)
	require.NoError(t, err)
	defer history.Close()

	metrics, err := observability.NewSimulationMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	codec, err := framesync.NewZstdCodec()
	require.NoError(t, err)

	wm := NewWorldManager(testConfig(),
		WithEventBus(bus),
		WithHistory(history),
		WithMetrics(metrics),
		WithFrameCodec(codec),
	)
	require.NotEmpty(t, wm.RunID())

	ctx := context.Background()
	for i := 0; i < 130; i++ {
		wm.Step(ctx, 1.0/60)
	}
	require.NoError(t, bus.Close())

	assert.Equal(t, uint64(130), wm.TickCount())
	assert.Zero(t, wm.Violations())
	assert.Greater(t, wm.Published(), uint64(0))

	ignited := sink.ofType(string(brigade.EventFireIgnited))
	require.NotEmpty(t, ignited)
	assert.Equal(t, wm.RunID(), ignited[0].CorrelationID)
	assert.Equal(t, eventbus.PriorityHigh, ignited[0].Priority)

	frames := sink.ofType(EventFrame)
	require.Len(t, frames, 65)
	frame, err := codec.Decode(frames[len(frames)-1].Payload)
	require.NoError(t, err)
	assert.Equal(t, uint64(130), frame.Tick)

	// Срезы раз в секунду симулированного времени: первый тик и ещё два
	samples, err := wm.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, uint64(1), samples[2].Tick)
	assert.GreaterOrEqual(t, samples[0].Tick, uint64(121))
	assert.Equal(t, wm.RunID(), samples[0].RunID)
}

func TestWorldManager_Requests(t *testing.T) {
	wm := NewWorldManager(testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	coord := emptyCell(t, wm)

	type result struct {
		h   entity.Handle
		err error
	}
	ignite := make(chan result, 1)
	go func() {
		h, err := wm.Ignite(ctx, coord, 0.6)
		ignite <- result{h, err}
	}()
	bucket := make(chan result, 1)
	go func() {
		h, err := wm.SpawnBucket(ctx, vec.Vec2Float{X: 3.2, Y: 4.9}, 1, true)
		bucket <- result{h, err}
	}()

	// Запросы применяются в начале тика, который их застал
	require.Eventually(t, func() bool { return len(wm.requests) == 2 }, time.Second, time.Millisecond)
	wm.Step(ctx, 1.0/60)

	r := <-ignite
	require.NoError(t, r.err)
	assert.False(t, r.h.IsNull())
	fire, ok := wm.sim.Fire(r.h)
	require.True(t, ok)
	assert.Equal(t, coord, fire.Coord)

	r = <-bucket
	require.NoError(t, r.err)
	b, ok := wm.sim.Bucket(r.h)
	require.True(t, ok)
	assert.True(t, b.DestroyWhenEmpty)

	// Повторный поджог той же клетки отклоняется
	go func() {
		h, err := wm.Ignite(ctx, coord, 0.6)
		ignite <- result{h, err}
	}()
	require.Eventually(t, func() bool { return len(wm.requests) == 1 }, time.Second, time.Millisecond)
	wm.Step(ctx, 1.0/60)
	r = <-ignite
	assert.ErrorIs(t, r.err, ErrRejected)

	// Ведро за пределами сетки отклоняется
	assert.False(t, wm.InBounds(vec.Vec2Float{X: -0.5, Y: 3}))
	assert.False(t, wm.InBounds(vec.Vec2Float{X: 3, Y: 24}))
	assert.True(t, wm.InBounds(vec.Vec2Float{X: 23.9, Y: 0}))
	go func() {
		h, err := wm.SpawnBucket(ctx, vec.Vec2Float{X: 30, Y: 3}, 1, false)
		bucket <- result{h, err}
	}()
	require.Eventually(t, func() bool { return len(wm.requests) == 1 }, time.Second, time.Millisecond)
	wm.Step(ctx, 1.0/60)
	r = <-bucket
	assert.ErrorIs(t, r.err, ErrRejected)
	assert.True(t, r.h.IsNull())
}

func TestWorldManager_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.World.RequestBuffer = 1
	wm := NewWorldManager(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _, _ = wm.Ignite(ctx, vec.Vec2{X: 0, Y: 0}, 0.5) }()
	require.Eventually(t, func() bool { return len(wm.requests) == 1 }, time.Second, time.Millisecond)

	_, err := wm.Ignite(ctx, vec.Vec2{X: 1, Y: 0}, 0.5)
	assert.ErrorIs(t, err, ErrQueueFull)

	cancel()
	_, err = wm.SpawnBucket(context.Background(), vec.Vec2Float{}, 0, false)
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestWorldManager_RunStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.World.TickRate = 500
	wm := NewWorldManager(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- wm.Run(ctx) }()

	require.Eventually(t, func() bool { return wm.TickCount() >= 5 }, 5*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run не остановился")
	}

	snap := wm.Snapshot()
	assert.Equal(t, wm.TickCount(), snap.Tick)
	assert.Len(t, wm.Chains(), 1)
	assert.Equal(t, 24, wm.Config().Rows)
	assert.Equal(t, snap.Tick, wm.Stats().Tick)
}
