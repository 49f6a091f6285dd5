package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	a := NewEnvelope("sim", "fire.ignited", []byte("{}"))
	b := NewEnvelope("sim", "fire.ignited", nil)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, PriorityNormal, a.Priority)
	assert.Equal(t, time.UTC, a.Timestamp.Location())
	assert.Equal(t, "brigade.fire.ignited", Subject(a.EventType))
}

func TestMemoryBus_DeliversInOrderWithFilter(t *testing.T) {
	bus := NewMemoryBus(16)

	var (
		mu  sync.Mutex
		got []string
	)
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{"fire.ignited"}}, func(_ context.Context, ev *Envelope) {
		mu.Lock()
		got = append(got, string(ev.Payload))
		mu.Unlock()
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, NewEnvelope("sim", "fire.ignited", []byte("1"))))
	require.NoError(t, bus.Publish(ctx, NewEnvelope("sim", "bucket.doused", []byte("x"))))
	require.NoError(t, bus.Publish(ctx, NewEnvelope("sim", "fire.ignited", []byte("2"))))

	// Close дожидается доставки
	require.NoError(t, bus.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"1", "2"}, got)

	st := bus.Metrics()
	assert.Equal(t, uint64(3), st.Published)
	assert.Equal(t, uint64(2), st.Consumed)
	assert.Equal(t, 0, st.InFlight)

	assert.ErrorIs(t, bus.Publish(ctx, NewEnvelope("sim", "fire.ignited", nil)), ErrClosed)
	_, err = bus.Subscribe(ctx, Filter{}, func(context.Context, *Envelope) {})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestMemoryBus_Backpressure(t *testing.T) {
	bus := NewMemoryBus(1)
	entered := make(chan struct{}, 1)
	release := make(chan struct{})

	_, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, NewEnvelope("sim", "a", nil)))
	// Первое событие у подписчика, буфер свободен
	<-entered
	require.NoError(t, bus.Publish(ctx, NewEnvelope("sim", "b", nil)))

	low := NewEnvelope("sim", "c", nil)
	low.Priority = PriorityLow
	require.NoError(t, bus.Publish(ctx, low), "Низкий приоритет отбрасывается молча")

	high := NewEnvelope("sim", "d", nil)
	high.Priority = PriorityHigh
	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Publish(tctx, high), context.DeadlineExceeded)

	st := bus.Metrics()
	assert.Equal(t, uint64(2), st.Published)
	assert.Equal(t, uint64(2), st.Dropped)
	assert.Equal(t, 1, st.InFlight)

	close(release)
	require.NoError(t, bus.Close())
	assert.Equal(t, uint64(2), bus.Metrics().Consumed)
}

func TestMemoryBus_Unsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)
	calls := 0
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) { calls++ })
	require.NoError(t, err)
	sub.Unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), NewEnvelope("sim", "a", nil)))
	require.NoError(t, bus.Close())
	assert.Zero(t, calls)
}

func TestMetricsExporter_AddsDeltas(t *testing.T) {
	bus := NewMemoryBus(8)
	reg := prometheus.NewRegistry()
	me, err := NewMetricsExporter(bus, reg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, NewEnvelope("sim", "a", nil)))
	require.NoError(t, bus.Publish(ctx, NewEnvelope("sim", "b", nil)))
	me.Collect()
	me.Collect()
	require.NoError(t, bus.Publish(ctx, NewEnvelope("sim", "c", nil)))
	me.Collect()

	assert.Equal(t, 3.0, gathered(t, reg, "brigade_eventbus_messages_published_total"))

	_, err = NewMetricsExporter(bus, reg)
	assert.Error(t, err, "Повторная регистрация в том же реестре")
	require.NoError(t, bus.Close())
}

// gathered возвращает значение счётчика или датчика из реестра
func gathered(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		m := mf.GetMetric()[0]
		if c := m.GetCounter(); c != nil {
			return c.GetValue()
		}
		return m.GetGauge().GetValue()
	}
	t.Fatalf("метрика %s не найдена", name)
	return 0
}
