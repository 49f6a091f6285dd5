package brigade

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/logging"
	"github.com/annel0/bucket-brigade/internal/vec"
	"github.com/annel0/bucket-brigade/internal/world/parallel"
)

// emptyConfig - пустой мир 20x20 без автоматического заселения
func emptyConfig() Config {
	cfg := DefaultConfig()
	cfg.Rows, cfg.Cols = 20, 20
	cfg.Chains = 0
	cfg.BotsPerChain = 0
	cfg.Omnibots = 0
	cfg.Buckets = 0
	cfg.Fires = 0
	cfg.WaterSources = 0
	return cfg
}

// newTestSim создаёт симуляцию с несколькими воркерами и разделами по одному
// элементу, чтобы даже маленькие наборы сущностей обрабатывались параллельно
func newTestSim(cfg Config) *Simulation {
	return New(cfg,
		WithPool(parallel.NewPoolWithGrain(4, 1)),
		WithLogger(logging.NewConsoleLogger("brigade-test", io.Discard)),
	)
}

// igniteNow поджигает клетку и сразу проводит обслуживание
func igniteNow(t *testing.T, s *Simulation, x, y int, gradient float64) entity.Handle {
	t.Helper()
	h, ok := s.Ignite(vec.Vec2{X: x, Y: y}, gradient)
	require.True(t, ok)
	s.maintain()
	require.True(t, s.fires.Alive(h), "Огонь должен пережить вставку в сетку")
	return h
}

// cellCenter - центр клетки в координатах мира
func cellCenter(s *Simulation, x, y int) vec.Vec2Float {
	return s.grid.ToPosition(vec.Vec2{X: x, Y: y})
}

// carry вручную вешает ведро на агента
func carry(t *testing.T, s *Simulation, botH, bucketH entity.Handle) {
	t.Helper()
	b, ok := s.bots.Get(botH)
	require.True(t, ok)
	bk, ok := s.buckets.Get(bucketH)
	require.True(t, ok)
	b.Carrying = bucketH
	bk.CarriedBy = botH
	bk.Position = b.Position
}

// placeBot ставит агента в точку
func placeBot(t *testing.T, s *Simulation, h entity.Handle, pos vec.Vec2Float) *Bot {
	t.Helper()
	b, ok := s.bots.Get(h)
	require.True(t, ok)
	b.Position = pos
	b.HasDestination = false
	return b
}

// eventsOf отбирает события нужного типа
func eventsOf(events []Event, typ EventType) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}
