package brigade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/vec"
	"github.com/annel0/bucket-brigade/internal/world/grid"
)

func TestMaintain_NewFireEntersGridAndReservesNeighbours(t *testing.T) {
	s := newTestSim(emptyConfig())
	h := igniteNow(t, s, 10, 10, 1.0)

	cell, ok := s.grid.Lookup(vec.Vec2{X: 10, Y: 10})
	require.True(t, ok)
	assert.Equal(t, h, cell.Occupant)
	assert.Equal(t, grid.Fire, cell.Kind)

	f, _ := s.fires.Get(h)
	assert.False(t, f.Has(FlagNew), "Флаг New снимается обслуживанием")
	assert.True(t, f.Has(FlagFront), "Одинокий огонь - фронт")

	assert.Equal(t, 8, s.grid.PendingLen(), "Все 8 соседей зарезервированы")
	assert.Equal(t, 9, s.fires.Len())

	for _, off := range vec.Neighbours8 {
		c := vec.Vec2{X: 10, Y: 10}.Add(off)
		owner, ok := s.grid.Reservation(c)
		require.True(t, ok, "Резерв для %v", c)
		pf, ok := s.fires.Get(owner)
		require.True(t, ok, "Владелец резерва %v должен существовать", c)
		assert.Equal(t, PendingIgnition, pf.Status)
		assert.Equal(t, c, pf.Coord)
	}

	events := s.DrainEvents()
	assert.Len(t, eventsOf(events, EventFireIgnited), 1)
	assert.NoError(t, s.CheckInvariants())
}

func TestMaintain_CornerFireReservesOnlyInBounds(t *testing.T) {
	s := newTestSim(emptyConfig())
	igniteNow(t, s, 0, 0, 1.0)

	assert.Equal(t, 3, s.grid.PendingLen())
	assert.NoError(t, s.CheckInvariants())
}

func TestMaintain_CollidingNewFiresKeepOne(t *testing.T) {
	s := newTestSim(emptyConfig())
	a, ok := s.Ignite(vec.Vec2{X: 5, Y: 5}, 1.0)
	require.True(t, ok)
	b, ok := s.Ignite(vec.Vec2{X: 5, Y: 5}, 1.0)
	require.True(t, ok, "Сетка ещё пуста - оба поджога приняты")

	s.maintain()

	assert.True(t, s.fires.Alive(a) != s.fires.Alive(b), "Выживает ровно один")
	assert.Len(t, eventsOf(s.DrainEvents(), EventFireDiscarded), 1)
	assert.NoError(t, s.CheckInvariants())
}

func TestMaintain_PendingRemovalDemotesAndMarksFront(t *testing.T) {
	s := newTestSim(emptyConfig())
	a := igniteNow(t, s, 5, 5, 1.0)
	b := igniteNow(t, s, 6, 5, 1.0)

	fb, _ := s.fires.Get(b)
	fb.Flags &^= FlagFront
	fa, _ := s.fires.Get(a)
	fa.Status = PendingRemoval
	fa.Gradient = 0
	s.DrainEvents()

	s.maintain()

	_, occupied := s.grid.Lookup(vec.Vec2{X: 5, Y: 5})
	assert.False(t, occupied, "Потушенная клетка уходит из сетки")

	fa, ok := s.fires.Get(a)
	require.True(t, ok, "Клетка становится предогнём, а не удаляется")
	assert.Equal(t, PendingIgnition, fa.Status)
	owner, reserved := s.grid.Reservation(vec.Vec2{X: 5, Y: 5})
	assert.True(t, reserved)
	assert.Equal(t, a, owner)

	fb, _ = s.fires.Get(b)
	assert.True(t, fb.Has(FlagFront), "Сосед потушенной клетки снова фронт")

	assert.Len(t, eventsOf(s.DrainEvents(), EventFireExtinguished), 1)
	assert.NoError(t, s.CheckInvariants())
}

func TestMaintain_SurroundedFireLosesFront(t *testing.T) {
	s := newTestSim(emptyConfig())
	center := igniteNow(t, s, 10, 10, 1.0)

	// Поджигаем всех соседей
	for _, off := range vec.Neighbours8 {
		c := vec.Vec2{X: 10, Y: 10}.Add(off)
		owner, ok := s.grid.Reservation(c)
		require.True(t, ok)
		s.log.Buffer(0).Append(Command{Op: OpPromoteFire, Entity: owner})
	}
	s.flush()
	s.maintain()

	f, _ := s.fires.Get(center)
	assert.False(t, f.Has(FlagFront), "Окружённый огонь не фронт")
	assert.Equal(t, 9, s.grid.Len())
	assert.Equal(t, 16, s.grid.PendingLen(), "Вокруг квадрата 3x3 резервируется кольцо из 16 клеток")
	assert.NoError(t, s.CheckInvariants())
}

func TestMaintain_DeletesFlaggedPending(t *testing.T) {
	s := newTestSim(emptyConfig())
	igniteNow(t, s, 10, 10, 1.0)

	c := vec.Vec2{X: 11, Y: 10}
	owner, ok := s.grid.Reservation(c)
	require.True(t, ok)
	pf, _ := s.fires.Get(owner)
	pf.Flags |= FlagDelete

	s.maintain()

	assert.False(t, s.fires.Alive(owner))
	assert.False(t, s.grid.IsReserved(c), "Резерв удалённого предогня снят")
	assert.Equal(t, 7, s.grid.PendingLen())
}

func TestMaintain_Idempotent(t *testing.T) {
	s := newTestSim(emptyConfig())
	s.AddWaterSource(vec.Vec2{X: 2, Y: 2}, 30, 1.0)
	a := igniteNow(t, s, 5, 5, 1.0)
	igniteNow(t, s, 12, 12, 1.0)

	// Готовим работу для каждого шага обслуживания
	fa, _ := s.fires.Get(a)
	fa.Status = PendingRemoval
	_, ok := s.Ignite(vec.Vec2{X: 15, Y: 4}, 0.8)
	require.True(t, ok)
	owner, ok := s.grid.Reservation(vec.Vec2{X: 13, Y: 12})
	require.True(t, ok)
	pf, _ := s.fires.Get(owner)
	pf.Flags |= FlagDelete

	s.maintain()
	first := s.Snapshot()
	cells, pending := s.grid.Len(), s.grid.PendingLen()

	s.maintain()
	second := s.Snapshot()

	assert.Equal(t, first, second, "Повторное обслуживание не меняет мир")
	assert.Equal(t, cells, s.grid.Len())
	assert.Equal(t, pending, s.grid.PendingLen())
	assert.NoError(t, s.CheckInvariants())
}

func TestMaintain_StaleHandlesAreIgnored(t *testing.T) {
	s := newTestSim(emptyConfig())
	h := igniteNow(t, s, 3, 3, 1.0)
	s.fires.Destroy(h)

	// Команды на исчезнувшую сущность - no-op
	buf := s.log.Buffer(0)
	buf.Append(Command{Op: OpCoolFire, Entity: h, Value: 1})
	buf.Append(Command{Op: OpPromoteFire, Entity: h})
	buf.Append(Command{Op: OpDestroyBucket, Entity: entity.NewHandle(42, 1)})
	assert.NotPanics(t, func() { s.flush() })
}
