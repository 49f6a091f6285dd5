package grid

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid_CoordinateTransforms(t *testing.T) {
	g := New(10, 10, 2.0)

	coord := vec.Vec2{X: 3, Y: 4}
	pos := g.ToPosition(coord)
	assert.Equal(t, vec.Vec2Float{X: 7, Y: 9}, pos, "Позиция должна указывать на центр клетки")
	assert.Equal(t, coord, g.ToCoord(pos), "Обратное преобразование должно вернуть ту же клетку")

	assert.Equal(t, vec.Vec2{X: -1, Y: 0}, g.ToCoord(vec.Vec2Float{X: -0.5, Y: 1.9}))
	assert.Equal(t, vec.Vec2Float{X: 3, Y: 1}, g.Snap(vec.Vec2Float{X: 2.2, Y: 0.1}))
}

func TestGrid_TryInsertCollision(t *testing.T) {
	g := New(5, 5, 1)
	coord := vec.Vec2{X: 1, Y: 1}
	first := entity.NewHandle(0, 1)
	second := entity.NewHandle(1, 1)

	assert.True(t, g.TryInsert(coord, first, Fire))
	assert.False(t, g.TryInsert(coord, second, Water), "Вторая вставка в занятую клетку должна проиграть")

	cell, ok := g.Lookup(coord)
	require.True(t, ok)
	assert.Equal(t, first, cell.Occupant)
	assert.Equal(t, Fire, cell.Kind)

	assert.False(t, g.RemoveIf(coord, second), "Чужой владелец не может освободить клетку")
	assert.True(t, g.RemoveIf(coord, first))
	assert.Equal(t, Empty, g.KindAt(coord))
}

func TestGrid_ConcurrentInsertSingleWinner(t *testing.T) {
	g := New(5, 5, 1)
	coord := vec.Vec2{X: 2, Y: 2}

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if g.TryInsert(coord, entity.NewHandle(uint32(i), 1), Fire) {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins, "Ровно одна вставка должна победить")
	assert.Equal(t, 1, g.Len())
}

func TestGrid_PendingReservations(t *testing.T) {
	g := New(5, 5, 1)
	coord := vec.Vec2{X: 0, Y: 3}
	owner := entity.NewHandle(4, 2)

	assert.True(t, g.TryReserve(coord, entity.Null))
	assert.False(t, g.TryReserve(coord, owner), "Повторный резерв должен быть отклонён")
	assert.True(t, g.SetReservationOwner(coord, owner))

	got, ok := g.Reservation(coord)
	require.True(t, ok)
	assert.Equal(t, owner, got)

	assert.False(t, g.ReleaseIf(coord, entity.Null))
	assert.True(t, g.ReleaseIf(coord, owner))
	assert.False(t, g.IsReserved(coord))
	assert.Equal(t, 0, g.PendingLen())
}

func TestGrid_EnsureCapacityGrowsOnceAndIsStable(t *testing.T) {
	g := New(2, 2, 1) // минимальная ёмкость 16

	for i := 0; i < 20; i++ {
		g.TryInsert(vec.Vec2{X: i, Y: 0}, entity.NewHandle(uint32(i), 1), Fire)
	}
	for i := 0; i < 5; i++ {
		g.TryReserve(vec.Vec2{X: i, Y: 9}, entity.Null)
	}

	assert.True(t, g.EnsureCapacity())
	cells, pending := g.Capacity()
	assert.Equal(t, 50, cells)
	assert.Equal(t, 16, pending, "Резервов мало - их ёмкость не растёт")

	assert.False(t, g.EnsureCapacity(), "Без новых событий ёмкость не меняется")
	assert.Equal(t, 20, g.Len(), "Перехеширование не теряет клетки")
}

func TestGrid_EntriesSorted(t *testing.T) {
	g := New(5, 5, 1)
	g.TryInsert(vec.Vec2{X: 2, Y: 1}, entity.NewHandle(0, 1), Fire)
	g.TryInsert(vec.Vec2{X: 0, Y: 1}, entity.NewHandle(1, 1), Water)
	g.TryInsert(vec.Vec2{X: 4, Y: 0}, entity.NewHandle(2, 1), Fire)

	entries := g.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, vec.Vec2{X: 4, Y: 0}, entries[0].Coord)
	assert.Equal(t, vec.Vec2{X: 0, Y: 1}, entries[1].Coord)
	assert.Equal(t, vec.Vec2{X: 2, Y: 1}, entries[2].Coord)
}
