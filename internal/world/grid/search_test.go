package grid

import (
	"testing"

	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/vec"
	"github.com/stretchr/testify/assert"
)

func TestFindNearest_ExhaustedReturnsOrigin(t *testing.T) {
	g := New(20, 20, 1)
	origin := vec.Vec2{X: 7, Y: 3}

	// Только вода: огня нет во всей сетке
	g.TryInsert(vec.Vec2{X: 1, Y: 1}, entity.NewHandle(0, 1), Water)

	got, found := g.FindNearest(origin, Fire)
	assert.False(t, found)
	assert.Equal(t, origin, got, "Исчерпанный поиск возвращает исходную координату")

	pos := vec.Vec2Float{X: 7.3, Y: 3.9}
	assert.Equal(t, pos, g.FindNearestPosition(pos, Fire), "Позиция тоже возвращается без изменений")
}

func TestFindNearest_FindsOnRing(t *testing.T) {
	g := New(20, 20, 1)
	origin := vec.Vec2{X: 10, Y: 10}
	target := vec.Vec2{X: 13, Y: 8}
	g.TryInsert(target, entity.NewHandle(0, 1), Fire)
	g.TryInsert(vec.Vec2{X: 19, Y: 19}, entity.NewHandle(1, 1), Fire)

	got, found := g.FindNearest(origin, Fire)
	assert.True(t, found)
	assert.Equal(t, target, got)

	assert.Equal(t, vec.Vec2Float{X: 13.5, Y: 8.5}, g.FindNearestPosition(g.ToPosition(origin), Fire))
}

func TestFindNearest_OriginCellMatches(t *testing.T) {
	g := New(5, 5, 1)
	origin := vec.Vec2{X: 2, Y: 2}
	g.TryInsert(origin, entity.NewHandle(0, 1), Water)

	got, found := g.FindNearest(origin, Water)
	assert.True(t, found)
	assert.Equal(t, origin, got)
}

func TestFindNearest_RingOrderIsApproximate(t *testing.T) {
	g := New(20, 20, 1)
	origin := vec.Vec2{X: 10, Y: 10}

	// Угол кольца 3 (расстояние ~4.24) находится раньше клетки кольца 4
	// на оси (расстояние 4): кольцевой поиск не является точным.
	corner := vec.Vec2{X: 13, Y: 13}
	axis := vec.Vec2{X: 14, Y: 10}
	g.TryInsert(corner, entity.NewHandle(0, 1), Fire)
	g.TryInsert(axis, entity.NewHandle(1, 1), Fire)

	got, found := g.FindNearest(origin, Fire)
	assert.True(t, found)
	assert.Equal(t, corner, got)
	assert.Greater(t, origin.DistanceTo(corner), origin.DistanceTo(axis))
}

func TestFindNearest_AxisBeforeCornerOnSameRing(t *testing.T) {
	g := New(20, 20, 1)
	origin := vec.Vec2{X: 10, Y: 10}
	g.TryInsert(vec.Vec2{X: 12, Y: 12}, entity.NewHandle(0, 1), Fire)
	g.TryInsert(vec.Vec2{X: 10, Y: 8}, entity.NewHandle(1, 1), Fire)

	got, found := g.FindNearest(origin, Fire)
	assert.True(t, found)
	assert.Equal(t, vec.Vec2{X: 10, Y: 8}, got, "Смещение (0,2) перебирается раньше (2,2)")
}
