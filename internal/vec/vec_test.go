package vec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec2_Chebyshev(t *testing.T) {
	origin := Vec2{X: 2, Y: 2}

	assert.Equal(t, 0, origin.Chebyshev(origin), "Клетка находится в нулевом кольце относительно себя")
	assert.Equal(t, 3, Vec2{X: 5, Y: 1}.Chebyshev(origin))
	assert.Equal(t, 4, Vec2{X: 0, Y: -2}.Chebyshev(origin))
}

func TestVec2Float_Floor(t *testing.T) {
	// Отрицательные координаты должны округляться вниз, а не к нулю
	assert.Equal(t, Vec2{X: -1, Y: 0}, Vec2Float{X: -0.2, Y: 0.9}.Floor())
	assert.Equal(t, Vec2{X: 3, Y: -4}, Vec2Float{X: 3.0, Y: -3.5}.Floor())
}

func TestVec2Float_Geometry(t *testing.T) {
	a := Vec2Float{X: 0, Y: 0}
	b := Vec2Float{X: 4, Y: 2}

	assert.Equal(t, Vec2Float{X: 2, Y: 1}, a.Midpoint(b))
	assert.InDelta(t, 20.0, a.DistanceSqTo(b), 1e-9)
	assert.Equal(t, Vec2Float{X: 2, Y: -4}, b.Perpendicular())
	assert.Equal(t, Vec2Float{}, Vec2Float{}.Normalized(), "Нулевой вектор остаётся нулевым")
	assert.InDelta(t, 1.0, b.Normalized().Length(), 1e-9)
}
