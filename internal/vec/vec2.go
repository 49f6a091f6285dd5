package vec

import "math"

// Vec2 представляет целочисленные координаты клетки сетки
type Vec2 struct {
	X, Y int
}

// Add складывает две координаты
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает координату
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// Length возвращает евклидову длину смещения
func (v Vec2) Length() float64 {
	return math.Sqrt(float64(v.X*v.X + v.Y*v.Y))
}

// DistanceTo вычисляет расстояние до другой клетки
func (v Vec2) DistanceTo(other Vec2) float64 {
	return v.Sub(other).Length()
}

// Chebyshev возвращает расстояние Чебышёва (номер кольца вокруг other)
func (v Vec2) Chebyshev(other Vec2) int {
	dx := v.X - other.X
	if dx < 0 {
		dx = -dx
	}
	dy := v.Y - other.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// Neighbours8 - смещения окрестности Мура без центральной клетки
var Neighbours8 = [8]Vec2{
	{X: -1, Y: -1},
	{X: -1, Y: 0},
	{X: -1, Y: 1},
	{X: 0, Y: -1},
	{X: 0, Y: 1},
	{X: 1, Y: -1},
	{X: 1, Y: 0},
	{X: 1, Y: 1},
}
