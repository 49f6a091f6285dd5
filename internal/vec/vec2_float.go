package vec

import "math"

// Vec2Float представляет 2D позицию с плавающей точкой
type Vec2Float struct {
	X, Y float64
}

// Floor округляет позицию вниз до целочисленных координат
func (v Vec2Float) Floor() Vec2 {
	return Vec2{X: int(math.Floor(v.X)), Y: int(math.Floor(v.Y))}
}

// FromVec2 создает Vec2Float из Vec2
func FromVec2(v Vec2) Vec2Float {
	return Vec2Float{X: float64(v.X), Y: float64(v.Y)}
}

// Add складывает два вектора
func (v Vec2Float) Add(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub вычитает вектор
func (v Vec2Float) Sub(other Vec2Float) Vec2Float {
	return Vec2Float{X: v.X - other.X, Y: v.Y - other.Y}
}

// Mul умножает вектор на скаляр
func (v Vec2Float) Mul(scalar float64) Vec2Float {
	return Vec2Float{X: v.X * scalar, Y: v.Y * scalar}
}

// Normalized возвращает нормализованный вектор (нулевой для нулевой длины)
func (v Vec2Float) Normalized() Vec2Float {
	length := v.Length()
	if length == 0 {
		return Vec2Float{}
	}
	return Vec2Float{X: v.X / length, Y: v.Y / length}
}

// Perpendicular возвращает вектор, повернутый на 90° по часовой стрелке
func (v Vec2Float) Perpendicular() Vec2Float {
	return Vec2Float{X: v.Y, Y: -v.X}
}

// Length возвращает длину вектора
func (v Vec2Float) Length() float64 {
	return math.Sqrt(v.LengthSq())
}

// LengthSq возвращает квадрат длины
func (v Vec2Float) LengthSq() float64 {
	return v.X*v.X + v.Y*v.Y
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2Float) DistanceTo(other Vec2Float) float64 {
	return math.Sqrt(v.DistanceSqTo(other))
}

// DistanceSqTo вычисляет квадрат расстояния до другой точки
func (v Vec2Float) DistanceSqTo(other Vec2Float) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	return dx*dx + dy*dy
}

// Lerp линейно интерполирует между v и other
func (v Vec2Float) Lerp(other Vec2Float, t float64) Vec2Float {
	return Vec2Float{X: v.X + (other.X-v.X)*t, Y: v.Y + (other.Y-v.Y)*t}
}

// Midpoint возвращает середину отрезка
func (v Vec2Float) Midpoint(other Vec2Float) Vec2Float {
	return v.Lerp(other, 0.5)
}
