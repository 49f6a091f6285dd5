package util

import (
	"github.com/aquilax/go-perlin"
)

// Параметры шума по умолчанию
const (
	noiseAlpha   = 2.0 // Сглаживание шума
	noiseBeta    = 2.0 // Частота шума
	noiseOctaves = 3   // Количество октав
)

// Noise - детерминированный генератор шума Перлина
type Noise struct {
	perlin *perlin.Perlin
	scale  float64
}

// NewNoise создаёт генератор с указанным сидом. scale задаёт размер
// "пятен": координаты делятся на него перед выборкой.
func NewNoise(seed int64, scale float64) *Noise {
	if scale <= 0 {
		scale = 1
	}
	return &Noise{
		perlin: perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, seed),
		scale:  scale,
	}
}

// At возвращает значение шума в точке (от 0 до 1)
func (n *Noise) At(x, y float64) float64 {
	// Значение шума от -1 до 1
	v := n.perlin.Noise2D(x/n.scale, y/n.scale)

	// Преобразуем в диапазон от 0 до 1
	v = (v + 1.0) / 2.0
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
