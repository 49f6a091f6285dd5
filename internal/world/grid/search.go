package grid

import "github.com/annel0/bucket-brigade/internal/vec"

// FindNearest ищет клетку вида kind квадратными кольцами вокруг origin.
// Кольца перебираются до max(rows, cols); на каждом смещении (j, k)
// проверяются четыре отражения: (+j,+k), (+j,-k), (-j,+k), (-j,-k).
// Порядок колец не гарантирует истинно ближайшую по Евклиду клетку,
// зато результат детерминирован и стабилен для якорей цепочек.
// Если ничего не найдено, возвращается origin и false.
func (g *Grid) FindNearest(origin vec.Vec2, kind Kind) (vec.Vec2, bool) {
	g.cellsMu.RLock()
	defer g.cellsMu.RUnlock()

	if len(g.cells) == 0 && kind != Empty {
		return origin, false
	}

	limit := g.rows
	if g.cols > limit {
		limit = g.cols
	}

	for i := 0; i < limit; i++ {
		for j := 0; j <= i; j++ {
			for k := 0; k <= i; k++ {
				// Внутренние смещения уже проверены на предыдущих кольцах
				if j < i && k < i {
					continue
				}
				candidates := [4]vec.Vec2{
					{X: origin.X + j, Y: origin.Y + k},
					{X: origin.X + j, Y: origin.Y - k},
					{X: origin.X - j, Y: origin.Y + k},
					{X: origin.X - j, Y: origin.Y - k},
				}
				for _, c := range candidates {
					if g.cells[c].Kind == kind {
						return c, true
					}
				}
			}
		}
	}

	return origin, false
}

// FindNearestPosition - FindNearest в координатах мира: возвращает центр
// найденной клетки или исходную позицию без изменений.
func (g *Grid) FindNearestPosition(pos vec.Vec2Float, kind Kind) vec.Vec2Float {
	coord, found := g.FindNearest(g.ToCoord(pos), kind)
	if !found {
		return pos
	}
	return g.ToPosition(coord)
}
