package brigade

import (
	"math"

	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/vec"
	"github.com/annel0/bucket-brigade/internal/world/grid"
)

// AddWaterSource создаёт водоём и сразу ставит его отпечаток в сетку.
// Вызывается между тиками.
func (s *Simulation) AddWaterSource(center vec.Vec2, capacity, gradient float64) entity.Handle {
	if capacity <= 0 {
		capacity = s.cfg.Water.Capacity
	}
	h := s.waters.Create(WaterSource{
		Center:   center,
		Capacity: capacity,
		Gradient: clamp01(gradient),
		dirty:    true,
	})
	if w, ok := s.waters.Get(h); ok {
		s.stamp(h, w)
	}
	return h
}

// SetWaterCapacity меняет объём водоёма; отпечаток пересчитает обслуживание
func (s *Simulation) SetWaterCapacity(h entity.Handle, capacity float64) bool {
	w, ok := s.waters.Get(h)
	if !ok || capacity <= 0 {
		return false
	}
	if w.Capacity != capacity {
		w.Capacity = capacity
		w.dirty = true
	}
	return true
}

// FootprintRadius - радиус отпечатка в клетках
func (s *Simulation) FootprintRadius(capacity float64) float64 {
	return capacity * s.cfg.Water.FootprintScale / 2 / s.cfg.CellSize
}

// refillWater восполняет водоёмы
func (s *Simulation) refillWater(dt float64) {
	handles := s.waters.Handles()
	rate := s.cfg.Water.RefillRate
	s.pool.Run(len(handles), func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			w, ok := s.waters.Get(handles[i])
			if !ok || w.Capacity <= 0 {
				continue
			}
			w.Gradient = math.Min(1, w.Gradient+rate*dt/w.Capacity)
		}
	})
}

// restampWater пересчитывает изменившиеся отпечатки
func (s *Simulation) restampWater() {
	s.waters.Each(func(h entity.Handle, w *WaterSource) {
		if w.dirty {
			s.stamp(h, w)
		}
	})
}

// stamp приводит занятые водоёмом клетки к текущему радиусу. Клетки,
// занятые чем-то другим, пропускаются; водоём остаётся "грязным" до успеха.
func (s *Simulation) stamp(h entity.Handle, w *WaterSource) {
	want := s.footprint(w)
	wanted := make(map[vec.Vec2]struct{}, len(want))
	for _, c := range want {
		wanted[c] = struct{}{}
	}

	kept := w.stamped[:0]
	for _, c := range w.stamped {
		if _, ok := wanted[c]; ok {
			kept = append(kept, c)
			continue
		}
		s.grid.RemoveIf(c, h)
	}
	w.stamped = kept

	have := make(map[vec.Vec2]struct{}, len(kept))
	for _, c := range kept {
		have[c] = struct{}{}
	}

	blocked := false
	for _, c := range want {
		if _, ok := have[c]; ok {
			continue
		}
		if s.grid.TryInsert(c, h, grid.Water) {
			w.stamped = append(w.stamped, c)
		} else {
			blocked = true
		}
	}
	w.dirty = blocked
}

// footprint - клетки круга водоёма внутри сетки
func (s *Simulation) footprint(w *WaterSource) []vec.Vec2 {
	r := s.FootprintRadius(w.Capacity)
	n := int(math.Floor(r))
	var out []vec.Vec2
	for dy := -n; dy <= n; dy++ {
		for dx := -n; dx <= n; dx++ {
			if float64(dx*dx+dy*dy) > r*r {
				continue
			}
			c := w.Center.Add(vec.Vec2{X: dx, Y: dy})
			if s.grid.InBounds(c) {
				out = append(out, c)
			}
		}
	}
	return out
}

// WaterFootprint возвращает клетки, которые водоём сейчас занимает
func (s *Simulation) WaterFootprint(h entity.Handle) []vec.Vec2 {
	w, ok := s.waters.Get(h)
	if !ok {
		return nil
	}
	return append([]vec.Vec2(nil), w.stamped...)
}
