package brigade

import (
	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/vec"
	"github.com/annel0/bucket-brigade/internal/world/grid"
)

// stepFire - клеточный автомат огня. Фаза 1 считает новые значения жара
// по снимку соседей, фаза 2 их записывает, затем журнал применяет
// повышения, отбраковку и смену статусов.
func (s *Simulation) stepFire(dt float64) {
	handles := s.fires.Handles()
	if len(handles) == 0 {
		return
	}
	next := make([]float64, len(handles))

	s.pool.Run(len(handles), func(worker, lo, hi int) {
		buf := s.log.Buffer(worker)
		for i := lo; i < hi; i++ {
			h := handles[i]
			f, ok := s.fires.Get(h)
			if !ok {
				continue
			}
			next[i] = f.Gradient

			switch f.Status {
			case Active:
				if f.Has(FlagMaxedOut) || f.Has(FlagNew) {
					continue
				}
				g := f.Gradient + s.heatFlow(f.Coord, dt)
				if g >= 1 {
					g = 1
					buf.Append(Command{Op: OpSetFireFlag, Entity: h, Flags: FlagMaxedOut})
				}
				if g <= 0 {
					g = 0
					buf.Append(Command{Op: OpSetFireStatus, Entity: h, Status: PendingRemoval})
				}
				next[i] = g

			case PendingIgnition:
				if f.Has(FlagDelete) {
					continue
				}
				// Клетку уже заняли - предогонь больше не нужен
				if _, occupied := s.grid.Lookup(f.Coord); occupied {
					buf.Append(Command{Op: OpDiscardFire, Entity: h})
					continue
				}
				g := clamp01(f.Gradient + s.heatFlow(f.Coord, dt))
				next[i] = g
				switch {
				case g > s.cfg.Fire.Flashpoint:
					buf.Append(Command{Op: OpPromoteFire, Entity: h})
				case g <= 0 && !s.hasFireNeighbour(f.Coord):
					buf.Append(Command{Op: OpSetFireFlag, Entity: h, Flags: FlagDelete})
				}
			}
		}
	})

	s.pool.Run(len(handles), func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			if f, ok := s.fires.Get(handles[i]); ok {
				f.Gradient = next[i]
			}
		}
	})

	s.flush()
}

// heatFlow - суммарный приток тепла в клетку за dt: огонь греет,
// вода охлаждает, пустые клетки не влияют
func (s *Simulation) heatFlow(coord vec.Vec2, dt float64) float64 {
	rate := s.cfg.Fire.HeatTransferRate * dt
	var delta float64
	for _, off := range s.heatOffsets {
		cell, ok := s.grid.Lookup(coord.Add(off))
		if !ok {
			continue
		}
		switch cell.Kind {
		case grid.Fire:
			if n, ok := s.fires.Get(cell.Occupant); ok {
				delta += rate * n.Gradient
			}
		case grid.Water:
			if w, ok := s.waters.Get(cell.Occupant); ok {
				delta -= rate * w.Gradient
			}
		}
	}
	return delta
}

// hasFireNeighbour сообщает, есть ли огонь в окрестности нагрева
func (s *Simulation) hasFireNeighbour(coord vec.Vec2) bool {
	for _, off := range s.heatOffsets {
		if s.grid.KindAt(coord.Add(off)) == grid.Fire {
			return true
		}
	}
	return false
}

// Ignite поджигает клетку: огонь появится в сетке на следующем обслуживании.
// Вызывается между тиками.
func (s *Simulation) Ignite(coord vec.Vec2, gradient float64) (entity.Handle, bool) {
	if !s.grid.InBounds(coord) {
		return entity.Null, false
	}
	if _, occupied := s.grid.Lookup(coord); occupied {
		return entity.Null, false
	}
	return s.spawnFire(coord, gradient), true
}
