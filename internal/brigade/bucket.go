package brigade

import (
	"math"

	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/vec"
	"github.com/annel0/bucket-brigade/internal/world/grid"
)

// splashOffset - клетка в радиусе брызг и расстояние до неё
type splashOffset struct {
	off  vec.Vec2
	dist float64
}

// splashDisc - клетки в евклидовом радиусе r (центр включён всегда)
func splashDisc(r int) []splashOffset {
	if r < 0 {
		r = 0
	}
	var out []splashOffset
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			off := vec.Vec2{X: dx, Y: dy}
			d := off.Length()
			if d > float64(r) {
				continue
			}
			out = append(out, splashOffset{off: off, dist: d})
		}
	}
	return out
}

// fillBuckets - ведро на воде наполняется, ведро на огне выливается
func (s *Simulation) fillBuckets(dt float64) {
	handles := s.buckets.Handles()

	s.pool.Run(len(handles), func(worker, lo, hi int) {
		buf := s.log.Buffer(worker)
		for i := lo; i < hi; i++ {
			h := handles[i]
			b, ok := s.buckets.Get(h)
			if !ok {
				continue
			}
			if b.CarriedBy != entity.Null {
				// Несомое ведро не наполняется, но временное пустое исчезает и в руках
				if b.DestroyWhenEmpty && b.Empty() {
					buf.Append(Command{Op: OpDestroyBucket, Entity: h})
				}
				continue
			}
			b.Position = s.grid.Snap(b.Position)
			coord := s.grid.ToCoord(b.Position)

			switch s.grid.KindAt(coord) {
			case grid.Fire:
				if b.Gradient > 0 {
					s.douse(buf, coord, b.Gradient)
					buf.Append(Command{Op: OpNotify, Event: EventBucketDoused, Entity: h, Coord: coord, Position: b.Position, Value: b.Gradient})
					b.Gradient = 0
				}
			case grid.Water:
				capacity := b.Capacity
				if capacity <= 0 {
					capacity = 1
				}
				b.Gradient = math.Min(1, b.Gradient+s.cfg.Bucket.FillRate*dt/capacity)
			}

			if b.DestroyWhenEmpty && b.Empty() {
				buf.Append(Command{Op: OpDestroyBucket, Entity: h})
			}
		}
	})

	s.flush()
}

// douse охлаждает огонь в радиусе брызг с затуханием по расстоянию
func (s *Simulation) douse(buf *commandBuffer, center vec.Vec2, amount float64) {
	strength := s.cfg.Water.CoolingStrength
	falloff := s.cfg.Water.CoolingFalloff
	for _, sp := range s.splashOffsets {
		cell, ok := s.grid.Lookup(center.Add(sp.off))
		if !ok || cell.Kind != grid.Fire {
			continue
		}
		buf.Append(Command{
			Op:     OpCoolFire,
			Entity: cell.Occupant,
			Value:  amount * strength * math.Pow(falloff, sp.dist),
		})
	}
}

// SpawnBucket создаёт ведро. Вызывается между тиками или на барьере.
func (s *Simulation) SpawnBucket(pos vec.Vec2Float, gradient float64, destroyWhenEmpty bool) entity.Handle {
	return s.buckets.Create(Bucket{
		Position:         s.grid.Snap(pos),
		Gradient:         clamp01(gradient),
		Capacity:         s.cfg.Bucket.Capacity,
		DestroyWhenEmpty: destroyWhenEmpty,
	})
}
