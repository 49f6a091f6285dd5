package brigade

import (
	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/vec"
)

// move продвигает агентов и вертолёты к цели, затем несомые вёдра
// переезжают вслед за носильщиком
func (s *Simulation) move(dt float64) {
	bots := s.bots.Handles()
	s.pool.Run(len(bots), func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			b, ok := s.bots.Get(bots[i])
			if !ok || !b.HasDestination {
				continue
			}
			speed := b.Speed
			if bk, ok := s.buckets.Get(b.Carrying); ok && bk.Full() {
				speed *= s.cfg.Water.CarryMultiplier
			}
			var arrived bool
			b.Position, arrived = stepToward(b.Position, b.Destination, speed*dt)
			if arrived {
				b.HasDestination = false
			}
		}
	})

	choppers := s.choppers.Handles()
	s.pool.Run(len(choppers), func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			c, ok := s.choppers.Get(choppers[i])
			if !ok || !c.HasDestination {
				continue
			}
			var arrived bool
			c.Position, arrived = stepToward(c.Position, c.Destination, c.Speed*dt)
			if arrived {
				c.HasDestination = false
			}
		}
	})

	buckets := s.buckets.Handles()
	s.pool.Run(len(buckets), func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			b, ok := s.buckets.Get(buckets[i])
			if !ok || b.CarriedBy == entity.Null {
				continue
			}
			if carrier, ok := s.bots.Get(b.CarriedBy); ok {
				b.Position = carrier.Position
			}
		}
	})
}

// stepToward делает шаг длиной step к dest. Если до цели не больше шага,
// позиция встаёт ровно на неё и возвращается true.
func stepToward(pos, dest vec.Vec2Float, step float64) (vec.Vec2Float, bool) {
	diff := dest.Sub(pos)
	dist := diff.Length()
	if dist <= step {
		return dest, true
	}
	return pos.Add(diff.Mul(step / dist)), false
}
