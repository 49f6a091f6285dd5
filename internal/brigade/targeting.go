package brigade

import (
	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/vec"
	"github.com/annel0/bucket-brigade/internal/world/grid"
)

// Пороги смещения концов цепочки (в квадрате расстояния)
const (
	sourceDriftSq = 100.0
	targetDriftSq = 4.0
)

// anchor - результат наведения одной цепочки
type anchor struct {
	source, target vec.Vec2Float
	moved          bool
}

// retarget раз в TargetingInterval пересчитывает концы цепочек и маршруты
// вертолётов: ближайший огонь к опорному агенту и ближайшая к этому огню вода
func (s *Simulation) retarget(dt float64) {
	s.sinceTargeting += dt
	if s.sinceTargeting < s.cfg.TargetingInterval {
		return
	}
	s.sinceTargeting = 0

	results := make([]anchor, len(s.chains))
	s.pool.Run(len(s.chains), func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			c := &s.chains[i]
			ref, ok := s.bots.Get(c.RelativeTo)
			if !ok {
				results[i] = anchor{source: c.Source, target: c.Target}
				continue
			}
			results[i] = s.locate(ref.Position, c.Source, c.Target)
		}
	})
	for i, r := range results {
		c := &s.chains[i]
		if !r.moved {
			continue
		}
		c.Source, c.Target = r.source, r.target
		s.emit(Event{Type: EventChainRetargeted, Chain: c.ID, Position: r.target, Value: r.source.DistanceTo(r.target)})
	}

	handles := s.choppers.Handles()
	s.pool.Run(len(handles), func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			ch, ok := s.choppers.Get(handles[i])
			if !ok {
				continue
			}
			r := s.locate(ch.Position, ch.Source, ch.Target)
			ch.Source, ch.Target = r.source, r.target
		}
	})
}

// locate находит ближайший к from огонь и ближайшую к нему воду и
// сдвигает концы, только если они ушли достаточно далеко
func (s *Simulation) locate(from, source, target vec.Vec2Float) anchor {
	fire := s.grid.FindNearestPosition(from, grid.Fire)
	water := s.grid.FindNearestPosition(fire, grid.Water)

	out := anchor{source: source, target: target}
	if source.DistanceSqTo(water) > sourceDriftSq {
		out.source = water
		out.moved = true
	}
	if target.DistanceSqTo(fire) > targetDriftSq {
		out.target = fire
		out.moved = true
	}
	return out
}

// Chains возвращает копии цепочек
func (s *Simulation) Chains() []Chain {
	out := make([]Chain, len(s.chains))
	for i, c := range s.chains {
		c.Members = append([]entity.Handle(nil), c.Members...)
		out[i] = c
	}
	return out
}
