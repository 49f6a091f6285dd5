package brigade

import (
	"errors"
	"fmt"

	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/world/grid"
)

// ErrInvariant - нарушение целостности мира
var ErrInvariant = errors.New("нарушена целостность мира")

// CheckInvariants проверяет согласованность сетки, резервов, вёдер и цепочек.
// Вызывается между тиками; возвращает все найденные нарушения.
func (s *Simulation) CheckInvariants() error {
	var errs []error
	fail := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]interface{}{ErrInvariant}, args...)...))
	}

	// Сетка: каждая занятая клетка принадлежит живой сущности нужного вида
	for _, e := range s.grid.Entries() {
		switch e.Cell.Kind {
		case grid.Fire:
			f, ok := s.fires.Get(e.Cell.Occupant)
			switch {
			case !ok:
				fail("клетка %v занята исчезнувшим огнём %v", e.Coord, e.Cell.Occupant)
			case f.Coord != e.Coord:
				fail("огонь %v в клетке %v считает себя в %v", e.Cell.Occupant, e.Coord, f.Coord)
			case f.Status == PendingIgnition:
				fail("предогонь %v занимает клетку %v", e.Cell.Occupant, e.Coord)
			}
		case grid.Water:
			if !s.waters.Alive(e.Cell.Occupant) {
				fail("клетка %v занята исчезнувшим водоёмом %v", e.Coord, e.Cell.Occupant)
			}
		default:
			fail("клетка %v с пустым видом в сетке", e.Coord)
		}
	}

	// Огонь: жар в [0,1], активный огонь сидит в своей клетке
	s.fires.Each(func(h entity.Handle, f *Fire) {
		if f.Gradient < 0 || f.Gradient > 1 {
			fail("жар огня %v вне [0,1]: %v", h, f.Gradient)
		}
		if f.Status == PendingIgnition {
			if owner, ok := s.grid.Reservation(f.Coord); !ok || owner != h {
				if _, occupied := s.grid.Lookup(f.Coord); !occupied && !f.Has(FlagDelete) {
					fail("предогонь %v без резерва в %v", h, f.Coord)
				}
			}
			return
		}
		if f.Has(FlagNew) {
			return
		}
		if cell, ok := s.grid.Lookup(f.Coord); !ok || cell.Occupant != h {
			fail("огонь %v отсутствует в своей клетке %v", h, f.Coord)
		}
	})

	// Вёдра: наполненность в [0,1], перенос симметричен
	s.buckets.Each(func(h entity.Handle, b *Bucket) {
		if b.Gradient < 0 || b.Gradient > 1 {
			fail("наполненность ведра %v вне [0,1]: %v", h, b.Gradient)
		}
		if b.CarriedBy == entity.Null {
			return
		}
		bot, ok := s.bots.Get(b.CarriedBy)
		if !ok {
			fail("ведро %v несёт исчезнувший агент %v", h, b.CarriedBy)
		} else if bot.Carrying != h {
			fail("ведро %v несёт %v, но агент держит %v", h, b.CarriedBy, bot.Carrying)
		}
	})
	s.bots.Each(func(h entity.Handle, b *Bot) {
		if b.Carrying == entity.Null {
			return
		}
		bk, ok := s.buckets.Get(b.Carrying)
		if !ok {
			fail("агент %v держит исчезнувшее ведро %v", h, b.Carrying)
		} else if bk.CarriedBy != h {
			fail("агент %v держит %v, но ведро у %v", h, b.Carrying, bk.CarriedBy)
		}
	})

	s.waters.Each(func(h entity.Handle, w *WaterSource) {
		if w.Gradient < 0 || w.Gradient > 1 {
			fail("уровень водоёма %v вне [0,1]: %v", h, w.Gradient)
		}
	})

	// Цепочки: звенья идут от головы к хвосту, прогресс не убывает
	for _, c := range s.chains {
		for i, h := range c.Members {
			b, ok := s.bots.Get(h)
			if !ok {
				fail("цепочка %d: агент %v исчез", c.ID, h)
				continue
			}
			if b.Chain != c.ID {
				fail("цепочка %d: агент %v числится в цепочке %d", c.ID, h, b.Chain)
			}
			if i > 0 && b.Link.Previous != c.Members[i-1] {
				fail("цепочка %d: разрыв перед звеном %d", c.ID, i)
			}
			if i < len(c.Members)-1 && b.Link.Next != c.Members[i+1] {
				fail("цепочка %d: разрыв после звена %d", c.ID, i)
			}
			if i > 0 {
				if prev, ok := s.bots.Get(c.Members[i-1]); ok && prev.Link.Progress > b.Link.Progress {
					fail("цепочка %d: прогресс убывает на звене %d", c.ID, i)
				}
			}
		}
	}

	return errors.Join(errs...)
}
