package brigade

import (
	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/vec"
	"github.com/annel0/bucket-brigade/internal/world/grid"
)

// maintain - однопоточное обслуживание в начале тика. Повторный запуск
// без промежуточного тика ничего не меняет.
func (s *Simulation) maintain() {
	// 1. Ёмкость сетки и резервов до параллельных этапов
	s.grid.EnsureCapacity()

	handles := s.fires.Handles()

	// 2. Потушенные клетки: соседи становятся фронтом, сама клетка
	// уходит из сетки и снова становится предогнём
	for _, h := range handles {
		f, ok := s.fires.Get(h)
		if !ok || f.Status != PendingRemoval {
			continue
		}
		coord := f.Coord
		for _, off := range vec.Neighbours8 {
			if n := s.fireAt(coord.Add(off)); n != nil && n.Status == Active {
				n.Flags |= FlagFront
			}
		}
		s.grid.RemoveIf(coord, h)
		s.emit(Event{Type: EventFireExtinguished, Entity: h, Coord: coord})

		if s.grid.TryReserve(coord, h) {
			f.Status = PendingIgnition
			f.Gradient = 0
			f.Flags = 0
		} else {
			s.fires.Destroy(h)
		}
	}

	// 3. Новые клетки: вставка в сетку и снятие резерва
	var inserted []entity.Handle
	for _, h := range handles {
		f, ok := s.fires.Get(h)
		if !ok || !f.Has(FlagNew) {
			continue
		}
		coord := f.Coord
		if cell, found := s.grid.Lookup(coord); !found || cell.Occupant != h {
			if !s.grid.TryInsert(coord, h, grid.Fire) {
				s.grid.ReleaseIf(coord, h)
				s.fires.Destroy(h)
				s.emit(Event{Type: EventFireDiscarded, Entity: h, Coord: coord})
				continue
			}
		}
		s.grid.Release(coord)
		f.Flags = f.Flags&^FlagNew | FlagFront
		inserted = append(inserted, h)
		s.emit(Event{Type: EventFireIgnited, Entity: h, Coord: coord, Value: f.Gradient})
	}

	// Предогни резервируются, когда все новые клетки уже в сетке
	var spawn []vec.Vec2
	for _, h := range inserted {
		f, _ := s.fires.Get(h)
		for _, off := range s.heatOffsets {
			c := f.Coord.Add(off)
			if !s.grid.InBounds(c) {
				continue
			}
			if _, occupied := s.grid.Lookup(c); occupied {
				continue
			}
			if s.grid.TryReserve(c, entity.Null) {
				spawn = append(spawn, c)
			}
		}
	}
	// Create инвалидирует указатели, поэтому предогни создаются после обхода
	for _, c := range spawn {
		ph := s.fires.Create(Fire{Coord: c, Status: PendingIgnition})
		s.grid.SetReservationOwner(c, ph)
	}

	// 4. Отложенное удаление
	for _, h := range handles {
		f, ok := s.fires.Get(h)
		if !ok || !f.Has(FlagDelete) {
			continue
		}
		s.grid.RemoveIf(f.Coord, h)
		s.grid.ReleaseIf(f.Coord, h)
		s.fires.Destroy(h)
	}

	// 5. Отпечатки водоёмов
	s.restampWater()

	// 6. Фронт, окружённый со всех сторон, перестаёт быть фронтом.
	// Идёт последним, после всех изменений сетки.
	s.fires.Each(func(_ entity.Handle, f *Fire) {
		if f.Status == Active && f.Has(FlagFront) && s.surrounded(f.Coord) {
			f.Flags &^= FlagFront
		}
	})
}

// fireAt возвращает огонь, занимающий клетку сетки
func (s *Simulation) fireAt(coord vec.Vec2) *Fire {
	cell, ok := s.grid.Lookup(coord)
	if !ok || cell.Kind != grid.Fire {
		return nil
	}
	f, ok := s.fires.Get(cell.Occupant)
	if !ok {
		return nil
	}
	return f
}

// surrounded сообщает, что все 8 соседей заняты
func (s *Simulation) surrounded(coord vec.Vec2) bool {
	for _, off := range vec.Neighbours8 {
		if _, ok := s.grid.Lookup(coord.Add(off)); !ok {
			return false
		}
	}
	return true
}
