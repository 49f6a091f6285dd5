package entity

// slot хранит значение сущности вместе с его поколением
type slot[T any] struct {
	value      T
	generation uint32
	alive      bool
}

// Store - арена сущностей одного вида с поколенческими идентификаторами и
// списком свободных слотов.
//
// Create/Destroy меняют структуру арены и вызываются только на барьерах
// (однопоточно). Между барьерами Get безопасен из нескольких горутин, а
// запись полей разрешена только этапу, владеющему сущностью в этом тике.
// Указатели, полученные через Get, недействительны после следующего Create.
type Store[T any] struct {
	slots []slot[T]
	free  []uint32
	count int
}

// NewStore создаёт арену с заданной начальной ёмкостью
func NewStore[T any](capacity int) *Store[T] {
	return &Store[T]{
		slots: make([]slot[T], 0, capacity),
		free:  make([]uint32, 0, capacity/4),
	}
}

// Create размещает значение и возвращает его идентификатор
func (s *Store[T]) Create(value T) Handle {
	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		idx = uint32(len(s.slots))
		// Поколения начинаются с 1, чтобы Null никогда не совпал с живой сущностью
		s.slots = append(s.slots, slot[T]{generation: 1})
	}

	sl := &s.slots[idx]
	sl.value = value
	sl.alive = true
	s.count++
	return NewHandle(idx, sl.generation)
}

// Get возвращает указатель на значение, если сущность существует
func (s *Store[T]) Get(h Handle) (*T, bool) {
	idx := h.Index()
	if h == Null || int(idx) >= len(s.slots) {
		return nil, false
	}
	sl := &s.slots[idx]
	if !sl.alive || sl.generation != h.Generation() {
		return nil, false
	}
	return &sl.value, true
}

// Alive проверяет существование сущности
func (s *Store[T]) Alive(h Handle) bool {
	_, ok := s.Get(h)
	return ok
}

// Destroy удаляет сущность. Повторное удаление или устаревший идентификатор - no-op.
func (s *Store[T]) Destroy(h Handle) bool {
	if !s.Alive(h) {
		return false
	}
	idx := h.Index()
	sl := &s.slots[idx]
	var zero T
	sl.value = zero
	sl.alive = false
	sl.generation++
	if sl.generation == 0 {
		sl.generation = 1
	}
	s.free = append(s.free, idx)
	s.count--
	return true
}

// Len возвращает количество живых сущностей
func (s *Store[T]) Len() int {
	return s.count
}

// Handles возвращает снимок идентификаторов живых сущностей в порядке слотов
func (s *Store[T]) Handles() []Handle {
	out := make([]Handle, 0, s.count)
	for i := range s.slots {
		if s.slots[i].alive {
			out = append(out, NewHandle(uint32(i), s.slots[i].generation))
		}
	}
	return out
}

// Each обходит живые сущности в порядке слотов
func (s *Store[T]) Each(fn func(Handle, *T)) {
	for i := range s.slots {
		sl := &s.slots[i]
		if sl.alive {
			fn(NewHandle(uint32(i), sl.generation), &sl.value)
		}
	}
}
