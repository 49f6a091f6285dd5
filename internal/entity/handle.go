package entity

import "fmt"

// Handle - непрозрачный идентификатор сущности: младшие 32 бита - индекс слота,
// старшие 32 бита - поколение. Поколение растёт при удалении, поэтому
// устаревшие ссылки не проходят проверку существования.
type Handle uint64

// Null - пустой идентификатор, никогда не принадлежит живой сущности
const Null Handle = 0

// NewHandle собирает идентификатор из индекса и поколения
func NewHandle(index, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(index))
}

// Index возвращает индекс слота
func (h Handle) Index() uint32 { return uint32(h) }

// Generation возвращает поколение
func (h Handle) Generation() uint32 { return uint32(h >> 32) }

// IsNull сообщает, является ли идентификатор пустым
func (h Handle) IsNull() bool { return h == Null }

func (h Handle) String() string {
	if h == Null {
		return "null"
	}
	return fmt.Sprintf("%d:%d", h.Index(), h.Generation())
}
