package grid

import (
	"math"
	"sort"
	"sync"

	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/vec"
)

// Kind - содержимое клетки сетки
type Kind uint8

const (
	Empty Kind = iota
	Fire
	Water
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Fire:
		return "fire"
	case Water:
		return "water"
	default:
		return "unknown"
	}
}

// Cell - занятая клетка: владелец и вид содержимого
type Cell struct {
	Occupant entity.Handle
	Kind     Kind
}

// Entry - клетка вместе с координатой (для снимков)
type Entry struct {
	Coord vec.Vec2
	Cell  Cell
}

// Grid - разреженная карта занятости плюс множество координат,
// зарезервированных под ожидающее воспламенение.
type Grid struct {
	rows     int
	cols     int
	cellSize float64

	cells    map[vec.Vec2]Cell // Физическая сетка: не более одного владельца на клетку
	cellsCap int
	cellsMu  sync.RWMutex

	pending    map[vec.Vec2]entity.Handle // Резервы под "предогонь"
	pendingCap int
	pendingMu  sync.RWMutex
}

// New создаёт сетку rows x cols с размером клетки cellSize
func New(rows, cols int, cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = 1.0
	}
	capacity := rows * cols
	if capacity < 16 {
		capacity = 16
	}
	return &Grid{
		rows:       rows,
		cols:       cols,
		cellSize:   cellSize,
		cells:      make(map[vec.Vec2]Cell, capacity),
		cellsCap:   capacity,
		pending:    make(map[vec.Vec2]entity.Handle, capacity),
		pendingCap: capacity,
	}
}

// Rows возвращает число строк
func (g *Grid) Rows() int { return g.rows }

// Cols возвращает число столбцов
func (g *Grid) Cols() int { return g.cols }

// CellSize возвращает размер клетки
func (g *Grid) CellSize() float64 { return g.cellSize }

// InBounds проверяет, что координата лежит внутри rows x cols
func (g *Grid) InBounds(coord vec.Vec2) bool {
	return coord.X >= 0 && coord.Y >= 0 && coord.X < g.cols && coord.Y < g.rows
}

// ToCoord переводит позицию в координату клетки
func (g *Grid) ToCoord(pos vec.Vec2Float) vec.Vec2 {
	return vec.Vec2{
		X: int(math.Floor(pos.X / g.cellSize)),
		Y: int(math.Floor(pos.Y / g.cellSize)),
	}
}

// ToPosition возвращает центр клетки
func (g *Grid) ToPosition(coord vec.Vec2) vec.Vec2Float {
	return vec.Vec2Float{
		X: (float64(coord.X) + 0.5) * g.cellSize,
		Y: (float64(coord.Y) + 0.5) * g.cellSize,
	}
}

// Snap приводит позицию к центру её клетки
func (g *Grid) Snap(pos vec.Vec2Float) vec.Vec2Float {
	return g.ToPosition(g.ToCoord(pos))
}

// === Физическая сетка ===

// TryInsert атомарно занимает клетку. Возвращает false, если клетка уже занята.
func (g *Grid) TryInsert(coord vec.Vec2, occupant entity.Handle, kind Kind) bool {
	g.cellsMu.Lock()
	defer g.cellsMu.Unlock()

	if _, exists := g.cells[coord]; exists {
		return false
	}
	g.cells[coord] = Cell{Occupant: occupant, Kind: kind}
	return true
}

// Remove освобождает клетку и возвращает её прежнее содержимое
func (g *Grid) Remove(coord vec.Vec2) (Cell, bool) {
	g.cellsMu.Lock()
	defer g.cellsMu.Unlock()

	cell, exists := g.cells[coord]
	if exists {
		delete(g.cells, coord)
	}
	return cell, exists
}

// RemoveIf освобождает клетку, только если её занимает occupant
func (g *Grid) RemoveIf(coord vec.Vec2, occupant entity.Handle) bool {
	g.cellsMu.Lock()
	defer g.cellsMu.Unlock()

	cell, exists := g.cells[coord]
	if !exists || cell.Occupant != occupant {
		return false
	}
	delete(g.cells, coord)
	return true
}

// Lookup возвращает клетку, если она занята
func (g *Grid) Lookup(coord vec.Vec2) (Cell, bool) {
	g.cellsMu.RLock()
	cell, exists := g.cells[coord]
	g.cellsMu.RUnlock()
	return cell, exists
}

// KindAt возвращает вид содержимого клетки (Empty для свободной)
func (g *Grid) KindAt(coord vec.Vec2) Kind {
	cell, _ := g.Lookup(coord)
	return cell.Kind
}

// Len возвращает количество занятых клеток
func (g *Grid) Len() int {
	g.cellsMu.RLock()
	defer g.cellsMu.RUnlock()
	return len(g.cells)
}

// Entries возвращает снимок занятых клеток, отсортированный по (Y, X)
func (g *Grid) Entries() []Entry {
	g.cellsMu.RLock()
	out := make([]Entry, 0, len(g.cells))
	for coord, cell := range g.cells {
		out = append(out, Entry{Coord: coord, Cell: cell})
	}
	g.cellsMu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Coord.Y != out[j].Coord.Y {
			return out[i].Coord.Y < out[j].Coord.Y
		}
		return out[i].Coord.X < out[j].Coord.X
	})
	return out
}

// === Резервы ожидающего воспламенения ===

// TryReserve резервирует координату за owner. false, если она уже зарезервирована.
func (g *Grid) TryReserve(coord vec.Vec2, owner entity.Handle) bool {
	g.pendingMu.Lock()
	defer g.pendingMu.Unlock()

	if _, exists := g.pending[coord]; exists {
		return false
	}
	g.pending[coord] = owner
	return true
}

// SetReservationOwner переназначает владельца существующего резерва
func (g *Grid) SetReservationOwner(coord vec.Vec2, owner entity.Handle) bool {
	g.pendingMu.Lock()
	defer g.pendingMu.Unlock()

	if _, exists := g.pending[coord]; !exists {
		return false
	}
	g.pending[coord] = owner
	return true
}

// Reservation возвращает владельца резерва
func (g *Grid) Reservation(coord vec.Vec2) (entity.Handle, bool) {
	g.pendingMu.RLock()
	owner, exists := g.pending[coord]
	g.pendingMu.RUnlock()
	return owner, exists
}

// IsReserved проверяет наличие резерва
func (g *Grid) IsReserved(coord vec.Vec2) bool {
	_, exists := g.Reservation(coord)
	return exists
}

// Release снимает резерв
func (g *Grid) Release(coord vec.Vec2) bool {
	g.pendingMu.Lock()
	defer g.pendingMu.Unlock()

	if _, exists := g.pending[coord]; !exists {
		return false
	}
	delete(g.pending, coord)
	return true
}

// ReleaseIf снимает резерв, только если он принадлежит owner
func (g *Grid) ReleaseIf(coord vec.Vec2, owner entity.Handle) bool {
	g.pendingMu.Lock()
	defer g.pendingMu.Unlock()

	current, exists := g.pending[coord]
	if !exists || current != owner {
		return false
	}
	delete(g.pending, coord)
	return true
}

// PendingLen возвращает количество резервов
func (g *Grid) PendingLen() int {
	g.pendingMu.RLock()
	defer g.pendingMu.RUnlock()
	return len(g.pending)
}

// === Ёмкость ===

// Capacity возвращает текущие ёмкости физической сетки и множества резервов
func (g *Grid) Capacity() (cells, pending int) {
	g.cellsMu.RLock()
	cells = g.cellsCap
	g.cellsMu.RUnlock()

	g.pendingMu.RLock()
	pending = g.pendingCap
	g.pendingMu.RUnlock()
	return cells, pending
}

// EnsureCapacity увеличивает ёмкость пропорционально суммарной занятости,
// чтобы амортизировать перехеширование. Возвращает true, если что-то выросло.
func (g *Grid) EnsureCapacity() bool {
	g.cellsMu.Lock()
	defer g.cellsMu.Unlock()
	g.pendingMu.Lock()
	defer g.pendingMu.Unlock()

	grown := false
	occupied := len(g.cells) + len(g.pending)

	if g.cellsCap < occupied {
		g.cellsCap = occupied * 2
		g.cells = rehash(g.cells, g.cellsCap)
		grown = true
	}

	if g.pendingCap < len(g.pending)*2 {
		g.pendingCap = len(g.pending) * 4
		g.pending = rehash(g.pending, g.pendingCap)
		grown = true
	}

	return grown
}

func rehash[V any](src map[vec.Vec2]V, capacity int) map[vec.Vec2]V {
	dst := make(map[vec.Vec2]V, capacity)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
