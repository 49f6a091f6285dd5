package entity

// State представляет состояние конечного автомата владельца T,
// которому при обновлении доступен интерфейс окружения A
type State[T any, A any] interface {
	Name() string
	Enter(owner *T)
	Update(owner *T, api A) State[T, A]
	Exit(owner *T)
}

// Machine хранит текущее состояние автомата
type Machine[T any, A any] struct {
	current State[T, A]
}

// NewMachine создаёт автомат, уже находящийся в состоянии initial (без вызова Enter)
func NewMachine[T any, A any](initial State[T, A]) Machine[T, A] {
	return Machine[T, A]{current: initial}
}

// Current возвращает текущее состояние
func (m *Machine[T, A]) Current() State[T, A] {
	return m.current
}

// Update обновляет состояние и выполняет переход, если состояние сменилось.
// Возвращает true при смене состояния.
func (m *Machine[T, A]) Update(owner *T, api A) bool {
	if m.current == nil {
		return false
	}
	next := m.current.Update(owner, api)
	if next == nil || next == m.current {
		return false
	}
	m.current.Exit(owner)
	m.current = next
	m.current.Enter(owner)
	return true
}

// Set принудительно устанавливает новое состояние
func (m *Machine[T, A]) Set(owner *T, state State[T, A]) {
	if m.current != nil {
		m.current.Exit(owner)
	}

	m.current = state

	if m.current != nil {
		m.current.Enter(owner)
	}
}
