package brigade

import (
	"math/rand"

	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/vec"
)

// FireStatus - фаза жизненного цикла клетки огня
type FireStatus uint8

const (
	// PendingIgnition - "предогонь": копит жар, но не занимает сетку
	PendingIgnition FireStatus = iota
	// Active - горящая клетка в сетке
	Active
	// PendingRemoval - потушена, обслуживание уберёт её из сетки
	PendingRemoval
)

func (s FireStatus) String() string {
	switch s {
	case PendingIgnition:
		return "pending"
	case Active:
		return "active"
	case PendingRemoval:
		return "removing"
	default:
		return "unknown"
	}
}

// FireFlags - маркеры огня (вместо тегов-компонентов)
type FireFlags uint8

const (
	// FlagFront - активная клетка граничит с пустотой
	FlagFront FireFlags = 1 << iota
	// FlagMaxedOut - жар достиг 1, накопление заморожено до внешнего воздействия
	FlagMaxedOut
	// FlagNew - только что зажжённая клетка, ждёт обслуживания
	FlagNew
	// FlagDelete - отложенное удаление
	FlagDelete
)

// Fire - клетка огня
type Fire struct {
	Coord    vec.Vec2
	Gradient float64
	Status   FireStatus
	Flags    FireFlags
}

// Has проверяет наличие флага
func (f *Fire) Has(flag FireFlags) bool {
	return f.Flags&flag != 0
}

// Bucket - ведро
type Bucket struct {
	Position         vec.Vec2Float
	Gradient         float64 // 0 - пустое, 1 - полное
	Capacity         float64
	CarriedBy        entity.Handle
	DestroyWhenEmpty bool
}

// Full сообщает, что ведро полное
func (b *Bucket) Full() bool { return b.Gradient >= 1 }

// Empty сообщает, что ведро пустое
func (b *Bucket) Empty() bool { return b.Gradient <= 0 }

// Role - роль агента
type Role uint8

const (
	Fill Role = iota
	Throw
	PassFull
	PassEmpty
	Omnibot
)

func (r Role) String() string {
	switch r {
	case Fill:
		return "fill"
	case Throw:
		return "throw"
	case PassFull:
		return "pass_full"
	case PassEmpty:
		return "pass_empty"
	case Omnibot:
		return "omnibot"
	default:
		return "unknown"
	}
}

// MovingToward - цель, к которой агент подходит; проверяется перед действием
type MovingToward struct {
	Target   entity.Handle // ведро или Null для клетки
	Position vec.Vec2Float
}

// Link - звено цепочки
type Link struct {
	Previous entity.Handle
	Next     entity.Handle
	Progress float64
}

// NoChain - агент не состоит в цепочке
const NoChain = -1

// Bot - агент
type Bot struct {
	Position       vec.Vec2Float
	Destination    vec.Vec2Float
	HasDestination bool
	Speed          float64
	Role           Role
	Carrying       entity.Handle
	Toward         MovingToward
	HasToward      bool
	Chain          int
	Link           Link
}

// Chain - цепочка агентов и её концы (источник воды и цель-огонь)
type Chain struct {
	ID         int
	Members    []entity.Handle // в порядке звеньев: голова первая
	Source     vec.Vec2Float
	Target     vec.Vec2Float
	RelativeTo entity.Handle // обычно агент Fill
}

// WaterSource - водоём: занимает в сетке круг клеток
type WaterSource struct {
	Center   vec.Vec2
	Capacity float64
	Gradient float64

	stamped []vec.Vec2 // клетки, которые водоём сейчас занимает
	dirty   bool       // отпечаток надо пересчитать
}

// Chopper - вертолёт, сбрасывающий воду (или огонь) по своему маршруту
type Chopper struct {
	Position       vec.Vec2Float
	Destination    vec.Vec2Float
	HasDestination bool
	Speed          float64

	Altitude      float64
	MaxAltitude   float64
	VerticalSpeed float64

	DropWaterNext bool
	DropFire      bool

	Source vec.Vec2Float
	Target vec.Vec2Float

	FSM chopperMachine
	rng *rand.Rand
}
