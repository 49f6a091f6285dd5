package brigade

import (
	"math"

	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/vec"
	"github.com/annel0/bucket-brigade/internal/world/command"
	"github.com/annel0/bucket-brigade/internal/world/grid"
)

// Op - вид отложенной команды
type Op uint8

const (
	OpSpawnFire      Op = iota // Coord, Value = жар
	OpPromoteFire              // Entity: предогонь -> активный огонь
	OpDiscardFire              // Entity: уничтожить предогонь и снять резерв
	OpSetFireFlag              // Entity, Flags
	OpSetFireStatus            // Entity, Status
	OpCoolFire                 // Entity, Value = на сколько остудить
	OpSpawnBucket              // Position, Value = наполненность, Bool = DestroyWhenEmpty
	OpDestroyBucket            // Entity
	OpGoTo                     // Entity (агент), Other (ведро или Null), Position
	OpSetDestination           // Entity (агент), Position
	OpClearToward              // Entity (агент)
	OpAttachCarry              // Entity (агент), Other (ведро)
	OpTransferCarry            // Entity (кто отдаёт), Other (кто принимает)
	OpReleaseCarry             // Entity (агент)
	OpNotify                   // Event
)

// Command - запись журнала. Применяется однопоточно на барьере.
type Command struct {
	Op       Op
	Entity   entity.Handle
	Other    entity.Handle
	Coord    vec.Vec2
	Position vec.Vec2Float
	Value    float64
	Flags    FireFlags
	Status   FireStatus
	Bool     bool
	Event    EventType
}

// commandBuffer - буфер журнала одного воркера
type commandBuffer = command.Buffer[Command]

// flush воспроизводит журнал команд
func (s *Simulation) flush() int {
	return s.log.Flush(s.apply)
}

// apply применяет одну команду. Команды на исчезнувшие сущности - no-op.
func (s *Simulation) apply(cmd Command) {
	switch cmd.Op {
	case OpSpawnFire:
		s.spawnFire(cmd.Coord, cmd.Value)

	case OpPromoteFire:
		s.promoteFire(cmd.Entity)

	case OpDiscardFire:
		s.discardFire(cmd.Entity)

	case OpSetFireFlag:
		if f, ok := s.fires.Get(cmd.Entity); ok {
			f.Flags |= cmd.Flags
		}

	case OpSetFireStatus:
		if f, ok := s.fires.Get(cmd.Entity); ok && f.Status == Active {
			f.Status = cmd.Status
		}

	case OpCoolFire:
		f, ok := s.fires.Get(cmd.Entity)
		if !ok || f.Status != Active {
			return
		}
		f.Gradient = math.Max(0, f.Gradient-cmd.Value)
		// Внешнее воздействие размораживает клетку
		f.Flags &^= FlagMaxedOut
		if f.Gradient <= 0 {
			f.Status = PendingRemoval
		}

	case OpSpawnBucket:
		h := s.SpawnBucket(cmd.Position, cmd.Value, cmd.Bool)
		s.emit(Event{Type: EventBucketSpawned, Entity: h, Position: cmd.Position, Value: cmd.Value})

	case OpDestroyBucket:
		s.destroyBucket(cmd.Entity)

	case OpGoTo:
		if b, ok := s.bots.Get(cmd.Entity); ok {
			b.Destination = cmd.Position
			b.HasDestination = true
			b.Toward = MovingToward{Target: cmd.Other, Position: cmd.Position}
			b.HasToward = true
		}

	case OpSetDestination:
		if b, ok := s.bots.Get(cmd.Entity); ok {
			b.Destination = cmd.Position
			b.HasDestination = true
		}

	case OpClearToward:
		if b, ok := s.bots.Get(cmd.Entity); ok {
			b.HasToward = false
			b.Toward = MovingToward{}
		}

	case OpAttachCarry:
		s.attachCarry(cmd.Entity, cmd.Other)

	case OpTransferCarry:
		s.transferCarry(cmd.Entity, cmd.Other)

	case OpReleaseCarry:
		s.releaseCarry(cmd.Entity)

	case OpNotify:
		s.emit(Event{
			Type:     cmd.Event,
			Entity:   cmd.Entity,
			Other:    cmd.Other,
			Coord:    cmd.Coord,
			Position: cmd.Position,
			Value:    cmd.Value,
		})
	}
}

// spawnFire создаёт новую активную клетку с флагом New.
// В сетку её вставит обслуживание следующего тика.
func (s *Simulation) spawnFire(coord vec.Vec2, gradient float64) entity.Handle {
	if !s.grid.InBounds(coord) {
		return entity.Null
	}
	return s.fires.Create(Fire{
		Coord:    coord,
		Gradient: clamp01(gradient),
		Status:   Active,
		Flags:    FlagNew,
	})
}

// promoteFire переводит предогонь в активный огонь с немедленной вставкой
// в сетку. Проигравший конкуренцию за клетку уничтожается.
func (s *Simulation) promoteFire(h entity.Handle) {
	f, ok := s.fires.Get(h)
	if !ok || f.Status != PendingIgnition {
		return
	}
	if !s.grid.TryInsert(f.Coord, h, grid.Fire) {
		s.discardFire(h)
		return
	}
	s.grid.Release(f.Coord)
	f.Status = Active
	f.Flags = FlagNew
}

// discardFire уничтожает клетку огня и снимает её собственный резерв
func (s *Simulation) discardFire(h entity.Handle) {
	f, ok := s.fires.Get(h)
	if !ok {
		return
	}
	coord := f.Coord
	s.grid.ReleaseIf(coord, h)
	s.grid.RemoveIf(coord, h)
	s.fires.Destroy(h)
	s.emit(Event{Type: EventFireDiscarded, Entity: h, Coord: coord})
}

// destroyBucket уничтожает ведро, отцепляя его от носильщика
func (s *Simulation) destroyBucket(h entity.Handle) {
	b, ok := s.buckets.Get(h)
	if !ok {
		return
	}
	if bot, ok := s.bots.Get(b.CarriedBy); ok && bot.Carrying == h {
		bot.Carrying = entity.Null
	}
	pos := b.Position
	s.buckets.Destroy(h)
	s.emit(Event{Type: EventBucketDestroyed, Entity: h, Position: pos})
}

// attachCarry - подбор ведра. Конкуренция решается при воспроизведении:
// выигрывает первая команда, остальные лишь сбрасывают свою цель.
func (s *Simulation) attachCarry(botH, bucketH entity.Handle) {
	bot, ok := s.bots.Get(botH)
	if !ok {
		return
	}
	bot.HasToward = false
	bot.Toward = MovingToward{}

	b, ok := s.buckets.Get(bucketH)
	if !ok || bot.Carrying != entity.Null || b.CarriedBy != entity.Null {
		return
	}
	bot.Carrying = bucketH
	b.CarriedBy = botH
	s.emit(Event{Type: EventBucketPickedUp, Entity: bucketH, Other: botH, Position: b.Position, Value: b.Gradient})
}

// transferCarry передаёт ведро следующему агенту. Если тот занят,
// отдающий сохраняет ведро и пересчитает цель на следующем тике.
func (s *Simulation) transferCarry(fromH, toH entity.Handle) {
	from, ok := s.bots.Get(fromH)
	if !ok {
		return
	}
	from.HasToward = false
	from.Toward = MovingToward{}

	to, ok := s.bots.Get(toH)
	if !ok || to.Carrying != entity.Null {
		return
	}
	bucketH := from.Carrying
	b, ok := s.buckets.Get(bucketH)
	if !ok || b.CarriedBy != fromH {
		return
	}

	b.CarriedBy = toH
	to.Carrying = bucketH
	from.Carrying = entity.Null

	// Принявший больше никуда не идёт: ведро уже у него
	to.HasToward = false
	to.Toward = MovingToward{}
	to.HasDestination = false

	s.emit(Event{Type: EventBucketHandedOff, Entity: bucketH, Other: toH, Position: b.Position, Value: b.Gradient})
}

// releaseCarry кладёт ведро там, где стоит агент
func (s *Simulation) releaseCarry(botH entity.Handle) {
	bot, ok := s.bots.Get(botH)
	if !ok {
		return
	}
	bot.HasToward = false
	bot.Toward = MovingToward{}

	bucketH := bot.Carrying
	bot.Carrying = entity.Null
	b, ok := s.buckets.Get(bucketH)
	if !ok || b.CarriedBy != botH {
		return
	}
	b.CarriedBy = entity.Null
	b.Position = bot.Position
	s.emit(Event{Type: EventBucketReleased, Entity: bucketH, Other: botH, Position: b.Position, Value: b.Gradient})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
