package brigade

import (
	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/vec"
	"github.com/annel0/bucket-brigade/internal/world/grid"
)

// arriveDistSq - квадрат расстояния, на котором агент считается дошедшим
const arriveDistSq = 0.25

// coordinate - координатор агентов. Каждый проход читает состояние,
// зафиксированное предыдущим барьером, и пишет только в журнал.
func (s *Simulation) coordinate() {
	s.decideDestinations()
	s.flush()
	s.pickUp()
	s.flush()
	s.decideDrops()
	s.flush()
	s.dropOff()
	s.flush()
	s.placeIdle()
	s.flush()
}

// forEachBot параллельно обходит снимок агентов
func (s *Simulation) forEachBot(fn func(buf botBuffer, h entity.Handle, b *Bot)) {
	handles := s.bots.Handles()
	s.pool.Run(len(handles), func(worker, lo, hi int) {
		buf := botBuffer{s.log.Buffer(worker)}
		for i := lo; i < hi; i++ {
			if b, ok := s.bots.Get(handles[i]); ok {
				fn(buf, handles[i], b)
			}
		}
	})
}

// 1. Свободные агенты выбирают, за каким ведром идти
func (s *Simulation) decideDestinations() {
	free := s.freeBuckets()

	s.forEachBot(func(buf botBuffer, h entity.Handle, b *Bot) {
		if b.HasDestination || b.Carrying != entity.Null || b.HasToward {
			return
		}

		switch b.Role {
		case Fill, Omnibot:
			if bh, pos, ok := s.nearestBucket(b.Position, free, anyBucket); ok {
				buf.goTo(h, bh, pos)
			}

		default:
			pred, ok := s.bots.Get(b.Link.Previous)
			if !ok {
				return
			}
			if pred.Carrying != entity.Null {
				// Подходим к предыдущему, только если его ведро нам подходит
				pb, ok := s.buckets.Get(pred.Carrying)
				if ok && accepts(b.Role, pb) {
					buf.goTo(h, pred.Carrying, b.Position.Midpoint(pred.Position))
				}
				return
			}
			// Ведро после броска остаётся у огня: первый из обратной
			// ветви забирает ближайшее пустое
			if b.Role == PassEmpty && pred.Role == Throw {
				if bh, pos, ok := s.nearestBucket(b.Position, free, emptyBucket); ok {
					buf.goTo(h, bh, pos)
				}
			}
		}
	})
}

// 2. Дошедшие агенты подбирают ведро. Ведро у предыдущего в цепочке
// или ещё не на краю наполненности - ждём рядом, не сбрасывая цель.
// Ведро ушло с места или досталось чужому - цель сбрасывается, и агент
// заново выбирает его текущую позицию.
func (s *Simulation) pickUp() {
	s.forEachBot(func(buf botBuffer, h entity.Handle, b *Bot) {
		if b.Carrying != entity.Null || b.HasDestination || !b.HasToward {
			return
		}
		bk, ok := s.buckets.Get(b.Toward.Target)
		if !ok || b.Position.DistanceSqTo(b.Toward.Position) >= arriveDistSq {
			buf.clearToward(h)
			return
		}
		if bk.CarriedBy != entity.Null {
			if bk.CarriedBy != b.Link.Previous {
				buf.clearToward(h)
			}
			return
		}
		if b.Position.DistanceSqTo(bk.Position) > arriveDistSq {
			buf.clearToward(h)
			return
		}
		if !(bk.Full() || bk.Empty()) {
			return
		}
		buf.Append(Command{Op: OpAttachCarry, Entity: h, Other: b.Toward.Target})
	})
}

// 3. Агенты с ведром решают, куда его нести
func (s *Simulation) decideDrops() {
	s.forEachBot(func(buf botBuffer, h entity.Handle, b *Bot) {
		if b.Carrying == entity.Null || b.HasDestination || b.HasToward {
			return
		}
		bk, ok := s.buckets.Get(b.Carrying)
		if !ok {
			return
		}

		switch b.Role {
		case Omnibot:
			kind := grid.Water
			if bk.Full() {
				kind = grid.Fire
			}
			s.headFor(buf, h, b, kind)

		case Fill:
			if !bk.Full() {
				s.headFor(buf, h, b, grid.Water)
				return
			}
			// Без цепочки за спиной Fill носит ведро сам
			if !s.handOff(buf, h, b) && !s.bots.Alive(s.successor(b)) {
				s.headFor(buf, h, b, grid.Fire)
			}

		case Throw:
			if !bk.Empty() {
				s.headFor(buf, h, b, grid.Fire)
				return
			}
			if !s.handOff(buf, h, b) && !s.bots.Alive(s.successor(b)) {
				s.headFor(buf, h, b, grid.Water)
			}

		case PassFull, PassEmpty:
			s.handOff(buf, h, b)
		}
	})
}

// 4. Дошедшие агенты с ведром передают его дальше или кладут
func (s *Simulation) dropOff() {
	s.forEachBot(func(buf botBuffer, h entity.Handle, b *Bot) {
		if b.Carrying == entity.Null || b.HasDestination || !b.HasToward {
			return
		}
		if b.Position.DistanceSqTo(b.Toward.Position) > arriveDistSq {
			buf.clearToward(h)
			return
		}
		bk, ok := s.buckets.Get(b.Carrying)
		if !ok {
			return
		}

		succH := s.successor(b)
		succ, hasSucc := s.bots.Get(succH)

		pass := false
		switch b.Role {
		case PassFull:
			pass = true
		case PassEmpty:
			pass = !(hasSucc && succ.Role == Fill)
		case Fill:
			pass = bk.Full()
		}

		if pass && hasSucc {
			buf.Append(Command{Op: OpTransferCarry, Entity: h, Other: succH})
			return
		}
		buf.Append(Command{Op: OpReleaseCarry, Entity: h})
	})
}

// handOff отправляет агента к середине пути до следующего в цепочке.
// Возвращает false, если передавать некому или следующий занят.
func (s *Simulation) handOff(buf botBuffer, h entity.Handle, b *Bot) bool {
	succ, ok := s.bots.Get(s.successor(b))
	if !ok {
		return false
	}
	// Хвост обратной ветви просто кладёт ведро у Fill, занятость не важна
	releasing := b.Role == PassEmpty && succ.Role == Fill
	if succ.Carrying != entity.Null && !releasing {
		return false
	}
	buf.goTo(h, b.Carrying, b.Position.Midpoint(succ.Position))
	return true
}

// headFor отправляет агента к ближайшей клетке нужного вида
func (s *Simulation) headFor(buf botBuffer, h entity.Handle, b *Bot, kind grid.Kind) {
	buf.goTo(h, entity.Null, s.grid.FindNearestPosition(b.Position, kind))
}

// successor - следующий в цепочке. Хвост обратной ветви замыкается на Fill.
func (s *Simulation) successor(b *Bot) entity.Handle {
	if b.Link.Next != entity.Null {
		return b.Link.Next
	}
	if b.Role != PassEmpty || b.Chain < 0 || b.Chain >= len(s.chains) {
		return entity.Null
	}
	members := s.chains[b.Chain].Members
	if len(members) == 0 {
		return entity.Null
	}
	if head, ok := s.bots.Get(members[0]); ok && head.Role == Fill {
		return members[0]
	}
	return entity.Null
}

// accepts - подходит ли ведро предыдущего агента роли
func accepts(role Role, b *Bucket) bool {
	switch role {
	case PassFull:
		return b.Full()
	case PassEmpty:
		return b.Empty()
	case Throw:
		return b.Full() || b.Empty()
	}
	return false
}

type bucketFilter int

const (
	anyBucket bucketFilter = iota
	emptyBucket
)

// freeBuckets - снимок никем не несомых вёдер
func (s *Simulation) freeBuckets() []entity.Handle {
	var out []entity.Handle
	s.buckets.Each(func(h entity.Handle, b *Bucket) {
		if b.CarriedBy == entity.Null {
			out = append(out, h)
		}
	})
	return out
}

// nearestBucket - ближайшее по Евклиду свободное ведро; при равенстве первое
func (s *Simulation) nearestBucket(from vec.Vec2Float, free []entity.Handle, filter bucketFilter) (entity.Handle, vec.Vec2Float, bool) {
	best := entity.Null
	var bestPos vec.Vec2Float
	bestDist := 0.0
	for _, h := range free {
		b, ok := s.buckets.Get(h)
		if !ok {
			continue
		}
		if filter == emptyBucket && !b.Empty() {
			continue
		}
		d := from.DistanceSqTo(b.Position)
		if best == entity.Null || d < bestDist {
			best, bestPos, bestDist = h, b.Position, d
		}
	}
	return best, bestPos, best != entity.Null
}

// botBuffer - буфер журнала с командами агентов
type botBuffer struct {
	*commandBuffer
}

func (b botBuffer) goTo(h, target entity.Handle, pos vec.Vec2Float) {
	b.Append(Command{Op: OpGoTo, Entity: h, Other: target, Position: pos})
}

func (b botBuffer) clearToward(h entity.Handle) {
	b.Append(Command{Op: OpClearToward, Entity: h})
}
