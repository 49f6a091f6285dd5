package brigade

import (
	"math"

	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/vec"
)

// slotEpsilonSq - агент ближе этого к своему месту уже стоит на нём
const slotEpsilonSq = 0.001

// placeIdle отправляет свободных агентов цепочки на их место
func (s *Simulation) placeIdle() {
	s.forEachBot(func(buf botBuffer, h entity.Handle, b *Bot) {
		if b.Chain < 0 || b.Chain >= len(s.chains) {
			return
		}
		if b.HasDestination || b.HasToward || b.Carrying != entity.Null {
			return
		}
		slot := s.chains[b.Chain].Slot(b.Role, b.Link.Progress)
		if b.Position.DistanceSqTo(slot) > slotEpsilonSq {
			buf.Append(Command{Op: OpSetDestination, Entity: h, Position: slot})
		}
	})
}

// Slot - место агента на изогнутой линии между водой и огнём.
// Прямая ветвь (PassFull) идёт от воды к огню, обратная (PassEmpty) -
// от огня к воде; обе выгнуты синусом в свою сторону.
func (c *Chain) Slot(role Role, progress float64) vec.Vec2Float {
	switch role {
	case Fill:
		return c.Source
	case Throw:
		return c.Target
	}

	progress *= 2
	if progress > 1 {
		progress--
	}
	offset := math.Sin(progress * math.Pi)

	diff := c.Source.Sub(c.Target)
	if role == PassEmpty {
		diff = c.Target.Sub(c.Source)
	}
	from, to := c.Target, c.Source
	if role == PassFull {
		from, to = c.Source, c.Target
	}
	perp := diff.Normalized().Perpendicular()

	return from.Lerp(to, progress).Add(perp.Mul(offset))
}
