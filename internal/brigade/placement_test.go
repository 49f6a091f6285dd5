package brigade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/vec"
)

func TestChainSlot(t *testing.T) {
	c := Chain{Source: vec.Vec2Float{X: 0, Y: 0}, Target: vec.Vec2Float{X: 10, Y: 0}}

	assert.Equal(t, c.Source, c.Slot(Fill, 0))
	assert.Equal(t, c.Target, c.Slot(Throw, 0.5))

	full := c.Slot(PassFull, 0.25)
	assert.InDelta(t, 5.0, full.X, 1e-9, "Середина прямой ветви")
	assert.InDelta(t, 1.0, full.Y, 1e-9, "Прогиб sin(pi/2)")

	empty := c.Slot(PassEmpty, 0.75)
	assert.InDelta(t, 5.0, empty.X, 1e-9)
	assert.InDelta(t, -1.0, empty.Y, 1e-9, "Обратная ветвь выгнута в другую сторону")

	start := c.Slot(PassFull, 0)
	assert.InDelta(t, 0.0, start.X, 1e-9)
	assert.InDelta(t, 0.0, start.Y, 1e-9)
}

func TestChainSlot_DegenerateChain(t *testing.T) {
	p := vec.Vec2Float{X: 3, Y: 3}
	c := Chain{Source: p, Target: p}

	slot := c.Slot(PassFull, 0.25)
	assert.Equal(t, p, slot, "Нулевая длина - без прогиба и без NaN")
}

func TestPlaceIdle_SendsOnlyIdleMembers(t *testing.T) {
	s := newTestSim(emptyConfig())
	id := s.AddChain(4)
	m := s.chains[id].Members
	s.chains[id].Source = vec.Vec2Float{X: 2.5, Y: 2.5}
	s.chains[id].Target = vec.Vec2Float{X: 12.5, Y: 2.5}

	for _, h := range m {
		placeBot(t, s, h, vec.Vec2Float{X: 18.5, Y: 18.5})
	}
	bucket := s.SpawnBucket(vec.Vec2Float{X: 18.5, Y: 18.5}, 1.0, false)
	carry(t, s, m[1], bucket)
	lone := s.AddBot(vec.Vec2Float{X: 1, Y: 1}, Omnibot)

	s.placeIdle()
	s.flush()

	fill, _ := s.bots.Get(m[0])
	require.True(t, fill.HasDestination)
	assert.Equal(t, s.chains[id].Source, fill.Destination)

	throw, _ := s.bots.Get(m[2])
	require.True(t, throw.HasDestination)
	assert.Equal(t, s.chains[id].Target, throw.Destination)

	busy, _ := s.bots.Get(m[1])
	assert.False(t, busy.HasDestination, "Агент с ведром не переставляется")

	omni, _ := s.bots.Get(lone)
	assert.False(t, omni.HasDestination, "Агент вне цепочки не переставляется")
	assert.Equal(t, entity.Null, omni.Carrying)
}

func TestPlaceIdle_MemberOnSlotStays(t *testing.T) {
	s := newTestSim(emptyConfig())
	id := s.AddChain(2)
	m := s.chains[id].Members
	placeBot(t, s, m[0], s.chains[id].Source)
	placeBot(t, s, m[1], s.chains[id].Target)

	s.placeIdle()
	s.flush()

	for _, h := range m {
		b, _ := s.bots.Get(h)
		assert.False(t, b.HasDestination)
	}
}
