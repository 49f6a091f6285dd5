package brigade

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/annel0/bucket-brigade/internal/vec"
)

func TestStepToward(t *testing.T) {
	pos, arrived := stepToward(vec.Vec2Float{}, vec.Vec2Float{X: 3, Y: 4}, 1)
	assert.False(t, arrived)
	assert.InDelta(t, 0.6, pos.X, 1e-9)
	assert.InDelta(t, 0.8, pos.Y, 1e-9)

	pos, arrived = stepToward(vec.Vec2Float{X: 2.9, Y: 4}, vec.Vec2Float{X: 3, Y: 4}, 1)
	assert.True(t, arrived, "Ближе шага - встаём ровно в цель")
	assert.Equal(t, vec.Vec2Float{X: 3, Y: 4}, pos)
}

func TestMove_CarryingFullBucketIsSlower(t *testing.T) {
	s := newTestSim(emptyConfig())
	loaded := s.AddBot(vec.Vec2Float{X: 0.5, Y: 0.5}, Omnibot)
	light := s.AddBot(vec.Vec2Float{X: 0.5, Y: 2.5}, Omnibot)
	full := s.SpawnBucket(vec.Vec2Float{X: 0.5, Y: 0.5}, 1.0, false)
	carry(t, s, loaded, full)

	lb, _ := s.bots.Get(loaded)
	lb.Destination, lb.HasDestination = vec.Vec2Float{X: 10.5, Y: 0.5}, true
	fb, _ := s.bots.Get(light)
	fb.Destination, fb.HasDestination = vec.Vec2Float{X: 10.5, Y: 2.5}, true

	s.move(1.0)

	lb, _ = s.bots.Get(loaded)
	fb, _ = s.bots.Get(light)
	assert.InDelta(t, 0.75, lb.Position.X, 1e-9, "0.5 * 0.5 * 1.0")
	assert.InDelta(t, 1.0, fb.Position.X, 1e-9)

	bk, _ := s.buckets.Get(full)
	assert.Equal(t, lb.Position, bk.Position, "Несомое ведро следует за носильщиком")
}

func TestMove_ArrivalClearsDestination(t *testing.T) {
	s := newTestSim(emptyConfig())
	h := s.AddBot(vec.Vec2Float{X: 1, Y: 1}, Omnibot)
	b, _ := s.bots.Get(h)
	b.Destination, b.HasDestination = vec.Vec2Float{X: 1.2, Y: 1}, true

	s.move(1.0)

	b, _ = s.bots.Get(h)
	assert.False(t, b.HasDestination)
	assert.Equal(t, vec.Vec2Float{X: 1.2, Y: 1}, b.Position)
}
