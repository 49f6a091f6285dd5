package brigade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/bucket-brigade/internal/entity"
)

func TestCheckInvariants_CleanWorld(t *testing.T) {
	s := newTestSim(emptyConfig())
	igniteNow(t, s, 5, 5, 0.5)
	s.SpawnBucket(cellCenter(s, 2, 2), 0, false)
	s.AddChain(4)
	assert.NoError(t, s.CheckInvariants())
}

func TestCheckInvariants_DetectsBrokenCarry(t *testing.T) {
	s := newTestSim(emptyConfig())
	bot := s.AddBot(cellCenter(s, 1, 1), Omnibot)
	bucket := s.SpawnBucket(cellCenter(s, 1, 1), 0, false)
	carry(t, s, bot, bucket)
	require.NoError(t, s.CheckInvariants())

	// Ведро "забыло" носильщика
	bk, _ := s.buckets.Get(bucket)
	bk.CarriedBy = entity.Null

	err := s.CheckInvariants()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestCheckInvariants_DetectsGradientOutOfRange(t *testing.T) {
	s := newTestSim(emptyConfig())
	h := igniteNow(t, s, 5, 5, 0.5)

	f, _ := s.fires.Get(h)
	f.Gradient = 1.5

	err := s.CheckInvariants()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvariant)
	assert.Contains(t, err.Error(), "вне [0,1]")
}

func TestCheckInvariants_DetectsStaleGridCell(t *testing.T) {
	s := newTestSim(emptyConfig())
	h := igniteNow(t, s, 5, 5, 0.5)
	// Сетка продолжает ссылаться на удалённый огонь
	s.fires.Destroy(h)

	assert.ErrorIs(t, s.CheckInvariants(), ErrInvariant)
}
