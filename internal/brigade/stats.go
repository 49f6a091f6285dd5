package brigade

import (
	"github.com/annel0/bucket-brigade/internal/entity"
)

// Stats - агрегированное состояние мира
type Stats struct {
	Tick    uint64  `json:"tick"`
	Elapsed float64 `json:"elapsed"`

	FiresActive   int `json:"fires_active"`
	FiresPending  int `json:"fires_pending"`
	FiresRemoving int `json:"fires_removing"`
	FiresFront    int `json:"fires_front"`
	FiresMaxedOut int `json:"fires_maxed_out"`

	Buckets        int `json:"buckets"`
	BucketsCarried int `json:"buckets_carried"`
	BucketsFull    int `json:"buckets_full"`
	BucketsEmpty   int `json:"buckets_empty"`

	Bots         int `json:"bots"`
	BotsCarrying int `json:"bots_carrying"`
	BotsMoving   int `json:"bots_moving"`

	Chains       int `json:"chains"`
	WaterSources int `json:"water_sources"`
	Choppers     int `json:"choppers"`

	GridCells    int    `json:"grid_cells"`
	PendingCells int    `json:"pending_cells"`
	Commands     uint64 `json:"commands_replayed"`
}

// Stats собирает статистику. Вызывается между тиками.
func (s *Simulation) Stats() Stats {
	st := Stats{
		Tick:         s.tick,
		Elapsed:      s.elapsed,
		Buckets:      s.buckets.Len(),
		Bots:         s.bots.Len(),
		Chains:       len(s.chains),
		WaterSources: s.waters.Len(),
		Choppers:     s.choppers.Len(),
		GridCells:    s.grid.Len(),
		PendingCells: s.grid.PendingLen(),
		Commands:     s.log.Replayed(),
	}

	s.fires.Each(func(_ entity.Handle, f *Fire) {
		switch f.Status {
		case Active:
			st.FiresActive++
		case PendingIgnition:
			st.FiresPending++
		case PendingRemoval:
			st.FiresRemoving++
		}
		if f.Has(FlagFront) {
			st.FiresFront++
		}
		if f.Has(FlagMaxedOut) {
			st.FiresMaxedOut++
		}
	})

	s.buckets.Each(func(_ entity.Handle, b *Bucket) {
		if b.CarriedBy != entity.Null {
			st.BucketsCarried++
		}
		if b.Full() {
			st.BucketsFull++
		}
		if b.Empty() {
			st.BucketsEmpty++
		}
	})

	s.bots.Each(func(_ entity.Handle, b *Bot) {
		if b.Carrying != entity.Null {
			st.BotsCarrying++
		}
		if b.HasDestination {
			st.BotsMoving++
		}
	})

	return st
}
