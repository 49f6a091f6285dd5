package brigade

import (
	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/vec"
)

// EventType - тип доменного события симуляции
type EventType string

const (
	EventFireIgnited      EventType = "fire.ignited"
	EventFireDiscarded    EventType = "fire.discarded"
	EventFireExtinguished EventType = "fire.extinguished"
	EventBucketPickedUp   EventType = "bucket.picked_up"
	EventBucketHandedOff  EventType = "bucket.handed_off"
	EventBucketReleased   EventType = "bucket.released"
	EventBucketDoused     EventType = "bucket.doused"
	EventBucketSpawned    EventType = "bucket.spawned"
	EventBucketDestroyed  EventType = "bucket.destroyed"
	EventChainRetargeted  EventType = "chain.retargeted"
)

// Event - событие, накопленное за тик. Поля заполняются по смыслу типа.
type Event struct {
	Type     EventType     `json:"type"`
	Tick     uint64        `json:"tick"`
	Entity   entity.Handle `json:"entity"`
	Other    entity.Handle `json:"other,omitempty"`
	Coord    vec.Vec2      `json:"coord"`
	Position vec.Vec2Float `json:"position"`
	Value    float64       `json:"value,omitempty"`
	Chain    int           `json:"chain"`
}

// emit добавляет событие. Вызывается только на барьере.
func (s *Simulation) emit(ev Event) {
	ev.Tick = s.tick
	s.events = append(s.events, ev)
}

// DrainEvents забирает накопленные события
func (s *Simulation) DrainEvents() []Event {
	out := s.events
	s.events = nil
	return out
}
