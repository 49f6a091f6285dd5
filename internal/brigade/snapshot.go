package brigade

import (
	"sort"

	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/vec"
)

// FireView - состояние клетки огня для внешних потребителей
type FireView struct {
	ID       entity.Handle `json:"id"`
	Coord    vec.Vec2      `json:"coord"`
	Gradient float64       `json:"gradient"`
	Status   string        `json:"status"`
	Front    bool          `json:"front"`
	MaxedOut bool          `json:"maxed_out"`
	Height   float64       `json:"height"` // высота пламени для отрисовки
}

// BucketView - состояние ведра
type BucketView struct {
	ID        entity.Handle `json:"id"`
	Position  vec.Vec2Float `json:"position"`
	Gradient  float64       `json:"gradient"`
	CarriedBy entity.Handle `json:"carried_by"`
	Size      float64       `json:"size"` // размер для отрисовки: от пустого к полному
}

// BotView - состояние агента
type BotView struct {
	ID       entity.Handle `json:"id"`
	Position vec.Vec2Float `json:"position"`
	Role     string        `json:"role"`
	Chain    int           `json:"chain"`
	Carrying entity.Handle `json:"carrying"`
}

// WaterView - состояние водоёма
type WaterView struct {
	ID       entity.Handle `json:"id"`
	Center   vec.Vec2      `json:"center"`
	Capacity float64       `json:"capacity"`
	Gradient float64       `json:"gradient"`
	Cells    int           `json:"cells"`
}

// ChopperView - состояние вертолёта
type ChopperView struct {
	ID       entity.Handle `json:"id"`
	Position vec.Vec2Float `json:"position"`
	Altitude float64       `json:"altitude"`
	State    string        `json:"state"`
}

// ChainView - концы и состав цепочки
type ChainView struct {
	ID      int           `json:"id"`
	Source  vec.Vec2Float `json:"source"`
	Target  vec.Vec2Float `json:"target"`
	Members int           `json:"members"`
}

// Snapshot - копия видимого состояния мира на конец тика
type Snapshot struct {
	Tick     uint64        `json:"tick"`
	Elapsed  float64       `json:"elapsed"`
	Rows     int           `json:"rows"`
	Cols     int           `json:"cols"`
	CellSize float64       `json:"cell_size"`
	Fires    []FireView    `json:"fires"`
	Buckets  []BucketView  `json:"buckets"`
	Bots     []BotView     `json:"bots"`
	Waters   []WaterView   `json:"waters"`
	Choppers []ChopperView `json:"choppers"`
	Chains   []ChainView   `json:"chains"`
}

// Snapshot копирует состояние мира. Вызывается между тиками.
// Огонь отсортирован по координатам, остальное - в порядке слотов.
func (s *Simulation) Snapshot() Snapshot {
	snap := Snapshot{
		Tick:     s.tick,
		Elapsed:  s.elapsed,
		Rows:     s.grid.Rows(),
		Cols:     s.grid.Cols(),
		CellSize: s.grid.CellSize(),
	}

	s.fires.Each(func(h entity.Handle, f *Fire) {
		snap.Fires = append(snap.Fires, FireView{
			ID:       h,
			Coord:    f.Coord,
			Gradient: f.Gradient,
			Status:   f.Status.String(),
			Front:    f.Has(FlagFront),
			MaxedOut: f.Has(FlagMaxedOut),
			Height:   s.cfg.FireHeight(f.Gradient),
		})
	})
	sort.Slice(snap.Fires, func(i, j int) bool {
		a, b := snap.Fires[i].Coord, snap.Fires[j].Coord
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	s.buckets.Each(func(h entity.Handle, b *Bucket) {
		snap.Buckets = append(snap.Buckets, BucketView{
			ID:        h,
			Position:  b.Position,
			Gradient:  b.Gradient,
			CarriedBy: b.CarriedBy,
			Size:      s.cfg.BucketSize(b.Gradient),
		})
	})
	s.bots.Each(func(h entity.Handle, b *Bot) {
		snap.Bots = append(snap.Bots, BotView{ID: h, Position: b.Position, Role: b.Role.String(), Chain: b.Chain, Carrying: b.Carrying})
	})
	s.waters.Each(func(h entity.Handle, w *WaterSource) {
		snap.Waters = append(snap.Waters, WaterView{ID: h, Center: w.Center, Capacity: w.Capacity, Gradient: w.Gradient, Cells: len(w.stamped)})
	})
	s.choppers.Each(func(h entity.Handle, c *Chopper) {
		state := ""
		if cur := c.FSM.Current(); cur != nil {
			state = cur.Name()
		}
		snap.Choppers = append(snap.Choppers, ChopperView{ID: h, Position: c.Position, Altitude: c.Altitude, State: state})
	})
	for _, c := range s.chains {
		snap.Chains = append(snap.Chains, ChainView{ID: c.ID, Source: c.Source, Target: c.Target, Members: len(c.Members)})
	}

	return snap
}

// Fire возвращает копию клетки огня
func (s *Simulation) Fire(h entity.Handle) (Fire, bool) {
	f, ok := s.fires.Get(h)
	if !ok {
		return Fire{}, false
	}
	return *f, true
}

// Bucket возвращает копию ведра
func (s *Simulation) Bucket(h entity.Handle) (Bucket, bool) {
	b, ok := s.buckets.Get(h)
	if !ok {
		return Bucket{}, false
	}
	return *b, true
}

// Bot возвращает копию агента
func (s *Simulation) Bot(h entity.Handle) (Bot, bool) {
	b, ok := s.bots.Get(h)
	if !ok {
		return Bot{}, false
	}
	return *b, true
}

// Water возвращает копию водоёма
func (s *Simulation) Water(h entity.Handle) (WaterSource, bool) {
	w, ok := s.waters.Get(h)
	if !ok {
		return WaterSource{}, false
	}
	return *w, true
}

// FireHandles возвращает идентификаторы всех клеток огня
func (s *Simulation) FireHandles() []entity.Handle { return s.fires.Handles() }

// BucketHandles возвращает идентификаторы всех вёдер
func (s *Simulation) BucketHandles() []entity.Handle { return s.buckets.Handles() }

// BotHandles возвращает идентификаторы всех агентов
func (s *Simulation) BotHandles() []entity.Handle { return s.bots.Handles() }
