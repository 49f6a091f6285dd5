package brigade

import (
	"math"
	"sort"

	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/util"
	"github.com/annel0/bucket-brigade/internal/vec"
)

const (
	// spawnMargin - отступ от края для вёдер и первых очагов
	spawnMargin = 5
	// waterNoiseScale - размер "пятен" шума при выборе мест под водоёмы
	waterNoiseScale = 8.0
	// ignitionAttempts - сколько раз пробовать найти свободную клетку под очаг
	ignitionAttempts = 16
)

// Populate заселяет мир по конфигурации. Результат полностью определяется сидом.
// Вызывается один раз до первого тика.
func (s *Simulation) Populate() {
	cfg := s.cfg

	s.placeWater(cfg.WaterSources)

	for i := 0; i < cfg.Fires; i++ {
		for attempt := 0; attempt < ignitionAttempts; attempt++ {
			if _, ok := s.Ignite(s.randomCoord(spawnMargin), 1.0); ok {
				break
			}
		}
	}

	for i := 0; i < cfg.Buckets; i++ {
		s.SpawnBucket(s.grid.ToPosition(s.randomCoord(spawnMargin)), 0, false)
	}

	for i := 0; i < cfg.Chains; i++ {
		s.AddChain(cfg.BotsPerChain)
	}

	for i := 0; i < cfg.Omnibots; i++ {
		s.AddBot(s.randomPosition(), Omnibot)
	}

	for i := 0; i < cfg.Choppers; i++ {
		s.AddChopper(s.randomPosition())
	}

	s.logger.Info("🔥 Мир заселён: цепочек %d, агентов %d, вёдер %d, очагов %d, водоёмов %d, вертолётов %d",
		len(s.chains), s.bots.Len(), s.buckets.Len(), s.fires.Len(), s.waters.Len(), s.choppers.Len())
}

// AddBot создаёт агента вне цепочки
func (s *Simulation) AddBot(pos vec.Vec2Float, role Role) entity.Handle {
	return s.bots.Create(Bot{
		Position: pos,
		Speed:    s.cfg.Bot.Speed,
		Role:     role,
		Chain:    NoChain,
	})
}

// ChainRole - роль агента по его номеру в цепочке из n агентов:
// голова - Fill, середина - Throw, до неё прямая ветвь, после - обратная
func ChainRole(i, n int) Role {
	switch {
	case i == 0:
		return Fill
	case i == n/2:
		return Throw
	case i < n/2:
		return PassFull
	default:
		return PassEmpty
	}
}

// AddChain создаёт цепочку из n агентов в случайных местах и сразу
// наводит её на ближайший огонь. Возвращает номер цепочки.
func (s *Simulation) AddChain(n int) int {
	id := len(s.chains)
	members := make([]entity.Handle, n)
	for i := range members {
		members[i] = s.bots.Create(Bot{
			Position: s.randomPosition(),
			Speed:    s.cfg.Bot.Speed,
			Role:     ChainRole(i, n),
			Chain:    id,
		})
	}

	for i, h := range members {
		b, _ := s.bots.Get(h)
		if i > 0 {
			b.Link.Previous = members[i-1]
		}
		if i < n-1 {
			b.Link.Next = members[i+1]
		}
		if n > 1 {
			b.Link.Progress = float64(i) / float64(n-1)
		}
	}

	chain := Chain{ID: id, Members: members}
	if n > 0 {
		chain.RelativeTo = members[0]
		head, _ := s.bots.Get(members[0])
		// Начальные концы выставляются безусловно
		far := vec.Vec2Float{X: math.Inf(1), Y: math.Inf(1)}
		a := s.locate(head.Position, far, far)
		chain.Source, chain.Target = a.source, a.target
	}
	s.chains = append(s.chains, chain)
	return id
}

// placeWater расставляет водоёмы в максимумах шума Перлина,
// не ближе двух радиусов друг от друга
func (s *Simulation) placeWater(count int) {
	if count <= 0 {
		return
	}
	capacity := s.cfg.Water.Capacity
	r := int(math.Ceil(s.FootprintRadius(capacity)))
	margin := r + 1
	spacing := 2*r + 3

	rows, cols := s.grid.Rows(), s.grid.Cols()
	if rows <= 2*margin || cols <= 2*margin {
		margin = 0
	}

	type candidate struct {
		coord vec.Vec2
		value float64
	}
	noise := util.NewNoise(s.cfg.Seed, waterNoiseScale)
	candidates := make([]candidate, 0, rows*cols)
	for y := margin; y < rows-margin; y++ {
		for x := margin; x < cols-margin; x++ {
			candidates = append(candidates, candidate{
				coord: vec.Vec2{X: x, Y: y},
				value: noise.At(float64(x)+0.5, float64(y)+0.5),
			})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].value > candidates[j].value
	})

	var chosen []vec.Vec2
	for _, c := range candidates {
		if len(chosen) == count {
			break
		}
		free := true
		for _, o := range chosen {
			if c.coord.Chebyshev(o) < spacing {
				free = false
				break
			}
		}
		if free {
			chosen = append(chosen, c.coord)
		}
	}

	for _, c := range chosen {
		s.AddWaterSource(c, capacity, s.cfg.Water.InitialGradient)
	}
}

// randomCoord - случайная клетка с отступом margin от краёв (если сетка позволяет)
func (s *Simulation) randomCoord(margin int) vec.Vec2 {
	rows, cols := s.grid.Rows(), s.grid.Cols()
	if rows <= 2*margin || cols <= 2*margin {
		margin = 0
	}
	return vec.Vec2{
		X: margin + s.rng.Intn(cols-2*margin),
		Y: margin + s.rng.Intn(rows-2*margin),
	}
}

// randomPosition - случайная точка сетки в координатах мира
func (s *Simulation) randomPosition() vec.Vec2Float {
	size := s.grid.CellSize()
	return vec.Vec2Float{
		X: s.rng.Float64() * float64(s.grid.Cols()) * size,
		Y: s.rng.Float64() * float64(s.grid.Rows()) * size,
	}
}
