package brigade

import (
	"math"
	"math/rand"

	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/vec"
	"github.com/annel0/bucket-brigade/internal/world/grid"
)

// Минимальная высота снижения: над огнём вертолёт зависает выше
const (
	dropAltitudeFire  = 3.0
	dropAltitudeWater = 0.2
)

// chopperEnv - окружение, доступное состояниям вертолёта на этапе
type chopperEnv struct {
	sim *Simulation
	buf *commandBuffer
	dt  float64
}

type (
	chopperState   = entity.State[Chopper, *chopperEnv]
	chopperMachine = entity.Machine[Chopper, *chopperEnv]
)

// AddChopper создаёт вертолёт на максимальной высоте. Вызывается между тиками.
func (s *Simulation) AddChopper(pos vec.Vec2Float) entity.Handle {
	cfg := s.cfg.Chopper
	seed := s.cfg.Seed*31 + int64(s.choppers.Len()) + 1
	return s.choppers.Create(Chopper{
		Position:      pos,
		Speed:         cfg.HorizontalSpeed,
		Altitude:      cfg.MaxAltitude,
		MaxAltitude:   cfg.MaxAltitude,
		VerticalSpeed: cfg.VerticalSpeed,
		DropFire:      cfg.DropFire,
		Source:        pos,
		Target:        pos,
		FSM:           entity.NewMachine[Chopper, *chopperEnv](movingUp{}),
		rng:           rand.New(rand.NewSource(seed)),
	})
}

// stepChoppers обновляет автоматы вертолётов
func (s *Simulation) stepChoppers(dt float64) {
	handles := s.choppers.Handles()
	if len(handles) == 0 {
		return
	}
	s.pool.Run(len(handles), func(worker, lo, hi int) {
		env := &chopperEnv{sim: s, buf: s.log.Buffer(worker), dt: dt}
		for i := lo; i < hi; i++ {
			if c, ok := s.choppers.Get(handles[i]); ok {
				c.FSM.Update(c, env)
			}
		}
	})
	s.flush()
}

// leg - текущая точка маршрута: к огню с водой или к воде за ней
func (c *Chopper) leg() vec.Vec2Float {
	if c.DropWaterNext {
		return c.Target
	}
	return c.Source
}

// movingUp - набор высоты, затем выбор следующей точки
type movingUp struct{}

func (movingUp) Name() string { return "moving_up" }
func (movingUp) Enter(*Chopper) {}
func (movingUp) Exit(*Chopper) {}

func (movingUp) Update(c *Chopper, env *chopperEnv) chopperState {
	c.Altitude = math.Min(c.MaxAltitude, c.Altitude+c.VerticalSpeed*env.dt)
	if c.Altitude < c.MaxAltitude {
		return nil
	}
	if c.DropFire {
		g := env.sim.grid
		c.Destination = vec.Vec2Float{
			X: c.rng.Float64() * float64(g.Cols()) * g.CellSize(),
			Y: c.rng.Float64() * float64(g.Rows()) * g.CellSize(),
		}
	} else {
		c.Destination = c.leg()
	}
	c.HasDestination = true
	return flying{}
}

// flying - полёт к точке; цель следует за концами маршрута
type flying struct{}

func (flying) Name() string { return "flying" }
func (flying) Enter(*Chopper) {}
func (flying) Exit(*Chopper) {}

func (flying) Update(c *Chopper, _ *chopperEnv) chopperState {
	if c.HasDestination {
		if !c.DropFire {
			c.Destination = c.leg()
		}
		return nil
	}
	return dropping{}
}

// dropping - снижение
type dropping struct{}

func (dropping) Name() string { return "dropping" }
func (dropping) Enter(*Chopper) {}
func (dropping) Exit(*Chopper) {}

func (dropping) Update(c *Chopper, env *chopperEnv) chopperState {
	floor := dropAltitudeWater
	if c.DropWaterNext {
		floor = dropAltitudeFire
	}
	c.Altitude = math.Max(floor, c.Altitude-c.VerticalSpeed*env.dt)
	if c.Altitude > floor {
		return nil
	}
	return performing{}
}

// performing - сброс воды на огонь, забор воды или поджог
type performing struct{}

func (performing) Name() string { return "performing" }
func (performing) Enter(*Chopper) {}
func (performing) Exit(*Chopper) {}

func (performing) Update(c *Chopper, env *chopperEnv) chopperState {
	g := env.sim.grid
	coord := g.ToCoord(c.Position)
	cell, occupied := g.Lookup(coord)

	if c.DropFire && !occupied {
		env.buf.Append(Command{Op: OpSpawnFire, Coord: coord, Value: 1.0})
		return movingUp{}
	}

	if c.DropWaterNext && occupied && cell.Kind == grid.Fire {
		env.buf.Append(Command{Op: OpSpawnBucket, Position: c.Position, Value: 1.0, Bool: true})
	}
	c.DropWaterNext = !c.DropWaterNext
	return movingUp{}
}

// ChopperState возвращает имя текущего состояния вертолёта
func (s *Simulation) ChopperState(h entity.Handle) (string, bool) {
	c, ok := s.choppers.Get(h)
	if !ok || c.FSM.Current() == nil {
		return "", false
	}
	return c.FSM.Current().Name(), true
}
