// Package brigade - симуляция пожарной "цепочки с вёдрами": клеточный автомат
// огня на сетке, агенты, передающие вёдра по цепочке, водоёмы и вертолёты.
//
// Каждый тик проходит фиксированную последовательность этапов. Внутри этапа
// сущности обрабатываются параллельно по разделам, а все структурные
// изменения (создание/удаление сущностей, перенос вёдер, флаги огня) идут
// через журнал команд и применяются однопоточно на барьере.
package brigade

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/logging"
	"github.com/annel0/bucket-brigade/internal/vec"
	"github.com/annel0/bucket-brigade/internal/world/command"
	"github.com/annel0/bucket-brigade/internal/world/grid"
	"github.com/annel0/bucket-brigade/internal/world/parallel"
)

// Названия этапов тика
const (
	StageMaintenance = "maintenance"
	StageFire        = "fire"
	StageTargeting   = "targeting"
	StageChoppers    = "choppers"
	StageCoordinator = "coordinator"
	StageFill        = "fill"
	StageMovement    = "movement"
)

// StageObserver получает длительность каждого этапа
type StageObserver func(stage string, elapsed time.Duration)

// Option настраивает симуляцию
type Option func(*Simulation)

// WithPool задаёт пул воркеров
func WithPool(pool *parallel.Pool) Option {
	return func(s *Simulation) { s.pool = pool }
}

// WithTracer задаёт трассировщик для спанов этапов
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Simulation) { s.tracer = tracer }
}

// WithLogger задаёт логгер
func WithLogger(logger *logging.Logger) Option {
	return func(s *Simulation) { s.logger = logger }
}

// WithStageObserver подписывает наблюдателя на длительности этапов
func WithStageObserver(obs StageObserver) Option {
	return func(s *Simulation) { s.observer = obs }
}

// Simulation - состояние мира и планировщик тика.
// Не потокобезопасна: тик и все публичные методы вызываются из одной горутины.
type Simulation struct {
	cfg  Config
	grid *grid.Grid

	fires    *entity.Store[Fire]
	buckets  *entity.Store[Bucket]
	bots     *entity.Store[Bot]
	waters   *entity.Store[WaterSource]
	choppers *entity.Store[Chopper]
	chains   []Chain

	log  *command.Log[Command]
	pool *parallel.Pool
	rng  *rand.Rand

	heatOffsets   []vec.Vec2
	splashOffsets []splashOffset

	tick           uint64
	elapsed        float64
	sinceTargeting float64
	events         []Event

	tracer   trace.Tracer
	logger   *logging.Logger
	observer StageObserver
}

// New создаёт пустой мир. Заселение - Populate.
func New(cfg Config, opts ...Option) *Simulation {
	s := &Simulation{
		cfg:      cfg,
		grid:     grid.New(cfg.Rows, cfg.Cols, cfg.CellSize),
		fires:    entity.NewStore[Fire](cfg.Rows * cfg.Cols),
		buckets:  entity.NewStore[Bucket](cfg.Buckets),
		bots:     entity.NewStore[Bot](cfg.Chains*cfg.BotsPerChain + cfg.Omnibots),
		waters:   entity.NewStore[WaterSource](cfg.WaterSources),
		choppers: entity.NewStore[Chopper](cfg.Choppers),
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		// Первый тик сразу выполняет наведение
		sinceTargeting: cfg.TargetingInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pool == nil {
		s.pool = parallel.NewPool(cfg.Workers)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("github.com/annel0/bucket-brigade/internal/brigade")
	}
	if s.logger == nil {
		s.logger = logging.GetSimulationLogger()
	}
	s.log = command.NewLog[Command](s.pool.Workers())
	s.heatOffsets = neighbourhood(cfg.Fire.HeatRadius)
	s.splashOffsets = splashDisc(cfg.Water.SplashRadius)
	return s
}

// Config возвращает параметры симуляции
func (s *Simulation) Config() Config { return s.cfg }

// Grid возвращает сетку (только для чтения между тиками)
func (s *Simulation) Grid() *grid.Grid { return s.grid }

// TickCount возвращает число выполненных тиков
func (s *Simulation) TickCount() uint64 { return s.tick }

// Elapsed возвращает симулированное время в секундах
func (s *Simulation) Elapsed() float64 { return s.elapsed }

// Tick продвигает мир на dt секунд
func (s *Simulation) Tick(ctx context.Context, dt float64) {
	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}
	s.tick++
	s.elapsed += dt

	ctx, span := s.tracer.Start(ctx, "brigade.tick",
		trace.WithAttributes(
			attribute.Int64("brigade.tick", int64(s.tick)),
			attribute.Float64("brigade.dt", dt),
		))
	defer span.End()

	s.stage(ctx, StageMaintenance, s.maintain)
	s.stage(ctx, StageFire, func() { s.stepFire(dt) })
	s.stage(ctx, StageTargeting, func() { s.retarget(dt) })
	s.stage(ctx, StageChoppers, func() { s.stepChoppers(dt) })
	s.stage(ctx, StageCoordinator, s.coordinate)
	s.stage(ctx, StageFill, func() {
		s.refillWater(dt)
		s.fillBuckets(dt)
	})
	s.stage(ctx, StageMovement, func() { s.move(dt) })

	// Финальный барьер
	s.flush()

	span.SetAttributes(
		attribute.Int("brigade.fires", s.fires.Len()),
		attribute.Int("brigade.events", len(s.events)),
	)
}

// stage выполняет этап в собственном спане и сообщает его длительность
func (s *Simulation) stage(ctx context.Context, name string, fn func()) {
	_, span := s.tracer.Start(ctx, "brigade."+name)
	start := time.Now()
	fn()
	elapsed := time.Since(start)
	span.End()
	if s.observer != nil {
		s.observer(name, elapsed)
	}
}

// neighbourhood - смещения квадратной окрестности радиуса r без центра
func neighbourhood(r int) []vec.Vec2 {
	if r < 1 {
		r = 1
	}
	out := make([]vec.Vec2, 0, (2*r+1)*(2*r+1)-1)
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			out = append(out, vec.Vec2{X: dx, Y: dy})
		}
	}
	return out
}
