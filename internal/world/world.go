// Package world владеет симуляцией на сервере: крутит цикл тиков с
// фиксированной частотой, принимает внешние запросы и разносит события,
// кадры и срезы истории.
package world

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/bucket-brigade/internal/brigade"
	"github.com/annel0/bucket-brigade/internal/config"
	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/eventbus"
	"github.com/annel0/bucket-brigade/internal/logging"
	"github.com/annel0/bucket-brigade/internal/observability"
	"github.com/annel0/bucket-brigade/internal/storage"
	framesync "github.com/annel0/bucket-brigade/internal/sync"
	"github.com/annel0/bucket-brigade/internal/vec"
)

// Source - имя источника в конвертах событий
const Source = "bucket-brigade"

// EventFrame - тип конверта со сжатым кадром
const EventFrame = "frame"

var (
	// ErrQueueFull - очередь запросов переполнена
	ErrQueueFull = errors.New("очередь запросов переполнена")
	// ErrRejected - симуляция отклонила запрос (клетка занята или вне сетки)
	ErrRejected = errors.New("запрос отклонён")
)

type requestKind uint8

const (
	requestIgnite requestKind = iota
	requestSpawnBucket
)

// request - внешний запрос, применяемый в начале ближайшего тика
type request struct {
	kind             requestKind
	coord            vec.Vec2
	position         vec.Vec2Float
	gradient         float64
	destroyWhenEmpty bool
	reply            chan reply
}

type reply struct {
	handle entity.Handle
	err    error
}

// Option настраивает WorldManager
type Option func(*WorldManager)

// WithEventBus задаёт шину для событий и кадров
func WithEventBus(bus eventbus.EventBus) Option {
	return func(wm *WorldManager) { wm.bus = bus }
}

// WithHistory задаёт хранилище истории прогона
func WithHistory(h storage.HistoryRecorder) Option {
	return func(wm *WorldManager) { wm.history = h }
}

// WithMetrics подключает метрики Prometheus
func WithMetrics(m *observability.SimulationMetrics) Option {
	return func(wm *WorldManager) { wm.metrics = m }
}

// WithFrameCodec задаёт кодек кадров
func WithFrameCodec(c framesync.FrameCodec) Option {
	return func(wm *WorldManager) { wm.codec = c }
}

// WithSimulationOptions передаёт опции в brigade.New
func WithSimulationOptions(opts ...brigade.Option) Option {
	return func(wm *WorldManager) { wm.simOpts = append(wm.simOpts, opts...) }
}

// WorldManager управляет симуляцией и координирует всё вокруг неё
type WorldManager struct {
	cfg         config.WorldConfig
	sampleEvery float64
	runID       string

	mu  sync.RWMutex // Тик держит запись, читатели снимков - чтение
	sim *brigade.Simulation

	requests chan request

	bus     eventbus.EventBus
	history storage.HistoryRecorder
	metrics *observability.SimulationMetrics
	codec   framesync.FrameCodec
	simOpts []brigade.Option
	logger  *logging.Logger

	lastSample float64
	sampled    bool
	published  atomic.Uint64
	violations atomic.Uint64
}

// NewWorldManager создаёт и заселяет мир по конфигурации
func NewWorldManager(cfg *config.Config, opts ...Option) *WorldManager {
	wm := &WorldManager{
		cfg:         cfg.World,
		sampleEvery: float64(cfg.History.SampleEvery),
		runID:       uuid.NewString(),
		logger:      logging.GetWorldLogger(),
	}
	for _, opt := range opts {
		opt(wm)
	}

	buffer := wm.cfg.RequestBuffer
	if buffer <= 0 {
		buffer = 64
	}
	wm.requests = make(chan request, buffer)

	if wm.history == nil {
		wm.history = storage.NewNopHistory()
	}

	simOpts := wm.simOpts
	if wm.metrics != nil {
		simOpts = append([]brigade.Option{brigade.WithStageObserver(wm.metrics.ObserveStage)}, simOpts...)
	}
	wm.sim = brigade.New(cfg.Simulation, simOpts...)
	wm.sim.Populate()

	wm.logger.Info("🌍 Мир создан: run=%s сетка %dx%d, тик %v",
		wm.runID, cfg.Simulation.Cols, cfg.Simulation.Rows, wm.cfg.TickInterval())
	return wm
}

// RunID возвращает идентификатор прогона
func (wm *WorldManager) RunID() string { return wm.runID }

// Run крутит цикл тиков до отмены ctx
func (wm *WorldManager) Run(ctx context.Context) error {
	interval := wm.cfg.TickInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	wm.logger.Info("▶️ Цикл симуляции запущен (%v на тик)", interval)
	for {
		select {
		case <-ctx.Done():
			wm.logger.Info("⏹️ Цикл симуляции остановлен на тике %d", wm.TickCount())
			return ctx.Err()
		case <-ticker.C:
			wm.Step(ctx, interval.Seconds())
		}
	}
}

// Step выполняет один тик: применяет запросы, продвигает мир,
// публикует события и при необходимости кадр и срез истории
func (wm *WorldManager) Step(ctx context.Context, dt float64) {
	start := time.Now()

	wm.mu.Lock()
	wm.drainRequests()
	wm.sim.Tick(ctx, dt)
	events := wm.sim.DrainEvents()
	tick := wm.sim.TickCount()
	stats := wm.sim.Stats()

	if wm.cfg.CheckEvery > 0 && tick%uint64(wm.cfg.CheckEvery) == 0 {
		if err := wm.sim.CheckInvariants(); err != nil {
			wm.violations.Add(1)
			wm.logger.Error("❌ Тик %d: %v", tick, err)
		}
	}

	var frame *framesync.Frame
	if wm.bus != nil && wm.codec != nil && wm.cfg.FrameEvery > 0 && tick%uint64(wm.cfg.FrameEvery) == 0 {
		f := framesync.FrameFromSnapshot(wm.sim.Snapshot())
		frame = &f
	}
	wm.mu.Unlock()

	if wm.metrics != nil {
		wm.metrics.ObserveTick(time.Since(start))
		wm.metrics.CountEvents(events)
		wm.metrics.Update(stats)
	}

	wm.publishEvents(ctx, events)
	if frame != nil {
		wm.publishFrame(ctx, *frame)
	}
	wm.sample(ctx, stats)
}

// drainRequests применяет накопленные запросы. Вызывается под mu.
func (wm *WorldManager) drainRequests() {
	for {
		select {
		case req := <-wm.requests:
			req.reply <- wm.apply(req)
		default:
			return
		}
	}
}

func (wm *WorldManager) apply(req request) reply {
	switch req.kind {
	case requestIgnite:
		h, ok := wm.sim.Ignite(req.coord, req.gradient)
		if !ok {
			return reply{err: fmt.Errorf("%w: клетка %v", ErrRejected, req.coord)}
		}
		wm.logger.Info("🔥 Поджог по запросу: %v (жар %.2f)", req.coord, req.gradient)
		return reply{handle: h}
	case requestSpawnBucket:
		if !wm.inBounds(req.position) {
			return reply{err: fmt.Errorf("%w: точка %v вне сетки", ErrRejected, req.position)}
		}
		h := wm.sim.SpawnBucket(req.position, req.gradient, req.destroyWhenEmpty)
		return reply{handle: h}
	default:
		return reply{err: fmt.Errorf("%w: неизвестный запрос %d", ErrRejected, req.kind)}
	}
}

// submit ставит запрос в очередь и ждёт ответа ближайшего тика
func (wm *WorldManager) submit(ctx context.Context, req request) (entity.Handle, error) {
	req.reply = make(chan reply, 1)
	select {
	case wm.requests <- req:
	default:
		return entity.Null, ErrQueueFull
	}

	select {
	case r := <-req.reply:
		return r.handle, r.err
	case <-ctx.Done():
		return entity.Null, ctx.Err()
	}
}

// Ignite поджигает клетку в начале следующего тика
func (wm *WorldManager) Ignite(ctx context.Context, coord vec.Vec2, gradient float64) (entity.Handle, error) {
	return wm.submit(ctx, request{kind: requestIgnite, coord: coord, gradient: gradient})
}

// SpawnBucket ставит ведро в начале следующего тика
func (wm *WorldManager) SpawnBucket(ctx context.Context, pos vec.Vec2Float, gradient float64, destroyWhenEmpty bool) (entity.Handle, error) {
	return wm.submit(ctx, request{
		kind:             requestSpawnBucket,
		position:         pos,
		gradient:         gradient,
		destroyWhenEmpty: destroyWhenEmpty,
	})
}

func (wm *WorldManager) publishEvents(ctx context.Context, events []brigade.Event) {
	if wm.bus == nil {
		return
	}
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			wm.logger.Warn("⚠️ Событие %s не сериализовано: %v", ev.Type, err)
			continue
		}
		env := eventbus.NewEnvelope(Source, string(ev.Type), payload)
		env.CorrelationID = wm.runID
		env.Priority = eventPriority(ev.Type)
		if err := wm.bus.Publish(ctx, env); err != nil {
			wm.logger.Warn("⚠️ Публикация %s: %v", ev.Type, err)
			continue
		}
		wm.published.Add(1)
	}
}

// eventPriority: события огня важнее передач вёдер, их нельзя терять при перегрузке шины
func eventPriority(t brigade.EventType) int {
	switch t {
	case brigade.EventFireIgnited, brigade.EventFireExtinguished, brigade.EventChainRetargeted:
		return eventbus.PriorityHigh
	case brigade.EventFireDiscarded, brigade.EventBucketDoused:
		return eventbus.PriorityNormal
	default:
		return eventbus.PriorityLow
	}
}

func (wm *WorldManager) publishFrame(ctx context.Context, f framesync.Frame) {
	payload, err := wm.codec.Encode(f)
	if err != nil {
		wm.logger.Warn("⚠️ Кадр %d не закодирован: %v", f.Tick, err)
		return
	}
	env := eventbus.NewEnvelope(Source, EventFrame, payload)
	env.CorrelationID = wm.runID
	env.Priority = eventbus.PriorityLow
	env.Metadata = map[string]string{"encoding": "zstd+json"}
	if err := wm.bus.Publish(ctx, env); err != nil {
		wm.logger.Warn("⚠️ Публикация кадра %d: %v", f.Tick, err)
	}
}

// sample пишет срез истории раз в sampleEvery секунд симулированного времени
func (wm *WorldManager) sample(ctx context.Context, st brigade.Stats) {
	if wm.sampleEvery <= 0 {
		return
	}
	if wm.sampled && st.Elapsed-wm.lastSample < wm.sampleEvery {
		return
	}
	wm.sampled = true
	wm.lastSample = st.Elapsed

	err := wm.history.Record(ctx, storage.Sample{
		RunID:    wm.runID,
		Tick:     st.Tick,
		Recorded: time.Now().UTC(),
		Stats:    st,
	})
	if err != nil {
		wm.logger.Warn("⚠️ Срез истории на тике %d: %v", st.Tick, err)
	}
}

// === Чтение состояния между тиками ===

// Snapshot возвращает копию видимого состояния мира
func (wm *WorldManager) Snapshot() brigade.Snapshot {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.sim.Snapshot()
}

// Stats возвращает агрегированную статистику
func (wm *WorldManager) Stats() brigade.Stats {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.sim.Stats()
}

// Chains возвращает копии цепочек
func (wm *WorldManager) Chains() []brigade.Chain {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.sim.Chains()
}

// TickCount возвращает номер последнего тика
func (wm *WorldManager) TickCount() uint64 {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.sim.TickCount()
}

// InBounds сообщает, лежит ли точка мира внутри сетки
func (wm *WorldManager) InBounds(pos vec.Vec2Float) bool {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.inBounds(pos)
}

func (wm *WorldManager) inBounds(pos vec.Vec2Float) bool {
	g := wm.sim.Grid()
	return g.InBounds(g.ToCoord(pos))
}

// Config возвращает параметры симуляции
func (wm *WorldManager) Config() brigade.Config {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.sim.Config()
}

// History возвращает последние срезы текущего прогона
func (wm *WorldManager) History(ctx context.Context, n int) ([]storage.Sample, error) {
	return wm.history.Recent(ctx, wm.runID, n)
}

// Published возвращает число опубликованных событий
func (wm *WorldManager) Published() uint64 { return wm.published.Load() }

// Violations возвращает число тиков с нарушенной целостностью
func (wm *WorldManager) Violations() uint64 { return wm.violations.Load() }
