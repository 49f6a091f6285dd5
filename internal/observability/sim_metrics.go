package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/bucket-brigade/internal/brigade"
)

// SimulationMetrics - метрики Prometheus для тиков симуляции
type SimulationMetrics struct {
	stageDuration *prometheus.HistogramVec
	tickDuration  prometheus.Histogram
	ticks         prometheus.Counter
	events        *prometheus.CounterVec
	fires         *prometheus.GaugeVec
	buckets       *prometheus.GaugeVec
	botsCarrying  prometheus.Gauge
	gridCells     prometheus.Gauge
}

// NewSimulationMetrics создаёт метрики и регистрирует их в reg
func NewSimulationMetrics(reg prometheus.Registerer) (*SimulationMetrics, error) {
	m := &SimulationMetrics{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "brigade",
			Name:      "stage_duration_seconds",
			Help:      "Длительность этапов тика.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"stage"}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "brigade",
			Name:      "tick_duration_seconds",
			Help:      "Длительность тика целиком.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "brigade",
			Name:      "ticks_total",
			Help:      "Число выполненных тиков.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brigade",
			Name:      "events_total",
			Help:      "События симуляции по типам.",
		}, []string{"type"}),
		fires: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "brigade",
			Name:      "fires",
			Help:      "Огонь по статусам.",
		}, []string{"status"}),
		buckets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "brigade",
			Name:      "buckets",
			Help:      "Вёдра по состоянию.",
		}, []string{"state"}),
		botsCarrying: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "brigade",
			Name:      "bots_carrying",
			Help:      "Агенты, несущие ведро.",
		}),
		gridCells: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "brigade",
			Name:      "grid_cells",
			Help:      "Занятые клетки сетки.",
		}),
	}

	collectors := []prometheus.Collector{
		m.stageDuration, m.tickDuration, m.ticks, m.events,
		m.fires, m.buckets, m.botsCarrying, m.gridCells,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveStage совместим с brigade.StageObserver
func (m *SimulationMetrics) ObserveStage(stage string, elapsed time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// ObserveTick учитывает тик и его длительность
func (m *SimulationMetrics) ObserveTick(elapsed time.Duration) {
	m.ticks.Inc()
	m.tickDuration.Observe(elapsed.Seconds())
}

// CountEvents прибавляет события к счётчикам по типам
func (m *SimulationMetrics) CountEvents(events []brigade.Event) {
	for _, ev := range events {
		m.events.WithLabelValues(string(ev.Type)).Inc()
	}
}

// Update переносит агрегаты мира в датчики
func (m *SimulationMetrics) Update(st brigade.Stats) {
	m.fires.WithLabelValues(brigade.PendingIgnition.String()).Set(float64(st.FiresPending))
	m.fires.WithLabelValues(brigade.Active.String()).Set(float64(st.FiresActive))
	m.fires.WithLabelValues(brigade.PendingRemoval.String()).Set(float64(st.FiresRemoving))

	m.buckets.WithLabelValues("carried").Set(float64(st.BucketsCarried))
	m.buckets.WithLabelValues("full").Set(float64(st.BucketsFull))
	m.buckets.WithLabelValues("empty").Set(float64(st.BucketsEmpty))

	m.botsCarrying.Set(float64(st.BotsCarrying))
	m.gridCells.Set(float64(st.GridCells))
}
