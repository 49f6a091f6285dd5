package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unmatchedRoute - метка для запросов мимо маршрутов
const unmatchedRoute = "unmatched"

// PrometheusMiddleware снимает HTTP-метрики API:
//   - <ns>_http_request_duration_seconds{method,route,code} - histogram
//   - <ns>_http_response_size_bytes{route} - histogram
//   - <ns>_http_requests_inflight - gauge
//
// code - класс ответа (2xx, 4xx, 5xx), а не точный статус.
type PrometheusMiddleware struct {
	duration *prometheus.HistogramVec
	size     *prometheus.HistogramVec
	inflight prometheus.Gauge
	skip     map[string]struct{}
}

// NewPrometheusMiddleware регистрирует метрики в reg. Маршруты из skip не учитываются.
func NewPrometheusMiddleware(namespace string, reg prometheus.Registerer, skip ...string) (*PrometheusMiddleware, error) {
	pm := &PrometheusMiddleware{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Длительность HTTP-запросов.",
			// POST ждёт ближайшего тика, поэтому верхние корзины длиннее обычного
			Buckets: []float64{0.001, 0.005, 0.02, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "code"}),
		size: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "Размер тела ответа.",
			Buckets:   prometheus.ExponentialBuckets(128, 4, 8),
		}, []string{"route"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_inflight",
			Help:      "Запросы в обработке.",
		}),
		skip: make(map[string]struct{}, len(skip)),
	}
	for _, route := range skip {
		pm.skip[route] = struct{}{}
	}

	for _, c := range []prometheus.Collector{pm.duration, pm.size, pm.inflight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return pm, nil
}

// Handler возвращает gin.HandlerFunc для router.Use()
func (pm *PrometheusMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if _, ok := pm.skip[route]; ok {
			c.Next()
			return
		}
		if route == "" {
			route = unmatchedRoute
		}

		pm.inflight.Inc()
		defer pm.inflight.Dec()

		start := time.Now()
		c.Next()

		code := statusClass(c.Writer.Status())
		pm.duration.WithLabelValues(c.Request.Method, route, code).Observe(time.Since(start).Seconds())
		if n := c.Writer.Size(); n > 0 {
			pm.size.WithLabelValues(route).Observe(float64(n))
		}
	}
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}

// RegisterMetricsEndpoint добавляет GET /metrics, отдающий метрики из g
func RegisterMetricsEndpoint(r gin.IRoutes, g prometheus.Gatherer) {
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})))
}
