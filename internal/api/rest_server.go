// Package api - REST API наблюдения и управления симуляцией.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/bucket-brigade/internal/auth"
	"github.com/annel0/bucket-brigade/internal/brigade"
	"github.com/annel0/bucket-brigade/internal/entity"
	"github.com/annel0/bucket-brigade/internal/logging"
	"github.com/annel0/bucket-brigade/internal/middleware"
	"github.com/annel0/bucket-brigade/internal/storage"
	"github.com/annel0/bucket-brigade/internal/vec"
	"github.com/annel0/bucket-brigade/internal/world"
)

// requestTimeout - сколько POST-запрос ждёт ближайшего тика
const requestTimeout = 2 * time.Second

// maxHistory - предел ?n= для /api/history
const maxHistory = 3600

// World - то, что API читает и меняет в мире
type World interface {
	RunID() string
	TickCount() uint64
	Snapshot() brigade.Snapshot
	Stats() brigade.Stats
	Chains() []brigade.Chain
	History(ctx context.Context, n int) ([]storage.Sample, error)
	Ignite(ctx context.Context, coord vec.Vec2, gradient float64) (entity.Handle, error)
	SpawnBucket(ctx context.Context, pos vec.Vec2Float, gradient float64, destroyWhenEmpty bool) (entity.Handle, error)
	InBounds(pos vec.Vec2Float) bool
}

// Config содержит зависимости REST сервера
type Config struct {
	Addr     string               // адрес для запуска сервера
	World    World                // мир
	Issuer   *auth.TokenIssuer    // проверка токенов
	Registry *prometheus.Registry // метрики для /metrics
}

// RestServer представляет REST API сервер
type RestServer struct {
	router  *gin.Engine
	world   World
	issuer  *auth.TokenIssuer
	addr    string
	metrics *ServerMetrics
	logger  *logging.Logger
	server  *http.Server
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// IgniteRequest - поджог клетки
type IgniteRequest struct {
	X        int      `json:"x"`
	Y        int      `json:"y"`
	Gradient *float64 `json:"gradient"`
}

// BucketRequest - новое ведро в точке мира
type BucketRequest struct {
	X                float64 `json:"x"`
	Y                float64 `json:"y"`
	Gradient         float64 `json:"gradient"`
	DestroyWhenEmpty bool    `json:"destroy_when_empty"`
}

// StatsResponse - статистика мира и процесса
type StatsResponse struct {
	RunID      string        `json:"run_id"`
	Simulation brigade.Stats `json:"simulation"`
	Process    ProcessStats  `json:"process"`
}

// NewRestServer создаёт REST API сервер
func NewRestServer(cfg Config) (*RestServer, error) {
	if cfg.Addr == "" {
		cfg.Addr = ":8088"
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	logger := logging.GetAPILogger()

	// === Observability middleware ===
	router.Use(otelgin.Middleware("brigade_api"))
	router.Use(middleware.NewRequestLogger(logger).Handler())

	promMw, err := middleware.NewPrometheusMiddleware("brigade_api", cfg.Registry, "/metrics", "/health")
	if err != nil {
		return nil, fmt.Errorf("метрики HTTP: %w", err)
	}
	router.Use(promMw.Handler())
	middleware.RegisterMetricsEndpoint(router, cfg.Registry)

	rs := &RestServer{
		router:  router,
		world:   cfg.World,
		issuer:  cfg.Issuer,
		addr:    cfg.Addr,
		metrics: NewServerMetrics(),
		logger:  logger,
	}
	rs.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	rs.setupRoutes()
	return rs, nil
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/stats", rs.handleStats)
		api.GET("/grid", rs.handleGrid)
		api.GET("/chains", rs.handleChains)
		api.GET("/history", rs.handleHistory)
	}

	// Изменения мира только с токеном
	control := api.Group("/")
	if rs.issuer != nil {
		control.Use(rs.requireScope(auth.ScopeControl))
	} else {
		control.Use(func(c *gin.Context) {
			abort(c, http.StatusServiceUnavailable, "Управление отключено: не настроен auth")
		})
	}
	{
		control.POST("/fires", rs.handleIgnite)
		control.POST("/buckets", rs.handleSpawnBucket)
	}
}

// Handler возвращает http.Handler (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler { return rs.router }

// Start запускает HTTP-сервер и блокируется до его остановки
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 REST API слушает %s", rs.addr)
	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown мягко останавливает сервер
func (rs *RestServer) Shutdown(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"run_id": rs.world.RunID(),
		"tick":   rs.world.TickCount(),
	})
}

func (rs *RestServer) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, StatsResponse{
		RunID:      rs.world.RunID(),
		Simulation: rs.world.Stats(),
		Process:    rs.metrics.Collect(),
	})
}

func (rs *RestServer) handleGrid(c *gin.Context) {
	c.JSON(http.StatusOK, rs.world.Snapshot())
}

func (rs *RestServer) handleChains(c *gin.Context) {
	chains := rs.world.Chains()
	out := make([]brigade.ChainView, 0, len(chains))
	for _, ch := range chains {
		out = append(out, brigade.ChainView{
			ID:      ch.ID,
			Source:  ch.Source,
			Target:  ch.Target,
			Members: len(ch.Members),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (rs *RestServer) handleHistory(c *gin.Context) {
	n := 60
	if raw := c.Query("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			abort(c, http.StatusBadRequest, "n должно быть положительным числом")
			return
		}
		n = v
	}
	if n > maxHistory {
		n = maxHistory
	}

	samples, err := rs.world.History(c.Request.Context(), n)
	if err != nil {
		rs.logger.Error("❌ История прогона: %v", err)
		abort(c, http.StatusInternalServerError, "Ошибка чтения истории")
		return
	}
	if samples == nil {
		samples = []storage.Sample{}
	}
	c.JSON(http.StatusOK, samples)
}

func (rs *RestServer) handleIgnite(c *gin.Context) {
	var req IgniteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	gradient := 1.0
	if req.Gradient != nil {
		gradient = *req.Gradient
	}
	if gradient <= 0 || gradient > 1 {
		abort(c, http.StatusBadRequest, "gradient должен быть в (0,1]")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	coord := vec.Vec2{X: req.X, Y: req.Y}
	h, err := rs.world.Ignite(ctx, coord, gradient)
	if err != nil {
		rs.worldError(c, err)
		return
	}

	rs.logger.Info("🔥 %s поджёг %v", operator(c), coord)
	c.JSON(http.StatusCreated, GenericResponse{Success: true, Message: "Огонь создан", Data: gin.H{"id": h}})
}

func (rs *RestServer) handleSpawnBucket(c *gin.Context) {
	var req BucketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	if req.Gradient < 0 || req.Gradient > 1 {
		abort(c, http.StatusBadRequest, "gradient должен быть в [0,1]")
		return
	}

	pos := vec.Vec2Float{X: req.X, Y: req.Y}
	if !rs.world.InBounds(pos) {
		abort(c, http.StatusBadRequest, "точка вне сетки")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	h, err := rs.world.SpawnBucket(ctx, pos, req.Gradient, req.DestroyWhenEmpty)
	if err != nil {
		rs.worldError(c, err)
		return
	}

	rs.logger.Info("🪣 %s поставил ведро в %v", operator(c), pos)
	c.JSON(http.StatusCreated, GenericResponse{Success: true, Message: "Ведро создано", Data: gin.H{"id": h}})
}

// worldError переводит ошибки мира в HTTP-статусы
func (rs *RestServer) worldError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, world.ErrRejected):
		abort(c, http.StatusConflict, err.Error())
	case errors.Is(err, world.ErrQueueFull):
		abort(c, http.StatusServiceUnavailable, "Очередь запросов переполнена")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		abort(c, http.StatusGatewayTimeout, "Мир не ответил вовремя")
	default:
		rs.logger.Error("❌ Запрос к миру: %v", err)
		abort(c, http.StatusInternalServerError, "Внутренняя ошибка сервера")
	}
}
