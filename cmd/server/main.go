package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/annel0/bucket-brigade/internal/api"
	"github.com/annel0/bucket-brigade/internal/auth"
	"github.com/annel0/bucket-brigade/internal/config"
	"github.com/annel0/bucket-brigade/internal/eventbus"
	"github.com/annel0/bucket-brigade/internal/logging"
	"github.com/annel0/bucket-brigade/internal/middleware"
	"github.com/annel0/bucket-brigade/internal/observability"
	"github.com/annel0/bucket-brigade/internal/storage"
	framesync "github.com/annel0/bucket-brigade/internal/sync"
	"github.com/annel0/bucket-brigade/internal/world"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (или BRIGADE_CONFIG)")
	issueToken := flag.String("issue-token", "", "выдать токен управления оператору и выйти")
	logLevel := flag.String("log-level", "INFO", "уровень логов консоли")
	flag.Parse()

	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	if level, err := logging.ParseLevel(*logLevel); err == nil {
		logging.SetDefaultLevels(level, logging.DEBUG)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("❌ Конфигурация: %v", err)
		os.Exit(1)
	}

	issuer, err := auth.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.TTL)
	if err != nil {
		logging.Error("❌ Ключ подписи токенов: %v", err)
		os.Exit(1)
	}

	if *issueToken != "" {
		token, err := issuer.Issue(*issueToken, auth.ScopeControl)
		if err != nil {
			logging.Error("❌ Выдача токена: %v", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, issuer); err != nil {
		logging.Error("❌ Сервер завершился с ошибкой: %v", err)
		os.Exit(1)
	}
	logging.Info("👋 Сервер остановлен")
}

func run(ctx context.Context, cfg *config.Config, issuer *auth.TokenIssuer) error {
	logging.Info("🚒 Запуск симуляции пожарной цепочки...")

	// === Телеметрия ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("телеметрия: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logging.Warn("⚠️ Остановка телеметрии: %v", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	simMetrics, err := observability.NewSimulationMetrics(registry)
	if err != nil {
		return fmt.Errorf("метрики симуляции: %w", err)
	}

	// === Шина событий ===
	bus, err := newBus(cfg.EventBus)
	if err != nil {
		return err
	}
	defer bus.Close()

	busMetrics, err := eventbus.NewMetricsExporter(bus, registry)
	if err != nil {
		return fmt.Errorf("метрики шины: %w", err)
	}
	if _, err := eventbus.StartLoggingListener(ctx, bus); err != nil {
		logging.Warn("⚠️ Логгер шины не подписан: %v", err)
	}

	// === История прогона ===
	history, err := newHistory(ctx, cfg.History)
	if err != nil {
		return err
	}
	defer history.Close()

	codec, err := framesync.NewZstdCodec()
	if err != nil {
		return err
	}

	wm := world.NewWorldManager(cfg,
		world.WithEventBus(bus),
		world.WithHistory(history),
		world.WithMetrics(simMetrics),
		world.WithFrameCodec(codec),
	)

	rest, err := api.NewRestServer(api.Config{
		Addr:     fmt.Sprintf(":%d", cfg.Server.GetRESTPort()),
		World:    wm,
		Issuer:   issuer,
		Registry: registry,
	})
	if err != nil {
		return err
	}

	metricsSrv := newMetricsServer(cfg.Server.GetMetricsPort(), registry)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := wm.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		busMetrics.Run(gctx)
		return nil
	})
	g.Go(rest.Start)
	g.Go(func() error {
		logging.Info("📈 Prometheus /metrics доступен по адресу %s", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	logging.Info("✅ Все сервисы запущены: REST :%d, метрики :%d, run=%s",
		cfg.Server.GetRESTPort(), cfg.Server.GetMetricsPort(), wm.RunID())

	// === GRACEFUL SHUTDOWN ===
	g.Go(func() error {
		<-gctx.Done()
		logging.Info("📡 Завершение работы...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errors.Join(rest.Shutdown(shutdownCtx), metricsSrv.Shutdown(shutdownCtx))
	})

	return g.Wait()
}

func newBus(cfg config.EventBusConfig) (eventbus.EventBus, error) {
	if cfg.URL == "" {
		logging.Info("🚌 Шина событий в памяти (буфер %d)", cfg.Buffer)
		return eventbus.NewMemoryBus(cfg.Buffer), nil
	}
	bus, err := eventbus.NewJetStreamBus(cfg.URL, cfg.Stream, time.Duration(cfg.Retention)*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	logging.Info("🚌 JetStream %s, стрим %s", cfg.URL, cfg.Stream)
	return bus, nil
}

func newHistory(ctx context.Context, cfg config.HistoryConfig) (storage.HistoryRecorder, error) {
	switch cfg.Backend {
	case "badger":
		h, err := storage.NewBadgerHistory(cfg.Path, cfg.RetainSample)
		if err != nil {
			return nil, err
		}
		logging.Info("💾 История прогона в BadgerDB %s", cfg.Path)
		return h, nil
	case "redis":
		rc := storage.DefaultRedisConfig()
		rc.Addr = cfg.RedisAddr
		rc.Retain = cfg.RetainSample
		return storage.NewRedisHistory(ctx, rc)
	default:
		return storage.NewNopHistory(), nil
	}
}

// newMetricsServer - отдельный порт для Prometheus, как и у REST API
func newMetricsServer(port int, registry *prometheus.Registry) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	middleware.RegisterMetricsEndpoint(router, registry)
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
