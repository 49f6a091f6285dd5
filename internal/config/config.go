// Package config загружает конфигурацию сервера симуляции из YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/annel0/bucket-brigade/internal/brigade"
)

// ErrInvalidConfig - конфигурация не прошла проверку
var ErrInvalidConfig = errors.New("некорректная конфигурация")

// Config корневая структура конфигурации сервера
type Config struct {
	Simulation brigade.Config  `yaml:"simulation"`
	World      WorldConfig     `yaml:"world"`
	Server     ServerConfig    `yaml:"server"`
	EventBus   EventBusConfig  `yaml:"eventbus"`
	Telemetry  TelemetryConfig `yaml:"telemetry"`
	History    HistoryConfig   `yaml:"history"`
	Auth       AuthConfig      `yaml:"auth"`
}

// WorldConfig - параметры цикла тиков
type WorldConfig struct {
	TickRate      int `yaml:"tick_rate"`      // Тиков в секунду
	FrameEvery    int `yaml:"frame_every"`    // Публиковать кадр каждые N тиков (0 - не публиковать)
	CheckEvery    int `yaml:"check_every"`    // Проверять целостность каждые N тиков (0 - никогда)
	RequestBuffer int `yaml:"request_buffer"` // Ёмкость очереди внешних запросов
}

// EventBusConfig - шина событий. Пустой URL означает шину в памяти.
type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

// ServerConfig - сетевые порты
type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

// TelemetryConfig - экспорт трасс по OTLP/HTTP. Пустой endpoint отключает экспорт.
type TelemetryConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// HistoryConfig - запись истории прогона
type HistoryConfig struct {
	Backend      string `yaml:"backend"` // none | badger | redis
	Path         string `yaml:"path"`
	RedisAddr    string `yaml:"redis_addr"`
	SampleEvery  int    `yaml:"sample_every_seconds"`
	RetainSample int    `yaml:"retain_samples"`
}

// AuthConfig - ключ подписи токенов управляющего API
type AuthConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"token_ttl"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Simulation: brigade.DefaultConfig(),
		World: WorldConfig{
			TickRate:      60,
			FrameEvery:    6,
			CheckEvery:    0,
			RequestBuffer: 64,
		},
		EventBus: EventBusConfig{
			Stream:    "BRIGADE",
			Retention: 24,
			Buffer:    1024,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "bucket-brigade",
			SampleRatio: 1.0,
		},
		History: HistoryConfig{
			Backend:      "none",
			Path:         "data/history",
			RedisAddr:    "localhost:6379",
			SampleEvery:  1,
			RetainSample: 3600,
		},
		Auth: AuthConfig{
			TTL: time.Hour,
		},
	}
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "BRIGADE_REST_PORT", 8088)
}

// GetMetricsPort возвращает порт Prometheus метрик с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "BRIGADE_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// TickInterval - длительность одного тика
func (w WorldConfig) TickInterval() time.Duration {
	if w.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(w.TickRate)
}

// Validate проверяет конфигурацию целиком
func (c *Config) Validate() error {
	var errs []error
	if err := c.Simulation.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.World.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("world.tick_rate должен быть > 0: %d", c.World.TickRate))
	}
	if c.World.FrameEvery < 0 || c.World.CheckEvery < 0 {
		errs = append(errs, errors.New("world.frame_every и world.check_every не могут быть отрицательными"))
	}
	switch c.History.Backend {
	case "", "none", "badger", "redis":
	default:
		errs = append(errs, fmt.Errorf("неизвестный history.backend: %q", c.History.Backend))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_ratio вне [0,1]: %v", c.Telemetry.SampleRatio))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// Load читает YAML файл поверх значений по умолчанию.
// Если path == "", берёт путь из ENV BRIGADE_CONFIG; без него возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("BRIGADE_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
