package brigade

import (
	"errors"
	"fmt"
)

// FireConfig - параметры огня
type FireConfig struct {
	MaxHeight        float64 `yaml:"max_height"`
	Flashpoint       float64 `yaml:"flashpoint"`
	HeatRadius       int     `yaml:"heat_radius"`
	HeatTransferRate float64 `yaml:"heat_transfer_rate"`
}

// WaterConfig - параметры воды и тушения
type WaterConfig struct {
	CoolingStrength float64 `yaml:"cooling_strength"`
	CoolingFalloff  float64 `yaml:"cooling_falloff"`
	RefillRate      float64 `yaml:"refill_rate"`
	SplashRadius    int     `yaml:"splash_radius"`
	CarryMultiplier float64 `yaml:"carry_multiplier"`
	Capacity        float64 `yaml:"capacity"`
	InitialGradient float64 `yaml:"initial_gradient"`
	FootprintScale  float64 `yaml:"footprint_scale"`
}

// BucketConfig - параметры вёдер
type BucketConfig struct {
	Capacity  float64 `yaml:"capacity"`
	FillRate  float64 `yaml:"fill_rate"`
	SizeEmpty float64 `yaml:"size_empty"`
	SizeFull  float64 `yaml:"size_full"`
}

// BotConfig - параметры агентов
type BotConfig struct {
	Speed float64 `yaml:"speed"`
}

// ChopperConfig - параметры вертолётов
type ChopperConfig struct {
	VerticalSpeed   float64 `yaml:"vertical_speed"`
	HorizontalSpeed float64 `yaml:"horizontal_speed"`
	MaxAltitude     float64 `yaml:"max_altitude"`
	DropFire        bool    `yaml:"drop_fire"`
}

// Config - параметры симуляции, задаются один раз при старте
type Config struct {
	Seed         int64 `yaml:"seed"`
	Chains       int   `yaml:"chains"`
	BotsPerChain int   `yaml:"bots_per_chain"`
	Omnibots     int   `yaml:"omnibots"`
	Buckets      int   `yaml:"buckets"`
	Fires        int   `yaml:"fires"`
	WaterSources int   `yaml:"water_sources"`
	Choppers     int   `yaml:"choppers"`

	Rows     int     `yaml:"rows"`
	Cols     int     `yaml:"cols"`
	CellSize float64 `yaml:"cell_size"`

	Fire    FireConfig    `yaml:"fire"`
	Water   WaterConfig   `yaml:"water"`
	Bucket  BucketConfig  `yaml:"bucket"`
	Bot     BotConfig     `yaml:"bot"`
	Chopper ChopperConfig `yaml:"chopper"`

	TargetingInterval float64 `yaml:"targeting_interval_seconds"`
	Workers           int     `yaml:"workers"`
}

// DefaultConfig возвращает значения по умолчанию
func DefaultConfig() Config {
	return Config{
		Seed:         1,
		Chains:       2,
		BotsPerChain: 30,
		Omnibots:     5,
		Buckets:      3,
		Fires:        1,
		WaterSources: 3,
		Choppers:     0,

		Rows:     50,
		Cols:     50,
		CellSize: 1.0,

		Fire: FireConfig{
			MaxHeight:        0.1,
			Flashpoint:       0.25,
			HeatRadius:       1,
			HeatTransferRate: 0.75,
		},
		Water: WaterConfig{
			CoolingStrength: 1.0,
			CoolingFalloff:  0.7,
			RefillRate:      0.1,
			SplashRadius:    3,
			CarryMultiplier: 0.5,
			Capacity:        30,
			InitialGradient: 0.9,
			FootprintScale:  0.1,
		},
		Bucket: BucketConfig{
			Capacity:  1.0,
			FillRate:  0.1,
			SizeEmpty: 0.2,
			SizeFull:  0.4,
		},
		Bot: BotConfig{
			Speed: 0.5,
		},
		Chopper: ChopperConfig{
			VerticalSpeed:   10,
			HorizontalSpeed: 0.5,
			MaxAltitude:     8,
		},

		TargetingInterval: 2.0,
	}
}

// ErrInvalidConfig - базовая ошибка валидации
var ErrInvalidConfig = errors.New("некорректная конфигурация симуляции")

// Validate проверяет параметры на допустимость
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Rows > 0 && c.Cols > 0, "размер сетки должен быть положительным: %dx%d", c.Rows, c.Cols)
	check(c.CellSize > 0, "cell_size должен быть > 0: %v", c.CellSize)
	check(c.Chains >= 0 && c.BotsPerChain >= 0 && c.Omnibots >= 0, "количество агентов не может быть отрицательным")
	check(c.Buckets >= 0 && c.Fires >= 0 && c.WaterSources >= 0 && c.Choppers >= 0, "количество объектов не может быть отрицательным")
	check(c.Fire.Flashpoint >= 0 && c.Fire.Flashpoint <= 1, "fire.flashpoint вне [0,1]: %v", c.Fire.Flashpoint)
	check(c.Fire.HeatRadius >= 1, "fire.heat_radius должен быть >= 1: %d", c.Fire.HeatRadius)
	check(c.Fire.HeatTransferRate >= 0, "fire.heat_transfer_rate не может быть отрицательным")
	check(c.Water.CoolingFalloff >= 0 && c.Water.CoolingFalloff <= 1, "water.cooling_falloff вне [0,1]: %v", c.Water.CoolingFalloff)
	check(c.Water.SplashRadius >= 0, "water.splash_radius не может быть отрицательным")
	check(c.Water.Capacity > 0, "water.capacity должен быть > 0")
	check(c.Water.InitialGradient >= 0 && c.Water.InitialGradient <= 1, "water.initial_gradient вне [0,1]")
	check(c.Water.CarryMultiplier > 0, "water.carry_multiplier должен быть > 0")
	check(c.Fire.MaxHeight >= 0, "fire.max_height не может быть отрицательным")
	check(c.Bucket.Capacity > 0, "bucket.capacity должен быть > 0")
	check(c.Bucket.SizeEmpty >= 0 && c.Bucket.SizeFull >= 0, "bucket.size_empty и size_full не могут быть отрицательными")
	check(c.Bot.Speed > 0, "bot.speed должен быть > 0")
	check(c.TargetingInterval >= 0, "targeting_interval_seconds не может быть отрицательным")

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// FireHeight - высота пламени клетки с жаром g
func (c Config) FireHeight(g float64) float64 {
	return clamp01(g) * c.Fire.MaxHeight
}

// BucketSize - размер ведра с наполненностью g
func (c Config) BucketSize(g float64) float64 {
	return c.Bucket.SizeEmpty + (c.Bucket.SizeFull-c.Bucket.SizeEmpty)*clamp01(g)
}
