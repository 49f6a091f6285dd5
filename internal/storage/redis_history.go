package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/bucket-brigade/internal/logging"
)

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни списка после последней записи
	Retain    int           // Сколько срезов держать в списке
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "brigade:history:",
		TTL:       24 * time.Hour,
		Retain:    3600,
	}
}

// RedisHistory держит последние срезы каждого прогона в списке Redis
// (новые в голове) и отдельный ключ с самым свежим срезом для дашбордов
type RedisHistory struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	retain    int
}

// NewRedisHistory подключается к Redis и проверяет соединение
func NewRedisHistory(ctx context.Context, cfg *RedisConfig) (*RedisHistory, error) {
	if cfg == nil {
		cfg = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Info("🔴 История прогона пишется в Redis %s", cfg.Addr)
	return NewRedisHistoryWithClient(client, cfg), nil
}

// NewRedisHistoryWithClient оборачивает готовый клиент
func NewRedisHistoryWithClient(client redis.UniversalClient, cfg *RedisConfig) *RedisHistory {
	if cfg == nil {
		cfg = DefaultRedisConfig()
	}
	return &RedisHistory{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		ttl:       cfg.TTL,
		retain:    cfg.Retain,
	}
}

func (r *RedisHistory) listKey(runID string) string   { return r.keyPrefix + runID }
func (r *RedisHistory) latestKey(runID string) string { return r.keyPrefix + runID + ":latest" }

// Record кладёт срез в голову списка, обрезает хвост и обновляет latest одним пайплайном
func (r *RedisHistory) Record(ctx context.Context, s Sample) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}

	list := r.listKey(s.RunID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, list, data)
		if r.retain > 0 {
			pipe.LTrim(ctx, list, 0, int64(r.retain-1))
		}
		pipe.Set(ctx, r.latestKey(s.RunID), data, r.ttl)
		if r.ttl > 0 {
			pipe.Expire(ctx, list, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record sample: %w", err)
	}
	return nil
}

// Recent возвращает до n последних срезов, от новых к старым
func (r *RedisHistory) Recent(ctx context.Context, runID string, n int) ([]Sample, error) {
	if n <= 0 {
		return nil, nil
	}

	raw, err := r.client.LRange(ctx, r.listKey(runID), 0, int64(n-1)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	out := make([]Sample, 0, len(raw))
	for _, item := range raw {
		var s Sample
		if err := json.Unmarshal([]byte(item), &s); err != nil {
			logging.Warn("⚠️ Повреждённый срез истории %s: %v", runID, err)
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// Latest возвращает самый свежий срез или nil
func (r *RedisHistory) Latest(ctx context.Context, runID string) (*Sample, error) {
	data, err := r.client.Get(ctx, r.latestKey(runID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get latest sample: %w", err)
	}

	var s Sample
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sample: %w", err)
	}
	return &s, nil
}

// Close закрывает клиент
func (r *RedisHistory) Close() error {
	return r.client.Close()
}
