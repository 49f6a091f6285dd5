// Package storage хранит историю прогона симуляции: периодические срезы
// статистики мира. Само состояние мира не сохраняется.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/annel0/bucket-brigade/internal/brigade"
)

// ErrClosed - хранилище уже закрыто
var ErrClosed = errors.New("хранилище истории закрыто")

// Sample - срез статистики на момент тика
type Sample struct {
	RunID    string        `json:"run_id"`
	Tick     uint64        `json:"tick"`
	Recorded time.Time     `json:"recorded"`
	Stats    brigade.Stats `json:"stats"`
}

// HistoryRecorder пишет срезы и отдаёт последние из них.
// Recent возвращает срезы от новых к старым.
type HistoryRecorder interface {
	Record(ctx context.Context, s Sample) error
	Recent(ctx context.Context, runID string, n int) ([]Sample, error)
	Close() error
}

// nopHistory ничего не хранит
type nopHistory struct{}

// NewNopHistory возвращает recorder, который отбрасывает срезы
func NewNopHistory() HistoryRecorder { return nopHistory{} }

func (nopHistory) Record(context.Context, Sample) error { return nil }

func (nopHistory) Recent(context.Context, string, int) ([]Sample, error) { return nil, nil }

func (nopHistory) Close() error { return nil }
