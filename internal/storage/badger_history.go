package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"
)

// BadgerHistory хранит срезы в BadgerDB под ключами history:<run>:<tick>.
// Тик дополнен нулями, поэтому лексикографический порядок ключей совпадает с порядком тиков.
type BadgerHistory struct {
	db      *badger.DB
	retain  int
	mutex   sync.RWMutex
	isReady bool
	counts  map[string]int
}

// NewBadgerHistory открывает хранилище в каталоге path.
// Пустой path - хранилище в памяти. retain <= 0 - хранить всё.
func NewBadgerHistory(path string, retain int) (*BadgerHistory, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &BadgerHistory{
		db:      db,
		retain:  retain,
		isReady: true,
		counts:  make(map[string]int),
	}, nil
}

func historyPrefix(runID string) []byte {
	return []byte("history:" + runID + ":")
}

func historyKey(runID string, tick uint64) []byte {
	return []byte(fmt.Sprintf("history:%s:%020d", runID, tick))
}

// Record сохраняет срез и удаляет самые старые сверх retain
func (h *BadgerHistory) Record(ctx context.Context, s Sample) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.isReady {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("ошибка сериализации среза: %w", err)
	}

	key := historyKey(s.RunID, s.Tick)
	existed := false
	err = h.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			existed = true
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	if !existed {
		h.counts[s.RunID]++
	}

	if h.retain > 0 && h.counts[s.RunID] > h.retain {
		return h.prune(s.RunID, h.counts[s.RunID]-h.retain)
	}
	return nil
}

// prune удаляет n самых старых срезов прогона
func (h *BadgerHistory) prune(runID string, n int) error {
	prefix := historyPrefix(runID)
	var stale [][]byte

	err := h.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(stale) < n; it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = h.db.Update(func(txn *badger.Txn) error {
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ошибка очистки истории: %w", err)
	}
	h.counts[runID] -= len(stale)
	return nil
}

// Recent возвращает до n последних срезов прогона, от новых к старым
func (h *BadgerHistory) Recent(ctx context.Context, runID string, n int) ([]Sample, error) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if !h.isReady {
		return nil, ErrClosed
	}
	if n <= 0 {
		return nil, nil
	}

	prefix := historyPrefix(runID)
	var out []Sample
	err := h.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Обратный обход начинается с ключа, который больше любого ключа прогона
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(out) < n; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var s Sample
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &s)
			})
			if err != nil {
				return fmt.Errorf("ошибка десериализации среза: %w", err)
			}
			out = append(out, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close закрывает хранилище
func (h *BadgerHistory) Close() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.isReady {
		return nil
	}
	h.isReady = false
	return h.db.Close()
}
