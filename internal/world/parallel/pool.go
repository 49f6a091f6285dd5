// Package parallel разбивает набор сущностей на непрерывные разделы и
// обрабатывает их на фиксированном числе воркеров.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minPartition - меньше этого числа элементов на раздел дробить не имеет смысла
const minPartition = 64

// Pool - пул воркеров для разбиения по разделам
type Pool struct {
	workers int
	grain   int
}

// NewPool создаёт пул. workers <= 0 означает GOMAXPROCS.
func NewPool(workers int) *Pool {
	return NewPoolWithGrain(workers, minPartition)
}

// NewPoolWithGrain создаёт пул с заданным минимальным размером раздела
func NewPoolWithGrain(workers, grain int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if grain <= 0 {
		grain = 1
	}
	return &Pool{workers: workers, grain: grain}
}

// Workers возвращает число воркеров (и буферов журнала команд)
func (p *Pool) Workers() int {
	return p.workers
}

// Partitions возвращает число разделов для n элементов
func (p *Pool) Partitions(n int) int {
	if n <= 0 {
		return 0
	}
	parts := (n + p.grain - 1) / p.grain
	if parts > p.workers {
		parts = p.workers
	}
	return parts
}

// ForEach вызывает fn(worker, lo, hi) для непересекающихся диапазонов [lo, hi),
// покрывающих [0, n). Каждый раздел получает уникальный номер воркера.
// Возвращает первую ошибку fn; паника в fn не перехватывается.
func (p *Pool) ForEach(ctx context.Context, n int, fn func(worker, lo, hi int) error) error {
	parts := p.Partitions(n)
	if parts == 0 {
		return nil
	}
	if parts == 1 {
		return fn(0, 0, n)
	}

	g, _ := errgroup.WithContext(ctx)
	size := (n + parts - 1) / parts
	for w := 0; w < parts; w++ {
		lo := w * size
		hi := lo + size
		if hi > n {
			hi = n
		}
		if lo >= hi {
			break
		}
		worker := w
		g.Go(func() error {
			return fn(worker, lo, hi)
		})
	}
	return g.Wait()
}

// Run - ForEach для обработчиков без ошибок
func (p *Pool) Run(n int, fn func(worker, lo, hi int)) {
	_ = p.ForEach(context.Background(), n, func(worker, lo, hi int) error {
		fn(worker, lo, hi)
		return nil
	})
}
