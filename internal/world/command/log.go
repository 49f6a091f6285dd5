// Package command реализует отложенный журнал структурных изменений:
// во время параллельной фазы каждый воркер дописывает команды в свой буфер,
// а на барьере журнал воспроизводится однопоточно в порядке подачи.
package command

import (
	"sort"
	"sync/atomic"
)

// record - команда с глобальным порядковым номером подачи
type record[C any] struct {
	seq uint64
	cmd C
}

// Buffer - буфер одного воркера. Дописывать в него может только один поток.
type Buffer[C any] struct {
	worker  int
	log     *Log[C]
	records []record[C]
}

// Worker возвращает номер воркера, которому принадлежит буфер
func (b *Buffer[C]) Worker() int {
	return b.worker
}

// Append добавляет команду в буфер
func (b *Buffer[C]) Append(cmd C) {
	seq := atomic.AddUint64(&b.log.seq, 1)
	b.records = append(b.records, record[C]{seq: seq, cmd: cmd})
}

// Len возвращает число команд в буфере
func (b *Buffer[C]) Len() int {
	return len(b.records)
}

// Log - набор буферов, по одному на воркер
type Log[C any] struct {
	buffers  []*Buffer[C]
	seq      uint64
	replayed uint64
}

// NewLog создаёт журнал на workers буферов
func NewLog[C any](workers int) *Log[C] {
	if workers < 1 {
		workers = 1
	}
	l := &Log[C]{buffers: make([]*Buffer[C], workers)}
	for i := range l.buffers {
		l.buffers[i] = &Buffer[C]{worker: i, log: l}
	}
	return l
}

// Workers возвращает число буферов
func (l *Log[C]) Workers() int {
	return len(l.buffers)
}

// Buffer возвращает буфер воркера. Номер берётся по модулю числа буферов.
func (l *Log[C]) Buffer(worker int) *Buffer[C] {
	if worker < 0 {
		worker = -worker
	}
	return l.buffers[worker%len(l.buffers)]
}

// Pending возвращает суммарное число команд, ожидающих воспроизведения
func (l *Log[C]) Pending() int {
	n := 0
	for _, b := range l.buffers {
		n += len(b.records)
	}
	return n
}

// Replayed возвращает общее число воспроизведённых команд за время жизни журнала
func (l *Log[C]) Replayed() uint64 {
	return atomic.LoadUint64(&l.replayed)
}

// Flush воспроизводит все команды в порядке подачи и очищает буферы.
// Вызывается только на барьере, когда ни один воркер не пишет в журнал.
// Команды, добавленные из apply, попадают в следующий Flush.
func (l *Log[C]) Flush(apply func(C)) int {
	total := l.Pending()
	if total == 0 {
		return 0
	}

	merged := make([]record[C], 0, total)
	for _, b := range l.buffers {
		merged = append(merged, b.records...)
		b.records = b.records[:0]
	}

	// Внутри буфера номера уже возрастают; общий порядок задаёт номер подачи
	sort.Slice(merged, func(i, j int) bool { return merged[i].seq < merged[j].seq })

	for _, r := range merged {
		apply(r.cmd)
	}
	atomic.AddUint64(&l.replayed, uint64(len(merged)))
	return len(merged)
}
