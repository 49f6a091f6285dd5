package command

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_ReplaysInSubmissionOrder(t *testing.T) {
	log := NewLog[string](3)

	log.Buffer(2).Append("a")
	log.Buffer(0).Append("b")
	log.Buffer(1).Append("c")
	log.Buffer(2).Append("d")

	var got []string
	n := log.Flush(func(cmd string) { got = append(got, cmd) })

	assert.Equal(t, 4, n)
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
	assert.Equal(t, 0, log.Pending(), "После воспроизведения буферы пусты")
	assert.Equal(t, uint64(4), log.Replayed())
}

func TestLog_ParallelWritersKeepPerWorkerOrder(t *testing.T) {
	const workers = 4
	const perWorker = 500
	log := NewLog[[2]int](workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			buf := log.Buffer(w)
			for i := 0; i < perWorker; i++ {
				buf.Append([2]int{w, i})
			}
		}(w)
	}
	wg.Wait()

	last := make([]int, workers)
	for i := range last {
		last[i] = -1
	}
	count := log.Flush(func(cmd [2]int) {
		require.Greater(t, cmd[1], last[cmd[0]], "Порядок команд одного воркера должен сохраниться")
		last[cmd[0]] = cmd[1]
	})
	assert.Equal(t, workers*perWorker, count)
}

func TestLog_AppendDuringFlushGoesToNextFlush(t *testing.T) {
	log := NewLog[int](1)
	log.Buffer(0).Append(1)

	var got []int
	log.Flush(func(cmd int) {
		got = append(got, cmd)
		if cmd == 1 {
			log.Buffer(0).Append(2)
		}
	})
	assert.Equal(t, []int{1}, got)
	assert.Equal(t, 1, log.Pending())

	log.Flush(func(cmd int) { got = append(got, cmd) })
	assert.Equal(t, []int{1, 2}, got)
}

func TestLog_BufferIndexWraps(t *testing.T) {
	log := NewLog[int](2)
	assert.Equal(t, 1, log.Buffer(3).Worker())
	assert.Equal(t, 0, log.Buffer(-2).Worker())
	assert.Equal(t, 2, log.Workers())
}
