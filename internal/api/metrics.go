package api

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ServerMetrics отдаёт сведения о процессе сервера
type ServerMetrics struct {
	StartTime time.Time
	proc      *process.Process
}

// ProcessStats - снимок ресурсов процесса
type ProcessStats struct {
	Uptime     string  `json:"uptime"`
	CPUPercent float64 `json:"cpu_percent"`
	RSSMB      float64 `json:"rss_mb"`
	HeapMB     float64 `json:"heap_mb"`
	NumGC      uint32  `json:"num_gc"`
	Goroutines int     `json:"goroutines"`
}

// NewServerMetrics создаёт метрики для текущего процесса
func NewServerMetrics() *ServerMetrics {
	sm := &ServerMetrics{StartTime: time.Now()}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		sm.proc = proc
	}
	return sm
}

// GetUptime возвращает время работы сервера
func (sm *ServerMetrics) GetUptime() string {
	return formatUptime(time.Since(sm.StartTime))
}

func formatUptime(uptime time.Duration) string {
	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}

// Collect снимает показатели процесса. Ошибки gopsutil не фатальны:
// соответствующие поля остаются нулевыми.
func (sm *ServerMetrics) Collect() ProcessStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	st := ProcessStats{
		Uptime:     sm.GetUptime(),
		HeapMB:     float64(m.HeapAlloc) / 1024 / 1024,
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}

	if sm.proc == nil {
		return st
	}
	if cpu, err := sm.proc.CPUPercent(); err == nil {
		st.CPUPercent = cpu
	}
	if mem, err := sm.proc.MemoryInfo(); err == nil && mem != nil {
		st.RSSMB = float64(mem.RSS) / 1024 / 1024
	}
	return st
}
