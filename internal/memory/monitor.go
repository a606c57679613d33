package memory

import (
	"runtime"
	"runtime/debug"
	"time"

	"github.com/mikey/llm-smish-guard/internal/core"
	"go.uber.org/zap"
)

// Monitor samples heap usage against a configured budget and sheds pressure
// on demand. Relief is advisory: it trades latency for headroom and never
// gates progress.
type Monitor struct {
	budget    uint64
	threshold int
	logger    *zap.Logger
}

// NewMonitor creates a memory monitor. budget is the soft heap budget in
// bytes; threshold is the usage percentage above which IsPressured reports true.
func NewMonitor(budget uint64, threshold int, logger *zap.Logger) *Monitor {
	if budget == 0 {
		budget = 512 * 1024 * 1024
	}
	if threshold <= 0 || threshold > 100 {
		threshold = 80
	}
	return &Monitor{
		budget:    budget,
		threshold: threshold,
		logger:    logger,
	}
}

// Sample reports current heap usage against the configured budget
func (m *Monitor) Sample() core.MemoryStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	used := ms.HeapAlloc
	percent := int(used * 100 / m.budget)
	if percent > 100 {
		percent = 100
	}

	return core.MemoryStats{
		Used:        used,
		Budget:      m.budget,
		PercentUsed: percent,
	}
}

// IsPressured reports whether heap usage crossed the configured threshold
func (m *Monitor) IsPressured() bool {
	return m.Sample().PercentUsed > m.threshold
}

// Relieve forces a collection cycle, waits briefly, collects again and
// returns freed pages to the OS, then re-samples for logging.
func (m *Monitor) Relieve() {
	m.logger.Debug("Relieving memory pressure")

	runtime.GC()
	time.Sleep(100 * time.Millisecond)
	runtime.GC()
	debug.FreeOSMemory()

	stats := m.Sample()
	m.logger.Debug("Memory relief completed",
		zap.Uint64("used_bytes", stats.Used),
		zap.Int("percent_used", stats.PercentUsed))
}
