package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSampleReportsUsageAgainstBudget(t *testing.T) {
	m := NewMonitor(512*1024*1024, 80, zap.NewNop())

	stats := m.Sample()

	assert.Positive(t, stats.Used)
	assert.Equal(t, uint64(512*1024*1024), stats.Budget)
	assert.GreaterOrEqual(t, stats.PercentUsed, 0)
	assert.LessOrEqual(t, stats.PercentUsed, 100)
}

func TestSamplePercentIsCapped(t *testing.T) {
	// A one-byte budget is always exceeded; the percentage caps at 100
	m := NewMonitor(1, 80, zap.NewNop())

	assert.Equal(t, 100, m.Sample().PercentUsed)
}

func TestIsPressured(t *testing.T) {
	tiny := NewMonitor(1, 80, zap.NewNop())
	assert.True(t, tiny.IsPressured())

	// A terabyte budget cannot be pressured by a test process
	huge := NewMonitor(1<<40, 80, zap.NewNop())
	assert.False(t, huge.IsPressured())
}

func TestNewMonitorDefaults(t *testing.T) {
	m := NewMonitor(0, 0, zap.NewNop())

	assert.Equal(t, uint64(512*1024*1024), m.budget)
	assert.Equal(t, 80, m.threshold)

	m = NewMonitor(0, 150, zap.NewNop())
	assert.Equal(t, 80, m.threshold)
}

func TestRelieveCompletes(t *testing.T) {
	m := NewMonitor(1, 80, zap.NewNop())

	// Relief is advisory and must return even when pressure remains
	m.Relieve()
	assert.True(t, m.IsPressured())
}
