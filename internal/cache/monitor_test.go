package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeatlas/internal/common/errors"
	"codeatlas/internal/common/logging"
)

func newTestMonitor(capacity int) *Monitor {
	return NewMonitor(capacity, nil, logging.GetGlobalLogger())
}

func TestMonitor_Record(t *testing.T) {
	t.Run("success updates counters", func(t *testing.T) {
		m := newTestMonitor(0)

		err := m.Record("search", OpSet, "k", func() error { return nil })
		require.NoError(t, err)

		metrics, ok := m.GetMetrics("search")
		require.True(t, ok)
		assert.Equal(t, int64(1), metrics.TotalOperations)
		assert.Equal(t, int64(1), metrics.Sets)
		assert.Equal(t, int64(0), metrics.Errors)
		assert.Equal(t, float64(0), metrics.ErrorRate)
	})

	t.Run("error is counted and re-raised unchanged", func(t *testing.T) {
		m := newTestMonitor(0)
		boom := errors.ConnectionError("redis unavailable", nil)

		err := m.Record("search", OpGet, "k", func() error { return boom })
		assert.Same(t, boom, err)

		metrics, ok := m.GetMetrics("search")
		require.True(t, ok)
		assert.Equal(t, int64(1), metrics.Errors)
		assert.Equal(t, float64(1), metrics.ErrorRate)
		assert.Equal(t, boom.Error(), metrics.LastError)
		assert.False(t, metrics.LastErrorTime.IsZero())
	})

	t.Run("failed writes are not counted as sets", func(t *testing.T) {
		m := newTestMonitor(0)

		_ = m.Record("search", OpSet, "k", func() error {
			return errors.ConnectionError("down", nil)
		})
		_ = m.Record("search", OpDel, "k", func() error {
			return errors.ConnectionError("down", nil)
		})

		metrics, _ := m.GetMetrics("search")
		assert.Equal(t, int64(0), metrics.Sets)
		assert.Equal(t, int64(0), metrics.Deletes)
		assert.Equal(t, int64(2), metrics.Errors)
	})

	t.Run("durations feed the average", func(t *testing.T) {
		m := newTestMonitor(0)

		_ = m.Record("search", OpGet, "k", func() error {
			time.Sleep(5 * time.Millisecond)
			return nil
		})

		metrics, _ := m.GetMetrics("search")
		assert.Greater(t, metrics.AvgDurationMs, 0.0)
	})
}

func TestMonitor_RecordHitMiss(t *testing.T) {
	m := newTestMonitor(0)

	// A get that finds nothing is a successful operation and a miss at the
	// same time, the two signals stay independent.
	err := m.Record("search", OpGet, "k", func() error { return nil })
	require.NoError(t, err)
	m.RecordHitMiss("search", false)

	m.RecordHitMiss("search", true)
	m.RecordHitMiss("search", true)

	metrics, ok := m.GetMetrics("search")
	require.True(t, ok)
	assert.Equal(t, int64(2), metrics.Hits)
	assert.Equal(t, int64(1), metrics.Misses)
	assert.InDelta(t, 2.0/3.0, metrics.HitRate, 0.001)
	assert.Equal(t, int64(1), metrics.TotalOperations)
	assert.Equal(t, int64(0), metrics.Errors)
}

func TestMonitor_AllMetrics(t *testing.T) {
	m := newTestMonitor(0)

	_ = m.Record("a", OpGet, "k", func() error { return nil })
	_ = m.Record("b", OpSet, "k", func() error { return nil })

	all := m.AllMetrics()
	require.Len(t, all, 2)
	assert.Equal(t, int64(1), all["a"].TotalOperations)
	assert.Equal(t, int64(1), all["b"].Sets)
}

func TestMonitor_OperationLogs(t *testing.T) {
	m := newTestMonitor(5)

	for i := 1; i <= 8; i++ {
		_ = m.Record("search", OpGet, fmt.Sprintf("k%d", i), func() error { return nil })
	}

	t.Run("ring keeps the newest entries", func(t *testing.T) {
		logs := m.OperationLogs(0, 0)
		require.Len(t, logs, 5)
		assert.Equal(t, "k8", logs[0].Key)
		assert.Equal(t, "k4", logs[4].Key)
	})

	t.Run("limit", func(t *testing.T) {
		logs := m.OperationLogs(2, 0)
		require.Len(t, logs, 2)
		assert.Equal(t, "k8", logs[0].Key)
		assert.Equal(t, "k7", logs[1].Key)
	})

	t.Run("offset", func(t *testing.T) {
		logs := m.OperationLogs(2, 1)
		require.Len(t, logs, 2)
		assert.Equal(t, "k7", logs[0].Key)
		assert.Equal(t, "k6", logs[1].Key)
	})

	t.Run("offset past the end", func(t *testing.T) {
		assert.Empty(t, m.OperationLogs(0, 10))
	})

	t.Run("entry carries the outcome", func(t *testing.T) {
		fresh := newTestMonitor(5)
		_ = fresh.Record("search", OpSet, "k", func() error {
			return errors.ConnectionError("down", nil)
		})

		logs := fresh.OperationLogs(1, 0)
		require.Len(t, logs, 1)
		entry := logs[0]
		assert.Equal(t, "search", entry.CacheName)
		assert.Equal(t, OpSet, entry.Operation)
		assert.Equal(t, "k", entry.Key)
		assert.False(t, entry.Success)
		assert.Contains(t, entry.Error, "down")
		assert.False(t, entry.Timestamp.IsZero())
		assert.GreaterOrEqual(t, entry.DurationMs, 0.0)
	})
}

func TestMonitor_ErrorStats(t *testing.T) {
	m := newTestMonitor(0)

	_ = m.Record("healthy", OpGet, "k", func() error { return nil })
	_ = m.Record("failing", OpGet, "k", func() error {
		return errors.ConnectionError("down", nil)
	})

	t.Run("all caches", func(t *testing.T) {
		stats := m.ErrorStats("")
		require.Len(t, stats, 2)
		assert.Equal(t, int64(0), stats["healthy"].Errors)
		assert.Equal(t, int64(1), stats["failing"].Errors)
		assert.Equal(t, float64(1), stats["failing"].ErrorRate)
		assert.Contains(t, stats["failing"].LastError, "down")
	})

	t.Run("single cache", func(t *testing.T) {
		stats := m.ErrorStats("failing")
		require.Len(t, stats, 1)
		_, ok := stats["failing"]
		assert.True(t, ok)
	})

	t.Run("unknown cache", func(t *testing.T) {
		assert.Empty(t, m.ErrorStats("nope"))
	})
}

func TestMonitor_HealthReport(t *testing.T) {
	record := func(m *Monitor, name string, total, failed int) {
		for i := 0; i < total-failed; i++ {
			_ = m.Record(name, OpGet, "k", func() error { return nil })
		}
		for i := 0; i < failed; i++ {
			_ = m.Record(name, OpGet, "k", func() error {
				return errors.ConnectionError("down", nil)
			})
		}
	}

	t.Run("critical above ten percent errors", func(t *testing.T) {
		m := newTestMonitor(0)
		record(m, "crit", 10, 2)

		report := m.HealthReport()
		assert.Equal(t, HealthCritical, report.Status)
		assert.Equal(t, HealthCritical, report.Caches["crit"].Status)
	})

	t.Run("warning between five and ten percent errors", func(t *testing.T) {
		m := newTestMonitor(0)
		record(m, "warn", 100, 6)

		report := m.HealthReport()
		assert.Equal(t, HealthWarning, report.Status)
		assert.Equal(t, HealthWarning, report.Caches["warn"].Status)
	})

	t.Run("warning on a cold cache with real traffic", func(t *testing.T) {
		m := newTestMonitor(0)
		record(m, "cold", 101, 0)
		for i := 0; i < 30; i++ {
			m.RecordHitMiss("cold", true)
		}
		for i := 0; i < 71; i++ {
			m.RecordHitMiss("cold", false)
		}

		report := m.HealthReport()
		assert.Equal(t, HealthWarning, report.Caches["cold"].Status)
	})

	t.Run("low hit rate alone is fine under light traffic", func(t *testing.T) {
		m := newTestMonitor(0)
		record(m, "light", 10, 0)
		m.RecordHitMiss("light", false)

		report := m.HealthReport()
		assert.Equal(t, HealthHealthy, report.Caches["light"].Status)
	})

	t.Run("healthy cache", func(t *testing.T) {
		m := newTestMonitor(0)
		record(m, "ok", 100, 2)
		for i := 0; i < 80; i++ {
			m.RecordHitMiss("ok", true)
		}
		for i := 0; i < 20; i++ {
			m.RecordHitMiss("ok", false)
		}

		report := m.HealthReport()
		assert.Equal(t, HealthHealthy, report.Status)
		assert.Equal(t, HealthHealthy, report.Caches["ok"].Status)
	})

	t.Run("worst cache wins overall", func(t *testing.T) {
		m := newTestMonitor(0)
		record(m, "ok", 100, 0)
		record(m, "warn", 100, 6)
		record(m, "crit", 10, 5)

		report := m.HealthReport()
		assert.Equal(t, HealthCritical, report.Status)
		require.Len(t, report.Caches, 3)
	})

	t.Run("no recorded operations", func(t *testing.T) {
		m := newTestMonitor(0)

		report := m.HealthReport()
		assert.Equal(t, HealthHealthy, report.Status)
		assert.Empty(t, report.Caches)
		assert.False(t, report.GeneratedAt.IsZero())
	})
}

func TestMonitor_ResetStats(t *testing.T) {
	seed := func() *Monitor {
		m := newTestMonitor(10)
		_ = m.Record("a", OpGet, "ka", func() error { return nil })
		_ = m.Record("b", OpGet, "kb", func() error { return nil })
		m.RecordHitMiss("a", true)
		return m
	}

	t.Run("reset everything", func(t *testing.T) {
		m := seed()
		m.ResetStats("")

		assert.Empty(t, m.AllMetrics())
		assert.Empty(t, m.OperationLogs(0, 0))
	})

	t.Run("reset a single cache", func(t *testing.T) {
		m := seed()
		m.ResetStats("a")

		_, ok := m.GetMetrics("a")
		assert.False(t, ok)
		_, ok = m.GetMetrics("b")
		assert.True(t, ok)

		logs := m.OperationLogs(0, 0)
		require.Len(t, logs, 1)
		assert.Equal(t, "b", logs[0].CacheName)
	})

	t.Run("ring keeps working after a reset", func(t *testing.T) {
		m := seed()
		m.ResetStats("a")

		_ = m.Record("c", OpSet, "kc", func() error { return nil })

		logs := m.OperationLogs(0, 0)
		require.Len(t, logs, 2)
		assert.Equal(t, "c", logs[0].CacheName)
		assert.Equal(t, "b", logs[1].CacheName)
	})
}

func TestMonitor_NilReceiver(t *testing.T) {
	var m *Monitor

	ran := false
	err := m.Record("search", OpGet, "k", func() error {
		ran = true
		return errors.ConnectionError("down", nil)
	})
	assert.True(t, ran)
	assert.Error(t, err)

	m.RecordHitMiss("search", true)
	m.ResetStats("")

	_, ok := m.GetMetrics("search")
	assert.False(t, ok)
	assert.Empty(t, m.AllMetrics())
	assert.Empty(t, m.OperationLogs(0, 0))
	assert.Empty(t, m.ErrorStats(""))
	assert.Equal(t, HealthHealthy, m.HealthReport().Status)
}

func TestMonitor_PrometheusCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMonitor(0, reg, logging.GetGlobalLogger())

	_ = m.Record("search", OpGet, "k", func() error { return nil })
	_ = m.Record("search", OpGet, "k", func() error {
		return errors.ConnectionError("down", nil)
	})
	m.RecordHitMiss("search", true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.opsTotal.WithLabelValues("search", "get", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.opsTotal.WithLabelValues("search", "get", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues("search", "hit")))
}
