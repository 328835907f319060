package cache

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"codeatlas/internal/common/logging"
)

// Operation identifies the kind of store operation being recorded.
type Operation string

const (
	OpGet    Operation = "get"
	OpSet    Operation = "set"
	OpDel    Operation = "del"
	OpClear  Operation = "clear"
	OpExists Operation = "exists"
)

// defaultLogCapacity is the number of operation log entries retained when no
// explicit capacity is given to NewMonitor.
const defaultLogCapacity = 1000

// OperationLogEntry is one recorded store operation. Entries are kept in a
// fixed-size ring, oldest entries are overwritten first.
type OperationLogEntry struct {
	CacheName  string    `json:"cache_name"`
	Operation  Operation `json:"operation"`
	Key        string    `json:"key,omitempty"`
	Success    bool      `json:"success"`
	DurationMs float64   `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
	Error      string    `json:"error,omitempty"`
}

// Metrics is a snapshot of the monitor's counters for one cache name.
// Hits and misses are reported separately from operation successes because
// a get that finds nothing is still a successful operation.
type Metrics struct {
	Hits              int64     `json:"hits"`
	Misses            int64     `json:"misses"`
	Sets              int64     `json:"sets"`
	Deletes           int64     `json:"deletes"`
	Errors            int64     `json:"errors"`
	TotalOperations   int64     `json:"total_operations"`
	HitRate           float64   `json:"hit_rate"`
	ErrorRate         float64   `json:"error_rate"`
	AvgDurationMs     float64   `json:"avg_duration_ms"`
	LastError         string    `json:"last_error,omitempty"`
	LastErrorTime     time.Time `json:"last_error_time,omitempty"`
	LastOperationTime time.Time `json:"last_operation_time,omitempty"`
}

// ErrorSummary is the error-focused view of a cache's metrics returned by
// ErrorStats.
type ErrorSummary struct {
	Errors        int64     `json:"errors"`
	ErrorRate     float64   `json:"error_rate"`
	LastError     string    `json:"last_error,omitempty"`
	LastErrorTime time.Time `json:"last_error_time,omitempty"`
}

// HealthState classifies a cache or the subsystem as a whole.
type HealthState string

const (
	HealthHealthy  HealthState = "healthy"
	HealthWarning  HealthState = "warning"
	HealthCritical HealthState = "critical"
)

// CacheHealth is the per-cache section of a HealthReport.
type CacheHealth struct {
	Status          HealthState `json:"status"`
	HitRate         float64     `json:"hit_rate"`
	ErrorRate       float64     `json:"error_rate"`
	TotalOperations int64       `json:"total_operations"`
	Errors          int64       `json:"errors"`
	LastError       string      `json:"last_error,omitempty"`
}

// HealthReport aggregates the health of every cache the monitor has seen.
// The overall status is the worst per-cache status.
type HealthReport struct {
	Status      HealthState            `json:"status"`
	Caches      map[string]CacheHealth `json:"caches"`
	GeneratedAt time.Time              `json:"generated_at"`
}

type cacheMetrics struct {
	hits            int64
	misses          int64
	sets            int64
	deletes         int64
	errors          int64
	totalOps        int64
	totalDurationMs float64
	lastError       string
	lastErrorTime   time.Time
	lastOpTime      time.Time
}

// Monitor records store operations across every cache instance. It observes
// and re-raises: Record returns the callback's error unchanged so the calling
// store decides how to degrade.
//
// All methods are safe for concurrent use and safe on a nil receiver, so
// stores can call into an absent monitor without guarding.
type Monitor struct {
	mu      sync.Mutex
	metrics map[string]*cacheMetrics

	logs    []OperationLogEntry
	logHead int
	logLen  int

	logger logging.Logger

	opsTotal   *prometheus.CounterVec
	opDuration *prometheus.HistogramVec
	lookups    *prometheus.CounterVec
}

// NewMonitor creates a monitor retaining logCapacity operation log entries
// (the default capacity when logCapacity <= 0). When reg is non-nil the
// monitor's Prometheus collectors are registered on it.
func NewMonitor(logCapacity int, reg prometheus.Registerer, logger logging.Logger) *Monitor {
	if logCapacity <= 0 {
		logCapacity = defaultLogCapacity
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	m := &Monitor{
		metrics: make(map[string]*cacheMetrics),
		logs:    make([]OperationLogEntry, logCapacity),
		logger:  logger,
		opsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Total cache operations by cache name, operation and status",
		}, []string{"cache", "operation", "status"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cache_operation_duration_seconds",
			Help:    "Cache operation latency by cache name and operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"cache", "operation"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by cache name and result",
		}, []string{"cache", "result"}),
	}

	if reg != nil {
		reg.MustRegister(m.opsTotal, m.opDuration, m.lookups)
	}

	return m
}

// Record runs fn, times it, and records the outcome under name. The error
// returned by fn is passed back to the caller untouched.
func (m *Monitor) Record(name string, op Operation, key string, fn func() error) error {
	if m == nil {
		return fn()
	}

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	durationMs := float64(elapsed.Microseconds()) / 1000.0

	m.mu.Lock()
	cm := m.ensure(name)
	cm.totalOps++
	cm.totalDurationMs += durationMs
	cm.lastOpTime = start
	if err != nil {
		cm.errors++
		cm.lastError = err.Error()
		cm.lastErrorTime = start
	} else {
		switch op {
		case OpSet:
			cm.sets++
		case OpDel:
			cm.deletes++
		}
	}

	entry := OperationLogEntry{
		CacheName:  name,
		Operation:  op,
		Key:        key,
		Success:    err == nil,
		DurationMs: durationMs,
		Timestamp:  start,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	m.appendLocked(entry)
	m.mu.Unlock()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.opsTotal.WithLabelValues(name, string(op), status).Inc()
	m.opDuration.WithLabelValues(name, string(op)).Observe(elapsed.Seconds())

	if err != nil {
		m.logger.Error("Cache operation failed", err,
			logging.Field{Key: "cache", Value: name},
			logging.Field{Key: "operation", Value: string(op)},
			logging.Field{Key: "key", Value: key},
			logging.Field{Key: "duration_ms", Value: durationMs})
	} else {
		m.logger.Debug("Cache operation",
			logging.Field{Key: "cache", Value: name},
			logging.Field{Key: "operation", Value: string(op)},
			logging.Field{Key: "key", Value: key},
			logging.Field{Key: "duration_ms", Value: durationMs})
	}

	return err
}

// RecordHitMiss registers the logical outcome of a lookup. It is separate
// from Record because hit or miss is decided by the store that owns the
// lookup, not by whether the underlying operation succeeded.
func (m *Monitor) RecordHitMiss(name string, hit bool) {
	if m == nil {
		return
	}

	m.mu.Lock()
	cm := m.ensure(name)
	if hit {
		cm.hits++
	} else {
		cm.misses++
	}
	m.mu.Unlock()

	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.WithLabelValues(name, result).Inc()
}

// ensure returns the metrics bucket for name, creating it if needed.
// Callers must hold m.mu.
func (m *Monitor) ensure(name string) *cacheMetrics {
	cm, ok := m.metrics[name]
	if !ok {
		cm = &cacheMetrics{}
		m.metrics[name] = cm
	}
	return cm
}

// appendLocked writes one entry into the ring. Callers must hold m.mu.
func (m *Monitor) appendLocked(entry OperationLogEntry) {
	m.logs[m.logHead] = entry
	m.logHead = (m.logHead + 1) % len(m.logs)
	if m.logLen < len(m.logs) {
		m.logLen++
	}
}

func (cm *cacheMetrics) snapshot() Metrics {
	s := Metrics{
		Hits:              cm.hits,
		Misses:            cm.misses,
		Sets:              cm.sets,
		Deletes:           cm.deletes,
		Errors:            cm.errors,
		TotalOperations:   cm.totalOps,
		HitRate:           hitRate(cm.hits, cm.misses),
		LastError:         cm.lastError,
		LastErrorTime:     cm.lastErrorTime,
		LastOperationTime: cm.lastOpTime,
	}
	if cm.totalOps > 0 {
		s.ErrorRate = float64(cm.errors) / float64(cm.totalOps)
		s.AvgDurationMs = cm.totalDurationMs / float64(cm.totalOps)
	}
	return s
}

// GetMetrics returns the metrics snapshot for one cache name.
func (m *Monitor) GetMetrics(name string) (Metrics, bool) {
	if m == nil {
		return Metrics{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cm, ok := m.metrics[name]
	if !ok {
		return Metrics{}, false
	}
	return cm.snapshot(), true
}

// AllMetrics returns a snapshot for every cache the monitor has seen.
func (m *Monitor) AllMetrics() map[string]Metrics {
	if m == nil {
		return map[string]Metrics{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Metrics, len(m.metrics))
	for name, cm := range m.metrics {
		out[name] = cm.snapshot()
	}
	return out
}

// OperationLogs returns recorded operations, newest first. A limit <= 0
// returns all retained entries; offset skips that many of the newest.
func (m *Monitor) OperationLogs(limit, offset int) []OperationLogEntry {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if offset < 0 {
		offset = 0
	}
	if offset >= m.logLen {
		return []OperationLogEntry{}
	}
	n := m.logLen - offset
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]OperationLogEntry, 0, n)
	for i := 0; i < n; i++ {
		// logHead points at the slot that will be written next, so the
		// newest entry sits just behind it.
		idx := (m.logHead - 1 - offset - i + 2*len(m.logs)) % len(m.logs)
		out = append(out, m.logs[idx])
	}
	return out
}

// ErrorStats returns error counters per cache. An empty name covers every
// cache, otherwise the result holds at most the named cache.
func (m *Monitor) ErrorStats(name string) map[string]ErrorSummary {
	if m == nil {
		return map[string]ErrorSummary{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]ErrorSummary)
	for cacheName, cm := range m.metrics {
		if name != "" && cacheName != name {
			continue
		}
		summary := ErrorSummary{
			Errors:        cm.errors,
			LastError:     cm.lastError,
			LastErrorTime: cm.lastErrorTime,
		}
		if cm.totalOps > 0 {
			summary.ErrorRate = float64(cm.errors) / float64(cm.totalOps)
		}
		out[cacheName] = summary
	}
	return out
}

// HealthReport classifies every cache and derives an overall status.
//
// A cache is critical when its error rate exceeds 10%, warning when the
// error rate exceeds 5% or the hit rate stays under 50% after more than 100
// operations, and healthy otherwise. Caches without recorded operations are
// healthy.
func (m *Monitor) HealthReport() HealthReport {
	report := HealthReport{
		Status:      HealthHealthy,
		Caches:      map[string]CacheHealth{},
		GeneratedAt: time.Now(),
	}
	if m == nil {
		return report
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for name, cm := range m.metrics {
		snap := cm.snapshot()
		health := CacheHealth{
			Status:          HealthHealthy,
			HitRate:         snap.HitRate,
			ErrorRate:       snap.ErrorRate,
			TotalOperations: snap.TotalOperations,
			Errors:          snap.Errors,
			LastError:       snap.LastError,
		}

		switch {
		case snap.TotalOperations == 0:
			health.Status = HealthHealthy
		case snap.ErrorRate > 0.10:
			health.Status = HealthCritical
		case snap.ErrorRate > 0.05:
			health.Status = HealthWarning
		case snap.HitRate < 0.50 && snap.TotalOperations > 100:
			health.Status = HealthWarning
		}

		report.Caches[name] = health

		if health.Status == HealthCritical {
			report.Status = HealthCritical
		} else if health.Status == HealthWarning && report.Status == HealthHealthy {
			report.Status = HealthWarning
		}
	}

	return report
}

// ResetStats clears counters and log entries for one cache, or for every
// cache when name is empty.
func (m *Monitor) ResetStats(name string) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if name == "" {
		m.metrics = make(map[string]*cacheMetrics)
		m.logHead = 0
		m.logLen = 0
		return
	}

	delete(m.metrics, name)

	kept := make([]OperationLogEntry, 0, m.logLen)
	for i := m.logLen - 1; i >= 0; i-- {
		idx := (m.logHead - 1 - i + 2*len(m.logs)) % len(m.logs)
		if m.logs[idx].CacheName != name {
			kept = append(kept, m.logs[idx])
		}
	}
	m.logHead = 0
	m.logLen = 0
	for _, entry := range kept {
		m.appendLocked(entry)
	}
}
