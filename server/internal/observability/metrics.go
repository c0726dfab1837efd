package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects request counters and durations per study operation.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64
	reviewsTotal  atomic.Int64

	operations map[string]*OperationMetrics
}

// OperationMetrics represents metrics for a single operation.
type OperationMetrics struct {
	count         atomic.Int64
	totalDuration atomic.Int64 // milliseconds
	errorCount    atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{operations: make(map[string]*OperationMetrics)}
}

// RecordRequest records one finished request of operation.
func (m *Metrics) RecordRequest(operation string, duration time.Duration, failed bool) {
	m.requestTotal.Add(1)
	om := m.operation(operation)
	om.count.Add(1)
	om.totalDuration.Add(duration.Milliseconds())
	if failed {
		m.requestFailed.Add(1)
		om.errorCount.Add(1)
	}
}

// RecordReview counts one accepted card review.
func (m *Metrics) RecordReview() {
	m.reviewsTotal.Add(1)
}

func (m *Metrics) operation(name string) *OperationMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	om, ok := m.operations[name]
	if !ok {
		om = &OperationMetrics{}
		m.operations[name] = om
	}
	return om
}

// Reset resets all metrics.
func (m *Metrics) Reset() {
	m.requestTotal.Store(0)
	m.requestFailed.Store(0)
	m.reviewsTotal.Store(0)

	m.mu.Lock()
	m.operations = make(map[string]*OperationMetrics)
	m.mu.Unlock()
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() *MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	ops := make([]OperationSnapshot, 0, len(m.operations))
	for name, om := range m.operations {
		count := om.count.Load()
		var avg int64
		if count > 0 {
			avg = om.totalDuration.Load() / count
		}
		ops = append(ops, OperationSnapshot{
			Operation:         name,
			Count:             count,
			ErrorCount:        om.errorCount.Load(),
			AverageDurationMs: avg,
		})
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Operation < ops[j].Operation })

	return &MetricsSnapshot{
		RequestTotal:  m.requestTotal.Load(),
		RequestFailed: m.requestFailed.Load(),
		ReviewsTotal:  m.reviewsTotal.Load(),
		Operations:    ops,
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RequestTotal  int64               `json:"request_total"`
	RequestFailed int64               `json:"request_failed"`
	ReviewsTotal  int64               `json:"reviews_total"`
	Operations    []OperationSnapshot `json:"operations"`
}

// OperationSnapshot represents metrics for one operation.
type OperationSnapshot struct {
	Operation         string `json:"operation"`
	Count             int64  `json:"count"`
	ErrorCount        int64  `json:"error_count"`
	AverageDurationMs int64  `json:"average_duration_ms"`
}

// SuccessRate returns the success rate as a percentage (0-100).
func (s *MetricsSnapshot) SuccessRate() float64 {
	if s.RequestTotal == 0 {
		return 100.0
	}
	return float64(s.RequestTotal-s.RequestFailed) / float64(s.RequestTotal) * 100.0
}
