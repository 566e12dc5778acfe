package reconciler

import (
	"sort"
	"sync"
	"time"

	"scmcicd/internal/policy"
	"scmcicd/pkg/logging"
)

// RunMetrics tracks operation outcomes per kind for one run.
type RunMetrics struct {
	mu sync.RWMutex

	kinds map[policy.Kind]*kindMetrics

	totalOperations int64
	totalChanges    int64
	totalFailures   int64
}

// kindMetrics holds the counters of a single kind.
type kindMetrics struct {
	Kind          policy.Kind
	Operations    int64
	Created       int64
	Updated       int64
	Skipped       int64
	Deleted       int64
	NotFound      int64
	Failed        int64
	Simulated     int64
	LastFailureAt time.Time
	LastFailure   string
}

// NewRunMetrics creates an empty RunMetrics.
func NewRunMetrics() *RunMetrics {
	return &RunMetrics{
		kinds: make(map[policy.Kind]*kindMetrics),
	}
}

func (m *RunMetrics) getOrCreate(kind policy.Kind) *kindMetrics {
	if km, ok := m.kinds[kind]; ok {
		return km
	}
	km := &kindMetrics{Kind: kind}
	m.kinds[kind] = km
	return km
}

// RecordResult counts one operation outcome.
func (m *RunMetrics) RecordResult(r Result) {
	m.mu.Lock()
	defer m.mu.Unlock()

	km := m.getOrCreate(r.Kind)
	km.Operations++
	m.totalOperations++
	if r.Simulated {
		km.Simulated++
	}

	switch r.Status {
	case StatusCreated:
		km.Created++
	case StatusUpdated:
		km.Updated++
	case StatusSkipped:
		km.Skipped++
	case StatusDeleted:
		km.Deleted++
	case StatusNotFound:
		km.NotFound++
	case StatusFailed:
		km.Failed++
		km.LastFailureAt = time.Now()
		km.LastFailure = r.Message
		m.totalFailures++
		logging.Debug("Reconciler", "Failure %d for %s: %s %s: %s", km.Failed, r.Kind, r.Action, r.Name, r.Message)
	}
	if r.Status.Changed() && !r.Simulated {
		m.totalChanges++
	}
}

// MetricsSummary provides a summary of run metrics.
type MetricsSummary struct {
	TotalOperations int64            `json:"total_operations" yaml:"total_operations"`
	TotalChanges    int64            `json:"total_changes" yaml:"total_changes"`
	TotalFailures   int64            `json:"total_failures" yaml:"total_failures"`
	FailureRate     float64          `json:"failure_rate" yaml:"failure_rate"`
	PerKind         []KindMetricView `json:"per_kind" yaml:"per_kind"`
}

// KindMetricView is a read-only view of the metrics of one kind.
type KindMetricView struct {
	Kind          policy.Kind `json:"kind" yaml:"kind"`
	Operations    int64       `json:"operations" yaml:"operations"`
	Created       int64       `json:"created" yaml:"created"`
	Updated       int64       `json:"updated" yaml:"updated"`
	Skipped       int64       `json:"skipped" yaml:"skipped"`
	Deleted       int64       `json:"deleted" yaml:"deleted"`
	NotFound      int64       `json:"not_found" yaml:"not_found"`
	Failed        int64       `json:"failed" yaml:"failed"`
	Simulated     int64       `json:"simulated" yaml:"simulated"`
	LastFailureAt time.Time   `json:"last_failure_at,omitempty" yaml:"last_failure_at,omitempty"`
	LastFailure   string      `json:"last_failure,omitempty" yaml:"last_failure,omitempty"`
}

// Summary returns a snapshot of the metrics, kinds sorted by name.
func (m *RunMetrics) Summary() MetricsSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := MetricsSummary{
		TotalOperations: m.totalOperations,
		TotalChanges:    m.totalChanges,
		TotalFailures:   m.totalFailures,
		PerKind:         make([]KindMetricView, 0, len(m.kinds)),
	}
	if m.totalOperations > 0 {
		summary.FailureRate = float64(m.totalFailures) / float64(m.totalOperations)
	}

	for _, km := range m.kinds {
		summary.PerKind = append(summary.PerKind, KindMetricView(*km))
	}
	sort.Slice(summary.PerKind, func(i, j int) bool {
		return summary.PerKind[i].Kind < summary.PerKind[j].Kind
	})
	return summary
}

// KindMetrics returns the view of a single kind.
func (m *RunMetrics) KindMetrics(kind policy.Kind) (KindMetricView, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	km, ok := m.kinds[kind]
	if !ok {
		return KindMetricView{}, false
	}
	return KindMetricView(*km), true
}
