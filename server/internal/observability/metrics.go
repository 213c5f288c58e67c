package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects and aggregates metrics for scheduling runs.
type Metrics struct {
	mu sync.Mutex

	// Counters
	unitsProcessed atomic.Int64
	unitsFailed    atomic.Int64
	unitsSkipped   atomic.Int64
	schedulesSaved atomic.Int64
	masteryUpserts atomic.Int64

	// Duration samples for per-user processing (FIFO, bounded)
	durations    []time.Duration
	maxDurations int
}

// NewMetrics creates a new metrics collector.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

// Global metrics instance.
var globalMetrics = NewMetrics(1000)

// GlobalMetrics returns the global metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// RecordProcessed records a successfully processed unit.
func (m *Metrics) RecordProcessed() {
	m.unitsProcessed.Add(1)
}

// RecordFailure records a failed unit.
func (m *Metrics) RecordFailure() {
	m.unitsFailed.Add(1)
}

// RecordSkipped records a skipped unit (no data in window).
func (m *Metrics) RecordSkipped() {
	m.unitsSkipped.Add(1)
}

// RecordScheduleSaved records a persisted review schedule.
func (m *Metrics) RecordScheduleSaved() {
	m.schedulesSaved.Add(1)
}

// RecordMasteryUpsert records a persisted mastery row.
func (m *Metrics) RecordMasteryUpsert() {
	m.masteryUpserts.Add(1)
}

// RecordDuration records a per-user processing duration.
func (m *Metrics) RecordDuration(duration time.Duration) {
	m.mu.Lock()
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, duration)
	m.mu.Unlock()
}

// UnitsProcessed returns the total number of processed units.
func (m *Metrics) UnitsProcessed() int64 {
	return m.unitsProcessed.Load()
}

// UnitsFailed returns the total number of failed units.
func (m *Metrics) UnitsFailed() int64 {
	return m.unitsFailed.Load()
}

// UnitsSkipped returns the total number of skipped units.
func (m *Metrics) UnitsSkipped() int64 {
	return m.unitsSkipped.Load()
}

// SchedulesSaved returns the total number of persisted schedules.
func (m *Metrics) SchedulesSaved() int64 {
	return m.schedulesSaved.Load()
}

// MasteryUpserts returns the total number of persisted mastery rows.
func (m *Metrics) MasteryUpserts() int64 {
	return m.masteryUpserts.Load()
}

// AverageDuration returns the mean of the retained duration samples.
func (m *Metrics) AverageDuration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range m.durations {
		total += d
	}
	return total / time.Duration(len(m.durations))
}
