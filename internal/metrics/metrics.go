// Package metrics keeps in-process counters for the monitoring endpoints.
package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	CandidatesCollected int64
	DuplicatesFiltered  int64
	SourcesFailed       int64
	SummariesGenerated  int64
	SummaryFallbacks    int64
	DigestsPublished    int64

	// Timings
	LastRunDuration    time.Duration
	TotalRunDuration   time.Duration
	AverageRunDuration time.Duration
	RunCount           int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) AddCandidatesCollected(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CandidatesCollected += int64(n)
}

func (m *Metrics) AddDuplicatesFiltered(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered += int64(n)
}

func (m *Metrics) AddSourcesFailed(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourcesFailed += int64(n)
}

func (m *Metrics) IncrementSummaries(fallback bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummariesGenerated++
	if fallback {
		m.SummaryFallbacks++
	}
}

func (m *Metrics) IncrementDigestsPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DigestsPublished++
}

func (m *Metrics) RecordRunDuration(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastRunDuration = duration
	m.TotalRunDuration += duration
	m.RunCount++
	m.AverageRunDuration = m.TotalRunDuration / time.Duration(m.RunCount)
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"candidates_collected":    m.CandidatesCollected,
		"duplicates_filtered":     m.DuplicatesFiltered,
		"sources_failed":          m.SourcesFailed,
		"summaries_generated":     m.SummariesGenerated,
		"summary_fallbacks":       m.SummaryFallbacks,
		"digests_published":       m.DigestsPublished,
		"last_run_duration_ms":    m.LastRunDuration.Milliseconds(),
		"average_run_duration_ms": m.AverageRunDuration.Milliseconds(),
		"last_run_time":           m.LastRunTime.Format(time.RFC3339),
		"last_error_time":         m.LastErrorTime.Format(time.RFC3339),
		"last_error":              m.LastError,
		"is_healthy":              m.IsHealthy,
	}
}
