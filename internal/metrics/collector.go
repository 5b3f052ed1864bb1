// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// SourceMetrics holds aggregated per-source pull attempt metrics.
type SourceMetrics struct {
	Attempts    int64
	Hits        int64
	Empty       int64
	Unavailable int64
	TotalTime   time.Duration
	MinTime     time.Duration
	MaxTime     time.Duration
}

// SourceSnapshot provides computed stats from raw source metrics.
type SourceSnapshot struct {
	Attempts    int64   `json:"attempts"`
	Hits        int64   `json:"hits"`
	Empty       int64   `json:"empty"`
	Unavailable int64   `json:"unavailable"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	MinTimeMs   int64   `json:"min_time_ms"`
	MaxTimeMs   int64   `json:"max_time_ms"`
}

// Snapshot represents the full collector state at a point in time.
type Snapshot struct {
	UptimeSeconds float64                   `json:"uptime_seconds"`
	Pulls         int64                     `json:"pulls"`
	Fallbacks     int64                     `json:"fallbacks"`
	Sources       map[string]SourceSnapshot `json:"sources"`
}

// Attempt outcomes recorded by the orchestrator.
const (
	OutcomeHit         = "hit"
	OutcomeEmpty       = "empty"
	OutcomeUnavailable = "unavailable"
)

// Collector aggregates in-memory pull statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	pulls     int64
	fallbacks int64
	sources   map[string]*SourceMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		sources:   make(map[string]*SourceMetrics),
	}
}

// getOrCreate returns existing metrics for a source or creates them.
// Caller must hold write lock.
func (c *Collector) getOrCreate(source string) *SourceMetrics {
	m, ok := c.sources[source]
	if !ok {
		m = &SourceMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.sources[source] = m
	}
	return m
}

// RecordAttempt records one handler attempt and its outcome.
func (c *Collector) RecordAttempt(source, outcome string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(source)
	m.Attempts++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}

	switch outcome {
	case OutcomeHit:
		m.Hits++
	case OutcomeEmpty:
		m.Empty++
	case OutcomeUnavailable:
		m.Unavailable++
	}
}

// RecordPull records one completed pull and whether it fell back past its
// first candidate.
func (c *Collector) RecordPull(fellBack bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pulls++
	if fellBack {
		c.fallbacks++
	}
}

// Snapshot returns a point-in-time copy of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Pulls:         c.pulls,
		Fallbacks:     c.fallbacks,
		Sources:       make(map[string]SourceSnapshot, len(c.sources)),
	}
	for name, m := range c.sources {
		if m.Attempts == 0 {
			continue
		}
		minMs := m.MinTime.Milliseconds()
		if m.MinTime == time.Duration(math.MaxInt64) {
			minMs = 0
		}
		snap.Sources[name] = SourceSnapshot{
			Attempts:    m.Attempts,
			Hits:        m.Hits,
			Empty:       m.Empty,
			Unavailable: m.Unavailable,
			TotalTimeMs: m.TotalTime.Milliseconds(),
			AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Attempts),
			MinTimeMs:   minMs,
			MaxTimeMs:   m.MaxTime.Milliseconds(),
		}
	}
	return snap
}
