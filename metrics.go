package hnsw

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordAdd is called once per inserted item.
	RecordAdd(duration time.Duration, err error)

	// RecordBatchAdd is called after each Add call with the number of items
	// inserted and the total time taken.
	RecordBatchAdd(count int, duration time.Duration)

	// RecordSearch is called after each search. k is the number of neighbors
	// requested, retries the number of times the search restarted after
	// observing a concurrent mutation.
	RecordSearch(k int, retries int, duration time.Duration, err error)

	// RecordSnapshot is called after each snapshot serialization.
	RecordSnapshot(duration time.Duration, err error)

	// RecordRestore is called after each restore attempt.
	RecordRestore(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(time.Duration, error)              {}
func (NoopMetricsCollector) RecordBatchAdd(int, time.Duration)           {}
func (NoopMetricsCollector) RecordSearch(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSnapshot(time.Duration, error)         {}
func (NoopMetricsCollector) RecordRestore(time.Duration, error)          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddCount         atomic.Int64
	AddErrors        atomic.Int64
	AddTotalNanos    atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchRetries    atomic.Int64
	SearchTotalNanos atomic.Int64
	SnapshotCount    atomic.Int64
	RestoreCount     atomic.Int64
	RestoreErrors    atomic.Int64
}

func (c *BasicMetricsCollector) RecordAdd(d time.Duration, err error) {
	c.AddCount.Add(1)
	c.AddTotalNanos.Add(d.Nanoseconds())
	if err != nil {
		c.AddErrors.Add(1)
	}
}

func (c *BasicMetricsCollector) RecordBatchAdd(int, time.Duration) {}

func (c *BasicMetricsCollector) RecordSearch(_ int, retries int, d time.Duration, err error) {
	c.SearchCount.Add(1)
	c.SearchRetries.Add(int64(retries))
	c.SearchTotalNanos.Add(d.Nanoseconds())
	if err != nil {
		c.SearchErrors.Add(1)
	}
}

func (c *BasicMetricsCollector) RecordSnapshot(time.Duration, error) {
	c.SnapshotCount.Add(1)
}

func (c *BasicMetricsCollector) RecordRestore(_ time.Duration, err error) {
	c.RestoreCount.Add(1)
	if err != nil {
		c.RestoreErrors.Add(1)
	}
}

// MetricsStats is a point-in-time view of a BasicMetricsCollector.
type MetricsStats struct {
	AddCount       int64
	AddErrors      int64
	AddAvgNanos    int64
	SearchCount    int64
	SearchErrors   int64
	SearchRetries  int64
	SearchAvgNanos int64
	SnapshotCount  int64
	RestoreCount   int64
	RestoreErrors  int64
}

// GetStats returns a consistent-enough snapshot of the collected counters.
func (c *BasicMetricsCollector) GetStats() MetricsStats {
	s := MetricsStats{
		AddCount:      c.AddCount.Load(),
		AddErrors:     c.AddErrors.Load(),
		SearchCount:   c.SearchCount.Load(),
		SearchErrors:  c.SearchErrors.Load(),
		SearchRetries: c.SearchRetries.Load(),
		SnapshotCount: c.SnapshotCount.Load(),
		RestoreCount:  c.RestoreCount.Load(),
		RestoreErrors: c.RestoreErrors.Load(),
	}
	if s.AddCount > 0 {
		s.AddAvgNanos = c.AddTotalNanos.Load() / s.AddCount
	}
	if s.SearchCount > 0 {
		s.SearchAvgNanos = c.SearchTotalNanos.Load() / s.SearchCount
	}
	return s
}
