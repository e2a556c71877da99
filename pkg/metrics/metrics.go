// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package metrics provides metrics collection for the reservation server
// and client.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the interface for metrics collection.
type Collector interface {
	// RecordRequest records an inbound datagram for an operation from addr.
	RecordRequest(operation, addr string)

	// RecordResponse records a reply sent for an operation, tagged with its
	// result code ("OK" or an error code) and the time taken to produce it.
	RecordResponse(operation, addr, code string, duration time.Duration)

	// RecordError records a failed operation.
	RecordError(operation, addr string, err error)

	// RecordCacheHit records a duplicate-request cache hit.
	RecordCacheHit(key string)

	// RecordCacheMiss records a duplicate-request cache miss.
	RecordCacheMiss(key string)

	// RecordBroadcast records a monitor notification sent for a facility.
	RecordBroadcast(facility string)

	// GetStats returns current metrics statistics.
	GetStats() *Stats

	// Reset resets all metrics.
	Reset()
}

// Stats contains aggregated metrics statistics.
type Stats struct {
	// Request metrics
	TotalRequests    int64
	ActiveRequests   int64
	RequestsByOp     map[string]int64

	// Response metrics
	TotalResponses    int64
	ResponsesByCode   map[string]int64
	ResponseTimeStats DurationStats
	ResponseTimeByOp  map[string]DurationStats

	// Error metrics
	TotalErrors  int64
	ErrorsByType map[string]int64
	ErrorsByOp   map[string]int64

	// Cache metrics
	CacheHits   int64
	CacheMisses int64
	CacheRatio  float64

	// Broadcast metrics
	TotalBroadcasts      int64
	BroadcastsByFacility map[string]int64

	// Timing
	StartTime time.Time
	Duration  time.Duration
}

// DurationStats contains statistics for duration measurements.
type DurationStats struct {
	Count   int64
	Total   time.Duration
	Min     time.Duration
	Max     time.Duration
	Average time.Duration
}

// InMemoryCollector is an in-memory implementation of Collector.
type InMemoryCollector struct {
	mu sync.RWMutex

	// Request counters
	totalRequests  int64
	activeRequests int64
	requestsByOp   map[string]*int64

	// Response counters
	totalResponses   int64
	responsesByCode  map[string]*int64
	responseTimes    *durationAggregator
	responseTimeByOp map[string]*durationAggregator

	// Error counters
	totalErrors  int64
	errorsByType map[string]*int64
	errorsByOp   map[string]*int64

	// Cache counters
	cacheHits   int64
	cacheMisses int64

	// Broadcast counters
	totalBroadcasts      int64
	broadcastsByFacility map[string]*int64

	// Timing
	startTime time.Time
}

// NewInMemoryCollector creates a new in-memory metrics collector.
func NewInMemoryCollector() *InMemoryCollector {
	return &InMemoryCollector{
		requestsByOp:         make(map[string]*int64),
		responsesByCode:      make(map[string]*int64),
		responseTimes:        newDurationAggregator(),
		responseTimeByOp:     make(map[string]*durationAggregator),
		errorsByType:         make(map[string]*int64),
		errorsByOp:           make(map[string]*int64),
		broadcastsByFacility: make(map[string]*int64),
		startTime:            time.Now(),
	}
}

// RecordRequest records an inbound datagram.
func (c *InMemoryCollector) RecordRequest(operation, addr string) {
	atomic.AddInt64(&c.totalRequests, 1)
	atomic.AddInt64(&c.activeRequests, 1)

	incrementMapCounter(&c.mu, c.requestsByOp, operation)
}

// RecordResponse records a reply sent for an operation.
func (c *InMemoryCollector) RecordResponse(operation, addr, code string, duration time.Duration) {
	atomic.AddInt64(&c.totalResponses, 1)
	atomic.AddInt64(&c.activeRequests, -1)

	incrementMapCounter(&c.mu, c.responsesByCode, code)

	c.responseTimes.add(duration)

	c.mu.Lock()
	agg, exists := c.responseTimeByOp[operation]
	if !exists {
		agg = newDurationAggregator()
		c.responseTimeByOp[operation] = agg
	}
	c.mu.Unlock()
	agg.add(duration)
}

// RecordError records a failed operation.
func (c *InMemoryCollector) RecordError(operation, addr string, err error) {
	errorType := "unknown"
	if err != nil {
		errorType = err.Error()
	}
	atomic.AddInt64(&c.totalErrors, 1)
	atomic.AddInt64(&c.activeRequests, -1)

	incrementMapCounter(&c.mu, c.errorsByType, errorType)
	incrementMapCounter(&c.mu, c.errorsByOp, operation)
}

// RecordCacheHit records a duplicate-request cache hit.
func (c *InMemoryCollector) RecordCacheHit(key string) {
	atomic.AddInt64(&c.cacheHits, 1)
}

// RecordCacheMiss records a duplicate-request cache miss.
func (c *InMemoryCollector) RecordCacheMiss(key string) {
	atomic.AddInt64(&c.cacheMisses, 1)
}

// RecordBroadcast records a monitor notification sent for a facility.
func (c *InMemoryCollector) RecordBroadcast(facility string) {
	atomic.AddInt64(&c.totalBroadcasts, 1)
	incrementMapCounter(&c.mu, c.broadcastsByFacility, facility)
}

// GetStats returns current metrics statistics.
func (c *InMemoryCollector) GetStats() *Stats {
	stats := &Stats{
		TotalRequests:        atomic.LoadInt64(&c.totalRequests),
		ActiveRequests:       atomic.LoadInt64(&c.activeRequests),
		TotalResponses:       atomic.LoadInt64(&c.totalResponses),
		TotalErrors:          atomic.LoadInt64(&c.totalErrors),
		CacheHits:            atomic.LoadInt64(&c.cacheHits),
		CacheMisses:          atomic.LoadInt64(&c.cacheMisses),
		TotalBroadcasts:      atomic.LoadInt64(&c.totalBroadcasts),
		RequestsByOp:         c.copyMapCounters(c.requestsByOp),
		ResponsesByCode:      c.copyMapCounters(c.responsesByCode),
		ErrorsByType:         c.copyMapCounters(c.errorsByType),
		ErrorsByOp:           c.copyMapCounters(c.errorsByOp),
		BroadcastsByFacility: c.copyMapCounters(c.broadcastsByFacility),
		ResponseTimeStats:    c.responseTimes.stats(),
		ResponseTimeByOp:     c.copyDurationStats(c.responseTimeByOp),
		StartTime:            c.startTime,
		Duration:             time.Since(c.startTime),
	}

	totalCache := stats.CacheHits + stats.CacheMisses
	if totalCache > 0 {
		stats.CacheRatio = float64(stats.CacheHits) / float64(totalCache)
	}

	return stats
}

// Reset resets all metrics.
func (c *InMemoryCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	atomic.StoreInt64(&c.totalRequests, 0)
	atomic.StoreInt64(&c.activeRequests, 0)
	atomic.StoreInt64(&c.totalResponses, 0)
	atomic.StoreInt64(&c.totalErrors, 0)
	atomic.StoreInt64(&c.cacheHits, 0)
	atomic.StoreInt64(&c.cacheMisses, 0)
	atomic.StoreInt64(&c.totalBroadcasts, 0)

	c.requestsByOp = make(map[string]*int64)
	c.responsesByCode = make(map[string]*int64)
	c.responseTimes = newDurationAggregator()
	c.responseTimeByOp = make(map[string]*durationAggregator)
	c.errorsByType = make(map[string]*int64)
	c.errorsByOp = make(map[string]*int64)
	c.broadcastsByFacility = make(map[string]*int64)

	c.startTime = time.Now()
}

// incrementMapCounter safely increments a counter in a map.
func incrementMapCounter(mu *sync.RWMutex, m map[string]*int64, key string) {
	mu.Lock()
	counter, exists := m[key]
	if !exists {
		var v int64
		counter = &v
		m[key] = counter
	}
	mu.Unlock()

	atomic.AddInt64(counter, 1)
}

// copyMapCounters creates a copy of string map counters.
func (c *InMemoryCollector) copyMapCounters(m map[string]*int64) map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]int64, len(m))
	for k, v := range m {
		result[k] = atomic.LoadInt64(v)
	}
	return result
}

// copyDurationStats creates a copy of duration statistics.
func (c *InMemoryCollector) copyDurationStats(m map[string]*durationAggregator) map[string]DurationStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]DurationStats, len(m))
	for k, v := range m {
		result[k] = v.stats()
	}
	return result
}

// durationAggregator aggregates duration statistics.
type durationAggregator struct {
	mu    sync.Mutex
	count int64
	total time.Duration
	min   time.Duration
	max   time.Duration
}

func newDurationAggregator() *durationAggregator {
	return &durationAggregator{
		min: time.Duration(1<<63 - 1), // MaxInt64
	}
}

func (d *durationAggregator) add(duration time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.count++
	d.total += duration

	if duration < d.min {
		d.min = duration
	}
	if duration > d.max {
		d.max = duration
	}
}

func (d *durationAggregator) stats() DurationStats {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := DurationStats{
		Count: d.count,
		Total: d.total,
		Min:   d.min,
		Max:   d.max,
	}

	if d.count > 0 {
		stats.Average = time.Duration(int64(d.total) / d.count)
	}

	if d.count == 0 {
		stats.Min = 0
	}

	return stats
}

// NoOpCollector is a no-op implementation of Collector.
type NoOpCollector struct{}

func (NoOpCollector) RecordRequest(operation, addr string)                           {}
func (NoOpCollector) RecordResponse(operation, addr, code string, d time.Duration)   {}
func (NoOpCollector) RecordError(operation, addr string, err error)                  {}
func (NoOpCollector) RecordCacheHit(key string)                                      {}
func (NoOpCollector) RecordCacheMiss(key string)                                     {}
func (NoOpCollector) RecordBroadcast(facility string)                                {}
func (NoOpCollector) GetStats() *Stats                                               { return &Stats{} }
func (NoOpCollector) Reset()                                                         {}

// Global default collector
var defaultCollector Collector = &NoOpCollector{}

// SetDefaultCollector sets the default metrics collector.
func SetDefaultCollector(collector Collector) {
	if collector == nil {
		collector = &NoOpCollector{}
	}
	defaultCollector = collector
}

// GetDefaultCollector returns the default metrics collector.
func GetDefaultCollector() Collector {
	return defaultCollector
}
