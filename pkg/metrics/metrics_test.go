// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInMemoryCollector(t *testing.T) {
	collector := NewInMemoryCollector()

	require.NotNil(t, collector)
	assert.NotNil(t, collector.requestsByOp)
	assert.NotNil(t, collector.responsesByCode)
	assert.NotNil(t, collector.responseTimes)
	assert.NotNil(t, collector.responseTimeByOp)
	assert.NotNil(t, collector.errorsByType)
	assert.NotNil(t, collector.errorsByOp)
	assert.NotNil(t, collector.broadcastsByFacility)
	assert.False(t, collector.startTime.IsZero())
}

func TestInMemoryCollector_RecordRequest(t *testing.T) {
	collector := NewInMemoryCollector()

	collector.RecordRequest("BOOK", "127.0.0.1:5000")
	collector.RecordRequest("QUERY", "127.0.0.1:5001")
	collector.RecordRequest("BOOK", "127.0.0.1:5000")

	stats := collector.GetStats()
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, int64(3), stats.ActiveRequests)
	assert.Equal(t, int64(2), stats.RequestsByOp["BOOK"])
	assert.Equal(t, int64(1), stats.RequestsByOp["QUERY"])
}

func TestInMemoryCollector_RecordResponse(t *testing.T) {
	collector := NewInMemoryCollector()

	collector.RecordRequest("BOOK", "127.0.0.1:5000")
	collector.RecordRequest("QUERY", "127.0.0.1:5001")

	collector.RecordResponse("BOOK", "127.0.0.1:5000", "OK", 100*time.Millisecond)
	collector.RecordResponse("QUERY", "127.0.0.1:5001", "OK", 200*time.Millisecond)

	stats := collector.GetStats()
	assert.Equal(t, int64(2), stats.TotalResponses)
	assert.Equal(t, int64(0), stats.ActiveRequests)
	assert.Equal(t, int64(2), stats.ResponsesByCode["OK"])

	assert.Equal(t, int64(2), stats.ResponseTimeStats.Count)
	assert.Equal(t, 300*time.Millisecond, stats.ResponseTimeStats.Total)
	assert.Equal(t, 100*time.Millisecond, stats.ResponseTimeStats.Min)
	assert.Equal(t, 200*time.Millisecond, stats.ResponseTimeStats.Max)
	assert.Equal(t, 150*time.Millisecond, stats.ResponseTimeStats.Average)

	bookStats := stats.ResponseTimeByOp["BOOK"]
	assert.Equal(t, int64(1), bookStats.Count)
	assert.Equal(t, 100*time.Millisecond, bookStats.Total)

	queryStats := stats.ResponseTimeByOp["QUERY"]
	assert.Equal(t, int64(1), queryStats.Count)
	assert.Equal(t, 200*time.Millisecond, queryStats.Total)
}

func TestInMemoryCollector_RecordError(t *testing.T) {
	collector := NewInMemoryCollector()

	collector.RecordRequest("BOOK", "127.0.0.1:5000")
	collector.RecordRequest("CHANGE", "127.0.0.1:5001")

	err1 := errors.New("conflict")
	err2 := errors.New("unknown facility")

	collector.RecordError("BOOK", "127.0.0.1:5000", err1)
	collector.RecordError("CHANGE", "127.0.0.1:5001", err2)
	collector.RecordError("BOOK", "127.0.0.1:5000", err1)

	stats := collector.GetStats()
	assert.Equal(t, int64(3), stats.TotalErrors)
	assert.Equal(t, int64(-1), stats.ActiveRequests)
	assert.Equal(t, int64(2), stats.ErrorsByType["conflict"])
	assert.Equal(t, int64(1), stats.ErrorsByType["unknown facility"])
	assert.Equal(t, int64(2), stats.ErrorsByOp["BOOK"])
	assert.Equal(t, int64(1), stats.ErrorsByOp["CHANGE"])
}

func TestInMemoryCollector_RecordErrorWithNil(t *testing.T) {
	collector := NewInMemoryCollector()

	collector.RecordRequest("BOOK", "127.0.0.1:5000")
	collector.RecordError("BOOK", "127.0.0.1:5000", nil)

	stats := collector.GetStats()
	assert.Equal(t, int64(1), stats.TotalErrors)
	assert.Equal(t, int64(1), stats.ErrorsByType["unknown"])
}

func TestInMemoryCollector_RecordCache(t *testing.T) {
	collector := NewInMemoryCollector()

	collector.RecordCacheHit("127.0.0.1:5000#1")
	collector.RecordCacheHit("127.0.0.1:5000#2")
	collector.RecordCacheMiss("127.0.0.1:5000#3")
	collector.RecordCacheHit("127.0.0.1:5000#1")

	stats := collector.GetStats()
	assert.Equal(t, int64(3), stats.CacheHits)
	assert.Equal(t, int64(1), stats.CacheMisses)
	assert.Equal(t, 0.75, stats.CacheRatio)
}

func TestInMemoryCollector_RecordBroadcast(t *testing.T) {
	collector := NewInMemoryCollector()

	collector.RecordBroadcast("CourtA")
	collector.RecordBroadcast("CourtA")
	collector.RecordBroadcast("CourtB")

	stats := collector.GetStats()
	assert.Equal(t, int64(3), stats.TotalBroadcasts)
	assert.Equal(t, int64(2), stats.BroadcastsByFacility["CourtA"])
	assert.Equal(t, int64(1), stats.BroadcastsByFacility["CourtB"])
}

func TestInMemoryCollector_Reset(t *testing.T) {
	collector := NewInMemoryCollector()

	collector.RecordRequest("BOOK", "127.0.0.1:5000")
	collector.RecordResponse("BOOK", "127.0.0.1:5000", "OK", 100*time.Millisecond)
	collector.RecordError("CHANGE", "127.0.0.1:5001", errors.New("test error"))
	collector.RecordCacheHit("key")
	collector.RecordCacheMiss("key2")
	collector.RecordBroadcast("CourtA")

	stats := collector.GetStats()
	assert.Positive(t, stats.TotalRequests)
	assert.Positive(t, stats.TotalResponses)
	assert.Positive(t, stats.TotalErrors)
	assert.Positive(t, stats.CacheHits)
	assert.Positive(t, stats.CacheMisses)
	assert.Positive(t, stats.TotalBroadcasts)

	collector.Reset()

	stats = collector.GetStats()
	assert.Equal(t, int64(0), stats.TotalRequests)
	assert.Equal(t, int64(0), stats.ActiveRequests)
	assert.Equal(t, int64(0), stats.TotalResponses)
	assert.Equal(t, int64(0), stats.TotalErrors)
	assert.Equal(t, int64(0), stats.CacheHits)
	assert.Equal(t, int64(0), stats.CacheMisses)
	assert.Equal(t, int64(0), stats.TotalBroadcasts)
	assert.Equal(t, 0.0, stats.CacheRatio)
	assert.Empty(t, stats.RequestsByOp)
	assert.Empty(t, stats.ResponsesByCode)
	assert.Empty(t, stats.ErrorsByType)
	assert.Empty(t, stats.ErrorsByOp)
	assert.Empty(t, stats.ResponseTimeByOp)
	assert.Empty(t, stats.BroadcastsByFacility)
	assert.Equal(t, int64(0), stats.ResponseTimeStats.Count)
}

func TestStats_CacheRatioCalculation(t *testing.T) {
	collector := NewInMemoryCollector()

	t.Run("no cache operations", func(t *testing.T) {
		stats := collector.GetStats()
		assert.Equal(t, 0.0, stats.CacheRatio)
	})

	t.Run("only hits", func(t *testing.T) {
		collector.Reset()
		collector.RecordCacheHit("key1")
		collector.RecordCacheHit("key2")

		stats := collector.GetStats()
		assert.Equal(t, 1.0, stats.CacheRatio)
	})

	t.Run("only misses", func(t *testing.T) {
		collector.Reset()
		collector.RecordCacheMiss("key1")
		collector.RecordCacheMiss("key2")

		stats := collector.GetStats()
		assert.Equal(t, 0.0, stats.CacheRatio)
	})

	t.Run("mixed hits and misses", func(t *testing.T) {
		collector.Reset()
		collector.RecordCacheHit("key1")
		collector.RecordCacheMiss("key2")
		collector.RecordCacheMiss("key3")

		stats := collector.GetStats()
		assert.Equal(t, 1.0/3.0, stats.CacheRatio)
	})
}

func TestDurationAggregator(t *testing.T) {
	agg := newDurationAggregator()

	t.Run("initial state", func(t *testing.T) {
		stats := agg.stats()
		assert.Equal(t, int64(0), stats.Count)
		assert.Equal(t, time.Duration(0), stats.Total)
		assert.Equal(t, time.Duration(0), stats.Min)
		assert.Equal(t, time.Duration(0), stats.Max)
		assert.Equal(t, time.Duration(0), stats.Average)
	})

	t.Run("single value", func(t *testing.T) {
		agg.add(100 * time.Millisecond)

		stats := agg.stats()
		assert.Equal(t, int64(1), stats.Count)
		assert.Equal(t, 100*time.Millisecond, stats.Total)
		assert.Equal(t, 100*time.Millisecond, stats.Min)
		assert.Equal(t, 100*time.Millisecond, stats.Max)
		assert.Equal(t, 100*time.Millisecond, stats.Average)
	})

	t.Run("multiple values", func(t *testing.T) {
		agg.add(200 * time.Millisecond)
		agg.add(50 * time.Millisecond)

		stats := agg.stats()
		assert.Equal(t, int64(3), stats.Count)
		assert.Equal(t, 350*time.Millisecond, stats.Total)
		assert.Equal(t, 50*time.Millisecond, stats.Min)
		assert.Equal(t, 200*time.Millisecond, stats.Max)
		expected := time.Duration(350000000 / 3)
		assert.Equal(t, expected, stats.Average)
	})
}

func TestDurationAggregator_Concurrency(t *testing.T) {
	agg := newDurationAggregator()

	const numGoroutines = 10
	const numOperations = 100

	var wg sync.WaitGroup

	for i := range numGoroutines {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := range numOperations {
				agg.add(time.Duration(id*numOperations+j) * time.Millisecond)
			}
		}(i)
	}

	wg.Wait()

	stats := agg.stats()
	assert.Equal(t, int64(numGoroutines*numOperations), stats.Count)
	assert.Greater(t, stats.Total, time.Duration(0))
	assert.Greater(t, stats.Max, stats.Min)
	assert.Greater(t, stats.Average, time.Duration(0))
}

func TestInMemoryCollector_Concurrency(t *testing.T) {
	collector := NewInMemoryCollector()

	const numGoroutines = 10
	const numOperations = 100

	var wg sync.WaitGroup

	for i := range numGoroutines {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := range numOperations {
				collector.RecordRequest("QUERY", "127.0.0.1:5000")
				collector.RecordResponse("QUERY", "127.0.0.1:5000", "OK", time.Duration(j)*time.Millisecond)
				if j%10 == 0 {
					collector.RecordError("BOOK", "127.0.0.1:5000", errors.New("test error"))
				}
				collector.RecordCacheHit("key")
				collector.RecordCacheMiss("other-key")
			}
		}(i)
	}

	wg.Wait()

	stats := collector.GetStats()
	assert.Equal(t, int64(numGoroutines*numOperations), stats.TotalRequests)
	assert.Equal(t, int64(numGoroutines*numOperations), stats.TotalResponses)
	assert.Equal(t, int64(numGoroutines*10), stats.TotalErrors)
	assert.Equal(t, int64(numGoroutines*numOperations), stats.CacheHits)
	assert.Equal(t, int64(numGoroutines*numOperations), stats.CacheMisses)
}

func TestNoOpCollector(t *testing.T) {
	collector := NoOpCollector{}

	collector.RecordRequest("QUERY", "127.0.0.1:5000")
	collector.RecordResponse("QUERY", "127.0.0.1:5000", "OK", 100*time.Millisecond)
	collector.RecordError("QUERY", "127.0.0.1:5000", errors.New("test error"))
	collector.RecordCacheHit("key")
	collector.RecordCacheMiss("key")
	collector.RecordBroadcast("CourtA")

	stats := collector.GetStats()
	require.NotNil(t, stats)

	assert.Equal(t, int64(0), stats.TotalRequests)
	assert.Equal(t, int64(0), stats.TotalResponses)
	assert.Equal(t, int64(0), stats.TotalErrors)
	assert.Equal(t, int64(0), stats.CacheHits)
	assert.Equal(t, int64(0), stats.CacheMisses)

	collector.Reset()
}

func TestDefaultCollector(t *testing.T) {
	defaultCol := GetDefaultCollector()
	assert.IsType(t, &NoOpCollector{}, defaultCol)

	newCollector := NewInMemoryCollector()
	SetDefaultCollector(newCollector)

	assert.Equal(t, newCollector, GetDefaultCollector())

	SetDefaultCollector(nil)
	assert.IsType(t, &NoOpCollector{}, GetDefaultCollector())

	SetDefaultCollector(&NoOpCollector{})
}

func TestCollectorInterface(t *testing.T) {
	var _ Collector = (*InMemoryCollector)(nil)
	var _ Collector = NoOpCollector{}
}

func TestStatsStructure(t *testing.T) {
	collector := NewInMemoryCollector()

	collector.RecordRequest("BOOK", "127.0.0.1:5000")
	collector.RecordRequest("QUERY", "127.0.0.1:5001")
	collector.RecordResponse("BOOK", "127.0.0.1:5000", "OK", 50*time.Millisecond)
	collector.RecordResponse("QUERY", "127.0.0.1:5001", "OK", 150*time.Millisecond)
	collector.RecordError("CHANGE", "127.0.0.1:5002", errors.New("not found"))
	collector.RecordCacheHit("booking:123")
	collector.RecordCacheMiss("booking:456")
	collector.RecordBroadcast("CourtA")

	stats := collector.GetStats()

	assert.NotZero(t, stats.TotalRequests)
	assert.NotZero(t, stats.TotalResponses)
	assert.NotZero(t, stats.TotalErrors)
	assert.NotZero(t, stats.CacheHits)
	assert.NotZero(t, stats.CacheMisses)
	assert.NotZero(t, stats.CacheRatio)
	assert.NotZero(t, stats.TotalBroadcasts)
	assert.NotEmpty(t, stats.RequestsByOp)
	assert.NotEmpty(t, stats.ResponsesByCode)
	assert.NotEmpty(t, stats.ErrorsByType)
	assert.NotEmpty(t, stats.ErrorsByOp)
	assert.NotEmpty(t, stats.ResponseTimeByOp)
	assert.NotEmpty(t, stats.BroadcastsByFacility)
	assert.NotZero(t, stats.ResponseTimeStats.Count)
	assert.False(t, stats.StartTime.IsZero())
	assert.GreaterOrEqual(t, stats.Duration, time.Duration(0))
}

func TestIncrementMapCounter(t *testing.T) {
	var mu sync.RWMutex
	m := make(map[string]*int64)

	incrementMapCounter(&mu, m, "test-key")

	mu.RLock()
	counter, exists := m["test-key"]
	mu.RUnlock()

	assert.True(t, exists)
	assert.Equal(t, int64(1), *counter)

	incrementMapCounter(&mu, m, "test-key")

	mu.RLock()
	counter = m["test-key"]
	mu.RUnlock()

	assert.Equal(t, int64(2), *counter)
}
