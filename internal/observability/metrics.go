package observability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics collects counters for the read/write pipeline: cache traffic,
// store queries, degraded searches, invalidations. Counter updates are
// lock-free; the duration window takes a mutex.
type Metrics struct {
	cacheHits        atomic.Int64
	cacheMisses      atomic.Int64
	storeQueries     atomic.Int64
	degradedSearches atomic.Int64
	invalidations    atomic.Int64

	mu           sync.Mutex
	durations    []time.Duration
	maxDurations int
}

// NewMetrics creates a metrics collector keeping the last maxDurations
// resolve latencies.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		durations:    make([]time.Duration, 0, maxDurations),
		maxDurations: maxDurations,
	}
}

var globalMetrics = NewMetrics(1000)

// GlobalMetrics returns the process-wide metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// RecordCacheHit records a resolve served without a store query.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordCacheMiss records a resolve that had to execute.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
}

// RecordStoreQuery records one document store round trip.
func (m *Metrics) RecordStoreQuery() {
	m.storeQueries.Add(1)
}

// RecordDegradedSearch records a full-text request served by substring
// matching.
func (m *Metrics) RecordDegradedSearch() {
	m.degradedSearches.Add(1)
}

// RecordInvalidation records a cache epoch bump.
func (m *Metrics) RecordInvalidation() {
	m.invalidations.Add(1)
}

// RecordResolveDuration records the latency of one resolve, keeping a
// sliding window of recent samples.
func (m *Metrics) RecordResolveDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.durations) >= m.maxDurations {
		copy(m.durations, m.durations[1:])
		m.durations = m.durations[:len(m.durations)-1]
	}
	m.durations = append(m.durations, d)
}

// Snapshot is a point-in-time view of the collected metrics.
type Snapshot struct {
	CacheHits        int64   `json:"cache_hits"`
	CacheMisses      int64   `json:"cache_misses"`
	HitRate          float64 `json:"hit_rate"`
	StoreQueries     int64   `json:"store_queries"`
	DegradedSearches int64   `json:"degraded_searches"`
	Invalidations    int64   `json:"invalidations"`
	AvgResolveMs     int64   `json:"avg_resolve_ms"`
	P95ResolveMs     int64   `json:"p95_resolve_ms"`
	SampleCount      int     `json:"sample_count"`
}

// GetSnapshot returns the current metric values.
func (m *Metrics) GetSnapshot() Snapshot {
	hits := m.cacheHits.Load()
	misses := m.cacheMisses.Load()
	s := Snapshot{
		CacheHits:        hits,
		CacheMisses:      misses,
		StoreQueries:     m.storeQueries.Load(),
		DegradedSearches: m.degradedSearches.Load(),
		Invalidations:    m.invalidations.Load(),
	}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s.SampleCount = len(m.durations)
	if s.SampleCount == 0 {
		return s
	}

	sorted := make([]time.Duration, s.SampleCount)
	copy(sorted, m.durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	s.AvgResolveMs = (total / time.Duration(s.SampleCount)).Milliseconds()

	p95Index := int(float64(s.SampleCount) * 0.95)
	if p95Index >= s.SampleCount {
		p95Index = s.SampleCount - 1
	}
	s.P95ResolveMs = sorted[p95Index].Milliseconds()
	return s
}

// Reset zeroes all counters and samples.
func (m *Metrics) Reset() {
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.storeQueries.Store(0)
	m.degradedSearches.Store(0)
	m.invalidations.Store(0)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations = m.durations[:0]
}

