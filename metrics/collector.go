// Package metrics aggregates scheduler throughput, latency percentiles,
// queue depth, and worker utilization.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// Snapshot is a point-in-time view of the collector.
type Snapshot struct {
	Submitted uint64 `json:"submitted"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
	Cancelled uint64 `json:"cancelled"`
	Retried   uint64 `json:"retried"`

	Active     int `json:"active"`
	QueueDepth int `json:"queue_depth"`

	BusyWorkers  int     `json:"busy_workers"`
	TotalWorkers int     `json:"total_workers"`
	Utilization  float64 `json:"utilization"`

	// Rolling processing-time percentiles over the last WindowSize
	// completions. Zero when no completions have been observed.
	P50 time.Duration `json:"p50"`
	P95 time.Duration `json:"p95"`
	P99 time.Duration `json:"p99"`
}

// Collector tracks scheduler counters and a sliding window of processing
// times. Writes come from the engine's coordinator goroutine; reads may
// come from any goroutine.
type Collector struct {
	mu sync.Mutex

	submitted uint64
	completed uint64
	failed    uint64
	cancelled uint64
	retried   uint64

	active     int
	queueDepth int

	busyWorkers  int
	totalWorkers int

	// window is a ring buffer of the most recent processing times.
	// When full, the oldest sample is dropped.
	window []time.Duration
	next   int
	filled bool
}

// NewCollector creates a collector with a sliding window of windowSize
// completion samples.
func NewCollector(windowSize int) *Collector {
	if windowSize <= 0 {
		windowSize = 100
	}
	return &Collector{
		window: make([]time.Duration, windowSize),
	}
}

// JobSubmitted records an accepted submission.
func (c *Collector) JobSubmitted() {
	c.mu.Lock()
	c.submitted++
	c.mu.Unlock()
}

// JobCompleted records a successful completion and its processing time.
func (c *Collector) JobCompleted(elapsed time.Duration) {
	c.mu.Lock()
	c.completed++
	c.window[c.next] = elapsed
	c.next++
	if c.next == len(c.window) {
		c.next = 0
		c.filled = true
	}
	c.mu.Unlock()
}

// JobFailed records a terminal failure.
func (c *Collector) JobFailed() {
	c.mu.Lock()
	c.failed++
	c.mu.Unlock()
}

// JobCancelled records a cancellation.
func (c *Collector) JobCancelled() {
	c.mu.Lock()
	c.cancelled++
	c.mu.Unlock()
}

// JobRetried records a retry re-enqueue.
func (c *Collector) JobRetried() {
	c.mu.Lock()
	c.retried++
	c.mu.Unlock()
}

// SetActive records the number of tasks currently running.
func (c *Collector) SetActive(n int) {
	c.mu.Lock()
	c.active = n
	c.mu.Unlock()
}

// SetQueueDepth records the current number of queued jobs.
func (c *Collector) SetQueueDepth(n int) {
	c.mu.Lock()
	c.queueDepth = n
	c.mu.Unlock()
}

// SetWorkers records pool occupancy: busy executors out of total.
func (c *Collector) SetWorkers(busy, total int) {
	c.mu.Lock()
	c.busyWorkers = busy
	c.totalWorkers = total
	c.mu.Unlock()
}

// Snapshot returns a consistent copy of all counters and the window
// percentiles.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Submitted:    c.submitted,
		Completed:    c.completed,
		Failed:       c.failed,
		Cancelled:    c.cancelled,
		Retried:      c.retried,
		Active:       c.active,
		QueueDepth:   c.queueDepth,
		BusyWorkers:  c.busyWorkers,
		TotalWorkers: c.totalWorkers,
	}
	if c.totalWorkers > 0 {
		s.Utilization = float64(c.busyWorkers) / float64(c.totalWorkers)
	}

	n := c.next
	if c.filled {
		n = len(c.window)
	}
	if n == 0 {
		return s
	}

	samples := make([]time.Duration, n)
	copy(samples, c.window[:n])
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	s.P50 = percentile(samples, 50)
	s.P95 = percentile(samples, 95)
	s.P99 = percentile(samples, 99)
	return s
}

// percentile returns the nearest-rank percentile of sorted samples.
func percentile(sorted []time.Duration, p int) time.Duration {
	rank := (p*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
