// Package metrics holds the counters, gauges and run-time histograms a
// Machine records, a get-or-create Registry keyed by dotted names such as
// "cpu.loads", and a bridge that renders a Registry in the Prometheus text
// format.
//
// Counters and gauges are lock-free. A Histogram keeps only count, sum,
// min and max, which is all the simulator observes.
package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Counter counts events. It only goes up.
type Counter struct {
	name string
	n    atomic.Int64
}

// NewCounter creates a zero Counter.
func NewCounter(name string) *Counter { return &Counter{name: name} }

// Inc adds one.
func (c *Counter) Inc() { c.n.Add(1) }

func (c *Counter) Value() int64 { return c.n.Load() }
func (c *Counter) Name() string { return c.name }

// Gauge holds the last value set, such as the exit code of a halted
// machine.
type Gauge struct {
	name string
	v    atomic.Int64
}

// NewGauge creates a zero Gauge.
func NewGauge(name string) *Gauge { return &Gauge{name: name} }

// Set replaces the gauge value.
func (g *Gauge) Set(v int64) { g.v.Store(v) }

func (g *Gauge) Value() int64 { return g.v.Load() }
func (g *Gauge) Name() string { return g.name }

// Histogram summarises observed values by count, sum and extremes. The
// Prometheus bridge exports it as a summary without quantiles.
type Histogram struct {
	name string

	mu       sync.Mutex
	count    int64
	sum      float64
	min, max float64
}

// NewHistogram creates an empty Histogram.
func NewHistogram(name string) *Histogram {
	return &Histogram{name: name, min: math.Inf(1), max: math.Inf(-1)}
}

// Observe records v.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	h.min = math.Min(h.min, v)
	h.max = math.Max(h.max, v)
}

func (h *Histogram) Name() string { return h.name }

func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

func (h *Histogram) Sum() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sum
}

// Min returns the smallest observation, or 0 before the first one.
func (h *Histogram) Min() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 {
		return 0
	}
	return h.min
}

// Max returns the largest observation, or 0 before the first one.
func (h *Histogram) Max() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 {
		return 0
	}
	return h.max
}

// Mean returns sum/count, or 0 before the first observation.
func (h *Histogram) Mean() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 {
		return 0
	}
	return h.sum / float64(h.count)
}

// Timer measures one run. Stop observes the elapsed microseconds into its
// histogram, if it has one.
type Timer struct {
	start time.Time
	hist  *Histogram
}

// NewTimer starts a Timer. h may be nil.
func NewTimer(h *Histogram) *Timer {
	return &Timer{start: time.Now(), hist: h}
}

// Stop records and returns the elapsed time.
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	if t.hist != nil {
		t.hist.Observe(float64(d.Microseconds()))
	}
	return d
}
