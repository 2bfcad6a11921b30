package metrics

import (
	"sort"
	"sync"
)

// Registry maps names to metrics. Lookups create the metric on first use.
type Registry struct {
	mu         sync.RWMutex
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		counters:   make(map[string]*Counter),
		gauges:     make(map[string]*Gauge),
		histograms: make(map[string]*Histogram),
	}
}

// Counter returns the Counter registered under name, creating it if it does
// not exist yet.
func (r *Registry) Counter(name string) *Counter {
	r.mu.RLock()
	c, ok := r.counters[name]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok = r.counters[name]; ok {
		return c
	}
	c = NewCounter(name)
	r.counters[name] = c
	return c
}

// Gauge returns the Gauge registered under name, creating it if it does not
// exist yet.
func (r *Registry) Gauge(name string) *Gauge {
	r.mu.RLock()
	g, ok := r.gauges[name]
	r.mu.RUnlock()
	if ok {
		return g
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok = r.gauges[name]; ok {
		return g
	}
	g = NewGauge(name)
	r.gauges[name] = g
	return g
}

// Histogram returns the Histogram registered under name, creating it if it
// does not exist yet.
func (r *Registry) Histogram(name string) *Histogram {
	r.mu.RLock()
	h, ok := r.histograms[name]
	r.mu.RUnlock()
	if ok {
		return h
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok = r.histograms[name]; ok {
		return h
	}
	h = NewHistogram(name)
	r.histograms[name] = h
	return h
}

// Snapshot flattens the registry into name/value pairs. Counters and
// gauges appear under their own names; a histogram h contributes h.count,
// h.sum, h.min, h.max and h.mean.
func (r *Registry) Snapshot() map[string]float64 {
	snap := make(map[string]float64)
	r.Each(func(name string, c *Counter, g *Gauge, h *Histogram) {
		switch {
		case c != nil:
			snap[name] = float64(c.Value())
		case g != nil:
			snap[name] = float64(g.Value())
		case h != nil:
			snap[name+".count"] = float64(h.Count())
			snap[name+".sum"] = h.Sum()
			snap[name+".min"] = h.Min()
			snap[name+".max"] = h.Max()
			snap[name+".mean"] = h.Mean()
		}
	})
	return snap
}

// sortedNames returns the keys of m in ascending order.
func sortedNames[M ~map[string]V, V any](m M) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Each visits every registered metric in name order, counters first, then
// gauges, then histograms. Exactly one of c, g and h is non-nil per call.
func (r *Registry) Each(fn func(name string, c *Counter, g *Gauge, h *Histogram)) {
	r.mu.RLock()
	counters := make([]*Counter, 0, len(r.counters))
	for _, name := range sortedNames(r.counters) {
		counters = append(counters, r.counters[name])
	}
	gauges := make([]*Gauge, 0, len(r.gauges))
	for _, name := range sortedNames(r.gauges) {
		gauges = append(gauges, r.gauges[name])
	}
	histograms := make([]*Histogram, 0, len(r.histograms))
	for _, name := range sortedNames(r.histograms) {
		histograms = append(histograms, r.histograms[name])
	}
	r.mu.RUnlock()

	for _, c := range counters {
		fn(c.Name(), c, nil, nil)
	}
	for _, g := range gauges {
		fn(g.Name(), nil, g, nil)
	}
	for _, h := range histograms {
		fn(h.Name(), nil, nil, h)
	}
}
