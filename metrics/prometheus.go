package metrics

import (
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Exporter adapts a Registry to prometheus.Collector. Metric names are
// sanitised ("cpu.loads" becomes "<namespace>_cpu_loads"); histograms are
// exported as summaries without quantiles plus _min and _max gauges.
type Exporter struct {
	reg       *Registry
	namespace string
}

// NewExporter returns a collector over reg.
func NewExporter(reg *Registry, namespace string) *Exporter {
	return &Exporter{reg: reg, namespace: namespace}
}

// Describe sends nothing, which makes the exporter an unchecked collector.
// The set of metrics in a Registry grows at run time.
func (e *Exporter) Describe(chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	e.reg.Each(func(name string, c *Counter, g *Gauge, h *Histogram) {
		fq := prometheus.BuildFQName(e.namespace, "", promName(name))
		switch {
		case c != nil:
			desc := prometheus.NewDesc(fq, name, nil, nil)
			ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(c.Value()))
		case g != nil:
			desc := prometheus.NewDesc(fq, name, nil, nil)
			ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(g.Value()))
		case h != nil:
			desc := prometheus.NewDesc(fq, name, nil, nil)
			ch <- prometheus.MustNewConstSummary(desc, uint64(h.Count()), h.Sum(), nil)
			ch <- prometheus.MustNewConstMetric(
				prometheus.NewDesc(fq+"_min", name+" (min)", nil, nil),
				prometheus.GaugeValue, h.Min())
			ch <- prometheus.MustNewConstMetric(
				prometheus.NewDesc(fq+"_max", name+" (max)", nil, nil),
				prometheus.GaugeValue, h.Max())
		}
	})
}

// Gather collects reg through a private Prometheus registry.
func Gather(reg *Registry, namespace string) ([]*dto.MetricFamily, error) {
	pr := prometheus.NewRegistry()
	if err := pr.Register(NewExporter(reg, namespace)); err != nil {
		return nil, fmt.Errorf("metrics: register exporter: %w", err)
	}
	return pr.Gather()
}

// WriteText writes reg to w in the Prometheus text exposition format.
func WriteText(w io.Writer, reg *Registry, namespace string) error {
	families, err := Gather(reg, namespace)
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("metrics: write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// promName maps a dotted metric name onto the Prometheus name alphabet.
func promName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, name)
}
