// Package exporter exposes profiling reports as Prometheus metrics.
package exporter

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sarchlab/nodestat"
)

type leafMetric struct {
	desc  *prometheus.Desc
	value func(e nodestat.Entry) float64
}

// A Collector publishes one gauge per leaf and figure of the most recent
// report it was given.
type Collector struct {
	mu      sync.Mutex
	report  nodestat.Report
	metrics []leafMetric
}

// NewCollector creates a Collector whose metric names start with
// namespace.
func NewCollector(namespace string) *Collector {
	labels := []string{"path", "kind"}
	newDesc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "leaf", name), help, labels, nil)
	}

	return &Collector{
		metrics: []leafMetric{
			{
				desc: newDesc("duration_seconds", "Wall-clock time of the last invocation."),
				value: func(e nodestat.Entry) float64 {
					return e.DurationSeconds
				},
			},
			{
				desc: newDesc("parameters", "Trainable parameters owned by the leaf."),
				value: func(e nodestat.Entry) float64 {
					return float64(e.ParameterCount)
				},
			},
			{
				desc: newDesc("inference_memory_mb", "Output activation memory in MiB."),
				value: func(e nodestat.Entry) float64 {
					return e.InferenceMemoryMB
				},
			},
			{
				desc: newDesc("multiply_adds", "Multiply-add operations per sample."),
				value: func(e nodestat.Entry) float64 {
					return float64(e.MultiplyAdds)
				},
			},
			{
				desc: newDesc("flops", "Floating-point operations per sample."),
				value: func(e nodestat.Entry) float64 {
					return float64(e.Flops)
				},
			},
			{
				desc: newDesc("memory_read_bytes", "Bytes read per sample."),
				value: func(e nodestat.Entry) float64 {
					return float64(e.MemoryReadBytes)
				},
			},
			{
				desc: newDesc("memory_write_bytes", "Bytes written per sample."),
				value: func(e nodestat.Entry) float64 {
					return float64(e.MemoryWriteBytes)
				},
			},
		},
	}
}

// Update replaces the report the collector publishes.
func (c *Collector) Update(r nodestat.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.report = r
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	entries := c.report.Entries
	c.mu.Unlock()

	for _, e := range entries {
		for _, m := range c.metrics {
			ch <- prometheus.MustNewConstMetric(
				m.desc, prometheus.GaugeValue, m.value(e), e.Path, string(e.Kind))
		}
	}
}
