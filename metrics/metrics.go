// Package metrics exposes the sipdump pipeline's diagnostics as Prometheus
// collectors, for hosts that want counters rather than (or alongside) log
// lines. It is a diag.Sink implementation; it carries no dependency on the
// pipeline packages beyond diag itself.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sipdump/sipdump/diag"
)

// Collector turns pipeline Diagnostics into Prometheus counters, bucketed
// by event name and severity.
type Collector struct {
	diagnostics *prometheus.CounterVec
	messages    prometheus.Counter
	splits      prometheus.Counter
}

// NewCollector builds a Collector. Callers register it (and its child
// collectors) with a prometheus.Registerer of their choosing; sipdump never
// touches the default registry itself.
func NewCollector(namespace string) *Collector {
	return &Collector{
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sipdump",
			Name:      "diagnostics_total",
			Help:      "Diagnostics emitted by the sipdump pipeline, by event, severity and session.",
		}, []string{"event", "severity", "session"}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sipdump",
			Name:      "messages_total",
			Help:      "Parsed SIP messages produced by the pipeline.",
		}),
		splits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sipdump",
			Name:      "aggregation_splits_total",
			Help:      "Back-to-back SIP messages separated out of a single reassembled buffer.",
		}),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.diagnostics.Describe(ch)
	c.messages.Describe(ch)
	c.splits.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.diagnostics.Collect(ch)
	c.messages.Collect(ch)
	c.splits.Collect(ch)
}

// Observe implements diag.Sink.
func (c *Collector) Observe(d diag.Diagnostic) {
	c.diagnostics.WithLabelValues(d.Event, d.Severity.String(), d.SessionID).Inc()
	if d.Event == diag.EventAggregateSplit {
		c.splits.Inc()
	}
}

// ObserveMessage records one ParsedMessage having been produced. Call this
// from the consumer's Pipeline.Next loop; the pipeline itself has no
// Prometheus dependency (sipdump.Decode only needs a diag.Sink).
func (c *Collector) ObserveMessage() {
	c.messages.Inc()
}
