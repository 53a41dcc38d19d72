// Package metrics exposes the runtime's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters, gauges and histograms emitted by a Stream
// runtime, including the InFlight gauge tracking the bounded in-flight
// batch count.
type Metrics struct {
	BatchesIn      prometheus.Counter
	BatchesOut     prometheus.Counter
	BatchesDropped prometheus.Counter
	Acks           prometheus.Counter
	RowsIn         prometheus.Counter
	InFlight       prometheus.Gauge
	ProcessSeconds prometheus.Histogram
	WriteSeconds   prometheus.Histogram
}

// New registers and returns a Metrics set labelled by stream name. Safe
// to call once per stream against a shared Registerer.
func New(reg prometheus.Registerer, stream string) *Metrics {
	labels := prometheus.Labels{"stream": stream}

	m := &Metrics{
		BatchesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "arkflow_batches_in_total",
			Help:        "Batches read from the input.",
			ConstLabels: labels,
		}),
		BatchesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "arkflow_batches_out_total",
			Help:        "Batches successfully written to the output.",
			ConstLabels: labels,
		}),
		BatchesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "arkflow_batches_dropped_total",
			Help:        "Batches dropped due to a processor or write error.",
			ConstLabels: labels,
		}),
		Acks: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "arkflow_acks_total",
			Help:        "Input batches acknowledged.",
			ConstLabels: labels,
		}),
		RowsIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "arkflow_rows_in_total",
			Help:        "Rows/payloads read from the input.",
			ConstLabels: labels,
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "arkflow_batches_in_flight",
			Help:        "Batches currently between the input and the sink.",
			ConstLabels: labels,
		}),
		ProcessSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "arkflow_process_seconds",
			Help:        "Time spent running the pipeline over one batch.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
		WriteSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "arkflow_write_seconds",
			Help:        "Time spent writing one batch to the output.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
	}

	if reg != nil {
		reg.MustRegister(m.BatchesIn, m.BatchesOut, m.BatchesDropped, m.Acks,
			m.RowsIn, m.InFlight, m.ProcessSeconds, m.WriteSeconds)
	}
	return m
}

// Noop returns a Metrics set that is never registered, for tests.
func Noop() *Metrics {
	return New(nil, "test")
}
