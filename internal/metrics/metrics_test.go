package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, "s1")

	m.BatchesIn.Inc()
	m.RowsIn.Add(3)
	m.InFlight.Inc()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) != 8 {
		t.Fatalf("len(families) = %d, want 8 (every collector registered)", len(families))
	}

	var found bool
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			for _, l := range metric.GetLabel() {
				if l.GetName() == "stream" && l.GetValue() == "s1" {
					found = true
				}
			}
		}
	}
	if !found {
		t.Fatal("expected stream=s1 const label on at least one metric")
	}
}

func TestNoopIsUsableWithoutPanicking(t *testing.T) {
	m := Noop()
	m.BatchesIn.Inc()
	m.BatchesOut.Add(2)
	m.Acks.Inc()
	m.InFlight.Inc()
	m.InFlight.Dec()
	m.ProcessSeconds.Observe(0.1)

	var metric dto.Metric
	if err := m.BatchesIn.Write(&metric); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if metric.GetCounter().GetValue() != 1 {
		t.Fatalf("BatchesIn = %v, want 1", metric.GetCounter().GetValue())
	}
}
