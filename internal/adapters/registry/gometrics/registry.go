// Package gometrics adapts an rcrowley/go-metrics registry to the snapshot
// view the reporter consumes.
package gometrics

import (
	metrics "github.com/rcrowley/go-metrics"

	"github.com/dlobue/metrics-riemann/internal/domain"
	"github.com/dlobue/metrics-riemann/internal/ports"
)

// Percentiles reported for every histogram and timer, in emission order:
// median, p75, p95, p98, p99, p999.
var percentiles = []float64{0.5, 0.75, 0.95, 0.98, 0.99, 0.999}

// Registry wraps a go-metrics registry handle.
type Registry struct {
	r metrics.Registry
}

var _ ports.Registry = (*Registry)(nil)

// New wraps the given registry; nil means the process-wide default one.
func New(r metrics.Registry) *Registry {
	if r == nil {
		r = metrics.DefaultRegistry
	}
	return &Registry{r: r}
}

// Underlying exposes the wrapped registry for instrumentation call sites.
func (g *Registry) Underlying() metrics.Registry { return g.r }

// Snapshot walks every registered metric and captures its current value.
// Counter, histogram, meter, and timer values land in typed collections;
// gauges keep their original numeric type so the reporter's coercion rules
// apply. Registry entries of any other kind are ignored.
func (g *Registry) Snapshot() domain.Snapshot {
	snap := domain.Snapshot{
		Gauges:     make(map[string]any),
		Counters:   make(map[string]int64),
		Histograms: make(map[string]domain.HistogramValue),
		Meters:     make(map[string]domain.MeterValue),
		Timers:     make(map[string]domain.TimerValue),
	}

	g.r.Each(func(name string, metric interface{}) {
		switch m := metric.(type) {
		case metrics.Counter:
			snap.Counters[name] = m.Count()
		case metrics.Gauge:
			snap.Gauges[name] = m.Value()
		case metrics.GaugeFloat64:
			snap.Gauges[name] = m.Value()
		case metrics.Histogram:
			h := m.Snapshot()
			snap.Histograms[name] = domain.HistogramValue{
				Count:        h.Count(),
				Distribution: distribution(float64(h.Min()), float64(h.Max()), h.Mean(), h.StdDev(), h.Percentiles(percentiles)),
			}
		case metrics.Meter:
			ms := m.Snapshot()
			snap.Meters[name] = meterValue(ms.Count(), ms.Rate1(), ms.Rate5(), ms.Rate15(), ms.RateMean())
		case metrics.Timer:
			ts := m.Snapshot()
			snap.Timers[name] = domain.TimerValue{
				MeterValue:   meterValue(ts.Count(), ts.Rate1(), ts.Rate5(), ts.Rate15(), ts.RateMean()),
				Distribution: distribution(float64(ts.Min()), float64(ts.Max()), ts.Mean(), ts.StdDev(), ts.Percentiles(percentiles)),
			}
		}
	})

	return snap
}

func meterValue(count int64, r1, r5, r15, mean float64) domain.MeterValue {
	return domain.MeterValue{Count: count, Rate1: r1, Rate5: r5, Rate15: r15, RateMean: mean}
}

func distribution(min, max, mean, stddev float64, ps []float64) domain.Distribution {
	return domain.Distribution{
		Min:    min,
		Max:    max,
		Mean:   mean,
		StdDev: stddev,
		Median: ps[0],
		P75:    ps[1],
		P95:    ps[2],
		P98:    ps[3],
		P99:    ps[4],
		P999:   ps[5],
	}
}
