package domain

// Distribution is a read-only statistical summary of a sampled population.
// For timers every field is in nanoseconds; the reporter converts to the
// configured duration unit.
type Distribution struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	Median float64
	P75    float64
	P95    float64
	P98    float64
	P99    float64
	P999   float64
}

// HistogramValue is a point-in-time histogram sample.
type HistogramValue struct {
	Count int64
	Distribution
}

// MeterValue is a point-in-time meter sample. Rates are events per second.
type MeterValue struct {
	Count    int64
	Rate1    float64
	Rate5    float64
	Rate15   float64
	RateMean float64
}

// TimerValue is simultaneously a duration distribution and an event-rate
// meter.
type TimerValue struct {
	MeterValue
	Distribution
}

// Snapshot groups all metric values known to a registry at a single point in
// time. Gauges hold whatever type the application registered; the reporter
// decides which of those it can coerce to the wire numeric type.
type Snapshot struct {
	Gauges     map[string]any
	Counters   map[string]int64
	Histograms map[string]HistogramValue
	Meters     map[string]MeterValue
	Timers     map[string]TimerValue
}

// Size reports the total number of metrics across all five collections.
func (s Snapshot) Size() int {
	return len(s.Gauges) + len(s.Counters) + len(s.Histograms) + len(s.Meters) + len(s.Timers)
}
