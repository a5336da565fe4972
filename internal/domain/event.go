package domain

// Event is one fully named, tagged measurement headed for the collector.
// Host empty and TTL zero mean "unset": the collector is free to fill in
// its own defaults for either.
type Event struct {
	Service string
	Host    string
	Metric  float64
	Time    int64
	Tags    []string
	TTL     float32
}
