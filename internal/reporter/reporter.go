// Package reporter translates metric snapshots into named, tagged events and
// ships them to a collector in one acknowledged batch per cycle.
package reporter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/dlobue/metrics-riemann/internal/domain"
	"github.com/dlobue/metrics-riemann/internal/ports"
	"github.com/dlobue/metrics-riemann/pkg/observer"
)

// CycleOutcome describes how one report cycle ended.
type CycleOutcome struct {
	// Time is the cycle timestamp in unix seconds.
	Time int64
	// Events is the number of events built for the batch.
	Events int
	// Acked is true when the collector acknowledged the batch.
	Acked bool
	// Err is the failure that ended the cycle, nil on ack or explicit
	// no-ack.
	Err error
}

// Reporter expands metric snapshots into events and submits them as a single
// acknowledged batch per cycle. Failures never escape a cycle: each one is
// classified, logged, and dropped, so a scheduler can invoke Report at a
// fixed interval indefinitely. Report is not safe for concurrent use with
// itself; the scheduler is expected to serialize cycles.
type Reporter struct {
	registry ports.Registry
	channel  ports.Channel
	naming   naming

	rateFactor     float64
	durationFactor float64
	filter         func(string) bool
	now            func() time.Time

	outcomes *observer.Subject[CycleOutcome]
	log      *zap.Logger
}

// New validates the configuration and builds a Reporter. The local hostname
// and all conversion factors are resolved here, once.
func New(cfg Config) (*Reporter, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &Reporter{
		registry: cfg.Registry,
		channel:  cfg.Channel,
		naming: naming{
			prefix:    cfg.Prefix,
			separator: cfg.Separator,
			host:      cfg.Host,
			tags:      cfg.Tags,
			ttl:       cfg.TTL,
		},
		rateFactor:     cfg.RateUnit.Seconds(),
		durationFactor: 1.0 / float64(cfg.DurationUnit.Nanoseconds()),
		filter:         cfg.Filter,
		now:            cfg.Now,
		outcomes:       observer.NewSubject[CycleOutcome](),
		log:            cfg.Logger,
	}, nil
}

// Outcomes exposes the per-cycle outcome feed. Attach observers before the
// first cycle runs.
func (r *Reporter) Outcomes() *observer.Subject[CycleOutcome] {
	return r.outcomes
}

// Report runs one full cycle: snapshot, expand, send, interpret. It never
// returns an error and never panics; every failure path ends in a log line
// and a published CycleOutcome.
func (r *Reporter) Report(ctx context.Context) {
	snap := r.registry.Snapshot()
	ts := r.now().Unix()
	r.log.Debug("reporting metrics",
		zap.Int("metrics", snap.Size()),
		zap.Int64("ts", ts),
	)

	sent, acked, err := r.reportSnapshot(ctx, snap, ts)
	switch {
	case err == nil && acked:
		r.log.Debug("batch acknowledged", zap.Int("events", sent))
	case err == nil:
		r.log.Error("collector did not acknowledge the batch", zap.Int("events", sent))
	default:
		var tooLarge *domain.BatchTooLargeError
		var srvErr *domain.ServerError
		switch {
		case errors.As(err, &tooLarge):
			r.log.Error("batch too large for collector", zap.Int("events", sent), zap.Error(err))
		case errors.As(err, &srvErr):
			r.log.Error("collector rejected batch", zap.Error(err))
		default:
			r.log.Warn("unable to report to collector", zap.Error(err))
		}
	}

	r.outcomes.Publish(ctx, CycleOutcome{Time: ts, Events: sent, Acked: acked, Err: err})
}

// reportSnapshot builds the whole batch in collection order, then submits it
// in one round trip. No partial batch survives a failure: the next cycle
// starts from a fresh snapshot.
func (r *Reporter) reportSnapshot(ctx context.Context, snap domain.Snapshot, ts int64) (int, bool, error) {
	if err := r.channel.Connect(); err != nil {
		return 0, false, fmt.Errorf("connect: %w", err)
	}

	capacity := len(snap.Gauges) + len(snap.Counters) +
		11*len(snap.Histograms) + 5*len(snap.Meters) + 15*len(snap.Timers)
	events := make([]domain.Event, 0, capacity)

	for _, name := range sortedKeys(snap.Gauges) {
		if !r.filter(name) {
			continue
		}
		ev, err := r.gaugeEvent(name, snap.Gauges[name], ts)
		if err != nil {
			if errors.Is(err, domain.ErrUnsupportedGauge) {
				// Gauges carry arbitrary application-supplied types;
				// one bad gauge must not sink the whole cycle.
				r.log.Warn("skipping gauge", zap.String("metric", name), zap.Error(err))
				continue
			}
			return 0, false, err
		}
		events = append(events, ev)
	}

	var err error
	for _, name := range sortedKeys(snap.Counters) {
		if !r.filter(name) {
			continue
		}
		if events, err = r.appendCounter(events, name, snap.Counters[name], ts); err != nil {
			return 0, false, err
		}
	}
	for _, name := range sortedKeys(snap.Histograms) {
		if !r.filter(name) {
			continue
		}
		if events, err = r.appendHistogram(events, name, snap.Histograms[name], ts); err != nil {
			return 0, false, err
		}
	}
	for _, name := range sortedKeys(snap.Meters) {
		if !r.filter(name) {
			continue
		}
		if events, err = r.appendMeter(events, name, snap.Meters[name], ts); err != nil {
			return 0, false, err
		}
	}
	for _, name := range sortedKeys(snap.Timers) {
		if !r.filter(name) {
			continue
		}
		if events, err = r.appendTimer(events, name, snap.Timers[name], ts); err != nil {
			return 0, false, err
		}
	}

	acked, err := r.channel.SendEventsWithAck(ctx, events)
	if err != nil {
		return len(events), false, err
	}
	return len(events), acked, nil
}

// newEvent is the connection-gated variant of the pure builder: the cycle
// fails fast as soon as the channel reports disconnected, rather than
// building a batch that cannot be sent.
func (r *Reporter) newEvent(base string, components ...string) (domain.Event, error) {
	if !r.channel.IsConnected() {
		return domain.Event{}, domain.ErrNotConnected
	}
	return r.naming.newEvent(base, components...), nil
}

func (r *Reporter) gaugeEvent(name string, value any, ts int64) (domain.Event, error) {
	metric, ok := coerceGauge(value)
	if !ok {
		return domain.Event{}, fmt.Errorf("%w: %T", domain.ErrUnsupportedGauge, value)
	}
	ev, err := r.newEvent(name)
	if err != nil {
		return domain.Event{}, err
	}
	ev.Metric = metric
	ev.Time = ts
	return ev, nil
}

func (r *Reporter) appendCounter(events []domain.Event, name string, count int64, ts int64) ([]domain.Event, error) {
	ev, err := r.newEvent(name, "count")
	if err != nil {
		return nil, err
	}
	ev.Metric = float64(count)
	ev.Time = ts
	return append(events, ev), nil
}

func (r *Reporter) appendHistogram(events []domain.Event, name string, h domain.HistogramValue, ts int64) ([]domain.Event, error) {
	parts := []component{
		{"count", float64(h.Count)},
		{"max", h.Max},
		{"mean", h.Mean},
		{"min", h.Min},
		{"stddev", h.StdDev},
		{"p50", h.Median},
		{"p75", h.P75},
		{"p95", h.P95},
		{"p98", h.P98},
		{"p99", h.P99},
		{"p999", h.P999},
	}
	return r.appendComponents(events, name, parts, ts)
}

func (r *Reporter) appendMeter(events []domain.Event, name string, m domain.MeterValue, ts int64) ([]domain.Event, error) {
	return r.appendComponents(events, name, r.rateComponents(m, true), ts)
}

// appendTimer emits the union of histogram-style duration events and
// meter-style rate events: a timer is both a duration distribution and an
// event-rate meter.
func (r *Reporter) appendTimer(events []domain.Event, name string, t domain.TimerValue, ts int64) ([]domain.Event, error) {
	parts := []component{
		{"count", float64(t.MeterValue.Count)},
		{"max", r.convertDuration(t.Max)},
		{"mean", r.convertDuration(t.Mean)},
		{"min", r.convertDuration(t.Min)},
		{"stddev", r.convertDuration(t.StdDev)},
		{"p50", r.convertDuration(t.Median)},
		{"p75", r.convertDuration(t.P75)},
		{"p95", r.convertDuration(t.P95)},
		{"p98", r.convertDuration(t.P98)},
		{"p99", r.convertDuration(t.P99)},
		{"p999", r.convertDuration(t.P999)},
	}
	parts = append(parts, r.rateComponents(t.MeterValue, false)...)
	return r.appendComponents(events, name, parts, ts)
}

type component struct {
	suffix string
	value  float64
}

func (r *Reporter) rateComponents(m domain.MeterValue, withCount bool) []component {
	parts := make([]component, 0, 5)
	if withCount {
		parts = append(parts, component{"count", float64(m.Count)})
	}
	return append(parts,
		component{"m1_rate", r.convertRate(m.Rate1)},
		component{"m5_rate", r.convertRate(m.Rate5)},
		component{"m15_rate", r.convertRate(m.Rate15)},
		component{"mean_rate", r.convertRate(m.RateMean)},
	)
}

func (r *Reporter) appendComponents(events []domain.Event, name string, parts []component, ts int64) ([]domain.Event, error) {
	for _, p := range parts {
		ev, err := r.newEvent(name, p.suffix)
		if err != nil {
			return nil, err
		}
		ev.Metric = p.value
		ev.Time = ts
		events = append(events, ev)
	}
	return events, nil
}

func (r *Reporter) convertRate(rate float64) float64 {
	return rate * r.rateFactor
}

func (r *Reporter) convertDuration(d float64) float64 {
	return d * r.durationFactor
}

// coerceGauge maps the supported numeric gauge types onto the wire numeric
// type. The dispatch is total: anything outside this set is reported as
// unsupported, never as a panic.
func coerceGauge(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
