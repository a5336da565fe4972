package reporter

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/dlobue/metrics-riemann/internal/domain"
)

type fakeRegistry struct {
	snap domain.Snapshot
}

func (f *fakeRegistry) Snapshot() domain.Snapshot { return f.snap }

// fakeChannel records batches and plays back scripted outcomes.
type fakeChannel struct {
	connectErr error
	sendErr    error
	ack        bool
	// dropAfterConnect simulates a connection lost between Connect and
	// the first event build.
	dropAfterConnect bool

	connected    bool
	connectCalls int
	sent         [][]domain.Event
}

func (f *fakeChannel) IsConnected() bool { return f.connected }

func (f *fakeChannel) Connect() error {
	f.connectCalls++
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = !f.dropAfterConnect
	return nil
}

func (f *fakeChannel) SendEventsWithAck(_ context.Context, events []domain.Event) (bool, error) {
	f.sent = append(f.sent, append([]domain.Event(nil), events...))
	if f.sendErr != nil {
		return false, f.sendErr
	}
	return f.ack, nil
}

func (f *fakeChannel) Close() error { return nil }

func newTestReporter(t *testing.T, snap domain.Snapshot, ch *fakeChannel, mutate func(*Config)) *Reporter {
	t.Helper()
	cfg := Config{
		Registry:  &fakeRegistry{snap: snap},
		Channel:   ch,
		Separator: "_",
		Host:      "test-host",
		Now:       func() time.Time { return time.Unix(1700000000, 0) },
	}
	if mutate != nil {
		mutate(&cfg)
	}
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func lastBatch(t *testing.T, ch *fakeChannel) []domain.Event {
	t.Helper()
	if len(ch.sent) == 0 {
		t.Fatal("no batch was sent")
	}
	return ch.sent[len(ch.sent)-1]
}

func captureOutcome(r *Reporter) *CycleOutcome {
	var out CycleOutcome
	r.Outcomes().Attach(outcomeFunc(func(o CycleOutcome) { out = o }))
	return &out
}

type outcomeFunc func(CycleOutcome)

func (f outcomeFunc) Notify(_ context.Context, o CycleOutcome) { f(o) }

func TestReport_GaugeCoercion(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  float64
	}{
		{"float64", float64(4.2), 4.2},
		{"float32", float32(2.5), 2.5},
		{"int", int(7), 7},
		{"int8", int8(-8), -8},
		{"int16", int16(1600), 1600},
		{"int32", int32(-32000), -32000},
		{"int64", int64(1 << 40), float64(int64(1 << 40))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &fakeChannel{ack: true}
			snap := domain.Snapshot{Gauges: map[string]any{"g": tt.value}}
			r := newTestReporter(t, snap, ch, nil)

			r.Report(context.Background())

			batch := lastBatch(t, ch)
			if len(batch) != 1 {
				t.Fatalf("got %d events, want 1", len(batch))
			}
			if batch[0].Service != "g" {
				t.Errorf("service = %q, want %q", batch[0].Service, "g")
			}
			if batch[0].Metric != tt.want {
				t.Errorf("metric = %v, want %v", batch[0].Metric, tt.want)
			}
			if batch[0].Time != 1700000000 {
				t.Errorf("time = %d, want 1700000000", batch[0].Time)
			}
		})
	}
}

func TestReport_UnsupportedGaugeSkipped(t *testing.T) {
	ch := &fakeChannel{ack: true}
	snap := domain.Snapshot{
		Gauges:   map[string]any{"bad": "a string", "good": int64(1)},
		Counters: map[string]int64{"c": 7},
	}
	r := newTestReporter(t, snap, ch, nil)

	r.Report(context.Background())

	batch := lastBatch(t, ch)
	if len(batch) != 2 {
		t.Fatalf("got %d events, want 2 (bad gauge skipped)", len(batch))
	}
	if batch[0].Service != "good" {
		t.Errorf("first event = %q, want %q", batch[0].Service, "good")
	}
	if batch[1].Service != "c_count_" {
		t.Errorf("second event = %q, want %q", batch[1].Service, "c_count_")
	}
}

func TestReport_HistogramExpansion(t *testing.T) {
	ch := &fakeChannel{ack: true}
	snap := domain.Snapshot{
		Histograms: map[string]domain.HistogramValue{
			"h": {
				Count: 3,
				Distribution: domain.Distribution{
					Min: 1, Max: 9, Mean: 4, StdDev: 2, Median: 5,
					P75: 6, P95: 7, P98: 7.5, P99: 8, P999: 8.9,
				},
			},
		},
	}
	r := newTestReporter(t, snap, ch, nil)

	r.Report(context.Background())

	batch := lastBatch(t, ch)
	wantSuffixes := []string{"count", "max", "mean", "min", "stddev", "p50", "p75", "p95", "p98", "p99", "p999"}
	wantValues := []float64{3, 9, 4, 1, 2, 5, 6, 7, 7.5, 8, 8.9}
	if len(batch) != len(wantSuffixes) {
		t.Fatalf("got %d events, want %d", len(batch), len(wantSuffixes))
	}
	for i, suffix := range wantSuffixes {
		want := "h_" + suffix + "_"
		if batch[i].Service != want {
			t.Errorf("event %d service = %q, want %q", i, batch[i].Service, want)
		}
		if batch[i].Metric != wantValues[i] {
			t.Errorf("event %d metric = %v, want %v", i, batch[i].Metric, wantValues[i])
		}
	}
}

func TestReport_MeterRateConversion(t *testing.T) {
	ch := &fakeChannel{ack: true}
	snap := domain.Snapshot{
		Meters: map[string]domain.MeterValue{
			"m": {Count: 10, Rate1: 1, Rate5: 2, Rate15: 3, RateMean: 4},
		},
	}
	r := newTestReporter(t, snap, ch, func(cfg *Config) {
		cfg.RateUnit = time.Minute // events/second -> events/minute
	})

	r.Report(context.Background())

	batch := lastBatch(t, ch)
	wantSuffixes := []string{"count", "m1_rate", "m5_rate", "m15_rate", "mean_rate"}
	wantValues := []float64{10, 60, 120, 180, 240}
	if len(batch) != len(wantSuffixes) {
		t.Fatalf("got %d events, want %d", len(batch), len(wantSuffixes))
	}
	for i, suffix := range wantSuffixes {
		want := "m_" + suffix + "_"
		if batch[i].Service != want {
			t.Errorf("event %d service = %q, want %q", i, batch[i].Service, want)
		}
		if batch[i].Metric != wantValues[i] {
			t.Errorf("event %d metric = %v, want %v", i, batch[i].Metric, wantValues[i])
		}
	}
}

func TestReport_TimerExpansion(t *testing.T) {
	ch := &fakeChannel{ack: true}
	ms := float64(time.Millisecond)
	snap := domain.Snapshot{
		Timers: map[string]domain.TimerValue{
			"t": {
				MeterValue: domain.MeterValue{Count: 5, Rate1: 1, Rate5: 1, Rate15: 1, RateMean: 2},
				Distribution: domain.Distribution{
					Min: 1 * ms, Max: 100 * ms, Mean: 40 * ms, StdDev: 10 * ms, Median: 35 * ms,
					P75: 50 * ms, P95: 80 * ms, P98: 90 * ms, P99: 95 * ms, P999: 99 * ms,
				},
			},
		},
	}
	r := newTestReporter(t, snap, ch, nil) // defaults: rates /sec, durations in ms

	r.Report(context.Background())

	batch := lastBatch(t, ch)
	wantSuffixes := []string{
		"count", "max", "mean", "min", "stddev", "p50", "p75", "p95", "p98", "p99", "p999",
		"m1_rate", "m5_rate", "m15_rate", "mean_rate",
	}
	wantValues := []float64{5, 100, 40, 1, 10, 35, 50, 80, 90, 95, 99, 1, 1, 1, 2}
	if len(batch) != 15 {
		t.Fatalf("got %d events, want 15", len(batch))
	}
	for i, suffix := range wantSuffixes {
		want := "t_" + suffix + "_"
		if batch[i].Service != want {
			t.Errorf("event %d service = %q, want %q", i, batch[i].Service, want)
		}
		if batch[i].Metric != wantValues[i] {
			t.Errorf("event %d metric = %v, want %v", i, batch[i].Metric, wantValues[i])
		}
	}
}

func TestReport_CollectionAndNameOrder(t *testing.T) {
	ch := &fakeChannel{ack: true}
	snap := domain.Snapshot{
		Gauges:   map[string]any{"zg": int64(1), "ag": int64(2)},
		Counters: map[string]int64{"zc": 1, "ac": 2},
		Meters:   map[string]domain.MeterValue{"m": {}},
		Timers:   map[string]domain.TimerValue{"t": {}},
	}
	r := newTestReporter(t, snap, ch, nil)

	r.Report(context.Background())

	batch := lastBatch(t, ch)
	wantFirst := []string{"ag", "zg", "ac_count_", "zc_count_", "m_count_"}
	if len(batch) != 2+2+5+15 {
		t.Fatalf("got %d events, want %d", len(batch), 2+2+5+15)
	}
	for i, want := range wantFirst {
		if batch[i].Service != want {
			t.Errorf("event %d = %q, want %q", i, batch[i].Service, want)
		}
	}
	if last := batch[len(batch)-1].Service; last != "t_mean_rate_" {
		t.Errorf("last event = %q, want %q", last, "t_mean_rate_")
	}
}

func TestReport_Filter(t *testing.T) {
	ch := &fakeChannel{ack: true}
	snap := domain.Snapshot{
		Gauges:   map[string]any{"keep": int64(1), "drop": int64(2)},
		Counters: map[string]int64{"drop2": 3},
	}
	r := newTestReporter(t, snap, ch, func(cfg *Config) {
		cfg.Filter = func(name string) bool { return name == "keep" }
	})

	r.Report(context.Background())

	batch := lastBatch(t, ch)
	if len(batch) != 1 || batch[0].Service != "keep" {
		t.Errorf("batch = %+v, want only %q", batch, "keep")
	}
}

func TestReport_ConnectFailureSendsNothing(t *testing.T) {
	ch := &fakeChannel{connectErr: errors.New("dial tcp: refused")}
	snap := domain.Snapshot{Gauges: map[string]any{"g": int64(1)}}
	r := newTestReporter(t, snap, ch, nil)
	out := captureOutcome(r)

	r.Report(context.Background())

	if len(ch.sent) != 0 {
		t.Errorf("sent %d batches, want 0", len(ch.sent))
	}
	if out.Err == nil {
		t.Error("outcome carries no error")
	}
	if out.Acked {
		t.Error("outcome acked despite connect failure")
	}
}

func TestReport_DisconnectedAbortsBeforeSend(t *testing.T) {
	ch := &fakeChannel{dropAfterConnect: true}
	snap := domain.Snapshot{Gauges: map[string]any{"g": int64(1)}}
	r := newTestReporter(t, snap, ch, nil)
	out := captureOutcome(r)

	r.Report(context.Background())

	if len(ch.sent) != 0 {
		t.Errorf("sent %d batches, want 0", len(ch.sent))
	}
	if !errors.Is(out.Err, domain.ErrNotConnected) {
		t.Errorf("outcome err = %v, want ErrNotConnected", out.Err)
	}
}

func TestReport_NoAckCompletesAndNextCycleResends(t *testing.T) {
	ch := &fakeChannel{ack: false}
	snap := domain.Snapshot{
		Gauges:   map[string]any{"g": int64(1)},
		Counters: map[string]int64{"c": 2},
	}
	r := newTestReporter(t, snap, ch, nil)
	out := captureOutcome(r)

	r.Report(context.Background())
	if out.Err != nil {
		t.Errorf("no-ack cycle reported error: %v", out.Err)
	}
	if out.Acked {
		t.Error("outcome acked, want not acked")
	}

	// The next cycle rebuilds a full, independent batch.
	r.Report(context.Background())
	if len(ch.sent) != 2 {
		t.Fatalf("sent %d batches, want 2", len(ch.sent))
	}
	if len(ch.sent[0]) != 2 || len(ch.sent[1]) != 2 {
		t.Errorf("batch sizes = %d, %d; want 2, 2", len(ch.sent[0]), len(ch.sent[1]))
	}
}

func TestReport_SendFailuresNeverEscape(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"too_large", &domain.BatchTooLargeError{Events: 10000, Limit: 8192}},
		{"server_rejected", &domain.ServerError{Reason: "malformed event"}},
		{"io_failure", io.ErrUnexpectedEOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &fakeChannel{sendErr: tt.err}
			snap := domain.Snapshot{Counters: map[string]int64{"c": 1}}
			r := newTestReporter(t, snap, ch, nil)
			out := captureOutcome(r)

			r.Report(context.Background()) // must not panic

			if !errors.Is(out.Err, tt.err) {
				t.Errorf("outcome err = %v, want %v", out.Err, tt.err)
			}
		})
	}
}

func TestReport_MixedGaugeAndCounterBatch(t *testing.T) {
	ch := &fakeChannel{ack: true}
	snap := domain.Snapshot{
		Gauges:   map[string]any{"g": int64(42)},
		Counters: map[string]int64{"c": 7},
	}
	r := newTestReporter(t, snap, ch, nil)

	r.Report(context.Background())

	batch := lastBatch(t, ch)
	if len(batch) != 2 {
		t.Fatalf("got %d events, want 2", len(batch))
	}
	if batch[0].Service != "g" || batch[0].Metric != 42 {
		t.Errorf("gauge event = %+v", batch[0])
	}
	if batch[1].Service != "c_count_" || batch[1].Metric != 7 {
		t.Errorf("counter event = %+v", batch[1])
	}
}

func TestReport_EventsShareNamingConfig(t *testing.T) {
	ch := &fakeChannel{ack: true}
	snap := domain.Snapshot{
		Gauges: map[string]any{"g": int64(1)},
		Meters: map[string]domain.MeterValue{"m": {}},
	}
	r := newTestReporter(t, snap, ch, func(cfg *Config) {
		cfg.Prefix = "svc"
		cfg.Tags = []string{"env:prod"}
		cfg.TTL = 60
	})

	r.Report(context.Background())

	for i, ev := range lastBatch(t, ch) {
		if ev.Host != "test-host" || ev.TTL != 60 {
			t.Errorf("event %d host/ttl = %q/%v", i, ev.Host, ev.TTL)
		}
		if len(ev.Tags) != 1 || ev.Tags[0] != "env:prod" {
			t.Errorf("event %d tags = %v", i, ev.Tags)
		}
		if ev.Service[:4] != "svc_" {
			t.Errorf("event %d service = %q, want svc_ prefix", i, ev.Service)
		}
		if ev.Time != 1700000000 {
			t.Errorf("event %d time = %d", i, ev.Time)
		}
	}
}
