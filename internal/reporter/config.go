package reporter

import (
	"errors"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/dlobue/metrics-riemann/internal/ports"
)

const defaultSeparator = " "

// Config carries everything a Reporter needs. It is read once by New and
// never mutated afterwards; the same values apply to every event built in
// every cycle.
type Config struct {
	// Registry supplies the point-in-time metric snapshots to report.
	Registry ports.Registry
	// Channel delivers the batched events to the collector.
	Channel ports.Channel

	// Prefix, when non-empty, is prepended (with Separator) to every
	// service name.
	Prefix string
	// Separator joins service-name segments. Defaults to a single space,
	// the collector's legacy naming convention.
	Separator string
	// Host is stamped on every event. Empty means "resolve the local
	// hostname once at construction"; if that fails the events carry no
	// host and the collector fills in its own default.
	Host string
	// Tags are attached verbatim to every event.
	Tags []string
	// TTL, when non-zero, is the time-to-live stamped on every event.
	TTL float32

	// RateUnit scales meter and timer rates, which registries track in
	// events per second. time.Minute reports events per minute. Defaults
	// to time.Second.
	RateUnit time.Duration
	// DurationUnit scales timer durations, which registries track in
	// nanoseconds. Defaults to time.Millisecond.
	DurationUnit time.Duration

	// Filter, when non-nil, limits reporting to metrics whose name it
	// accepts.
	Filter func(name string) bool

	// Now is the clock used to timestamp cycles. Defaults to time.Now.
	Now func() time.Time

	Logger *zap.Logger
}

func (c *Config) normalize() error {
	if c.Registry == nil {
		return errors.New("reporter: nil registry")
	}
	if c.Channel == nil {
		return errors.New("reporter: nil channel")
	}
	if c.Separator == "" {
		c.Separator = defaultSeparator
	}
	if c.Host == "" {
		// Best effort, same as the collector ecosystem convention: an
		// unresolvable hostname leaves events hostless.
		c.Host, _ = os.Hostname()
	}
	if c.RateUnit == 0 {
		c.RateUnit = time.Second
	}
	if c.DurationUnit == 0 {
		c.DurationUnit = time.Millisecond
	}
	if c.RateUnit < 0 || c.DurationUnit < 0 {
		return errors.New("reporter: negative conversion unit")
	}
	if c.Filter == nil {
		c.Filter = func(string) bool { return true }
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return nil
}
