// Package config loads agent settings from flags and environment variables.
package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dlobue/metrics-riemann/internal/misc"
)

const (
	defaultRiemannAddr    = "localhost:5555"
	defaultStatusAddr     = "localhost:8090"
	defaultReportInterval = 10 * time.Second
	defaultPollInterval   = 2 * time.Second
	defaultSeparator      = " "
)

// AgentConfig holds everything the reporting agent needs. Immutable once
// loaded.
type AgentConfig struct {
	// RiemannAddr is the collector's host:port.
	RiemannAddr string
	// StatusAddr is the listen address of the status HTTP API; empty
	// disables it.
	StatusAddr string
	// ReportInterval is how often a report cycle runs.
	ReportInterval time.Duration
	// PollInterval is how often the system collector samples.
	PollInterval time.Duration
	// JournalFile, when non-empty, is the path of the newline-delimited
	// JSON file recording every cycle outcome.
	JournalFile string
	// Prefix, Separator, Host, Tags, and TTL shape every outgoing event.
	Prefix    string
	Separator string
	Host      string
	Tags      []string
	TTL       float32
}

// LoadAgentConfig resolves settings with priority ENV > CLI > defaults.
func LoadAgentConfig(args []string, out io.Writer) (AgentConfig, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("agent", flag.ContinueOnError)
	fs.SetOutput(out)

	var (
		addrOpt    string
		statusOpt  string
		reportOpt  time.Duration
		pollOpt    time.Duration
		journalOpt string
		prefixOpt  string
		sepOpt     string
		hostOpt    string
		tagsOpt    string
		ttlOpt     float64
	)

	fs.StringVar(&addrOpt, "a", "", fmt.Sprintf("riemann address (host:port), default: %s", defaultRiemannAddr))
	fs.StringVar(&statusOpt, "s", "", fmt.Sprintf("status API listen address, default: %s (empty disables)", defaultStatusAddr))
	fs.DurationVar(&reportOpt, "r", 0, fmt.Sprintf("report interval, default: %s", defaultReportInterval))
	fs.DurationVar(&pollOpt, "p", 0, fmt.Sprintf("poll interval, default: %s", defaultPollInterval))
	fs.StringVar(&journalOpt, "journal", "", "cycle journal file path (empty disables)")
	fs.StringVar(&prefixOpt, "prefix", "", "service name prefix")
	fs.StringVar(&sepOpt, "sep", "", "service name separator, default: single space")
	fs.StringVar(&hostOpt, "host", "", "event host, default: local hostname")
	fs.StringVar(&tagsOpt, "tags", "", "comma-separated event tags")
	fs.Float64Var(&ttlOpt, "ttl", 0, "event time-to-live in seconds, 0 leaves it unset")

	if err := fs.Parse(args); err != nil {
		return AgentConfig{}, err
	}

	cfg := AgentConfig{
		RiemannAddr: firstOf(misc.Getenv("RIEMANN_ADDR", ""), addrOpt, defaultRiemannAddr),
		StatusAddr:  firstOf(misc.Getenv("STATUS_ADDR", ""), statusOpt, defaultStatusAddr),
		JournalFile: firstOf(misc.Getenv("JOURNAL_FILE", ""), journalOpt, ""),
		Prefix:      firstOf(misc.Getenv("METRIC_PREFIX", ""), prefixOpt, ""),
		Host:        firstOf(misc.Getenv("EVENT_HOST", ""), hostOpt, ""),
		TTL:         misc.GetFloat32("EVENT_TTL", float32(ttlOpt)),
	}

	// The default separator is a single space, which firstOf would treat
	// as unset.
	cfg.Separator = misc.Getenv("METRIC_SEPARATOR", "")
	if cfg.Separator == "" {
		cfg.Separator = sepOpt
	}
	if cfg.Separator == "" {
		cfg.Separator = defaultSeparator
	}

	cfg.ReportInterval = misc.GetDuration("REPORT_INTERVAL", reportOpt)
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = defaultReportInterval
	}
	cfg.PollInterval = misc.GetDuration("POLL_INTERVAL", pollOpt)
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	cfg.Tags = splitTags(firstOf(misc.Getenv("EVENT_TAGS", ""), tagsOpt, ""))

	if strings.TrimSpace(cfg.RiemannAddr) == "" {
		return AgentConfig{}, fmt.Errorf("empty riemann address")
	}
	if cfg.TTL < 0 {
		return AgentConfig{}, fmt.Errorf("negative event ttl: %v", cfg.TTL)
	}

	return cfg, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
