package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	metrics "github.com/rcrowley/go-metrics"
	"go.uber.org/zap"

	"github.com/dlobue/metrics-riemann/internal/adapters/channel/riemann"
	"github.com/dlobue/metrics-riemann/internal/adapters/collector/system"
	"github.com/dlobue/metrics-riemann/internal/adapters/http/statusapi"
	journal "github.com/dlobue/metrics-riemann/internal/adapters/journal/file"
	"github.com/dlobue/metrics-riemann/internal/adapters/registry/gometrics"
	"github.com/dlobue/metrics-riemann/internal/config"
	"github.com/dlobue/metrics-riemann/internal/reporter"
	"github.com/dlobue/metrics-riemann/internal/schedule"
)

// run wires collector -> registry -> reporter -> channel and blocks until
// ctx is done.
func run(ctx context.Context, cfg config.AgentConfig, logger *zap.Logger) error {
	reg := metrics.NewRegistry()

	collector := system.New(reg, logger)
	if err := collector.Start(ctx, cfg.PollInterval); err != nil {
		return err
	}
	defer collector.Stop()

	channel := riemann.New(cfg.RiemannAddr, 0, riemann.WithLogger(logger))
	defer func() { _ = channel.Close() }()

	rep, err := reporter.New(reporter.Config{
		Registry:  gometrics.New(reg),
		Channel:   channel,
		Prefix:    cfg.Prefix,
		Separator: cfg.Separator,
		Host:      cfg.Host,
		Tags:      cfg.Tags,
		TTL:       cfg.TTL,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	status := statusapi.NewHandler()
	rep.Outcomes().Attach(status)
	if cfg.JournalFile != "" {
		rep.Outcomes().Attach(journal.New(cfg.JournalFile, logger))
	}

	var srv *http.Server
	if cfg.StatusAddr != "" {
		srv = &http.Server{Addr: cfg.StatusAddr, Handler: statusapi.NewRouter(status, logger)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server failed", zap.Error(err))
			}
		}()
	}

	sched := schedule.New(logger)
	sched.Every(ctx, cfg.ReportInterval, rep.Report)

	logger.Info("agent started",
		zap.String("riemann", cfg.RiemannAddr),
		zap.String("status", cfg.StatusAddr),
		zap.Duration("report", cfg.ReportInterval),
		zap.Duration("poll", cfg.PollInterval),
	)

	<-ctx.Done()
	sched.Stop()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return nil
}
