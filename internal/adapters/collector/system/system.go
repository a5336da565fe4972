// Package system samples Go runtime stats and host CPU/RAM usage into a
// go-metrics registry for the reporter to pick up.
package system

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/dlobue/metrics-riemann/internal/ports"
)

// Gauge names registered by the collector.
const (
	MHeapAlloc     = "runtime.mem.heap_alloc"
	MHeapObjects   = "runtime.mem.heap_objects"
	MTotalAlloc    = "runtime.mem.total_alloc"
	MNumGC         = "runtime.gc.num"
	MGCCPUFraction = "runtime.gc.cpu_fraction"
	MGoroutines    = "runtime.goroutines"
	MMemTotal      = "system.mem.total"
	MMemFree       = "system.mem.free"
	MMemUsedPct    = "system.mem.used_percent"
	MCPUUsedPct    = "system.cpu.used_percent"
)

// Collector periodically samples runtime and host metrics in a background
// goroutine until Stop or context cancellation.
type Collector struct {
	reg  metrics.Registry
	log  *zap.Logger
	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

var _ ports.Collector = (*Collector)(nil)

func New(reg metrics.Registry, log *zap.Logger) *Collector {
	if reg == nil {
		reg = metrics.DefaultRegistry
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{reg: reg, log: log, stop: make(chan struct{})}
}

// Start launches the sampling goroutine.
func (c *Collector) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("system collector: non-positive interval")
	}
	t := time.NewTicker(interval)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer t.Stop()
		var ms runtime.MemStats
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-t.C:
				c.sample(&ms)
			}
		}
	}()
	return nil
}

// Stop halts sampling and waits for the goroutine to exit.
func (c *Collector) Stop() {
	c.once.Do(func() { close(c.stop) })
	c.wg.Wait()
}

func (c *Collector) sample(ms *runtime.MemStats) {
	runtime.ReadMemStats(ms)
	metrics.GetOrRegisterGauge(MHeapAlloc, c.reg).Update(int64(ms.HeapAlloc))
	metrics.GetOrRegisterGauge(MHeapObjects, c.reg).Update(int64(ms.HeapObjects))
	metrics.GetOrRegisterGauge(MTotalAlloc, c.reg).Update(int64(ms.TotalAlloc))
	metrics.GetOrRegisterGauge(MNumGC, c.reg).Update(int64(ms.NumGC))
	metrics.GetOrRegisterGaugeFloat64(MGCCPUFraction, c.reg).Update(ms.GCCPUFraction)
	metrics.GetOrRegisterGauge(MGoroutines, c.reg).Update(int64(runtime.NumGoroutine()))

	if vm, err := mem.VirtualMemory(); err == nil {
		metrics.GetOrRegisterGauge(MMemTotal, c.reg).Update(int64(vm.Total))
		metrics.GetOrRegisterGauge(MMemFree, c.reg).Update(int64(vm.Free))
		metrics.GetOrRegisterGaugeFloat64(MMemUsedPct, c.reg).Update(vm.UsedPercent)
	} else {
		c.log.Warn("memory sample failed", zap.Error(err))
	}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		metrics.GetOrRegisterGaugeFloat64(MCPUUsedPct, c.reg).Update(pct[0])
	} else if err != nil {
		c.log.Warn("cpu sample failed", zap.Error(err))
	}
}
