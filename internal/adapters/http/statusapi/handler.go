// Package statusapi exposes the reporting agent's health and last-cycle
// status over HTTP.
package statusapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dlobue/metrics-riemann/internal/reporter"
)

type cycleStatus struct {
	Time   int64  `json:"time"`
	Events int    `json:"events"`
	Acked  bool   `json:"acked"`
	Error  string `json:"error,omitempty"`
}

type statusResponse struct {
	UptimeSeconds int64        `json:"uptime_seconds"`
	Cycles        int64        `json:"cycles"`
	CyclesAcked   int64        `json:"cycles_acked"`
	EventsSent    int64        `json:"events_sent"`
	LastCycle     *cycleStatus `json:"last_cycle,omitempty"`
}

// Handler tracks report-cycle outcomes and serves them. It observes the
// reporter's outcome feed, so reads and writes may come from different
// goroutines.
type Handler struct {
	mu      sync.RWMutex
	last    *cycleStatus
	cycles  int64
	acked   int64
	events  int64
	started time.Time
}

func NewHandler() *Handler {
	return &Handler{started: time.Now()}
}

// Notify records the outcome of one report cycle.
func (h *Handler) Notify(_ context.Context, out reporter.CycleOutcome) {
	st := &cycleStatus{Time: out.Time, Events: out.Events, Acked: out.Acked}
	if out.Err != nil {
		st.Error = out.Err.Error()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = st
	h.cycles++
	if out.Acked {
		h.acked++
		h.events += int64(out.Events)
	}
}

func (h *Handler) Healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *Handler) Status(c *gin.Context) {
	h.mu.RLock()
	resp := statusResponse{
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Cycles:        h.cycles,
		CyclesAcked:   h.acked,
		EventsSent:    h.events,
		LastCycle:     h.last,
	}
	h.mu.RUnlock()

	c.JSON(http.StatusOK, resp)
}
