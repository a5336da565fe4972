// Package file appends report-cycle outcomes to a newline-delimited JSON
// journal. With no retry buffer in the delivery path, the journal is the only
// record of batches that were dropped.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/dlobue/metrics-riemann/internal/reporter"
)

type entry struct {
	Time   int64  `json:"ts"`
	Events int    `json:"events"`
	Acked  bool   `json:"acked"`
	Error  string `json:"error,omitempty"`
}

// Writer records one JSON line per report cycle. Journal failures are logged
// and never interfere with reporting.
type Writer struct {
	path string
	log  *zap.Logger
	mu   sync.Mutex
}

// New creates a Writer appending to the given path. An empty path yields a
// no-op writer.
func New(path string, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{path: path, log: log}
}

// Notify appends the outcome of one report cycle.
func (w *Writer) Notify(_ context.Context, out reporter.CycleOutcome) {
	if w == nil || w.path == "" {
		return
	}

	e := entry{Time: out.Time, Events: out.Events, Acked: out.Acked}
	if out.Err != nil {
		e.Error = out.Err.Error()
	}

	if err := w.append(e); err != nil {
		w.log.Warn("journal write failed", zap.Error(err))
	}
}

func (w *Writer) append(e entry) (retErr error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close journal: %w", cerr)
		}
	}()

	if _, err := f.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}
