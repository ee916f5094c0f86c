package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/replaykit/replaykit/internal/config"
	"github.com/replaykit/replaykit/internal/vars"
	"github.com/replaykit/replaykit/internal/workflow"
)

// RowReporter receives the outcome of each batch row as it finishes.
type RowReporter func(row int, res *RunResult)

// Summary aggregates a batch run.
type Summary struct {
	Total     int          `json:"total"`
	Completed int          `json:"completed"`
	Failed    int          `json:"failed"`
	Stopped   int          `json:"stopped"`
	Rows      []*RunResult `json:"rows"`
}

// BatchRunner runs a workflow once per variable row, strictly in row
// order and never concurrently: every row drives the same physical
// pointer and screen.
type BatchRunner struct {
	opts      Options
	sig       *Signals
	log       *zap.Logger
	rowReport RowReporter
}

// NewBatch builds a batch runner. A fresh Controller is constructed
// per row from o, sharing o.Signals so one stop ends the whole batch.
func NewBatch(o Options, rowReport RowReporter) *BatchRunner {
	if o.Signals == nil {
		o.Signals = NewSignals()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return &BatchRunner{opts: o, sig: o.Signals, log: o.Logger, rowReport: rowReport}
}

// Signals returns the shared control signals.
func (b *BatchRunner) Signals() *Signals { return b.sig }

// Run executes the workflow once per table row. A row's failure is
// isolated: it is recorded and the batch proceeds to the next row.
// A user stop ends the batch immediately.
func (b *BatchRunner) Run(wf *workflow.Workflow, table *vars.Table) (*Summary, error) {
	sum := &Summary{Total: table.Len()}
	b.log.Info("batch started", zap.Int("rows", sum.Total))

	for i := 0; i < table.Len(); i++ {
		if b.sig.IsStopped() {
			b.log.Info("batch stopped", zap.Int("row", i))
			break
		}

		ctl := New(b.opts)
		ctl.row = i
		res, err := ctl.Run(wf, table.Row(i))
		if err != nil {
			return sum, err
		}

		sum.Rows = append(sum.Rows, res)
		switch res.Status {
		case RunCompleted:
			sum.Completed++
		case RunFailed:
			sum.Failed++
		case RunStopped:
			sum.Stopped++
		}
		if b.rowReport != nil {
			b.rowReport(i, res)
		}

		if res.Status == RunStopped {
			break
		}

		// Settle between rows so the target application is back in
		// its starting state.
		if i < table.Len()-1 {
			if !b.sleep(config.Seconds(b.opts.Config.BatchRowDelay)) {
				break
			}
		}
	}

	b.log.Info("batch finished",
		zap.Int("completed", sum.Completed),
		zap.Int("failed", sum.Failed),
		zap.Int("stopped", sum.Stopped))
	return sum, nil
}

func (b *BatchRunner) sleep(d time.Duration) bool {
	if d <= 0 {
		return !b.sig.IsStopped()
	}
	select {
	case <-b.sig.Stopped():
		return false
	case <-time.After(d):
		return true
	}
}
