package export

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TokenTimes/dropsd/internal/domain"
)

// State is the pipeline's observable lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
)

// SuccessWindow is how long a completed run stays visible before the pipeline
// reads as idle again.
const SuccessWindow = 3 * time.Second

// Step is the unit of work performed for each question in the payload. The
// reference step simulates backend latency; a real backend call substitutes
// here without changing the state machine.
type Step func(ctx context.Context, q domain.QuestionExport) error

// SimulatedStep returns a Step that sleeps for the given delay, honoring
// context cancellation.
func SimulatedStep(delay time.Duration) Step {
	return func(ctx context.Context, _ domain.QuestionExport) error {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
}

// Status is a snapshot of the pipeline's progress.
type Status struct {
	State    State
	Progress float64 // percent of questions processed in the current run
	RunID    string  // uuid of the current or most recent run
	Success  bool    // completed flag, self-clears after SuccessWindow
	LastErr  string  // error from the most recent failed run
}

// Pipeline drives a sequential export: one Step per question, progress after
// each unit, sink delivery on completion. A step failure aborts the whole run
// with no partial retry; the caller restarts from scratch. There is no
// cancellation once a run starts, beyond process-level context cancellation.
type Pipeline struct {
	step   Step
	sink   domain.ExportSink
	logger *slog.Logger

	mu           sync.Mutex
	running      bool
	progress     float64
	runID        string
	successUntil time.Time
	lastErr      string

	onProgress func(pct float64)
	now        func() time.Time
}

// NewPipeline creates a Pipeline that runs step per question and delivers the
// payload to sink on completion.
func NewPipeline(step Step, sink domain.ExportSink, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		step:   step,
		sink:   sink,
		logger: logger.With(slog.String("component", "export")),
		now:    time.Now,
	}
}

// OnProgress registers a callback invoked after each completed unit with the
// cumulative progress percentage. Must be set before Start.
func (p *Pipeline) OnProgress(fn func(pct float64)) {
	p.onProgress = fn
}

// Start runs the export for the given payload to completion. It is rejected
// with ErrExportRunning while a run is in flight and with the validation
// error when validate (may be nil) rejects the payload.
//
// The run processes the payload's questions sequentially, reporting progress
// as (completed / total) * 100 after each unit. On success the payload is
// delivered to the sink, the success flag raises for SuccessWindow, and the
// pipeline returns to idle. On a step error the run aborts, the error is
// logged and returned, and the pipeline returns to idle.
func (p *Pipeline) Start(ctx context.Context, payload domain.ExportPayload, validate func(domain.ExportPayload) error) error {
	if validate != nil {
		if err := validate(payload); err != nil {
			return fmt.Errorf("export: %w: %w", domain.ErrExportBlocked, err)
		}
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return domain.ErrExportRunning
	}
	p.running = true
	p.progress = 0
	p.lastErr = ""
	p.runID = uuid.NewString()
	runID := p.runID
	p.mu.Unlock()

	total := len(payload.Questions)
	p.logger.InfoContext(ctx, "export started",
		slog.String("run_id", runID),
		slog.Int("questions", total),
	)

	for i, q := range payload.Questions {
		if err := p.step(ctx, q); err != nil {
			p.fail(ctx, runID, err)
			return fmt.Errorf("export: step %d/%d: %w", i+1, total, err)
		}
		pct := float64(i+1) / float64(total) * 100
		p.mu.Lock()
		p.progress = pct
		p.mu.Unlock()
		if p.onProgress != nil {
			p.onProgress(pct)
		}
	}

	if err := p.sink.Deliver(ctx, payload); err != nil {
		p.fail(ctx, runID, err)
		return fmt.Errorf("export: deliver to %s: %w", p.sink.Name(), err)
	}

	p.mu.Lock()
	p.running = false
	p.progress = 0
	p.successUntil = p.now().Add(SuccessWindow)
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "export completed",
		slog.String("run_id", runID),
		slog.Int("questions", total),
		slog.String("sink", p.sink.Name()),
	)
	return nil
}

// fail records the error and returns the pipeline to idle. Failures are not
// resumable.
func (p *Pipeline) fail(ctx context.Context, runID string, err error) {
	p.mu.Lock()
	p.running = false
	p.progress = 0
	p.lastErr = err.Error()
	p.mu.Unlock()

	p.logger.ErrorContext(ctx, "export failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
	)
}

// Running reports whether a run is in flight.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Status returns the pipeline's current snapshot. State reads Completed while
// the success window is open, then settles back to Idle.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := Status{
		Progress: p.progress,
		RunID:    p.runID,
		LastErr:  p.lastErr,
	}
	switch {
	case p.running:
		st.State = StateRunning
	case p.now().Before(p.successUntil):
		st.State = StateCompleted
		st.Success = true
	default:
		st.State = StateIdle
	}
	return st
}
