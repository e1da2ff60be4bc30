package export

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/TokenTimes/dropsd/internal/domain"
)

type recordSink struct {
	payloads []domain.ExportPayload
	err      error
}

func (s *recordSink) Deliver(_ context.Context, p domain.ExportPayload) error {
	if s.err != nil {
		return s.err
	}
	s.payloads = append(s.payloads, p)
	return nil
}

func (s *recordSink) Name() string { return "record" }

func noopStep(context.Context, domain.QuestionExport) error { return nil }

func testPipeline(step Step, sink domain.ExportSink) *Pipeline {
	return NewPipeline(step, sink, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func threeQuestions() domain.ExportPayload {
	return domain.ExportPayload{
		Questions: []domain.QuestionExport{
			{Question: "q1"}, {Question: "q2"}, {Question: "q3"},
		},
	}
}

func TestStart_ReportsSequentialProgress(t *testing.T) {
	sink := &recordSink{}
	p := testPipeline(noopStep, sink)

	var progress []float64
	p.OnProgress(func(pct float64) { progress = append(progress, pct) })

	if err := p.Start(context.Background(), threeQuestions(), nil); err != nil {
		t.Fatal(err)
	}

	want := []float64{100.0 / 3, 200.0 / 3, 100}
	if len(progress) != len(want) {
		t.Fatalf("progress updates = %v, want %d values", progress, len(want))
	}
	for i, w := range want {
		if math.Abs(progress[i]-w) > 1e-9 {
			t.Errorf("progress[%d] = %v, want %v", i, progress[i], w)
		}
	}
	if len(sink.payloads) != 1 {
		t.Fatalf("sink deliveries = %d, want 1", len(sink.payloads))
	}
}

func TestStart_SuccessWindowThenIdle(t *testing.T) {
	p := testPipeline(noopStep, &recordSink{})
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	p.now = func() time.Time { return current }

	if err := p.Start(context.Background(), threeQuestions(), nil); err != nil {
		t.Fatal(err)
	}

	st := p.Status()
	if st.State != StateCompleted || !st.Success {
		t.Errorf("status right after completion = %+v, want completed", st)
	}
	if st.RunID == "" {
		t.Error("run id should be recorded")
	}

	current = base.Add(SuccessWindow + time.Millisecond)
	st = p.Status()
	if st.State != StateIdle || st.Success {
		t.Errorf("status after success window = %+v, want idle", st)
	}
}

func TestStart_RejectedWhileRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	blocking := func(ctx context.Context, _ domain.QuestionExport) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	}
	p := testPipeline(blocking, &recordSink{})

	done := make(chan error, 1)
	go func() { done <- p.Start(context.Background(), threeQuestions(), nil) }()
	<-started

	if err := p.Start(context.Background(), threeQuestions(), nil); !errors.Is(err, domain.ErrExportRunning) {
		t.Errorf("second start = %v, want ErrExportRunning", err)
	}
	if st := p.Status(); st.State != StateRunning {
		t.Errorf("state = %v, want running", st.State)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
}

func TestStart_ValidationFailureBlocks(t *testing.T) {
	sink := &recordSink{}
	p := testPipeline(noopStep, sink)

	reason := errors.New("no markets selected")
	err := p.Start(context.Background(), threeQuestions(), func(domain.ExportPayload) error {
		return reason
	})

	if !errors.Is(err, domain.ErrExportBlocked) {
		t.Errorf("err = %v, want ErrExportBlocked", err)
	}
	if !errors.Is(err, reason) {
		t.Errorf("err = %v, want wrapped validation reason", err)
	}
	if len(sink.payloads) != 0 {
		t.Error("blocked run must not deliver")
	}
}

func TestStart_StepFailureAbortsRun(t *testing.T) {
	sink := &recordSink{}
	boom := errors.New("backend unavailable")
	step := func(_ context.Context, q domain.QuestionExport) error {
		if q.Question == "q2" {
			return boom
		}
		return nil
	}
	p := testPipeline(step, sink)

	err := p.Start(context.Background(), threeQuestions(), nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want step error", err)
	}
	if len(sink.payloads) != 0 {
		t.Error("failed run must not deliver")
	}

	st := p.Status()
	if st.State != StateIdle {
		t.Errorf("state after failure = %v, want idle", st.State)
	}
	if st.LastErr == "" {
		t.Error("failure reason should be recorded")
	}

	// A fresh run starts from scratch and succeeds.
	p2 := testPipeline(noopStep, sink)
	if err := p2.Start(context.Background(), threeQuestions(), nil); err != nil {
		t.Fatal(err)
	}
}

func TestStart_SinkFailure(t *testing.T) {
	sink := &recordSink{err: errors.New("bucket denied")}
	p := testPipeline(noopStep, sink)

	err := p.Start(context.Background(), threeQuestions(), nil)
	if err == nil {
		t.Fatal("expected delivery error")
	}
	if st := p.Status(); st.State != StateIdle || st.LastErr == "" {
		t.Errorf("status = %+v, want idle with recorded error", st)
	}
}

func TestSimulatedStep_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := SimulatedStep(time.Hour)(ctx, domain.QuestionExport{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
