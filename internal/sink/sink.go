// Package sink provides delivery targets for completed export payloads: the
// reference log sink, a local JSON file download, and S3 archival. A Multi
// sink fans out to several targets.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	s3blob "github.com/TokenTimes/dropsd/internal/blob/s3"
	"github.com/TokenTimes/dropsd/internal/domain"
)

// LogSink writes the payload to the structured log. This is the reference
// delivery target.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With(slog.String("component", "sink"))}
}

// Deliver logs the payload as indented JSON.
func (s *LogSink) Deliver(ctx context.Context, payload domain.ExportPayload) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("sink/log: marshal payload: %w", err)
	}
	s.logger.InfoContext(ctx, "export payload",
		slog.Int("questions", len(payload.Questions)),
		slog.Float64("total_invested", payload.TotalInvested),
		slog.String("payload", string(data)),
	)
	return nil
}

// Name identifies the sink in logs.
func (s *LogSink) Name() string { return "log" }

// FileSink writes the payload to a dated JSON file in a local directory,
// named selected-markets-YYYY-MM-DD.json.
type FileSink struct {
	dir string
	now func() time.Time
}

// NewFileSink creates a FileSink writing into dir.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir, now: time.Now}
}

// Deliver writes the payload file, creating the directory if needed.
func (s *FileSink) Deliver(_ context.Context, payload domain.ExportPayload) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("sink/file: marshal payload: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("sink/file: create dir %s: %w", s.dir, err)
	}

	name := fmt.Sprintf("selected-markets-%s.json", s.now().UTC().Format("2006-01-02"))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("sink/file: write %s: %w", path, err)
	}
	return nil
}

// Name identifies the sink in logs.
func (s *FileSink) Name() string { return "file" }

// S3Sink archives each payload as a uniquely keyed JSON object under an
// exports/ prefix.
type S3Sink struct {
	writer *s3blob.Writer
	now    func() time.Time
}

// NewS3Sink creates an S3Sink uploading through the given writer.
func NewS3Sink(writer *s3blob.Writer) *S3Sink {
	return &S3Sink{writer: writer, now: time.Now}
}

// Deliver uploads the payload to exports/YYYY-MM-DD/<uuid>.json.
func (s *S3Sink) Deliver(ctx context.Context, payload domain.ExportPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sink/s3: marshal payload: %w", err)
	}

	key := fmt.Sprintf("exports/%s/%s.json", s.now().UTC().Format("2006-01-02"), uuid.NewString())
	if err := s.writer.Put(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("sink/s3: %w", err)
	}
	return nil
}

// Name identifies the sink in logs.
func (s *S3Sink) Name() string { return "s3" }

// Multi delivers to every sink in order. All sinks are attempted; failures
// are collected and returned as one error.
type Multi struct {
	sinks []domain.ExportSink
}

// NewMulti creates a Multi over the given sinks.
func NewMulti(sinks ...domain.ExportSink) *Multi {
	return &Multi{sinks: sinks}
}

// Deliver fans the payload out to all sinks.
func (m *Multi) Deliver(ctx context.Context, payload domain.ExportPayload) error {
	var errs []string
	for _, s := range m.sinks {
		if err := s.Deliver(ctx, payload); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("sink/multi: %d sink(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// Name identifies the sink in logs.
func (m *Multi) Name() string { return "multi" }

// Compile-time interface checks.
var (
	_ domain.ExportSink = (*LogSink)(nil)
	_ domain.ExportSink = (*FileSink)(nil)
	_ domain.ExportSink = (*S3Sink)(nil)
	_ domain.ExportSink = (*Multi)(nil)
)
