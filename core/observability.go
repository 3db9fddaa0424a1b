package core

import (
	"context"
	"maps"
	"slices"
	"strings"
	"time"
)

// NopMetricsRecorder drops every measurement.
type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

const metricPrefix = "auth_session."

type logLevel uint8

const (
	levelInfo logLevel = iota
	levelWarn
	levelError
)

// opTracker is one store action in flight. done reports its outcome once,
// as a log line plus a counter and a duration histogram.
type opTracker struct {
	store  *Store
	ctx    context.Context
	name   string
	start  time.Time
	fields map[string]any
}

func (s *Store) track(ctx context.Context, name string) *opTracker {
	name = strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(name)))
	if name == "" {
		name = "unknown"
	}
	return &opTracker{store: s, ctx: ctx, name: name, start: time.Now(), fields: map[string]any{}}
}

func (op *opTracker) set(key string, value any) {
	op.fields[key] = value
}

func (op *opTracker) done(err error) {
	if op == nil || op.store == nil {
		return
	}
	elapsed := time.Since(op.start)
	status := outcomeStatus(err)

	fields := RedactSensitiveMap(op.fields)
	fields["event_type"] = op.name
	fields["status"] = status
	fields["duration_ms"] = elapsed.Milliseconds()

	tags := map[string]string{"operation": op.name, "status": status}
	if provider, ok := op.fields["provider"].(string); ok && provider != "" {
		tags["provider"] = provider
	}
	if err != nil {
		fields["error"] = err.Error()
		if structured, ok := AsStructured(err); ok {
			fields["error_code"] = structured.Code
			fields["status_code"] = structured.StatusCode
			if structured.Code != "" {
				tags["error_code"] = structured.Code
			}
		}
	}

	if recorder := op.store.metricsRecorder; recorder != nil {
		recorder.IncCounter(op.ctx, metricPrefix+op.name+".total", 1, maps.Clone(tags))
		recorder.ObserveHistogram(op.ctx, metricPrefix+op.name+".duration_ms", float64(elapsed.Milliseconds()), maps.Clone(tags))
	}

	if err != nil {
		op.store.emit(op.ctx, levelError, op.name+" failed", fields)
		return
	}
	op.store.emit(op.ctx, levelInfo, op.name+" succeeded", fields)
}

func outcomeStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsCancelled(err):
		return "cancelled"
	default:
		return "failure"
	}
}

// warn logs a recoverable problem that does not fail the current action.
func (s *Store) warn(ctx context.Context, message string, err error) {
	fields := map[string]any{}
	if err != nil {
		fields["error"] = err.Error()
	}
	s.emit(ctx, levelWarn, message, fields)
}

func (s *Store) emit(ctx context.Context, level logLevel, message string, fields map[string]any) {
	if s == nil || s.logger == nil {
		return
	}
	logger := s.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if withFields, ok := logger.(FieldsLogger); ok {
		logger = withFields.WithFields(maps.Clone(fields))
	}

	keys := slices.Sorted(maps.Keys(fields))
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}

	switch level {
	case levelError:
		logger.Error(message, args...)
	case levelWarn:
		logger.Warn(message, args...)
	default:
		logger.Info(message, args...)
	}
}
