package factory

import (
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// TraceHook copies the span and trace ids of entries logged with WithContext.
type TraceHook struct{}

func NewTraceHook() *TraceHook {
	return &TraceHook{}
}

func (h *TraceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *TraceHook) Fire(entry *logrus.Entry) error {
	if entry.Context == nil {
		return nil
	}

	spanCtx := trace.SpanContextFromContext(entry.Context)
	if !spanCtx.IsValid() {
		return nil
	}

	entry.Data["trace_id"] = spanCtx.TraceID().String()
	entry.Data["span_id"] = spanCtx.SpanID().String()
	return nil
}
