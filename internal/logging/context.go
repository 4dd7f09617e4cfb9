package logging

import (
	"context"
	"log/slog"

	"turntable/internal/services"
)

// Structured keys shared by every component.
const (
	FieldComponent = "component"
	FieldStage     = "stage"
	FieldRequestID = "request_id"
	// FieldEventType classifies a line for filtering, e.g. frame_skipped.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step on warnings and errors.
	FieldErrorHint = "error_hint"
	FieldImpact    = "impact"
)

// WithContext returns logger annotated with the session id, stage and
// request id carried by ctx, when present.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var fields []Attr
	if id, ok := services.SessionIDFromContext(ctx); ok {
		fields = append(fields, String(FieldSessionID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, String(FieldRequestID, rid))
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(args(fields)...)
}
