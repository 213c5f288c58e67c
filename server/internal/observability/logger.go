package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldRunID is the field name for a scheduling run ID.
	LogFieldRunID = "run_id"
	// LogFieldUserID is the field name for user ID.
	LogFieldUserID = "user_id"
	// LogFieldTopicID is the field name for topic ID.
	LogFieldTopicID = "topic_id"
	// LogFieldBatch is the field name for the batch index within a run.
	LogFieldBatch = "batch"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldErrorCode is the field name for engine error code.
	LogFieldErrorCode = "error_code"
)

// RunContext carries structured logging state for a single scheduling run.
type RunContext struct {
	RunID     string
	StartTime time.Time
	Logger    *slog.Logger
}

// NewRunContext creates a run context with a generated run ID.
func NewRunContext(logger *slog.Logger) *RunContext {
	return &RunContext{
		RunID:     uuid.New().String(),
		StartTime: time.Now(),
		Logger:    logger,
	}
}

// WithFields returns a logger with the run's base fields plus additional fields.
func (r *RunContext) WithFields(attrs ...slog.Attr) *slog.Logger {
	base := r.baseAttrs()
	result := make([]any, 0, len(base)+len(attrs))
	for _, attr := range base {
		result = append(result, attr)
	}
	for _, attr := range attrs {
		result = append(result, attr)
	}
	return r.Logger.With(result...)
}

// Info logs an info message.
func (r *RunContext) Info(msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(context.Background(), slog.LevelInfo, msg, r.baseAttrsAppended(attrs...)...)
}

// Debug logs a debug message.
func (r *RunContext) Debug(msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, r.baseAttrsAppended(attrs...)...)
}

// Warn logs a warning message.
func (r *RunContext) Warn(msg string, attrs ...slog.Attr) {
	r.Logger.LogAttrs(context.Background(), slog.LevelWarn, msg, r.baseAttrsAppended(attrs...)...)
}

// Error logs an error message with the error.
func (r *RunContext) Error(msg string, err error, attrs ...slog.Attr) {
	allAttrs := append(attrs, slog.String("error", err.Error()))
	r.Logger.LogAttrs(context.Background(), slog.LevelError, msg, r.baseAttrsAppended(allAttrs...)...)
}

// Duration returns the elapsed time since the run started.
func (r *RunContext) Duration() time.Duration {
	return time.Since(r.StartTime)
}

// DurationMs returns the elapsed time in milliseconds.
func (r *RunContext) DurationMs() int64 {
	return r.Duration().Milliseconds()
}

func (r *RunContext) baseAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String(LogFieldRunID, r.RunID),
	}
}

func (r *RunContext) baseAttrsAppended(attrs ...slog.Attr) []slog.Attr {
	return append(r.baseAttrs(), attrs...)
}

type ctxKey struct{}

// WithRunContext adds the run context to the context.
func WithRunContext(ctx context.Context, runCtx *RunContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, runCtx)
}

// FromContext extracts the run context from the context.
func FromContext(ctx context.Context) (*RunContext, bool) {
	runCtx, ok := ctx.Value(ctxKey{}).(*RunContext)
	return runCtx, ok
}
