// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// LeadIDKey is the context key for the lead being processed
	LeadIDKey contextKey = "lead_id"
	// JobIDKey is the context key for scheduled job invocations
	JobIDKey contextKey = "job_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id, lead_id, and job_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if leadID, ok := ctx.Value(LeadIDKey).(string); ok && leadID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("lead_id", leadID))}
	}

	if jobID, ok := ctx.Value(JobIDKey).(string); ok && jobID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("job_id", jobID))}
	}

	return newLogger
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// DispatchEvent logs the outcome of a channel dispatch.
func (l *Logger) DispatchEvent(channel, stepID, leadID string, success bool, reason string) {
	if success {
		l.Info("dispatch_event",
			slog.String("channel", channel),
			slog.String("step_id", stepID),
			slog.String("lead_id", leadID),
			slog.Bool("success", success),
		)
	} else {
		l.Warn("dispatch_event",
			slog.String("channel", channel),
			slog.String("step_id", stepID),
			slog.String("lead_id", leadID),
			slog.Bool("success", success),
			slog.String("reason", reason),
		)
	}
}

// JobError logs a scheduled job failure for a single item without aborting the batch.
func (l *Logger) JobError(job, itemID string, err error) {
	l.Error("job_item_error",
		slog.String("job", job),
		slog.String("item_id", itemID),
		slog.String("error", err.Error()),
	)
}

// JobSummary logs the outcome of one scheduled job invocation.
func (l *Logger) JobSummary(job string, processed, skipped, failed int) {
	l.Info("job_summary",
		slog.String("job", job),
		slog.Int("processed", processed),
		slog.Int("skipped", skipped),
		slog.Int("failed", failed),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
