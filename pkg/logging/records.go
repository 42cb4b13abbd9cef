package logging

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// Event logs a business event
func (l *Logger) Event(ctx context.Context, eventType string, data map[string]any) {
	l.WithContext(ctx).Info("Business event", flatten([]any{"eventType", eventType}, data)...)
}

// Audit records who did what to which resource. operator is empty when unknown.
func (l *Logger) Audit(ctx context.Context, action, resource, resourceID, operator string, details map[string]any) {
	attrs := []any{"auditAction", action, "resource", resource, "resourceId", resourceID, "operator", operator}
	l.WithContext(ctx).Info("Audit event", flatten(attrs, details)...)
}

// StockMovement logs one ledger primitive at debug level
func (l *Logger) StockMovement(ctx context.Context, kind, instrumentID, unitID string, quantity int) {
	l.WithContext(ctx).Debug("Stock movement",
		"kind", kind, "instrumentId", instrumentID, "unitId", unitID, "quantity", quantity)
}

// HTTPRequest logs a served request, at warn for 4xx and error for 5xx
func (l *Logger) HTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration, clientIP, userAgent string) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	l.WithContext(ctx).Log(ctx, level, "HTTP request",
		"method", method,
		"path", path,
		"status", status,
		"durationMs", duration.Milliseconds(),
		"clientIP", clientIP,
		"userAgent", userAgent,
	)
}

// DatabaseQuery logs a storage call, at debug unless it failed
func (l *Logger) DatabaseQuery(ctx context.Context, collection, operation string, duration time.Duration, success bool, rowsAffected int64) {
	l.WithContext(ctx).Log(ctx, outcomeLevel(success), "Database query",
		"collection", collection,
		"operation", operation,
		"durationMs", duration.Milliseconds(),
		"success", success,
		"rowsAffected", rowsAffected,
	)
}

// KafkaPublish logs a publish, at debug unless it failed
func (l *Logger) KafkaPublish(ctx context.Context, topic, eventType string, success bool, duration time.Duration) {
	l.WithContext(ctx).Log(ctx, outcomeLevel(success), "Kafka publish",
		"topic", topic,
		"eventType", eventType,
		"success", success,
		"durationMs", duration.Milliseconds(),
	)
}

// Panic logs a recovered panic with the current goroutine's stack
func (l *Logger) Panic(ctx context.Context, recovered any) {
	stack := make([]byte, 4096)
	n := runtime.Stack(stack, false)
	l.WithContext(ctx).Error("Panic recovered", "panic", recovered, "stack", string(stack[:n]))
}

func outcomeLevel(success bool) slog.Level {
	if success {
		return slog.LevelDebug
	}
	return slog.LevelError
}
