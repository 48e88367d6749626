package core

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

const defaultLogCode = 500

// AuditLog writes each flow transition twice: to the process logger and, when
// configured, to the queryable LogStore. LogStore failures never escape.
type AuditLog struct {
	logger  Logger
	store   LogStore
	metrics MetricsRecorder
	now     func() time.Time
}

func NewAuditLog(logger Logger, store LogStore, metrics MetricsRecorder, now func() time.Time) *AuditLog {
	if metrics == nil {
		metrics = NopMetricsRecorder{}
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &AuditLog{logger: logger, store: store, metrics: metrics, now: now}
}

func (a *AuditLog) Info(ctx context.Context, message string, fields map[string]any) {
	a.Record(ctx, SeverityInfo, 200, message, fields)
}

func (a *AuditLog) Warning(ctx context.Context, message string, fields map[string]any) {
	a.Record(ctx, SeverityWarning, defaultLogCode, message, fields)
}

func (a *AuditLog) Error(ctx context.Context, message string, fields map[string]any) {
	a.Record(ctx, SeverityError, defaultLogCode, message, fields)
}

func (a *AuditLog) Record(ctx context.Context, severity Severity, code int, message string, fields map[string]any) {
	if a == nil {
		return
	}
	if code <= 0 {
		code = defaultLogCode
	}
	contextFields := cloneFields(fields)
	contextFields["severity"] = string(severity)
	contextFields["code"] = code
	a.logWithLevel(ctx, severity, message, contextFields)

	a.metrics.IncCounter(ctx, "salesforce.audit.total", 1, map[string]string{
		"severity": string(severity),
	})

	if a.store == nil {
		return
	}
	entry := LogEntry{
		Timestamp: a.now().UTC(),
		Code:      code,
		Severity:  severity,
		Message:   message,
		Trace:     captureTrace(3),
	}
	if err := a.store.Append(ctx, entry); err != nil {
		a.logWithLevel(ctx, SeverityError, "audit log append failed", map[string]any{
			"error":   err.Error(),
			"message": message,
		})
	}
}

func (a *AuditLog) logWithLevel(ctx context.Context, severity Severity, message string, fields map[string]any) {
	if a.logger == nil {
		return
	}
	logger := a.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch severity {
	case SeverityError:
		logger.Error(message, args...)
	case SeverityWarning:
		logger.Warn(message, args...)
	default:
		logger.Info(message, args...)
	}
}

// observeOperation records duration and outcome counters for a flow step.
func (a *AuditLog) observeOperation(ctx context.Context, startedAt time.Time, operation string, err error) {
	if a == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	tags := map[string]string{
		"operation": normalizeOperation(operation),
		"status":    status,
	}
	a.metrics.IncCounter(ctx, "salesforce."+tags["operation"]+".total", 1, cloneTags(tags))
	a.metrics.ObserveHistogram(ctx, "salesforce."+tags["operation"]+".duration_ms", float64(time.Since(startedAt).Milliseconds()), cloneTags(tags))
}

// captureTrace renders the caller stack, dropping skip frames and everything
// inside the runtime.
func captureTrace(skip int) string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	lines := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") && !strings.HasPrefix(frame.Function, "testing.") {
			lines = append(lines, fmt.Sprintf("#%d %s:%d %s",
				len(lines),
				filepath.Base(filepath.Dir(frame.File))+"/"+filepath.Base(frame.File),
				frame.Line,
				frame.Function,
			))
		}
		if !more {
			break
		}
	}
	return strings.Join(lines, "\n")
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

func normalizeOperation(operation string) string {
	operation = strings.TrimSpace(strings.ToLower(operation))
	operation = strings.ReplaceAll(operation, " ", "_")
	operation = strings.ReplaceAll(operation, "-", "_")
	if operation == "" {
		return "unknown"
	}
	return operation
}
