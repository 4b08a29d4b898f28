package logging

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// AuditLoggerConfig configures the audit trail.
type AuditLoggerConfig struct {
	Enabled bool
	File    string
}

// AuditEntry is one audit record, written as a single JSON line.
type AuditEntry struct {
	Timestamp     string            `json:"timestamp"`
	Command       string            `json:"command"`
	TraceID       string            `json:"trace_id"`
	Parameters    map[string]string `json:"parameters,omitempty"`
	Success       bool              `json:"success"`
	Error         string            `json:"error,omitempty"`
	ShipmentCount int               `json:"shipment_count,omitempty"`
	TotalCO2eKg   float64           `json:"total_co2e_kg,omitempty"`
	DurationMS    int64             `json:"duration_ms"`
}

// NewAuditEntry creates an audit entry for a command invocation.
func NewAuditEntry(command, traceID string) *AuditEntry {
	return &AuditEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
		TraceID:   traceID,
	}
}

// WithParameters attaches the command parameters.
func (e *AuditEntry) WithParameters(params map[string]string) *AuditEntry {
	e.Parameters = params
	return e
}

// WithError marks the entry as failed with the given message.
func (e *AuditEntry) WithError(msg string) *AuditEntry {
	e.Success = false
	e.Error = msg
	return e
}

// WithSuccess marks the entry as successful, recording how many shipments
// were processed and the total emissions estimated for them.
func (e *AuditEntry) WithSuccess(count int, totalCO2eKg float64) *AuditEntry {
	e.Success = true
	e.ShipmentCount = count
	e.TotalCO2eKg = totalCO2eKg
	return e
}

// WithDuration records the elapsed time since start.
func (e *AuditEntry) WithDuration(start time.Time) *AuditEntry {
	e.DurationMS = time.Since(start).Milliseconds()
	return e
}

// AuditLogger appends audit entries to a file. Implementations must be safe
// for concurrent use. The no-op logger returned for disabled configurations
// discards everything, so call sites never branch on whether auditing is on.
type AuditLogger interface {
	Log(ctx context.Context, entry AuditEntry)
	Close() error
}

// NewAuditLogger opens the audit file named by cfg. A disabled configuration,
// an empty file path, or a file that cannot be opened all yield the no-op
// logger: auditing never blocks command execution.
func NewAuditLogger(cfg AuditLoggerConfig) AuditLogger {
	if !cfg.Enabled || cfg.File == "" {
		return noopAuditLogger{}
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
		return noopAuditLogger{}
	}
	file, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return noopAuditLogger{}
	}
	return &fileAuditLogger{file: file}
}

type noopAuditLogger struct{}

func (noopAuditLogger) Log(context.Context, AuditEntry) {}
func (noopAuditLogger) Close() error                    { return nil }

type fileAuditLogger struct {
	mu   sync.Mutex
	file *os.File
}

func (l *fileAuditLogger) Log(ctx context.Context, entry AuditEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		FromContext(ctx).Warn().Err(err).Msg("failed to encode audit entry")
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	if _, err := l.file.Write(append(data, '\n')); err != nil {
		FromContext(ctx).Warn().Err(err).Msg("failed to write audit entry")
	}
}

func (l *fileAuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

type auditLoggerKey struct{}

// ContextWithAuditLogger returns a copy of ctx carrying logger.
func ContextWithAuditLogger(ctx context.Context, logger AuditLogger) context.Context {
	return context.WithValue(ctx, auditLoggerKey{}, logger)
}

// AuditLoggerFromContext returns the audit logger carried by ctx, or the
// no-op logger when none is present.
func AuditLoggerFromContext(ctx context.Context) AuditLogger {
	if l, ok := ctx.Value(auditLoggerKey{}).(AuditLogger); ok && l != nil {
		return l
	}
	return noopAuditLogger{}
}
