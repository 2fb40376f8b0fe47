package clmediakit

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with index-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that writes JSON-formatted logs to w.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that writes human-readable text logs to w.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithPath adds the index path to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{Logger: l.Logger.With("path", path)}
}

// WithID adds an ID field to the logger (useful for tagging operations).
func (l *Logger) WithID(id uint64) *Logger {
	return &Logger{Logger: l.Logger.With("id", id)}
}

// LogAdd logs an add operation.
func (l *Logger) LogAdd(ctx context.Context, id uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add failed", "id", id, "error", err)
		return
	}
	l.DebugContext(ctx, "add completed", "id", id)
}

// LogBatchAdd logs a batch add operation. The batch is applied as a whole or not at all.
func (l *Logger) LogBatchAdd(ctx context.Context, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "batch add failed", "count", count, "error", err)
		return
	}
	l.DebugContext(ctx, "batch add completed", "count", count)
}

// LogReplace logs a replace operation.
func (l *Logger) LogReplace(ctx context.Context, id uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "replace failed", "id", id, "error", err)
		return
	}
	l.DebugContext(ctx, "replace completed", "id", id)
}

// LogRemove logs a remove operation.
func (l *Logger) LogRemove(ctx context.Context, id uint64, removed bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "remove failed", "id", id, "error", err)
		return
	}
	l.DebugContext(ctx, "remove completed", "id", id, "removed", removed)
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed", "k", k, "error", err)
		return
	}
	l.DebugContext(ctx, "search completed", "k", k, "results", resultsFound)
}

// LogPersist logs a write of the index file.
func (l *Logger) LogPersist(ctx context.Context, path string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "persist failed", "path", path, "error", err)
		return
	}
	l.DebugContext(ctx, "index persisted", "path", path, "bytes", size)
}

// LogLoad logs opening an index. created reports that no file existed.
func (l *Logger) LogLoad(ctx context.Context, path string, live int, created bool, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "index load failed", "path", path, "error", err)
	case created:
		l.InfoContext(ctx, "index initialized", "path", path)
	default:
		l.InfoContext(ctx, "index loaded", "path", path, "live", live)
	}
}

// LogCompact logs a compaction.
func (l *Logger) LogCompact(ctx context.Context, reclaimed int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "compaction failed", "error", err)
		return
	}
	l.InfoContext(ctx, "compaction completed", "reclaimed", reclaimed)
}

// LogMirror logs an upload to or download from a mirror.
func (l *Logger) LogMirror(ctx context.Context, op, target string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "mirror "+op+" failed", "target", target, "error", err)
		return
	}
	l.DebugContext(ctx, "mirror "+op+" completed", "target", target)
}
