package marker

import (
	"context"
	"errors"
	"log/slog"
	"slices"
)

// ErrMarkerConflict indicates that a log call already carries a marker
// attribute.
var ErrMarkerConflict = errors.New("marker already attached")

// Logger attaches a [Marker] to each log call before delegating to a
// [*slog.Logger].
//
// Create instances with [NewLogger].
type Logger struct {
	logger *slog.Logger
}

// NewLogger wraps l. A nil l uses [slog.Default] at call time.
func NewLogger(l *slog.Logger) *Logger {
	return &Logger{logger: l}
}

// Logger returns the wrapped [*slog.Logger].
func (l *Logger) Logger() *slog.Logger {
	if l.logger == nil {
		return slog.Default()
	}

	return l.logger
}

// With returns a Logger whose wrapped logger includes args.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.Logger().With(args...)}
}

// Debug logs msg at [slog.LevelDebug] with m attached.
func (l *Logger) Debug(ctx context.Context, m Marker, msg string, args ...any) error {
	return l.Log(ctx, slog.LevelDebug, m, msg, args...)
}

// Info logs msg at [slog.LevelInfo] with m attached.
func (l *Logger) Info(ctx context.Context, m Marker, msg string, args ...any) error {
	return l.Log(ctx, slog.LevelInfo, m, msg, args...)
}

// Warn logs msg at [slog.LevelWarn] with m attached.
func (l *Logger) Warn(ctx context.Context, m Marker, msg string, args ...any) error {
	return l.Log(ctx, slog.LevelWarn, m, msg, args...)
}

// Error logs msg at [slog.LevelError] with m attached.
func (l *Logger) Error(ctx context.Context, m Marker, msg string, args ...any) error {
	return l.Log(ctx, slog.LevelError, m, msg, args...)
}

// Log logs msg at level with m attached. Nothing is logged if m is nil
// ([ErrInvalidMarker]) or if args already carry a marker
// ([ErrMarkerConflict]).
func (l *Logger) Log(ctx context.Context, level slog.Level, m Marker, msg string, args ...any) error {
	if !valid(m) {
		return ErrInvalidMarker
	}

	if hasMarker(args) {
		return ErrMarkerConflict
	}

	args = append(slices.Clip(args), Attr(m))
	l.Logger().Log(ctx, level, msg, args...)

	return nil
}

// hasMarker scans slog-style args for the marker key, following the same
// key/value pairing rules as [slog.Logger.Log].
func hasMarker(args []any) bool {
	for i := 0; i < len(args); i++ {
		switch a := args[i].(type) {
		case slog.Attr:
			if a.Key == Key {
				return true
			}
		case string:
			if a == Key && i+1 < len(args) {
				return true
			}

			i++
		}
	}

	return false
}
