package mdc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

// Key is the group name under which diagnostic values are attached to a
// record.
const Key = "mdc"

// ErrKeyConflict indicates that a record attribute would shadow a diagnostic
// value.
var ErrKeyConflict = errors.New("attribute conflicts with diagnostic context")

// Handler is a [slog.Handler] middleware that attaches the diagnostic context
// of each call's [context.Context] to the record as a group named [Key].
//
// If one of the record's attributes is named [Key] or has the same name as a
// diagnostic value, the record is not handled and [ErrKeyConflict] is
// returned. [slog.Logger] discards handler errors, so the conflict is only
// visible to callers that invoke [Handler.Handle] directly; through a
// logger the record is dropped.
//
// Create instances with [NewHandler].
type Handler struct {
	next slog.Handler
}

// NewHandler creates a [Handler] in front of next.
func NewHandler(next slog.Handler) *Handler {
	return &Handler{next: next}
}

// Middleware returns a function that wraps handlers in a [Handler].
func Middleware() func(slog.Handler) slog.Handler {
	return func(next slog.Handler) slog.Handler {
		return NewHandler(next)
	}
}

// Enabled defers to the next handler.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle attaches the diagnostic context and forwards r.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	values := fromContext(ctx)
	if len(values) == 0 {
		return h.next.Handle(ctx, r)
	}

	var conflict string

	r.Attrs(func(a slog.Attr) bool {
		if _, ok := values[a.Key]; ok || a.Key == Key {
			conflict = a.Key

			return false
		}

		return true
	})

	if conflict != "" {
		return fmt.Errorf("%w: %q", ErrKeyConflict, conflict)
	}

	attrs := make([]any, 0, len(values))
	for _, k := range slices.Sorted(maps.Keys(values)) {
		attrs = append(attrs, slog.Any(k, values[k]))
	}

	r = r.Clone()
	r.AddAttrs(slog.Group(Key, attrs...))

	return h.next.Handle(ctx, r)
}

// WithAttrs returns a child Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{next: h.next.WithAttrs(attrs)}
}

// WithGroup returns a child Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name)}
}

// FromRecord returns the diagnostic values attached to r by a [Handler], or
// nil if there are none.
func FromRecord(r slog.Record) map[string]any {
	var values map[string]any

	r.Attrs(func(a slog.Attr) bool {
		if a.Key != Key || a.Value.Kind() != slog.KindGroup {
			return true
		}

		group := a.Value.Group()
		values = make(map[string]any, len(group))

		for _, ga := range group {
			values[ga.Key] = ga.Value.Resolve().Any()
		}

		return false
	})

	return values
}
