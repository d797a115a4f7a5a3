package marker

import (
	"context"
	"log/slog"
)

// Filter is a [slog.Handler] middleware that passes a record to the next
// handler only when its marker satisfies the filter's targets according to
// [Match]. A Filter with nil targets drops every record.
//
// A marker bound with [slog.Logger.With] is honored as long as it was bound
// outside of any group; a marker attached to the record itself takes
// precedence.
//
// Create instances with [NewFilter].
type Filter struct {
	next    slog.Handler
	targets any
	bound   any
	grouped bool
}

// NewFilter creates a [Filter] in front of next. Targets has the same shape
// as the target argument of [Match].
func NewFilter(next slog.Handler, targets any) *Filter {
	return &Filter{next: next, targets: targets}
}

// Middleware returns a function that wraps handlers in a [Filter].
func Middleware(targets any) func(slog.Handler) slog.Handler {
	return func(next slog.Handler) slog.Handler {
		return NewFilter(next, targets)
	}
}

// Enabled defers to the next handler.
func (f *Filter) Enabled(ctx context.Context, level slog.Level) bool {
	return f.next.Enabled(ctx, level)
}

// Handle forwards r to the next handler if it matches.
func (f *Filter) Handle(ctx context.Context, r slog.Record) error {
	if !Match(boundRecord{rec: r, bound: f.bound}, f.targets) {
		return nil
	}

	return f.next.Handle(ctx, r)
}

// WithAttrs returns a child Filter, remembering any marker among attrs.
func (f *Filter) WithAttrs(attrs []slog.Attr) slog.Handler {
	child := *f
	child.next = f.next.WithAttrs(attrs)

	if !f.grouped {
		for _, a := range attrs {
			if a.Key == Key {
				child.bound = a.Value.Any()
			}
		}
	}

	return &child
}

// WithGroup returns a child Filter. Markers bound inside the group are not
// considered.
func (f *Filter) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}

	child := *f
	child.next = f.next.WithGroup(name)
	child.grouped = true

	return &child
}

type boundRecord struct {
	bound any
	rec   slog.Record
}

func (b boundRecord) Lookup(key string) (any, bool) {
	v, ok := FromRecord(b.rec).Lookup(key)
	if ok {
		return v, true
	}

	if key == Key && b.bound != nil {
		return b.bound, true
	}

	return nil, false
}
