package log

import (
	"context"
	"log/slog"
	"slices"
	"sync/atomic"
)

// Switch is a [slog.Handler] that forwards to a target handler which can be
// replaced at any time with [Switch.Set]. Loggers derived from a Switch
// through With or WithGroup follow later replacements.
//
// Create instances with [NewSwitch].
type Switch struct {
	target *atomic.Pointer[box]
	ops    []func(slog.Handler) slog.Handler
	cache  *atomic.Pointer[derived]
}

type box struct {
	h slog.Handler
}

type derived struct {
	from *box
	h    slog.Handler
}

// NewSwitch creates a [Switch] forwarding to h.
func NewSwitch(h slog.Handler) *Switch {
	s := &Switch{
		target: &atomic.Pointer[box]{},
		cache:  &atomic.Pointer[derived]{},
	}
	s.target.Store(&box{h: h})

	return s
}

// Set replaces the target handler and returns the previous one.
func (s *Switch) Set(h slog.Handler) slog.Handler {
	return s.target.Swap(&box{h: h}).h
}

// Current returns the current target handler.
func (s *Switch) Current() slog.Handler {
	return s.target.Load().h
}

// Enabled defers to the current target.
func (s *Switch) Enabled(ctx context.Context, level slog.Level) bool {
	return s.resolve().Enabled(ctx, level)
}

// Handle defers to the current target.
func (s *Switch) Handle(ctx context.Context, r slog.Record) error {
	return s.resolve().Handle(ctx, r)
}

// WithAttrs returns a child Switch sharing the same target.
func (s *Switch) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return s
	}

	return s.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

// WithGroup returns a child Switch sharing the same target.
func (s *Switch) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}

	return s.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (s *Switch) derive(op func(slog.Handler) slog.Handler) *Switch {
	return &Switch{
		target: s.target,
		ops:    append(slices.Clip(s.ops), op),
		cache:  &atomic.Pointer[derived]{},
	}
}

// resolve returns the target with this Switch's attributes and groups
// applied, reusing the previous result until the target changes.
func (s *Switch) resolve() slog.Handler {
	b := s.target.Load()
	if len(s.ops) == 0 {
		return b.h
	}

	if d := s.cache.Load(); d != nil && d.from == b {
		return d.h
	}

	h := b.h
	for _, op := range s.ops {
		h = op(h)
	}

	s.cache.Store(&derived{from: b, h: h})

	return h
}
