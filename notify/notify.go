// Package notify turns marked log records into alerts.
//
// A handler created with [NewHandler] sends an [Alert] to a [Sender] for each
// record at or above its level whose marker matches its targets:
//
//	security, err := reg.Get("security")
//	pub := notify.NewPublisher()
//	h := notify.NewHandler(pub, &notify.HandlerOptions{
//	    Level:   slog.LevelWarn,
//	    Markers: []marker.Marker{security},
//	    Subject: "security alert",
//	})
//	logger := slog.New(log.Multi(console, h))
//
// [Publisher] queues alerts without blocking the logging call, and a
// [Mailer] drains a [Subscription] and delivers each alert over SMTP:
//
//	go mailer.Run(ctx, pub.Subscribe())
package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.jacobcolvin.com/marklog/log"
	"go.jacobcolvin.com/marklog/marker"
)

// Alert is a notification rendered from one log record.
type Alert struct {
	Time    time.Time
	Subject string
	Body    string
	// Marker is the name of the record's marker.
	Marker string
	Level  slog.Level
}

// Sender delivers alerts.
type Sender interface {
	Send(ctx context.Context, a Alert) error
}

// SenderFunc adapts a function to a [Sender].
type SenderFunc func(ctx context.Context, a Alert) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, a Alert) error {
	return f(ctx, a)
}

// HandlerOptions configures [NewHandler].
type HandlerOptions struct {
	// Level is the minimum level that raises an alert. Defaults to
	// [slog.LevelInfo].
	Level slog.Leveler
	// Markers selects which records raise alerts, in any shape accepted by
	// [marker.Match]. When nil, no alerts are sent.
	Markers any
	// Template renders the alert body. Defaults to [log.DefaultTemplate].
	Template *log.Template
	// Subject is the alert subject. When empty, the subject is the record's
	// level followed by the first line of its message.
	Subject string
}

// NewHandler creates a [slog.Handler] that sends an [Alert] to sender for
// every matching record. Errors from sender are returned from Handle.
func NewHandler(sender Sender, opts *HandlerOptions) slog.Handler {
	var o HandlerOptions
	if opts != nil {
		o = *opts
	}

	if o.Level == nil {
		o.Level = slog.LevelInfo
	}

	if o.Template == nil {
		o.Template = log.DefaultTemplate()
	}

	return marker.NewFilter(&alertHandler{sender: sender, opts: o}, o.Markers)
}

// alertHandler renders records into alerts. Marker matching happens in the
// [marker.Filter] in front of it.
type alertHandler struct {
	sender  Sender
	bound   marker.Marker
	ops     []func(slog.Handler) slog.Handler
	opts    HandlerOptions
	grouped bool
}

func (h *alertHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *alertHandler) Handle(ctx context.Context, r slog.Record) error {
	var buf bytes.Buffer

	// The body is rendered by a one-shot template handler with this
	// handler's attributes and groups replayed onto it.
	var body slog.Handler = log.NewTemplateHandler(&buf, &log.TemplateOptions{
		Level:    r.Level,
		Template: h.opts.Template,
	})
	for _, op := range h.ops {
		body = op(body)
	}

	err := body.Handle(ctx, r)
	if err != nil {
		return fmt.Errorf("rendering alert: %w", err)
	}

	a := Alert{
		Time:    r.Time,
		Level:   r.Level,
		Subject: h.opts.Subject,
		Body:    strings.TrimSuffix(buf.String(), "\n"),
		Marker:  h.markerName(r),
	}

	if a.Subject == "" {
		msg, _, _ := strings.Cut(r.Message, "\n")
		a.Subject = r.Level.String() + ": " + msg
	}

	err = h.sender.Send(ctx, a)
	if err != nil {
		return fmt.Errorf("sending alert: %w", err)
	}

	return nil
}

func (h *alertHandler) markerName(r slog.Record) string {
	v, ok := marker.FromRecord(r).Lookup(marker.Key)
	if m, isMarker := v.(marker.Marker); ok && isMarker {
		return m.Name()
	}

	if h.bound != nil {
		return h.bound.Name()
	}

	return ""
}

func (h *alertHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	child := h.derive(func(next slog.Handler) slog.Handler { return next.WithAttrs(attrs) })

	if !h.grouped {
		for _, a := range attrs {
			if m, ok := a.Value.Any().(marker.Marker); ok && a.Key == marker.Key {
				child.bound = m
			}
		}
	}

	return child
}

func (h *alertHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	child := h.derive(func(next slog.Handler) slog.Handler { return next.WithGroup(name) })
	child.grouped = true

	return child
}

func (h *alertHandler) derive(op func(slog.Handler) slog.Handler) *alertHandler {
	child := *h
	child.ops = append(slices.Clip(h.ops), op)

	return &child
}
