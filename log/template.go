package log

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"go.jacobcolvin.com/marklog/color"
	"go.jacobcolvin.com/marklog/marker"
	"go.jacobcolvin.com/marklog/mdc"
)

// DefaultTemplateText is the layout used by [DefaultTemplate].
const DefaultTemplateText = `{{ .Time.Format "2006-01-02T15:04:05.000Z07:00" }} {{ printf "%-5s" .Level }}` +
	`{{ with .Marker }} [{{ . }}]{{ end }} {{ .Message }}` +
	`{{ with .MDC }} {{ . }}{{ end }}{{ range .Attrs }} {{ .Key }}={{ .Value }}{{ end }}`

// ErrInvalidTemplate indicates a template that failed to parse.
var ErrInvalidTemplate = errors.New("invalid template")

// Entry is the data passed to a [Template] for one record.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
	// Marker is the name of the record's marker, or "" if it has none.
	Marker string
	// MDC is the record's diagnostic context rendered with the template's
	// MDC format, or as sorted "key=value" pairs when no format is set.
	MDC string
	// Values holds the raw diagnostic context.
	Values map[string]any
	// Attrs holds the remaining attributes, flattened with dotted group keys.
	Attrs []slog.Attr
}

// Template renders records as text using [text/template] with the
// [github.com/Masterminds/sprig/v3] function map.
//
// Create instances with [ParseTemplate].
type Template struct {
	tmpl      *template.Template
	mdcFormat string
}

var defaultTemplate = sync.OnceValue(func() *Template {
	return MustParseTemplate(DefaultTemplateText)
})

// DefaultTemplate returns the [Template] for [DefaultTemplateText].
func DefaultTemplate() *Template {
	return defaultTemplate()
}

// ParseTemplate parses text into a [Template].
func ParseTemplate(text string) (*Template, error) {
	t, err := template.New("record").
		Option("missingkey=zero").
		Funcs(sprig.TxtFuncMap()).
		Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}

	return &Template{tmpl: t}, nil
}

// MustParseTemplate is like [ParseTemplate] but panics on error.
func MustParseTemplate(text string) *Template {
	t, err := ParseTemplate(text)
	if err != nil {
		panic(err)
	}

	return t
}

// WithMDCFormat returns a copy of t that renders [Entry.MDC] with
// [mdc.Format] and the given format.
func (t *Template) WithMDCFormat(format string) *Template {
	return &Template{tmpl: t.tmpl, mdcFormat: format}
}

// Execute renders e to w.
func (t *Template) Execute(w io.Writer, e Entry) error {
	err := t.tmpl.Execute(w, e)
	if err != nil {
		return fmt.Errorf("executing template: %w", err)
	}

	return nil
}

// Entry builds the [Entry] for r. The record's marker attribute and its
// diagnostic context group are lifted out of the attributes, even when the
// handler has an open group, matching [marker.FromRecord].
func (t *Template) Entry(r slog.Record) Entry {
	return t.entry(r, nil, "")
}

// entry is [Template.Entry] for a handler with attributes already bound
// and qualified, whose later attributes are qualified with prefix.
func (t *Template) entry(r slog.Record, bound []slog.Attr, prefix string) Entry {
	e := Entry{
		Time:    r.Time,
		Level:   r.Level.String(),
		Message: r.Message,
	}

	attrs := slices.Clone(bound)

	r.Attrs(func(a slog.Attr) bool {
		switch {
		case a.Key == mdc.Key && a.Value.Kind() == slog.KindGroup:
			return true
		case a.Key == marker.Key:
			e.Marker = markerName(a.Value)

			return true
		}

		attrs = flatten(attrs, prefix, a)

		return true
	})

	// Bound marker attributes are lifted too.
	attrs = slices.DeleteFunc(attrs, func(a slog.Attr) bool {
		if a.Key != marker.Key {
			return false
		}

		if e.Marker == "" {
			e.Marker = markerName(a.Value)
		}

		return true
	})

	e.Attrs = attrs
	e.Values = mdc.FromRecord(r)

	if t.mdcFormat != "" {
		e.MDC = mdc.Format(t.mdcFormat, e.Values)
	} else {
		e.MDC = mdc.Pairs(e.Values)
	}

	return e
}

func markerName(v slog.Value) string {
	if m, ok := v.Any().(marker.Marker); ok {
		return m.Name()
	}

	return v.Resolve().String()
}

// flatten appends a to attrs with groups expanded into dotted keys. Empty
// attributes are dropped.
func flatten(attrs []slog.Attr, prefix string, a slog.Attr) []slog.Attr {
	if a.Equal(slog.Attr{}) {
		return attrs
	}

	v := a.Value.Resolve()

	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = qualify(prefix, a.Key)
		}

		for _, ga := range v.Group() {
			attrs = flatten(attrs, p, ga)
		}

		return attrs
	}

	return append(attrs, slog.Attr{Key: qualify(prefix, a.Key), Value: v})
}

func qualify(prefix, key string) string {
	if prefix == "" {
		return key
	}

	return prefix + "." + key
}

// TemplateOptions configures a [TemplateHandler].
type TemplateOptions struct {
	// Level is the minimum enabled level. Defaults to [slog.LevelInfo].
	Level slog.Leveler
	// Template defaults to [DefaultTemplate].
	Template *Template
	// Scheme colors each rendered line by level when Color is true.
	Scheme color.Scheme
	Color  bool
}

// TemplateHandler is a [slog.Handler] that writes each record as one line
// rendered by a [Template], optionally colored by level.
//
// Create instances with [NewTemplateHandler].
type TemplateHandler struct {
	w      io.Writer
	mu     *sync.Mutex
	opts   TemplateOptions
	attrs  []slog.Attr
	prefix string
}

// NewTemplateHandler creates a [TemplateHandler] writing to w.
func NewTemplateHandler(w io.Writer, opts *TemplateOptions) *TemplateHandler {
	var o TemplateOptions
	if opts != nil {
		o = *opts
	}

	if o.Level == nil {
		o.Level = slog.LevelInfo
	}

	if o.Template == nil {
		o.Template = DefaultTemplate()
	}

	return &TemplateHandler{w: w, mu: &sync.Mutex{}, opts: o}
}

// Enabled reports whether level is at or above the configured level.
func (h *TemplateHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

// Handle renders r and writes it as a single line.
func (h *TemplateHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	err := h.opts.Template.Execute(&buf, h.opts.Template.entry(r, h.attrs, h.prefix))
	if err != nil {
		return err
	}

	line := strings.TrimRight(buf.String(), "\n")
	line = h.opts.Scheme.Apply(r.Level, line, h.opts.Color) + "\n"

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err = io.WriteString(h.w, line)
	if err != nil {
		return fmt.Errorf("writing log line: %w", err)
	}

	return nil
}

// WithAttrs returns a child handler with attrs bound under the current group.
func (h *TemplateHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	child := *h
	child.attrs = slices.Clip(h.attrs)

	for _, a := range attrs {
		if h.prefix == "" && a.Key == marker.Key {
			child.attrs = append(child.attrs, a)

			continue
		}

		child.attrs = flatten(child.attrs, h.prefix, a)
	}

	return &child
}

// WithGroup returns a child handler that qualifies later attributes with name.
func (h *TemplateHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	child := *h
	child.prefix = qualify(h.prefix, name)

	return &child
}
