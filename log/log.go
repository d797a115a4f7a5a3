package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"charm.land/lipgloss/v2"
	charmlog "charm.land/log/v2"

	"go.jacobcolvin.com/marklog/color"
)

// Handler is a [slog.Handler] built by this package.
type Handler = slog.Handler

// Level represents a log severity level.
type Level string

const (
	// LevelError logs errors only.
	LevelError Level = "error"
	// LevelWarn logs warnings and errors.
	LevelWarn Level = "warn"
	// LevelInfo logs informational messages and above.
	LevelInfo Level = "info"
	// LevelDebug logs everything.
	LevelDebug Level = "debug"
)

// Format represents the log output format.
type Format string

const (
	// FormatJSON outputs logs as JSON objects.
	FormatJSON Format = "json"
	// FormatLogfmt outputs logs in logfmt format.
	FormatLogfmt Format = "logfmt"
	// FormatText outputs human-readable, colored logs.
	FormatText Format = "text"
	// FormatTemplate outputs logs rendered through a [Template].
	FormatTemplate Format = "template"
)

var (
	// ErrInvalidArgument indicates an invalid argument was provided.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnknownLogLevel indicates an unrecognized log level string.
	ErrUnknownLogLevel = errors.New("unknown log level")
	// ErrUnknownLogFormat indicates an unrecognized log format string.
	ErrUnknownLogFormat = errors.New("unknown log format")
)

var (
	allLevels  = []Level{LevelError, LevelWarn, LevelInfo, LevelDebug}
	allFormats = []Format{FormatJSON, FormatLogfmt, FormatText, FormatTemplate}
)

// GetAllLevelStrings returns the supported level names.
func GetAllLevelStrings() []string {
	out := make([]string, len(allLevels))
	for i, l := range allLevels {
		out[i] = string(l)
	}

	return out
}

// GetAllFormatStrings returns the supported format names.
func GetAllFormatStrings() []string {
	out := make([]string, len(allFormats))
	for i, f := range allFormats {
		out[i] = string(f)
	}

	return out
}

// ParseLevel parses a log level string. It accepts "warning" as an alias
// for [LevelWarn].
func ParseLevel(level string) (Level, error) {
	l := Level(strings.ToLower(level))
	if l == "warning" {
		return LevelWarn, nil
	}

	if slices.Contains(allLevels, l) {
		return l, nil
	}

	return "", ErrUnknownLogLevel
}

// ParseFormat parses a log format string.
func ParseFormat(format string) (Format, error) {
	f := Format(strings.ToLower(format))
	if slices.Contains(allFormats, f) {
		return f, nil
	}

	return "", ErrUnknownLogFormat
}

// Slog returns the [slog.Level] for l. Unknown levels map to
// [slog.LevelInfo].
func (l Level) Slog() slog.Level {
	switch l {
	case LevelError:
		return slog.LevelError
	case LevelWarn:
		return slog.LevelWarn
	case LevelDebug:
		return slog.LevelDebug
	}

	return slog.LevelInfo
}

// Option configures handlers created by [NewHandler].
type Option func(*options)

type options struct {
	tmpl      *Template
	mdcFormat string
	scheme    color.Scheme
	colorMode color.Mode
	addSource bool
}

// WithColorMode sets when [FormatTemplate] output is colored. The default is
// [color.ModeAuto]. [FormatText] detects color support on its own.
func WithColorMode(m color.Mode) Option {
	return func(o *options) {
		o.colorMode = m
	}
}

// WithScheme sets the level colors for [FormatText] and [FormatTemplate].
// The default is [color.DefaultScheme].
func WithScheme(s color.Scheme) Option {
	return func(o *options) {
		o.scheme = s
	}
}

// WithTemplate sets the template used by [FormatTemplate]. The default is
// [DefaultTemplate].
func WithTemplate(t *Template) Option {
	return func(o *options) {
		o.tmpl = t
	}
}

// WithMDCFormat sets the diagnostic context layout of the [FormatTemplate]
// template, as [Template.WithMDCFormat] does.
func WithMDCFormat(format string) Option {
	return func(o *options) {
		o.mdcFormat = format
	}
}

// WithAddSource toggles source locations in [FormatJSON] and [FormatLogfmt]
// output, and caller reporting in [FormatText]. The default is true.
func WithAddSource(add bool) Option {
	return func(o *options) {
		o.addSource = add
	}
}

// NewHandlerFromStrings creates a [Handler] by parsing level and format.
func NewHandlerFromStrings(w io.Writer, level, format string, opts ...Option) (Handler, error) {
	logLvl, err := ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	logFmt, err := ParseFormat(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return NewHandler(w, logLvl, logFmt, opts...), nil
}

// NewHandler creates a [Handler] writing to w with the given level and
// format. Unknown formats fall back to [FormatJSON].
func NewHandler(w io.Writer, level Level, format Format, opts ...Option) Handler {
	o := options{
		scheme:    color.DefaultScheme(),
		colorMode: color.ModeAuto,
		addSource: true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	lvl := level.Slog()

	switch format {
	case FormatLogfmt:
		return slog.NewTextHandler(w, &slog.HandlerOptions{
			AddSource: o.addSource,
			Level:     lvl,
		})

	case FormatText:
		return newCharmHandler(w, lvl, o)

	case FormatTemplate:
		tmpl := o.tmpl
		if tmpl == nil {
			tmpl = DefaultTemplate()
		}

		if o.mdcFormat != "" {
			tmpl = tmpl.WithMDCFormat(o.mdcFormat)
		}

		return NewTemplateHandler(w, &TemplateOptions{
			Level:    lvl,
			Template: tmpl,
			Scheme:   o.scheme,
			Color:    o.colorMode.Enabled(w),
		})
	}

	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: o.addSource,
		Level:     lvl,
	})
}

func newCharmHandler(w io.Writer, lvl slog.Level, o options) *charmlog.Logger {
	l := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(lvl),
		ReportTimestamp: true,
		ReportCaller:    o.addSource,
	})

	styles := charmlog.DefaultStyles()
	for level, st := range o.scheme {
		cl := charmlog.Level(level)

		base, ok := styles.Levels[cl]
		if !ok {
			base = lipgloss.NewStyle().SetString(strings.ToUpper(level.String()))
		}

		styles.Levels[cl] = st.Lipgloss(base)
	}

	l.SetStyles(styles)

	return l
}
