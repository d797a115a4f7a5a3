package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"

	"go.jacobcolvin.com/marklog/color"
	"go.jacobcolvin.com/marklog/log"
	"go.jacobcolvin.com/marklog/marker"
	"go.jacobcolvin.com/marklog/mdc"
	"go.jacobcolvin.com/marklog/notify"
)

// Dispatcher delivers the alerts queued for a notify output.
// [*notify.Mailer] is the default implementation.
type Dispatcher interface {
	Run(ctx context.Context, sub *notify.Subscription) error
}

// BuildOptions configures [Build].
type BuildOptions struct {
	// Stdout and Stderr back stream outputs. They default to [os.Stdout]
	// and [os.Stderr].
	Stdout io.Writer
	Stderr io.Writer
	// NewDispatcher creates the dispatcher of a notify output. Defaults to
	// [notify.NewMailer].
	NewDispatcher func(notify.SMTP) (Dispatcher, error)
	// Diagnostics receives delivery failures of notify outputs. It must not
	// feed back into the pipeline being built. Defaults to discarding.
	Diagnostics *slog.Logger
}

// Pipeline is the handler built from a [Config], together with the files and
// alert dispatchers it owns.
//
// Create instances with [Build].
type Pipeline struct {
	handler    slog.Handler
	diag       *slog.Logger
	closers    []io.Closer
	publishers []*notify.Publisher
	dispatch   []dispatch
	wg         sync.WaitGroup
	once       sync.Once
	closeErr   error
}

type dispatch struct {
	d   Dispatcher
	sub *notify.Subscription
}

// Handler returns the pipeline's handler. Diagnostic context is attached by
// an [mdc.Handler] in front of every output.
func (p *Pipeline) Handler() slog.Handler {
	return p.handler
}

// Start runs the pipeline's alert dispatchers in the background until the
// pipeline is closed. Cancelling ctx does not stop them, so that alerts
// queued before shutdown are still delivered by [Pipeline.Close]; ctx only
// supplies values.
func (p *Pipeline) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	for _, d := range p.dispatch {
		p.wg.Go(func() {
			//nolint:errcheck // Dispatchers report failures through diagnostics.
			d.d.Run(ctx, d.sub)
		})
	}
}

// Close stops the dispatchers after they drain their queues and closes the
// files opened by the pipeline. Alerts dropped because a dispatcher fell
// behind are reported on the diagnostic logger. Idempotent.
func (p *Pipeline) Close() error {
	p.once.Do(func() {
		var errs []error

		for _, pub := range p.publishers {
			errs = append(errs, pub.Close())

			if n := pub.Dropped(); n > 0 {
				p.diag.Warn("alerts dropped", slog.Uint64("count", n))
			}
		}

		p.wg.Wait()

		for _, c := range p.closers {
			errs = append(errs, c.Close())
		}

		p.closeErr = errors.Join(errs...)
	})

	return p.closeErr
}

// Build declares cfg's markers in reg and builds a [Pipeline] with one
// handler per output. If cfg has no outputs, a single stream output to
// stderr is used. A nil reg means [marker.Default].
//
// Declaring a marker makes its children exactly the listed ones, so that
// rebuilding after a change also removes children. Markers not declared in
// cfg are left alone. Children are only changed once every output has been
// built, so a failed Build leaves the hierarchy seen by existing pipelines
// as it was.
func Build(cfg *Config, reg *marker.Registry, opts *BuildOptions) (*Pipeline, error) {
	var o BuildOptions
	if opts != nil {
		o = *opts
	}

	if reg == nil {
		reg = marker.Default()
	}

	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}

	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}

	if o.Diagnostics == nil {
		o.Diagnostics = slog.New(slog.DiscardHandler)
	}

	if o.NewDispatcher == nil {
		o.NewDispatcher = func(s notify.SMTP) (Dispatcher, error) {
			return notify.NewMailer(s, notify.WithLogger(o.Diagnostics))
		}
	}

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	decls, err := resolve(reg, cfg.Markers)
	if err != nil {
		return nil, err
	}

	b := &builder{cfg: cfg, reg: reg, opts: o, p: &Pipeline{diag: o.Diagnostics}}

	outputs := cfg.Outputs
	if len(outputs) == 0 {
		outputs = []Output{{Type: OutputStream, Target: TargetStderr}}
	}

	handlers := make([]slog.Handler, 0, len(outputs))

	for i, out := range outputs {
		h, err := b.output(out)
		if err != nil {
			//nolint:errcheck // Reporting the build error.
			b.p.Close()

			return nil, fmt.Errorf("outputs[%d]: %w", i, err)
		}

		handlers = append(handlers, h)
	}

	err = commit(decls)
	if err != nil {
		//nolint:errcheck // Reporting the build error.
		b.p.Close()

		return nil, err
	}

	b.p.handler = mdc.NewHandler(log.Multi(handlers...))

	return b.p, nil
}

// declaration is a marker together with the exact children it should have.
type declaration struct {
	m        marker.Marker
	children []marker.Marker
}

// resolve looks up every declared marker and child in reg without changing
// any hierarchy.
func resolve(reg *marker.Registry, decls []Marker) ([]declaration, error) {
	out := make([]declaration, 0, len(decls))

	for _, decl := range decls {
		m, err := reg.Get(decl.Name)
		if err != nil {
			return nil, fmt.Errorf("marker %q: %w", decl.Name, err)
		}

		children := make([]marker.Marker, 0, len(decl.Children))

		for _, name := range decl.Children {
			child, err := reg.Get(name)
			if err != nil {
				return nil, fmt.Errorf("marker %q: child %q: %w", decl.Name, name, err)
			}

			children = append(children, child)
		}

		out = append(out, declaration{m: m, children: children})
	}

	return out, nil
}

// commit makes each declared marker's children exactly the resolved ones.
func commit(decls []declaration) error {
	for _, d := range decls {
		for _, child := range d.m.Children() {
			if !slices.ContainsFunc(d.children, func(w marker.Marker) bool { return child.Equal(w) }) {
				//nolint:errcheck // Children are always valid markers.
				d.m.RemoveChild(child)
			}
		}

		err := d.m.AddChildren(d.children...)
		if err != nil {
			return fmt.Errorf("marker %q: %w", d.m.Name(), err)
		}
	}

	return nil
}

type builder struct {
	cfg  *Config
	reg  *marker.Registry
	p    *Pipeline
	opts BuildOptions
}

func (b *builder) output(out Output) (slog.Handler, error) {
	lvl, err := log.ParseLevel(first(out.Level, b.cfg.Level, string(log.LevelInfo)))
	if err != nil {
		return nil, err
	}

	tmpl, err := b.template(out)
	if err != nil {
		return nil, err
	}

	targets, err := b.targets(out.Markers)
	if err != nil {
		return nil, err
	}

	if out.Type == OutputNotify {
		return b.notify(out, lvl, tmpl, targets)
	}

	format, err := log.ParseFormat(first(out.Format, b.cfg.Format, string(log.FormatText)))
	if err != nil {
		return nil, err
	}

	mode, err := color.ParseMode(first(out.Color, b.cfg.Color))
	if err != nil {
		return nil, err
	}

	scheme, err := b.cfg.Scheme()
	if err != nil {
		return nil, err
	}

	w, err := b.writer(out)
	if err != nil {
		return nil, err
	}

	var h slog.Handler = log.NewHandler(w, lvl, format,
		log.WithColorMode(mode),
		log.WithScheme(scheme),
		log.WithTemplate(tmpl),
	)

	if targets != nil {
		h = marker.NewFilter(h, targets)
	}

	return h, nil
}

func (b *builder) notify(out Output, lvl log.Level, tmpl *log.Template, targets []marker.Marker) (slog.Handler, error) {
	d, err := b.opts.NewDispatcher(*out.SMTP)
	if err != nil {
		return nil, err
	}

	pub := notify.NewPublisher()
	b.p.publishers = append(b.p.publishers, pub)
	b.p.dispatch = append(b.p.dispatch, dispatch{d: d, sub: pub.Subscribe()})

	return notify.NewHandler(pub, &notify.HandlerOptions{
		Level:    lvl.Slog(),
		Markers:  targets,
		Template: tmpl,
		Subject:  out.Subject,
	}), nil
}

func (b *builder) writer(out Output) (io.Writer, error) {
	switch out.Type {
	case OutputFile:
		f, err := os.OpenFile(out.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}

		b.p.closers = append(b.p.closers, f)

		return f, nil

	case OutputStream:
		if out.Target == TargetStdout {
			return b.opts.Stdout, nil
		}

		return b.opts.Stderr, nil
	}

	return nil, fmt.Errorf("%w: unknown output type %q", ErrInvalidConfig, out.Type)
}

func (b *builder) template(out Output) (*log.Template, error) {
	text := first(out.Template, b.cfg.Template)
	if text == "" {
		return log.DefaultTemplate().WithMDCFormat(b.cfg.MDCFormat), nil
	}

	tmpl, err := log.ParseTemplate(text)
	if err != nil {
		return nil, err
	}

	return tmpl.WithMDCFormat(b.cfg.MDCFormat), nil
}

func (b *builder) targets(names []string) ([]marker.Marker, error) {
	if len(names) == 0 {
		return nil, nil
	}

	targets := make([]marker.Marker, 0, len(names))

	for _, name := range names {
		m, err := b.reg.Get(name)
		if err != nil {
			return nil, fmt.Errorf("marker %q: %w", name, err)
		}

		targets = append(targets, m)
	}

	return targets, nil
}

// first returns the first non-empty value.
func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
