package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"go.jacobcolvin.com/marklog/config"
	"go.jacobcolvin.com/marklog/log"
	"go.jacobcolvin.com/marklog/marker"
	"go.jacobcolvin.com/marklog/mdc"
)

// demoMarkers is the hierarchy used when no configuration file is given.
var demoMarkers = []config.Marker{
	{Name: "security", Children: []string{"login_failure"}},
	{Name: "audit"},
}

type demoOptions struct {
	count    int
	interval time.Duration
}

func (a *app) demoCmd() *cobra.Command {
	opts := demoOptions{}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Emit sample marked records through a logging pipeline",
		Long: `demo emits records carrying the security, login_failure and audit markers
and a requestID diagnostic value. The pipeline comes from --log-config when
set, reloading it on change with --log-watch, and from the log flags otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.demo(cmd.Context(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.count, "count", 3, "number of rounds to emit; 0 runs until interrupted")
	cmd.Flags().DurationVar(&opts.interval, "interval", time.Second, "delay between rounds")

	return cmd
}

func (a *app) demo(ctx context.Context, opts demoOptions) error {
	diag, err := a.diagnostics()
	if err != nil {
		return err
	}

	reg := marker.NewRegistry()
	sw := log.NewSwitch(slog.DiscardHandler)
	build := config.BuildOptions{Stdout: a.stdout, Stderr: a.stderr, Diagnostics: diag}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if a.log.File != "" {
		w := config.NewWatcher(a.log.File, sw, reg,
			config.WithDiagnostics(diag),
			config.WithBuildOptions(build),
		)
		defer w.Close() //nolint:errcheck // Best effort on exit.

		err = w.Reload(ctx)
		if err != nil {
			return err
		}

		if a.log.Watch {
			g.Go(func() error {
				return w.Watch(ctx)
			})
		}
	} else {
		cfg := &config.Config{
			Level:   a.log.Level,
			Format:  a.log.Format,
			Color:   a.log.Color,
			Markers: demoMarkers,
		}

		p, err := config.Build(cfg, reg, &build)
		if err != nil {
			return err
		}
		defer p.Close() //nolint:errcheck // Best effort on exit.

		p.Start(ctx)
		sw.Set(p.Handler())
	}

	g.Go(func() error {
		defer cancel()

		return emit(ctx, marker.NewLogger(slog.New(sw)), reg, opts)
	})

	return g.Wait()
}

// emit logs one round of sample records per interval.
func emit(ctx context.Context, l *marker.Logger, reg *marker.Registry, opts demoOptions) error {
	security, err := reg.Get("security")
	if err != nil {
		return err
	}

	loginFailure, err := reg.Get("login_failure")
	if err != nil {
		return err
	}

	audit, err := reg.Get("audit")
	if err != nil {
		return err
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for i := 1; opts.count == 0 || i <= opts.count; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		rctx := mdc.Put(ctx, "requestID", fmt.Sprintf("req-%d", i))

		err = l.Info(rctx, audit, "user signed in", slog.String("user", "alice"))
		if err != nil {
			return err
		}

		err = l.Warn(rctx, loginFailure, "login failed", slog.String("user", "mallory"), slog.Int("attempt", i))
		if err != nil {
			return err
		}

		err = l.Error(rctx, security, "account locked", slog.String("user", "mallory"))
		if err != nil {
			return err
		}

		l.Logger().DebugContext(rctx, "round complete", slog.Int("round", i))

		timer.Reset(opts.interval)
	}

	return nil
}
