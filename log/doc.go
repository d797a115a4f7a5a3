// Package log provides structured logging handler construction for use with
// [log/slog].
//
// It supports several output formats ([FormatJSON], [FormatLogfmt],
// [FormatText] and [FormatTemplate]) and severity levels ([LevelError],
// [LevelWarn], [LevelInfo], and [LevelDebug]). Use [NewHandler] to create a
// handler directly, or use [Config] with CLI flag integration via
// [github.com/spf13/pflag] and shell completion support via
// [github.com/spf13/cobra].
//
// Typical usage creates a [Config], registers flags, then builds a handler
// at startup:
//
//	cfg := log.NewConfig()
//	cfg.RegisterFlags(rootCmd.PersistentFlags())
//	cfg.RegisterCompletions(rootCmd)
//
//	handler, err := cfg.NewHandler(os.Stderr)
//	slog.SetDefault(slog.New(handler))
//
// [FormatText] renders through [charm.land/log/v2], styled by a
// [color.Scheme]. [FormatTemplate] renders each record through a [Template]
// that can show the record's marker and diagnostic context:
//
//	tmpl, err := log.ParseTemplate(`{{ .Level }} [{{ .Marker }}] {{ .Message }} {{ .MDC }}`)
//	handler := log.NewHandler(os.Stderr, log.LevelInfo, log.FormatTemplate,
//	    log.WithTemplate(tmpl.WithMDCFormat("{requestID}")),
//	    log.WithColorMode(color.ModeAlways),
//	)
//
// A [Switch] lets the handler behind existing loggers be replaced, which is
// how configuration reloads take effect. [Multi] fans a record out to
// several handlers.
package log
