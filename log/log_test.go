package log_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/marklog/color"
	"go.jacobcolvin.com/marklog/log"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input string
		want  log.Level
		slog  slog.Level
		err   error
	}{
		"error":         {input: "error", want: log.LevelError, slog: slog.LevelError},
		"warn":          {input: "warn", want: log.LevelWarn, slog: slog.LevelWarn},
		"warning alias": {input: "Warning", want: log.LevelWarn, slog: slog.LevelWarn},
		"info":          {input: "INFO", want: log.LevelInfo, slog: slog.LevelInfo},
		"debug":         {input: "debug", want: log.LevelDebug, slog: slog.LevelDebug},
		"empty":         {input: "", err: log.ErrUnknownLogLevel},
		"unknown":       {input: "trace", err: log.ErrUnknownLogLevel},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := log.ParseLevel(tc.input)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				assert.Empty(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.slog, got.Slog())
		})
	}
}

func TestUnknownLevelSlog(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelInfo, log.Level("trace").Slog())
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input string
		want  log.Format
		err   error
	}{
		"json":     {input: "json", want: log.FormatJSON},
		"logfmt":   {input: "LOGFMT", want: log.FormatLogfmt},
		"text":     {input: "text", want: log.FormatText},
		"template": {input: "Template", want: log.FormatTemplate},
		"unknown":  {input: "xml", err: log.ErrUnknownLogFormat},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := log.ParseFormat(tc.input)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewHandler(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		check  func(*testing.T, string)
		format log.Format
		opts   []log.Option
	}{
		"json": {
			format: log.FormatJSON,
			check: func(t *testing.T, out string) {
				t.Helper()

				var entry map[string]any

				require.NoError(t, json.Unmarshal([]byte(out), &entry))
				assert.Equal(t, "request served", entry["msg"])
				assert.Equal(t, "WARN", entry["level"])
				assert.Equal(t, "/health", entry["path"])
				assert.Contains(t, entry, "source")
			},
		},
		"json without source": {
			format: log.FormatJSON,
			opts:   []log.Option{log.WithAddSource(false)},
			check: func(t *testing.T, out string) {
				t.Helper()

				assert.NotContains(t, out, `"source"`)
			},
		},
		"logfmt": {
			format: log.FormatLogfmt,
			check: func(t *testing.T, out string) {
				t.Helper()

				assert.Contains(t, out, "level=WARN")
				assert.Contains(t, out, `msg="request served"`)
				assert.Contains(t, out, "path=/health")
			},
		},
		"text": {
			format: log.FormatText,
			opts:   []log.Option{log.WithColorMode(color.ModeNever)},
			check: func(t *testing.T, out string) {
				t.Helper()

				assert.Contains(t, out, "WARN")
				assert.Contains(t, out, "request served")
				assert.Contains(t, out, "path=/health")
			},
		},
		"default template": {
			format: log.FormatTemplate,
			check: func(t *testing.T, out string) {
				t.Helper()

				assert.Contains(t, out, "WARN  request served path=/health")
				assert.NotContains(t, out, "\x1b[")
			},
		},
		"custom template": {
			format: log.FormatTemplate,
			opts:   []log.Option{log.WithTemplate(log.MustParseTemplate("{{ lower .Level }}: {{ .Message }}"))},
			check: func(t *testing.T, out string) {
				t.Helper()

				assert.Equal(t, "warn: request served\n", out)
			},
		},
		"mdc format": {
			format: log.FormatTemplate,
			opts: []log.Option{
				log.WithTemplate(log.MustParseTemplate("{{ .Message }} [{{ .MDC }}]")),
				log.WithMDCFormat("{requestID}"),
			},
			check: func(t *testing.T, out string) {
				t.Helper()

				assert.Equal(t, "request served [requestID=]\n", out)
			},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			logger := slog.New(log.NewHandler(&buf, log.LevelWarn, tc.format, tc.opts...))
			logger.Info("below level")
			logger.Warn("request served", slog.String("path", "/health"))

			assert.NotContains(t, buf.String(), "below level")
			tc.check(t, buf.String())
		})
	}
}

func TestNewHandlerFromStrings(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		level  string
		format string
		err    error
	}{
		"valid":          {level: "debug", format: "json"},
		"invalid level":  {level: "loud", format: "json", err: log.ErrUnknownLogLevel},
		"invalid format": {level: "info", format: "xml", err: log.ErrUnknownLogFormat},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			h, err := log.NewHandlerFromStrings(&buf, tc.level, tc.format)
			if tc.err != nil {
				require.ErrorIs(t, err, log.ErrInvalidArgument)
				require.ErrorIs(t, err, tc.err)
				assert.Nil(t, h)

				return
			}

			require.NoError(t, err)
			slog.New(h).Debug("verbose")
			assert.Contains(t, buf.String(), `"msg":"verbose"`)
		})
	}
}

func TestRegisterCompletions(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		flag      string
		want      []string
		directive cobra.ShellCompDirective
	}{
		"log-level": {
			flag:      "log-level",
			want:      log.GetAllLevelStrings(),
			directive: cobra.ShellCompDirectiveNoFileComp,
		},
		"log-format": {
			flag:      "log-format",
			want:      log.GetAllFormatStrings(),
			directive: cobra.ShellCompDirectiveNoFileComp,
		},
		"log-color": {
			flag:      "log-color",
			want:      color.GetAllModeStrings(),
			directive: cobra.ShellCompDirectiveNoFileComp,
		},
		"log-config": {
			flag:      "log-config",
			want:      []string{"yaml", "yml"},
			directive: cobra.ShellCompDirectiveFilterFileExt,
		},
	}

	cfg := log.NewConfig()

	cmd := &cobra.Command{Use: "test"}
	cfg.RegisterFlags(cmd.Flags())
	require.NoError(t, cfg.RegisterCompletions(cmd))

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			complete, ok := cmd.GetFlagCompletionFunc(tc.flag)
			require.True(t, ok)

			values, directive := complete(cmd, nil, "")
			assert.Equal(t, tc.directive, directive)
			assert.Equal(t, tc.want, values)
		})
	}
}
