package config_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/marklog/config"
	"go.jacobcolvin.com/marklog/log"
	"go.jacobcolvin.com/marklog/marker"
)

func writeConfig(t *testing.T, path, prefix string) {
	t.Helper()

	doc := "format: template\ncolor: never\ntemplate: \"" + prefix + " {{ .Message }}\"\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
}

func TestWatcherReload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logging.yaml")
	writeConfig(t, path, "first")

	var out, diag syncBuffer

	sw := log.NewSwitch(slog.DiscardHandler)
	w := config.NewWatcher(path, sw, marker.NewRegistry(),
		config.WithDiagnostics(slog.New(slog.NewTextHandler(&diag, nil))),
		config.WithBuildOptions(config.BuildOptions{Stderr: &out}),
	)
	t.Cleanup(func() { require.NoError(t, w.Close()) })

	require.NoError(t, w.Reload(t.Context()))

	logger := slog.New(sw)
	logger.Info("one")
	assert.Equal(t, "first one\n", out.String())
	assert.Contains(t, diag.String(), "logging configuration loaded")

	require.NoError(t, os.WriteFile(path, []byte("level: loud\n"), 0o600))
	require.ErrorIs(t, w.Reload(t.Context()), config.ErrInvalidConfig)

	logger.Info("two")
	assert.Equal(t, "first one\nfirst two\n", out.String())
	assert.Contains(t, diag.String(), "keeping previous logging configuration")

	require.NoError(t, os.Remove(path))
	require.ErrorIs(t, w.Reload(t.Context()), config.ErrReadConfig)

	logger.Info("three")
	assert.Contains(t, out.String(), "first three\n")
}

func TestWatcherRun(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logging.yaml")
	writeConfig(t, path, "first")

	var out, diag syncBuffer

	sw := log.NewSwitch(slog.DiscardHandler)
	w := config.NewWatcher(path, sw, marker.NewRegistry(),
		config.WithDebounce(10*time.Millisecond),
		config.WithDiagnostics(slog.New(slog.NewTextHandler(&diag, nil))),
		config.WithBuildOptions(config.BuildOptions{Stderr: &out}),
	)
	t.Cleanup(func() { require.NoError(t, w.Close()) })

	ctx, cancel := context.WithCancel(t.Context())

	done := make(chan error, 1)

	go func() { done <- w.Run(ctx) }()

	logger := slog.New(sw)

	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(diag.String()), []byte("logging configuration loaded"))
	}, 5*time.Second, 10*time.Millisecond)

	writeConfig(t, path, "second")

	require.Eventually(t, func() bool {
		logger.Info("probe")

		return bytes.Contains([]byte(out.String()), []byte("second probe"))
	}, 5*time.Second, 20*time.Millisecond)

	// A broken file keeps the current pipeline.
	require.NoError(t, os.WriteFile(path, []byte("outputs: [{type: socket}]\n"), 0o600))

	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(diag.String()), []byte("keeping previous logging configuration"))
	}, 5*time.Second, 10*time.Millisecond)

	logger.Info("after")
	assert.Contains(t, out.String(), "second after\n")

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherRunInitialFailure(t *testing.T) {
	t.Parallel()

	sw := log.NewSwitch(slog.DiscardHandler)
	w := config.NewWatcher(filepath.Join(t.TempDir(), "missing.yaml"), sw, marker.NewRegistry())

	err := w.Run(t.Context())
	require.ErrorIs(t, err, config.ErrReadConfig)
	assert.Equal(t, slog.DiscardHandler, sw.Current())
}
