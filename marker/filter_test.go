package marker_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/marklog/marker"
)

func newFilteredLogger(t *testing.T, targets any) (*slog.Logger, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer

	next := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	return slog.New(marker.NewFilter(next, targets)), &buf
}

func TestFilter(t *testing.T) {
	t.Parallel()

	auth := newAuth(t)
	other := marker.MustNew("other")

	tcs := map[string]struct {
		targets any
		log     func(*slog.Logger)
		want    bool
	}{
		"matching marker passes": {
			targets: []marker.Marker{auth},
			log: func(l *slog.Logger) {
				l.Info("test message", marker.Attr(auth))
			},
			want: true,
		},
		"child name passes": {
			targets: "login_failure",
			log: func(l *slog.Logger) {
				l.Info("test message", marker.Attr(auth))
			},
			want: true,
		},
		"non-matching marker is dropped": {
			targets: []marker.Marker{auth},
			log: func(l *slog.Logger) {
				l.Info("test message", marker.Attr(other))
			},
			want: false,
		},
		"record without marker is dropped": {
			targets: []marker.Marker{auth},
			log: func(l *slog.Logger) {
				l.Info("test message")
			},
			want: false,
		},
		"nil targets drop everything": {
			targets: nil,
			log: func(l *slog.Logger) {
				l.Info("test message", marker.Attr(auth))
			},
			want: false,
		},
		"bound marker passes": {
			targets: "auth",
			log: func(l *slog.Logger) {
				l.With(marker.Attr(auth)).Info("test message")
			},
			want: true,
		},
		"record marker wins over bound marker": {
			targets: "auth",
			log: func(l *slog.Logger) {
				l.With(marker.Attr(auth)).Info("test message", marker.Attr(other))
			},
			want: false,
		},
		"marker bound inside a group is ignored": {
			targets: "auth",
			log: func(l *slog.Logger) {
				l.WithGroup("g").With(marker.Attr(auth)).Info("test message")
			},
			want: false,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			logger, buf := newFilteredLogger(t, tc.targets)
			tc.log(logger)

			if tc.want {
				assert.Contains(t, buf.String(), "test message")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestFilterRendersMarkerName(t *testing.T) {
	t.Parallel()

	auth := newAuth(t)
	logger, buf := newFilteredLogger(t, "auth")

	logger.Info("test message", marker.Attr(auth))

	assert.Contains(t, buf.String(), `"marker":"auth"`)
}

func TestFilterEnabled(t *testing.T) {
	t.Parallel()

	next := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	f := marker.NewFilter(next, "auth")

	assert.False(t, f.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, f.Enabled(context.Background(), slog.LevelError))
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	wrap := marker.Middleware([]string{"auth"})
	logger := slog.New(wrap(slog.NewTextHandler(&buf, nil)))

	logger.Info("kept", marker.Attr(marker.MustNew("auth")))
	logger.Info("dropped", marker.Attr(marker.MustNew("db")))

	out := buf.String()
	assert.Contains(t, out, "kept")
	assert.NotContains(t, out, "dropped")
	require.Equal(t, 1, strings.Count(out, "\n"))
}
