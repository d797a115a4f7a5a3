package config_test

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/marklog/color"
	"go.jacobcolvin.com/marklog/config"
)

const fullConfig = `
level: debug
format: template
color: never
template: "{{ .Level }} {{ .Message }}"
mdcFormat: "{requestID}"
colors:
  ERROR: {color: red, attributes: [bold]}
  info: {color: cyan}
markers:
  - name: security
    children: [login_failure, intrusion]
  - name: audit
outputs:
  - type: stream
    target: stdout
  - type: file
    path: audit.log
    format: json
    markers: [audit]
  - type: notify
    level: error
    markers: [security]
    subject: security alert
    smtp:
      host: mail.example.com
      port: 587
      from: log@example.com
      to: [oncall@example.com]
`

func TestParse(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse([]byte(fullConfig))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "template", cfg.Format)
	assert.Equal(t, "{requestID}", cfg.MDCFormat)
	require.Len(t, cfg.Markers, 2)
	assert.Equal(t, []string{"login_failure", "intrusion"}, cfg.Markers[0].Children)
	require.Len(t, cfg.Outputs, 3)
	assert.Equal(t, config.OutputFile, cfg.Outputs[1].Type)
	assert.Equal(t, []string{"audit"}, cfg.Outputs[1].Markers)

	smtp := cfg.Outputs[2].SMTP
	require.NotNil(t, smtp)
	assert.Equal(t, 587, smtp.Port)
	assert.Equal(t, []string{"oncall@example.com"}, smtp.To)

	scheme, err := cfg.Scheme()
	require.NoError(t, err)
	assert.Equal(t, color.Style{Color: "red", Attributes: []string{"bold"}}, scheme[slog.LevelError])
	assert.Equal(t, "cyan", scheme[slog.LevelInfo].Color)
	assert.Equal(t, "yellow", scheme[slog.LevelWarn].Color)
}

func TestParseEmpty(t *testing.T) {
	t.Parallel()

	for name, doc := range map[string]string{
		"empty":         "",
		"whitespace":    "  \n\n",
		"comments only": "# nothing here\n",
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg, err := config.Parse([]byte(doc))
			require.NoError(t, err)
			assert.Empty(t, cfg.Outputs)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	t.Parallel()

	tcs := map[string]string{
		"malformed yaml":      "level: [info",
		"not a mapping":       "- info",
		"unknown key":         "verbosity: 3",
		"unknown level":       "level: loud",
		"unknown format":      "format: xml",
		"unknown color":       "colors:\n  ERROR: {color: mauve}",
		"unknown color key":   "colors:\n  LOUD: {color: red}",
		"bad template":        "template: \"{{ .Message \"",
		"empty marker name":   "markers:\n  - name: \"\"",
		"duplicate marker":    "markers:\n  - name: a\n  - name: a",
		"missing type":        "outputs:\n  - target: stderr",
		"unknown type":        "outputs:\n  - type: socket",
		"file without path":   "outputs:\n  - type: file",
		"notify without smtp": "outputs:\n  - type: notify\n    markers: [a]",
		"notify without markers": `outputs:
  - type: notify
    smtp: {host: mail, from: a@b, to: [c@d]}`,
		"port as string": `outputs:
  - type: notify
    markers: [a]
    smtp: {host: mail, port: "25", from: a@b, to: [c@d]}`,
		"no recipients": `outputs:
  - type: notify
    markers: [a]
    smtp: {host: mail, from: a@b, to: []}`,
	}

	for name, doc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := config.Parse([]byte(doc))
			require.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Level:   "loud",
		Outputs: []config.Output{{Type: config.OutputFile}},
	}

	err := cfg.Validate()
	require.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "level")
	assert.Contains(t, err.Error(), "outputs[0].path")
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("level: warn\n"), 0o600))

	cfg, err := config.Load(good)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Level)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("level: loud\n"), 0o600))

	_, err = config.Load(bad)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Contains(t, err.Error(), bad)

	_, err = config.Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, config.ErrReadConfig)
}

func TestSchema(t *testing.T) {
	t.Parallel()

	s := config.Schema()
	assert.Equal(t, config.SchemaURI, s.Schema)
	assert.Contains(t, s.Properties, "outputs")

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"mdcFormat"`)

	// Every call builds a fresh schema.
	s.Title = "changed"
	assert.NotEqual(t, "changed", config.Schema().Title)
}
