// Package config loads declarative logging configuration from YAML and turns
// it into a running handler pipeline.
//
// A configuration declares the default level, format and colors, a marker
// hierarchy, and a list of outputs:
//
//	level: info
//	format: template
//	template: "{{ .Level }} [{{ .Marker }}] {{ .Message }} {{ .MDC }}"
//	mdcFormat: "{requestID}"
//	colors:
//	  ERROR: {color: red, attributes: [bold]}
//	markers:
//	  - name: security
//	    children: [login_failure]
//	outputs:
//	  - type: stream
//	    target: stderr
//	  - type: file
//	    path: audit.log
//	    format: json
//	    markers: [security]
//	  - type: notify
//	    level: error
//	    markers: [security]
//	    smtp: {host: mail.example.com, from: log@example.com, to: [oncall@example.com]}
//
// Documents are checked against [Schema] before they are decoded. [Build]
// creates a [Pipeline], and a [Watcher] rebuilds it whenever the file
// changes, swapping the result into a [log.Switch].
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/google/jsonschema-go/jsonschema"

	"go.jacobcolvin.com/marklog/color"
	"go.jacobcolvin.com/marklog/log"
	"go.jacobcolvin.com/marklog/notify"
)

var (
	// ErrReadConfig indicates the configuration file could not be read.
	ErrReadConfig = errors.New("read config")
	// ErrInvalidConfig indicates a configuration that failed validation.
	ErrInvalidConfig = errors.New("invalid config")
)

// Output types.
const (
	OutputStream = "stream"
	OutputFile   = "file"
	OutputNotify = "notify"
)

// Stream targets.
const (
	TargetStdout = "stdout"
	TargetStderr = "stderr"
)

// Config is a logging configuration document.
type Config struct {
	Colors    map[string]color.Style `json:"colors,omitempty"    yaml:"colors,omitempty"`
	Level     string                 `json:"level,omitempty"     yaml:"level,omitempty"`
	Format    string                 `json:"format,omitempty"    yaml:"format,omitempty"`
	Color     string                 `json:"color,omitempty"     yaml:"color,omitempty"`
	Template  string                 `json:"template,omitempty"  yaml:"template,omitempty"`
	MDCFormat string                 `json:"mdcFormat,omitempty" yaml:"mdcFormat,omitempty"`
	Markers   []Marker               `json:"markers,omitempty"   yaml:"markers,omitempty"`
	Outputs   []Output               `json:"outputs,omitempty"   yaml:"outputs,omitempty"`
}

// Marker declares a marker and its direct children.
type Marker struct {
	Name     string   `json:"name"               yaml:"name"`
	Children []string `json:"children,omitempty" yaml:"children,omitempty"`
}

// Output declares one destination for log records. Empty level, format,
// color and template fields inherit the document's values.
type Output struct {
	SMTP     *notify.SMTP `json:"smtp,omitempty"     yaml:"smtp,omitempty"`
	Type     string       `json:"type"               yaml:"type"`
	Target   string       `json:"target,omitempty"   yaml:"target,omitempty"`
	Path     string       `json:"path,omitempty"     yaml:"path,omitempty"`
	Level    string       `json:"level,omitempty"    yaml:"level,omitempty"`
	Format   string       `json:"format,omitempty"   yaml:"format,omitempty"`
	Color    string       `json:"color,omitempty"    yaml:"color,omitempty"`
	Template string       `json:"template,omitempty" yaml:"template,omitempty"`
	Subject  string       `json:"subject,omitempty"  yaml:"subject,omitempty"`
	// Markers restricts the output to records whose marker matches one of
	// these names.
	Markers []string `json:"markers,omitempty" yaml:"markers,omitempty"`
}

var resolvedSchema = sync.OnceValues(func() (*jsonschema.Resolved, error) {
	return Schema().Resolve(nil)
})

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is chosen by the operator.
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Parse decodes a YAML configuration document, checks it against [Schema]
// and validates it with [Config.Validate]. An empty document is a valid
// configuration with all defaults.
func Parse(data []byte) (*Config, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return &Config{}, nil
	}

	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	var instance any

	err = json.Unmarshal(jsonData, &instance)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if instance == nil {
		instance = map[string]any{}
	}

	rs, err := resolvedSchema()
	if err != nil {
		return nil, fmt.Errorf("resolving schema: %w", err)
	}

	err = rs.Validate(instance)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	var cfg Config

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, yaml.FormatError(err, false, true))
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the values that [Schema] cannot express: template syntax,
// level names used as color keys, duplicate markers, and the fields each
// output type requires. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, checkCommon("", c.Level, c.Format, c.Color, c.Template)...)

	_, err := c.Scheme()
	if err != nil {
		errs = append(errs, err)
	}

	seen := make(map[string]bool, len(c.Markers))

	for i, m := range c.Markers {
		switch {
		case strings.TrimSpace(m.Name) == "":
			errs = append(errs, fmt.Errorf("markers[%d]: name must not be empty", i))
		case seen[m.Name]:
			errs = append(errs, fmt.Errorf("markers[%d]: %q declared twice", i, m.Name))
		}

		seen[m.Name] = true

		for j, child := range m.Children {
			if strings.TrimSpace(child) == "" {
				errs = append(errs, fmt.Errorf("markers[%d].children[%d]: name must not be empty", i, j))
			}
		}
	}

	for i, out := range c.Outputs {
		errs = append(errs, out.validate(fmt.Sprintf("outputs[%d]", i))...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	return nil
}

func (o Output) validate(at string) []error {
	errs := checkCommon(at+".", o.Level, o.Format, o.Color, o.Template)

	switch o.Type {
	case OutputStream:
		if o.Target != "" && o.Target != TargetStdout && o.Target != TargetStderr {
			errs = append(errs, fmt.Errorf("%s.target: unknown stream %q", at, o.Target))
		}

	case OutputFile:
		if o.Path == "" {
			errs = append(errs, fmt.Errorf("%s.path: required for file outputs", at))
		}

	case OutputNotify:
		if o.SMTP == nil {
			errs = append(errs, fmt.Errorf("%s.smtp: required for notify outputs", at))
		} else if err := o.SMTP.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s.smtp: %w", at, err))
		}

		if len(o.Markers) == 0 {
			errs = append(errs, fmt.Errorf("%s.markers: required for notify outputs", at))
		}

	default:
		errs = append(errs, fmt.Errorf("%s.type: unknown output type %q", at, o.Type))
	}

	return errs
}

func checkCommon(at, level, format, mode, tmpl string) []error {
	var errs []error

	if level != "" {
		if _, err := log.ParseLevel(level); err != nil {
			errs = append(errs, fmt.Errorf("%slevel: %w: %q", at, err, level))
		}
	}

	if format != "" {
		if _, err := log.ParseFormat(format); err != nil {
			errs = append(errs, fmt.Errorf("%sformat: %w: %q", at, err, format))
		}
	}

	if _, err := color.ParseMode(mode); err != nil {
		errs = append(errs, fmt.Errorf("%scolor: %w", at, err))
	}

	if tmpl != "" {
		if _, err := log.ParseTemplate(tmpl); err != nil {
			errs = append(errs, fmt.Errorf("%stemplate: %w", at, err))
		}
	}

	return errs
}

// Scheme returns [color.DefaultScheme] with the document's colors applied.
// Color keys are level names as accepted by [slog.Level.UnmarshalText], such
// as "ERROR" or "INFO+2".
func (c *Config) Scheme() (color.Scheme, error) {
	scheme := color.DefaultScheme()

	for key, style := range c.Colors {
		var lvl slog.Level

		err := lvl.UnmarshalText([]byte(key))
		if err != nil {
			return nil, fmt.Errorf("colors: %w", err)
		}

		err = style.Validate()
		if err != nil {
			return nil, fmt.Errorf("colors.%s: %w", key, err)
		}

		scheme[lvl] = style
	}

	return scheme, nil
}
