// Package color renders ANSI terminal colors keyed by log level.
//
// A [Style] names a foreground color, a background highlight and text
// attributes. A [Scheme] maps levels to styles:
//
//	scheme := color.Scheme{
//	    slog.LevelError: {Color: "red", Attributes: []string{"bold"}},
//	}
//	line = scheme.Apply(slog.LevelError, line, color.ModeAuto.Enabled(os.Stderr))
//
// Color names are black, red, green, yellow, blue, purple, cyan and white.
// Attribute names are normal, bold, underline, blink, invert and hide.
//
// Setting ANSI_COLORS_DISABLED or NO_COLOR in the environment disables color
// regardless of [Mode].
package color

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"charm.land/lipgloss/v2"
	fcolor "github.com/fatih/color"
	"golang.org/x/term"
)

var (
	// ErrUnknownColor indicates an unrecognized color name.
	ErrUnknownColor = errors.New("unknown color")
	// ErrUnknownAttribute indicates an unrecognized attribute name.
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrUnknownMode indicates an unrecognized color mode.
	ErrUnknownMode = errors.New("unknown color mode")
)

// ANSI color indexes; foreground is 30+index, background 40+index.
var colorIndex = map[string]int{
	"black":  0,
	"red":    1,
	"green":  2,
	"yellow": 3,
	"blue":   4,
	"purple": 5,
	"cyan":   6,
	"white":  7,
}

var attributes = map[string]fcolor.Attribute{
	"normal":    fcolor.Reset,
	"bold":      fcolor.Bold,
	"underline": fcolor.Underline,
	"blink":     fcolor.BlinkSlow,
	"invert":    fcolor.ReverseVideo,
	"hide":      fcolor.Concealed,
}

// Colors returns the supported color names in sorted order.
func Colors() []string {
	return sortedKeys(colorIndex)
}

// Attributes returns the supported attribute names in sorted order.
func Attributes() []string {
	return sortedKeys(attributes)
}

// Style describes how text at one level is colored. Empty fields are left
// unstyled.
type Style struct {
	Color      string   `json:"color,omitempty"      yaml:"color,omitempty"`
	Highlight  string   `json:"highlight,omitempty"  yaml:"highlight,omitempty"`
	Attributes []string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Validate returns an error if s refers to an unknown color or attribute.
func (s Style) Validate() error {
	for _, c := range []string{s.Color, s.Highlight} {
		if _, ok := colorIndex[c]; c != "" && !ok {
			return fmt.Errorf("%w: %q", ErrUnknownColor, c)
		}
	}

	for _, a := range s.Attributes {
		if _, ok := attributes[a]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownAttribute, a)
		}
	}

	return nil
}

// IsZero reports whether s applies no styling.
func (s Style) IsZero() bool {
	return s.Color == "" && s.Highlight == "" && len(s.Attributes) == 0
}

// Sprint renders text with the style's escape sequences followed by a reset.
// Unknown names are skipped. A zero style returns text unchanged.
func (s Style) Sprint(text string) string {
	var attrs []fcolor.Attribute

	if i, ok := colorIndex[s.Color]; ok {
		attrs = append(attrs, fcolor.FgBlack+fcolor.Attribute(i))
	}

	if i, ok := colorIndex[s.Highlight]; ok {
		attrs = append(attrs, fcolor.BgBlack+fcolor.Attribute(i))
	}

	for _, a := range s.Attributes {
		if attr, ok := attributes[a]; ok {
			attrs = append(attrs, attr)
		}
	}

	if len(attrs) == 0 {
		return text
	}

	c := fcolor.New(attrs...)
	c.EnableColor()

	return c.Sprint(text)
}

// Lipgloss applies the style on top of base, for renderers built on
// lipgloss. The hide attribute has no lipgloss equivalent and is skipped.
func (s Style) Lipgloss(base lipgloss.Style) lipgloss.Style {
	st := base

	if i, ok := colorIndex[s.Color]; ok {
		st = st.Foreground(lipgloss.Color(fmt.Sprint(i)))
	}

	if i, ok := colorIndex[s.Highlight]; ok {
		st = st.Background(lipgloss.Color(fmt.Sprint(i)))
	}

	for _, a := range s.Attributes {
		switch a {
		case "bold":
			st = st.Bold(true)
		case "underline":
			st = st.Underline(true)
		case "blink":
			st = st.Blink(true)
		case "invert":
			st = st.Reverse(true)
		}
	}

	return st
}

// Scheme maps log levels to styles.
type Scheme map[slog.Level]Style

// DefaultScheme returns the default level colors.
func DefaultScheme() Scheme {
	return Scheme{
		slog.LevelDebug: {Color: "blue"},
		slog.LevelInfo:  {Color: "green"},
		slog.LevelWarn:  {Color: "yellow"},
		slog.LevelError: {Color: "red", Attributes: []string{"bold"}},
	}
}

// Style returns the style for level: the entry of the highest configured
// level that does not exceed it. Levels below every entry are unstyled.
func (s Scheme) Style(level slog.Level) Style {
	var (
		best  Style
		found bool
		at    slog.Level
	)

	for l, st := range s {
		if l <= level && (!found || l > at) {
			best, at, found = st, l, true
		}
	}

	return best
}

// Apply colors text with the style for level when enabled is true and color
// has not been disabled through the environment.
func (s Scheme) Apply(level slog.Level, text string, enabled bool) string {
	if !enabled || Disabled() {
		return text
	}

	return s.Style(level).Sprint(text)
}

// Validate returns the first invalid style in s.
func (s Scheme) Validate() error {
	for _, l := range slices.Sorted(maps.Keys(s)) {
		err := s[l].Validate()
		if err != nil {
			return fmt.Errorf("level %s: %w", l, err)
		}
	}

	return nil
}

// Disabled reports whether color output is disabled by the environment.
func Disabled() bool {
	if _, ok := os.LookupEnv("ANSI_COLORS_DISABLED"); ok {
		return true
	}

	return os.Getenv("NO_COLOR") != ""
}

// Mode selects when color is emitted.
type Mode string

const (
	// ModeAuto colors output written to a terminal.
	ModeAuto Mode = "auto"
	// ModeAlways colors all output.
	ModeAlways Mode = "always"
	// ModeNever never colors output.
	ModeNever Mode = "never"
)

// GetAllModeStrings returns the supported color modes.
func GetAllModeStrings() []string {
	return []string{string(ModeAuto), string(ModeAlways), string(ModeNever)}
}

// ParseMode parses a color mode string. The empty string means [ModeAuto].
func ParseMode(mode string) (Mode, error) {
	m := Mode(strings.ToLower(mode))
	if m == "" {
		return ModeAuto, nil
	}

	if slices.Contains(GetAllModeStrings(), string(m)) {
		return m, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

// Enabled reports whether output written to w should be colored.
func (m Mode) Enabled(w io.Writer) bool {
	if Disabled() {
		return false
	}

	switch m {
	case ModeAlways:
		return true
	case ModeNever:
		return false
	}

	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd())) //nolint:gosec // File descriptors fit in int.
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
