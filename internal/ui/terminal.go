package ui

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// ColorMode selects when the CLI emits ANSI colors.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode accepts auto, always or never. Empty means auto.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ColorAuto, nil
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	default:
		return "", fmt.Errorf("invalid color mode %q (want auto, always or never)", s)
	}
}

// Enabled reports whether output written to f should be colored. In auto
// mode NO_COLOR, CLICOLOR_FORCE and CLICOLOR are honored before falling
// back to TTY detection on f.
func (m ColorMode) Enabled(f *os.File) bool {
	switch m {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	// https://no-color.org: any non-empty value disables color.
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR_FORCE")) == "1" {
		return true
	}
	if strings.TrimSpace(os.Getenv("CLICOLOR")) == "0" {
		return false
	}
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// Apply switches rendering on or off for output written to f.
func (m ColorMode) Apply(f *os.File) {
	if m.Enabled(f) {
		ForceColor()
	} else {
		ForceNoColor()
	}
}

// ShouldUseColor reports whether stdout gets colors in auto mode.
func ShouldUseColor() bool {
	return ColorAuto.Enabled(os.Stdout)
}
