package ui

import (
	"fmt"

	"github.com/alfredjeanlab/formflow/internal/model"
)

// ANSI256 color codes matching the Ayu palette.
const (
	colorAccent = 74  // blue
	colorCmd    = 250 // light gray
	colorMuted  = 245 // medium gray
	colorPass   = 114 // green
	colorWarn   = 179 // amber
)

var noColor bool

func render(code int, s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string { return render(colorAccent, s) }

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string { return render(colorMuted, s) }

// RenderCommand returns s styled as a command name (light gray).
func RenderCommand(s string) string { return render(colorCmd, s) }

// RenderState colors a lifecycle state: published green, archived amber,
// draft gray.
func RenderState(s model.State) string {
	switch s {
	case model.StatePublished:
		return render(colorPass, s.String())
	case model.StateArchived:
		return render(colorWarn, s.String())
	default:
		return render(colorMuted, s.String())
	}
}

// RenderEventType colors an event type by the state it leads to.
func RenderEventType(t model.EventType) string {
	switch t {
	case model.EventFormPublished:
		return render(colorPass, string(t))
	case model.EventFormArchived, model.EventFormDeleted:
		return render(colorWarn, string(t))
	default:
		return render(colorAccent, string(t))
	}
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

// ForceColor enables color output globally.
func ForceColor() {
	noColor = false
}
