package lifecycle

import (
	"errors"
	"fmt"

	"github.com/alfredjeanlab/formflow/internal/model"
)

// Kind classifies a rejected transition.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindForbidden
	KindInvalidState
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindInvalidState:
		return "invalid_state"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned when a transition's conditional write matched no row.
// Current is only set for KindInvalidState.
type Error struct {
	Kind       Kind
	Transition model.Transition
	FormID     string
	Current    model.State
	Required   model.State
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("form %s not found", e.FormID)
	case KindForbidden:
		return fmt.Sprintf("%s form %s: caller is not the owner", e.Transition, e.FormID)
	case KindInvalidState:
		return fmt.Sprintf("%s form %s: form is %s, must be %s", e.Transition, e.FormID, e.Current, e.Required)
	}
	return fmt.Sprintf("%s form %s: %s", e.Transition, e.FormID, e.Kind)
}

func kindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return 0
}

// IsNotFound reports whether err is a lifecycle NotFound error.
func IsNotFound(err error) bool { return kindOf(err) == KindNotFound }

// IsForbidden reports whether err is a lifecycle Forbidden error.
func IsForbidden(err error) bool { return kindOf(err) == KindForbidden }

// IsInvalidState reports whether err is a lifecycle InvalidState error.
func IsInvalidState(err error) bool { return kindOf(err) == KindInvalidState }
