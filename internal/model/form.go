package model

import "time"

// State is the lifecycle state of a form.
type State string

const (
	StateDraft     State = "draft"
	StatePublished State = "published"
	StateArchived  State = "archived"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsValid checks whether the state is a known value.
func (s State) IsValid() bool {
	switch s {
	case StateDraft, StatePublished, StateArchived:
		return true
	}
	return false
}

// Transition names one of the lifecycle operations.
type Transition string

const (
	TransitionPublish Transition = "publish"
	TransitionArchive Transition = "archive"
	TransitionRestore Transition = "restore"
	TransitionDestroy Transition = "destroy"
)

// transitionTable maps each transition to its required and resulting state.
// destroy has no resulting state: the form is removed.
var transitionTable = map[Transition]struct {
	from State
	to   State
}{
	TransitionPublish: {from: StateDraft, to: StatePublished},
	TransitionArchive: {from: StatePublished, to: StateArchived},
	TransitionRestore: {from: StateArchived, to: StateDraft},
	TransitionDestroy: {from: StateDraft},
}

// String returns the string representation of the transition.
func (t Transition) String() string {
	return string(t)
}

// IsValid checks whether the transition is a known value.
func (t Transition) IsValid() bool {
	_, ok := transitionTable[t]
	return ok
}

// From returns the state a form must be in for the transition to apply.
func (t Transition) From() State {
	return transitionTable[t].from
}

// To returns the state a form is in after the transition. It is empty for
// destroy.
func (t Transition) To() State {
	return transitionTable[t].to
}

// Removes reports whether the transition deletes the form.
func (t Transition) Removes() bool {
	return t == TransitionDestroy
}

// EventType returns the event type emitted after the transition succeeds.
func (t Transition) EventType() EventType {
	switch t {
	case TransitionPublish:
		return EventFormPublished
	case TransitionArchive:
		return EventFormArchived
	case TransitionRestore:
		return EventFormRestored
	case TransitionDestroy:
		return EventFormDeleted
	}
	return ""
}

// Transitions lists every transition in table order.
func Transitions() []Transition {
	return []Transition{TransitionPublish, TransitionArchive, TransitionRestore, TransitionDestroy}
}

// Form is the record whose state the lifecycle controller governs.
type Form struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	GroupID   string    `json:"group_id"`
	Title     string    `json:"title"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResourceGroup returns the subscription key for events about this form.
func (f *Form) ResourceGroup() ResourceGroup {
	return GroupFor(f.GroupID)
}

// FormFilter narrows a form listing. Empty fields do not filter.
type FormFilter struct {
	GroupID string
	OwnerID string
	State   []State
	Limit   int
}
