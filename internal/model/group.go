package model

import (
	"fmt"
	"strings"
	"unicode"
)

// GroupKindForms is the only resource group kind: all forms that share a
// parent collection.
const GroupKindForms = "group"

// ResourceGroup is the subscription key that websocket clients join.
// Construct it with GroupFor or ParseResourceGroup; never by concatenation.
type ResourceGroup struct {
	kind string
	id   string
}

// GroupFor returns the resource group for a form collection id.
func GroupFor(groupID string) ResourceGroup {
	return ResourceGroup{kind: GroupKindForms, id: groupID}
}

// ParseResourceGroup parses the wire form "<kind>:<id>".
func ParseResourceGroup(s string) (ResourceGroup, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok {
		return ResourceGroup{}, fmt.Errorf("resource group %q: missing kind separator", s)
	}
	if kind != GroupKindForms {
		return ResourceGroup{}, fmt.Errorf("resource group %q: unknown kind %q", s, kind)
	}
	g := ResourceGroup{kind: kind, id: id}
	if err := g.Validate(); err != nil {
		return ResourceGroup{}, err
	}
	return g, nil
}

// Validate rejects ids that could collide with another key once rendered.
func (g ResourceGroup) Validate() error {
	if g.kind == "" {
		return fmt.Errorf("resource group: kind is required")
	}
	if g.id == "" {
		return fmt.Errorf("resource group: id is required")
	}
	if strings.ContainsRune(g.id, ':') {
		return fmt.Errorf("resource group: id %q must not contain ':'", g.id)
	}
	if strings.IndexFunc(g.id, unicode.IsSpace) >= 0 {
		return fmt.Errorf("resource group: id %q must not contain whitespace", g.id)
	}
	return nil
}

// IsZero reports whether the group was never set.
func (g ResourceGroup) IsZero() bool {
	return g.kind == "" && g.id == ""
}

// ID returns the collection id the group was built from.
func (g ResourceGroup) ID() string {
	return g.id
}

// String renders the wire form "<kind>:<id>".
func (g ResourceGroup) String() string {
	if g.IsZero() {
		return ""
	}
	return g.kind + ":" + g.id
}

// MarshalText implements encoding.TextMarshaler.
func (g ResourceGroup) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *ResourceGroup) UnmarshalText(b []byte) error {
	parsed, err := ParseResourceGroup(string(b))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
