// Package idgen provides short, URL-safe unique ID generation backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for each kind of generated identifier.
const (
	FormPrefix       = "fm-"
	EventPrefix      = "ev-"
	ConnectionPrefix = "cn-"
)

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
// Event ids double as deduplication keys, so keep this generous.
var Length = 16

// FormID returns a new form id.
func FormID() (string, error) {
	return GenerateWithPrefix(FormPrefix)
}

// EventID returns a new globally unique event id.
func EventID() (string, error) {
	return GenerateWithPrefix(EventPrefix)
}

// ConnectionID returns a new gateway connection id.
func ConnectionID() (string, error) {
	return GenerateWithPrefix(ConnectionPrefix)
}

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
