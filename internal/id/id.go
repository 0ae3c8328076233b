// Package id generates short prefixed identifiers used to correlate the log
// lines that belong to one relocation attempt.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// alphabet avoids look-alike characters so IDs can be read back from a terminal.
	alphabet = "23456789abcdefghjkmnpqrstuvwxyz"
	// size keeps collisions negligible for the lifetime of one process.
	size = 10

	// AttemptPrefix prefixes relocation attempt IDs.
	AttemptPrefix = "mv"
	// SweepPrefix prefixes sweep run IDs.
	SweepPrefix = "sweep"
)

// Generate creates a prefixed ID, e.g. "mv-k3x9q2hz7w".
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.Generate(alphabet, size)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// Attempt returns a new relocation attempt ID.
// Entropy failures degrade to a fixed placeholder: an attempt ID only labels
// log lines and must never stop a file from being relocated.
func Attempt() string {
	id, err := Generate(AttemptPrefix)
	if err != nil {
		return AttemptPrefix + "-unknown"
	}
	return id
}
