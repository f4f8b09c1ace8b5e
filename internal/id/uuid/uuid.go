// Package uuid provides random token helpers backed by google/uuid.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// SuffixLength is the number of characters kept from a UUID for key suffixes.
const SuffixLength = 8

// Generator creates short random key suffixes.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewSuffix returns the first SuffixLength characters of a random UUIDv4.
func (Generator) NewSuffix() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid4: %w", err)
	}
	return id.String()[:SuffixLength], nil
}
