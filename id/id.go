// Package id generates and validates identifiers for queuectl entities.
//
// Generated job IDs are UUIDv7 strings: globally unique, K-sortable by
// creation time, and URL-safe. Callers may also supply their own job IDs;
// any non-empty printable string without whitespace is accepted.
package id

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// MaxLen is the longest accepted identifier.
const MaxLen = 255

// WorkerPrefix marks worker identifiers.
const WorkerPrefix = "wkr-"

// NewJobID generates a new unique job ID.
func NewJobID() string { return newV7() }

// NewWorkerID generates a new unique worker ID.
func NewWorkerID() string { return WorkerPrefix + newV7() }

func newV7() string {
	u, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source fails.
		return uuid.NewString()
	}
	return u.String()
}

// Validate reports whether s is an acceptable caller-supplied identifier.
func Validate(s string) error {
	if s == "" {
		return fmt.Errorf("id: empty identifier")
	}
	if len(s) > MaxLen {
		return fmt.Errorf("id: identifier longer than %d bytes", MaxLen)
	}
	if i := strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || !unicode.IsPrint(r)
	}); i >= 0 {
		return fmt.Errorf("id: %q contains a space or control character at byte %d", s, i)
	}
	return nil
}
