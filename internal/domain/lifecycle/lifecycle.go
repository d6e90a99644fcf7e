package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTransition is matched by every InvalidTransitionError.
var ErrInvalidTransition = errors.New("invalid status transition")

// Table maps every status to the statuses it may move to.
// Terminal statuses map to an empty slice.
type Table[S ~string] map[S][]S

// InvalidTransitionError describes a rejected status change.
type InvalidTransitionError[S ~string] struct {
	Entity    string
	Current   S
	Attempted S
	Allowed   []S
}

func (e *InvalidTransitionError[S]) Error() string {
	allowed := make([]string, 0, len(e.Allowed))
	for _, s := range e.Allowed {
		allowed = append(allowed, string(s))
	}
	label := e.Entity
	if label == "" {
		label = "entity"
	}
	return fmt.Sprintf("%s: invalid status transition %s -> %s (allowed: [%s])",
		label, e.Current, e.Attempted, strings.Join(allowed, ", "))
}

// Is reports ErrInvalidTransition as a match so callers can use errors.Is.
func (e *InvalidTransitionError[S]) Is(target error) bool {
	return target == ErrInvalidTransition
}

// IsValidTransition reports whether next is listed as a successor of current.
func IsValidTransition[S ~string](current, next S, table Table[S]) bool {
	for _, s := range table[current] {
		if s == next {
			return true
		}
	}
	return false
}

// AllowedNext returns a copy of the successors of current.
func AllowedNext[S ~string](current S, table Table[S]) []S {
	allowed := table[current]
	out := make([]S, len(allowed))
	copy(out, allowed)
	return out
}

// IsTerminal reports whether current has no successors.
func IsTerminal[S ~string](current S, table Table[S]) bool {
	return len(table[current]) == 0
}

// ValidateTransition returns an InvalidTransitionError when next is not a legal successor of current.
func ValidateTransition[S ~string](current, next S, table Table[S], entity string) error {
	if IsValidTransition(current, next, table) {
		return nil
	}
	return &InvalidTransitionError[S]{
		Entity:    entity,
		Current:   current,
		Attempted: next,
		Allowed:   AllowedNext(current, table),
	}
}
