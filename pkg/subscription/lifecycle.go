package subscription

import "fmt"

// lifecycle is the subscription state machine. Transitions are monotonic:
// terminal states have no outgoing edges, so a canceled or expired record
// can never be resurrected - a new record supersedes it instead.
var lifecycle = map[Status][]Status{
	StatusTrialing: {StatusActive, StatusPastDue, StatusCanceled, StatusExpired},
	StatusActive:   {StatusPastDue, StatusCanceled, StatusExpired},
	StatusPastDue:  {StatusActive, StatusCanceled, StatusExpired},
	StatusCanceled: nil,
	StatusExpired:  nil,
}

// CanTransition reports whether the lifecycle permits moving from one
// status to another.
func CanTransition(from, to Status) bool {
	for _, next := range lifecycle[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrInvalidTransition when the lifecycle does
// not permit the move, annotated with both statuses.
func ValidateTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
