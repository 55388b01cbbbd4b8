package budget

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of a budget.
type Status string

const (
	StatusProcessing       Status = "processing"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusApproved         Status = "approved"
)

var (
	// ErrInvalidTransition is returned when a status change skips or reverses the lifecycle.
	ErrInvalidTransition = errors.New("budget: invalid status transition")
	// ErrNotFound indicates the budget does not exist.
	ErrNotFound = errors.New("budget: not found")
	// ErrApproved is returned when editing a budget that has already been approved.
	ErrApproved = errors.New("budget: approved budgets cannot be edited")
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusAwaitingApproval, StatusApproved:
		return true
	}
	return false
}

// Next returns the status that follows s, if any.
func (s Status) Next() (Status, bool) {
	switch s {
	case StatusProcessing:
		return StatusAwaitingApproval, true
	case StatusAwaitingApproval:
		return StatusApproved, true
	}
	return "", false
}

// Transition validates a move from s to next.
func (s Status) Transition(next Status) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}
	want, ok := s.Next()
	if !ok || want != next {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return nil
}
