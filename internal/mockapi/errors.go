package mockapi

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when a branch, user or appointment does not exist
	// or is not visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials is returned for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUserExists is returned when registering a taken username.
	ErrUserExists = errors.New("username is already taken")

	// ErrSlotFull is returned when every seat in a slot is booked.
	ErrSlotFull = errors.New("this time slot is no longer available")

	// ErrAlreadyCancelled is returned when cancelling a cancelled appointment.
	ErrAlreadyCancelled = errors.New("appointment is already cancelled")

	// ErrPastAppointment is returned when cancelling an appointment that has started.
	ErrPastAppointment = errors.New("past appointments cannot be cancelled")
)

// ValidationError maps field names to human-readable problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}
