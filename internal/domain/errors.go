package domain

import "errors"

var (
	// ErrValidation is returned for malformed or out-of-range input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound is returned when a referenced quiz, team, question or answer does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a team name is already taken within a quiz.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState is returned when an operation is not permitted in the quiz's current status.
	ErrInvalidState = errors.New("invalid state")
	// ErrStorage indicates an I/O or parse failure against persisted state.
	ErrStorage = errors.New("storage error")
)
