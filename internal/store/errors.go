package store

import "errors"

// Sentinel errors returned by the store. Handlers classify them with
// errors.Is; everything except ErrConflict is permanent and must not be
// retried by the caller.
var (
	// ErrNotFound is returned when a referenced user or session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyRegistered is returned when the user already holds a roster or
	// waitlist spot for the session.
	ErrAlreadyRegistered = errors.New("already registered")

	// ErrNotRegistered is returned when a cancellation targets a user who holds
	// no spot for the session.
	ErrNotRegistered = errors.New("not registered")

	// ErrClassFull is returned when both the roster and the waitlist are at
	// capacity.
	ErrClassFull = errors.New("class and waitlist are full")

	// ErrAttendanceSettled is returned when attendance is submitted for a
	// session that has already been settled.
	ErrAttendanceSettled = errors.New("attendance already settled")

	// ErrInvalidPartition is returned when the present/absent sets overlap or
	// reference unknown users.
	ErrInvalidPartition = errors.New("invalid attendance partition")

	// ErrConflict is returned after a transaction kept failing with transient
	// write conflicts. The request may be retried.
	ErrConflict = errors.New("storage conflict")
)
