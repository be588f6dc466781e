package models

import "errors"

// Validation errors are detected before any store access.
var (
	ErrInvalidURL      = errors.New("URL to be shortened is invalid")
	ErrInvalidUsername = errors.New("username format is invalid")
	ErrInvalidEmail    = errors.New("email format is invalid")
	ErrInvalidPassword = errors.New("password format is invalid")
)

var (
	// ErrNotFound is returned by every repository lookup that finds no
	// record for the given key or username.
	ErrNotFound = errors.New("record not found")

	// ErrForbidden is returned when the requester does not own the record
	// or presented the wrong administrative delete key.
	ErrForbidden = errors.New("invalid ownership request")

	// ErrMismatch is returned when a supplied username does not match the
	// account registered under the supplied email.
	ErrMismatch = errors.New("username does not match email")
)

// Conflict errors: the requested identifier is already taken.
var (
	ErrKeyTaken      = errors.New("URL key has been used for other link")
	ErrUsernameTaken = errors.New("username has already been registered")
	ErrEmailTaken    = errors.New("email has already been registered")
)

// IsValidation reports whether err is a pre-store input validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidURL) || errors.Is(err, ErrInvalidUsername) ||
		errors.Is(err, ErrInvalidEmail) || errors.Is(err, ErrInvalidPassword)
}

// IsConflict reports whether err indicates a duplicate key, username or email.
func IsConflict(err error) bool {
	return errors.Is(err, ErrKeyTaken) || errors.Is(err, ErrUsernameTaken) ||
		errors.Is(err, ErrEmailTaken)
}
