package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyExists is returned when registering a username that is already taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnauthorized is returned when a request carries no valid session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when an authenticated caller is not entitled to a resource.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned for a missing account, category, item or file, and for malformed paths.
	ErrNotFound = errors.New("not found")
	// ErrOutOfRange is returned for a category index outside the account's categories.
	// It matches ErrNotFound with errors.Is.
	ErrOutOfRange = fmt.Errorf("%w: index out of range", ErrNotFound)
	// ErrStorageFailure is returned when disk or database I/O fails. Callers may retry.
	ErrStorageFailure = errors.New("storage failure")
	// ErrInternal is returned for unexpected failures, such as a hash function error.
	ErrInternal = errors.New("internal error")
	// ErrInvalidInput is returned when a request is missing or has malformed parameters.
	ErrInvalidInput = errors.New("invalid input")
)
