package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a user with the same email).
	ErrDuplicate = errors.New("entity already exists")

	// ErrUserNotFound indicates that the requested user does not exist.
	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)

	// ErrQuizNotFound indicates that the requested quiz does not exist.
	ErrQuizNotFound = fmt.Errorf("%w: quiz", ErrNotFound)

	// ErrEmailExists indicates the email is already registered.
	ErrEmailExists = fmt.Errorf("%w: email", ErrDuplicate)

	// ErrInvalidEntity is returned when an entity fails a database
	// constraint other than uniqueness (foreign key, check, not null).
	ErrInvalidEntity = errors.New("invalid entity")
)
