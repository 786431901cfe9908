// Package common defines shared constants and sentinel errors used across
// the storage, directory, session, cart and coordinator layers. Callers should
// use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Coordinator errors reported to the caller.
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrNoSuchAccount        = errors.New("no such account")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUpdateWithoutSession = errors.New("update attempted without a session")
	ErrAlreadyAuthenticated = errors.New("already authenticated")

	// ErrMalformedPersistedState marks corrupt persisted JSON. It is logged and
	// recovered from by the storage layer, never returned to the UI.
	ErrMalformedPersistedState = errors.New("malformed persisted state")

	// Validation errors.
	ErrInvalidUserType = errors.New("invalid user type")
	ErrInvalidCartLine = errors.New("invalid cart line")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrInvalidField    = errors.New("invalid field")
	ErrImmutableField  = errors.New("field cannot be changed")
)
