package engine

import "fmt"

// ValidationError rejects malformed or out-of-range input.
type ValidationError struct {
	Msg string
}

func (e ValidationError) Error() string { return e.Msg }

// NotFoundError reports a missing entity by kind and id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Kind, e.ID) }

// PermissionError rejects an operation the caller is not entitled to.
type PermissionError struct {
	Msg string
}

func (e PermissionError) Error() string { return e.Msg }

// ConflictError rejects an operation that would violate a uniqueness or
// state-machine invariant.
type ConflictError struct {
	Msg string
}

func (e ConflictError) Error() string { return e.Msg }

// AuthenticationError rejects bad credentials or tokens.
type AuthenticationError struct {
	Msg string
}

func (e AuthenticationError) Error() string { return e.Msg }
