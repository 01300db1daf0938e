package credit

import "errors"

// Engine failure codes. Every operation either fully succeeds or returns one
// of these before any mutation.
var (
	ErrAlreadyInitialized      = errors.New("credit engine already initialized")
	ErrNotInitialized          = errors.New("credit engine not initialized")
	ErrUnauthorized            = errors.New("caller not on the authorized list")
	ErrUserNotFound            = errors.New("no credit profile for unique id")
	ErrCallerAlreadyAuthorized = errors.New("caller already authorized")
)
