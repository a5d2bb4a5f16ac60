package session

import "errors"

// Session domain errors
var (
	ErrSessionNotFound = errors.New("no active camera session for employee")
)
