package record

import "errors"

// Attendance record domain errors
var (
	ErrRecordNotFound      = errors.New("attendance record not found")
	ErrStoreUnavailable    = errors.New("attendance store unavailable")
	ErrConcurrencyConflict = errors.New("concurrent modification of attendance records detected")
	ErrEmployeeNotFound    = errors.New("employee not found")
)
