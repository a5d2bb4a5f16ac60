package employee

import "errors"

// Employee domain errors
var (
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrEmployeeCodeExists = errors.New("employee code already exists")
	ErrPhoneExists        = errors.New("phone number already registered")
	ErrEmployeeInactive   = errors.New("employee is inactive")
)
