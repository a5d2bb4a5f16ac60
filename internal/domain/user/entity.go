package user

import "time"

// User is an administrator account. Employees do not have users; they
// authenticate with their employee code.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
