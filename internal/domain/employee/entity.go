package employee

import (
	"time"
)

type Employee struct {
	ID              string
	EmployeeCode    string
	FullName        string
	Phone           string
	Email           *string
	ShiftTiming     string
	WorkingLocation string
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
