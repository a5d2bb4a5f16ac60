package record

import (
	"time"
)

type CaptureMethod string

const (
	CaptureMethodAuto   CaptureMethod = "auto"
	CaptureMethodManual CaptureMethod = "manual"
)

// AttendanceRecord is one attendance-marking event. Identity and location
// fields are snapshotted at capture time and never change afterwards.
// InTime and OutTime are recomputed whenever another record lands on the
// same employee's calendar day.
type AttendanceRecord struct {
	ID              string
	EmployeeID      string
	Phone           string
	Name            string
	Timestamp       time.Time
	Latitude        float64
	Longitude       float64
	Address         string
	PhotoURL        *string
	CaptureMethod   CaptureMethod
	ShiftTiming     string
	WorkingLocation string
	InTime          time.Time
	OutTime         *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DayKey returns the employee+day identity this record belongs to,
// bucketed by local midnight in loc.
func (r AttendanceRecord) DayKey(loc *time.Location) string {
	return r.EmployeeID + "/" + r.Timestamp.In(loc).Format("2006-01-02")
}

// DayStart returns local midnight of the day containing t.
func DayStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
