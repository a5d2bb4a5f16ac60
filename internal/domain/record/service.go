package record

import (
	"context"
)

// RecordService defines business logic for attendance capture and browsing.
type RecordService interface {
	// Capture appends a new attendance record and retroactively patches
	// the in/out times of every other record on the same employee-day.
	Capture(ctx context.Context, draft CaptureDraft) (AttendanceRecord, error)

	// GetMyRecords retrieves records for the authenticated employee.
	GetMyRecords(ctx context.Context, employeeID string, filter RecordFilter) (ListRecordsResponse, error)

	// ListRecords retrieves records with filters (admin).
	ListRecords(ctx context.Context, filter RecordFilter) (ListRecordsResponse, error)
}
