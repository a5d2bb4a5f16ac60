package record

import (
	"context"
	"time"
)

// TxRunner executes fn with all-or-nothing visibility: either every
// repository write made inside fn becomes visible to readers, or none.
type TxRunner interface {
	RunTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RecordRepository defines data access for attendance records.
type RecordRepository interface {
	// Create appends a new record and assigns it a fresh id.
	Create(ctx context.Context, rec AttendanceRecord) (AttendanceRecord, error)

	// ListByEmployeeAndRange returns every record for employeeID with
	// timestamp in [from, to), ordered oldest-first, oldest insertion
	// first on equal timestamps.
	ListByEmployeeAndRange(ctx context.Context, employeeID string, from, to time.Time) ([]AttendanceRecord, error)

	// UpdateTimes patches the in/out times of an existing record in place.
	UpdateTimes(ctx context.Context, id string, inTime time.Time, outTime *time.Time) error

	// GetByID retrieves a single record.
	GetByID(ctx context.Context, id string) (AttendanceRecord, error)

	// List retrieves records with filters and pagination for admin browsing.
	List(ctx context.Context, filter RecordFilter) ([]AttendanceRecord, int64, error)
}
