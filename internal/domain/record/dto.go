package record

import (
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
)

// CaptureDraft carries the immutable fields of a capture observation.
// InTime/OutTime are assigned by the service, never by callers.
type CaptureDraft struct {
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
}

func (d *CaptureDraft) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(d.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if d.Timestamp.IsZero() {
		errs = append(errs, validator.ValidationError{
			Field:   "timestamp",
			Message: "timestamp is required",
		})
	}

	if d.Latitude < -90 || d.Latitude > 90 {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if d.Longitude < -180 || d.Longitude > 180 {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if d.CaptureMethod != CaptureMethodAuto && d.CaptureMethod != CaptureMethodManual {
		errs = append(errs, validator.ValidationError{
			Field:   "capture_method",
			Message: "capture_method must be either auto or manual",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type RecordResponse struct {
	ID              string  `json:"id"`
	EmployeeID      string  `json:"employee_id"`
	Name            string  `json:"name"`
	Phone           string  `json:"phone"`
	Date            string  `json:"date"`
	Timestamp       string  `json:"timestamp"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	Address         string  `json:"address"`
	PhotoURL        *string `json:"photo_url,omitempty"`
	CaptureMethod   string  `json:"capture_method"`
	ShiftTiming     string  `json:"shift_timing"`
	WorkingLocation string  `json:"working_location"`
	InTime          string  `json:"in_time"`
	OutTime         *string `json:"out_time,omitempty"`
}

type RecordFilter struct {
	EmployeeID *string
	Name       *string
	Date       *string
	StartDate  *string
	EndDate    *string
	Method     *string
	Page       int
	Limit      int
	SortBy     string
	SortOrder  string
}

func (f *RecordFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Date != nil && *f.Date != "" {
		if _, ok := validator.IsValidDate(*f.Date); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "date",
				Message: "date must be in YYYY-MM-DD format",
			})
		}
	}
	if f.StartDate != nil && *f.StartDate != "" {
		if _, ok := validator.IsValidDate(*f.StartDate); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "start_date",
				Message: "start_date must be in YYYY-MM-DD format",
			})
		}
	}
	if f.EndDate != nil && *f.EndDate != "" {
		if _, ok := validator.IsValidDate(*f.EndDate); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must be in YYYY-MM-DD format",
			})
		}
	}
	if f.Method != nil && *f.Method != "" {
		if !validator.IsInSlice(*f.Method, []string{string(CaptureMethodAuto), string(CaptureMethodManual)}) {
			errs = append(errs, validator.ValidationError{
				Field:   "method",
				Message: "method must be either auto or manual",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// Normalize fills pagination and sorting defaults.
func (f *RecordFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.SortBy == "" {
		f.SortBy = "captured_at"
	}
	if f.SortOrder != "asc" {
		f.SortOrder = "desc"
	}
}

type ListRecordsResponse struct {
	TotalCount int64            `json:"total_count"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
	Records    []RecordResponse `json:"records"`
}
