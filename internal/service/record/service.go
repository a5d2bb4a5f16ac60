package record

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/record"
)

// recordService finalizes attendance captures. All records an employee
// produces on one local calendar day share a single in time and, once a
// second record exists, a single out time. Appending a capture therefore
// recomputes both values over the whole day and patches every stored
// record that diverges, in the same transaction as the append.
type recordService struct {
	repo     record.RecordRepository
	runner   record.TxRunner
	location *time.Location
	locks    *keyedMutex
	logger   *slog.Logger
}

func NewRecordService(repo record.RecordRepository, runner record.TxRunner, location *time.Location, logger *slog.Logger) record.RecordService {
	return &recordService{
		repo:     repo,
		runner:   runner,
		location: location,
		locks:    newKeyedMutex(),
		logger:   logger,
	}
}

func (s *recordService) Capture(ctx context.Context, draft record.CaptureDraft) (record.AttendanceRecord, error) {
	if err := draft.Validate(); err != nil {
		return record.AttendanceRecord{}, err
	}

	dayStart := record.DayStart(draft.Timestamp, s.location)
	key := draft.EmployeeID + "@" + dayStart.Format("2006-01-02")

	unlock := s.locks.Lock(key)
	defer unlock()

	finalized, err := s.assign(ctx, draft, dayStart)
	if errors.Is(err, record.ErrConcurrencyConflict) {
		s.logger.WarnContext(ctx, "capture hit concurrent day update, retrying",
			slog.String("employee_id", draft.EmployeeID),
			slog.Time("day_start", dayStart))
		finalized, err = s.assign(ctx, draft, dayStart)
	}
	if err != nil {
		return record.AttendanceRecord{}, err
	}

	return finalized, nil
}

// assign runs the append plus any retroactive patches as one transaction.
// Either the new record and every correction land together or none do.
func (s *recordService) assign(ctx context.Context, draft record.CaptureDraft, dayStart time.Time) (record.AttendanceRecord, error) {
	var finalized record.AttendanceRecord

	err := s.runner.RunTx(ctx, func(txCtx context.Context) error {
		existing, err := s.resolveDay(txCtx, draft.EmployeeID, draft.Timestamp)
		if err != nil {
			return err
		}

		inTime, outTime := dayTimes(existing, draft.Timestamp)

		rec := record.AttendanceRecord{
			EmployeeID:      draft.EmployeeID,
			Phone:           draft.Phone,
			Name:            draft.Name,
			Timestamp:       draft.Timestamp,
			Latitude:        draft.Latitude,
			Longitude:       draft.Longitude,
			Address:         draft.Address,
			PhotoURL:        draft.PhotoURL,
			CaptureMethod:   draft.CaptureMethod,
			ShiftTiming:     draft.ShiftTiming,
			WorkingLocation: draft.WorkingLocation,
			InTime:          inTime,
			OutTime:         outTime,
		}

		created, err := s.repo.Create(txCtx, rec)
		if err != nil {
			return fmt.Errorf("failed to create attendance record: %w", err)
		}
		finalized = created

		for _, prior := range existing {
			if prior.InTime.Equal(inTime) && equalOutTime(prior.OutTime, outTime) {
				continue
			}
			if err := s.repo.UpdateTimes(txCtx, prior.ID, inTime, outTime); err != nil {
				return fmt.Errorf("failed to patch attendance record %s: %w", prior.ID, err)
			}
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, record.ErrConcurrencyConflict) || isDomainError(err) {
			return record.AttendanceRecord{}, err
		}
		return record.AttendanceRecord{}, fmt.Errorf("%w: %v", record.ErrStoreUnavailable, err)
	}

	return finalized, nil
}

// resolveDay loads every record the employee produced on the local
// calendar day containing instant, oldest first. Records carrying a zero
// capture timestamp are corrupt and excluded from time computation so a
// single bad row cannot poison the whole day.
func (s *recordService) resolveDay(ctx context.Context, employeeID string, instant time.Time) ([]record.AttendanceRecord, error) {
	dayStart := record.DayStart(instant, s.location)
	dayEnd := dayStart.AddDate(0, 0, 1)

	records, err := s.repo.ListByEmployeeAndRange(ctx, employeeID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load day records: %w", err)
	}

	valid := records[:0]
	for _, rec := range records {
		if rec.Timestamp.IsZero() {
			s.logger.WarnContext(ctx, "skipping attendance record with missing capture time",
				slog.String("record_id", rec.ID),
				slog.String("employee_id", employeeID))
			continue
		}
		valid = append(valid, rec)
	}

	return valid, nil
}

func (s *recordService) GetMyRecords(ctx context.Context, employeeID string, filter record.RecordFilter) (record.ListRecordsResponse, error) {
	filter.EmployeeID = &employeeID
	return s.ListRecords(ctx, filter)
}

func (s *recordService) ListRecords(ctx context.Context, filter record.RecordFilter) (record.ListRecordsResponse, error) {
	if err := filter.Validate(); err != nil {
		return record.ListRecordsResponse{}, err
	}
	filter.Normalize()

	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return record.ListRecordsResponse{}, fmt.Errorf("failed to list attendance records: %w", err)
	}

	responses := make([]record.RecordResponse, 0, len(records))
	for _, rec := range records {
		responses = append(responses, s.mapToResponse(rec))
	}

	totalPages := 0
	if filter.Limit > 0 {
		totalPages = int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	}

	return record.ListRecordsResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
		Records:    responses,
	}, nil
}

func (s *recordService) mapToResponse(rec record.AttendanceRecord) record.RecordResponse {
	resp := record.RecordResponse{
		ID:              rec.ID,
		EmployeeID:      rec.EmployeeID,
		Phone:           rec.Phone,
		Name:            rec.Name,
		Date:            rec.Timestamp.In(s.location).Format("2006-01-02"),
		Timestamp:       rec.Timestamp.In(s.location).Format(time.RFC3339),
		Latitude:        rec.Latitude,
		Longitude:       rec.Longitude,
		Address:         rec.Address,
		PhotoURL:        rec.PhotoURL,
		CaptureMethod:   string(rec.CaptureMethod),
		ShiftTiming:     rec.ShiftTiming,
		WorkingLocation: rec.WorkingLocation,
		InTime:          rec.InTime.In(s.location).Format(time.RFC3339),
	}
	if rec.OutTime != nil {
		out := rec.OutTime.In(s.location).Format(time.RFC3339)
		resp.OutTime = &out
	}
	return resp
}

// dayTimes computes the shared in and out time for a day given its stored
// records plus the timestamp being appended. In time is the minimum capture
// timestamp. Out time is the maximum, present only once the day holds more
// than one record.
func dayTimes(existing []record.AttendanceRecord, appended time.Time) (time.Time, *time.Time) {
	earliest := appended
	latest := appended
	for _, rec := range existing {
		if rec.Timestamp.Before(earliest) {
			earliest = rec.Timestamp
		}
		if rec.Timestamp.After(latest) {
			latest = rec.Timestamp
		}
	}

	if len(existing) == 0 {
		return earliest, nil
	}
	out := latest
	return earliest, &out
}

func equalOutTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func isDomainError(err error) bool {
	return errors.Is(err, record.ErrRecordNotFound) ||
		errors.Is(err, record.ErrEmployeeNotFound)
}
