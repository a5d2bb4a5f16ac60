package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/record"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type recordRepository struct {
	db *database.DB
}

const recordColumns = `id, employee_id, phone, full_name, captured_at,
		   latitude, longitude, address, photo_url, capture_method,
		   shift_timing, working_location, in_time, out_time,
		   created_at, updated_at`

// Create implements record.RecordRepository.
func (r *recordRepository) Create(ctx context.Context, rec record.AttendanceRecord) (record.AttendanceRecord, error) {
	q := GetQuerier(ctx, r.db)

	rec.ID = uuid.NewString()

	query := `
		INSERT INTO attendance_records (
			id, employee_id, phone, full_name, captured_at,
			latitude, longitude, address, photo_url, capture_method,
			shift_timing, working_location, in_time, out_time
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		rec.ID,
		rec.EmployeeID,
		rec.Phone,
		rec.Name,
		rec.Timestamp,
		rec.Latitude,
		rec.Longitude,
		rec.Address,
		rec.PhotoURL,
		rec.CaptureMethod,
		rec.ShiftTiming,
		rec.WorkingLocation,
		rec.InTime,
		rec.OutTime,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)

	if err != nil {
		return record.AttendanceRecord{}, fmt.Errorf("failed to create attendance record: %w", err)
	}

	return rec, nil
}

// ListByEmployeeAndRange implements record.RecordRepository.
func (r *recordRepository) ListByEmployeeAndRange(ctx context.Context, employeeID string, from, to time.Time) ([]record.AttendanceRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + recordColumns + `
		FROM attendance_records
		WHERE employee_id = $1
		  AND captured_at >= $2
		  AND captured_at < $3
		ORDER BY captured_at ASC, created_at ASC
	`

	rows, err := q.Query(ctx, query, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// UpdateTimes implements record.RecordRepository.
func (r *recordRepository) UpdateTimes(ctx context.Context, id string, inTime time.Time, outTime *time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE attendance_records
		SET in_time = $1, out_time = $2, updated_at = $3
		WHERE id = $4
		RETURNING id
	`

	var updatedID string
	if err := q.QueryRow(ctx, query, inTime, outTime, time.Now(), id).Scan(&updatedID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return record.ErrRecordNotFound
		}
		return fmt.Errorf("failed to update attendance times: %w", err)
	}

	return nil
}

// GetByID implements record.RecordRepository.
func (r *recordRepository) GetByID(ctx context.Context, id string) (record.AttendanceRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + recordColumns + `
		FROM attendance_records
		WHERE id = $1
	`

	var rec record.AttendanceRecord
	err := q.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.EmployeeID, &rec.Phone, &rec.Name, &rec.Timestamp,
		&rec.Latitude, &rec.Longitude, &rec.Address, &rec.PhotoURL, &rec.CaptureMethod,
		&rec.ShiftTiming, &rec.WorkingLocation, &rec.InTime, &rec.OutTime,
		&rec.CreatedAt, &rec.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return record.AttendanceRecord{}, record.ErrRecordNotFound
		}
		return record.AttendanceRecord{}, fmt.Errorf("failed to get attendance record by ID: %w", err)
	}

	return rec, nil
}

// List implements record.RecordRepository.
func (r *recordRepository) List(ctx context.Context, filter record.RecordFilter) ([]record.AttendanceRecord, int64, error) {
	q := GetQuerier(ctx, r.db)

	// Build WHERE clause
	baseWhere := "TRUE"
	args := []interface{}{}
	argIdx := 1

	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		baseWhere += fmt.Sprintf(" AND employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}

	if filter.Name != nil && *filter.Name != "" {
		baseWhere += fmt.Sprintf(" AND full_name ILIKE $%d", argIdx)
		args = append(args, "%"+*filter.Name+"%")
		argIdx++
	}

	if filter.Date != nil && *filter.Date != "" {
		baseWhere += fmt.Sprintf(" AND captured_at::date = $%d", argIdx)
		args = append(args, *filter.Date)
		argIdx++
	}

	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND captured_at::date >= $%d", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND captured_at::date <= $%d", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}

	if filter.Method != nil && *filter.Method != "" {
		baseWhere += fmt.Sprintf(" AND capture_method = $%d", argIdx)
		args = append(args, *filter.Method)
		argIdx++
	}

	countQuery := "SELECT COUNT(*) FROM attendance_records WHERE " + baseWhere
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance records: %w", err)
	}

	orderByField := "captured_at"
	switch filter.SortBy {
	case "name":
		orderByField = "full_name"
	case "in_time":
		orderByField = "in_time"
	case "out_time":
		orderByField = "out_time"
	}
	sortOrder := "DESC"
	if strings.ToLower(filter.SortOrder) == "asc" {
		sortOrder = "ASC"
	}

	selectQuery := fmt.Sprintf(`
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, baseWhere, orderByField, sortOrder, argIdx, argIdx+1)

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	page := filter.Page
	if page == 0 {
		page = 1
	}
	offset := (page - 1) * limit
	args = append(args, limit, offset)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query attendance records: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func scanRecords(rows pgx.Rows) ([]record.AttendanceRecord, error) {
	var records []record.AttendanceRecord
	for rows.Next() {
		var rec record.AttendanceRecord
		err := rows.Scan(
			&rec.ID, &rec.EmployeeID, &rec.Phone, &rec.Name, &rec.Timestamp,
			&rec.Latitude, &rec.Longitude, &rec.Address, &rec.PhotoURL, &rec.CaptureMethod,
			&rec.ShiftTiming, &rec.WorkingLocation, &rec.InTime, &rec.OutTime,
			&rec.CreatedAt, &rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read attendance records: %w", err)
	}
	return records, nil
}

func NewRecordRepository(db *database.DB) record.RecordRepository {
	return &recordRepository{db: db}
}
