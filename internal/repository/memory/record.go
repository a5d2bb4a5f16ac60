// Package memory holds an in-process implementation of the attendance
// record store. It backs tests and single-node development setups where
// running PostgreSQL is not worth the trouble.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/record"
	"github.com/google/uuid"
)

type storedRecord struct {
	record.AttendanceRecord
	seq int64
}

// RecordStore is an append-only in-memory record store with in-place
// time patching. All operations are safe for concurrent use.
type RecordStore struct {
	mu      sync.RWMutex
	records []storedRecord
	byID    map[string]int
	nextSeq int64
}

func NewRecordStore() *RecordStore {
	return &RecordStore{
		byID: make(map[string]int),
	}
}

// Create implements record.RecordRepository.
func (s *RecordStore) Create(_ context.Context, rec record.AttendanceRecord) (record.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = uuid.NewString()
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	s.nextSeq++
	s.byID[rec.ID] = len(s.records)
	s.records = append(s.records, storedRecord{AttendanceRecord: rec, seq: s.nextSeq})

	return rec, nil
}

// ListByEmployeeAndRange implements record.RecordRepository. Results
// come back ordered by timestamp, insertion order breaking ties.
func (s *RecordStore) ListByEmployeeAndRange(_ context.Context, employeeID string, from, to time.Time) ([]record.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []storedRecord
	for _, sr := range s.records {
		if sr.EmployeeID != employeeID {
			continue
		}
		if sr.Timestamp.Before(from) || !sr.Timestamp.Before(to) {
			continue
		}
		matched = append(matched, sr)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].seq < matched[j].seq
		}
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})

	out := make([]record.AttendanceRecord, 0, len(matched))
	for _, sr := range matched {
		out = append(out, sr.AttendanceRecord)
	}
	return out, nil
}

// UpdateTimes implements record.RecordRepository.
func (s *RecordStore) UpdateTimes(_ context.Context, id string, inTime time.Time, outTime *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.byID[id]
	if !ok {
		return record.ErrRecordNotFound
	}

	s.records[idx].InTime = inTime
	if outTime != nil {
		out := *outTime
		s.records[idx].OutTime = &out
	} else {
		s.records[idx].OutTime = nil
	}
	s.records[idx].UpdatedAt = time.Now()

	return nil
}

// GetByID implements record.RecordRepository.
func (s *RecordStore) GetByID(_ context.Context, id string) (record.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[id]
	if !ok {
		return record.AttendanceRecord{}, record.ErrRecordNotFound
	}
	return s.records[idx].AttendanceRecord, nil
}

// List implements record.RecordRepository. Filtering supports the
// subset the admin browse surface needs; sorting is newest-first.
func (s *RecordStore) List(_ context.Context, filter record.RecordFilter) ([]record.AttendanceRecord, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []storedRecord
	for _, sr := range s.records {
		if filter.EmployeeID != nil && *filter.EmployeeID != "" && sr.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.Method != nil && *filter.Method != "" && string(sr.CaptureMethod) != *filter.Method {
			continue
		}
		if filter.Date != nil && *filter.Date != "" && sr.Timestamp.Format("2006-01-02") != *filter.Date {
			continue
		}
		matched = append(matched, sr)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	total := int64(len(matched))

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	page := filter.Page
	if page == 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]record.AttendanceRecord, 0, end-start)
	for _, sr := range matched[start:end] {
		out = append(out, sr.AttendanceRecord)
	}
	return out, total, nil
}

// Runner implements record.TxRunner with one big lock. Writes made
// inside fn become visible in one step relative to other RunTx calls,
// which is all the in-memory store promises.
type Runner struct {
	mu sync.Mutex
}

func NewRunner() *Runner {
	return &Runner{}
}

func (r *Runner) RunTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx)
}
