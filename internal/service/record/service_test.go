package record_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/record"
	"github.com/cmlabs-hris/presence-backend-go/internal/repository/memory"
	recordsvc "github.com/cmlabs-hris/presence-backend-go/internal/service/record"
)

var jakarta = mustLoadLocation("Asia/Jakarta")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func newTestService(t *testing.T) (record.RecordService, *memory.RecordStore) {
	t.Helper()
	store := memory.NewRecordStore()
	svc := recordsvc.NewRecordService(store, memory.NewRunner(), jakarta, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, store
}

func draftAt(ts time.Time) record.CaptureDraft {
	return record.CaptureDraft{
		EmployeeID:      "1001-2001",
		Phone:           "+628111222333",
		Name:            "Sari Wulandari",
		Timestamp:       ts,
		Latitude:        -6.2,
		Longitude:       106.8,
		Address:         "Jl. Sudirman No. 1, Jakarta",
		CaptureMethod:   record.CaptureMethodAuto,
		ShiftTiming:     "09:00 - 17:00",
		WorkingLocation: "Head Office",
	}
}

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 9, hour, min, 0, 0, jakarta)
}

func TestCaptureFirstOfDayHasNoOutTime(t *testing.T) {
	svc, _ := newTestService(t)

	rec, err := svc.Capture(context.Background(), draftAt(at(9, 0)))
	require.NoError(t, err)

	assert.True(t, rec.InTime.Equal(at(9, 0)))
	assert.Nil(t, rec.OutTime)
}

func TestCaptureSecondOfDaySetsOutTimeOnBoth(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	first, err := svc.Capture(ctx, draftAt(at(9, 0)))
	require.NoError(t, err)

	second, err := svc.Capture(ctx, draftAt(at(9, 5)))
	require.NoError(t, err)

	assert.True(t, second.InTime.Equal(at(9, 0)))
	require.NotNil(t, second.OutTime)
	assert.True(t, second.OutTime.Equal(at(9, 5)))

	// The first record gets patched retroactively.
	patched, err := store.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, patched.InTime.Equal(at(9, 0)))
	require.NotNil(t, patched.OutTime)
	assert.True(t, patched.OutTime.Equal(at(9, 5)))
}

func TestCaptureEveningExtendsOutTimeAcrossDay(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	for _, ts := range []time.Time{at(9, 0), at(9, 5), at(17, 30)} {
		_, err := svc.Capture(ctx, draftAt(ts))
		require.NoError(t, err)
	}

	all := dayRecords(t, store, at(0, 0))
	require.Len(t, all, 3)
	for _, rec := range all {
		assert.True(t, rec.InTime.Equal(at(9, 0)))
		require.NotNil(t, rec.OutTime)
		assert.True(t, rec.OutTime.Equal(at(17, 30)))
	}
}

func TestCaptureBackdatedRewritesInTimeEverywhere(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	for _, ts := range []time.Time{at(9, 0), at(9, 5), at(17, 30)} {
		_, err := svc.Capture(ctx, draftAt(ts))
		require.NoError(t, err)
	}

	// Arrives last but carries the earliest timestamp of the day.
	rec, err := svc.Capture(ctx, draftAt(at(8, 50)))
	require.NoError(t, err)
	assert.True(t, rec.InTime.Equal(at(8, 50)))
	require.NotNil(t, rec.OutTime)
	assert.True(t, rec.OutTime.Equal(at(17, 30)))

	all := dayRecords(t, store, at(0, 0))
	require.Len(t, all, 4)
	for _, got := range all {
		assert.True(t, got.InTime.Equal(at(8, 50)))
		require.NotNil(t, got.OutTime)
		assert.True(t, got.OutTime.Equal(at(17, 30)))
	}
}

func TestCaptureDayBoundaryIsLocalMidnight(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	lateNight := time.Date(2026, 3, 8, 23, 59, 59, 999_000_000, jakarta)
	midnight := time.Date(2026, 3, 9, 0, 0, 0, 0, jakarta)

	prev, err := svc.Capture(ctx, draftAt(lateNight))
	require.NoError(t, err)
	next, err := svc.Capture(ctx, draftAt(midnight))
	require.NoError(t, err)

	// One millisecond apart but on different calendar days, so each stays
	// the sole record of its own day.
	assert.Nil(t, prev.OutTime)
	assert.Nil(t, next.OutTime)

	stored, err := store.GetByID(ctx, prev.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.OutTime)
}

func TestCaptureSameTimestampTwice(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Capture(ctx, draftAt(at(9, 0)))
	require.NoError(t, err)
	rec, err := svc.Capture(ctx, draftAt(at(9, 0)))
	require.NoError(t, err)

	assert.True(t, rec.InTime.Equal(at(9, 0)))
	require.NotNil(t, rec.OutTime)
	assert.True(t, rec.OutTime.Equal(at(9, 0)))

	all := dayRecords(t, store, at(0, 0))
	require.Len(t, all, 2)
	for _, got := range all {
		require.NotNil(t, got.OutTime)
		assert.True(t, got.InTime.Equal(*got.OutTime))
	}
}

func TestCaptureSkipsRecordsWithMissingTimestamp(t *testing.T) {
	store := memory.NewRecordStore()
	corrupted := &corruptingRepo{RecordRepository: store}
	svc := recordsvc.NewRecordService(corrupted, memory.NewRunner(), jakarta, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	rec, err := svc.Capture(ctx, draftAt(at(9, 0)))
	require.NoError(t, err)

	// The corrupt row neither contributes a time nor blocks the capture.
	assert.True(t, rec.InTime.Equal(at(9, 0)))
	assert.Nil(t, rec.OutTime)
}

func TestCaptureOtherEmployeeUnaffected(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Capture(ctx, draftAt(at(9, 0)))
	require.NoError(t, err)

	other := draftAt(at(10, 0))
	other.EmployeeID = "1001-2002"
	rec, err := svc.Capture(ctx, other)
	require.NoError(t, err)

	assert.Nil(t, rec.OutTime)

	mine := dayRecords(t, store, at(0, 0))
	require.Len(t, mine, 1)
	assert.Nil(t, mine[0].OutTime)
}

func TestCaptureRejectsInvalidDraft(t *testing.T) {
	svc, _ := newTestService(t)

	draft := draftAt(at(9, 0))
	draft.EmployeeID = ""
	_, err := svc.Capture(context.Background(), draft)
	assert.Error(t, err)

	draft = draftAt(time.Time{})
	_, err = svc.Capture(context.Background(), draft)
	assert.Error(t, err)
}

func TestCaptureConcurrentSameDayKeepsInvariant(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	const captures = 20
	var wg sync.WaitGroup
	for i := 0; i < captures; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Capture(ctx, draftAt(at(9, i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all := dayRecords(t, store, at(0, 0))
	require.Len(t, all, captures)
	for _, got := range all {
		assert.True(t, got.InTime.Equal(at(9, 0)))
		require.NotNil(t, got.OutTime)
		assert.True(t, got.OutTime.Equal(at(9, captures-1)))
	}
}

func TestCaptureStoreFailureLeavesDayUntouched(t *testing.T) {
	store := memory.NewRecordStore()
	failing := &failingRepo{RecordRepository: store}
	svc := recordsvc.NewRecordService(failing, memory.NewRunner(), jakarta, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	_, err := svc.Capture(ctx, draftAt(at(9, 0)))
	require.NoError(t, err)

	failing.failCreate = true
	_, err = svc.Capture(ctx, draftAt(at(17, 0)))
	require.Error(t, err)
	assert.ErrorIs(t, err, record.ErrStoreUnavailable)

	// The failed capture must not have half-applied anything.
	all := dayRecords(t, store, at(0, 0))
	require.Len(t, all, 1)
	assert.Nil(t, all[0].OutTime)
}

func TestGetMyRecordsScopedToEmployee(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Capture(ctx, draftAt(at(9, 0)))
	require.NoError(t, err)

	other := draftAt(at(9, 30))
	other.EmployeeID = "1001-2002"
	_, err = svc.Capture(ctx, other)
	require.NoError(t, err)

	resp, err := svc.GetMyRecords(ctx, "1001-2001", record.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "1001-2001", resp.Records[0].EmployeeID)
	assert.Equal(t, int64(1), resp.TotalCount)
}

func TestListRecordsPagination(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Capture(ctx, draftAt(at(9, i)))
		require.NoError(t, err)
	}

	resp, err := svc.ListRecords(ctx, record.RecordFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), resp.TotalCount)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Len(t, resp.Records, 2)
}

func TestListRecordsRejectsBadFilter(t *testing.T) {
	svc, _ := newTestService(t)

	bad := "not-a-date"
	_, err := svc.ListRecords(context.Background(), record.RecordFilter{Date: &bad})
	assert.Error(t, err)
}

func dayRecords(t *testing.T, store *memory.RecordStore, dayStart time.Time) []record.AttendanceRecord {
	t.Helper()
	all, err := store.ListByEmployeeAndRange(context.Background(), "1001-2001", dayStart, dayStart.AddDate(0, 0, 1))
	require.NoError(t, err)
	return all
}

type failingRepo struct {
	record.RecordRepository
	failCreate bool
}

func (f *failingRepo) Create(ctx context.Context, rec record.AttendanceRecord) (record.AttendanceRecord, error) {
	if f.failCreate {
		return record.AttendanceRecord{}, fmt.Errorf("connection reset: %w", errors.New("write failed"))
	}
	return f.RecordRepository.Create(ctx, rec)
}

// corruptingRepo prepends a row with a zero capture time to every day
// lookup, mimicking a store that returns damaged data.
type corruptingRepo struct {
	record.RecordRepository
}

func (c *corruptingRepo) ListByEmployeeAndRange(ctx context.Context, employeeID string, from, to time.Time) ([]record.AttendanceRecord, error) {
	records, err := c.RecordRepository.ListByEmployeeAndRange(ctx, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	corrupt := record.AttendanceRecord{ID: "corrupt-row", EmployeeID: employeeID}
	return append([]record.AttendanceRecord{corrupt}, records...), nil
}
