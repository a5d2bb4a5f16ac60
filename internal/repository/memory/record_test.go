package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/record"
	"github.com/cmlabs-hris/presence-backend-go/internal/repository/memory"
)

func storedAt(t *testing.T, store *memory.RecordStore, employeeID string, ts time.Time) record.AttendanceRecord {
	t.Helper()
	rec, err := store.Create(context.Background(), record.AttendanceRecord{
		EmployeeID:    employeeID,
		Timestamp:     ts,
		InTime:        ts,
		CaptureMethod: record.CaptureMethodAuto,
	})
	require.NoError(t, err)
	return rec
}

func TestRecordStoreCreateAssignsID(t *testing.T) {
	store := memory.NewRecordStore()

	rec := storedAt(t, store, "1001-2001", time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC))
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := store.GetByID(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
}

func TestRecordStoreGetByIDNotFound(t *testing.T) {
	store := memory.NewRecordStore()

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, record.ErrRecordNotFound)
}

func TestRecordStoreRangeOrdersByTimestamp(t *testing.T) {
	store := memory.NewRecordStore()
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	storedAt(t, store, "1001-2001", day.Add(17*time.Hour))
	storedAt(t, store, "1001-2001", day.Add(9*time.Hour))
	storedAt(t, store, "1001-2002", day.Add(10*time.Hour))
	storedAt(t, store, "1001-2001", day.AddDate(0, 0, 1)) // next day, excluded

	records, err := store.ListByEmployeeAndRange(context.Background(), "1001-2001", day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Timestamp.Before(records[1].Timestamp))
}

func TestRecordStoreRangeBreaksTiesByInsertion(t *testing.T) {
	store := memory.NewRecordStore()
	ts := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

	first := storedAt(t, store, "1001-2001", ts)
	second := storedAt(t, store, "1001-2001", ts)

	records, err := store.ListByEmployeeAndRange(context.Background(), "1001-2001", ts, ts.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, first.ID, records[0].ID)
	assert.Equal(t, second.ID, records[1].ID)
}

func TestRecordStoreUpdateTimes(t *testing.T) {
	store := memory.NewRecordStore()
	ctx := context.Background()
	ts := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

	rec := storedAt(t, store, "1001-2001", ts)

	in := ts.Add(-time.Hour)
	out := ts.Add(8 * time.Hour)
	require.NoError(t, store.UpdateTimes(ctx, rec.ID, in, &out))

	got, err := store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.InTime.Equal(in))
	require.NotNil(t, got.OutTime)
	assert.True(t, got.OutTime.Equal(out))

	// Clearing the out time is allowed.
	require.NoError(t, store.UpdateTimes(ctx, rec.ID, in, nil))
	got, err = store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got.OutTime)

	assert.ErrorIs(t, store.UpdateTimes(ctx, "missing", in, nil), record.ErrRecordNotFound)
}

func TestRecordStoreListFiltersAndPaginates(t *testing.T) {
	store := memory.NewRecordStore()
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		storedAt(t, store, "1001-2001", day.Add(time.Duration(9+i)*time.Hour))
	}
	storedAt(t, store, "1001-2002", day.Add(9*time.Hour))

	employee := "1001-2001"
	records, total, err := store.List(context.Background(), record.RecordFilter{
		EmployeeID: &employee,
		Page:       2,
		Limit:      2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, records, 2)
	// Newest first, so page two starts at the third newest.
	assert.True(t, records[0].Timestamp.After(records[1].Timestamp))

	date := "2026-03-10"
	_, total, err = store.List(context.Background(), record.RecordFilter{Date: &date})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}
