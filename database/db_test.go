package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/chxlky/lichtrinh/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Init(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewStore(db)
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestCreateThenGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ev := &models.Event{
		Name:            "họp nhóm",
		Start:           "2026-10-19T08:00",
		End:             strPtr("2026-10-19T09:30"),
		Location:        strPtr("phòng 301"),
		ReminderMinutes: intPtr(15),
	}
	require.NoError(t, store.Create(ctx, ev))
	require.NotZero(t, ev.ID)

	got, err := store.Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, "họp nhóm", got.Name)
	assert.Equal(t, "2026-10-19T08:00", got.Start)
	require.NotNil(t, got.End)
	assert.Equal(t, "2026-10-19T09:30", *got.End)
	require.NotNil(t, got.Location)
	assert.Equal(t, "phòng 301", *got.Location)
	require.NotNil(t, got.ReminderMinutes)
	assert.Equal(t, 15, *got.ReminderMinutes)
	assert.Nil(t, got.NotifiedAt)
}

func TestCreateAssignsID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ev := &models.Event{ID: 999, Name: "a", Start: "2026-10-19T08:00"}
	require.NoError(t, store.Create(ctx, ev))
	other := &models.Event{Name: "b", Start: "2026-10-19T09:00"}
	require.NoError(t, store.Create(ctx, other))

	assert.NotEqual(t, ev.ID, other.ID)
	assert.NotEqual(t, uint(999), ev.ID)
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateReplacesAllFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ev := &models.Event{Name: "cũ", Start: "2026-10-19T08:00", Location: strPtr("nhà"), ReminderMinutes: intPtr(5)}
	require.NoError(t, store.Create(ctx, ev))

	ev.Name = "mới"
	ev.Start = "2026-10-20T10:15"
	ev.Location = nil
	ev.ReminderMinutes = intPtr(30)
	require.NoError(t, store.Update(ctx, ev))

	got, err := store.Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "mới", got.Name)
	assert.Equal(t, "2026-10-20T10:15", got.Start)
	assert.Nil(t, got.Location)
	assert.Equal(t, 30, *got.ReminderMinutes)

	assert.ErrorIs(t, store.Update(ctx, &models.Event{ID: 777, Name: "x", Start: "2026-10-20T10:15"}), ErrNotFound)
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ev := &models.Event{Name: "xóa", Start: "2026-10-19T08:00"}
	require.NoError(t, store.Create(ctx, ev))
	require.NoError(t, store.Delete(ctx, ev.ID))

	_, err := store.Get(ctx, ev.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, ev.ID), ErrNotFound)
}

func TestListByDateUsesPrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, start := range []string{"2026-10-18T23:59", "2026-10-19T00:00", "2026-10-19T17:30", "2026-10-20T00:00"} {
		require.NoError(t, store.Create(ctx, &models.Event{Name: start, Start: start}))
	}

	events, err := store.ListByDate(ctx, "2026-10-19")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "2026-10-19T00:00", events[0].Start)
	assert.Equal(t, "2026-10-19T17:30", events[1].Start)
}

func TestListRangeIsInclusiveOfWholeDays(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inside := []string{"2026-10-19T00:00", "2026-10-20T12:00", "2026-10-21T23:59"}
	outside := []string{"2026-10-18T23:59", "2026-10-22T00:00"}
	for _, start := range append(append([]string{}, inside...), outside...) {
		require.NoError(t, store.Create(ctx, &models.Event{Name: start, Start: start}))
	}

	events, err := store.ListRange(ctx, "2026-10-19", "2026-10-21")
	require.NoError(t, err)

	var got []string
	for _, ev := range events {
		got = append(got, ev.Start)
	}
	assert.Equal(t, inside, got)
}

func TestMarkNotifiedClaimsOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ev := &models.Event{Name: "họp", Start: "2026-10-19T08:00", ReminderMinutes: intPtr(10)}
	require.NoError(t, store.Create(ctx, ev))
	require.NoError(t, store.Create(ctx, &models.Event{Name: "không nhắc", Start: "2026-10-19T08:00"}))

	pending, err := store.ListPendingReminders(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ev.ID, pending[0].ID)

	now := time.Date(2026, 10, 19, 7, 55, 0, 0, time.UTC)
	claimed, err := store.MarkNotified(ctx, ev.ID, now)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = store.MarkNotified(ctx, ev.ID, now)
	require.NoError(t, err)
	assert.False(t, claimed)

	pending, err = store.ListPendingReminders(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
