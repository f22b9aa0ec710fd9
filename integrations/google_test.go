package integrations

import (
	"testing"
	"time"

	"github.com/chxlky/lichtrinh/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCalendarEvent(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	place := "phòng 301"
	lead := 15

	event, err := toCalendarEvent(models.Event{
		ID:              3,
		Name:            "họp nhóm",
		Start:           "2026-10-19T08:00",
		Location:        &place,
		ReminderMinutes: &lead,
	}, loc)
	require.NoError(t, err)

	assert.Equal(t, "họp nhóm", event.Summary)
	assert.Equal(t, "phòng 301", event.Location)
	assert.Equal(t, "2026-10-19T08:00:00+07:00", event.Start.DateTime)
	assert.Equal(t, "2026-10-19T09:00:00+07:00", event.End.DateTime)
	assert.Equal(t, "ICT", event.Start.TimeZone)

	require.NotNil(t, event.Reminders)
	assert.False(t, event.Reminders.UseDefault)
	assert.Contains(t, event.Reminders.ForceSendFields, "UseDefault")
	require.Len(t, event.Reminders.Overrides, 1)
	assert.Equal(t, "popup", event.Reminders.Overrides[0].Method)
	assert.Equal(t, int64(15), event.Reminders.Overrides[0].Minutes)
}

func TestToCalendarEventWithoutReminder(t *testing.T) {
	end := "2026-10-19T20:30"
	event, err := toCalendarEvent(models.Event{Name: "ăn tối", Start: "2026-10-19T19:00", End: &end}, time.UTC)
	require.NoError(t, err)
	assert.Nil(t, event.Reminders)
	assert.Equal(t, "2026-10-19T20:30:00Z", event.End.DateTime)
}

func TestToCalendarEventRejectsBadStart(t *testing.T) {
	_, err := toCalendarEvent(models.Event{Name: "x", Start: "hôm nay"}, time.UTC)
	assert.Error(t, err)
}
