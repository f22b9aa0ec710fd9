package export

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/chxlky/lichtrinh/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func sampleEvents() []models.Event {
	return []models.Event{
		{ID: 1, Name: "họp nhóm", Start: "2026-10-19T08:00", End: strPtr("2026-10-19T09:30"), Location: strPtr("phòng 301"), ReminderMinutes: intPtr(15)},
		{ID: 2, Name: "ăn tối", Start: "2026-10-19T19:00"},
		{ID: 3, Name: "hỏng", Start: "không phải ngày"},
	}
}

func TestJSONRecords(t *testing.T) {
	data, err := JSON(sampleEvents()[:2])
	require.NoError(t, err)

	var records []map[string]any
	require.NoError(t, json.Unmarshal(data, &records))
	require.Len(t, records, 2)

	assert.Equal(t, float64(1), records[0]["id"])
	assert.Equal(t, "họp nhóm", records[0]["name"])
	assert.Equal(t, "2026-10-19T08:00", records[0]["start"])
	assert.Equal(t, "2026-10-19T09:30", records[0]["end"])
	assert.Equal(t, "phòng 301", records[0]["location"])
	assert.Equal(t, float64(15), records[0]["reminder_minutes"])

	assert.Nil(t, records[1]["end"])
	assert.Nil(t, records[1]["reminder_minutes"])
	assert.NotContains(t, records[1], "notified_at")
}

func TestJSONEmptyIsArray(t *testing.T) {
	data, err := JSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestEventUIDIsStable(t *testing.T) {
	assert.Equal(t, EventUID(7), EventUID(7))
	assert.NotEqual(t, EventUID(7), EventUID(8))
	assert.True(t, strings.HasSuffix(EventUID(7), "@lichtrinh"))
}

func TestICSRendersEventsAndAlarms(t *testing.T) {
	stamp := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	out := ICS(sampleEvents(), time.UTC, stamp)

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 2, "the event with an unreadable start is skipped")

	first := events[0]
	assert.Equal(t, EventUID(1), first.Id())
	assert.Equal(t, "họp nhóm", first.GetProperty(ics.ComponentPropertySummary).Value)
	assert.Equal(t, "phòng 301", first.GetProperty(ics.ComponentPropertyLocation).Value)
	assert.Equal(t, "20261019T080000Z", first.GetProperty(ics.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20261019T093000Z", first.GetProperty(ics.ComponentPropertyDtEnd).Value)

	alarms := first.Alarms()
	require.Len(t, alarms, 1)
	assert.Equal(t, "-PT15M", alarms[0].GetProperty(ics.ComponentPropertyTrigger).Value)
	assert.Equal(t, string(ics.ActionDisplay), alarms[0].GetProperty(ics.ComponentPropertyAction).Value)

	second := events[1]
	assert.Equal(t, "20261019T190000Z", second.GetProperty(ics.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20261019T200000Z", second.GetProperty(ics.ComponentPropertyDtEnd).Value, "end defaults to one hour after start")
	assert.Nil(t, second.GetProperty(ics.ComponentPropertyLocation))
	assert.Empty(t, second.Alarms())
}

func TestICSUsesLocation(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	out := ICS([]models.Event{{ID: 1, Name: "chạy bộ", Start: "2026-10-19T06:00"}}, loc, time.Now())

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, cal.Events(), 1)
	assert.Equal(t, "20261018T230000Z", cal.Events()[0].GetProperty(ics.ComponentPropertyDtStart).Value)
}
