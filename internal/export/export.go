// Package export renders stored events as a generic JSON document or as an
// iCalendar feed.
package export

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/chxlky/lichtrinh/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const ProductID = "-//lichtrinh//Tro ly lich trinh//VI"

// uidNamespace seeds the UUIDv5 UIDs so an event keeps its UID across
// exports.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/chxlky/lichtrinh"))

// Record is the generic JSON shape of one event.
type Record struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	Start           string  `json:"start"`
	End             *string `json:"end"`
	Location        *string `json:"location"`
	ReminderMinutes *int    `json:"reminder_minutes"`
}

func JSON(events []models.Event) ([]byte, error) {
	records := make([]Record, 0, len(events))
	for _, ev := range events {
		records = append(records, Record{
			ID:              ev.ID,
			Name:            ev.Name,
			Start:           ev.Start,
			End:             ev.End,
			Location:        ev.Location,
			ReminderMinutes: ev.ReminderMinutes,
		})
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal events: %w", err)
	}
	return data, nil
}

// EventUID is the stable iCalendar UID of an event id.
func EventUID(id uint) string {
	return uuid.NewSHA1(uidNamespace, []byte(strconv.FormatUint(uint64(id), 10))).String() + "@lichtrinh"
}

// ICS renders one VEVENT per event. Events whose start cannot be parsed are
// skipped; end defaults to one hour after start.
func ICS(events []models.Event, loc *time.Location, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(ProductID)

	for _, ev := range events {
		start, err := ev.StartTime(loc)
		if err != nil {
			zap.L().Warn("Skipping event with invalid start in ICS export", zap.Uint("eventID", ev.ID), zap.String("start", ev.Start), zap.Error(err))
			continue
		}
		end, err := ev.EndTime(loc)
		if err != nil || !end.After(start) {
			end = start.Add(time.Hour)
		}

		vevent := cal.AddEvent(EventUID(ev.ID))
		vevent.SetDtStampTime(stamp)
		vevent.SetStartAt(start)
		vevent.SetEndAt(end)
		vevent.SetSummary(ev.Name)
		if ev.Location != nil && *ev.Location != "" {
			vevent.SetLocation(*ev.Location)
		}

		if ev.ReminderMinutes != nil && *ev.ReminderMinutes >= 0 {
			alarm := vevent.AddAlarm()
			alarm.SetAction(ics.ActionDisplay)
			alarm.SetTrigger(fmt.Sprintf("-PT%dM", *ev.ReminderMinutes))
			alarm.SetProperty(ics.ComponentPropertyDescription, ev.Name)
		}
	}

	return cal.Serialize()
}
