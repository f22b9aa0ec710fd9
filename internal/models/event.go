package models

import "time"

// StartLayout is the sortable text form used for Start and End columns.
const StartLayout = "2006-01-02T15:04"

type Event struct {
	ID              uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string     `gorm:"not null" json:"name"`
	Start           string     `gorm:"not null;index" json:"start"`
	End             *string    `json:"end"`
	Location        *string    `json:"location"`
	ReminderMinutes *int       `json:"reminder_minutes"`
	NotifiedAt      *time.Time `json:"notified_at,omitempty"`
	ExternalID      string     `json:"-"` // Google Calendar Event ID
	CreatedAt       time.Time  `json:"-"`
	UpdatedAt       time.Time  `json:"-"`
}

func (Event) TableName() string {
	return "events"
}

// StartTime parses Start in loc.
func (e Event) StartTime(loc *time.Location) (time.Time, error) {
	return ParseStamp(e.Start, loc)
}

// EndTime parses End in loc, defaulting to one hour after Start.
func (e Event) EndTime(loc *time.Location) (time.Time, error) {
	if e.End != nil && *e.End != "" {
		return ParseStamp(*e.End, loc)
	}
	start, err := e.StartTime(loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Hour), nil
}

// ParseStamp accepts the stored minute-precision form as well as the
// second-precision and space-separated forms older rows may carry.
func ParseStamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	var lastErr error
	for _, layout := range []string{StartLayout, "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02 15:04:05"} {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// FormatStamp renders t in the stored text form.
func FormatStamp(t time.Time) string {
	return t.Format(StartLayout)
}
