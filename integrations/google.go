package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/chxlky/lichtrinh/internal/config"
	"github.com/chxlky/lichtrinh/internal/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// CalendarClient mirrors local events into one Google Calendar.
type CalendarClient struct {
	service    *calendar.Service
	calendarID string
	loc        *time.Location
}

func NewCalendarClient(ctx context.Context, cfg config.GoogleConfig, loc *time.Location) (*CalendarClient, error) {
	if cfg.CalendarID == "" {
		return nil, fmt.Errorf("google calendar ID is not configured")
	}

	jsonBytes, err := json.Marshal(cfg.ServiceAccount)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal service account settings to JSON: %w", err)
	}

	// create credentials from JSON data
	jwtConfig, err := google.JWTConfigFromJSON(jsonBytes, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account credentials from JSON: %w", err)
	}

	srv, err := calendar.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Calendar client: %w", err)
	}

	if loc == nil {
		loc = time.Local
	}
	return &CalendarClient{service: srv, calendarID: cfg.CalendarID, loc: loc}, nil
}

// CreateEvent inserts ev and returns the Google event id.
func (c *CalendarClient) CreateEvent(ctx context.Context, ev models.Event) (string, error) {
	event, err := toCalendarEvent(ev, c.loc)
	if err != nil {
		return "", err
	}

	created, err := retry.DoWithData(
		func() (*calendar.Event, error) {
			return c.service.Events.Insert(c.calendarID, event).Context(ctx).Do()
		},
		retryOptions(ctx)...,
	)
	if err != nil {
		return "", fmt.Errorf("unable to create event in Google Calendar: %w", err)
	}

	zap.L().Info("Created calendar event", zap.Uint("eventID", ev.ID), zap.String("externalID", created.Id), zap.String("link", created.HtmlLink))
	return created.Id, nil
}

func (c *CalendarClient) UpdateEvent(ctx context.Context, ev models.Event) error {
	if ev.ExternalID == "" {
		return fmt.Errorf("event %d has no Google Calendar id", ev.ID)
	}

	event, err := retry.DoWithData(
		func() (*calendar.Event, error) {
			return c.service.Events.Get(c.calendarID, ev.ExternalID).Context(ctx).Do()
		},
		retryOptions(ctx)...,
	)
	if err != nil {
		return fmt.Errorf("unable to retrieve event from Google Calendar: %w", err)
	}

	fields, err := toCalendarEvent(ev, c.loc)
	if err != nil {
		return err
	}
	event.Summary = fields.Summary
	event.Location = fields.Location
	event.Start = fields.Start
	event.End = fields.End
	event.Reminders = fields.Reminders

	_, err = retry.DoWithData(
		func() (*calendar.Event, error) {
			return c.service.Events.Update(c.calendarID, event.Id, event).Context(ctx).Do()
		},
		retryOptions(ctx)...,
	)
	if err != nil {
		return fmt.Errorf("unable to update event in Google Calendar: %w", err)
	}
	return nil
}

func (c *CalendarClient) DeleteEvent(ctx context.Context, externalID string) error {
	err := retry.Do(
		func() error {
			return c.service.Events.Delete(c.calendarID, externalID).Context(ctx).Do()
		},
		retryOptions(ctx)...,
	)
	if err != nil {
		// already deleted on the Google side
		if isStatus(err, http.StatusNotFound) || isStatus(err, http.StatusGone) {
			zap.L().Info("Event not found in Google Calendar. Already deleted.", zap.String("externalID", externalID))
			return nil
		}
		return fmt.Errorf("unable to delete event from Google Calendar: %w", err)
	}
	return nil
}

func toCalendarEvent(ev models.Event, loc *time.Location) (*calendar.Event, error) {
	start, err := ev.StartTime(loc)
	if err != nil {
		return nil, fmt.Errorf("event %d has an invalid start %q: %w", ev.ID, ev.Start, err)
	}
	end, err := ev.EndTime(loc)
	if err != nil || !end.After(start) {
		end = start.Add(time.Hour)
	}

	event := &calendar.Event{
		Summary:     ev.Name,
		Description: "Tạo bởi lichtrinh",
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: loc.String()},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: loc.String()},
	}
	if ev.Location != nil {
		event.Location = *ev.Location
	}
	if ev.ReminderMinutes != nil {
		event.Reminders = &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "popup", Minutes: int64(*ev.ReminderMinutes)},
			},
			ForceSendFields: []string{"UseDefault"},
		}
	}
	return event, nil
}

func retryOptions(ctx context.Context) []retry.Option {
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var gerr *googleapi.Error
			if errors.As(err, &gerr) {
				return gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500
			}
			return true
		}),
	}
}

func isStatus(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}
