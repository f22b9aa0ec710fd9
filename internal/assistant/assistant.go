// Package assistant turns one free-text utterance into a stored change or
// an answer about the schedule.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chxlky/lichtrinh/internal/models"
	"github.com/chxlky/lichtrinh/internal/nlp"
	"go.uber.org/zap"
)

var (
	ErrEmptyInput   = errors.New("empty input")
	ErrNoMatch      = errors.New("no matching event")
	ErrInvalidEvent = errors.New("invalid event")
)

const MessageUnknown = "Tôi chưa hiểu ý bạn."

type Reply struct {
	Intent  nlp.Intent
	Message string
	Event   *models.Event
}

type Options struct {
	Location               *time.Location
	DefaultReminderMinutes int
	Placeholder            string
	Clock                  func() time.Time
}

type Assistant struct {
	resolver  nlp.Resolver
	extractor *nlp.Extractor
	service   *Service
	opts      Options
}

func New(resolver nlp.Resolver, extractor *nlp.Extractor, service *Service, opts Options) *Assistant {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Placeholder == "" {
		opts.Placeholder = nlp.DefaultPlaceholder
	}
	return &Assistant{resolver: resolver, extractor: extractor, service: service, opts: opts}
}

func (a *Assistant) now() time.Time {
	return a.opts.Clock().In(a.opts.Location)
}

// Handle resolves the intent of text and carries it out. An unknown intent
// is answered, not reported as an error.
func (a *Assistant) Handle(ctx context.Context, text string) (Reply, error) {
	text = nlp.Normalize(text)
	if text == "" {
		return Reply{Intent: nlp.IntentUnknown}, ErrEmptyInput
	}

	intent := a.resolver.Resolve(text)
	zap.L().Debug("Resolved intent", zap.String("text", text), zap.String("intent", string(intent)))

	switch intent {
	case nlp.IntentAdd:
		ev, msg, err := a.Add(ctx, text)
		return Reply{Intent: intent, Message: msg, Event: ev}, err
	case nlp.IntentShow:
		msg, err := a.show(ctx, text)
		return Reply{Intent: intent, Message: msg}, err
	case nlp.IntentUpdate:
		return a.update(ctx, text)
	case nlp.IntentDelete:
		return a.remove(ctx, text)
	default:
		return Reply{Intent: nlp.IntentUnknown, Message: MessageUnknown}, nil
	}
}

// Add stores the event described by text without consulting the resolver.
func (a *Assistant) Add(ctx context.Context, text string) (*models.Event, string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, "", ErrEmptyInput
	}
	slots := a.extractor.Extract(text, a.now())

	ev := &models.Event{
		Name:            slots.Name,
		Start:           models.FormatStamp(slots.Start),
		ReminderMinutes: slots.ReminderMinutes,
	}
	if slots.Location != "" {
		location := slots.Location
		ev.Location = &location
	}
	if ev.ReminderMinutes == nil && a.opts.DefaultReminderMinutes > 0 {
		lead := a.opts.DefaultReminderMinutes
		ev.ReminderMinutes = &lead
	}

	if err := a.service.Create(ctx, ev); err != nil {
		return nil, "", fmt.Errorf("add event: %w", err)
	}
	msg := fmt.Sprintf("Đã thêm lịch %s vào %s, ngày %s.", ev.Name, slots.Start.Format("15:04"), slots.Start.Format("2006-01-02"))
	return ev, msg, nil
}

func (a *Assistant) show(ctx context.Context, text string) (string, error) {
	slots := a.extractor.Extract(text, a.now())
	label := a.extractor.DayLabel(slots)

	events, err := a.service.Store().ListByDate(ctx, slots.Start.Format("2006-01-02"))
	if err != nil {
		return "", fmt.Errorf("show events: %w", err)
	}
	if len(events) == 0 {
		return label + " bạn không có lịch nào cả.", nil
	}

	lower := nlp.Fold(label)
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		lines = append(lines, fmt.Sprintf("- %s bạn có lịch %s lúc %s", lower, ev.Name, clockOf(ev.Start)))
	}
	return strings.Join(lines, "\n"), nil
}

func (a *Assistant) update(ctx context.Context, text string) (Reply, error) {
	now := a.now()
	slots := a.extractor.Extract(text, now)
	reply := Reply{Intent: nlp.IntentUpdate}

	if slots.Malformed {
		reply.Message = "Tôi chưa đọc được thời gian mới bạn muốn đổi."
		return reply, nil
	}
	hasDay := slots.HasDate || slots.HasDay
	if !slots.HasTime && !hasDay {
		reply.Message = fmt.Sprintf("Bạn muốn đổi lịch %s sang lúc nào?", slots.Name)
		return reply, nil
	}

	events, err := a.service.Store().ListFrom(ctx, models.FormatStamp(now))
	if err != nil {
		return reply, fmt.Errorf("update event: %w", err)
	}
	ev := a.findEvent(slots.Name, events)
	if ev == nil {
		reply.Message = a.noMatchMessage(slots.Name)
		return reply, ErrNoMatch
	}

	oldStart, err := ev.StartTime(a.opts.Location)
	if err != nil {
		return reply, fmt.Errorf("update event %d: %w", ev.ID, err)
	}
	newStart := slots.Start
	if !hasDay {
		newStart = time.Date(oldStart.Year(), oldStart.Month(), oldStart.Day(), slots.Start.Hour(), slots.Start.Minute(), 0, 0, a.opts.Location)
	} else if !slots.HasTime {
		newStart = time.Date(slots.Start.Year(), slots.Start.Month(), slots.Start.Day(), oldStart.Hour(), oldStart.Minute(), 0, 0, a.opts.Location)
	}

	if ev.End != nil {
		if end, err := ev.EndTime(a.opts.Location); err == nil {
			shifted := models.FormatStamp(end.Add(newStart.Sub(oldStart)))
			ev.End = &shifted
		}
	}
	ev.Start = models.FormatStamp(newStart)
	ev.NotifiedAt = nil

	if err := a.service.Update(ctx, ev); err != nil {
		return reply, fmt.Errorf("update event %d: %w", ev.ID, err)
	}
	reply.Event = ev
	reply.Message = fmt.Sprintf("Đã dời lịch %s sang %s, ngày %s.", ev.Name, newStart.Format("15:04"), newStart.Format("2006-01-02"))
	return reply, nil
}

func (a *Assistant) remove(ctx context.Context, text string) (Reply, error) {
	now := a.now()
	slots := a.extractor.Extract(text, now)
	reply := Reply{Intent: nlp.IntentDelete}

	var events []models.Event
	var err error
	if slots.HasDate || slots.HasDay {
		events, err = a.service.Store().ListByDate(ctx, slots.Start.Format("2006-01-02"))
	} else {
		events, err = a.service.Store().ListFrom(ctx, now.Format("2006-01-02")+"T00:00")
	}
	if err != nil {
		return reply, fmt.Errorf("delete event: %w", err)
	}
	ev := a.findEvent(slots.Name, events)
	if ev == nil {
		reply.Message = a.noMatchMessage(slots.Name)
		return reply, ErrNoMatch
	}

	if err := a.service.Delete(ctx, ev.ID); err != nil {
		return reply, fmt.Errorf("delete event %d: %w", ev.ID, err)
	}
	reply.Event = ev
	reply.Message = fmt.Sprintf("Đã xóa lịch %s lúc %s, ngày %s.", ev.Name, clockOf(ev.Start), dateOf(ev.Start))
	return reply, nil
}

// findEvent returns the first of the start-ordered events whose name contains name.
// The placeholder name matches any event.
func (a *Assistant) findEvent(name string, events []models.Event) *models.Event {
	needle := nlp.Fold(name)
	if name == a.opts.Placeholder {
		needle = ""
	}
	for i := range events {
		if strings.Contains(nlp.Fold(events[i].Name), needle) {
			return &events[i]
		}
	}
	return nil
}

func (a *Assistant) noMatchMessage(name string) string {
	if name == a.opts.Placeholder {
		return "Không tìm thấy lịch nào phù hợp."
	}
	return fmt.Sprintf("Không tìm thấy lịch %s.", name)
}

func clockOf(stamp string) string {
	if i := strings.IndexByte(stamp, 'T'); i >= 0 && len(stamp) >= i+6 {
		return stamp[i+1 : i+6]
	}
	return stamp
}

func dateOf(stamp string) string {
	if len(stamp) >= 10 {
		return stamp[:10]
	}
	return stamp
}
