package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chxlky/lichtrinh/internal/models"
	"go.uber.org/zap"
)

type Store interface {
	Create(ctx context.Context, ev *models.Event) error
	Get(ctx context.Context, id uint) (*models.Event, error)
	Update(ctx context.Context, ev *models.Event) error
	Delete(ctx context.Context, id uint) error
	ListByDate(ctx context.Context, date string) ([]models.Event, error)
	ListRange(ctx context.Context, from, to string) ([]models.Event, error)
	ListFrom(ctx context.Context, stamp string) ([]models.Event, error)
	ListAll(ctx context.Context) ([]models.Event, error)
}

// Mirror copies local mutations to an external calendar.
type Mirror interface {
	CreateEvent(ctx context.Context, ev models.Event) (string, error)
	UpdateEvent(ctx context.Context, ev models.Event) error
	DeleteEvent(ctx context.Context, externalID string) error
}

// Service owns every event mutation. Mirror failures are logged and never
// fail the local change.
type Service struct {
	store  Store
	mirror Mirror
	loc    *time.Location
}

func NewService(store Store, mirror Mirror, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, mirror: mirror, loc: loc}
}

func (s *Service) Store() Store {
	return s.store
}

func (s *Service) Create(ctx context.Context, ev *models.Event) error {
	if err := s.store.Create(ctx, ev); err != nil {
		return err
	}
	if s.mirror == nil {
		return nil
	}

	externalID, err := s.mirror.CreateEvent(ctx, *ev)
	if err != nil {
		zap.L().Error("Failed to mirror new event", zap.Uint("eventID", ev.ID), zap.Error(err))
		return nil
	}
	ev.ExternalID = externalID
	if err := s.store.Update(ctx, ev); err != nil {
		zap.L().Error("Failed to store external event ID", zap.Uint("eventID", ev.ID), zap.Error(err))
	}
	return nil
}

// Update writes ev over the stored row. A changed start or reminder lead
// clears the fire-once marker.
func (s *Service) Update(ctx context.Context, ev *models.Event) error {
	current, err := s.store.Get(ctx, ev.ID)
	if err != nil {
		return err
	}

	ev.ExternalID = current.ExternalID
	ev.NotifiedAt = current.NotifiedAt
	if ev.Start != current.Start || !sameLead(ev.ReminderMinutes, current.ReminderMinutes) {
		ev.NotifiedAt = nil
	}

	if err := s.store.Update(ctx, ev); err != nil {
		return err
	}
	if s.mirror != nil && ev.ExternalID != "" {
		if err := s.mirror.UpdateEvent(ctx, *ev); err != nil {
			zap.L().Error("Failed to mirror event update", zap.Uint("eventID", ev.ID), zap.Error(err))
		}
	}
	return nil
}

// Edit replaces every editable field of event id.
func (s *Service) Edit(ctx context.Context, id uint, p models.UpdateEventPayload) (*models.Event, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is empty", ErrInvalidEvent)
	}
	start, err := models.ParseStamp(strings.TrimSpace(p.Start), s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: start %q", ErrInvalidEvent, p.Start)
	}

	ev := &models.Event{
		ID:              id,
		Name:            name,
		Start:           models.FormatStamp(start),
		Location:        blankToNil(p.Location),
		ReminderMinutes: p.ReminderMinutes,
	}
	if end := blankToNil(p.End); end != nil {
		t, err := models.ParseStamp(*end, s.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: end %q", ErrInvalidEvent, *end)
		}
		formatted := models.FormatStamp(t)
		ev.End = &formatted
	}
	if ev.ReminderMinutes != nil && *ev.ReminderMinutes < 0 {
		return nil, fmt.Errorf("%w: reminder_minutes is negative", ErrInvalidEvent)
	}

	if err := s.Update(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if s.mirror != nil && current.ExternalID != "" {
		if err := s.mirror.DeleteEvent(ctx, current.ExternalID); err != nil {
			zap.L().Error("Failed to mirror event deletion", zap.Uint("eventID", id), zap.Error(err))
		}
	}
	return nil
}

func sameLead(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
