// Package reminder finds events whose reminder window has opened and
// delivers each reminder once.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chxlky/lichtrinh/database"
	"github.com/chxlky/lichtrinh/internal/models"
	"go.uber.org/zap"
)

type Store interface {
	ListPendingReminders(ctx context.Context) ([]models.Event, error)
	MarkNotified(ctx context.Context, id uint, at time.Time) (bool, error)
	Delete(ctx context.Context, id uint) error
}

type ScannerOptions struct {
	Location *time.Location
	// DeleteAfterFire removes the event instead of marking it notified.
	DeleteAfterFire bool
}

// Scanner claims due reminders. An event is due when
// 0 < minutes until start <= reminder_minutes. Claiming is fire-once:
// a claimed event is marked (or deleted) so no later scan returns it.
type Scanner struct {
	store    Store
	notifier Notifier
	opts     ScannerOptions
}

func NewScanner(store Store, notifier Notifier, opts ScannerOptions) *Scanner {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Scanner{store: store, notifier: notifier, opts: opts}
}

// Scan claims every reminder due at now and delivers it. Events with an
// unreadable start are skipped.
func (s *Scanner) Scan(ctx context.Context, now time.Time) ([]Notification, error) {
	events, err := s.store.ListPendingReminders(ctx)
	if err != nil {
		return nil, fmt.Errorf("reminder scan: %w", err)
	}

	var due []Notification
	for _, ev := range events {
		if ev.ReminderMinutes == nil {
			continue
		}
		start, err := ev.StartTime(s.opts.Location)
		if err != nil {
			zap.L().Warn("Skipping event with invalid start", zap.Uint("eventID", ev.ID), zap.String("start", ev.Start), zap.Error(err))
			continue
		}

		minutes := start.Sub(now).Minutes()
		if minutes <= 0 || minutes > float64(*ev.ReminderMinutes) {
			continue
		}

		claimed, err := s.claim(ctx, ev.ID, now)
		if err != nil {
			zap.L().Error("Failed to claim reminder", zap.Uint("eventID", ev.ID), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}

		n := Notification{
			EventID:     ev.ID,
			Name:        ev.Name,
			Start:       start,
			MinutesLeft: int(minutes),
			Message:     fmt.Sprintf("Sắp đến: %s trong %d phút!", ev.Name, int(minutes)),
		}
		if ev.Location != nil {
			n.Location = *ev.Location
		}
		due = append(due, n)
	}

	for _, n := range due {
		if err := s.notifier.Notify(ctx, n); err != nil {
			zap.L().Error("Failed to deliver reminder", zap.Uint("eventID", n.EventID), zap.Error(err))
		}
	}
	return due, nil
}

func (s *Scanner) claim(ctx context.Context, id uint, now time.Time) (bool, error) {
	if !s.opts.DeleteAfterFire {
		return s.store.MarkNotified(ctx, id, now)
	}
	err := s.store.Delete(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
