package reminder

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Notification is one delivered reminder.
type Notification struct {
	EventID     uint      `json:"event_id"`
	Name        string    `json:"name"`
	Start       time.Time `json:"start"`
	MinutesLeft int       `json:"minutes_left"`
	Location    string    `json:"location,omitempty"`
	Message     string    `json:"message"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a plain function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	zap.L().Info("Reminder due",
		zap.Uint("eventID", n.EventID),
		zap.String("name", n.Name),
		zap.Int("minutesLeft", n.MinutesLeft),
		zap.Time("start", n.Start),
	)
	return nil
}

// MultiNotifier delivers to every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

const defaultInboxSize = 256

// Inbox holds delivered notifications until a client polls for them. The
// oldest entries are dropped once it is full.
type Inbox struct {
	mu    sync.Mutex
	items []Notification
	max   int
}

func NewInbox(max int) *Inbox {
	if max <= 0 {
		max = defaultInboxSize
	}
	return &Inbox{max: max}
}

func (b *Inbox) Notify(_ context.Context, n Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, n)
	if over := len(b.items) - b.max; over > 0 {
		b.items = append([]Notification(nil), b.items[over:]...)
	}
	return nil
}

// Drain returns every held notification and empties the inbox.
func (b *Inbox) Drain() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.items
	b.items = nil
	return out
}
