package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chxlky/lichtrinh/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("event not found")

func Init(dbPath string) (*gorm.DB, error) {
	dbFile := sqlite.Open(dbPath)
	db, err := gorm.Open(dbFile, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&models.Event{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	zap.L().Info("Database initialised and migrated successfully", zap.String("path", dbPath))

	return db, nil
}

// Store runs every event query. Each call is its own statement; there is
// no transaction spanning calls.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, ev *models.Event) error {
	ev.ID = 0
	if err := s.db.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id uint) (*models.Event, error) {
	var ev models.Event
	err := s.db.WithContext(ctx).First(&ev, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return &ev, nil
}

// Update writes every column of ev, including nil optionals.
func (s *Store) Update(ctx context.Context, ev *models.Event) error {
	if ev.ID == 0 {
		return ErrNotFound
	}
	res := s.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", ev.ID).
		Select("name", "start", "end", "location", "reminder_minutes", "notified_at", "external_id", "updated_at").
		Updates(map[string]any{
			"name":             ev.Name,
			"start":            ev.Start,
			"end":              ev.End,
			"location":         ev.Location,
			"reminder_minutes": ev.ReminderMinutes,
			"notified_at":      ev.NotifiedAt,
			"external_id":      ev.ExternalID,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("update event %d: %w", ev.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Event{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete event %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByDate returns events whose start begins with date (YYYY-MM-DD).
func (s *Store) ListByDate(ctx context.Context, date string) ([]models.Event, error) {
	var events []models.Event
	err := s.db.WithContext(ctx).
		Where("start LIKE ?", date+"%").
		Order("start, id").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list events on %s: %w", date, err)
	}
	return events, nil
}

// ListRange returns events with start inside [from T00:00:00, to T23:59:59].
func (s *Store) ListRange(ctx context.Context, from, to string) ([]models.Event, error) {
	var events []models.Event
	err := s.db.WithContext(ctx).
		Where("start >= ? AND start <= ?", from+"T00:00:00", to+"T23:59:59").
		Order("start, id").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list events %s..%s: %w", from, to, err)
	}
	return events, nil
}

// ListFrom returns events starting at or after stamp.
func (s *Store) ListFrom(ctx context.Context, stamp string) ([]models.Event, error) {
	var events []models.Event
	err := s.db.WithContext(ctx).
		Where("start >= ?", stamp).
		Order("start, id").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list events from %s: %w", stamp, err)
	}
	return events, nil
}

func (s *Store) ListAll(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	if err := s.db.WithContext(ctx).Order("start, id").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ListPendingReminders returns events that have a reminder lead and whose
// reminder has not fired yet.
func (s *Store) ListPendingReminders(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := s.db.WithContext(ctx).
		Where("reminder_minutes IS NOT NULL AND notified_at IS NULL").
		Order("start, id").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list pending reminders: %w", err)
	}
	return events, nil
}

// MarkNotified claims the reminder of event id. It reports false when the
// reminder was already claimed by another scan.
func (s *Store) MarkNotified(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Event{}).
		Where("id = ? AND notified_at IS NULL", id).
		Update("notified_at", at)
	if res.Error != nil {
		return false, fmt.Errorf("mark event %d notified: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}
