package main

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/chxlky/lichtrinh/database"
	"github.com/chxlky/lichtrinh/integrations"
	"github.com/chxlky/lichtrinh/internal/assistant"
	"github.com/chxlky/lichtrinh/internal/config"
	"github.com/chxlky/lichtrinh/internal/nlp"
	"github.com/chxlky/lichtrinh/internal/reminder"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// runtime is everything a command needs, built once from config.
type runtime struct {
	cfg       *config.Config
	loc       *time.Location
	logger    *zap.Logger
	sqlDB     *sql.DB
	store     *database.Store
	service   *assistant.Service
	assistant *assistant.Assistant
	inbox     *reminder.Inbox
	scanner   *reminder.Scanner
}

// setup loads config, installs the global logger and opens the database.
// Extra notifiers receive every reminder the scanner claims.
func setup(c *cli.Context, logOutput string, extra ...reminder.Notifier) (*runtime, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.Log.Level, logOutput)
	zap.ReplaceGlobals(logger)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := database.Init(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	store := database.NewStore(db)

	var mirror assistant.Mirror
	if cfg.Google.Enabled {
		calClient, err := integrations.NewCalendarClient(c.Context, cfg.Google, loc)
		if err != nil {
			return nil, fmt.Errorf("failed to initialise Google Calendar client: %w", err)
		}
		zap.L().Info("Successfully authenticated with Google Calendar API.")
		mirror = calClient
	}
	service := assistant.NewService(store, mirror, loc)

	resolver, err := nlp.NewResolver(cfg.Assistant.IntentPolicy)
	if err != nil {
		return nil, err
	}
	asst := assistant.New(resolver, nlp.NewExtractor(cfg.Assistant.PlaceholderName), service, assistant.Options{
		Location:               loc,
		DefaultReminderMinutes: cfg.Assistant.DefaultReminderMinutes,
		Placeholder:            cfg.Assistant.PlaceholderName,
	})

	inbox := reminder.NewInbox(0)
	notifiers := reminder.MultiNotifier{reminder.LogNotifier{}, inbox}
	if cfg.Reminder.WebhookURL != "" {
		notifiers = append(notifiers, integrations.NewWebhookNotifier(cfg.Reminder.WebhookURL))
	}
	notifiers = append(notifiers, extra...)

	scanner := reminder.NewScanner(store, notifiers, reminder.ScannerOptions{
		Location:        loc,
		DeleteAfterFire: cfg.Reminder.DeleteAfterFire,
	})

	return &runtime{
		cfg:       cfg,
		loc:       loc,
		logger:    logger,
		sqlDB:     sqlDB,
		store:     store,
		service:   service,
		assistant: asst,
		inbox:     inbox,
		scanner:   scanner,
	}, nil
}

func (r *runtime) newScheduler() (*reminder.Scheduler, error) {
	return reminder.NewScheduler(r.scanner, r.cfg.Reminder.Schedule, nil)
}

func (r *runtime) close() {
	if r.sqlDB != nil {
		if err := r.sqlDB.Close(); err != nil {
			zap.L().Error("Error closing database", zap.Error(err))
		} else {
			zap.L().Info("Database connection closed.")
		}
	}
	_ = r.logger.Sync()
}

func (r *runtime) now() time.Time {
	return time.Now().In(r.loc)
}
