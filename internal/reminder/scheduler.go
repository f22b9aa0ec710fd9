package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultSchedule = "@every 60s"

// Scheduler runs a Scanner on a cron schedule until its context is
// cancelled or Stop is called.
type Scheduler struct {
	scanner *Scanner
	cron    *cron.Cron
	clock   func() time.Time

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	initial sync.WaitGroup
}

func NewScheduler(scanner *Scanner, spec string, clock func() time.Time) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	if clock == nil {
		clock = time.Now
	}
	logger := cronLogger{zap.L().Sugar()}
	s := &Scheduler{
		scanner: scanner,
		clock:   clock,
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs one scan immediately and then follows the schedule.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	runCtx := s.ctx
	s.mu.Unlock()

	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		s.tick()
	}()
	s.cron.Start()

	go func() {
		<-runCtx.Done()
		s.Stop()
	}()
	zap.L().Info("Reminder scheduler started")
}

// Stop halts the schedule and waits for an in-flight scan to finish. It is
// safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	<-s.cron.Stop().Done()
	s.initial.Wait()
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	if _, err := s.scanner.Scan(ctx, s.clock()); err != nil {
		zap.L().Error("Reminder scan failed", zap.Error(err))
	}
}

// cronLogger routes robfig/cron logging through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
