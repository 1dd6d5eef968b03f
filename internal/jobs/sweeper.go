// Package jobs implements background schedulers for recurring maintenance.
package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/medibro/medibro-server/internal/config"
	"github.com/medibro/medibro-server/internal/services"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sweeper periodically converts overdue live doses to missed. It is the
// safety net for users without a dispenser: devices report missed doses
// themselves, but a phone that never comes back online reports nothing.
type Sweeper struct {
	db      *gorm.DB
	logger  *zap.Logger
	grace   time.Duration
	spec    string
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// NewSweeper creates a sweeper from config. It does not start it.
func NewSweeper(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		db:     db,
		logger: logger,
		grace:  time.Duration(cfg.SweepGraceMinutes) * time.Minute,
		spec:   cfg.SweepSchedule,
	}
}

// Start schedules the sweep on its cron expression.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("sweeper already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(s.spec, func() {
		if _, err := s.RunOnce(time.Now()); err != nil {
			s.logger.Error("missed-dose sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.spec, err)
	}

	c.Start()
	s.cron = c
	s.running = true
	s.logger.Info("missed-dose sweeper started",
		zap.String("schedule", s.spec),
		zap.Duration("grace", s.grace))
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("missed-dose sweeper stopped")
}

// RunOnce performs a single sweep and returns how many doses it converted.
func (s *Sweeper) RunOnce(now time.Time) (int, error) {
	swept, err := services.SweepOverdue(s.db, now, s.grace)
	if err != nil {
		return swept, err
	}
	if swept > 0 {
		s.logger.Info("marked overdue doses missed", zap.Int("count", swept))
	}
	return swept, nil
}
