package scheduler

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/config"
	"bitbucket.org/mmdatafocus/cashflow_dashboard/workflow"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler owns the daily background job: snapshot the completed day,
// regenerate the standard forecasts, and evaluate alert rules.
type Scheduler struct {
	Cron     *cron.Cron
	Logger   *logrus.Logger
	Settings *config.Settings
	Ctx      context.Context
}

func NewScheduler(ctx context.Context, logger *logrus.Logger, settings *config.Settings) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(),
		Logger:   logger,
		Settings: settings,
		Ctx:      ctx,
	}
}

// Register wires the daily pipeline at the configured hour (server local time,
// shortly past the hour so midnight-adjacent transactions settle first).
func (s *Scheduler) Register() error {
	spec := fmt.Sprintf("5 %d * * *", s.Settings.DailyJobHour)
	if _, err := s.Cron.AddFunc(spec, s.runDailyPipeline); err != nil {
		return fmt.Errorf("register daily pipeline: %w", err)
	}
	return nil
}

func (s *Scheduler) runDailyPipeline() {
	if err := workflow.RunDailyPipeline(s.Ctx, s.Logger, s.Settings); err != nil {
		config.LogError(s.Logger, "scheduler.go", "runDailyPipeline", "RunDailyPipeline", nil, err)
	}
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.WithFields(logrus.Fields{
		"module": "scheduler.go",
		"hour":   s.Settings.DailyJobHour,
	}).Info("scheduler started")
}

// Stop waits for an in-flight run before returning.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.WithFields(logrus.Fields{"module": "scheduler.go"}).Info("scheduler stopped")
}

// RunNow triggers the daily pipeline immediately, outside the schedule.
func (s *Scheduler) RunNow() {
	s.runDailyPipeline()
}
