package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/foodstation/internal/config"
	"github.com/mamadbah2/foodstation/internal/domain/models"
)

// WeeklyReporter builds the weekly ledger report text.
type WeeklyReporter interface {
	GenerateWeeklyReport(ctx context.Context, now time.Time) (string, error)
}

// Repairer finishes interrupted cascades.
type Repairer interface {
	RepairPending(ctx context.Context) ([]models.PipelineKind, error)
}

// Messenger delivers the report. It may be nil when messaging is disabled.
type Messenger interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	reporter  WeeklyReporter
	repairer  Repairer
	messenger Messenger
	cfg       config.Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduler creates a new scheduler instance. Jobs run in the station's
// time zone.
func NewScheduler(cfg config.Config, reporter WeeklyReporter, repairer Repairer, messenger Messenger, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := cron.New(cron.WithLocation(cfg.Location()))

	return &Scheduler{
		cron:      c,
		reporter:  reporter,
		repairer:  repairer,
		messenger: messenger,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler")

	if _, err := s.cron.AddFunc(s.cfg.Reporting.CronSchedule, s.sendWeeklyReport); err != nil {
		return fmt.Errorf("schedule weekly report %q: %w", s.cfg.Reporting.CronSchedule, err)
	}

	if s.cfg.Reporting.RepairSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.Reporting.RepairSchedule, s.repairPending); err != nil {
			return fmt.Errorf("schedule cascade repair %q: %w", s.cfg.Reporting.RepairSchedule, err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sendWeeklyReport() {
	s.logger.Info("generating weekly report")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := s.reporter.GenerateWeeklyReport(ctx, s.now())
	if err != nil {
		s.logger.Error("weekly report incomplete", zap.Error(err))
	}
	if report == "" {
		return
	}

	if s.messenger == nil || s.cfg.WhatsApp.ReportRecipient == "" {
		s.logger.Info("weekly report generated, no recipient configured", zap.String("report", report))
		return
	}

	req := models.OutboundMessageRequest{
		To:      s.cfg.WhatsApp.ReportRecipient,
		Message: report,
	}

	if err := s.messenger.SendOutbound(ctx, req); err != nil {
		s.logger.Error("failed to send weekly report", zap.Error(err))
	} else {
		s.logger.Info("weekly report sent successfully")
	}
}

func (s *Scheduler) repairPending() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	repaired, err := s.repairer.RepairPending(ctx)
	if err != nil {
		s.logger.Error("cascade repair failed", zap.Error(err))
	}
	if len(repaired) > 0 {
		names := make([]string, 0, len(repaired))
		for _, p := range repaired {
			names = append(names, string(p))
		}
		s.logger.Warn("repaired interrupted cascades", zap.Strings("pipelines", names))
	}
}
