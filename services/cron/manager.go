package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/services"
	"github.com/sahilchouksey/course-marketplace/utils/auth"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"gorm.io/gorm"
)

// CronManager manages all scheduled cron jobs
type CronManager struct {
	cron      *cron.Cron
	db        *gorm.DB
	reports   *services.ReportService
	blacklist *auth.BlacklistService
	log       *logger.Logger
	now       func() time.Time
}

// NewCronManager creates a new cron manager. Schedules are evaluated in UTC.
func NewCronManager(db *gorm.DB, reports *services.ReportService, blacklist *auth.BlacklistService, log *logger.Logger) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC))

	return &CronManager{
		cron:      c,
		db:        db,
		reports:   reports,
		blacklist: blacklist,
		log:       log.With("component", "cron"),
		now:       time.Now,
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	m.log.Info("Starting cron jobs")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	m.log.Info("Cron jobs started", "entries", len(m.cron.Entries()))
	return nil
}

// Stop stops all cron jobs and waits for running ones to finish
func (m *CronManager) Stop() {
	m.log.Info("Stopping cron jobs")
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info("Cron jobs stopped")
}

type job struct {
	name     string
	schedule string
	run      func(ctx context.Context) (string, error)
}

func (m *CronManager) jobs() []job {
	return []job{
		// Mondays 00:05: the week that just ended
		{"generate_weekly_reports", "0 5 0 * * 1", m.reportJob(model.ReportWeekly)},
		// 1st of the month 00:10
		{"generate_monthly_reports", "0 10 0 1 * *", m.reportJob(model.ReportMonthly)},
		// January 1st 00:15
		{"generate_yearly_reports", "0 15 0 1 1 *", m.reportJob(model.ReportYearly)},
		// Every hour: drop blacklist rows whose tokens have expired anyway
		{"cleanup_expired_tokens", "0 0 * * * *", m.CleanupExpiredTokens},
		// Daily at 2 AM
		{"cleanup_old_data", "0 0 2 * * *", m.CleanupOldData},
	}
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	for _, j := range m.jobs() {
		j := j
		if _, err := m.cron.AddFunc(j.schedule, func() { m.RunJob(j.name, j.run) }); err != nil {
			return fmt.Errorf("register %s: %w", j.name, err)
		}
	}
	return nil
}

// RunJob executes fn once and records the run in cron_job_logs
func (m *CronManager) RunJob(name string, fn func(ctx context.Context) (string, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	entry := m.logJobStart(name)
	msg, err := fn(ctx)
	if err != nil {
		m.logJobError(entry, err)
		return
	}
	m.logJobComplete(entry, msg)
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string) *model.CronJobLog {
	m.log.Info("Starting job", "job", jobName)

	entry := &model.CronJobLog{
		JobName:   jobName,
		Status:    "running",
		StartedAt: m.now(),
		Metadata:  []byte("{}"),
	}
	if err := m.db.Create(entry).Error; err != nil {
		m.log.Warn("Failed to record job start", "job", jobName, "error", err)
	}
	return entry
}

func (m *CronManager) finish(entry *model.CronJobLog, updates map[string]interface{}) {
	if entry.ID == 0 {
		return
	}
	completed := m.now()
	updates["completed_at"] = completed
	updates["duration_ms"] = completed.Sub(entry.StartedAt).Milliseconds()
	if err := m.db.Model(&model.CronJobLog{}).Where("id = ?", entry.ID).Updates(updates).Error; err != nil {
		m.log.Warn("Failed to record job result", "job", entry.JobName, "error", err)
	}
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(entry *model.CronJobLog, message string) {
	m.log.Info("Completed job", "job", entry.JobName, "message", message)
	m.finish(entry, map[string]interface{}{"status": "completed", "message": message})
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(entry *model.CronJobLog, err error) {
	m.log.Error("Job failed", "job", entry.JobName, "error", err)
	m.finish(entry, map[string]interface{}{"status": "failed", "error_msg": err.Error()})
}
