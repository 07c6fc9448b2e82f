package cron

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sahilchouksey/course-marketplace/database"
	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/services"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, now time.Time) *CronManager {
	t.Helper()
	store, err := database.OpenSQLite(fmt.Sprintf("file:cron_%s?mode=memory&cache=shared", t.Name()), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	db := store.DB()
	m := NewCronManager(db, services.NewReportService(db, logger.Nop()), nil, logger.Nop())
	m.now = func() time.Time { return now }
	return m
}

func TestSchedulesParse(t *testing.T) {
	m := newTestManager(t, time.Now())
	require.NoError(t, m.registerJobs())
	assert.Len(t, m.cron.Entries(), len(m.jobs()))
}

func TestRunJobRecordsOutcome(t *testing.T) {
	m := newTestManager(t, time.Date(2026, time.March, 18, 0, 0, 0, 0, time.UTC))

	m.RunJob("ok_job", func(context.Context) (string, error) { return "did things", nil })
	m.RunJob("bad_job", func(context.Context) (string, error) { return "", errors.New("boom") })

	var ok, bad model.CronJobLog
	require.NoError(t, m.db.Where("job_name = ?", "ok_job").First(&ok).Error)
	assert.Equal(t, "completed", ok.Status)
	assert.Equal(t, "did things", ok.Message)
	require.NotNil(t, ok.CompletedAt)

	require.NoError(t, m.db.Where("job_name = ?", "bad_job").First(&bad).Error)
	assert.Equal(t, "failed", bad.Status)
	assert.Equal(t, "boom", bad.ErrorMsg)
}

func TestGenerateReportsJob(t *testing.T) {
	m := newTestManager(t, time.Date(2026, time.March, 18, 0, 0, 0, 0, time.UTC))

	msg, err := m.GenerateReports(context.Background(), model.ReportMonthly)
	require.NoError(t, err)
	assert.Equal(t, "Generated 1 monthly reports", msg)

	var report model.Report
	require.NoError(t, m.db.Where("tutor_id = 0").First(&report).Error)
	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), report.PeriodStart.UTC())
}

func TestCleanupOldData(t *testing.T) {
	now := time.Date(2026, time.March, 18, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, now)

	require.NoError(t, m.db.Create(&model.SignupOTP{Email: "old@example.com", PasswordHash: "x", CodeHash: "x", ExpiresAt: now.Add(-time.Minute)}).Error)
	require.NoError(t, m.db.Create(&model.SignupOTP{Email: "new@example.com", PasswordHash: "x", CodeHash: "x", ExpiresAt: now.Add(time.Minute)}).Error)
	require.NoError(t, m.db.Create(&model.PasswordResetToken{UserID: 1, Token: "old", ExpiresAt: now, CreatedAt: now.AddDate(0, 0, -8)}).Error)
	require.NoError(t, m.db.Create(&model.PasswordResetToken{UserID: 1, Token: "fresh", ExpiresAt: now, CreatedAt: now.Add(-time.Hour)}).Error)

	msg, err := m.CleanupOldData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Cleaned up 2 total records", msg)

	var n int64
	require.NoError(t, m.db.Model(&model.SignupOTP{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
	require.NoError(t, m.db.Model(&model.PasswordResetToken{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}
