package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sahilchouksey/course-marketplace/model"
)

func (m *CronManager) reportJob(typ model.ReportType) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		return m.GenerateReports(ctx, typ)
	}
}

// GenerateReports writes the platform report and one per tutor for the
// period of typ that just closed.
func (m *CronManager) GenerateReports(ctx context.Context, typ model.ReportType) (string, error) {
	written, err := m.reports.GenerateReports(ctx, typ, m.now())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Generated %d %s reports", written, typ), nil
}

// CleanupExpiredTokens removes blacklist entries for tokens past their expiry
func (m *CronManager) CleanupExpiredTokens(ctx context.Context) (string, error) {
	removed, err := m.blacklist.CleanupExpiredTokens(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Removed %d expired blacklist entries", removed), nil
}

// CleanupOldData prunes expired signup codes, stale reset tokens and old job logs
func (m *CronManager) CleanupOldData(ctx context.Context) (string, error) {
	db := m.db.WithContext(ctx)
	now := m.now()
	totalCleaned := int64(0)

	steps := []struct {
		what  string
		query func() (int64, error)
	}{
		{"expired signup codes", func() (int64, error) {
			res := db.Where("expires_at < ?", now).Delete(&model.SignupOTP{})
			return res.RowsAffected, res.Error
		}},
		{"password reset tokens", func() (int64, error) {
			res := db.Where("created_at < ?", now.Add(-7*24*time.Hour)).Delete(&model.PasswordResetToken{})
			return res.RowsAffected, res.Error
		}},
		{"cron job logs", func() (int64, error) {
			res := db.Where("created_at < ?", now.Add(-90*24*time.Hour)).Delete(&model.CronJobLog{})
			return res.RowsAffected, res.Error
		}},
	}

	for _, step := range steps {
		n, err := step.query()
		if err != nil {
			return "", fmt.Errorf("clean %s: %w", step.what, err)
		}
		m.log.Debug("Cleaned records", "what", step.what, "count", n)
		totalCleaned += n
	}

	return fmt.Sprintf("Cleaned up %d total records", totalCleaned), nil
}
