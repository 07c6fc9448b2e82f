package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestReportPeriod(t *testing.T) {
	// Wednesday
	now := time.Date(2026, time.March, 18, 15, 30, 0, 0, time.UTC)
	tests := []struct {
		typ  model.ReportType
		from time.Time
		to   time.Time
	}{
		{model.ReportWeekly, day(2026, time.March, 9), day(2026, time.March, 16)},
		{model.ReportMonthly, day(2026, time.February, 1), day(2026, time.March, 1)},
		{model.ReportYearly, day(2025, time.January, 1), day(2026, time.January, 1)},
	}
	for _, tc := range tests {
		t.Run(string(tc.typ), func(t *testing.T) {
			from, to, err := ReportPeriod(tc.typ, now)
			require.NoError(t, err)
			assert.Equal(t, tc.from, from)
			assert.Equal(t, tc.to, to)
		})
	}

	// on a Monday the previous full week is reported
	from, to, err := ReportPeriod(model.ReportWeekly, day(2026, time.March, 16))
	require.NoError(t, err)
	assert.Equal(t, day(2026, time.March, 9), from)
	assert.Equal(t, day(2026, time.March, 16), to)

	_, _, err = ReportPeriod("daily", now)
	requireKind(t, err, KindValidation)
}

func TestGenerateReports(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(db, logger.Nop())
	ctx := context.Background()
	cat := createCategory(t, db, "Programming")
	alice := createUser(t, db, "Alice", model.RoleUser)
	bob := createUser(t, db, "Bob", model.RoleUser)
	buyer := createUser(t, db, "Buyer", model.RoleUser)
	other := createUser(t, db, "Other", model.RoleUser)

	aliceCourse := createCourse(t, db, alice.ID, cat.ID, "Go Basics", 500, 0, model.CourseStatusPublished)
	bobCourse := createCourse(t, db, bob.ID, cat.ID, "Rust Basics", 800, 0, model.CourseStatusPublished)

	inFebruary := day(2026, time.February, 10)
	inMarch := day(2026, time.March, 2)
	for _, e := range []model.Enrollment{
		{UserID: buyer.ID, CourseID: aliceCourse.ID, Price: 500, CreatedAt: inFebruary},
		{UserID: other.ID, CourseID: aliceCourse.ID, Price: 450, CreatedAt: inFebruary},
		{UserID: buyer.ID, CourseID: bobCourse.ID, Price: 800, CreatedAt: inFebruary},
		{UserID: other.ID, CourseID: bobCourse.ID, Price: 800, CreatedAt: inMarch},
	} {
		e := e
		require.NoError(t, db.Create(&e).Error)
	}

	now := day(2026, time.March, 18)
	n, err := svc.GenerateReports(ctx, model.ReportMonthly, now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	platform, total, err := svc.ListReports(ctx, 0, model.ReportMonthly, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(1750), platform[0].Revenue)
	assert.Equal(t, int64(3), platform[0].Enrollments)

	mine, _, err := svc.ListReports(ctx, alice.ID, model.ReportMonthly, 1, 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, int64(950), mine[0].Revenue)
	assert.Equal(t, int64(2), mine[0].Enrollments)

	// regenerating overwrites instead of duplicating
	_, err = svc.GenerateReports(ctx, model.ReportMonthly, now)
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.Model(&model.Report{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	_, err = svc.GetReport(ctx, bob.ID, mine[0].ID)
	requireKind(t, err, KindNotFound)

	name, data, err := svc.ExportCSV(ctx, alice.ID, mine[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "monthly-report-2026-02-01.csv", name)
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"revenue", "950"}, records[3])
	last := records[len(records)-1]
	assert.Equal(t, []string{"Go Basics", "2", "950"}, last[1:])
}

func TestStatsTotals(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(db, logger.Nop())
	cat := createCategory(t, db, "Programming")
	tutor := createUser(t, db, "Tutor", model.RoleUser)
	buyer := createUser(t, db, "Buyer", model.RoleUser)
	c := createCourse(t, db, tutor.ID, cat.ID, "Go Basics", 500, 0, model.CourseStatusPublished)
	enroll(t, db, buyer.ID, c)

	stats, err := svc.Stats(context.Background(), tutor.ID, time.Now())
	require.NoError(t, err)
	assert.Len(t, stats.Graph, 12)
	assert.Equal(t, int64(500), stats.Revenue)
	assert.Equal(t, int64(1), stats.Enrollments)
	assert.Equal(t, int64(1), stats.Courses)
	require.Len(t, stats.TopCourses, 1)
	assert.Equal(t, "Go Basics", stats.TopCourses[0].Title)

	stats, err = svc.Stats(context.Background(), buyer.ID, time.Now())
	require.NoError(t, err)
	assert.Zero(t, stats.Revenue)
	assert.Empty(t, stats.TopCourses)
}
