package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const topCoursesLimit = 5

// ReportService computes sales statistics and the periodic reports
type ReportService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewReportService creates a new report service
func NewReportService(db *gorm.DB, log *logger.Logger) *ReportService {
	return &ReportService{db: db, log: log.With("service", "ReportService")}
}

// MonthPoint is one month of the sales graph
type MonthPoint struct {
	Month       string `json:"month"` // YYYY-MM
	Revenue     int64  `json:"revenue"`
	Enrollments int64  `json:"enrollments"`
}

// TopCourse is a course ranked by enrollments
type TopCourse struct {
	CourseID    uint   `json:"course_id"`
	Title       string `json:"title"`
	Enrollments int64  `json:"enrollments"`
	Revenue     int64  `json:"revenue"`
}

// Stats is the dashboard payload
type Stats struct {
	Graph       []MonthPoint `json:"graph"`
	TopCourses  []TopCourse  `json:"top_courses"`
	Revenue     int64        `json:"revenue"`
	Enrollments int64        `json:"enrollments"`
	Courses     int64        `json:"courses"`
}

// enrollmentsOf scopes enrollments to a tutor's courses; tutorID 0 means all.
func enrollmentsOf(db *gorm.DB, tutorID uint) *gorm.DB {
	q := db.Model(&model.Enrollment{})
	if tutorID != 0 {
		q = q.Joins("JOIN courses ON courses.id = enrollments.course_id").Where("courses.tutor_id = ?", tutorID)
	}
	return q
}

func topCourses(db *gorm.DB, tutorID uint, from, to time.Time) ([]TopCourse, error) {
	rows := []TopCourse{}
	q := db.Table("enrollments").
		Select("enrollments.course_id AS course_id, courses.title AS title, COUNT(*) AS enrollments, COALESCE(SUM(enrollments.price), 0) AS revenue").
		Joins("JOIN courses ON courses.id = enrollments.course_id")
	if tutorID != 0 {
		q = q.Where("courses.tutor_id = ?", tutorID)
	}
	if !from.IsZero() {
		q = q.Where("enrollments.created_at >= ? AND enrollments.created_at < ?", from, to)
	}
	err := q.Group("enrollments.course_id, courses.title").
		Order("COUNT(*) DESC, enrollments.course_id ASC").
		Limit(topCoursesLimit).
		Scan(&rows).Error
	return rows, err
}

// Stats builds the last twelve months of revenue and enrollments plus the top courses.
// tutorID 0 is the platform-wide view.
func (s *ReportService) Stats(ctx context.Context, tutorID uint, now time.Time) (*Stats, error) {
	db := s.db.WithContext(ctx)
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)

	stats := &Stats{Graph: make([]MonthPoint, 12)}
	index := make(map[string]int, 12)
	for i := range stats.Graph {
		month := start.AddDate(0, i, 0).Format("2006-01")
		stats.Graph[i].Month = month
		index[month] = i
	}

	var rows []struct {
		CreatedAt time.Time
		Price     int64
	}
	err := enrollmentsOf(db, tutorID).
		Select("enrollments.created_at AS created_at, enrollments.price AS price").
		Where("enrollments.created_at >= ?", start).
		Scan(&rows).Error
	if err != nil {
		return nil, Internal("Failed to load enrollments", err)
	}
	for _, r := range rows {
		if i, ok := index[r.CreatedAt.UTC().Format("2006-01")]; ok {
			stats.Graph[i].Revenue += r.Price
			stats.Graph[i].Enrollments++
		}
	}

	var totals struct {
		Revenue int64
		Count   int64
	}
	if err := enrollmentsOf(db, tutorID).
		Select("COALESCE(SUM(enrollments.price), 0) AS revenue, COUNT(*) AS count").
		Scan(&totals).Error; err != nil {
		return nil, Internal("Failed to total enrollments", err)
	}
	stats.Revenue, stats.Enrollments = totals.Revenue, totals.Count

	courses := db.Model(&model.Course{})
	if tutorID != 0 {
		courses = courses.Where("tutor_id = ?", tutorID)
	}
	if err := courses.Count(&stats.Courses).Error; err != nil {
		return nil, Internal("Failed to count courses", err)
	}

	stats.TopCourses, err = topCourses(db, tutorID, time.Time{}, time.Time{})
	if err != nil {
		return nil, Internal("Failed to rank courses", err)
	}
	return stats, nil
}

// ReportPeriod returns the last complete period of the given type before now.
// Weeks start on Monday. All bounds are UTC midnights.
func ReportPeriod(typ model.ReportType, now time.Time) (time.Time, time.Time, error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch typ {
	case model.ReportWeekly:
		offset := (int(today.Weekday()) + 6) % 7 // days since Monday
		end := today.AddDate(0, 0, -offset)
		return end.AddDate(0, 0, -7), end, nil
	case model.ReportMonthly:
		end := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return end.AddDate(0, -1, 0), end, nil
	case model.ReportYearly:
		end := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return end.AddDate(-1, 0, 0), end, nil
	default:
		return time.Time{}, time.Time{}, Validation("Report type must be weekly, monthly or yearly")
	}
}

func (s *ReportService) buildReport(db *gorm.DB, typ model.ReportType, tutorID uint, from, to time.Time) (*model.Report, error) {
	report := &model.Report{Type: typ, TutorID: tutorID, PeriodStart: from, PeriodEnd: to}

	var totals struct {
		Revenue int64
		Count   int64
	}
	if err := enrollmentsOf(db, tutorID).
		Select("COALESCE(SUM(enrollments.price), 0) AS revenue, COUNT(*) AS count").
		Where("enrollments.created_at >= ? AND enrollments.created_at < ?", from, to).
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	report.Revenue, report.Enrollments = totals.Revenue, totals.Count

	courses := db.Model(&model.Course{}).Where("created_at >= ? AND created_at < ?", from, to)
	if tutorID != 0 {
		courses = courses.Where("tutor_id = ?", tutorID)
	}
	if err := courses.Count(&report.NewCourses).Error; err != nil {
		return nil, err
	}

	top, err := topCourses(db, tutorID, from, to)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(map[string]interface{}{"top_courses": top})
	if err != nil {
		return nil, err
	}
	report.Payload = datatypes.JSON(payload)
	return report, nil
}

// GenerateReports stores the platform report and one report per tutor for the
// last complete period. Re-running for the same period overwrites the figures.
func (s *ReportService) GenerateReports(ctx context.Context, typ model.ReportType, now time.Time) (int, error) {
	from, to, err := ReportPeriod(typ, now)
	if err != nil {
		return 0, err
	}
	db := s.db.WithContext(ctx)

	var tutorIDs []uint
	if err := db.Model(&model.Course{}).Distinct("tutor_id").Pluck("tutor_id", &tutorIDs).Error; err != nil {
		return 0, Internal("Failed to list tutors", err)
	}

	written := 0
	for _, tutorID := range append([]uint{0}, tutorIDs...) {
		report, err := s.buildReport(db, typ, tutorID, from, to)
		if err != nil {
			return written, Internal(fmt.Sprintf("Failed to build %s report", typ), err)
		}
		err = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "type"}, {Name: "tutor_id"}, {Name: "period_start"}},
			DoUpdates: clause.AssignmentColumns([]string{"period_end", "revenue", "enrollments", "new_courses", "payload"}),
		}).Create(report).Error
		if err != nil {
			return written, Internal(fmt.Sprintf("Failed to store %s report", typ), err)
		}
		written++
	}

	s.log.Info("reports generated", "type", typ, "from", from.Format("2006-01-02"), "to", to.Format("2006-01-02"), "count", written)
	return written, nil
}

// ListReports pages through reports of one type for tutorID (0 for platform reports)
func (s *ReportService) ListReports(ctx context.Context, tutorID uint, typ model.ReportType, page, limit int) ([]model.Report, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	q := s.db.WithContext(ctx).Model(&model.Report{}).Where("tutor_id = ? AND type = ?", tutorID, typ)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, Internal("Failed to count reports", err)
	}
	reports := []model.Report{}
	if err := q.Order("period_start DESC").Offset((page - 1) * limit).Limit(limit).Find(&reports).Error; err != nil {
		return nil, 0, Internal("Failed to list reports", err)
	}
	return reports, total, nil
}

// GetReport loads a report visible to tutorID (0 for platform reports)
func (s *ReportService) GetReport(ctx context.Context, tutorID, reportID uint) (*model.Report, error) {
	var report model.Report
	err := s.db.WithContext(ctx).Where("id = ? AND tutor_id = ?", reportID, tutorID).First(&report).Error
	if err != nil {
		if isNotFound(err) {
			return nil, NotFound("Report not found")
		}
		return nil, Internal("Failed to load report", err)
	}
	return &report, nil
}

// ExportCSV renders a report as CSV: a summary block followed by the top courses
func (s *ReportService) ExportCSV(ctx context.Context, tutorID, reportID uint) (string, []byte, error) {
	report, err := s.GetReport(ctx, tutorID, reportID)
	if err != nil {
		return "", nil, err
	}

	var payload struct {
		TopCourses []TopCourse `json:"top_courses"`
	}
	if len(report.Payload) > 0 {
		if err := json.Unmarshal(report.Payload, &payload); err != nil {
			return "", nil, Internal("Failed to decode report", err)
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	records := [][]string{
		{"type", string(report.Type)},
		{"period_start", report.PeriodStart.Format("2006-01-02")},
		{"period_end", report.PeriodEnd.Format("2006-01-02")},
		{"revenue", strconv.FormatInt(report.Revenue, 10)},
		{"enrollments", strconv.FormatInt(report.Enrollments, 10)},
		{"new_courses", strconv.FormatInt(report.NewCourses, 10)},
		{},
		{"course_id", "title", "enrollments", "revenue"},
	}
	for _, c := range payload.TopCourses {
		records = append(records, []string{
			strconv.FormatUint(uint64(c.CourseID), 10),
			c.Title,
			strconv.FormatInt(c.Enrollments, 10),
			strconv.FormatInt(c.Revenue, 10),
		})
	}
	if err := w.WriteAll(records); err != nil {
		return "", nil, Internal("Failed to write report", err)
	}

	name := fmt.Sprintf("%s-report-%s.csv", report.Type, report.PeriodStart.Format("2006-01-02"))
	return name, buf.Bytes(), nil
}
