package services

import (
	"context"
	"strings"
	"time"

	"github.com/sahilchouksey/course-marketplace/model"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Browse sort keys
const (
	SortNewest    = "newest"
	SortRating    = "rating"
	SortPriceLow  = "price_low"
	SortPriceHigh = "price_high"
)

const maxFilterPrice = 99999

// BrowseFilter holds the browse query parameters
type BrowseFilter struct {
	Search     string
	CategoryID uint
	Language   string
	MinPrice   int64
	MaxPrice   int64
	Sort       string
	Page       int
}

// CoursePage is one page of browse results
type CoursePage struct {
	Docs        []model.Course `json:"docs"`
	Total       int64          `json:"total"`
	Limit       int            `json:"limit"`
	Page        int            `json:"page"`
	Pages       int            `json:"pages"`
	HasNextPage bool           `json:"has_next_page"`
	HasPrevPage bool           `json:"has_prev_page"`
	NextPage    *int           `json:"next_page"`
	PrevPage    *int           `json:"prev_page"`
}

func newCoursePage(docs []model.Course, total int64, page, limit int) *CoursePage {
	pages := int((total + int64(limit) - 1) / int64(limit))
	p := &CoursePage{
		Docs:        docs,
		Total:       total,
		Limit:       limit,
		Page:        page,
		Pages:       pages,
		HasNextPage: page < pages,
		HasPrevPage: page > 1,
	}
	if p.HasNextPage {
		next := page + 1
		p.NextPage = &next
	}
	if p.HasPrevPage {
		prev := page - 1
		p.PrevPage = &prev
	}
	return p
}

// purchasable scopes to published, unblocked courses the viewer neither authored nor owns.
func purchasable(db *gorm.DB, viewerID uint) *gorm.DB {
	q := db.Model(&model.Course{}).
		Where("courses.status = ? AND courses.is_blocked = ?", model.CourseStatusPublished, false)
	if viewerID != 0 {
		q = q.Where("courses.tutor_id <> ?", viewerID).
			Where("courses.id NOT IN (?)", db.Model(&model.Enrollment{}).Select("course_id").Where("user_id = ?", viewerID))
	}
	return q
}

func clampPrice(p int64) int64 {
	if p < 0 {
		return 0
	}
	if p > maxFilterPrice {
		return maxFilterPrice
	}
	return p
}

// Browse lists purchasable courses with filters, sorting and fixed-size pages
func (s *CourseService) Browse(ctx context.Context, viewerID uint, f BrowseFilter) (*CoursePage, error) {
	db := s.db.WithContext(ctx)
	q := purchasable(db, viewerID)

	if search := strings.TrimSpace(f.Search); search != "" {
		q = q.Where("LOWER(courses.title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if f.CategoryID != 0 {
		q = q.Where("courses.category_id = ?", f.CategoryID)
	}
	if lang := strings.TrimSpace(f.Language); lang != "" {
		q = q.Where("LOWER(courses.language) = ?", strings.ToLower(lang))
	}
	minPrice, maxPrice := clampPrice(f.MinPrice), clampPrice(f.MaxPrice)
	if f.MaxPrice == 0 {
		maxPrice = maxFilterPrice
	}
	q = q.Where("(courses.price - courses.discount) BETWEEN ? AND ?", minPrice, maxPrice)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, Internal("Failed to count courses", err)
	}

	switch f.Sort {
	case SortNewest:
		q = q.Order("courses.created_at DESC")
	case SortRating:
		q = q.Order("courses.rating DESC")
	case SortPriceLow:
		q = q.Order("(courses.price - courses.discount) ASC")
	default:
		q = q.Order("(courses.price - courses.discount) DESC")
	}
	q = q.Order("courses.id DESC")

	page := f.Page
	if page < 1 {
		page = 1
	}

	docs := []model.Course{}
	if err := q.Preload("Tutor").Preload("Category").
		Offset((page - 1) * BrowsePageSize).Limit(BrowsePageSize).
		Find(&docs).Error; err != nil {
		return nil, Internal("Failed to list courses", err)
	}

	return newCoursePage(docs, total, page, BrowsePageSize), nil
}

// CategoryCourses is one row of the home page
type CategoryCourses struct {
	Category model.Category `json:"category"`
	Courses  []model.Course `json:"courses"`
}

const (
	homeCategories        = 5
	homeCoursesPerSection = 8

	homeCacheKey = "catalog:home"
	homeCacheTTL = time.Minute
)

// JSONCache stores JSON encoded values with an expiry
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// SetCache enables caching of the anonymous home page
func (s *CourseService) SetCache(c JSONCache) {
	s.cache = c
}

// Home returns up to five categories with their newest purchasable courses, queried in parallel.
// The page seen by visitors is cached for a minute when a cache is set.
func (s *CourseService) Home(ctx context.Context, viewerID uint) ([]CategoryCourses, error) {
	if viewerID != 0 || s.cache == nil {
		return s.loadHome(ctx, viewerID)
	}

	var cached []CategoryCourses
	if err := s.cache.GetJSON(ctx, homeCacheKey, &cached); err == nil {
		return cached, nil
	}
	sections, err := s.loadHome(ctx, 0)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, homeCacheKey, sections, homeCacheTTL); err != nil {
		s.log.Warn("failed to cache home page", "error", err)
	}
	return sections, nil
}

func (s *CourseService) loadHome(ctx context.Context, viewerID uint) ([]CategoryCourses, error) {
	var categories []model.Category
	if err := s.db.WithContext(ctx).Order("name ASC").Limit(homeCategories).Find(&categories).Error; err != nil {
		return nil, Internal("Failed to list categories", err)
	}

	sections := make([]CategoryCourses, len(categories))
	g, gctx := errgroup.WithContext(ctx)
	for i, cat := range categories {
		i, cat := i, cat
		g.Go(func() error {
			courses := []model.Course{}
			err := purchasable(s.db.WithContext(gctx), viewerID).
				Where("courses.category_id = ?", cat.ID).
				Preload("Tutor").
				Order("courses.created_at DESC").
				Limit(homeCoursesPerSection).
				Find(&courses).Error
			if err != nil {
				return err
			}
			sections[i] = CategoryCourses{Category: cat, Courses: courses}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Internal("Failed to load home page", err)
	}
	return sections, nil
}

func orderedContent(db *gorm.DB) *gorm.DB {
	bySortOrder := func(q *gorm.DB) *gorm.DB { return q.Order("sort_order ASC") }
	return db.
		Preload("Chapters", bySortOrder).
		Preload("Chapters.Videos", bySortOrder).
		Preload("Chapters.Exercises", bySortOrder)
}

// GetCourse returns a course with its ordered content. Viewers other than the tutor,
// staff and enrolled learners see the outline only, and only of purchasable courses.
func (s *CourseService) GetCourse(ctx context.Context, viewer *model.User, courseID uint) (*model.Course, error) {
	db := s.db.WithContext(ctx)

	var course model.Course
	err := orderedContent(db).Preload("Tutor").Preload("Category").First(&course, courseID).Error
	if err != nil {
		if isNotFound(err) {
			return nil, NotFound("Course not found")
		}
		return nil, Internal("Failed to load course", err)
	}

	fullAccess := false
	if viewer != nil {
		switch {
		case viewer.ID == course.TutorID, viewer.IsStaff():
			fullAccess = true
		default:
			var n int64
			if err := db.Model(&model.Enrollment{}).Where("user_id = ? AND course_id = ?", viewer.ID, courseID).Count(&n).Error; err != nil {
				return nil, Internal("Failed to check enrollment", err)
			}
			fullAccess = n > 0
		}
	}

	if !fullAccess {
		if !course.IsPurchasable() {
			return nil, NotFound("Course not found")
		}
		for i := range course.Chapters {
			for j := range course.Chapters[i].Videos {
				course.Chapters[i].Videos[j].VideoURL = ""
			}
			for j := range course.Chapters[i].Exercises {
				course.Chapters[i].Exercises[j].Answer = ""
			}
		}
	}
	return &course, nil
}

// TutorCourses lists the tutor's own courses in one status
func (s *CourseService) TutorCourses(ctx context.Context, tutorID uint, status model.CourseStatus) ([]model.Course, error) {
	courses := []model.Course{}
	err := s.db.WithContext(ctx).
		Where("tutor_id = ? AND status = ?", tutorID, status).
		Preload("Category").
		Order("updated_at DESC").
		Find(&courses).Error
	if err != nil {
		return nil, Internal("Failed to list courses", err)
	}
	return courses, nil
}

// ModerationQueue lists courses by status for staff, newest first
func (s *CourseService) ModerationQueue(ctx context.Context, status model.CourseStatus, page, limit int) ([]model.Course, int64, error) {
	q := s.db.WithContext(ctx).Model(&model.Course{}).Where("status = ?", status)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, Internal("Failed to count courses", err)
	}

	courses := []model.Course{}
	if err := q.Preload("Tutor").Preload("Category").
		Order("updated_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&courses).Error; err != nil {
		return nil, 0, Internal("Failed to list courses", err)
	}
	return courses, total, nil
}
