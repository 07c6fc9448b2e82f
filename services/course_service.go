package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/services/storage"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// BrowsePageSize is the number of courses per browse page
const BrowsePageSize = 8

// FileUpload is an uploaded file handed over by the transport
type FileUpload struct {
	Filename string
	Body     io.ReadSeeker
}

// PriceRules bounds what a tutor may charge
type PriceRules struct {
	Min int64
	Max int64
}

// CourseService owns the catalog and the course lifecycle
type CourseService struct {
	db      *gorm.DB
	storage storage.ObjectStorage
	prices  PriceRules
	cache   JSONCache
	log     *logger.Logger
}

// NewCourseService creates a new course service
func NewCourseService(db *gorm.DB, store storage.ObjectStorage, prices PriceRules, log *logger.Logger) *CourseService {
	return &CourseService{db: db, storage: store, prices: prices, log: log.With("service", "CourseService")}
}

// CourseInput carries the editable course metadata
type CourseInput struct {
	Title        string   `json:"title" form:"title"`
	Description  string   `json:"description" form:"description"`
	CategoryID   uint     `json:"category_id" form:"category_id"`
	Price        int64    `json:"price" form:"price"`
	Discount     int64    `json:"discount" form:"discount"`
	Language     string   `json:"language" form:"language"`
	Requirements []string `json:"requirements" form:"requirements"`
	Benefits     []string `json:"benefits" form:"benefits"`
}

func (in *CourseInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Language = strings.TrimSpace(in.Language)
	in.Requirements = cleanList(in.Requirements)
	in.Benefits = cleanList(in.Benefits)
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

func (s *CourseService) validateInput(tx *gorm.DB, in *CourseInput) error {
	if n := utf8.RuneCountInString(in.Title); n < 3 || n > 50 {
		return Validation("Title must be between 3 and 50 characters")
	}
	if n := utf8.RuneCountInString(in.Description); n < 20 || n > 1000 {
		return Validation("Description must be between 20 and 1000 characters")
	}
	if in.Language == "" {
		return Validation("Language is required")
	}
	if err := s.ValidatePrice(in.Price, in.Discount); err != nil {
		return err
	}
	var n int64
	if err := tx.Model(&model.Category{}).Where("id = ?", in.CategoryID).Count(&n).Error; err != nil {
		return Internal("Failed to load category", err)
	}
	if n == 0 {
		return Validation("Category not found")
	}
	return nil
}

// ValidatePrice applies the catalog price rules to a price and discount
func (s *CourseService) ValidatePrice(price, discount int64) error {
	if discount < 0 {
		return Validation("Discount cannot be negative")
	}
	if price > s.prices.Max {
		return Validation(fmt.Sprintf("Price cannot exceed %d", s.prices.Max))
	}
	if price-discount < s.prices.Min {
		return Validation(fmt.Sprintf("Price after discount must be at least %d", s.prices.Min))
	}
	return nil
}

// uploadThumbnail resizes and stores a course thumbnail
func (s *CourseService) uploadThumbnail(ctx context.Context, file *FileUpload) (storage.Object, error) {
	raw, err := io.ReadAll(file.Body)
	if err != nil {
		return storage.Object{}, Internal("Failed to read thumbnail", err)
	}
	jpg, err := storage.NormalizeThumbnail(raw)
	if err != nil {
		return storage.Object{}, Validation("Thumbnail must be a jpeg, png or webp image")
	}
	obj, err := s.storage.Upload(ctx, storage.GenerateKey("thumbnails", "thumb.jpg"), bytes.NewReader(jpg), "image/jpeg")
	if err != nil {
		return storage.Object{}, Internal("Failed to upload thumbnail", err)
	}
	return obj, nil
}

// deleteMedia removes stored objects concurrently; failures are logged, not returned.
func (s *CourseService) deleteMedia(ctx context.Context, keys ...string) {
	deleteKeys(ctx, s.storage, s.log, keys)
}

func deleteKeys(ctx context.Context, store storage.ObjectStorage, log *logger.Logger, keys []string) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, key := range keys {
		if key == "" {
			continue
		}
		key := key
		g.Go(func() error {
			if err := store.Delete(gctx, key); err != nil {
				log.Warn("failed to delete stored media", "key", key, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// CreateCourse creates a course in creating status owned by tutorID
func (s *CourseService) CreateCourse(ctx context.Context, tutorID uint, in CourseInput, thumbnail *FileUpload) (*model.Course, error) {
	in.normalize()
	if err := s.validateInput(s.db.WithContext(ctx), &in); err != nil {
		return nil, err
	}
	if thumbnail == nil {
		return nil, Validation("Thumbnail is required")
	}

	obj, err := s.uploadThumbnail(ctx, thumbnail)
	if err != nil {
		return nil, err
	}

	course := model.Course{
		TutorID:      tutorID,
		CategoryID:   in.CategoryID,
		Title:        in.Title,
		Description:  in.Description,
		Price:        in.Price,
		Discount:     in.Discount,
		Language:     in.Language,
		Requirements: in.Requirements,
		Benefits:     in.Benefits,
		ThumbnailURL: obj.URL,
		ThumbnailKey: obj.Key,
		Status:       model.CourseStatusCreating,
	}
	if err := s.db.WithContext(ctx).Create(&course).Error; err != nil {
		s.deleteMedia(ctx, obj.Key)
		return nil, Internal("Failed to create course", err)
	}

	s.log.Info("course created", "course_id", course.ID, "tutor_id", tutorID)
	return &course, nil
}

// UpdateCourse edits metadata while the course is creating. A new thumbnail replaces the old one.
func (s *CourseService) UpdateCourse(ctx context.Context, tutorID, courseID uint, in CourseInput, thumbnail *FileUpload) (*model.Course, error) {
	in.normalize()

	var uploaded *storage.Object
	if thumbnail != nil {
		obj, err := s.uploadThumbnail(ctx, thumbnail)
		if err != nil {
			return nil, err
		}
		uploaded = &obj
	}

	var course *model.Course
	var oldKey string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := lockCourse(tx, courseID)
		if err != nil {
			return err
		}
		if err := authorizeContentEdit(c, tutorID); err != nil {
			return err
		}
		if err := s.validateInput(tx, &in); err != nil {
			return err
		}

		c.Title = in.Title
		c.Description = in.Description
		c.CategoryID = in.CategoryID
		c.Price = in.Price
		c.Discount = in.Discount
		c.Language = in.Language
		c.Requirements = in.Requirements
		c.Benefits = in.Benefits
		if uploaded != nil {
			oldKey = c.ThumbnailKey
			c.ThumbnailURL = uploaded.URL
			c.ThumbnailKey = uploaded.Key
		}
		if err := tx.Save(c).Error; err != nil {
			return Internal("Failed to update course", err)
		}
		course = c
		return nil
	})
	if err != nil {
		if uploaded != nil {
			s.deleteMedia(ctx, uploaded.Key)
		}
		return nil, err
	}
	s.deleteMedia(ctx, oldKey)
	return course, nil
}

// UpdatePrice changes price and discount in any status; only the tutor may do it
func (s *CourseService) UpdatePrice(ctx context.Context, tutorID, courseID uint, price, discount int64) (*model.Course, error) {
	if err := s.ValidatePrice(price, discount); err != nil {
		return nil, err
	}
	var course *model.Course
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := lockCourse(tx, courseID)
		if err != nil {
			return err
		}
		if c.TutorID != tutorID {
			return Unauthorized("You are not the tutor of this course")
		}
		if err := tx.Model(c).Updates(map[string]interface{}{"price": price, "discount": discount}).Error; err != nil {
			return Internal("Failed to update price", err)
		}
		c.Price, c.Discount = price, discount
		course = c
		return nil
	})
	return course, err
}

// DeleteCourse removes a creating course with all of its content and stored media
func (s *CourseService) DeleteCourse(ctx context.Context, tutorID, courseID uint) error {
	var keys []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := lockCourse(tx, courseID)
		if err != nil {
			return err
		}
		if c.TutorID != tutorID {
			return Unauthorized("You are not the tutor of this course")
		}
		if c.Status != model.CourseStatusCreating {
			return InvalidAction("Only courses in creating can be deleted")
		}

		if err := tx.Model(&model.Video{}).Where("course_id = ?", courseID).Pluck("video_key", &keys).Error; err != nil {
			return Internal("Failed to load videos", err)
		}
		keys = append(keys, c.ThumbnailKey)

		for _, m := range []interface{}{&model.Exercise{}, &model.Video{}, &model.Chapter{}, &model.CartItem{}, &model.WishlistItem{}, &model.ChatMessage{}} {
			if err := tx.Where("course_id = ?", courseID).Delete(m).Error; err != nil {
				return Internal("Failed to delete course content", err)
			}
		}
		if err := tx.Delete(&model.Course{}, courseID).Error; err != nil {
			return Internal("Failed to delete course", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.deleteMedia(ctx, keys...)
	s.log.Info("course deleted", "course_id", courseID, "tutor_id", tutorID)
	return nil
}

// transition moves a course from one status to another under a row lock.
func (s *CourseService) transition(ctx context.Context, courseID uint, from, to model.CourseStatus, check func(tx *gorm.DB, c *model.Course) error) (*model.Course, error) {
	var course *model.Course
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := lockCourse(tx, courseID)
		if err != nil {
			return err
		}
		if err := check(tx, c); err != nil {
			return err
		}
		res := tx.Model(&model.Course{}).
			Where("id = ? AND status = ?", courseID, from).
			Update("status", to)
		if res.Error != nil {
			return Internal("Failed to update course status", res.Error)
		}
		if res.RowsAffected == 0 {
			return InvalidAction(fmt.Sprintf("Course must be %s", from))
		}
		c.Status = to
		course = c
		return nil
	})
	if err == nil {
		s.log.Info("course status changed", "course_id", courseID, "from", string(from), "to", string(to))
	}
	return course, err
}

func requireTutor(userID uint) func(tx *gorm.DB, c *model.Course) error {
	return func(_ *gorm.DB, c *model.Course) error {
		if c.TutorID != userID {
			return Unauthorized("You are not the tutor of this course")
		}
		return nil
	}
}

func requireStaff(actor *model.User) func(tx *gorm.DB, c *model.Course) error {
	return func(_ *gorm.DB, _ *model.Course) error {
		if actor == nil || !actor.IsStaff() {
			return Unauthorized("Only moderators can review courses")
		}
		return nil
	}
}

// SubmitForReview moves creating -> pending. The course needs at least one chapter.
func (s *CourseService) SubmitForReview(ctx context.Context, tutorID, courseID uint) (*model.Course, error) {
	return s.transition(ctx, courseID, model.CourseStatusCreating, model.CourseStatusPending, func(tx *gorm.DB, c *model.Course) error {
		if err := requireTutor(tutorID)(tx, c); err != nil {
			return err
		}
		if c.Status != model.CourseStatusCreating {
			return InvalidAction("Only courses in creating can be submitted for review")
		}
		n, err := chapterSiblings(c.ID).count(tx)
		if err != nil {
			return Internal("Failed to count chapters", err)
		}
		if n == 0 {
			return Validation("Add at least one chapter before submitting")
		}
		return nil
	})
}

// CancelReview moves pending -> creating at the tutor's request
func (s *CourseService) CancelReview(ctx context.Context, tutorID, courseID uint) (*model.Course, error) {
	return s.transition(ctx, courseID, model.CourseStatusPending, model.CourseStatusCreating, func(tx *gorm.DB, c *model.Course) error {
		if err := requireTutor(tutorID)(tx, c); err != nil {
			return err
		}
		if c.Status != model.CourseStatusPending {
			return InvalidAction("Only pending courses can be withdrawn")
		}
		return nil
	})
}

// Approve publishes a pending course
func (s *CourseService) Approve(ctx context.Context, actor *model.User, courseID uint) (*model.Course, error) {
	return s.transition(ctx, courseID, model.CourseStatusPending, model.CourseStatusPublished, func(tx *gorm.DB, c *model.Course) error {
		if err := requireStaff(actor)(tx, c); err != nil {
			return err
		}
		if c.Status != model.CourseStatusPending {
			return InvalidAction("Only pending courses can be approved")
		}
		return nil
	})
}

// Reject sends a pending course back to creating
func (s *CourseService) Reject(ctx context.Context, actor *model.User, courseID uint) (*model.Course, error) {
	return s.transition(ctx, courseID, model.CourseStatusPending, model.CourseStatusCreating, func(tx *gorm.DB, c *model.Course) error {
		if err := requireStaff(actor)(tx, c); err != nil {
			return err
		}
		if c.Status != model.CourseStatusPending {
			return InvalidAction("Only pending courses can be rejected")
		}
		return nil
	})
}

// SetBlocked toggles is_blocked without touching status
func (s *CourseService) SetBlocked(ctx context.Context, actor *model.User, courseID uint, blocked bool) (*model.Course, error) {
	if actor == nil || !actor.IsStaff() {
		return nil, Unauthorized("Only moderators can block courses")
	}
	var course model.Course
	if err := s.db.WithContext(ctx).First(&course, courseID).Error; err != nil {
		if isNotFound(err) {
			return nil, NotFound("Course not found")
		}
		return nil, Internal("Failed to load course", err)
	}
	if err := s.db.WithContext(ctx).Model(&course).Update("is_blocked", blocked).Error; err != nil {
		return nil, Internal("Failed to update course", err)
	}
	course.IsBlocked = blocked
	s.log.Info("course block toggled", "course_id", courseID, "blocked", blocked, "actor_id", actor.ID)
	return &course, nil
}
