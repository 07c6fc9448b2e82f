package services

import (
	"context"
	"math"
	"unicode/utf8"

	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"gorm.io/gorm"
)

// ReviewService manages learner reviews and keeps course ratings current
type ReviewService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewReviewService creates a new review service
func NewReviewService(db *gorm.DB, log *logger.Logger) *ReviewService {
	return &ReviewService{db: db, log: log.With("service", "ReviewService")}
}

// ReviewInput is a rating with an optional comment
type ReviewInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=500"`
}

func (in *ReviewInput) validate() error {
	in.Comment = plainText(in.Comment)
	if in.Rating < 1 || in.Rating > 5 {
		return Validation("Rating must be between 1 and 5")
	}
	if utf8.RuneCountInString(in.Comment) > 500 {
		return Validation("Comment cannot exceed 500 characters")
	}
	return nil
}

// recomputeRating stores the average rating, rounded to one decimal, on the course
func recomputeRating(tx *gorm.DB, courseID uint) error {
	var agg struct {
		Avg   float64
		Count int
	}
	err := tx.Model(&model.Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("course_id = ?", courseID).
		Scan(&agg).Error
	if err != nil {
		return err
	}
	return tx.Model(&model.Course{}).Where("id = ?", courseID).UpdateColumns(map[string]interface{}{
		"rating":       math.Round(agg.Avg*10) / 10,
		"review_count": agg.Count,
	}).Error
}

// AddReview creates the user's review of a course they are enrolled in
func (s *ReviewService) AddReview(ctx context.Context, userID, courseID uint, in ReviewInput) (*model.Review, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var review model.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrolled, err := isEnrolled(tx, userID, courseID)
		if err != nil {
			return err
		}
		if !enrolled {
			return Forbidden("Only enrolled learners can review this course")
		}
		review = model.Review{UserID: userID, CourseID: courseID, Rating: in.Rating, Comment: in.Comment}
		if err := tx.Create(&review).Error; err != nil {
			if isDuplicate(err) {
				return Conflict("You have already reviewed this course")
			}
			return Internal("Failed to create review", err)
		}
		if err := recomputeRating(tx, courseID); err != nil {
			return Internal("Failed to update course rating", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// UpdateReview edits the user's own review
func (s *ReviewService) UpdateReview(ctx context.Context, userID, reviewID uint, in ReviewInput) (*model.Review, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var review model.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&review, reviewID).Error; err != nil {
			if isNotFound(err) {
				return NotFound("Review not found")
			}
			return Internal("Failed to load review", err)
		}
		if review.UserID != userID {
			return Unauthorized("You can only edit your own review")
		}
		review.Rating = in.Rating
		review.Comment = in.Comment
		if err := tx.Model(&review).Select("rating", "comment").Updates(&review).Error; err != nil {
			return Internal("Failed to update review", err)
		}
		if err := recomputeRating(tx, review.CourseID); err != nil {
			return Internal("Failed to update course rating", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// DeleteReview removes the user's own review
func (s *ReviewService) DeleteReview(ctx context.Context, userID, reviewID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var review model.Review
		if err := tx.First(&review, reviewID).Error; err != nil {
			if isNotFound(err) {
				return NotFound("Review not found")
			}
			return Internal("Failed to load review", err)
		}
		if review.UserID != userID {
			return Unauthorized("You can only delete your own review")
		}
		if err := tx.Delete(&review).Error; err != nil {
			return Internal("Failed to delete review", err)
		}
		if err := recomputeRating(tx, review.CourseID); err != nil {
			return Internal("Failed to update course rating", err)
		}
		return nil
	})
}

// CourseReviews lists a course's reviews, newest first
func (s *ReviewService) CourseReviews(ctx context.Context, courseID uint, page, limit int) ([]model.Review, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}
	db := s.db.WithContext(ctx)
	var total int64
	if err := db.Model(&model.Review{}).Where("course_id = ?", courseID).Count(&total).Error; err != nil {
		return nil, 0, Internal("Failed to count reviews", err)
	}
	reviews := []model.Review{}
	err := db.Preload("User", func(q *gorm.DB) *gorm.DB { return q.Select("id", "name", "image") }).
		Where("course_id = ?", courseID).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, Internal("Failed to load reviews", err)
	}
	return reviews, total, nil
}
