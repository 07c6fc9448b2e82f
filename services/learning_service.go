package services

import (
	"context"

	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LearningService serves purchased content and tracks progress through it
type LearningService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewLearningService creates a new learning service
func NewLearningService(db *gorm.DB, log *logger.Logger) *LearningService {
	return &LearningService{db: db, log: log.With("service", "LearningService")}
}

// ItemRef points at a video or an exercise
type ItemRef struct {
	Type      string `json:"type"`
	ID        uint   `json:"id"`
	ChapterID uint   `json:"chapter_id"`
}

// VideoDetail is a video with the item that follows it
type VideoDetail struct {
	Video model.Video `json:"video"`
	Next  *ItemRef    `json:"next"`
}

// ExerciseDetail is an exercise with the item that follows it
type ExerciseDetail struct {
	Exercise model.Exercise `json:"exercise"`
	Next     *ItemRef       `json:"next"`
}

// ProgressSummary compares consumed items with the course totals
type ProgressSummary struct {
	CourseID        uint      `json:"course_id"`
	VideosWatched   int64     `json:"videos_watched"`
	TotalVideos     int64     `json:"total_videos"`
	ExercisesDone   int64     `json:"exercises_done"`
	TotalExercises  int64     `json:"total_exercises"`
	PercentComplete float64   `json:"percent_complete"`
	Completed       []ItemRef `json:"completed"`
}

func (s *LearningService) requireEnrollment(db *gorm.DB, userID, courseID uint) error {
	ok, err := isEnrolled(db, userID, courseID)
	if err != nil {
		return err
	}
	if !ok {
		return Forbidden("You are not enrolled in this course")
	}
	return nil
}

// PurchasedCourses lists the user's enrollments, newest first
func (s *LearningService) PurchasedCourses(ctx context.Context, userID uint) ([]model.Enrollment, error) {
	enrollments := []model.Enrollment{}
	err := s.db.WithContext(ctx).
		Preload("Course").
		Preload("Course.Tutor").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, Internal("Failed to load purchased courses", err)
	}
	return enrollments, nil
}

// firstItem is the first video of the chapter, else its first exercise, else nil.
func firstItem(db *gorm.DB, chapterID uint) (*ItemRef, error) {
	var video model.Video
	err := db.Where("chapter_id = ? AND sort_order = 1", chapterID).Take(&video).Error
	if err == nil {
		return &ItemRef{Type: model.ProgressItemVideo, ID: video.ID, ChapterID: chapterID}, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	var exercise model.Exercise
	err = db.Where("chapter_id = ? AND sort_order = 1", chapterID).Take(&exercise).Error
	if err == nil {
		return &ItemRef{Type: model.ProgressItemExercise, ID: exercise.ID, ChapterID: chapterID}, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	return nil, nil
}

// firstItemAfterChapter walks the following chapters until one has content.
func firstItemAfterChapter(db *gorm.DB, chapter *model.Chapter) (*ItemRef, error) {
	var following []model.Chapter
	err := db.Where("course_id = ? AND sort_order > ?", chapter.CourseID, chapter.SortOrder).
		Order("sort_order ASC").Find(&following).Error
	if err != nil {
		return nil, err
	}
	for _, ch := range following {
		ref, err := firstItem(db, ch.ID)
		if err != nil || ref != nil {
			return ref, err
		}
	}
	return nil, nil
}

func (s *LearningService) nextAfterVideo(db *gorm.DB, video *model.Video) (*ItemRef, error) {
	var next model.Video
	err := db.Where("chapter_id = ? AND sort_order = ?", video.ChapterID, video.SortOrder+1).Take(&next).Error
	if err == nil {
		return &ItemRef{Type: model.ProgressItemVideo, ID: next.ID, ChapterID: video.ChapterID}, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	var exercise model.Exercise
	err = db.Where("chapter_id = ? AND sort_order = 1", video.ChapterID).Take(&exercise).Error
	if err == nil {
		return &ItemRef{Type: model.ProgressItemExercise, ID: exercise.ID, ChapterID: video.ChapterID}, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	var chapter model.Chapter
	if err := db.First(&chapter, video.ChapterID).Error; err != nil {
		return nil, err
	}
	return firstItemAfterChapter(db, &chapter)
}

func (s *LearningService) nextAfterExercise(db *gorm.DB, exercise *model.Exercise) (*ItemRef, error) {
	var next model.Exercise
	err := db.Where("chapter_id = ? AND sort_order = ?", exercise.ChapterID, exercise.SortOrder+1).Take(&next).Error
	if err == nil {
		return &ItemRef{Type: model.ProgressItemExercise, ID: next.ID, ChapterID: exercise.ChapterID}, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	var chapter model.Chapter
	if err := db.First(&chapter, exercise.ChapterID).Error; err != nil {
		return nil, err
	}
	return firstItemAfterChapter(db, &chapter)
}

// ChapterEntry resolves where a learner lands when opening a chapter
func (s *LearningService) ChapterEntry(ctx context.Context, userID, chapterID uint) (*ItemRef, error) {
	db := s.db.WithContext(ctx)
	var chapter model.Chapter
	if err := db.First(&chapter, chapterID).Error; err != nil {
		if isNotFound(err) {
			return nil, NotFound("Chapter not found")
		}
		return nil, Internal("Failed to load chapter", err)
	}
	if err := s.requireEnrollment(db, userID, chapter.CourseID); err != nil {
		return nil, err
	}
	ref, err := firstItem(db, chapter.ID)
	if err != nil {
		return nil, Internal("Failed to load chapter content", err)
	}
	if ref == nil {
		return nil, NotFound("Chapter has no content")
	}
	return ref, nil
}

// markConsumed adds the item to the learner's progress. Repeated calls change nothing.
func markConsumed(tx *gorm.DB, userID, courseID uint, itemType string, itemID uint) error {
	created := model.Progress{UserID: userID, CourseID: courseID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&created).Error; err != nil {
		return err
	}
	var progress model.Progress
	if err := tx.Where("user_id = ? AND course_id = ?", userID, courseID).Take(&progress).Error; err != nil {
		return err
	}
	item := model.ProgressItem{ProgressID: progress.ID, ItemType: itemType, ItemID: itemID}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&item).Error
}

// WatchVideo returns the video, records it as watched and resolves the next item
func (s *LearningService) WatchVideo(ctx context.Context, userID, videoID uint) (*VideoDetail, error) {
	db := s.db.WithContext(ctx)
	var video model.Video
	if err := db.First(&video, videoID).Error; err != nil {
		if isNotFound(err) {
			return nil, NotFound("Video not found")
		}
		return nil, Internal("Failed to load video", err)
	}
	if err := s.requireEnrollment(db, userID, video.CourseID); err != nil {
		return nil, err
	}
	if err := markConsumed(db, userID, video.CourseID, model.ProgressItemVideo, video.ID); err != nil {
		return nil, Internal("Failed to record progress", err)
	}
	next, err := s.nextAfterVideo(db, &video)
	if err != nil {
		return nil, Internal("Failed to resolve next item", err)
	}
	return &VideoDetail{Video: video, Next: next}, nil
}

// OpenExercise returns the exercise, records it as done and resolves the next item
func (s *LearningService) OpenExercise(ctx context.Context, userID, exerciseID uint) (*ExerciseDetail, error) {
	db := s.db.WithContext(ctx)
	var exercise model.Exercise
	if err := db.First(&exercise, exerciseID).Error; err != nil {
		if isNotFound(err) {
			return nil, NotFound("Exercise not found")
		}
		return nil, Internal("Failed to load exercise", err)
	}
	if err := s.requireEnrollment(db, userID, exercise.CourseID); err != nil {
		return nil, err
	}
	if err := markConsumed(db, userID, exercise.CourseID, model.ProgressItemExercise, exercise.ID); err != nil {
		return nil, Internal("Failed to record progress", err)
	}
	next, err := s.nextAfterExercise(db, &exercise)
	if err != nil {
		return nil, Internal("Failed to resolve next item", err)
	}
	return &ExerciseDetail{Exercise: exercise, Next: next}, nil
}

// Progress summarises how much of the course the learner has consumed
func (s *LearningService) Progress(ctx context.Context, userID, courseID uint) (*ProgressSummary, error) {
	db := s.db.WithContext(ctx)
	if err := s.requireEnrollment(db, userID, courseID); err != nil {
		return nil, err
	}

	summary := &ProgressSummary{CourseID: courseID, Completed: []ItemRef{}}
	if err := db.Model(&model.Video{}).Where("course_id = ?", courseID).Count(&summary.TotalVideos).Error; err != nil {
		return nil, Internal("Failed to count videos", err)
	}
	if err := db.Model(&model.Exercise{}).Where("course_id = ?", courseID).Count(&summary.TotalExercises).Error; err != nil {
		return nil, Internal("Failed to count exercises", err)
	}

	var progress model.Progress
	err := db.Preload("Items").Where("user_id = ? AND course_id = ?", userID, courseID).Take(&progress).Error
	if err != nil && !isNotFound(err) {
		return nil, Internal("Failed to load progress", err)
	}
	for _, item := range progress.Items {
		switch item.ItemType {
		case model.ProgressItemVideo:
			summary.VideosWatched++
		case model.ProgressItemExercise:
			summary.ExercisesDone++
		}
		summary.Completed = append(summary.Completed, ItemRef{Type: item.ItemType, ID: item.ItemID})
	}

	if total := summary.TotalVideos + summary.TotalExercises; total > 0 {
		done := summary.VideosWatched + summary.ExercisesDone
		summary.PercentComplete = float64(done) * 100 / float64(total)
		if summary.PercentComplete > 100 {
			summary.PercentComplete = 100
		}
	}
	return summary, nil
}
