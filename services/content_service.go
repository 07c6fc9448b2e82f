package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/services/storage"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"gorm.io/gorm"
)

// ContentService manages chapters, videos and exercises and keeps their orders dense.
// Every mutation locks the course row, then the chapter row, and only then reads the
// orders it changes, so concurrent edits of one course serialise.
type ContentService struct {
	db      *gorm.DB
	storage storage.ObjectStorage
	log     *logger.Logger
}

// NewContentService creates a new content service
func NewContentService(db *gorm.DB, store storage.ObjectStorage, log *logger.Logger) *ContentService {
	return &ContentService{db: db, storage: store, log: log.With("service", "ContentService")}
}

// ---- chapters ----

func validateChapterTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if n := utf8.RuneCountInString(title); n < 5 || n > 100 {
		return "", Validation("Chapter title must be between 5 and 100 characters")
	}
	return title, nil
}

func chapterTitleTaken(tx *gorm.DB, courseID uint, title string, exceptID uint) (bool, error) {
	var n int64
	err := tx.Model(&model.Chapter{}).
		Where("course_id = ? AND title = ? AND id <> ?", courseID, title, exceptID).
		Count(&n).Error
	return n > 0, err
}

// CreateChapter appends a chapter to the course
func (s *ContentService) CreateChapter(ctx context.Context, tutorID, courseID uint, title string) (*model.Chapter, error) {
	title, err := validateChapterTitle(title)
	if err != nil {
		return nil, err
	}

	var chapter model.Chapter
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		course, err := lockCourse(tx, courseID)
		if err != nil {
			return err
		}
		if err := authorizeContentEdit(course, tutorID); err != nil {
			return err
		}
		taken, err := chapterTitleTaken(tx, courseID, title, 0)
		if err != nil {
			return Internal("Failed to check chapter title", err)
		}
		if taken {
			return Validation("Chapter already exists")
		}

		order, err := chapterSiblings(courseID).next(tx)
		if err != nil {
			return Internal("Failed to count chapters", err)
		}
		chapter = model.Chapter{CourseID: courseID, Title: title, SortOrder: order}
		if err := tx.Create(&chapter).Error; err != nil {
			if isDuplicate(err) {
				return Validation("Chapter already exists")
			}
			return Internal("Failed to create chapter", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &chapter, nil
}

// ChapterUpdate edits a chapter. A non-nil Order swaps with the chapter holding it.
type ChapterUpdate struct {
	Title *string `json:"title"`
	Order *int    `json:"order"`
}

// UpdateChapter renames and/or reorders a chapter
func (s *ContentService) UpdateChapter(ctx context.Context, tutorID, chapterID uint, in ChapterUpdate) (*model.Chapter, error) {
	var chapter *model.Chapter
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ch, _, err := editableChapter(tx, chapterID, tutorID)
		if err != nil {
			return err
		}

		if in.Title != nil {
			title, err := validateChapterTitle(*in.Title)
			if err != nil {
				return err
			}
			taken, err := chapterTitleTaken(tx, ch.CourseID, title, ch.ID)
			if err != nil {
				return Internal("Failed to check chapter title", err)
			}
			if taken {
				return Validation("Chapter already exists")
			}
			if err := tx.Model(ch).UpdateColumn("title", title).Error; err != nil {
				if isDuplicate(err) {
					return Validation("Chapter already exists")
				}
				return Internal("Failed to update chapter", err)
			}
			ch.Title = title
		}

		if in.Order != nil {
			if err := chapterSiblings(ch.CourseID).swap(tx, ch.ID, ch.SortOrder, *in.Order); err != nil {
				return err
			}
			ch.SortOrder = *in.Order
		}
		chapter = ch
		return nil
	})
	return chapter, err
}

// DeleteChapter removes a chapter with its videos and exercises and closes the order gap
func (s *ContentService) DeleteChapter(ctx context.Context, tutorID, chapterID uint) error {
	var keys []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ch, _, err := editableChapter(tx, chapterID, tutorID)
		if err != nil {
			return err
		}

		if err := tx.Model(&model.Video{}).Where("chapter_id = ?", ch.ID).Pluck("video_key", &keys).Error; err != nil {
			return Internal("Failed to load videos", err)
		}
		if err := tx.Where("chapter_id = ?", ch.ID).Delete(&model.Video{}).Error; err != nil {
			return Internal("Failed to delete videos", err)
		}
		if err := tx.Where("chapter_id = ?", ch.ID).Delete(&model.Exercise{}).Error; err != nil {
			return Internal("Failed to delete exercises", err)
		}
		if err := tx.Delete(&model.Chapter{}, ch.ID).Error; err != nil {
			return Internal("Failed to delete chapter", err)
		}
		if err := chapterSiblings(ch.CourseID).closeGap(tx, ch.SortOrder); err != nil {
			return Internal("Failed to reorder chapters", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	deleteKeys(ctx, s.storage, s.log, keys)
	return nil
}

// ListChapters returns a course's chapters in order
func (s *ContentService) ListChapters(ctx context.Context, courseID uint) ([]model.Chapter, error) {
	chapters := []model.Chapter{}
	if err := s.db.WithContext(ctx).Where("course_id = ?", courseID).Order("sort_order ASC").Find(&chapters).Error; err != nil {
		return nil, Internal("Failed to list chapters", err)
	}
	return chapters, nil
}

// ---- videos ----

// VideoInput carries video metadata
type VideoInput struct {
	Title           string `json:"title" form:"title"`
	Description     string `json:"description" form:"description"`
	DurationSeconds int    `json:"duration_seconds" form:"duration_seconds"`
}

func (in *VideoInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if n := utf8.RuneCountInString(in.Title); n < 5 || n > 100 {
		return Validation("Video title must be between 5 and 100 characters")
	}
	if in.Description == "" {
		return Validation("Video description is required")
	}
	if in.DurationSeconds < 0 {
		return Validation("Duration cannot be negative")
	}
	return nil
}

func (s *ContentService) uploadVideo(ctx context.Context, file *FileUpload) (storage.Object, error) {
	if !storage.IsVideo(file.Filename) {
		return storage.Object{}, Validation("Video must be an mp4, webm, mov or mkv file")
	}
	obj, err := s.storage.Upload(ctx, storage.GenerateKey("videos", file.Filename), file.Body, storage.GetContentType(file.Filename))
	if err != nil {
		return storage.Object{}, Internal("Failed to upload video", err)
	}
	return obj, nil
}

// CreateVideo uploads the file and appends a video to the chapter
func (s *ContentService) CreateVideo(ctx context.Context, tutorID, chapterID uint, in VideoInput, file *FileUpload) (*model.Video, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if file == nil {
		return nil, Validation("Video file is required")
	}
	// fail fast on ownership before paying for the upload
	if err := s.checkChapterEditable(ctx, tutorID, chapterID); err != nil {
		return nil, err
	}

	obj, err := s.uploadVideo(ctx, file)
	if err != nil {
		return nil, err
	}

	var video model.Video
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ch, _, err := editableChapter(tx, chapterID, tutorID)
		if err != nil {
			return err
		}
		order, err := videoSiblings(ch.ID).next(tx)
		if err != nil {
			return Internal("Failed to count videos", err)
		}
		video = model.Video{
			CourseID:        ch.CourseID,
			ChapterID:       ch.ID,
			Title:           in.Title,
			Description:     in.Description,
			VideoURL:        obj.URL,
			VideoKey:        obj.Key,
			DurationSeconds: in.DurationSeconds,
			SortOrder:       order,
		}
		if err := tx.Create(&video).Error; err != nil {
			return Internal("Failed to create video", err)
		}
		return nil
	})
	if err != nil {
		deleteKeys(ctx, s.storage, s.log, []string{obj.Key})
		return nil, err
	}
	return &video, nil
}

func (s *ContentService) checkChapterEditable(ctx context.Context, tutorID, chapterID uint) error {
	var chapter model.Chapter
	if err := s.db.WithContext(ctx).First(&chapter, chapterID).Error; err != nil {
		if isNotFound(err) {
			return NotFound("Chapter not found")
		}
		return Internal("Failed to load chapter", err)
	}
	var course model.Course
	if err := s.db.WithContext(ctx).First(&course, chapter.CourseID).Error; err != nil {
		return Internal("Failed to load course", err)
	}
	return authorizeContentEdit(&course, tutorID)
}

// VideoUpdate edits a video. Nil fields are left unchanged.
type VideoUpdate struct {
	Title           *string `json:"title" form:"title"`
	Description     *string `json:"description" form:"description"`
	DurationSeconds *int    `json:"duration_seconds" form:"duration_seconds"`
	Order           *int    `json:"order" form:"order"`
}

// UpdateVideo edits metadata, optionally replaces the file, and optionally swaps order
func (s *ContentService) UpdateVideo(ctx context.Context, tutorID, videoID uint, in VideoUpdate, file *FileUpload) (*model.Video, error) {
	var existing model.Video
	if err := s.db.WithContext(ctx).First(&existing, videoID).Error; err != nil {
		if isNotFound(err) {
			return nil, NotFound("Video not found")
		}
		return nil, Internal("Failed to load video", err)
	}
	if err := s.checkChapterEditable(ctx, tutorID, existing.ChapterID); err != nil {
		return nil, err
	}

	var uploaded *storage.Object
	if file != nil {
		obj, err := s.uploadVideo(ctx, file)
		if err != nil {
			return nil, err
		}
		uploaded = &obj
	}

	var video model.Video
	var oldKey string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ch, err := editableChild(tx, &video, videoID, tutorID, "Video")
		if err != nil {
			return err
		}

		merged := VideoInput{Title: video.Title, Description: video.Description, DurationSeconds: video.DurationSeconds}
		if in.Title != nil {
			merged.Title = *in.Title
		}
		if in.Description != nil {
			merged.Description = *in.Description
		}
		if in.DurationSeconds != nil {
			merged.DurationSeconds = *in.DurationSeconds
		}
		if err := merged.validate(); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"title":            merged.Title,
			"description":      merged.Description,
			"duration_seconds": merged.DurationSeconds,
		}
		if uploaded != nil {
			oldKey = video.VideoKey
			updates["video_url"] = uploaded.URL
			updates["video_key"] = uploaded.Key
		}
		if err := tx.Model(&video).Updates(updates).Error; err != nil {
			return Internal("Failed to update video", err)
		}
		video.Title, video.Description, video.DurationSeconds = merged.Title, merged.Description, merged.DurationSeconds
		if uploaded != nil {
			video.VideoURL, video.VideoKey = uploaded.URL, uploaded.Key
		}

		if in.Order != nil {
			if err := videoSiblings(ch.ID).swap(tx, video.ID, video.SortOrder, *in.Order); err != nil {
				return err
			}
			video.SortOrder = *in.Order
		}
		return nil
	})
	if err != nil {
		if uploaded != nil {
			deleteKeys(ctx, s.storage, s.log, []string{uploaded.Key})
		}
		return nil, err
	}
	deleteKeys(ctx, s.storage, s.log, []string{oldKey})
	return &video, nil
}

// DeleteVideo removes a video and its stored file and closes the order gap
func (s *ContentService) DeleteVideo(ctx context.Context, tutorID, videoID uint) error {
	var key string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var video model.Video
		ch, err := editableChild(tx, &video, videoID, tutorID, "Video")
		if err != nil {
			return err
		}
		if err := tx.Delete(&model.Video{}, video.ID).Error; err != nil {
			return Internal("Failed to delete video", err)
		}
		if err := videoSiblings(ch.ID).closeGap(tx, video.SortOrder); err != nil {
			return Internal("Failed to reorder videos", err)
		}
		key = video.VideoKey
		return nil
	})
	if err != nil {
		return err
	}
	deleteKeys(ctx, s.storage, s.log, []string{key})
	return nil
}

// ---- exercises ----

var exerciseAnswers = map[string]bool{"A": true, "B": true, "C": true, "D": true}

// ExerciseInput carries a multiple choice question with four options
type ExerciseInput struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

func (in *ExerciseInput) validate() error {
	in.Question = strings.TrimSpace(in.Question)
	in.Answer = strings.ToUpper(strings.TrimSpace(in.Answer))
	if utf8.RuneCountInString(in.Question) < 5 {
		return Validation("Question must be at least 5 characters")
	}
	if len(in.Options) != 4 {
		return Validation("Exercise needs exactly four options")
	}
	for i := range in.Options {
		in.Options[i] = strings.TrimSpace(in.Options[i])
		if in.Options[i] == "" {
			return Validation("Options cannot be empty")
		}
	}
	if !exerciseAnswers[in.Answer] {
		return Validation("Answer must be one of A, B, C, D")
	}
	return nil
}

// CreateExercise appends an exercise to the chapter
func (s *ContentService) CreateExercise(ctx context.Context, tutorID, chapterID uint, in ExerciseInput) (*model.Exercise, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var exercise model.Exercise
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ch, _, err := editableChapter(tx, chapterID, tutorID)
		if err != nil {
			return err
		}
		order, err := exerciseSiblings(ch.ID).next(tx)
		if err != nil {
			return Internal("Failed to count exercises", err)
		}
		exercise = model.Exercise{
			CourseID:  ch.CourseID,
			ChapterID: ch.ID,
			Question:  in.Question,
			Options:   in.Options,
			Answer:    in.Answer,
			SortOrder: order,
		}
		if err := tx.Create(&exercise).Error; err != nil {
			return Internal("Failed to create exercise", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &exercise, nil
}

// ExerciseUpdate edits an exercise. Content fields are replaced together when Question is set.
type ExerciseUpdate struct {
	Question *string  `json:"question"`
	Options  []string `json:"options"`
	Answer   *string  `json:"answer"`
	Order    *int     `json:"order"`
}

// UpdateExercise edits content and/or swaps order
func (s *ContentService) UpdateExercise(ctx context.Context, tutorID, exerciseID uint, in ExerciseUpdate) (*model.Exercise, error) {
	var exercise model.Exercise
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ch, err := editableChild(tx, &exercise, exerciseID, tutorID, "Exercise")
		if err != nil {
			return err
		}

		merged := ExerciseInput{Question: exercise.Question, Options: append([]string(nil), exercise.Options...), Answer: exercise.Answer}
		if in.Question != nil {
			merged.Question = *in.Question
		}
		if in.Options != nil {
			merged.Options = in.Options
		}
		if in.Answer != nil {
			merged.Answer = *in.Answer
		}
		if err := merged.validate(); err != nil {
			return err
		}
		exercise.Question = merged.Question
		exercise.Options = merged.Options
		exercise.Answer = merged.Answer
		if err := tx.Model(&exercise).Select("question", "options", "answer").Updates(&exercise).Error; err != nil {
			return Internal("Failed to update exercise", err)
		}

		if in.Order != nil {
			if err := exerciseSiblings(ch.ID).swap(tx, exercise.ID, exercise.SortOrder, *in.Order); err != nil {
				return err
			}
			exercise.SortOrder = *in.Order
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &exercise, nil
}

// DeleteExercise removes an exercise and closes the order gap
func (s *ContentService) DeleteExercise(ctx context.Context, tutorID, exerciseID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exercise model.Exercise
		ch, err := editableChild(tx, &exercise, exerciseID, tutorID, "Exercise")
		if err != nil {
			return err
		}
		if err := tx.Delete(&model.Exercise{}, exercise.ID).Error; err != nil {
			return Internal("Failed to delete exercise", err)
		}
		if err := exerciseSiblings(ch.ID).closeGap(tx, exercise.SortOrder); err != nil {
			return Internal("Failed to reorder exercises", err)
		}
		return nil
	})
}
