package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sahilchouksey/course-marketplace/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// siblings is one dense ordering: the rows of model whose column equals parent.
// Orders run 1..count with no gaps.
type siblings struct {
	model  interface{}
	column string
	parent uint
}

func chapterSiblings(courseID uint) siblings {
	return siblings{model: &model.Chapter{}, column: "course_id", parent: courseID}
}

func videoSiblings(chapterID uint) siblings {
	return siblings{model: &model.Video{}, column: "chapter_id", parent: chapterID}
}

func exerciseSiblings(chapterID uint) siblings {
	return siblings{model: &model.Exercise{}, column: "chapter_id", parent: chapterID}
}

func (s siblings) scope(tx *gorm.DB) *gorm.DB {
	return tx.Model(s.model).Where(s.column+" = ?", s.parent)
}

func (s siblings) count(tx *gorm.DB) (int, error) {
	var n int64
	if err := s.scope(tx).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

// next is the order a newly created sibling receives.
func (s siblings) next(tx *gorm.DB) (int, error) {
	n, err := s.count(tx)
	return n + 1, err
}

// closeGap shifts every sibling after removed down by one.
func (s siblings) closeGap(tx *gorm.DB, removed int) error {
	return s.scope(tx).
		Where("sort_order > ?", removed).
		UpdateColumn("sort_order", gorm.Expr("sort_order - 1")).Error
}

// swap moves item id from order from to order to; the sibling holding to takes from.
// Only those two rows change.
func (s siblings) swap(tx *gorm.DB, id uint, from, to int) error {
	if from == to {
		return nil
	}
	n, err := s.count(tx)
	if err != nil {
		return err
	}
	if to < 1 || to > n {
		return Validation(fmt.Sprintf("Order must be between 1 and %d", n))
	}
	if err := s.scope(tx).
		Where("sort_order = ? AND id <> ?", to, id).
		UpdateColumn("sort_order", from).Error; err != nil {
		return err
	}
	return tx.Model(s.model).Where("id = ?", id).UpdateColumn("sort_order", to).Error
}

// lockCourse loads a course with a row lock, serialising chapter mutations on it.
func lockCourse(tx *gorm.DB, courseID uint) (*model.Course, error) {
	var course model.Course
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&course, courseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("Course not found")
	}
	if err != nil {
		return nil, Internal("Failed to load course", err)
	}
	return &course, nil
}

// lockChapter loads a chapter with a row lock, serialising video and exercise mutations.
func lockChapter(tx *gorm.DB, chapterID uint) (*model.Chapter, error) {
	var chapter model.Chapter
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&chapter, chapterID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("Chapter not found")
	}
	if err != nil {
		return nil, Internal("Failed to load chapter", err)
	}
	return &chapter, nil
}

// authorizeContentEdit enforces that only the tutor edits content, and only while creating.
func authorizeContentEdit(course *model.Course, userID uint) error {
	if course.TutorID != userID {
		return Unauthorized("You are not the tutor of this course")
	}
	if course.Status != model.CourseStatusCreating {
		return InvalidAction("Course content can only be changed while the course is in creating")
	}
	return nil
}

// parentID reads the parent column of row id without locking. Parents never
// change, so the value stays valid once the parent lock is taken.
func parentID(tx *gorm.DB, m interface{}, id uint, column string) (uint, error) {
	var ids []uint
	if err := tx.Model(m).Where("id = ?", id).Limit(1).Pluck(column, &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return ids[0], nil
}

// editableChapter locks the course and then the chapter, and checks userID may edit it.
// Every content mutation takes its locks in this order.
func editableChapter(tx *gorm.DB, chapterID, userID uint) (*model.Chapter, *model.Course, error) {
	courseID, err := parentID(tx, &model.Chapter{}, chapterID, "course_id")
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, NotFound("Chapter not found")
	}
	if err != nil {
		return nil, nil, Internal("Failed to load chapter", err)
	}
	course, err := lockCourse(tx, courseID)
	if err != nil {
		return nil, nil, err
	}
	if err := authorizeContentEdit(course, userID); err != nil {
		return nil, nil, err
	}
	chapter, err := lockChapter(tx, chapterID)
	if err != nil {
		return nil, nil, err
	}
	return chapter, course, nil
}

// editableChild resolves the chapter of a video or exercise, takes the locks, and then
// reloads the row into dest so its sort order is read under the chapter lock.
func editableChild(tx *gorm.DB, dest interface{}, id, userID uint, what string) (*model.Chapter, error) {
	chapterID, err := parentID(tx, dest, id, "chapter_id")
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound(what + " not found")
	}
	if err != nil {
		return nil, Internal("Failed to load "+strings.ToLower(what), err)
	}
	ch, _, err := editableChapter(tx, chapterID, userID)
	if err != nil {
		return nil, err
	}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(dest, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFound(what + " not found")
		}
		return nil, Internal("Failed to load "+strings.ToLower(what), err)
	}
	return ch, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
