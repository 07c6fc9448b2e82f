package services

import (
	"context"
	"testing"

	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/services/storage"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type contentFixture struct {
	db     *gorm.DB
	svc    *ContentService
	store  *storage.MemoryStorage
	tutor  *model.User
	course *model.Course
}

func newContentFixture(t *testing.T) *contentFixture {
	db := newTestDB(t)
	store := storage.NewMemoryStorage("https://cdn.test")
	tutor := createUser(t, db, "Tutor", model.RoleUser)
	category := createCategory(t, db, "Programming")
	return &contentFixture{
		db:     db,
		svc:    NewContentService(db, store, logger.Nop()),
		store:  store,
		tutor:  tutor,
		course: createCourse(t, db, tutor.ID, category.ID, "Go Basics", 500, 0, model.CourseStatusCreating),
	}
}

func (f *contentFixture) chapter(t *testing.T, title string) *model.Chapter {
	t.Helper()
	ch, err := f.svc.CreateChapter(context.Background(), f.tutor.ID, f.course.ID, title)
	require.NoError(t, err)
	return ch
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestChapterOrderStaysDense(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()

	a := f.chapter(t, "Introduction")
	b := f.chapter(t, "Variables")
	c := f.chapter(t, "Functions")
	assert.Equal(t, []int{1, 2, 3}, []int{a.SortOrder, b.SortOrder, c.SortOrder})

	require.NoError(t, f.svc.DeleteChapter(ctx, f.tutor.ID, a.ID))
	assert.Equal(t, map[int]string{1: "Variables", 2: "Functions"}, chapterOrders(t, f.db, f.course.ID))

	d := f.chapter(t, "Concurrency")
	assert.Equal(t, 3, d.SortOrder)
}

func TestChapterSwap(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	f.chapter(t, "Introduction")
	f.chapter(t, "Variables")
	c := f.chapter(t, "Functions")

	updated, err := f.svc.UpdateChapter(ctx, f.tutor.ID, c.ID, ChapterUpdate{Order: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.SortOrder)
	assert.Equal(t, map[int]string{1: "Functions", 2: "Variables", 3: "Introduction"}, chapterOrders(t, f.db, f.course.ID))

	for _, bad := range []int{0, 4, -1} {
		_, err := f.svc.UpdateChapter(ctx, f.tutor.ID, c.ID, ChapterUpdate{Order: intPtr(bad)})
		requireKind(t, err, KindValidation)
	}
	assert.Equal(t, map[int]string{1: "Functions", 2: "Variables", 3: "Introduction"}, chapterOrders(t, f.db, f.course.ID))
}

func TestChapterTitleRules(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	first := f.chapter(t, "Introduction")
	second := f.chapter(t, "Variables")

	_, err := f.svc.CreateChapter(ctx, f.tutor.ID, f.course.ID, "Intro")
	require.NoError(t, err)

	_, err = f.svc.CreateChapter(ctx, f.tutor.ID, f.course.ID, "Four")
	requireKind(t, err, KindValidation)

	_, err = f.svc.CreateChapter(ctx, f.tutor.ID, f.course.ID, "  Introduction ")
	requireKind(t, err, KindValidation)
	assert.Equal(t, "Chapter already exists", err.Error())

	_, err = f.svc.UpdateChapter(ctx, f.tutor.ID, second.ID, ChapterUpdate{Title: strPtr("Introduction")})
	requireKind(t, err, KindValidation)

	// keeping its own title is not a conflict
	_, err = f.svc.UpdateChapter(ctx, f.tutor.ID, first.ID, ChapterUpdate{Title: strPtr("Introduction")})
	require.NoError(t, err)
}

func TestContentEditPermissions(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	ch := f.chapter(t, "Introduction")
	stranger := createUser(t, f.db, "Stranger", model.RoleUser)

	_, err := f.svc.CreateChapter(ctx, stranger.ID, f.course.ID, "Hijacked")
	requireKind(t, err, KindUnauthorized)
	err = f.svc.DeleteChapter(ctx, stranger.ID, ch.ID)
	requireKind(t, err, KindUnauthorized)
	_, err = f.svc.CreateExercise(ctx, stranger.ID, ch.ID, ExerciseInput{Question: "What is Go?", Options: []string{"a", "b", "c", "d"}, Answer: "A"})
	requireKind(t, err, KindUnauthorized)

	require.NoError(t, f.db.Model(f.course).Update("status", model.CourseStatusPending).Error)
	_, err = f.svc.CreateChapter(ctx, f.tutor.ID, f.course.ID, "Too late")
	requireKind(t, err, KindInvalidAction)
	_, err = f.svc.UpdateChapter(ctx, f.tutor.ID, ch.ID, ChapterUpdate{Title: strPtr("Renamed chapter")})
	requireKind(t, err, KindInvalidAction)

	_, err = f.svc.CreateChapter(ctx, f.tutor.ID, 9999, "Missing course")
	requireKind(t, err, KindNotFound)
}

func TestVideoLifecycle(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	ch := f.chapter(t, "Introduction")
	in := VideoInput{Title: "Hello world", Description: "First program", DurationSeconds: 90}

	v1, err := f.svc.CreateVideo(ctx, f.tutor.ID, ch.ID, in, videoFile("one.mp4"))
	require.NoError(t, err)
	v2, err := f.svc.CreateVideo(ctx, f.tutor.ID, ch.ID, in, videoFile("two.mp4"))
	require.NoError(t, err)
	assert.Equal(t, 1, v1.SortOrder)
	assert.Equal(t, 2, v2.SortOrder)
	assert.Equal(t, 2, f.store.Len())

	_, err = f.svc.CreateVideo(ctx, f.tutor.ID, ch.ID, in, videoFile("notes.pdf"))
	requireKind(t, err, KindValidation)
	assert.Equal(t, 2, f.store.Len())

	updated, err := f.svc.UpdateVideo(ctx, f.tutor.ID, v2.ID, VideoUpdate{Order: intPtr(1)}, videoFile("three.webm"))
	require.NoError(t, err)
	assert.Equal(t, 1, updated.SortOrder)
	assert.False(t, f.store.Has(v2.VideoKey))
	assert.True(t, f.store.Has(updated.VideoKey))

	var first model.Video
	require.NoError(t, f.db.First(&first, v1.ID).Error)
	assert.Equal(t, 2, first.SortOrder)

	require.NoError(t, f.svc.DeleteVideo(ctx, f.tutor.ID, v2.ID))
	require.NoError(t, f.db.First(&first, v1.ID).Error)
	assert.Equal(t, 1, first.SortOrder)
	assert.False(t, f.store.Has(updated.VideoKey))
}

func TestExerciseLifecycle(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	ch := f.chapter(t, "Introduction")
	opts := []string{"A language", "A database", "A game", "A car"}

	_, err := f.svc.CreateExercise(ctx, f.tutor.ID, ch.ID, ExerciseInput{Question: "What is Go?", Options: opts[:3], Answer: "A"})
	requireKind(t, err, KindValidation)
	_, err = f.svc.CreateExercise(ctx, f.tutor.ID, ch.ID, ExerciseInput{Question: "What is Go?", Options: opts, Answer: "E"})
	requireKind(t, err, KindValidation)

	e1, err := f.svc.CreateExercise(ctx, f.tutor.ID, ch.ID, ExerciseInput{Question: "What is Go?", Options: opts, Answer: "a"})
	require.NoError(t, err)
	assert.Equal(t, "A", e1.Answer)
	e2, err := f.svc.CreateExercise(ctx, f.tutor.ID, ch.ID, ExerciseInput{Question: "Who made Go?", Options: opts, Answer: "B"})
	require.NoError(t, err)
	assert.Equal(t, 2, e2.SortOrder)

	updated, err := f.svc.UpdateExercise(ctx, f.tutor.ID, e1.ID, ExerciseUpdate{Answer: strPtr("C"), Order: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, "C", updated.Answer)
	assert.Equal(t, "What is Go?", updated.Question)
	assert.Equal(t, 2, updated.SortOrder)

	require.NoError(t, f.svc.DeleteExercise(ctx, f.tutor.ID, e2.ID))
	var remaining model.Exercise
	require.NoError(t, f.db.First(&remaining, e1.ID).Error)
	assert.Equal(t, 1, remaining.SortOrder)
}

func TestDeleteChapterRemovesChildren(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	ch := f.chapter(t, "Introduction")
	v, err := f.svc.CreateVideo(ctx, f.tutor.ID, ch.ID, VideoInput{Title: "Hello world", Description: "First program"}, videoFile("one.mp4"))
	require.NoError(t, err)
	_, err = f.svc.CreateExercise(ctx, f.tutor.ID, ch.ID, ExerciseInput{Question: "What is Go?", Options: []string{"a", "b", "c", "d"}, Answer: "A"})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteChapter(ctx, f.tutor.ID, ch.ID))

	var n int64
	require.NoError(t, f.db.Model(&model.Video{}).Where("chapter_id = ?", ch.ID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, f.db.Model(&model.Exercise{}).Where("chapter_id = ?", ch.ID).Count(&n).Error)
	assert.Zero(t, n)
	assert.False(t, f.store.Has(v.VideoKey))
}

// traceReads records the table of every read and whether it took a row lock.
func traceReads(t *testing.T, db *gorm.DB) *[]string {
	t.Helper()
	var reads []string
	err := db.Callback().Query().After("gorm:query").Register("test:trace_reads", func(tx *gorm.DB) {
		entry := tx.Statement.Table
		if _, locked := tx.Statement.Clauses["FOR"]; locked {
			entry += " FOR UPDATE"
		}
		reads = append(reads, entry)
	})
	require.NoError(t, err)
	return &reads
}

func TestContentEditsLockCourseThenChapter(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	ch := f.chapter(t, "Introduction")
	other := f.chapter(t, "Variables")
	in := VideoInput{Title: "Hello world", Description: "First program"}
	video, err := f.svc.CreateVideo(ctx, f.tutor.ID, ch.ID, in, videoFile("one.mp4"))
	require.NoError(t, err)
	opts := []string{"a", "b", "c", "d"}
	e1, err := f.svc.CreateExercise(ctx, f.tutor.ID, ch.ID, ExerciseInput{Question: "What is Go?", Options: opts, Answer: "A"})
	require.NoError(t, err)
	e2, err := f.svc.CreateExercise(ctx, f.tutor.ID, ch.ID, ExerciseInput{Question: "Who made Go?", Options: opts, Answer: "B"})
	require.NoError(t, err)

	reads := traceReads(t, f.db)
	run := func(op func() error) []string {
		*reads = nil
		require.NoError(t, op())
		return *reads
	}

	// the child row is reread after both locks, so its order cannot be stale
	child := func(table string) []string {
		return []string{table, "chapters", "courses FOR UPDATE", "chapters FOR UPDATE", table + " FOR UPDATE"}
	}
	assert.Equal(t, child("exercises"), run(func() error {
		_, err := f.svc.UpdateExercise(ctx, f.tutor.ID, e1.ID, ExerciseUpdate{Answer: strPtr("D")})
		return err
	}))
	assert.Equal(t, child("exercises"), run(func() error {
		return f.svc.DeleteExercise(ctx, f.tutor.ID, e2.ID)
	}))
	assert.Equal(t, child("videos"), run(func() error {
		return f.svc.DeleteVideo(ctx, f.tutor.ID, video.ID)
	}))

	parent := []string{"chapters", "courses FOR UPDATE", "chapters FOR UPDATE"}
	got := run(func() error {
		_, err := f.svc.UpdateChapter(ctx, f.tutor.ID, other.ID, ChapterUpdate{Order: intPtr(1)})
		return err
	})
	require.GreaterOrEqual(t, len(got), len(parent))
	assert.Equal(t, parent, got[:len(parent)])

	got = run(func() error { return f.svc.DeleteChapter(ctx, f.tutor.ID, ch.ID) })
	require.GreaterOrEqual(t, len(got), len(parent))
	assert.Equal(t, parent, got[:len(parent)])
	assert.Equal(t, map[int]string{1: "Variables"}, chapterOrders(t, f.db, f.course.ID))

	_, err = f.svc.UpdateExercise(ctx, f.tutor.ID, e1.ID, ExerciseUpdate{Answer: strPtr("A")})
	requireKind(t, err, KindNotFound)
}
