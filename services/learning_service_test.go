package services

import (
	"context"
	"testing"

	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// learning content: chapter 1 has two videos and one exercise, chapter 2 is empty,
// chapter 3 has a single exercise.
func TestLearningNextItemChain(t *testing.T) {
	f := newContentFixture(t)
	ctx := context.Background()
	learning := NewLearningService(f.db, logger.Nop())
	learner := createUser(t, f.db, "Learner", model.RoleUser)
	opts := []string{"a", "b", "c", "d"}

	ch1 := f.chapter(t, "Introduction")
	ch2 := f.chapter(t, "Empty chapter")
	ch3 := f.chapter(t, "Final quiz")
	v1, err := f.svc.CreateVideo(ctx, f.tutor.ID, ch1.ID, VideoInput{Title: "Video one", Description: "first"}, videoFile("1.mp4"))
	require.NoError(t, err)
	v2, err := f.svc.CreateVideo(ctx, f.tutor.ID, ch1.ID, VideoInput{Title: "Video two", Description: "second"}, videoFile("2.mp4"))
	require.NoError(t, err)
	e1, err := f.svc.CreateExercise(ctx, f.tutor.ID, ch1.ID, ExerciseInput{Question: "Question one", Options: opts, Answer: "A"})
	require.NoError(t, err)
	e2, err := f.svc.CreateExercise(ctx, f.tutor.ID, ch3.ID, ExerciseInput{Question: "Question two", Options: opts, Answer: "B"})
	require.NoError(t, err)

	_, err = learning.WatchVideo(ctx, learner.ID, v1.ID)
	requireKind(t, err, KindForbidden)

	enroll(t, f.db, learner.ID, f.course)

	entry, err := learning.ChapterEntry(ctx, learner.ID, ch1.ID)
	require.NoError(t, err)
	assert.Equal(t, ItemRef{Type: model.ProgressItemVideo, ID: v1.ID, ChapterID: ch1.ID}, *entry)

	_, err = learning.ChapterEntry(ctx, learner.ID, ch2.ID)
	requireKind(t, err, KindNotFound)

	watched, err := learning.WatchVideo(ctx, learner.ID, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, ItemRef{Type: model.ProgressItemVideo, ID: v2.ID, ChapterID: ch1.ID}, *watched.Next)

	watched, err = learning.WatchVideo(ctx, learner.ID, v2.ID)
	require.NoError(t, err)
	assert.Equal(t, ItemRef{Type: model.ProgressItemExercise, ID: e1.ID, ChapterID: ch1.ID}, *watched.Next)

	opened, err := learning.OpenExercise(ctx, learner.ID, e1.ID)
	require.NoError(t, err)
	assert.Equal(t, ItemRef{Type: model.ProgressItemExercise, ID: e2.ID, ChapterID: ch3.ID}, *opened.Next)

	opened, err = learning.OpenExercise(ctx, learner.ID, e2.ID)
	require.NoError(t, err)
	assert.Nil(t, opened.Next)

	// rewatching does not double count
	_, err = learning.WatchVideo(ctx, learner.ID, v1.ID)
	require.NoError(t, err)

	summary, err := learning.Progress(ctx, learner.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.VideosWatched)
	assert.Equal(t, int64(2), summary.TotalVideos)
	assert.Equal(t, int64(2), summary.ExercisesDone)
	assert.Equal(t, int64(2), summary.TotalExercises)
	assert.InDelta(t, 100.0, summary.PercentComplete, 0.001)
	assert.Len(t, summary.Completed, 4)
}

func TestPurchasedCourses(t *testing.T) {
	f := newContentFixture(t)
	learning := NewLearningService(f.db, logger.Nop())
	learner := createUser(t, f.db, "Learner", model.RoleUser)

	list, err := learning.PurchasedCourses(context.Background(), learner.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	enroll(t, f.db, learner.ID, f.course)
	list, err = learning.PurchasedCourses(context.Background(), learner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Course)
	assert.Equal(t, f.tutor.ID, list[0].Course.Tutor.ID)
}
