package services

import (
	"context"
	"testing"

	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewsRecomputeRating(t *testing.T) {
	db := newTestDB(t)
	svc := NewReviewService(db, logger.Nop())
	ctx := context.Background()
	cat := createCategory(t, db, "Programming")
	tutor := createUser(t, db, "Tutor", model.RoleUser)
	ann := createUser(t, db, "Ann", model.RoleUser)
	ben := createUser(t, db, "Ben", model.RoleUser)
	course := createCourse(t, db, tutor.ID, cat.ID, "Go Basics", 500, 0, model.CourseStatusPublished)
	enroll(t, db, ann.ID, course)
	enroll(t, db, ben.ID, course)

	reload := func() model.Course {
		var c model.Course
		require.NoError(t, db.First(&c, course.ID).Error)
		return c
	}

	_, err := svc.AddReview(ctx, tutor.ID, course.ID, ReviewInput{Rating: 5})
	requireKind(t, err, KindForbidden)
	_, err = svc.AddReview(ctx, ann.ID, course.ID, ReviewInput{Rating: 6})
	requireKind(t, err, KindValidation)

	first, err := svc.AddReview(ctx, ann.ID, course.ID, ReviewInput{Rating: 5, Comment: "<b>Great</b> course"})
	require.NoError(t, err)
	assert.Equal(t, "Great course", first.Comment)
	_, err = svc.AddReview(ctx, ann.ID, course.ID, ReviewInput{Rating: 4})
	requireKind(t, err, KindConflict)

	second, err := svc.AddReview(ctx, ben.ID, course.ID, ReviewInput{Rating: 2})
	require.NoError(t, err)
	c := reload()
	assert.InDelta(t, 3.5, c.Rating, 0.001)
	assert.Equal(t, 2, c.ReviewCount)

	_, err = svc.UpdateReview(ctx, ann.ID, second.ID, ReviewInput{Rating: 5})
	requireKind(t, err, KindUnauthorized)
	_, err = svc.UpdateReview(ctx, ben.ID, second.ID, ReviewInput{Rating: 3})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, reload().Rating, 0.001)

	require.NoError(t, svc.DeleteReview(ctx, ann.ID, first.ID))
	c = reload()
	assert.InDelta(t, 3.0, c.Rating, 0.001)
	assert.Equal(t, 1, c.ReviewCount)

	reviews, total, err := svc.CourseReviews(ctx, course.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, reviews, 1)
	require.NotNil(t, reviews[0].User)
	assert.Equal(t, "Ben", reviews[0].User.Name)
}
