package services

import (
	"context"
	"testing"

	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCart(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db, logger.Nop())
	ctx := context.Background()
	tutor := createUser(t, db, "Tutor", model.RoleUser)
	buyer := createUser(t, db, "Buyer", model.RoleUser)
	cat := createCategory(t, db, "Programming")
	a := createCourse(t, db, tutor.ID, cat.ID, "Go Basics", 500, 50, model.CourseStatusPublished)
	b := createCourse(t, db, tutor.ID, cat.ID, "Go Advanced", 1000, 0, model.CourseStatusPublished)

	_, err := svc.AddToCart(ctx, buyer.ID, a.ID)
	require.NoError(t, err)
	view, err := svc.AddToCart(ctx, buyer.ID, a.ID)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)

	view, err = svc.AddToCart(ctx, buyer.ID, b.ID)
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
	assert.Equal(t, int64(1500), view.TotalPrice)
	assert.Equal(t, int64(50), view.TotalDiscount)
	assert.Equal(t, int64(1450), view.Total)

	view, err = svc.RemoveFromCart(ctx, buyer.ID, a.ID)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)

	_, err = svc.RemoveFromCart(ctx, buyer.ID, a.ID)
	requireKind(t, err, KindNotFound)
}

func TestCartRefusals(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db, logger.Nop())
	ctx := context.Background()
	tutor := createUser(t, db, "Tutor", model.RoleUser)
	buyer := createUser(t, db, "Buyer", model.RoleUser)
	cat := createCategory(t, db, "Programming")
	published := createCourse(t, db, tutor.ID, cat.ID, "Go Basics", 500, 0, model.CourseStatusPublished)
	draft := createCourse(t, db, tutor.ID, cat.ID, "Go Drafts", 500, 0, model.CourseStatusCreating)

	_, err := svc.AddToCart(ctx, tutor.ID, published.ID)
	requireKind(t, err, KindInvalidAction)

	_, err = svc.AddToCart(ctx, buyer.ID, draft.ID)
	requireKind(t, err, KindNotFound)

	enroll(t, db, buyer.ID, published)
	_, err = svc.AddToCart(ctx, buyer.ID, published.ID)
	requireKind(t, err, KindInvalidAction)
	err = svc.AddToWishlist(ctx, buyer.ID, published.ID)
	requireKind(t, err, KindInvalidAction)
}

func TestWishlistMoveToCart(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db, logger.Nop())
	ctx := context.Background()
	tutor := createUser(t, db, "Tutor", model.RoleUser)
	buyer := createUser(t, db, "Buyer", model.RoleUser)
	cat := createCategory(t, db, "Programming")
	c := createCourse(t, db, tutor.ID, cat.ID, "Go Basics", 500, 0, model.CourseStatusPublished)

	require.NoError(t, svc.AddToWishlist(ctx, buyer.ID, c.ID))
	require.NoError(t, svc.AddToWishlist(ctx, buyer.ID, c.ID))
	items, err := svc.Wishlist(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Course)
	assert.Equal(t, "Go Basics", items[0].Course.Title)

	view, err := svc.MoveToCart(ctx, buyer.ID, c.ID)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
	items, err = svc.Wishlist(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = svc.MoveToCart(ctx, buyer.ID, c.ID)
	requireKind(t, err, KindNotFound)
	err = svc.RemoveFromWishlist(ctx, buyer.ID, c.ID)
	requireKind(t, err, KindNotFound)
}
