package services

import (
	"context"
	"strings"
	"testing"

	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/services/realtime"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"github.com/sahilchouksey/course-marketplace/utils/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainText(t *testing.T) {
	tests := map[string]string{
		"hello":                              "hello",
		"<b>bold</b> move":                   "bold move",
		"<script>alert(1)</script>hi":        "hi",
		"  spaced \n\t out  ":                "spaced out",
		"<p>a</p><style>p{}</style><p>b</p>": "a b",
		"<img src=x onerror=alert(1)>":       "",
	}
	for in, want := range tests {
		assert.Equal(t, want, plainText(in), "input %q", in)
	}
}

func TestChatRoom(t *testing.T) {
	db := newTestDB(t)
	bus := realtime.NewLocalBus()
	var published []sse.Message
	require.NoError(t, bus.StartForwarder(context.Background(), func(m sse.Message) {
		published = append(published, m)
	}))
	svc := NewChatService(db, bus, logger.Nop())
	ctx := context.Background()

	cat := createCategory(t, db, "Programming")
	tutor := createUser(t, db, "Tutor", model.RoleUser)
	learner := createUser(t, db, "Learner", model.RoleUser)
	visitor := createUser(t, db, "Visitor", model.RoleUser)
	course := createCourse(t, db, tutor.ID, cat.ID, "Go Basics", 500, 0, model.CourseStatusPublished)
	enroll(t, db, learner.ID, course)

	require.NoError(t, svc.CanJoin(ctx, tutor.ID, course.ID))
	require.NoError(t, svc.CanJoin(ctx, learner.ID, course.ID))
	requireKind(t, svc.CanJoin(ctx, visitor.ID, course.ID), KindForbidden)
	requireKind(t, svc.CanJoin(ctx, learner.ID, 9999), KindNotFound)

	_, err := svc.Send(ctx, visitor.ID, course.ID, "let me in")
	requireKind(t, err, KindForbidden)
	_, err = svc.Send(ctx, learner.ID, course.ID, "<i></i>  ")
	requireKind(t, err, KindValidation)
	_, err = svc.Send(ctx, learner.ID, course.ID, strings.Repeat("x", maxChatMessageLength+1))
	requireKind(t, err, KindValidation)
	assert.Empty(t, published)

	entry, err := svc.Send(ctx, learner.ID, course.ID, "<b>Hello</b> class")
	require.NoError(t, err)
	assert.Equal(t, "Hello class", entry.Message)
	assert.Equal(t, "Learner", entry.UserName)

	require.Len(t, published, 1)
	assert.Equal(t, ChatRoom(course.ID), published[0].Channel)
	assert.Equal(t, sse.EventChatMessage, published[0].Event)
	assert.Equal(t, *entry, published[0].Data)

	_, err = svc.Send(ctx, tutor.ID, course.ID, "Welcome")
	require.NoError(t, err)

	history, total, err := svc.History(ctx, tutor.ID, course.ID, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, history, 2)
	assert.Equal(t, "Hello class", history[0].Message)
	assert.Equal(t, "Tutor", history[1].UserName)

	_, _, err = svc.History(ctx, visitor.ID, course.ID, 1, 10)
	requireKind(t, err, KindForbidden)
}
