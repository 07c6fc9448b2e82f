package services

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/sahilchouksey/course-marketplace/model"
	"github.com/sahilchouksey/course-marketplace/services/realtime"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"github.com/sahilchouksey/course-marketplace/utils/sse"
	"gorm.io/gorm"
)

const maxChatMessageLength = 1000

// ChatRoom returns the broadcast channel name of a course room
func ChatRoom(courseID uint) string {
	return fmt.Sprintf("course:%d", courseID)
}

// ChatEntry is a room message as shown to participants
type ChatEntry struct {
	ID        uint      `json:"id"`
	CourseID  uint      `json:"course_id"`
	UserID    uint      `json:"user_id"`
	UserName  string    `json:"user_name"`
	UserImage string    `json:"user_image"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func newChatEntry(m *model.ChatMessage) ChatEntry {
	e := ChatEntry{ID: m.ID, CourseID: m.CourseID, UserID: m.UserID, Message: m.Message, CreatedAt: m.CreatedAt}
	if m.User != nil {
		e.UserName = m.User.Name
		e.UserImage = m.User.Image
	}
	return e
}

// ChatService persists course room messages and publishes them to subscribers
type ChatService struct {
	db  *gorm.DB
	bus realtime.Bus
	log *logger.Logger
}

// NewChatService creates a new chat service
func NewChatService(db *gorm.DB, bus realtime.Bus, log *logger.Logger) *ChatService {
	return &ChatService{db: db, bus: bus, log: log.With("service", "ChatService")}
}

// CanJoin reports whether the user may read and post in the course room:
// learners enrolled in the course and its tutor.
func (s *ChatService) CanJoin(ctx context.Context, userID, courseID uint) error {
	db := s.db.WithContext(ctx)
	var course model.Course
	if err := db.Select("id", "tutor_id").First(&course, courseID).Error; err != nil {
		if isNotFound(err) {
			return NotFound("Course not found")
		}
		return Internal("Failed to load course", err)
	}
	if course.TutorID == userID {
		return nil
	}
	enrolled, err := isEnrolled(db, userID, courseID)
	if err != nil {
		return err
	}
	if !enrolled {
		return Forbidden("Only enrolled learners and the tutor can join this room")
	}
	return nil
}

// Send stores a message and publishes it to the room. Delivery is best effort.
func (s *ChatService) Send(ctx context.Context, userID, courseID uint, text string) (*ChatEntry, error) {
	text = plainText(text)
	if text == "" {
		return nil, Validation("Message cannot be empty")
	}
	if utf8.RuneCountInString(text) > maxChatMessageLength {
		return nil, Validation(fmt.Sprintf("Message cannot exceed %d characters", maxChatMessageLength))
	}
	if err := s.CanJoin(ctx, userID, courseID); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	msg := model.ChatMessage{CourseID: courseID, UserID: userID, Message: text}
	if err := db.Create(&msg).Error; err != nil {
		return nil, Internal("Failed to save message", err)
	}
	if err := db.Preload("User").First(&msg, msg.ID).Error; err != nil {
		s.log.Warn("failed to reload chat message", "id", msg.ID, "error", err)
	}

	entry := newChatEntry(&msg)
	if err := s.bus.Publish(ctx, sse.Message{
		Channel: ChatRoom(courseID),
		Event:   sse.EventChatMessage,
		Data:    entry,
	}); err != nil {
		s.log.Warn("failed to publish chat message", "course_id", courseID, "error", err)
	}
	return &entry, nil
}

// History returns a page of room messages, oldest first within the page
func (s *ChatService) History(ctx context.Context, userID, courseID uint, page, limit int) ([]ChatEntry, int64, error) {
	if err := s.CanJoin(ctx, userID, courseID); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	db := s.db.WithContext(ctx)
	var total int64
	if err := db.Model(&model.ChatMessage{}).Where("course_id = ?", courseID).Count(&total).Error; err != nil {
		return nil, 0, Internal("Failed to count messages", err)
	}
	messages := []model.ChatMessage{}
	err := db.Preload("User").
		Where("course_id = ?", courseID).
		Order("created_at ASC, id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, 0, Internal("Failed to load messages", err)
	}
	entries := make([]ChatEntry, 0, len(messages))
	for i := range messages {
		entries = append(entries, newChatEntry(&messages[i]))
	}
	return entries, total, nil
}
