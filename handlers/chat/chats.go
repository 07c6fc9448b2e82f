package chat

import (
	"bufio"
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/services"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"github.com/sahilchouksey/course-marketplace/utils/middleware"
	"github.com/sahilchouksey/course-marketplace/utils/response"
	"github.com/sahilchouksey/course-marketplace/utils/sse"
)

// ChatHandler handles course chat room requests
type ChatHandler struct {
	chat *services.ChatService
	hub  *sse.Hub
	log  *logger.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat *services.ChatService, hub *sse.Hub, log *logger.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, hub: hub, log: log.With("handler", "ChatHandler")}
}

// SendMessageRequest represents the request to post a chat message
type SendMessageRequest struct {
	Message string `json:"message"`
}

func courseID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Stream handles GET /api/v1/courses/:id/chat/stream.
// It joins the course room and pushes every message posted to it as a server-sent event.
func (h *ChatHandler) Stream(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := courseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}
	if err := h.chat.CanJoin(c.UserContext(), userID, id); err != nil {
		return response.FromError(c, err)
	}

	client := h.hub.NewClient(userID)
	h.hub.AddChannel(client, services.ChatRoom(id))

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")
	c.Set("X-Accel-Buffering", "no")

	h.log.Debug("Chat client joined", "userID", userID, "courseID", id)

	// The fiber context is recycled once the handler returns, so the
	// stream goroutine must not touch c.
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer h.hub.CloseClient(client)
		h.hub.Stream(context.Background(), w, client)
	})
	return nil
}

// SendMessage handles POST /api/v1/courses/:id/chat/messages
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := courseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}
	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	entry, err := h.chat.Send(c.UserContext(), userID, id, req.Message)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, entry)
}

// History handles GET /api/v1/courses/:id/chat/messages
func (h *ChatHandler) History(c *fiber.Ctx) error {
	userID, _ := middleware.GetUserID(c)
	id, ok := courseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	entries, total, err := h.chat.History(c.UserContext(), userID, id, page, limit)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Paginated(c, entries, response.CalculatePagination(page, limit, total))
}
