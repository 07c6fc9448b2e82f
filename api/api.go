package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/utils/logger"
	"github.com/sahilchouksey/course-marketplace/utils/response"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
	log           *logger.Logger
}

func NewAPIServer(listenAddress string, log *logger.Logger) *APIServer {
	s := &APIServer{
		listenAddress: listenAddress,
		log:           log,
	}
	s.app = fiber.New(fiber.Config{
		AppName:      "course-marketplace",
		BodyLimit:    512 * 1024 * 1024, // video uploads
		ReadTimeout:  5 * time.Minute,
		ErrorHandler: s.errorHandler,
	})
	return s
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

// errorHandler renders anything a handler returned without writing a response
func (s *APIServer) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case fiber.StatusNotFound:
			return response.NotFound(c, fe.Message)
		case fiber.StatusMethodNotAllowed, fiber.StatusRequestEntityTooLarge, fiber.StatusBadRequest:
			return response.Error(c, fe.Code, fe.Message, "BAD_REQUEST")
		case fiber.StatusTooManyRequests:
			return response.TooManyRequests(c, fe.Message)
		}
		return response.Error(c, fe.Code, fe.Message, "ERROR")
	}

	s.log.Error("Unhandled error", "path", c.Path(), "method", c.Method(), "error", err)
	return response.FromError(c, err)
}

func (s *APIServer) Run() error {
	s.log.Info("Starting API Server", "address", s.listenAddress)
	return s.app.Listen(s.listenAddress)
}

// Shutdown stops accepting connections and waits up to timeout for in-flight requests
func (s *APIServer) Shutdown(timeout time.Duration) error {
	s.log.Info("Shutting down API Server")
	return s.app.ShutdownWithTimeout(timeout)
}
