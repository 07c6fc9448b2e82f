package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-marketplace/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", services.Validation("Cart is empty"), fiber.StatusBadRequest, "BAD_REQUEST"},
		{"invalid action", services.InvalidAction("Invalid action"), fiber.StatusBadRequest, "INVALID_ACTION"},
		{"unauthorized", services.Unauthorized("bad signature"), fiber.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", services.Forbidden("nope"), fiber.StatusForbidden, "FORBIDDEN"},
		{"not found", services.NotFound("Course not found"), fiber.StatusNotFound, "NOT_FOUND"},
		{"conflict", services.Conflict("exists"), fiber.StatusConflict, "CONFLICT"},
		{"internal", services.Internal("Failed to load cart", errors.New("db down")), fiber.StatusInternalServerError, "INTERNAL_ERROR"},
		{"foreign", errors.New("boom"), fiber.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return FromError(c, tc.err) })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)

			body, _ := io.ReadAll(resp.Body)
			var r Response
			require.NoError(t, json.Unmarshal(body, &r))
			assert.False(t, r.Success)
			require.NotNil(t, r.Error)
			assert.Equal(t, tc.code, r.Error.Code)
		})
	}
}

func TestCalculatePagination(t *testing.T) {
	meta := CalculatePagination(2, 8, 17)
	assert.Equal(t, 3, meta.TotalPages)
	assert.Equal(t, 2, meta.CurrentPage)
	assert.Equal(t, 8, meta.PerPage)
}
