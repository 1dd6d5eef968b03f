package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/medibro/medibro-server/internal/types"
	"github.com/medibro/medibro-server/internal/utils"
)

// serviceError translates a service-layer error into the standard error
// envelope. Unrecognized errors never leak their text to the client.
func serviceError(c *fiber.Ctx, err error) error {
	if appErr, ok := types.AsAppError(err); ok {
		return utils.ErrorResponse(c, appErr.Status, appErr.Message)
	}
	return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Server error")
}

// parseTimeQuery reads a query parameter as either an RFC 3339 timestamp or
// a bare YYYY-MM-DD date. A missing parameter returns nil without error.
func parseTimeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, types.Validation("invalid %s: %q", key, raw)
	}
	return &t, nil
}
