package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/medibro/medibro-server/internal/config"
	"github.com/medibro/medibro-server/internal/middleware"
	"github.com/medibro/medibro-server/internal/services"
	"github.com/medibro/medibro-server/internal/utils"
	"gorm.io/gorm"
)

// AnalyticsHandler handles adherence analytics routes
type AnalyticsHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// Adherence handles GET /api/analytics/adherence
// @Summary Adherence report for a period
// @Tags Analytics
// @Produce json
// @Param period query string false "week, month, or year (default week)"
// @Success 200 {object} map[string]interface{}
// @Router /analytics/adherence [get]
func (h *AnalyticsHandler) Adherence(c *fiber.Ctx) error {
	report, err := services.AdherenceStats(h.DB, middleware.UserID(c), c.Query("period"), time.Now())
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, report)
}

// Insights handles GET /api/analytics/insights
// @Summary Rule-based adherence insights over the last 30 days
// @Tags Analytics
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /analytics/insights [get]
func (h *AnalyticsHandler) Insights(c *fiber.Ctx) error {
	insights, err := services.Insights(h.DB, middleware.UserID(c), time.Now(), h.Cfg.LowStockThreshold)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{"insights": insights})
}

// Patterns handles GET /api/analytics/patterns
// @Summary Weekday and time-of-day adherence patterns
// @Tags Analytics
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /analytics/patterns [get]
func (h *AnalyticsHandler) Patterns(c *fiber.Ctx) error {
	report, err := services.Patterns(h.DB, middleware.UserID(c), time.Now())
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, report)
}
