package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/medibro/medibro-server/internal/config"
	"github.com/medibro/medibro-server/internal/middleware"
	"github.com/medibro/medibro-server/internal/models"
	"github.com/medibro/medibro-server/internal/services"
	"github.com/medibro/medibro-server/internal/utils"
	"gorm.io/gorm"
)

// LogHandler handles dose log routes
type LogHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

type statusUpdateRequest struct {
	Status        string `json:"status"`
	Notes         string `json:"notes"`
	SnoozeMinutes int    `json:"snoozeMinutes"`
}

// ListLogs handles GET /api/logs
// @Summary List dose logs
// @Tags Logs
// @Produce json
// @Param startDate query string false "Window start (RFC 3339 or YYYY-MM-DD)"
// @Param endDate query string false "Window end (RFC 3339 or YYYY-MM-DD)"
// @Param status query string false "Filter by status"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Router /logs [get]
func (h *LogHandler) ListLogs(c *fiber.Ctx) error {
	start, err := parseTimeQuery(c, "startDate")
	if err != nil {
		return serviceError(c, err)
	}
	end, err := parseTimeQuery(c, "endDate")
	if err != nil {
		return serviceError(c, err)
	}

	status := c.Query("status")
	if status != "" && !models.IsDoseStatus(status) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid status filter")
	}

	logs, err := services.ListLogs(h.DB, middleware.UserID(c), services.LogFilter{
		Start:  start,
		End:    end,
		Status: status,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return utils.ListResponse(c, len(logs), logs)
}

// TodaySchedule handles GET /api/logs/today
// @Summary Today's dose schedule
// @Tags Logs
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /logs/today [get]
func (h *LogHandler) TodaySchedule(c *fiber.Ctx) error {
	logs, err := services.TodaySchedule(h.DB, middleware.UserID(c), time.Now())
	if err != nil {
		return serviceError(c, err)
	}
	return utils.ListResponse(c, len(logs), logs)
}

// PendingLogs handles GET /api/logs/pending
// @Summary Doses that are due and unresolved
// @Tags Logs
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /logs/pending [get]
func (h *LogHandler) PendingLogs(c *fiber.Ctx) error {
	logs, err := services.PendingLogs(h.DB, middleware.UserID(c), time.Now())
	if err != nil {
		return serviceError(c, err)
	}
	return utils.ListResponse(c, len(logs), logs)
}

// GetLog handles GET /api/logs/:id
// @Summary Get one dose log
// @Tags Logs
// @Produce json
// @Param id path string true "Log ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /logs/{id} [get]
func (h *LogHandler) GetLog(c *fiber.Ctx) error {
	log, err := services.GetLog(h.DB, middleware.UserID(c), c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, log)
}

// UpdateStatus handles PUT /api/logs/:id/status
// @Summary Record a dose outcome
// @Description Transition a dose to taken, snoozed, or skipped. A repeat of an
// already-recorded outcome is absorbed; a conflicting outcome is rejected.
// @Tags Logs
// @Accept json
// @Produce json
// @Param id path string true "Log ID"
// @Param body body statusUpdateRequest true "New status"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Router /logs/{id}/status [put]
func (h *LogHandler) UpdateStatus(c *fiber.Ctx) error {
	var body statusUpdateRequest
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid input")
	}

	userID := middleware.UserID(c)
	logID := c.Params("id")
	now := time.Now()

	var (
		res *services.TransitionResult
		err error
	)
	switch body.Status {
	case models.StatusTaken:
		res, err = services.MarkTaken(h.DB, userID, logID, now)
		if err == nil && res.Applied {
			// The intake is committed; a failed decrement must not undo it.
			_, _ = services.DecrementStock(h.DB, res.Log.MedicineID)
		}
	case models.StatusSnoozed:
		minutes := body.SnoozeMinutes
		if minutes <= 0 {
			minutes = models.DefaultSnoozeMinutes
		}
		res, err = services.MarkSnoozed(h.DB, userID, logID, now, minutes, false, nil)
	case models.StatusSkipped:
		res, err = services.MarkSkipped(h.DB, userID, logID, body.Notes)
	default:
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Status must be taken, snoozed, or skipped")
	}
	if err != nil {
		return serviceError(c, err)
	}

	if !res.Applied {
		return utils.SuccessMessageResponse(c, fiber.StatusOK, "Dose already recorded", res.Log)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, res.Log)
}

// MedicineHistory handles GET /api/logs/history/:medicineId
// @Summary Dose history for one medicine
// @Tags Logs
// @Produce json
// @Param medicineId path string true "Medicine ID"
// @Param startDate query string false "Window start"
// @Param endDate query string false "Window end"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /logs/history/{medicineId} [get]
func (h *LogHandler) MedicineHistory(c *fiber.Ctx) error {
	start, err := parseTimeQuery(c, "startDate")
	if err != nil {
		return serviceError(c, err)
	}
	end, err := parseTimeQuery(c, "endDate")
	if err != nil {
		return serviceError(c, err)
	}

	logs, stats, err := services.MedicineHistory(h.DB, middleware.UserID(c), c.Params("medicineId"), services.LogFilter{
		Start: start,
		End:   end,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{
		"logs":  logs,
		"stats": stats,
	})
}
